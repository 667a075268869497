package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisperd/internal/models"
)

type fakeAccelerator struct {
	available bool
	free      uint64
	err       error
}

func (f fakeAccelerator) Available() bool { return f.available }
func (f fakeAccelerator) FreeMemoryBytes() (uint64, error) {
	return f.free, f.err
}

func TestSelectModeRespectsOptIn(t *testing.T) {
	assert.Equal(t, models.DeviceCPU, SelectMode(fakeAccelerator{available: true}, false))
	assert.Equal(t, models.DeviceAccelerator, SelectMode(fakeAccelerator{available: true}, true))
	assert.Equal(t, models.DeviceCPU, SelectMode(fakeAccelerator{available: false}, true))
}

func TestSelectorLoadsLargestThatFitsOnAccelerator(t *testing.T) {
	tr := &fakeTranscriber{}
	accel := fakeAccelerator{available: true, free: 6e9} // fits medium, not large
	sel := NewSelector(Config{}, models.DeviceAccelerator, accel, tr)

	size, err := sel.Load("")
	require.NoError(t, err)
	assert.Equal(t, models.ModelMedium, size)
}

func TestSelectorHonorsRequestedSizeWhenItFits(t *testing.T) {
	tr := &fakeTranscriber{}
	accel := fakeAccelerator{available: true, free: 6e9}
	sel := NewSelector(Config{}, models.DeviceAccelerator, accel, tr)

	size, err := sel.Load(models.ModelSmall)
	require.NoError(t, err)
	assert.Equal(t, models.ModelSmall, size)
}

func TestSelectorFallsBackWhenRequestedDoesNotFit(t *testing.T) {
	tr := &fakeTranscriber{failSizes: map[models.ModelSize]bool{models.ModelLarge: true}} // large hits device OOM
	accel := fakeAccelerator{available: true, free: 2e9}
	sel := NewSelector(Config{}, models.DeviceAccelerator, accel, tr)

	size, err := sel.Load(models.ModelLarge)
	require.NoError(t, err)
	assert.Equal(t, models.ModelSmall, size)
}

func TestSelectorFallsThroughToCPUWhenNothingFitsAccelerator(t *testing.T) {
	tr := &fakeTranscriber{}
	accel := fakeAccelerator{available: true, free: 0}
	sel := NewSelector(Config{CPUFallbackModel: models.ModelBase}, models.DeviceAccelerator, accel, tr)

	size, err := sel.Load("")
	require.NoError(t, err)
	assert.Equal(t, models.ModelBase, size)
}

func TestSelectorReturnsAlreadyLoadedWhenMatchingRequest(t *testing.T) {
	tr := &fakeTranscriber{}
	accel := fakeAccelerator{available: true, free: 6e9}
	sel := NewSelector(Config{}, models.DeviceAccelerator, accel, tr)

	_, err := sel.Load(models.ModelSmall)
	require.NoError(t, err)

	tr.failSizes = map[models.ModelSize]bool{models.ModelSmall: true} // would fail if reload attempted
	size, err := sel.Load(models.ModelSmall)
	require.NoError(t, err)
	assert.Equal(t, models.ModelSmall, size)
}

func TestSelectorEvictsUnwantedResidentModel(t *testing.T) {
	tr := &fakeTranscriber{}
	accel := fakeAccelerator{available: true, free: 6e9}
	sel := NewSelector(Config{}, models.DeviceAccelerator, accel, tr)

	_, err := sel.Load(models.ModelSmall)
	require.NoError(t, err)
	assert.Equal(t, models.ModelSmall, sel.LastLoadedSize())

	size, err := sel.Load(models.ModelMedium)
	require.NoError(t, err)
	assert.Equal(t, models.ModelMedium, size)
}

func TestSelectorDevelopModeAlwaysPicksBase(t *testing.T) {
	tr := &fakeTranscriber{}
	accel := fakeAccelerator{available: true, free: 0}
	sel := NewSelector(Config{DevelopMode: true}, models.DeviceAccelerator, accel, tr)

	size, err := sel.Load(models.ModelLarge)
	require.NoError(t, err)
	assert.Equal(t, models.ModelBase, size)
}

func TestSelectorCPUModeIgnoresMemoryBudgetUsesCeiling(t *testing.T) {
	tr := &fakeTranscriber{}
	sel := NewSelector(Config{CPUFallbackModel: models.ModelSmall}, models.DeviceCPU, NullAccelerator{}, tr)

	size, err := sel.Load("")
	require.NoError(t, err)
	assert.Equal(t, models.ModelSmall, size)
}

func TestSelectorUnloadIsIdempotent(t *testing.T) {
	tr := &fakeTranscriber{}
	sel := NewSelector(Config{CPUFallbackModel: models.ModelBase}, models.DeviceCPU, NullAccelerator{}, tr)
	sel.Unload()
	sel.Unload()
	assert.Equal(t, models.ModelSize(""), sel.LastLoadedSize())
}

func TestSizesFromUnknownReturnsFullList(t *testing.T) {
	assert.Equal(t, sizesDescending, sizesFrom(""))
	assert.Equal(t, sizesDescending, sizesFrom("unknown"))
}

func TestSizesFromKnownReturnsSuffix(t *testing.T) {
	assert.Equal(t, []models.ModelSize{models.ModelSmall, models.ModelBase}, sizesFrom(models.ModelSmall))
}
