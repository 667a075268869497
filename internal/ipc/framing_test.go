package ipc

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisperd/internal/models"
)

func TestSendReceiveRoundTrip(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	chA := NewChannel(a)
	chB := NewChannel(b)

	task := models.Task{UUID: "abc123", TaskType: models.TaskTranscribe}
	msg, err := NewDecode(task)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- chA.Send(msg) }()

	got, err := chB.Receive()
	require.NoError(t, err)
	require.NoError(t, <-errCh)

	assert.Equal(t, TypeDecode, got.Type)
	payload, err := got.DecodePayload()
	require.NoError(t, err)
	assert.Equal(t, "abc123", payload.Task.UUID)
}

func TestReceivePollTimesOutWithoutData(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	chB := NewChannel(b)
	_, ok, err := chB.ReceivePoll(30 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReceivePollReturnsMessageWhenAvailable(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	chA := NewChannel(a)
	chB := NewChannel(b)

	msg, err := NewExit("shutdown")
	require.NoError(t, err)

	go func() { _ = chA.Send(msg) }()

	got, ok, err := chB.ReceivePoll(time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, TypeExit, got.Type)
}

func TestReceiveReturnsEOFOnClose(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()

	chB := NewChannel(b)
	require.NoError(t, a.Close())

	_, err := chB.Receive()
	assert.ErrorIs(t, err, io.EOF)
}

func TestMessagePayloadTypeMismatch(t *testing.T) {
	msg, err := NewExit("")
	require.NoError(t, err)

	_, err = msg.DecodePayload()
	assert.Error(t, err)
}
