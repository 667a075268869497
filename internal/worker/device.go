package worker

import "whisperd/internal/models"

// Accelerator is the black-box collaborator that reports the presence and
// free-memory budget of an accelerated inference device (GPU, NPU, ...).
// No concrete accelerator driver ships in this tree; callers supply a
// NullAccelerator on platforms without one, or their own implementation.
type Accelerator interface {
	// Available reports whether an accelerated device is usable at all.
	Available() bool
	// FreeMemoryBytes reports the device's currently free memory. Only
	// meaningful when Available is true.
	FreeMemoryBytes() (uint64, error)
}

// NullAccelerator reports no accelerated device present, forcing CPU mode.
type NullAccelerator struct{}

func (NullAccelerator) Available() bool                 { return false }
func (NullAccelerator) FreeMemoryBytes() (uint64, error) { return 0, nil }

// SelectMode decides accel vs cpu per spec: accelerated iff a device is
// available and the operator opted in.
func SelectMode(accel Accelerator, useAcceleratorIfAvailable bool) models.Device {
	if useAcceleratorIfAvailable && accel.Available() {
		return models.DeviceAccelerator
	}
	return models.DeviceCPU
}
