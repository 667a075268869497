package worker

import (
	"fmt"
	"time"

	"whisperd/internal/models"
)

// Config configures a Worker's mode selection and model lifecycle.
type Config struct {
	// UseAcceleratorIfAvailable opts into accelerated mode when a device is
	// present; otherwise the worker always runs in CPU mode.
	UseAcceleratorIfAvailable bool
	// MaxModelToUse caps the model size ever attempted. Required in CPU
	// mode; if unset there, CPUFallbackModel is used instead.
	MaxModelToUse models.ModelSize
	// CPUFallbackModel is used when MaxModelToUse is unset and the worker
	// ends up in CPU mode.
	CPUFallbackModel models.ModelSize
	// UnloadModelAfterS is both the idle-eviction timer and the message
	// pump's poll timeout. Zero disables eviction.
	UnloadModelAfterS time.Duration
	// LoadModelOnStartup eagerly loads a model before serving the queue.
	LoadModelOnStartup bool
	// DevelopMode bypasses model selection entirely and always picks the
	// smallest model, for fast local iteration.
	DevelopMode bool
	// QueueCapacity bounds the number of tasks the worker will enqueue at
	// once.
	QueueCapacity int
}

// Validate enforces the configuration invariants the worker depends on.
func (c Config) Validate() error {
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("worker: QueueCapacity must be > 0, got %d", c.QueueCapacity)
	}
	if !c.UseAcceleratorIfAvailable && c.MaxModelToUse == "" && c.CPUFallbackModel == "" {
		return fmt.Errorf("worker: CPU mode requires MaxModelToUse or CPUFallbackModel")
	}
	return nil
}

// cpuCeiling returns the model size CPU mode is capped at.
func (c Config) cpuCeiling() models.ModelSize {
	if c.MaxModelToUse != "" {
		return c.MaxModelToUse
	}
	return c.CPUFallbackModel
}
