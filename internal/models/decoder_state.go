package models

import "time"

// DecoderState is the Front's mirror of the Worker's condition, refreshed by
// status messages arriving over the IPC channel.
type DecoderState struct {
	GPUMode             bool      `json:"gpu_mode"`
	MaxModelToUse       ModelSize `json:"max_model_to_use,omitempty"`
	LastLoadedModelSize ModelSize `json:"last_loaded_model_size,omitempty"`
	IsModelLoaded       bool      `json:"is_model_loaded"`
	CurrentlyBusy       bool      `json:"currently_busy"`
	TasksInQueue        int       `json:"tasks_in_queue"`
	ReceivedAt          time.Time `json:"received_at"`
}
