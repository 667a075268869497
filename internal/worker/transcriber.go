package worker

import "whisperd/internal/models"

// TranscribeResult is the raw output of one inference call, before the
// worker stamps it with timing and model/device metadata.
type TranscribeResult struct {
	Text     string
	Language string
	Segments []models.Segment
}

// Transcriber is the black-box ASR engine collaborator. A concrete
// implementation loads and runs an actual model; this package only drives
// the selection and lifecycle around it.
type Transcriber interface {
	// LoadModel loads size into memory for the given device, or returns an
	// error if it does not fit.
	LoadModel(device models.Device, size models.ModelSize) error
	// Unload releases whatever model is currently loaded, if any. Must be
	// idempotent.
	Unload()
	// Transcribe runs inference against audioPath. taskType is "transcribe"
	// or "translate"; sourceLanguage may be empty to mean auto-detect.
	Transcribe(audioPath string, taskType models.TaskType, sourceLanguage string) (TranscribeResult, error)
}
