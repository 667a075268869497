// Package models defines the closed record types shared across the front
// and worker processes: Task, WhisperResult and their JSON projections.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskType is the kind of work requested for a Task.
type TaskType string

const (
	TaskTranscribe TaskType = "transcribe"
	TaskTranslate  TaskType = "translate"
)

// Status is the lifecycle state of a Task. Monotonic except that a failed
// job is terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusFinished   Status = "finished"
	StatusFailed     Status = "failed"
)

// ModelSize is one of the supported ASR model sizes, descending in memory
// footprint: ModelLarge, ModelMedium, ModelSmall, ModelBase.
type ModelSize string

const (
	ModelLarge  ModelSize = "large"
	ModelMedium ModelSize = "medium"
	ModelSmall  ModelSize = "small"
	ModelBase   ModelSize = "base"
)

// Device identifies where inference ran.
type Device string

const (
	DeviceAccelerator Device = "accel"
	DeviceCPU         Device = "cpu"
)

// Segment is one timed span of transcript text, the unit SRT rendering
// operates on.
type Segment struct {
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Text   string  `json:"text"`
	Tokens []int   `json:"tokens,omitempty"`
}

// WhisperResult is the successful output of a transcription or translation.
type WhisperResult struct {
	Text           string    `json:"text"`
	Language       string    `json:"language"`
	OutputLanguage string    `json:"output_language"`
	Segments       []Segment `json:"segments"`
	UsedModelSize  ModelSize `json:"used_model_size"`
	UsedDevice     Device    `json:"used_device"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
}

// ProcessingDurationS is the wall-clock duration of the inference call.
func (r WhisperResult) ProcessingDurationS() int {
	return int(r.EndTime.Sub(r.StartTime).Seconds())
}

// Task is a submitted unit of transcription or translation work. Only the
// Worker (via task_update messages, and status messages for
// PositionInQueue) and the registry's TTL sweeper mutate a Task after
// creation; everything else is read-only.
type Task struct {
	UUID              string         `json:"uuid"`
	AudiofileName     string         `json:"audiofile_name"`
	OriginalFileName  string         `json:"original_file_name"`
	TaskType          TaskType       `json:"task_type"`
	SourceLanguage    string         `json:"source_language,omitempty"`
	TargetModelSize   ModelSize      `json:"target_model_size,omitempty"`
	Status            Status         `json:"status"`
	PositionInQueue   int            `json:"position_in_queue"`
	TimeUploaded      time.Time      `json:"time_uploaded"`
	WhisperResult     *WhisperResult `json:"whisper_result,omitempty"`
	UsedDevice        Device         `json:"used_device,omitempty"`
}

// NewTask constructs a Task for audiofileName and taskType with a fresh
// 32-hex id, pending status and OriginalFileName "unknown". Callers set
// OriginalFileName/SourceLanguage/TargetModelSize before handing it to the
// registry.
func NewTask(audiofileName, taskType string) *Task {
	return &Task{
		UUID:             strings.ReplaceAll(uuid.NewString(), "-", ""),
		AudiofileName:    audiofileName,
		OriginalFileName: "unknown",
		TaskType:         TaskType(taskType),
		Status:           StatusPending,
		TimeUploaded:     time.Now(),
	}
}

// Key implements the hashable-identifier contract the bounded queue needs.
func (t *Task) Key() string { return t.UUID }
