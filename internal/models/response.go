package models

import "time"

// TaskResponse is the JSON shape returned to HTTP clients. It is a
// projection of Task, never a dynamic reshape of it.
type TaskResponse struct {
	TaskID                string     `json:"task_id"`
	TaskType              TaskType   `json:"task_type"`
	Status                Status     `json:"status"`
	TimeUploaded          time.Time  `json:"time_uploaded"`
	Transcript            *string    `json:"transcript,omitempty"`
	SourceLanguage        *string    `json:"source_language,omitempty"`
	PositionInQueue       *int       `json:"position_in_queue,omitempty"`
	ProcessingDuration    *int       `json:"processing_duration,omitempty"`
	TimeProcessingFinished *time.Time `json:"time_processing_finished,omitempty"`
	TargetModelSize       *ModelSize `json:"target_model_size,omitempty"`
	UsedModelSize         *ModelSize `json:"used_model_size,omitempty"`
	UsedDevice            *Device    `json:"used_device,omitempty"`
}

// ToResponse projects a Task into its client-facing TaskResponse shape.
func (t *Task) ToResponse() TaskResponse {
	resp := TaskResponse{
		TaskID:       t.UUID,
		TaskType:     t.TaskType,
		Status:       t.Status,
		TimeUploaded: t.TimeUploaded,
	}
	if t.TargetModelSize != "" {
		resp.TargetModelSize = &t.TargetModelSize
	}
	if t.Status == StatusPending || t.Status == StatusProcessing {
		pos := t.PositionInQueue
		resp.PositionInQueue = &pos
	}
	if t.Status != StatusFinished || t.WhisperResult == nil {
		return resp
	}

	wr := t.WhisperResult
	resp.Transcript = &wr.Text
	resp.SourceLanguage = &wr.Language
	duration := wr.ProcessingDurationS()
	resp.ProcessingDuration = &duration
	resp.TimeProcessingFinished = &wr.EndTime
	resp.UsedModelSize = &wr.UsedModelSize
	resp.UsedDevice = &wr.UsedDevice
	return resp
}
