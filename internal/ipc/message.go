// Package ipc implements the framed message channel between the Front and
// Worker processes: length-prefixed, tagged byte frames carrying JSON
// payloads. No rich object crosses the boundary — only primitives and plain
// records, independently serializable per message type.
package ipc

import (
	"encoding/json"
	"fmt"

	"whisperd/internal/models"
)

// Type tags the payload carried by a Message.
type Type string

const (
	TypeDecode     Type = "decode"
	TypeStatus     Type = "status"
	TypeTaskUpdate Type = "task_update"
	TypeExit       Type = "exit"
)

// Message is the envelope carried over the channel: a type tag plus a
// type-specific, independently serializable payload.
type Message struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// DecodePayload asks the Worker to enqueue a task for inference.
type DecodePayload struct {
	Task models.Task `json:"task"`
}

// StatusPayload is the Worker's most recent observable state. A later
// status supersedes an earlier one; QueueStatus maps task id to its current
// queue position (0 = processing).
type StatusPayload struct {
	State       models.DecoderState `json:"state"`
	QueueStatus map[string]int      `json:"queue_status,omitempty"`
}

// TaskUpdatePayload carries a Task whose status just transitioned.
type TaskUpdatePayload struct {
	Task models.Task `json:"task"`
}

// ExitPayload carries an optional reason for an orderly worker shutdown.
type ExitPayload struct {
	Reason string `json:"reason,omitempty"`
}

// NewDecode builds a decode Message for task.
func NewDecode(task models.Task) (Message, error) {
	return newMessage(TypeDecode, DecodePayload{Task: task})
}

// NewStatus builds a status Message.
func NewStatus(state models.DecoderState, queueStatus map[string]int) (Message, error) {
	return newMessage(TypeStatus, StatusPayload{State: state, QueueStatus: queueStatus})
}

// NewTaskUpdate builds a task_update Message.
func NewTaskUpdate(task models.Task) (Message, error) {
	return newMessage(TypeTaskUpdate, TaskUpdatePayload{Task: task})
}

// NewExit builds an exit Message.
func NewExit(reason string) (Message, error) {
	return newMessage(TypeExit, ExitPayload{Reason: reason})
}

func newMessage(t Type, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("ipc: marshal %s payload: %w", t, err)
	}
	return Message{Type: t, Data: raw}, nil
}

// DecodePayload unmarshals m's data as a DecodePayload. Returns an error if
// m is not of TypeDecode.
func (m Message) DecodePayload() (DecodePayload, error) {
	var p DecodePayload
	if m.Type != TypeDecode {
		return p, fmt.Errorf("ipc: expected %s, got %s", TypeDecode, m.Type)
	}
	err := json.Unmarshal(m.Data, &p)
	return p, err
}

// StatusPayload unmarshals m's data as a StatusPayload.
func (m Message) StatusPayload() (StatusPayload, error) {
	var p StatusPayload
	if m.Type != TypeStatus {
		return p, fmt.Errorf("ipc: expected %s, got %s", TypeStatus, m.Type)
	}
	err := json.Unmarshal(m.Data, &p)
	return p, err
}

// TaskUpdatePayload unmarshals m's data as a TaskUpdatePayload.
func (m Message) TaskUpdatePayload() (TaskUpdatePayload, error) {
	var p TaskUpdatePayload
	if m.Type != TypeTaskUpdate {
		return p, fmt.Errorf("ipc: expected %s, got %s", TypeTaskUpdate, m.Type)
	}
	err := json.Unmarshal(m.Data, &p)
	return p, err
}

// ExitPayload unmarshals m's data as an ExitPayload.
func (m Message) ExitPayload() (ExitPayload, error) {
	var p ExitPayload
	if m.Type != TypeExit {
		return p, fmt.Errorf("ipc: expected %s, got %s", TypeExit, m.Type)
	}
	err := json.Unmarshal(m.Data, &p)
	return p, err
}
