package store

import "time"

// DispatchRecord is one reported dispatch outcome.
type DispatchRecord struct {
	ID              int64     `json:"id"`
	Target          string    `json:"target"`
	Kind            string    `json:"kind"`   // environment or module
	Mode            string    `json:"mode"`   // sync, fork or rpc
	Status          string    `json:"status"` // success or fail
	StatusCode      int       `json:"status_code"`
	Message         string    `json:"message"`
	DurationSeconds float64   `json:"duration_seconds"`
	CommitHash      *string   `json:"commit_hash,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
