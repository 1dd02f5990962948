package models

import "time"

// Audit actions.
const (
	ActionOracleCall    = "oracle.call"
	ActionEntryClassify = "entry.classify"
	ActionEntryMove     = "entry.move"
	ActionBatchFinish   = "batch.finish"
)

// Audit outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// PDREntry represents a Process Decision Record for audit.
type PDREntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	BatchID    string    `json:"batch_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
