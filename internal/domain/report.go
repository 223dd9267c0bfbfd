package domain

import "time"

type Operation string

const (
	OperationBackup  Operation = "backup"
	OperationRestore Operation = "restore"
	OperationDelete  Operation = "delete"
	OperationPrune   Operation = "prune"
)

// Report summarizes one orchestrator run.
type Report struct {
	ID         string           `json:"id"`
	Operation  Operation        `json:"operation"`
	Instant    time.Time        `json:"instant"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Success    bool             `json:"success"`
	Backups    []BatchResult    `json:"backups,omitempty"`
	Restores   []RestoreOutcome `json:"restores,omitempty"`
	Deletion   *DeleteResult    `json:"deletion,omitempty"`
	Error      string           `json:"error,omitempty"`
}
