package gamequeue

import "time"

// IngestReplayJob re-ingests a replay whose live ingestion failed.
type IngestReplayJob struct {
	Path string `json:"path"`
}

// Kind returns the job type identifier for River.
func (IngestReplayJob) Kind() string { return "ingest_replay" }

// JobInfo describes a queued job for operators.
type JobInfo struct {
	ID          int64     `json:"id"`
	Path        string    `json:"path"`
	State       string    `json:"state"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Attempt     int       `json:"attempt"`
	MaxAttempts int       `json:"max_attempts"`
	LastError   string    `json:"last_error,omitempty"`
}
