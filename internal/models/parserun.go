package models

import "time"

const (
	ParseRunSucceeded = "succeeded"
	ParseRunFailed    = "failed"
)

// ParseRun is the audit record of one analyzer invocation, stored in
// Mongo. The relational side only keeps the latest derived fields; the
// run log keeps every attempt, including failures.
type ParseRun struct {
	RunID         string `bson:"run_id" json:"run_id"`
	ApplicationID int64  `bson:"application_id" json:"application_id"`
	FileURL       string `bson:"file_url" json:"file_url"`
	Status        string `bson:"status" json:"status"`

	Skills     []string `bson:"skills,omitempty" json:"skills,omitempty"`
	Experience string   `bson:"experience,omitempty" json:"experience,omitempty"`
	Education  string   `bson:"education,omitempty" json:"education,omitempty"`
	Score      int      `bson:"score,omitempty" json:"score,omitempty"`
	Error      string   `bson:"error,omitempty" json:"error,omitempty"`

	DurationMS int64     `bson:"duration_ms" json:"duration_ms"`
	StartedAt  time.Time `bson:"started_at" json:"started_at"`
}
