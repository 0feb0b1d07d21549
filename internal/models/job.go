package models

import (
	"strings"
	"time"
)

type JobStatus string

const (
	JobStatusActive JobStatus = "active"
	JobStatusClosed JobStatus = "closed"
)

func (s JobStatus) Valid() bool {
	return s == JobStatusActive || s == JobStatusClosed
}

// Job is a posting that candidates apply against. Deleting a job takes
// its applications (and their history) with it.
type Job struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title        string    `gorm:"column:title;type:text" json:"title"`
	Description  string    `gorm:"column:description;type:text" json:"description"`
	Requirements string    `gorm:"column:requirements;type:text" json:"requirements"`
	Location     string    `gorm:"column:location;type:text" json:"location"`
	SalaryMin    *float64  `gorm:"column:salary_min;type:numeric(10,2)" json:"salary_min"`
	SalaryMax    *float64  `gorm:"column:salary_max;type:numeric(10,2)" json:"salary_max"`
	Status       JobStatus `gorm:"column:status;type:text;default:active;index" json:"status"`

	CreatedByID int64 `gorm:"column:created_by_id;index" json:"created_by_id"`
	CreatedBy   *User `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`

	// Filled by repositories from a COUNT subquery, not a column.
	ApplicationCount int64 `gorm:"->;-:migration" json:"application_count"`
}

func (Job) TableName() string { return "jobs" }

// RequirementsList splits the free-text requirements field on newlines
// and commas, the same contract the resume analyzer scores against.
func (j *Job) RequirementsList() []string {
	if strings.TrimSpace(j.Requirements) == "" {
		return nil
	}
	parts := strings.FieldsFunc(j.Requirements, func(r rune) bool {
		return r == '\n' || r == ','
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
