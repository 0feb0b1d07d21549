package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"

	"github.com/ats-platform/ats-backend/internal/workflow"
)

// Application is one candidate's submission against a job. Candidate
// fields are written once at submission; status moves only through
// the transition path, and the parsed_* block only through reparse.
type Application struct {
	ID    int64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	JobID int64 `gorm:"column:job_id;index:idx_applications_job_status" json:"job_id"`
	Job   *Job  `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"job,omitempty"`

	CandidateName  string `gorm:"column:candidate_name;type:text" json:"candidate_name"`
	CandidateEmail string `gorm:"column:candidate_email;type:text" json:"candidate_email"`
	CandidatePhone string `gorm:"column:candidate_phone;type:text" json:"candidate_phone"`
	LinkedinURL    string `gorm:"column:linkedin_url;type:text" json:"linkedin_url"`
	CoverLetter    string `gorm:"column:cover_letter;type:text" json:"cover_letter"`

	ResumeFile string `gorm:"column:resume_file;type:text" json:"resume_file"`
	ResumeName string `gorm:"column:resume_name;type:text" json:"resume_name"`

	Status workflow.Status `gorm:"column:status;type:text;default:new;index:idx_applications_job_status" json:"status"`

	// Derived fields, replaced wholesale by the analyzer. Score is 0-100.
	ParsedSkills     pq.StringArray `gorm:"column:parsed_skills;type:text[]" json:"parsed_skills"`
	ParsedExperience string         `gorm:"column:parsed_experience;type:text" json:"parsed_experience"`
	ParsedEducation  string         `gorm:"column:parsed_education;type:text" json:"parsed_education"`
	ParsedEmail      string         `gorm:"column:parsed_email;type:text" json:"parsed_email"`
	ParsedPhone      string         `gorm:"column:parsed_phone;type:text" json:"parsed_phone"`
	Score            int            `gorm:"column:score;default:0" json:"score"`
	AnalyzerMeta     datatypes.JSON `gorm:"column:analyzer_meta;type:jsonb" json:"analyzer_meta,omitempty"`

	AppliedAt time.Time `gorm:"column:applied_at;type:timestamptz;index" json:"applied_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`

	StatusHistory []StatusHistoryEntry `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"status_history,omitempty"`
}

func (Application) TableName() string { return "applications" }

// StatusHistoryEntry is one row of the append-only transition ledger.
// Rows are never updated or deleted while their application lives.
type StatusHistoryEntry struct {
	ID            int64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ApplicationID int64 `gorm:"column:application_id;index" json:"application_id"`

	FromStatus workflow.Status `gorm:"column:from_status;type:text" json:"from_status"`
	ToStatus   workflow.Status `gorm:"column:to_status;type:text" json:"to_status"`

	ChangedByID *int64 `gorm:"column:changed_by_id" json:"changed_by"`
	ChangedBy   *User  `gorm:"foreignKey:ChangedByID" json:"-"`

	ChangedAt time.Time `gorm:"column:changed_at;type:timestamptz;index" json:"changed_at"`
	Notes     string    `gorm:"column:notes;type:text" json:"notes"`
}

func (StatusHistoryEntry) TableName() string { return "application_status_history" }
