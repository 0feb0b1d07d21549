package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ats-platform/ats-backend/internal/analyzer"
	"github.com/ats-platform/ats-backend/internal/models"
	"github.com/ats-platform/ats-backend/internal/utils"
	"github.com/ats-platform/ats-backend/internal/workflow"
)

// ApplicationFilter mirrors the listing query params.
type ApplicationFilter struct {
	JobID    int64
	Status   workflow.Status
	Search   string
	Ordering string
	Limit    int
	Offset   int
}

var applicationOrderings = map[string]string{
	"applied_at":     "applications.applied_at",
	"updated_at":     "applications.updated_at",
	"score":          "applications.score",
	"candidate_name": "applications.candidate_name",
}

type ApplicationRepository interface {
	// CreateForActiveJob inserts the application after re-checking the
	// job's lifecycle status inside the same transaction, closing the
	// race between page load and submission.
	CreateForActiveJob(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id int64) (*models.Application, error)
	List(ctx context.Context, f ApplicationFilter) ([]models.Application, int64, error)
	ListByJob(ctx context.Context, jobID int64) ([]models.Application, error)

	// TransitionStatus performs the compare-and-set status write plus
	// the ledger append as one transaction. A zero-row update means the
	// expected prior status no longer holds and the whole transition is
	// rolled back with ErrStatusConflict.
	TransitionStatus(ctx context.Context, id int64, from, to workflow.Status, changedByID *int64, notes string) (*models.StatusHistoryEntry, error)

	// ReplaceParseResults overwrites the derived fields wholesale. It
	// never touches status or history.
	ReplaceParseResults(ctx context.Context, id int64, d *analyzer.ParsedData, meta datatypes.JSON) error

	// ListHistory returns the ledger oldest-first.
	ListHistory(ctx context.Context, applicationID int64) ([]models.StatusHistoryEntry, error)
}

type applicationRepo struct {
	db *gorm.DB
}

func NewApplicationRepo(db *gorm.DB) ApplicationRepository {
	return &applicationRepo{db: db}
}

func (r *applicationRepo) CreateForActiveJob(ctx context.Context, app *models.Application) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job models.Job
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&job, "id = ?", app.JobID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrNotFound
		}
		if err != nil {
			return err
		}
		if job.Status != models.JobStatusActive {
			return utils.ErrJobClosed
		}
		return tx.Create(app).Error
	})
}

func (r *applicationRepo) GetByID(ctx context.Context, id int64) (*models.Application, error) {
	var app models.Application
	err := r.db.WithContext(ctx).
		Preload("Job").
		Preload("Job.CreatedBy").
		Take(&app, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &app, err
}

func (r *applicationRepo) List(ctx context.Context, f ApplicationFilter) ([]models.Application, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Application{})

	if f.JobID != 0 {
		q = q.Where("applications.job_id = ?", f.JobID)
	}
	if f.Status != "" {
		q = q.Where("applications.status = ?", f.Status)
	}
	if f.Search != "" {
		pat := "%" + f.Search + "%"
		q = q.Where(
			"applications.candidate_name ILIKE ? OR applications.candidate_email ILIKE ? OR array_to_string(applications.parsed_skills, ' ') ILIKE ?",
			pat, pat, pat,
		)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Application
	err := q.Preload("Job").
		Order(orderClause(f.Ordering, applicationOrderings, "applications.applied_at DESC")).
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&rows).Error
	return rows, count, err
}

func (r *applicationRepo) ListByJob(ctx context.Context, jobID int64) ([]models.Application, error) {
	var rows []models.Application
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("applied_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *applicationRepo) TransitionStatus(ctx context.Context, id int64, from, to workflow.Status, changedByID *int64, notes string) (*models.StatusHistoryEntry, error) {
	now := time.Now().UTC()
	entry := &models.StatusHistoryEntry{
		ApplicationID: id,
		FromStatus:    from,
		ToStatus:      to,
		ChangedByID:   changedByID,
		ChangedAt:     now,
		Notes:         notes,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Application{}).
			Where("id = ? AND status = ?", id, from).
			UpdateColumns(map[string]any{"status": to, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.ErrStatusConflict
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *applicationRepo) ReplaceParseResults(ctx context.Context, id int64, d *analyzer.ParsedData, meta datatypes.JSON) error {
	res := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"parsed_skills":     pqStringArray(d.Skills),
			"parsed_experience": d.Experience,
			"parsed_education":  d.Education,
			"parsed_email":      d.Email,
			"parsed_phone":      d.Phone,
			"score":             d.Score,
			"analyzer_meta":     meta,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

// pqStringArray normalizes nil to an empty array so a reparse with no
// skills still overwrites the previous value.
func pqStringArray(in []string) pq.StringArray {
	if in == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(in)
}

func (r *applicationRepo) ListHistory(ctx context.Context, applicationID int64) ([]models.StatusHistoryEntry, error) {
	var rows []models.StatusHistoryEntry
	err := r.db.WithContext(ctx).
		Preload("ChangedBy").
		Where("application_id = ?", applicationID).
		Order("changed_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}
