package postgres

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/ats-platform/ats-backend/internal/models"
	"github.com/ats-platform/ats-backend/internal/utils"
)

const jobWithCount = "jobs.*, (SELECT count(*) FROM applications WHERE applications.job_id = jobs.id) AS application_count"

// JobFilter mirrors the listing query params.
type JobFilter struct {
	Status   models.JobStatus
	Location string
	Search   string
	Ordering string
	Limit    int
	Offset   int
}

var jobOrderings = map[string]string{
	"created_at":        "jobs.created_at",
	"title":             "jobs.title",
	"application_count": "application_count",
}

type JobRepository interface {
	Insert(ctx context.Context, j *models.Job) error
	GetByID(ctx context.Context, id int64) (*models.Job, error)
	List(ctx context.Context, f JobFilter) ([]models.Job, int64, error)
	Update(ctx context.Context, j *models.Job) error
	SetStatus(ctx context.Context, id int64, status models.JobStatus) error
	Delete(ctx context.Context, id int64) error
}

type jobRepo struct {
	db *gorm.DB
}

func NewJobRepo(db *gorm.DB) JobRepository {
	return &jobRepo{db: db}
}

func (r *jobRepo) Insert(ctx context.Context, j *models.Job) error {
	return r.db.WithContext(ctx).Create(j).Error
}

func (r *jobRepo) GetByID(ctx context.Context, id int64) (*models.Job, error) {
	var j models.Job
	err := r.db.WithContext(ctx).
		Select(jobWithCount).
		Preload("CreatedBy").
		Take(&j, "jobs.id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &j, err
}

func (r *jobRepo) List(ctx context.Context, f JobFilter) ([]models.Job, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Job{})

	if f.Status != "" {
		q = q.Where("jobs.status = ?", f.Status)
	}
	if f.Location != "" {
		q = q.Where("jobs.location ILIKE ?", "%"+f.Location+"%")
	}
	if f.Search != "" {
		pat := "%" + f.Search + "%"
		q = q.Where("jobs.title ILIKE ? OR jobs.description ILIKE ? OR jobs.requirements ILIKE ?", pat, pat, pat)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Job
	err := q.Select(jobWithCount).
		Order(orderClause(f.Ordering, jobOrderings, "jobs.created_at DESC")).
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&rows).Error
	return rows, count, err
}

func (r *jobRepo) Update(ctx context.Context, j *models.Job) error {
	return r.db.WithContext(ctx).Save(j).Error
}

func (r *jobRepo) SetStatus(ctx context.Context, id int64, status models.JobStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

// Delete removes the job; applications and their history rows follow
// through the ON DELETE CASCADE constraints.
func (r *jobRepo) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&models.Job{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

// orderClause maps an API ordering param ("-score", "created_at") onto
// a whitelisted column. Anything unknown falls back to the default.
func orderClause(param string, allowed map[string]string, fallback string) string {
	param = strings.TrimSpace(param)
	desc := strings.HasPrefix(param, "-")
	col, ok := allowed[strings.TrimPrefix(param, "-")]
	if !ok {
		return fallback
	}
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}
