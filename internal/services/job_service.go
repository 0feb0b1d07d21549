package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ats-platform/ats-backend/internal/cache"
	"github.com/ats-platform/ats-backend/internal/models"
	pgrepo "github.com/ats-platform/ats-backend/internal/repositories/postgres"
	"github.com/ats-platform/ats-backend/internal/utils"
)

const jobCacheTTL = 60 * time.Second

func jobCacheKey(id int64) string { return fmt.Sprintf("job:%d", id) }

type JobInput struct {
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Requirements string           `json:"requirements"`
	Location     string           `json:"location"`
	SalaryMin    *float64         `json:"salary_min"`
	SalaryMax    *float64         `json:"salary_max"`
	Status       models.JobStatus `json:"status"`
}

type JobService interface {
	Create(ctx context.Context, in JobInput, owner *models.User) (*models.Job, error)
	Get(ctx context.Context, id int64) (*models.Job, error)
	List(ctx context.Context, f pgrepo.JobFilter) ([]models.Job, int64, error)
	Update(ctx context.Context, id int64, in JobInput, actor *models.User) (*models.Job, error)
	Close(ctx context.Context, id int64, actor *models.User) (*models.Job, error)
	Reopen(ctx context.Context, id int64, actor *models.User) (*models.Job, error)
	Delete(ctx context.Context, id int64, actor *models.User) error
}

type jobService struct {
	jobs  pgrepo.JobRepository
	cache cache.Cache
}

func NewJobService(jobs pgrepo.JobRepository, c cache.Cache) JobService {
	return &jobService{jobs: jobs, cache: c}
}

func validateJobInput(op string, in *JobInput) error {
	fields := map[string]string{}
	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	if in.Title == "" {
		fields["title"] = "title is required"
	}
	if strings.TrimSpace(in.Description) == "" {
		fields["description"] = "description is required"
	}
	if in.Location == "" {
		fields["location"] = "location is required"
	}
	if in.SalaryMin != nil && *in.SalaryMin < 0 {
		fields["salary_min"] = "salary_min cannot be negative"
	}
	if in.SalaryMin != nil && in.SalaryMax != nil && *in.SalaryMin > *in.SalaryMax {
		fields["salary_max"] = "salary_max must be greater than or equal to salary_min"
	}
	if in.Status != "" && !in.Status.Valid() {
		fields["status"] = "status must be active or closed"
	}
	if len(fields) > 0 {
		return utils.EFields(op, "invalid job", fields)
	}
	return nil
}

func (s *jobService) Create(ctx context.Context, in JobInput, owner *models.User) (*models.Job, error) {
	const op = "JobService.Create"

	if owner == nil {
		return nil, utils.E(utils.CodeUnauthorized, op, "unauthorized", nil)
	}
	if err := validateJobInput(op, &in); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = models.JobStatusActive
	}
	now := time.Now().UTC()
	j := &models.Job{
		Title:        in.Title,
		Description:  in.Description,
		Requirements: in.Requirements,
		Location:     in.Location,
		SalaryMin:    in.SalaryMin,
		SalaryMax:    in.SalaryMax,
		Status:       status,
		CreatedByID:  owner.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.jobs.Insert(ctx, j); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create job", err)
	}
	j.CreatedBy = owner
	return j, nil
}

func (s *jobService) Get(ctx context.Context, id int64) (*models.Job, error) {
	const op = "JobService.Get"

	var cached models.Job
	if hit, err := s.cache.GetJSON(ctx, jobCacheKey(id), &cached); err == nil && hit {
		return &cached, nil
	}

	j, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "job not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load job", err)
	}

	_ = s.cache.SetJSON(ctx, jobCacheKey(id), j, jobCacheTTL)
	return j, nil
}

func (s *jobService) List(ctx context.Context, f pgrepo.JobFilter) ([]models.Job, int64, error) {
	const op = "JobService.List"

	rows, count, err := s.jobs.List(ctx, f)
	if err != nil {
		return nil, 0, utils.E(utils.CodeInternal, op, "failed to list jobs", err)
	}
	return rows, count, nil
}

// loadOwned fetches the job straight from the repository (never the
// cache) and enforces ownership for mutating operations.
func (s *jobService) loadOwned(ctx context.Context, op string, id int64, actor *models.User) (*models.Job, error) {
	if actor == nil {
		return nil, utils.E(utils.CodeUnauthorized, op, "unauthorized", nil)
	}
	j, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "job not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load job", err)
	}
	if j.CreatedByID != actor.ID {
		return nil, utils.E(utils.CodeForbidden, op, "only the job owner may modify it", nil)
	}
	return j, nil
}

func (s *jobService) Update(ctx context.Context, id int64, in JobInput, actor *models.User) (*models.Job, error) {
	const op = "JobService.Update"

	j, err := s.loadOwned(ctx, op, id, actor)
	if err != nil {
		return nil, err
	}
	if err := validateJobInput(op, &in); err != nil {
		return nil, err
	}

	j.Title = in.Title
	j.Description = in.Description
	j.Requirements = in.Requirements
	j.Location = in.Location
	j.SalaryMin = in.SalaryMin
	j.SalaryMax = in.SalaryMax
	if in.Status != "" {
		j.Status = in.Status
	}
	j.UpdatedAt = time.Now().UTC()

	if err := s.jobs.Update(ctx, j); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to update job", err)
	}
	_ = s.cache.Del(ctx, jobCacheKey(id))
	return j, nil
}

func (s *jobService) Close(ctx context.Context, id int64, actor *models.User) (*models.Job, error) {
	return s.setStatus(ctx, "JobService.Close", id, models.JobStatusClosed, actor)
}

// Reopen flips a closed job back to active; applications submitted
// before the close are untouched either way.
func (s *jobService) Reopen(ctx context.Context, id int64, actor *models.User) (*models.Job, error) {
	return s.setStatus(ctx, "JobService.Reopen", id, models.JobStatusActive, actor)
}

func (s *jobService) setStatus(ctx context.Context, op string, id int64, status models.JobStatus, actor *models.User) (*models.Job, error) {
	j, err := s.loadOwned(ctx, op, id, actor)
	if err != nil {
		return nil, err
	}
	if err := s.jobs.SetStatus(ctx, id, status); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to update job status", err)
	}
	_ = s.cache.Del(ctx, jobCacheKey(id))
	j.Status = status
	j.UpdatedAt = time.Now().UTC()
	return j, nil
}

func (s *jobService) Delete(ctx context.Context, id int64, actor *models.User) error {
	const op = "JobService.Delete"

	if _, err := s.loadOwned(ctx, op, id, actor); err != nil {
		return err
	}
	if err := s.jobs.Delete(ctx, id); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to delete job", err)
	}
	_ = s.cache.Del(ctx, jobCacheKey(id))
	return nil
}
