package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/ats-platform/ats-backend/internal/cache"
	"github.com/ats-platform/ats-backend/internal/events"
	"github.com/ats-platform/ats-backend/internal/models"
	mongorepo "github.com/ats-platform/ats-backend/internal/repositories/mongo"
	pgrepo "github.com/ats-platform/ats-backend/internal/repositories/postgres"
	"github.com/ats-platform/ats-backend/internal/storage"
	"github.com/ats-platform/ats-backend/internal/utils"
	"github.com/ats-platform/ats-backend/internal/workflow"
)

// ReparseQueue hands an application off to the asynchronous analyzer
// pipeline. Implemented on a Redis stream in internal/workers.
type ReparseQueue interface {
	Enqueue(ctx context.Context, applicationID int64) error
}

type SubmitApplicationInput struct {
	JobID          int64
	CandidateName  string
	CandidateEmail string
	CandidatePhone string
	LinkedinURL    string
	CoverLetter    string

	ResumeName        string
	ResumeSize        int64
	ResumeContentType string
	Resume            io.Reader
}

type BulkTransitionResult struct {
	UpdatedCount int
	SkippedCount int
}

type ApplicationService interface {
	Submit(ctx context.Context, in SubmitApplicationInput) (*models.Application, error)
	Get(ctx context.Context, id int64) (*models.Application, error)
	List(ctx context.Context, f pgrepo.ApplicationFilter) ([]models.Application, int64, error)
	ListByJob(ctx context.Context, jobID int64) ([]models.Application, error)

	// Transition validates and applies a single-step status change,
	// appending exactly one ledger entry, and returns the updated
	// application with its history so callers need no second fetch.
	Transition(ctx context.Context, id int64, to workflow.Status, actor *models.User) (*models.Application, error)
	BulkTransition(ctx context.Context, ids []int64, to workflow.Status, actor *models.User) (*BulkTransitionResult, error)

	// History returns the ledger newest-first, the order the UI shows.
	History(ctx context.Context, id int64) ([]models.StatusHistoryEntry, error)

	// Reparse enqueues a fresh analyzer run. Derived fields update
	// asynchronously; callers poll the application to observe them.
	Reparse(ctx context.Context, id int64) (*models.Application, error)

	// ParseRuns returns the analyzer audit log, most recent first.
	ParseRuns(ctx context.Context, id int64) ([]models.ParseRun, error)
}

type applicationService struct {
	apps     pgrepo.ApplicationRepository
	runs     mongorepo.ParseRunRepository
	uploader storage.Uploader
	policy   workflow.Policy
	queue    ReparseQueue
	hub      *events.Hub
	cache    cache.Cache
}

func NewApplicationService(
	apps pgrepo.ApplicationRepository,
	runs mongorepo.ParseRunRepository,
	uploader storage.Uploader,
	policy workflow.Policy,
	queue ReparseQueue,
	hub *events.Hub,
	c cache.Cache,
) ApplicationService {
	return &applicationService{
		apps:     apps,
		runs:     runs,
		uploader: uploader,
		policy:   policy,
		queue:    queue,
		hub:      hub,
		cache:    c,
	}
}

func (s *applicationService) Submit(ctx context.Context, in SubmitApplicationInput) (*models.Application, error) {
	const op = "ApplicationService.Submit"

	fields := map[string]string{}
	in.CandidateName = strings.TrimSpace(in.CandidateName)
	in.CandidateEmail = strings.TrimSpace(in.CandidateEmail)
	if in.JobID == 0 {
		fields["job_id"] = "job_id is required"
	}
	if in.CandidateName == "" {
		fields["candidate_name"] = "candidate_name is required"
	}
	if in.CandidateEmail == "" {
		fields["candidate_email"] = "candidate_email is required"
	} else if _, err := mail.ParseAddress(in.CandidateEmail); err != nil {
		fields["candidate_email"] = "invalid email address"
	}
	if in.Resume == nil || in.ResumeName == "" {
		fields["resume_file"] = "resume_file is required"
	}
	if len(fields) > 0 {
		return nil, utils.EFields(op, "invalid application", fields)
	}

	objectName := storage.ResumeObjectName(in.ResumeName, time.Now().UTC())
	storedURL, err := s.uploader.Upload(ctx, objectName, in.ResumeContentType, in.Resume)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to store resume", err)
	}

	now := time.Now().UTC()
	app := &models.Application{
		JobID:          in.JobID,
		CandidateName:  in.CandidateName,
		CandidateEmail: in.CandidateEmail,
		CandidatePhone: strings.TrimSpace(in.CandidatePhone),
		LinkedinURL:    strings.TrimSpace(in.LinkedinURL),
		CoverLetter:    in.CoverLetter,
		ResumeFile:     storedURL,
		ResumeName:     in.ResumeName,
		Status:         workflow.StatusNew,
		AppliedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.apps.CreateForActiveJob(ctx, app); err != nil {
		switch {
		case errors.Is(err, utils.ErrNotFound):
			return nil, utils.E(utils.CodeNotFound, op, "job not found", err)
		case errors.Is(err, utils.ErrJobClosed):
			return nil, utils.E(utils.CodeJobClosed, op, "this job posting is no longer accepting applications", err)
		default:
			return nil, utils.E(utils.CodeInternal, op, "failed to create application", err)
		}
	}

	// application_count changed
	_ = s.cache.Del(ctx, jobCacheKey(in.JobID))

	// first parse happens in the background; failures there never fail
	// the submission
	_ = s.queue.Enqueue(ctx, app.ID)

	return app, nil
}

func (s *applicationService) Get(ctx context.Context, id int64) (*models.Application, error) {
	const op = "ApplicationService.Get"

	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "application not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load application", err)
	}
	if err := s.attachHistory(ctx, app); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load status history", err)
	}
	return app, nil
}

func (s *applicationService) List(ctx context.Context, f pgrepo.ApplicationFilter) ([]models.Application, int64, error) {
	const op = "ApplicationService.List"

	rows, count, err := s.apps.List(ctx, f)
	if err != nil {
		return nil, 0, utils.E(utils.CodeInternal, op, "failed to list applications", err)
	}
	return rows, count, nil
}

func (s *applicationService) ListByJob(ctx context.Context, jobID int64) ([]models.Application, error) {
	const op = "ApplicationService.ListByJob"

	rows, err := s.apps.ListByJob(ctx, jobID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list applications", err)
	}
	return rows, nil
}

func (s *applicationService) Transition(ctx context.Context, id int64, to workflow.Status, actor *models.User) (*models.Application, error) {
	const op = "ApplicationService.Transition"

	if actor == nil {
		return nil, utils.E(utils.CodeUnauthorized, op, "status changes require an authenticated reviewer", nil)
	}
	if !to.Valid() {
		return nil, utils.E(utils.CodeInvalidArgument, op, fmt.Sprintf("invalid status %q", to), nil)
	}

	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "application not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load application", err)
	}

	if app.Status == to {
		return nil, utils.E(utils.CodeNoOpTransition, op, "application is already in this status", nil)
	}
	if !s.policy.Allows(app.Status, to) {
		return nil, utils.E(utils.CodeInvalidArgument, op,
			fmt.Sprintf("transition %s -> %s is not allowed by the %s policy", app.Status, to, s.policy.Name()), nil)
	}

	entry, err := s.apps.TransitionStatus(ctx, id, app.Status, to, &actor.ID, "")
	if err != nil {
		if errors.Is(err, utils.ErrStatusConflict) {
			return nil, utils.E(utils.CodeConcurrentModification, op,
				"application status changed concurrently; re-fetch and retry", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to apply transition", err)
	}
	entry.ChangedBy = actor

	from := app.Status
	app.Status = to
	app.UpdatedAt = entry.ChangedAt
	if err := s.attachHistory(ctx, app); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load status history", err)
	}

	s.hub.PublishStatusChanged(events.StatusChanged{
		ApplicationID: app.ID,
		JobID:         app.JobID,
		FromStatus:    from,
		ToStatus:      to,
		ChangedBy:     actor.FullName(),
		ChangedAt:     entry.ChangedAt,
	})

	return app, nil
}

// BulkTransition applies the transition to each application in turn.
// No-ops, denied transitions and races are skipped, not fatal; only
// real transitions count.
func (s *applicationService) BulkTransition(ctx context.Context, ids []int64, to workflow.Status, actor *models.User) (*BulkTransitionResult, error) {
	const op = "ApplicationService.BulkTransition"

	if actor == nil {
		return nil, utils.E(utils.CodeUnauthorized, op, "status changes require an authenticated reviewer", nil)
	}
	if len(ids) == 0 {
		return nil, utils.EFields(op, "invalid bulk update", map[string]string{
			"application_ids": "at least one application id is required",
		})
	}
	if !to.Valid() {
		return nil, utils.E(utils.CodeInvalidArgument, op, fmt.Sprintf("invalid status %q", to), nil)
	}

	res := &BulkTransitionResult{}
	for _, id := range ids {
		if _, err := s.Transition(ctx, id, to, actor); err != nil {
			res.SkippedCount++
			continue
		}
		res.UpdatedCount++
	}
	return res, nil
}

func (s *applicationService) History(ctx context.Context, id int64) ([]models.StatusHistoryEntry, error) {
	const op = "ApplicationService.History"

	if _, err := s.apps.GetByID(ctx, id); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "application not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load application", err)
	}

	entries, err := s.apps.ListHistory(ctx, id)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load status history", err)
	}
	reverseHistory(entries)
	return entries, nil
}

func (s *applicationService) Reparse(ctx context.Context, id int64) (*models.Application, error) {
	const op = "ApplicationService.Reparse"

	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(ctx, id); err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to queue resume parsing", err)
	}
	return app, nil
}

func (s *applicationService) ParseRuns(ctx context.Context, id int64) ([]models.ParseRun, error) {
	const op = "ApplicationService.ParseRuns"

	if _, err := s.apps.GetByID(ctx, id); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "application not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load application", err)
	}

	runs, err := s.runs.ListByApplication(ctx, id, 0)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load parse runs", err)
	}
	return runs, nil
}

// attachHistory loads the ledger and attaches it newest-first, the
// order every response surface uses.
func (s *applicationService) attachHistory(ctx context.Context, app *models.Application) error {
	entries, err := s.apps.ListHistory(ctx, app.ID)
	if err != nil {
		return err
	}
	reverseHistory(entries)
	app.StatusHistory = entries
	return nil
}

func reverseHistory(entries []models.StatusHistoryEntry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}
