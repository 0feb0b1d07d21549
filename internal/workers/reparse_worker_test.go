package workers

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/ats-platform/ats-backend/internal/analyzer"
	"github.com/ats-platform/ats-backend/internal/models"
	pgrepo "github.com/ats-platform/ats-backend/internal/repositories/postgres"
	"github.com/ats-platform/ats-backend/internal/utils"
	"github.com/ats-platform/ats-backend/internal/workflow"
)

type stubAppRepo struct {
	mu       sync.Mutex
	app      *models.Application
	replaced *analyzer.ParsedData
	meta     datatypes.JSON
}

func (r *stubAppRepo) CreateForActiveJob(ctx context.Context, app *models.Application) error {
	return errors.New("not implemented")
}

func (r *stubAppRepo) GetByID(ctx context.Context, id int64) (*models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.app == nil || r.app.ID != id {
		return nil, utils.ErrNotFound
	}
	cp := *r.app
	return &cp, nil
}

func (r *stubAppRepo) List(ctx context.Context, f pgrepo.ApplicationFilter) ([]models.Application, int64, error) {
	return nil, 0, nil
}

func (r *stubAppRepo) ListByJob(ctx context.Context, jobID int64) ([]models.Application, error) {
	return nil, nil
}

func (r *stubAppRepo) TransitionStatus(ctx context.Context, id int64, from, to workflow.Status, changedByID *int64, notes string) (*models.StatusHistoryEntry, error) {
	return nil, errors.New("workers must never transition status")
}

func (r *stubAppRepo) ReplaceParseResults(ctx context.Context, id int64, d *analyzer.ParsedData, meta datatypes.JSON) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaced = d
	r.meta = meta
	return nil
}

func (r *stubAppRepo) ListHistory(ctx context.Context, applicationID int64) ([]models.StatusHistoryEntry, error) {
	return nil, nil
}

type stubParseRuns struct {
	mu   sync.Mutex
	runs []models.ParseRun
}

func (r *stubParseRuns) Insert(ctx context.Context, run *models.ParseRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, *run)
	return nil
}

func (r *stubParseRuns) ListByApplication(ctx context.Context, applicationID int64, limit int64) ([]models.ParseRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ParseRun(nil), r.runs...), nil
}

type stubAnalyzer struct {
	data *analyzer.ParsedData
	err  error

	gotFileURL      string
	gotRequirements []string
}

func (a *stubAnalyzer) Parse(ctx context.Context, fileURL string, jobRequirements []string) (*analyzer.ParsedData, error) {
	a.gotFileURL = fileURL
	a.gotRequirements = jobRequirements
	return a.data, a.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testApplication() *models.Application {
	return &models.Application{
		ID:     7,
		JobID:  1,
		Status: workflow.StatusScreening,
		Job: &models.Job{
			ID:           1,
			Requirements: "Go\nPostgreSQL",
		},
		ResumeFile: "https://storage.example.com/resumes/2026/08/29/abc.pdf",
	}
}

func TestProcessReplacesDerivedFieldsAndRecordsRun(t *testing.T) {
	apps := &stubAppRepo{app: testApplication()}
	runs := &stubParseRuns{}
	an := &stubAnalyzer{data: &analyzer.ParsedData{
		Skills:     []string{"go", "postgres"},
		Experience: "5 years",
		Education:  "BSc",
		Score:      91,
	}}
	pool := &ReparseWorkerPool{
		Applications: apps,
		ParseRuns:    runs,
		Analyzer:     an,
		Logger:       quietLogger(),
	}

	pool.Process(context.Background(), 7)

	if an.gotFileURL != apps.app.ResumeFile {
		t.Fatalf("analyzer got %q, want the stored resume url", an.gotFileURL)
	}
	if len(an.gotRequirements) != 2 {
		t.Fatalf("requirements = %v, want the job's two lines", an.gotRequirements)
	}
	if apps.replaced == nil || apps.replaced.Score != 91 {
		t.Fatalf("derived fields not replaced: %+v", apps.replaced)
	}
	if len(apps.meta) == 0 {
		t.Fatal("analyzer metadata not recorded")
	}
	if len(runs.runs) != 1 {
		t.Fatalf("parse runs = %d, want 1", len(runs.runs))
	}
	run := runs.runs[0]
	if run.Status != models.ParseRunSucceeded {
		t.Fatalf("run status = %q, want %q", run.Status, models.ParseRunSucceeded)
	}
	if run.ApplicationID != 7 || run.RunID == "" {
		t.Fatalf("run not attributed: %+v", run)
	}
}

func TestProcessAnalyzerFailureIsAuditedNotApplied(t *testing.T) {
	apps := &stubAppRepo{app: testApplication()}
	runs := &stubParseRuns{}
	an := &stubAnalyzer{err: errors.New("analyzer unreachable")}
	pool := &ReparseWorkerPool{
		Applications: apps,
		ParseRuns:    runs,
		Analyzer:     an,
		Logger:       quietLogger(),
	}

	pool.Process(context.Background(), 7)

	if apps.replaced != nil {
		t.Fatal("derived fields must stay untouched when the analyzer fails")
	}
	if len(runs.runs) != 1 {
		t.Fatalf("parse runs = %d, want 1", len(runs.runs))
	}
	if runs.runs[0].Status != models.ParseRunFailed {
		t.Fatalf("run status = %q, want %q", runs.runs[0].Status, models.ParseRunFailed)
	}
	if runs.runs[0].Error == "" {
		t.Fatal("failed run must carry the analyzer error")
	}
}

func TestProcessMissingApplicationStillReturns(t *testing.T) {
	apps := &stubAppRepo{}
	runs := &stubParseRuns{}
	pool := &ReparseWorkerPool{
		Applications: apps,
		ParseRuns:    runs,
		Analyzer:     &stubAnalyzer{data: &analyzer.ParsedData{}},
		Logger:       quietLogger(),
	}

	pool.Process(context.Background(), 404)

	if len(runs.runs) != 0 {
		t.Fatalf("parse runs = %d, want 0 for a missing application", len(runs.runs))
	}
}
