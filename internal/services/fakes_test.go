package services

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"

	"github.com/ats-platform/ats-backend/internal/analyzer"
	"github.com/ats-platform/ats-backend/internal/models"
	pgrepo "github.com/ats-platform/ats-backend/internal/repositories/postgres"
	"github.com/ats-platform/ats-backend/internal/utils"
	"github.com/ats-platform/ats-backend/internal/workflow"
)

// ---- application repository fake ----

type fakeAppRepo struct {
	mu         sync.Mutex
	jobs       map[int64]*models.Job
	apps       map[int64]*models.Application
	history    map[int64][]models.StatusHistoryEntry
	nextAppID  int64
	nextHistID int64

	// onGet, when set, runs after a GetByID read completes. Used to
	// line up concurrent readers before either writes.
	onGet func()
}

func newFakeAppRepo() *fakeAppRepo {
	return &fakeAppRepo{
		jobs:    make(map[int64]*models.Job),
		apps:    make(map[int64]*models.Application),
		history: make(map[int64][]models.StatusHistoryEntry),
	}
}

func (r *fakeAppRepo) addJob(j *models.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *j
	r.jobs[j.ID] = &cp
}

func (r *fakeAppRepo) CreateForActiveJob(ctx context.Context, app *models.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[app.JobID]
	if !ok {
		return utils.ErrNotFound
	}
	if job.Status != models.JobStatusActive {
		return utils.ErrJobClosed
	}
	r.nextAppID++
	app.ID = r.nextAppID
	cp := *app
	r.apps[app.ID] = &cp
	return nil
}

func (r *fakeAppRepo) GetByID(ctx context.Context, id int64) (*models.Application, error) {
	r.mu.Lock()
	app, ok := r.apps[id]
	var cp models.Application
	if ok {
		cp = *app
		if job, ok := r.jobs[app.JobID]; ok {
			jcp := *job
			cp.Job = &jcp
		}
	}
	r.mu.Unlock()
	if !ok {
		return nil, utils.ErrNotFound
	}
	if r.onGet != nil {
		r.onGet()
	}
	return &cp, nil
}

func (r *fakeAppRepo) List(ctx context.Context, f pgrepo.ApplicationFilter) ([]models.Application, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []models.Application
	for _, app := range r.apps {
		if f.JobID != 0 && app.JobID != f.JobID {
			continue
		}
		if f.Status != "" && app.Status != f.Status {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(app.CandidateName), strings.ToLower(f.Search)) {
			continue
		}
		rows = append(rows, *app)
	}
	return rows, int64(len(rows)), nil
}

func (r *fakeAppRepo) ListByJob(ctx context.Context, jobID int64) ([]models.Application, error) {
	rows, _, err := r.List(ctx, pgrepo.ApplicationFilter{JobID: jobID})
	return rows, err
}

func (r *fakeAppRepo) TransitionStatus(ctx context.Context, id int64, from, to workflow.Status, changedByID *int64, notes string) (*models.StatusHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok || app.Status != from {
		return nil, utils.ErrStatusConflict
	}
	now := time.Now().UTC()
	app.Status = to
	app.UpdatedAt = now
	r.nextHistID++
	entry := models.StatusHistoryEntry{
		ID:            r.nextHistID,
		ApplicationID: id,
		FromStatus:    from,
		ToStatus:      to,
		ChangedByID:   changedByID,
		ChangedAt:     now,
		Notes:         notes,
	}
	r.history[id] = append(r.history[id], entry)
	cp := entry
	return &cp, nil
}

func (r *fakeAppRepo) ReplaceParseResults(ctx context.Context, id int64, d *analyzer.ParsedData, meta datatypes.JSON) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return utils.ErrNotFound
	}
	app.ParsedSkills = pq.StringArray(d.Skills)
	app.ParsedExperience = d.Experience
	app.ParsedEducation = d.Education
	app.ParsedEmail = d.Email
	app.ParsedPhone = d.Phone
	app.Score = d.Score
	app.AnalyzerMeta = meta
	return nil
}

func (r *fakeAppRepo) ListHistory(ctx context.Context, applicationID int64) ([]models.StatusHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.StatusHistoryEntry(nil), r.history[applicationID]...), nil
}

func (r *fakeAppRepo) historyLen(id int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history[id])
}

func (r *fakeAppRepo) status(id int64) workflow.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.apps[id].Status
}

// ---- job repository fake ----

type fakeJobRepo struct {
	mu     sync.Mutex
	jobs   map[int64]*models.Job
	nextID int64
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[int64]*models.Job)}
}

func (r *fakeJobRepo) Insert(ctx context.Context, j *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	j.ID = r.nextID
	cp := *j
	r.jobs[j.ID] = &cp
	return nil
}

func (r *fakeJobRepo) GetByID(ctx context.Context, id int64) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *fakeJobRepo) List(ctx context.Context, f pgrepo.JobFilter) ([]models.Job, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []models.Job
	for _, j := range r.jobs {
		if f.Status != "" && j.Status != f.Status {
			continue
		}
		rows = append(rows, *j)
	}
	return rows, int64(len(rows)), nil
}

func (r *fakeJobRepo) Update(ctx context.Context, j *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[j.ID]; !ok {
		return utils.ErrNotFound
	}
	cp := *j
	r.jobs[j.ID] = &cp
	return nil
}

func (r *fakeJobRepo) SetStatus(ctx context.Context, id int64, status models.JobStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return utils.ErrNotFound
	}
	j.Status = status
	return nil
}

func (r *fakeJobRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; !ok {
		return utils.ErrNotFound
	}
	delete(r.jobs, id)
	return nil
}

// ---- user repository fake ----

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[int64]*models.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*models.User)}
}

func (r *fakeUserRepo) Insert(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	u.ID = r.nextID
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, utils.ErrNotFound
}

// ---- parse-run repository fake ----

type fakeParseRuns struct {
	mu   sync.Mutex
	runs []models.ParseRun
}

func (r *fakeParseRuns) Insert(ctx context.Context, run *models.ParseRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, *run)
	return nil
}

func (r *fakeParseRuns) ListByApplication(ctx context.Context, applicationID int64, limit int64) ([]models.ParseRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ParseRun
	for _, run := range r.runs {
		if run.ApplicationID == applicationID {
			out = append(out, run)
		}
	}
	return out, nil
}

// ---- cache fake ----

type fakeCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	denied map[string]bool
	dels   []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte), denied: make(map[string]bool)}
}

func (c *fakeCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	return false, nil
}

func (c *fakeCache) SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = []byte("set")
	return nil
}

func (c *fakeCache) Del(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dels = append(c.dels, keys...)
	return nil
}

func (c *fakeCache) Deny(ctx context.Context, tokenID string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.denied[tokenID] = true
	return nil
}

func (c *fakeCache) IsDenied(ctx context.Context, tokenID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.denied[tokenID], nil
}

// ---- uploader and queue fakes ----

type fakeUploader struct {
	mu    sync.Mutex
	count int
	fail  bool
}

func (u *fakeUploader) Upload(ctx context.Context, objectName, contentType string, r io.Reader) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.fail {
		return "", io.ErrUnexpectedEOF
	}
	u.count++
	_, _ = io.Copy(io.Discard, r)
	return "https://storage.example.com/" + objectName, nil
}

type fakeQueue struct {
	mu  sync.Mutex
	ids []int64
}

func (q *fakeQueue) Enqueue(ctx context.Context, applicationID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, applicationID)
	return nil
}

func (q *fakeQueue) enqueued() []int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]int64(nil), q.ids...)
}
