package workers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/ats-platform/ats-backend/internal/analyzer"
	"github.com/ats-platform/ats-backend/internal/models"
	mongorepo "github.com/ats-platform/ats-backend/internal/repositories/mongo"
	pgrepo "github.com/ats-platform/ats-backend/internal/repositories/postgres"
)

const defaultReparseStream = "reparse:stream"

// ReparseQueue is the producing side of the reparse pipeline.
type ReparseQueue struct {
	Redis  *redis.Client
	Stream string
}

func NewReparseQueue(rdb *redis.Client) *ReparseQueue {
	return &ReparseQueue{Redis: rdb, Stream: defaultReparseStream}
}

func (q *ReparseQueue) Enqueue(ctx context.Context, applicationID int64) error {
	return q.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: q.Stream,
		Values: map[string]any{"application_id": applicationID},
	}).Err()
}

// ReparseWorkerPool consumes the stream, calls the external analyzer
// and replaces the application's derived fields. It never touches the
// status column or the history ledger. Every attempt, failed or not,
// lands in the parse-run audit log.
type ReparseWorkerPool struct {
	Redis        *redis.Client
	Applications pgrepo.ApplicationRepository
	ParseRuns    mongorepo.ParseRunRepository
	Analyzer     analyzer.Provider
	NumWorkers   int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *ReparseWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Applications == nil || p.ParseRuns == nil || p.Analyzer == nil {
		return errors.New("ReparseWorkerPool missing dependency: Redis/Applications/ParseRuns/Analyzer must be set")
	}
	if p.Stream == "" {
		p.Stream = defaultReparseStream
	}
	if p.Group == "" {
		p.Group = "reparse-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 3
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *ReparseWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *ReparseWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	raw, _ := msg.Values["application_id"].(string)
	appID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || appID == 0 {
		p.Logger.WithField("msg_id", msg.ID).Warn("reparse message without application_id")
		return
	}
	p.Process(ctx, appID)
}

// Process runs one analyzer pass for the application. Exposed so tests
// can drive it without a Redis stream.
func (p *ReparseWorkerPool) Process(ctx context.Context, appID int64) {
	log := p.Logger.WithField("application_id", appID)

	app, err := p.Applications.GetByID(ctx, appID)
	if err != nil {
		log.WithError(err).Warn("reparse: application gone")
		return
	}

	var requirements []string
	if app.Job != nil {
		requirements = app.Job.RequirementsList()
	}

	run := &models.ParseRun{
		RunID:         uuid.NewString(),
		ApplicationID: appID,
		FileURL:       app.ResumeFile,
		StartedAt:     time.Now().UTC(),
	}

	data, err := p.Analyzer.Parse(ctx, app.ResumeFile, requirements)
	run.DurationMS = time.Since(run.StartedAt).Milliseconds()

	if err != nil {
		run.Status = models.ParseRunFailed
		run.Error = err.Error()
		log.WithError(err).Error("reparse: analyzer call failed")
	} else {
		run.Status = models.ParseRunSucceeded
		run.Skills = data.Skills
		run.Experience = data.Experience
		run.Education = data.Education
		run.Score = data.Score

		meta, _ := json.Marshal(data)
		if err := p.Applications.ReplaceParseResults(ctx, appID, data, datatypes.JSON(meta)); err != nil {
			log.WithError(err).Error("reparse: failed to store parse results")
			run.Status = models.ParseRunFailed
			run.Error = err.Error()
		} else {
			log.WithField("score", data.Score).Info("reparse: derived fields updated")
		}
	}

	if err := p.ParseRuns.Insert(ctx, run); err != nil {
		log.WithError(err).Warn("reparse: failed to record parse run")
	}
}
