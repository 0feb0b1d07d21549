package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ats-platform/ats-backend/internal/models"
)

type ParseRunRepository interface {
	Insert(ctx context.Context, run *models.ParseRun) error
	ListByApplication(ctx context.Context, applicationID int64, limit int64) ([]models.ParseRun, error)
}

type parseRunRepo struct {
	col *mongo.Collection
}

func NewParseRunRepo(db *mongo.Database) ParseRunRepository {
	return &parseRunRepo{col: db.Collection("parse_runs")}
}

func (r *parseRunRepo) Insert(ctx context.Context, run *models.ParseRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, run)
	return err
}

func (r *parseRunRepo) ListByApplication(ctx context.Context, applicationID int64, limit int64) ([]models.ParseRun, error) {
	if limit <= 0 {
		limit = 20
	}
	cur, err := r.col.Find(ctx,
		bson.M{"application_id": applicationID},
		options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}}).SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var runs []models.ParseRun
	if err := cur.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}
