package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/saalabs/saa-portfolio/internal/models"
)

type AnalysisRepository interface {
	Insert(ctx context.Context, snap *models.AnalysisSnapshot) error
	ListByPortfolio(ctx context.Context, portfolioID string, limit int64) ([]models.AnalysisSnapshot, error)
}

type analysisRepo struct {
	col *mongo.Collection
}

func NewAnalysisRepo(db *mongo.Database) AnalysisRepository {
	return &analysisRepo{col: db.Collection("analysis_snapshots")}
}

func (r *analysisRepo) Insert(ctx context.Context, snap *models.AnalysisSnapshot) error {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, snap)
	return err
}

func (r *analysisRepo) ListByPortfolio(ctx context.Context, portfolioID string, limit int64) ([]models.AnalysisSnapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	cur, err := r.col.Find(ctx,
		bson.M{"portfolio_id": portfolioID},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.AnalysisSnapshot
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
