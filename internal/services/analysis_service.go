package services

import (
	"context"

	"github.com/saalabs/saa-portfolio/internal/models"
	mongorepo "github.com/saalabs/saa-portfolio/internal/repositories/mongo"
	"github.com/saalabs/saa-portfolio/internal/utils"
)

// AnalysisService archives successful assistant results and serves them back
// for the portfolio review screen. Snapshots expire server-side via a TTL
// index, so reads never filter on expiry themselves.
type AnalysisService interface {
	Save(ctx context.Context, snap *models.AnalysisSnapshot) error
	ListByPortfolio(ctx context.Context, portfolioID string, limit int64) ([]models.AnalysisSnapshot, error)
}

type analysisService struct {
	snapshots mongorepo.AnalysisRepository
}

func NewAnalysisService(snapshots mongorepo.AnalysisRepository) AnalysisService {
	return &analysisService{snapshots: snapshots}
}

func (s *analysisService) Save(ctx context.Context, snap *models.AnalysisSnapshot) error {
	const op = "AnalysisService.Save"

	if snap == nil || snap.SnapshotID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "snapshot_id is required", nil)
	}
	if err := s.snapshots.Insert(ctx, snap); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to store snapshot", err)
	}
	return nil
}

func (s *analysisService) ListByPortfolio(ctx context.Context, portfolioID string, limit int64) ([]models.AnalysisSnapshot, error) {
	const op = "AnalysisService.ListByPortfolio"

	if portfolioID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "portfolio_id is required", nil)
	}
	rows, err := s.snapshots.ListByPortfolio(ctx, portfolioID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list snapshots", err)
	}
	return rows, nil
}
