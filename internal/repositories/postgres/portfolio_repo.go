package postgres

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/saalabs/saa-portfolio/internal/models"
	"github.com/saalabs/saa-portfolio/internal/utils"
)

type PortfolioRepository interface {
	Create(ctx context.Context, p *models.Portfolio) error
	GetByID(ctx context.Context, id string) (*models.Portfolio, error)
	ListByUser(ctx context.Context, userID string) ([]models.Portfolio, error)
	AddHolding(ctx context.Context, h *models.Holding) error
	SetTotalValue(ctx context.Context, portfolioID string, total decimal.Decimal) error
}

type portfolioRepo struct {
	db *gorm.DB
}

func NewPortfolioRepo(db *gorm.DB) PortfolioRepository {
	return &portfolioRepo{db: db}
}

func (r *portfolioRepo) Create(ctx context.Context, p *models.Portfolio) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *portfolioRepo) GetByID(ctx context.Context, id string) (*models.Portfolio, error) {
	var p models.Portfolio
	err := r.db.WithContext(ctx).
		Preload("Holdings").
		Where("id = ?", id).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &p, err
}

func (r *portfolioRepo) ListByUser(ctx context.Context, userID string) ([]models.Portfolio, error) {
	var rows []models.Portfolio
	err := r.db.WithContext(ctx).
		Preload("Holdings").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *portfolioRepo) AddHolding(ctx context.Context, h *models.Holding) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *portfolioRepo) SetTotalValue(ctx context.Context, portfolioID string, total decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Portfolio{}).
		Where("id = ?", portfolioID).
		Update("total_value", total).Error
}
