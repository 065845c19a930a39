package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/saalabs/saa-portfolio/internal/models"
	pgrepo "github.com/saalabs/saa-portfolio/internal/repositories/postgres"
	"github.com/saalabs/saa-portfolio/internal/utils"
)

type CreatePortfolioInput struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Currency          string   `json:"currency"`
	RiskTolerance     string   `json:"risk_tolerance"`
	InvestmentHorizon int      `json:"investment_horizon"`
	ExcludedAssets    []string `json:"excluded_assets"`
}

type AddHoldingInput struct {
	Symbol      string          `json:"symbol"`
	ISIN        string          `json:"isin"`
	Name        string          `json:"name"`
	Quantity    decimal.Decimal `json:"quantity"`
	AverageCost decimal.Decimal `json:"average_cost"`
	AssetType   string          `json:"asset_type"`
	AssetClass  string          `json:"asset_class"`
	Region      string          `json:"region"`
	Country     string          `json:"country"`
	Currency    string          `json:"currency"`
	Sector      string          `json:"sector"`
	Exchange    string          `json:"exchange"`
}

type PortfolioService interface {
	Create(ctx context.Context, userID string, in CreatePortfolioInput) (*models.Portfolio, error)
	Get(ctx context.Context, id string) (*models.Portfolio, error)
	ListByUser(ctx context.Context, userID string) ([]models.Portfolio, error)
	AddHolding(ctx context.Context, portfolioID string, in AddHoldingInput) (*models.Holding, error)
	// BuildContext snapshots a portfolio into the assistant-facing shape.
	BuildContext(ctx context.Context, portfolioID string) (*models.PortfolioContext, error)
}

type portfolioService struct {
	portfolios pgrepo.PortfolioRepository
}

func NewPortfolioService(portfolios pgrepo.PortfolioRepository) PortfolioService {
	return &portfolioService{portfolios: portfolios}
}

func (s *portfolioService) Create(ctx context.Context, userID string, in CreatePortfolioInput) (*models.Portfolio, error) {
	const op = "PortfolioService.Create"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if in.Name == "" {
		in.Name = "My Portfolio"
	}
	if in.Currency == "" {
		in.Currency = "EUR"
	}
	if !models.ValidCurrency(in.Currency) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "unsupported currency", nil)
	}
	if in.RiskTolerance == "" {
		in.RiskTolerance = "moderate"
	}
	if !models.ValidRiskTolerance(in.RiskTolerance) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid risk tolerance", nil)
	}
	if in.InvestmentHorizon == 0 {
		in.InvestmentHorizon = 5
	}
	if in.InvestmentHorizon < 1 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "investment horizon must be at least one year", nil)
	}

	p := &models.Portfolio{
		ID:                uuid.NewString(),
		UserID:            userID,
		Name:              in.Name,
		Description:       in.Description,
		Currency:          in.Currency,
		TotalValue:        decimal.Zero,
		CashBalance:       decimal.Zero,
		RiskTolerance:     in.RiskTolerance,
		InvestmentHorizon: in.InvestmentHorizon,
		ExcludedAssets:    pq.StringArray(in.ExcludedAssets),
	}
	if err := s.portfolios.Create(ctx, p); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create portfolio", err)
	}
	return p, nil
}

func (s *portfolioService) Get(ctx context.Context, id string) (*models.Portfolio, error) {
	const op = "PortfolioService.Get"

	p, err := s.portfolios.GetByID(ctx, id)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeNotFound, op, "portfolio not found", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load portfolio", err)
	}
	return p, nil
}

func (s *portfolioService) ListByUser(ctx context.Context, userID string) ([]models.Portfolio, error) {
	const op = "PortfolioService.ListByUser"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	rows, err := s.portfolios.ListByUser(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list portfolios", err)
	}
	return rows, nil
}

func (s *portfolioService) AddHolding(ctx context.Context, portfolioID string, in AddHoldingInput) (*models.Holding, error) {
	const op = "PortfolioService.AddHolding"

	if _, err := s.Get(ctx, portfolioID); err != nil {
		return nil, err
	}
	if in.Symbol == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "symbol is required", nil)
	}
	if !in.Quantity.IsPositive() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "quantity must be positive", nil)
	}
	if in.AverageCost.IsNegative() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "average cost cannot be negative", nil)
	}
	if in.AssetType == "" {
		in.AssetType = "stock"
	}
	if !models.ValidAssetType(in.AssetType) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid asset type", nil)
	}
	if in.Name == "" {
		in.Name = in.Symbol
	}

	// Until a live quote lands, mark at cost.
	h := &models.Holding{
		ID:           uuid.NewString(),
		PortfolioID:  portfolioID,
		Symbol:       in.Symbol,
		ISIN:         in.ISIN,
		Name:         in.Name,
		AssetType:    in.AssetType,
		AssetClass:   in.AssetClass,
		Quantity:     in.Quantity,
		AverageCost:  in.AverageCost,
		CurrentPrice: in.AverageCost,
		CurrentValue: in.Quantity.Mul(in.AverageCost),
		Region:       in.Region,
		Country:      in.Country,
		Currency:     in.Currency,
		Sector:       in.Sector,
		Exchange:     in.Exchange,
		LastUpdated:  time.Now().UTC(),
	}
	if err := s.portfolios.AddHolding(ctx, h); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to add holding", err)
	}

	if err := s.recomputeTotal(ctx, portfolioID); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *portfolioService) recomputeTotal(ctx context.Context, portfolioID string) error {
	const op = "PortfolioService.recomputeTotal"

	p, err := s.portfolios.GetByID(ctx, portfolioID)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to reload portfolio", err)
	}
	total := p.CashBalance
	for _, h := range p.Holdings {
		total = total.Add(h.CurrentValue)
	}
	if err := s.portfolios.SetTotalValue(ctx, portfolioID, total); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to update total value", err)
	}
	return nil
}

func (s *portfolioService) BuildContext(ctx context.Context, portfolioID string) (*models.PortfolioContext, error) {
	p, err := s.Get(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	pctx := &models.PortfolioContext{
		PortfolioID:       p.ID,
		TotalValue:        p.TotalValue,
		Currency:          p.Currency,
		RiskTolerance:     p.RiskTolerance,
		InvestmentHorizon: p.InvestmentHorizon,
		ExcludedAssets:    append([]string(nil), p.ExcludedAssets...),
		Holdings:          make([]models.HoldingSnapshot, 0, len(p.Holdings)),
	}
	for _, h := range p.Holdings {
		pctx.Holdings = append(pctx.Holdings, models.HoldingSnapshot{
			Symbol:       h.Symbol,
			ISIN:         h.ISIN,
			Name:         h.Name,
			Quantity:     h.Quantity,
			CurrentValue: h.CurrentValue,
			AssetType:    h.AssetType,
			AssetClass:   h.AssetClass,
		})
	}
	return pctx, nil
}
