package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saalabs/saa-portfolio/internal/models"
	"github.com/saalabs/saa-portfolio/internal/utils"
)

// stubPortfolioRepo keeps everything in memory; holdings land on their
// portfolio so Preload-style reads behave like the real repo.
type stubPortfolioRepo struct {
	portfolios map[string]*models.Portfolio
}

func newStubPortfolioRepo() *stubPortfolioRepo {
	return &stubPortfolioRepo{portfolios: make(map[string]*models.Portfolio)}
}

func (r *stubPortfolioRepo) Create(_ context.Context, p *models.Portfolio) error {
	cp := *p
	r.portfolios[p.ID] = &cp
	return nil
}

func (r *stubPortfolioRepo) GetByID(_ context.Context, id string) (*models.Portfolio, error) {
	p, ok := r.portfolios[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *stubPortfolioRepo) ListByUser(_ context.Context, userID string) ([]models.Portfolio, error) {
	var out []models.Portfolio
	for _, p := range r.portfolios {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *stubPortfolioRepo) AddHolding(_ context.Context, h *models.Holding) error {
	p, ok := r.portfolios[h.PortfolioID]
	if !ok {
		return utils.ErrNotFound
	}
	p.Holdings = append(p.Holdings, *h)
	return nil
}

func (r *stubPortfolioRepo) SetTotalValue(_ context.Context, portfolioID string, total decimal.Decimal) error {
	p, ok := r.portfolios[portfolioID]
	if !ok {
		return utils.ErrNotFound
	}
	p.TotalValue = total
	return nil
}

func TestCreatePortfolioDefaults(t *testing.T) {
	svc := NewPortfolioService(newStubPortfolioRepo())

	p, err := svc.Create(context.Background(), "u-1", CreatePortfolioInput{})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "My Portfolio", p.Name)
	assert.Equal(t, "EUR", p.Currency)
	assert.Equal(t, "moderate", p.RiskTolerance)
	assert.Equal(t, 5, p.InvestmentHorizon)
	assert.True(t, p.TotalValue.IsZero())
}

func TestCreatePortfolioValidation(t *testing.T) {
	svc := NewPortfolioService(newStubPortfolioRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, "", CreatePortfolioInput{})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = svc.Create(ctx, "u-1", CreatePortfolioInput{Currency: "XAU"})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = svc.Create(ctx, "u-1", CreatePortfolioInput{RiskTolerance: "reckless"})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = svc.Create(ctx, "u-1", CreatePortfolioInput{InvestmentHorizon: -1})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestGetPortfolioNotFound(t *testing.T) {
	svc := NewPortfolioService(newStubPortfolioRepo())

	_, err := svc.Get(context.Background(), "nope")
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestAddHoldingMarksAtCostAndRecomputesTotal(t *testing.T) {
	svc := NewPortfolioService(newStubPortfolioRepo())
	ctx := context.Background()

	p, err := svc.Create(ctx, "u-1", CreatePortfolioInput{Name: "Main"})
	require.NoError(t, err)

	h, err := svc.AddHolding(ctx, p.ID, AddHoldingInput{
		Symbol:      "VWCE",
		Quantity:    decimal.NewFromInt(10),
		AverageCost: decimal.NewFromFloat(100.50),
		AssetType:   "etf",
		AssetClass:  "equity",
	})
	require.NoError(t, err)
	assert.Equal(t, "VWCE", h.Name, "name defaults to the symbol")
	assert.True(t, h.CurrentPrice.Equal(decimal.NewFromFloat(100.50)))
	assert.True(t, h.CurrentValue.Equal(decimal.NewFromFloat(1005)))

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalValue.Equal(decimal.NewFromFloat(1005)))

	_, err = svc.AddHolding(ctx, p.ID, AddHoldingInput{
		Symbol:      "AGGH",
		Quantity:    decimal.NewFromInt(20),
		AverageCost: decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	got, err = svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalValue.Equal(decimal.NewFromFloat(1105)))
}

func TestAddHoldingValidation(t *testing.T) {
	svc := NewPortfolioService(newStubPortfolioRepo())
	ctx := context.Background()

	p, err := svc.Create(ctx, "u-1", CreatePortfolioInput{})
	require.NoError(t, err)

	_, err = svc.AddHolding(ctx, p.ID, AddHoldingInput{Quantity: decimal.NewFromInt(1)})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument), "symbol required")

	_, err = svc.AddHolding(ctx, p.ID, AddHoldingInput{Symbol: "VWCE"})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument), "quantity must be positive")

	_, err = svc.AddHolding(ctx, p.ID, AddHoldingInput{
		Symbol: "VWCE", Quantity: decimal.NewFromInt(1), AssetType: "crypto-meme",
	})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument), "asset type must be known")

	_, err = svc.AddHolding(ctx, "missing", AddHoldingInput{Symbol: "VWCE", Quantity: decimal.NewFromInt(1)})
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestBuildContextSnapshotsPortfolio(t *testing.T) {
	svc := NewPortfolioService(newStubPortfolioRepo())
	ctx := context.Background()

	p, err := svc.Create(ctx, "u-1", CreatePortfolioInput{
		Name:              "Main",
		RiskTolerance:     "aggressive",
		InvestmentHorizon: 12,
		ExcludedAssets:    []string{"TSLA"},
	})
	require.NoError(t, err)

	_, err = svc.AddHolding(ctx, p.ID, AddHoldingInput{
		Symbol:      "VWCE",
		Name:        "Vanguard FTSE All-World",
		Quantity:    decimal.NewFromInt(10),
		AverageCost: decimal.NewFromInt(100),
		AssetType:   "etf",
		AssetClass:  "equity",
	})
	require.NoError(t, err)

	pctx, err := svc.BuildContext(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, pctx.PortfolioID)
	assert.Equal(t, "EUR", pctx.Currency)
	assert.Equal(t, "aggressive", pctx.RiskTolerance)
	assert.Equal(t, 12, pctx.InvestmentHorizon)
	assert.Equal(t, []string{"TSLA"}, pctx.ExcludedAssets)
	assert.True(t, pctx.TotalValue.Equal(decimal.NewFromInt(1000)))

	require.Len(t, pctx.Holdings, 1)
	assert.Equal(t, "VWCE", pctx.Holdings[0].Symbol)
	assert.Equal(t, "equity", pctx.Holdings[0].AssetClass)
	assert.True(t, pctx.Holdings[0].CurrentValue.Equal(decimal.NewFromInt(1000)))
}

func TestBuildContextNotFound(t *testing.T) {
	svc := NewPortfolioService(newStubPortfolioRepo())

	_, err := svc.BuildContext(context.Background(), "missing")
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}
