package assistants

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saalabs/saa-portfolio/internal/models"
)

func snapshotContext(symbols ...string) *models.PortfolioContext {
	pctx := &models.PortfolioContext{
		PortfolioID: "p-1",
		TotalValue:  decimal.NewFromInt(1000),
		Currency:    "EUR",
	}
	for _, s := range symbols {
		pctx.Holdings = append(pctx.Holdings, models.HoldingSnapshot{
			Symbol:       s,
			CurrentValue: decimal.NewFromInt(100),
			AssetClass:   "equity",
		})
	}
	return pctx
}

func TestHoldingsFingerprintOrderInsensitive(t *testing.T) {
	a := HoldingsFingerprint(snapshotContext("VWCE", "AGGH", "IWDA"))
	b := HoldingsFingerprint(snapshotContext("IWDA", "VWCE", "AGGH"))
	assert.Equal(t, a, b)
}

func TestHoldingsFingerprintCompositionSensitive(t *testing.T) {
	a := HoldingsFingerprint(snapshotContext("VWCE", "AGGH"))
	b := HoldingsFingerprint(snapshotContext("VWCE"))
	assert.NotEqual(t, a, b)
}

func TestCacheKeyVariesByQueryAndPortfolio(t *testing.T) {
	pctx := snapshotContext("VWCE")

	base := cacheKey(models.AssistantAnalyst, pctx, "how risky am I")
	assert.Equal(t, base, cacheKey(models.AssistantAnalyst, pctx, "how risky am I"))

	assert.NotEqual(t, base, cacheKey(models.AssistantAnalyst, pctx, "different question"))
	assert.NotEqual(t, base, cacheKey(models.AssistantOptimizer, pctx, "how risky am I"))

	other := snapshotContext("VWCE")
	other.PortfolioID = "p-2"
	assert.NotEqual(t, base, cacheKey(models.AssistantAnalyst, other, "how risky am I"))
}

func TestLoadSystemPromptFallbacks(t *testing.T) {
	assert.Equal(t, "fallback", loadSystemPrompt("", "fallback"))
	assert.Equal(t, "fallback", loadSystemPrompt("/nonexistent/prompt.txt", "fallback"))

	path := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("You are a test assistant."), 0o600))
	assert.Equal(t, "You are a test assistant.", loadSystemPrompt(path, "fallback"))
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{APIKey: "k"}
	cfg.applyDefaults()
	assert.Equal(t, "claude-3-opus-20240229", cfg.Model)
	assert.Equal(t, 4096, cfg.MaxTokens)
	assert.InDelta(t, 0.7, cfg.Temperature, 1e-9)
	assert.Positive(t, cfg.CacheTTL)
}

func TestNewAssistantsRequireKey(t *testing.T) {
	_, err := NewAnalyst(Config{})
	require.Error(t, err)
	_, err = NewOptimizer(Config{})
	require.Error(t, err)
}

func TestCurrentAllocationByAssetClass(t *testing.T) {
	pctx := &models.PortfolioContext{
		TotalValue: decimal.NewFromInt(10000),
		Holdings: []models.HoldingSnapshot{
			{Symbol: "VWCE", CurrentValue: decimal.NewFromInt(6000), AssetClass: "equity"},
			{Symbol: "IWDA", CurrentValue: decimal.NewFromInt(1000), AssetClass: "equity"},
			{Symbol: "AGGH", CurrentValue: decimal.NewFromInt(3000), AssetClass: "fixed_income"},
		},
	}

	alloc := CurrentAllocation(pctx)
	require.Len(t, alloc, 2)
	assert.True(t, alloc["equity"].Equal(decimal.NewFromInt(70)))
	assert.True(t, alloc["fixed_income"].Equal(decimal.NewFromInt(30)))
}

func TestCurrentAllocationZeroTotalAndMissingClass(t *testing.T) {
	pctx := &models.PortfolioContext{
		Holdings: []models.HoldingSnapshot{
			{Symbol: "XYZ", CurrentValue: decimal.NewFromInt(100)},
		},
	}

	alloc := CurrentAllocation(pctx)
	require.Contains(t, alloc, "other")
	assert.True(t, alloc["other"].IsZero())
}
