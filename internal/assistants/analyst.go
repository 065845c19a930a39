package assistants

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/saalabs/saa-portfolio/internal/cache"
	"github.com/saalabs/saa-portfolio/internal/models"
)

const analystFallbackPrompt = `You are a Senior Portfolio Analyst specializing in portfolio structure decomposition and risk analysis.

Your expertise includes:
- Fund look-through analysis
- Asset allocation breakdown
- Geographic and currency exposure analysis
- Risk metrics calculation (VaR, Sharpe Ratio, etc.)
- Portfolio diversification assessment

Provide detailed analysis using German financial standards and terminology.
Use comma as decimal separator in all numerical outputs.`

// Analyst answers portfolio structure and risk questions through its own
// dedicated model instance.
type Analyst struct {
	llm          llms.Model
	maxTokens    int
	temperature  float64
	systemPrompt string

	cache    cache.Cache
	cacheTTL time.Duration
}

func NewAnalyst(cfg Config) (*Analyst, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("analyst API key not configured")
	}
	cfg.applyDefaults()

	llm, err := anthropic.New(anthropic.WithToken(cfg.APIKey), anthropic.WithModel(cfg.Model))
	if err != nil {
		return nil, fmt.Errorf("create analyst model: %w", err)
	}

	return &Analyst{
		llm:          llm,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		systemPrompt: loadSystemPrompt(cfg.PromptPath, analystFallbackPrompt),
		cache:        cfg.Cache,
		cacheTTL:     cfg.CacheTTL,
	}, nil
}

func (a *Analyst) Type() models.AssistantType { return models.AssistantAnalyst }

func (a *Analyst) Invoke(ctx context.Context, q Query) (*Result, error) {
	if q.Context == nil {
		return nil, errors.New("analyst: portfolio context is required")
	}

	key := cacheKey(models.AssistantAnalyst, q.Context, q.Text)
	if a.cache != nil {
		var cached map[string]any
		if hit, err := a.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return &Result{Status: StatusSuccess, Payload: cached, Timestamp: time.Now().UTC()}, nil
		}
	}

	prompt := a.buildPrompt(q)
	resp, err := a.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, a.systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, llms.WithMaxTokens(a.maxTokens), llms.WithTemperature(a.temperature))
	if err != nil {
		return nil, fmt.Errorf("analyst completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("analyst: empty completion")
	}

	now := time.Now().UTC()
	payload := map[string]any{
		"status":    string(StatusSuccess),
		"timestamp": now.Format(time.RFC3339),
		"analysis":  resp.Choices[0].Content,
	}
	if a.cache != nil {
		_ = a.cache.SetJSON(ctx, key, payload, a.cacheTTL)
	}
	return &Result{Status: StatusSuccess, Payload: payload, Timestamp: now}, nil
}

type analystHolding struct {
	models.HoldingSnapshot
	Percentage decimal.Decimal `json:"percentage"`
}

type analystContext struct {
	PortfolioID string           `json:"portfolio_id"`
	TotalValue  decimal.Decimal  `json:"total_value"`
	Currency    string           `json:"currency"`
	Holdings    []analystHolding `json:"holdings"`
	Metadata    map[string]any   `json:"metadata"`
}

func (a *Analyst) buildPrompt(q Query) string {
	pctx := q.Context
	hundred := decimal.NewFromInt(100)

	holdings := make([]analystHolding, 0, len(pctx.Holdings))
	for _, h := range pctx.Holdings {
		pct := decimal.Zero
		if !pctx.TotalValue.IsZero() {
			pct = h.CurrentValue.Div(pctx.TotalValue).Mul(hundred)
		}
		holdings = append(holdings, analystHolding{HoldingSnapshot: h, Percentage: pct})
	}

	doc := toJSON(analystContext{
		PortfolioID: pctx.PortfolioID,
		TotalValue:  pctx.TotalValue,
		Currency:    pctx.Currency,
		Holdings:    holdings,
		Metadata: map[string]any{
			"risk_tolerance":     pctx.RiskTolerance,
			"investment_horizon": pctx.InvestmentHorizon,
			"analysis_date":      time.Now().UTC().Format(time.RFC3339),
		},
	})

	if q.Text != "" {
		return fmt.Sprintf("Analyze the following portfolio and answer this specific question: %s\n\nPortfolio Data:\n%s", q.Text, doc)
	}
	return fmt.Sprintf(`Perform a comprehensive analysis of the following portfolio:

Portfolio Data:
%s

Please provide:
1. Asset allocation breakdown
2. Geographic diversification analysis
3. Currency exposure assessment
4. Risk metrics calculation
5. Key observations and recommendations`, doc)
}
