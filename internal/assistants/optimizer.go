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

const optimizerFallbackPrompt = `You are a Senior Quantitative Analyst and Portfolio Optimization Specialist with 15+ years of experience.

Your expertise includes:
- Mean-variance optimization
- Black-Litterman model
- Risk parity strategies
- Factor-based portfolio construction
- Strategic and tactical asset allocation

Provide optimization recommendations using quantitative analysis and modern portfolio theory.
Use decimal comma (,) for all numerical outputs per user preference.`

// Optimizer produces allocation and rebalancing recommendations through its
// own dedicated model instance.
type Optimizer struct {
	llm          llms.Model
	maxTokens    int
	temperature  float64
	systemPrompt string

	cache    cache.Cache
	cacheTTL time.Duration
}

func NewOptimizer(cfg Config) (*Optimizer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("optimizer API key not configured")
	}
	cfg.applyDefaults()

	llm, err := anthropic.New(anthropic.WithToken(cfg.APIKey), anthropic.WithModel(cfg.Model))
	if err != nil {
		return nil, fmt.Errorf("create optimizer model: %w", err)
	}

	return &Optimizer{
		llm:          llm,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		systemPrompt: loadSystemPrompt(cfg.PromptPath, optimizerFallbackPrompt),
		cache:        cfg.Cache,
		cacheTTL:     cfg.CacheTTL,
	}, nil
}

func (o *Optimizer) Type() models.AssistantType { return models.AssistantOptimizer }

func (o *Optimizer) Invoke(ctx context.Context, q Query) (*Result, error) {
	if q.Context == nil {
		return nil, errors.New("optimizer: portfolio context is required")
	}

	key := cacheKey(models.AssistantOptimizer, q.Context, q.Text)
	if o.cache != nil {
		var cached map[string]any
		if hit, err := o.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return &Result{Status: StatusSuccess, Payload: cached, Timestamp: time.Now().UTC()}, nil
		}
	}

	prompt := o.buildPrompt(q)
	resp, err := o.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, o.systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, llms.WithMaxTokens(o.maxTokens), llms.WithTemperature(o.temperature))
	if err != nil {
		return nil, fmt.Errorf("optimizer completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("optimizer: empty completion")
	}

	now := time.Now().UTC()
	payload := map[string]any{
		"status":       string(StatusSuccess),
		"timestamp":    now.Format(time.RFC3339),
		"optimization": resp.Choices[0].Content,
	}
	if o.cache != nil {
		_ = o.cache.SetJSON(ctx, key, payload, o.cacheTTL)
	}
	return &Result{Status: StatusSuccess, Payload: payload, Timestamp: now}, nil
}

// CurrentAllocation aggregates holding values into asset-class percentages.
func CurrentAllocation(pctx *models.PortfolioContext) map[string]decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	allocation := make(map[string]decimal.Decimal)
	for _, h := range pctx.Holdings {
		class := h.AssetClass
		if class == "" {
			class = "other"
		}
		pct := decimal.Zero
		if !pctx.TotalValue.IsZero() {
			pct = h.CurrentValue.Div(pctx.TotalValue).Mul(hundred)
		}
		allocation[class] = allocation[class].Add(pct)
	}
	return allocation
}

func (o *Optimizer) buildPrompt(q Query) string {
	pctx := q.Context

	constraints := q.Constraints
	if constraints == nil {
		constraints = &models.Constraints{
			RiskTolerance:     pctx.RiskTolerance,
			InvestmentHorizon: pctx.InvestmentHorizon,
			ExcludedAssets:    pctx.ExcludedAssets,
		}
	}

	portfolioDoc := toJSON(map[string]any{
		"total_value":        pctx.TotalValue,
		"currency":           pctx.Currency,
		"current_allocation": CurrentAllocation(pctx),
		"holdings":           pctx.Holdings,
	})
	constraintsDoc := toJSON(constraints)

	if q.Text != "" {
		return fmt.Sprintf("Optimize the following portfolio based on this specific request: %s\n\nCurrent Portfolio:\n%s\n\nConstraints:\n%s", q.Text, portfolioDoc, constraintsDoc)
	}
	return fmt.Sprintf(`Perform portfolio optimization with the following inputs:

Current Portfolio:
%s

Constraints:
%s

Please provide:
1. Optimal asset allocation
2. Expected risk-return profile
3. Rebalancing recommendations
4. Implementation strategy
5. Risk considerations`, portfolioDoc, constraintsDoc)
}
