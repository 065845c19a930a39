package models

import (
	"github.com/shopspring/decimal"
)

// AssistantType is the closed set of chat assistants.
type AssistantType string

const (
	AssistantAnalyst   AssistantType = "analyst"
	AssistantOptimizer AssistantType = "optimizer"
)

func (t AssistantType) Known() bool {
	return t == AssistantAnalyst || t == AssistantOptimizer
}

// PortfolioContext is the read-only snapshot handed to an assistant. It is
// assembled fresh per chat message and never cached across requests.
type PortfolioContext struct {
	PortfolioID       string            `json:"portfolio_id"`
	TotalValue        decimal.Decimal   `json:"total_value"`
	Currency          string            `json:"currency"`
	RiskTolerance     string            `json:"risk_tolerance"`
	InvestmentHorizon int               `json:"investment_horizon"`
	ExcludedAssets    []string          `json:"excluded_assets,omitempty"`
	Holdings          []HoldingSnapshot `json:"holdings"`
}

type HoldingSnapshot struct {
	Symbol       string          `json:"symbol"`
	ISIN         string          `json:"isin,omitempty"`
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity"`
	CurrentValue decimal.Decimal `json:"current_value"`
	AssetType    string          `json:"asset_type"`
	AssetClass   string          `json:"asset_class"`
}

// Constraints is derived from the portfolio context before delegating to the
// optimizer.
type Constraints struct {
	RiskTolerance     string   `json:"risk_tolerance"`
	InvestmentHorizon int      `json:"investment_horizon"`
	ExcludedAssets    []string `json:"excluded_assets"`
}
