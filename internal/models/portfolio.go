package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type RiskTolerance string

const (
	RiskConservative RiskTolerance = "conservative"
	RiskModerate     RiskTolerance = "moderate"
	RiskAggressive   RiskTolerance = "aggressive"
)

func ValidRiskTolerance(v string) bool {
	switch RiskTolerance(strings.ToLower(v)) {
	case RiskConservative, RiskModerate, RiskAggressive:
		return true
	}
	return false
}

var validAssetTypes = map[string]struct{}{
	"stock": {}, "bond": {}, "etf": {}, "fund": {}, "cash": {}, "commodity": {},
}

func ValidAssetType(v string) bool {
	_, ok := validAssetTypes[strings.ToLower(v)]
	return ok
}

var validCurrencies = map[string]struct{}{
	"EUR": {}, "USD": {}, "GBP": {}, "CHF": {}, "JPY": {},
}

func ValidCurrency(v string) bool {
	_, ok := validCurrencies[strings.ToUpper(v)]
	return ok
}

type User struct {
	ID           string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"column:email;type:text;uniqueIndex" json:"email"`
	Name         string    `gorm:"column:name;type:text" json:"name"`
	PasswordHash string    `gorm:"column:password_hash;type:text" json:"-"`
	Guest        bool      `gorm:"column:guest" json:"guest"`
	CreatedAt    time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (User) TableName() string { return "users" }

type Portfolio struct {
	ID          string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID      string `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	Name        string `gorm:"column:name;type:text" json:"name"`
	Description string `gorm:"column:description;type:text" json:"description"`

	Currency    string          `gorm:"column:currency;type:varchar(3);default:EUR" json:"currency"`
	TotalValue  decimal.Decimal `gorm:"column:total_value;type:numeric" json:"total_value"`
	CashBalance decimal.Decimal `gorm:"column:cash_balance;type:numeric" json:"cash_balance"`

	// Risk profile drives the optimizer constraints.
	RiskTolerance     string         `gorm:"column:risk_tolerance;type:varchar(20);default:moderate" json:"risk_tolerance"`
	InvestmentHorizon int            `gorm:"column:investment_horizon;default:5" json:"investment_horizon"` // years
	ExcludedAssets    pq.StringArray `gorm:"column:excluded_assets;type:text[]" json:"excluded_assets"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`

	Holdings []Holding `gorm:"foreignKey:PortfolioID" json:"holdings,omitempty"`
}

func (Portfolio) TableName() string { return "portfolios" }

type Holding struct {
	ID          string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	PortfolioID string `gorm:"column:portfolio_id;type:uuid;index" json:"portfolio_id"`

	Symbol     string `gorm:"column:symbol;type:varchar(20);index" json:"symbol"`
	ISIN       string `gorm:"column:isin;type:varchar(12)" json:"isin,omitempty"`
	Name       string `gorm:"column:name;type:text" json:"name"`
	AssetType  string `gorm:"column:asset_type;type:varchar(50)" json:"asset_type"`   // stock, bond, etf, fund, cash, commodity
	AssetClass string `gorm:"column:asset_class;type:varchar(50)" json:"asset_class"` // equity, fixed_income, alternative, cash

	Quantity     decimal.Decimal `gorm:"column:quantity;type:numeric" json:"quantity"`
	AverageCost  decimal.Decimal `gorm:"column:average_cost;type:numeric" json:"average_cost"`
	CurrentPrice decimal.Decimal `gorm:"column:current_price;type:numeric" json:"current_price"`
	CurrentValue decimal.Decimal `gorm:"column:current_value;type:numeric" json:"current_value"`

	Region   string `gorm:"column:region;type:varchar(50)" json:"region,omitempty"`
	Country  string `gorm:"column:country;type:varchar(50)" json:"country,omitempty"`
	Currency string `gorm:"column:currency;type:varchar(3)" json:"currency,omitempty"`
	Sector   string `gorm:"column:sector;type:varchar(100)" json:"sector,omitempty"`
	Exchange string `gorm:"column:exchange;type:varchar(50)" json:"exchange,omitempty"`

	LastUpdated time.Time `gorm:"column:last_updated;type:timestamptz" json:"last_updated"`
}

func (Holding) TableName() string { return "holdings" }
