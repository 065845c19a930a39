package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/piquette/finance-go/equity"
	"github.com/piquette/finance-go/quote"
	"github.com/sirupsen/logrus"

	"github.com/saalabs/saa-portfolio/internal/cache"
	"github.com/saalabs/saa-portfolio/internal/utils"
)

const (
	quoteCacheTTL    = 15 * time.Minute
	alphaVantageBase = "https://www.alphavantage.co"
)

// Major indices surfaced on the dashboard.
var marketIndices = map[string]string{
	"^GSPC":  "S&P 500",
	"^DJI":   "Dow Jones",
	"^IXIC":  "NASDAQ",
	"^FTSE":  "FTSE 100",
	"^GDAXI": "DAX",
	"^N225":  "Nikkei 225",
}

type AssetQuote struct {
	Symbol           string    `json:"symbol"`
	Name             string    `json:"name"`
	CurrentPrice     float64   `json:"current_price"`
	PreviousClose    float64   `json:"previous_close"`
	Change           float64   `json:"change"`
	ChangePercent    float64   `json:"change_percent"`
	Volume           int64     `json:"volume"`
	MarketCap        int64     `json:"market_cap,omitempty"`
	Currency         string    `json:"currency,omitempty"`
	Exchange         string    `json:"exchange,omitempty"`
	QuoteType        string    `json:"quote_type,omitempty"`
	FiftyTwoWeekHigh float64   `json:"fifty_two_week_high,omitempty"`
	FiftyTwoWeekLow  float64   `json:"fifty_two_week_low,omitempty"`
	Source           string    `json:"source"`
	Timestamp        time.Time `json:"timestamp"`
}

type IndexQuote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Value         float64 `json:"value"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
}

type MarketIndicators struct {
	Indices   map[string]IndexQuote `json:"indices"`
	Timestamp time.Time             `json:"timestamp"`
}

type MarketDataService interface {
	GetQuote(ctx context.Context, symbol string) (*AssetQuote, error)
	SearchAssets(ctx context.Context, query string) ([]AssetQuote, error)
	Indicators(ctx context.Context) (*MarketIndicators, error)
}

type marketDataService struct {
	cache           cache.Cache
	http            *resty.Client
	alphaVantageKey string
	log             *logrus.Logger
}

func NewMarketDataService(c cache.Cache, alphaVantageKey string, log *logrus.Logger) MarketDataService {
	return &marketDataService{
		cache:           c,
		http:            resty.New().SetBaseURL(alphaVantageBase).SetTimeout(10 * time.Second),
		alphaVantageKey: alphaVantageKey,
		log:             log,
	}
}

func (s *marketDataService) GetQuote(ctx context.Context, symbol string) (*AssetQuote, error) {
	const op = "MarketDataService.GetQuote"

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "symbol is required", nil)
	}

	key := "market:quote:" + symbol
	if s.cache != nil {
		var cached AssetQuote
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	aq, err := s.fetchYahoo(symbol)
	if err != nil {
		s.log.WithError(err).WithField("symbol", symbol).Warn("yahoo quote failed, trying fallback")
		aq, err = s.fetchAlphaVantage(ctx, symbol)
	}
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "no quote available for "+symbol, err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, aq, quoteCacheTTL); err != nil {
			s.log.WithError(err).Warn("failed to cache quote")
		}
	}
	return aq, nil
}

func (s *marketDataService) fetchYahoo(symbol string) (*AssetQuote, error) {
	q, err := equity.Get(symbol)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, utils.ErrNotFound
	}
	name := q.ShortName
	if name == "" {
		name = symbol
	}
	return &AssetQuote{
		Symbol:           symbol,
		Name:             name,
		CurrentPrice:     q.RegularMarketPrice,
		PreviousClose:    q.RegularMarketPreviousClose,
		Change:           q.RegularMarketChange,
		ChangePercent:    q.RegularMarketChangePercent,
		Volume:           int64(q.RegularMarketVolume),
		MarketCap:        q.MarketCap,
		Currency:         q.CurrencyID,
		Exchange:         q.FullExchangeName,
		QuoteType:        string(q.QuoteType),
		FiftyTwoWeekHigh: q.FiftyTwoWeekHigh,
		FiftyTwoWeekLow:  q.FiftyTwoWeekLow,
		Source:           "yahoo",
		Timestamp:        time.Now().UTC(),
	}, nil
}

type alphaVantageQuote struct {
	GlobalQuote struct {
		Symbol        string `json:"01. symbol"`
		Price         string `json:"05. price"`
		Volume        string `json:"06. volume"`
		PreviousClose string `json:"08. previous close"`
		Change        string `json:"09. change"`
		ChangePercent string `json:"10. change percent"`
	} `json:"Global Quote"`
}

func (s *marketDataService) fetchAlphaVantage(ctx context.Context, symbol string) (*AssetQuote, error) {
	const op = "MarketDataService.fetchAlphaVantage"

	if s.alphaVantageKey == "" {
		return nil, utils.E(utils.CodeUnavailable, op, "fallback provider not configured", nil)
	}

	var out alphaVantageQuote
	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": "GLOBAL_QUOTE",
			"symbol":   symbol,
			"apikey":   s.alphaVantageKey,
		}).
		SetResult(&out).
		Get("/query")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, utils.E(utils.CodeUnavailable, op, "fallback provider returned "+resp.Status(), nil)
	}
	gq := out.GlobalQuote
	if gq.Symbol == "" || gq.Price == "" {
		return nil, utils.ErrNotFound
	}

	price, err := strconv.ParseFloat(gq.Price, 64)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "unparseable price", err)
	}
	prev, _ := strconv.ParseFloat(gq.PreviousClose, 64)
	change, _ := strconv.ParseFloat(gq.Change, 64)
	changePct, _ := strconv.ParseFloat(strings.TrimSuffix(gq.ChangePercent, "%"), 64)
	volume, _ := strconv.ParseInt(gq.Volume, 10, 64)

	return &AssetQuote{
		Symbol:        symbol,
		Name:          symbol,
		CurrentPrice:  price,
		PreviousClose: prev,
		Change:        change,
		ChangePercent: changePct,
		Volume:        volume,
		Source:        "alpha_vantage",
		Timestamp:     time.Now().UTC(),
	}, nil
}

// SearchAssets resolves a free-text query by treating it as a ticker.
// Anything that quotes is a match.
func (s *marketDataService) SearchAssets(ctx context.Context, query string) ([]AssetQuote, error) {
	const op = "MarketDataService.SearchAssets"

	query = strings.ToUpper(strings.TrimSpace(query))
	if query == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "query is required", nil)
	}

	aq, err := s.GetQuote(ctx, query)
	if err != nil {
		if utils.IsCode(err, utils.CodeUnavailable) {
			return []AssetQuote{}, nil
		}
		return nil, err
	}
	return []AssetQuote{*aq}, nil
}

func (s *marketDataService) Indicators(ctx context.Context) (*MarketIndicators, error) {
	const op = "MarketDataService.Indicators"

	key := "market:indicators"
	if s.cache != nil {
		var cached MarketIndicators
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	ind := &MarketIndicators{
		Indices:   make(map[string]IndexQuote, len(marketIndices)),
		Timestamp: time.Now().UTC(),
	}
	for symbol, name := range marketIndices {
		q, err := quote.Get(symbol)
		if err != nil || q == nil {
			s.log.WithField("symbol", symbol).Warn("index quote unavailable")
			continue
		}
		ind.Indices[symbol] = IndexQuote{
			Symbol:        symbol,
			Name:          name,
			Value:         q.RegularMarketPrice,
			Change:        q.RegularMarketChange,
			ChangePercent: q.RegularMarketChangePercent,
		}
	}
	if len(ind.Indices) == 0 {
		return nil, utils.E(utils.CodeUnavailable, op, "no index data available", nil)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, ind, quoteCacheTTL); err != nil {
			s.log.WithError(err).Warn("failed to cache indicators")
		}
	}
	return ind, nil
}
