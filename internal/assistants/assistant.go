package assistants

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/saalabs/saa-portfolio/internal/cache"
	"github.com/saalabs/saa-portfolio/internal/models"
)

type Status string

const (
	StatusSuccess     Status = "success"
	StatusFailed      Status = "failed"
	StatusNoPortfolio Status = "no_portfolio"
)

// Query is the uniform request every assistant accepts. Constraints is only
// populated for the optimizer, derived from the portfolio context by the
// dispatcher before delegating.
type Query struct {
	Text        string
	Context     *models.PortfolioContext
	Constraints *models.Constraints
}

// Result is what an assistant hands back. Payload is the assistant-specific
// body delivered to the client verbatim; the core never inspects it beyond
// passing it through.
type Result struct {
	Status    Status
	Payload   map[string]any
	Timestamp time.Time
}

// Assistant is the capability interface behind which the closed set of
// handler variants (analyst, optimizer) lives.
type Assistant interface {
	Type() models.AssistantType
	Invoke(ctx context.Context, q Query) (*Result, error)
}

// Config carries the per-assistant construction parameters. Each assistant
// gets its own API credential; a missing credential fails construction and is
// fatal at startup.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	PromptPath  string

	Cache    cache.Cache
	CacheTTL time.Duration
}

func (c *Config) applyDefaults() {
	if c.Model == "" {
		c.Model = "claude-3-opus-20240229"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 4096
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
}

// loadSystemPrompt reads the prompt file when configured and readable,
// otherwise falls back to the built-in prompt.
func loadSystemPrompt(path, fallback string) string {
	if path == "" {
		return fallback
	}
	b, err := os.ReadFile(path)
	if err != nil || len(b) == 0 {
		return fallback
	}
	return string(b)
}

// HoldingsFingerprint hashes the sorted holding symbols so responses can be
// memoized per portfolio composition. Order of holdings does not matter.
func HoldingsFingerprint(pctx *models.PortfolioContext) string {
	symbols := make([]string, 0, len(pctx.Holdings))
	for _, h := range pctx.Holdings {
		symbols = append(symbols, h.Symbol)
	}
	sort.Strings(symbols)
	sum := sha256.Sum256([]byte(strings.Join(symbols, ",")))
	return hex.EncodeToString(sum[:])
}

// cacheKey identifies one memoized response: portfolio, holdings composition
// and the exact query all participate.
func cacheKey(typ models.AssistantType, pctx *models.PortfolioContext, query string) string {
	qsum := sha256.Sum256([]byte(query))
	return "assistant:" + string(typ) + ":" + pctx.PortfolioID + ":" +
		HoldingsFingerprint(pctx) + ":" + hex.EncodeToString(qsum[:16])
}

func toJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
