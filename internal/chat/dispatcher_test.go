package chat

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saalabs/saa-portfolio/internal/assistants"
	"github.com/saalabs/saa-portfolio/internal/models"
)

type recordedEvent struct {
	SessionID string
	Type      string
	Fields    map[string]any
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *fakeBroadcaster) Publish(_ context.Context, sessionID, eventType string, fields map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{SessionID: sessionID, Type: eventType, Fields: fields})
	return nil
}

func (b *fakeBroadcaster) byType(eventType string) []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedEvent
	for _, e := range b.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (b *fakeBroadcaster) all() []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedEvent(nil), b.events...)
}

type fakeAssistant struct {
	typ     models.AssistantType
	result  *assistants.Result
	err     error
	block   chan struct{} // when set, Invoke waits for ctx or close
	calls   atomic.Int64
	mu      sync.Mutex
	lastQ   assistants.Query
}

func (a *fakeAssistant) Type() models.AssistantType { return a.typ }

func (a *fakeAssistant) Invoke(ctx context.Context, q assistants.Query) (*assistants.Result, error) {
	a.calls.Add(1)
	a.mu.Lock()
	a.lastQ = q
	a.mu.Unlock()
	if a.block != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-a.block:
		}
	}
	return a.result, a.err
}

func (a *fakeAssistant) lastQuery() assistants.Query {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastQ
}

type persistedExchange struct {
	UserID    string
	Type      models.AssistantType
	Message   string
	Payload   map[string]any
}

type fakeSink struct {
	mu        sync.Mutex
	exchanges []persistedExchange
	err       error
}

func (s *fakeSink) AppendExchange(_ context.Context, userID string, typ models.AssistantType, msg string, payload map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.exchanges = append(s.exchanges, persistedExchange{UserID: userID, Type: typ, Message: msg, Payload: payload})
	return nil
}

func (s *fakeSink) all() []persistedExchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]persistedExchange(nil), s.exchanges...)
}

type fakeArchive struct {
	mu    sync.Mutex
	snaps []*models.AnalysisSnapshot
}

func (a *fakeArchive) Save(_ context.Context, snap *models.AnalysisSnapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snaps = append(a.snaps, snap)
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func testContext() *models.PortfolioContext {
	return &models.PortfolioContext{
		PortfolioID:       "p-1",
		TotalValue:        decimal.NewFromInt(10000),
		Currency:          "EUR",
		RiskTolerance:     "aggressive",
		InvestmentHorizon: 10,
		ExcludedAssets:    []string{"TSLA"},
		Holdings: []models.HoldingSnapshot{
			{Symbol: "VWCE", Quantity: decimal.NewFromInt(50), CurrentValue: decimal.NewFromInt(6000), AssetClass: "equity"},
			{Symbol: "AGGH", Quantity: decimal.NewFromInt(40), CurrentValue: decimal.NewFromInt(4000), AssetClass: "fixed_income"},
		},
	}
}

func TestDispatchNoPortfolioShortCircuits(t *testing.T) {
	b := &fakeBroadcaster{}
	sink := &fakeSink{}
	analyst := &fakeAssistant{typ: models.AssistantAnalyst}
	d := NewDispatcher([]assistants.Assistant{analyst}, b, sink, nil, quietLogger(), 0)

	d.Dispatch(context.Background(), "s-1", "u-1", models.AssistantAnalyst, "analyze this", nil)

	assert.Equal(t, int64(0), analyst.calls.Load(), "assistant must not be invoked without a portfolio")

	responses := b.byType("assistant_response")
	require.Len(t, responses, 1)
	payload, ok := responses[0].Fields["response"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "no_portfolio", payload["status"])
	assert.Equal(t, "Please select or create a portfolio first to begin analysis.", payload["analysis"])

	exchanges := sink.all()
	require.Len(t, exchanges, 1)
	assert.Equal(t, "analyze this", exchanges[0].Message)
}

func TestDispatchNoPortfolioOptimizerWording(t *testing.T) {
	b := &fakeBroadcaster{}
	sink := &fakeSink{}
	opt := &fakeAssistant{typ: models.AssistantOptimizer}
	d := NewDispatcher([]assistants.Assistant{opt}, b, sink, nil, quietLogger(), 0)

	d.Dispatch(context.Background(), "s-1", "u-1", models.AssistantOptimizer, "optimize", nil)

	responses := b.byType("assistant_response")
	require.Len(t, responses, 1)
	payload := responses[0].Fields["response"].(map[string]any)
	assert.Equal(t, "Please select or create a portfolio first to begin optimization.", payload["optimization"])
}

func TestDispatchUnknownAssistantType(t *testing.T) {
	b := &fakeBroadcaster{}
	sink := &fakeSink{}
	d := NewDispatcher(nil, b, sink, nil, quietLogger(), 0)

	d.Dispatch(context.Background(), "s-1", "u-1", models.AssistantType("sorcerer"), "hi", testContext())

	errs := b.byType("error")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Fields["message"], "sorcerer")
	assert.Empty(t, b.byType("assistant_response"))
	assert.Empty(t, sink.all(), "nothing persists for an unknown assistant")
}

func TestDispatchHandlerError(t *testing.T) {
	b := &fakeBroadcaster{}
	sink := &fakeSink{}
	analyst := &fakeAssistant{typ: models.AssistantAnalyst, err: errors.New("upstream exploded")}
	d := NewDispatcher([]assistants.Assistant{analyst}, b, sink, nil, quietLogger(), 0)

	d.Dispatch(context.Background(), "s-1", "u-1", models.AssistantAnalyst, "hi", testContext())

	errs := b.byType("error")
	require.Len(t, errs, 1)
	assert.Equal(t, "Error processing message: upstream exploded", errs[0].Fields["message"])
	assert.Empty(t, b.byType("assistant_response"))
	assert.Empty(t, sink.all(), "failed exchanges are not persisted")
}

func TestDispatchSuccessOrderingAndPersistence(t *testing.T) {
	b := &fakeBroadcaster{}
	sink := &fakeSink{}
	payload := map[string]any{"status": "success", "analysis": "looks fine"}
	analyst := &fakeAssistant{
		typ:    models.AssistantAnalyst,
		result: &assistants.Result{Status: assistants.StatusSuccess, Payload: payload},
	}
	archive := &fakeArchive{}
	d := NewDispatcher([]assistants.Assistant{analyst}, b, sink, archive, quietLogger(), 0)

	d.Dispatch(context.Background(), "s-1", "u-1", models.AssistantAnalyst, "how risky am I", testContext())

	events := b.all()
	require.Len(t, events, 2)
	assert.Equal(t, "assistant_typing", events[0].Type, "typing always precedes the response")
	assert.Equal(t, "assistant_response", events[1].Type)
	assert.Equal(t, "analyst", events[1].Fields["assistant"])
	assert.NotEmpty(t, events[1].Fields["timestamp"])

	exchanges := sink.all()
	require.Len(t, exchanges, 1)
	assert.Equal(t, "u-1", exchanges[0].UserID)
	assert.Equal(t, payload, exchanges[0].Payload)

	require.Len(t, archive.snaps, 1)
	assert.Equal(t, "p-1", archive.snaps[0].PortfolioID)
	assert.NotEmpty(t, archive.snaps[0].SnapshotID)
	assert.True(t, archive.snaps[0].ExpiresAt.After(archive.snaps[0].CreatedAt))
}

func TestDispatchFailedStatusIsPersistedButNotArchived(t *testing.T) {
	b := &fakeBroadcaster{}
	sink := &fakeSink{}
	payload := map[string]any{"status": "failed", "error": "model declined"}
	analyst := &fakeAssistant{
		typ:    models.AssistantAnalyst,
		result: &assistants.Result{Status: assistants.StatusFailed, Payload: payload},
	}
	archive := &fakeArchive{}
	d := NewDispatcher([]assistants.Assistant{analyst}, b, sink, archive, quietLogger(), 0)

	d.Dispatch(context.Background(), "s-1", "u-1", models.AssistantAnalyst, "hi", testContext())

	require.Len(t, b.byType("assistant_response"), 1)
	require.Len(t, sink.all(), 1)
	assert.Empty(t, archive.snaps, "only successful results are archived")
}

func TestDispatchDerivesOptimizerConstraints(t *testing.T) {
	b := &fakeBroadcaster{}
	sink := &fakeSink{}
	opt := &fakeAssistant{
		typ:    models.AssistantOptimizer,
		result: &assistants.Result{Status: assistants.StatusSuccess, Payload: map[string]any{"status": "success"}},
	}
	d := NewDispatcher([]assistants.Assistant{opt}, b, sink, nil, quietLogger(), 0)

	d.Dispatch(context.Background(), "s-1", "u-1", models.AssistantOptimizer, "rebalance", testContext())

	q := opt.lastQuery()
	require.NotNil(t, q.Constraints)
	assert.Equal(t, "aggressive", q.Constraints.RiskTolerance)
	assert.Equal(t, 10, q.Constraints.InvestmentHorizon)
	assert.Equal(t, []string{"TSLA"}, q.Constraints.ExcludedAssets)
}

func TestDispatchConstraintDefaults(t *testing.T) {
	b := &fakeBroadcaster{}
	sink := &fakeSink{}
	opt := &fakeAssistant{
		typ:    models.AssistantOptimizer,
		result: &assistants.Result{Status: assistants.StatusSuccess, Payload: map[string]any{"status": "success"}},
	}
	d := NewDispatcher([]assistants.Assistant{opt}, b, sink, nil, quietLogger(), 0)

	pctx := &models.PortfolioContext{PortfolioID: "p-2"}
	d.Dispatch(context.Background(), "s-1", "u-1", models.AssistantOptimizer, "rebalance", pctx)

	q := opt.lastQuery()
	require.NotNil(t, q.Constraints)
	assert.Equal(t, "moderate", q.Constraints.RiskTolerance)
	assert.Equal(t, 5, q.Constraints.InvestmentHorizon)
}

func TestDispatchAnalystGetsNoConstraints(t *testing.T) {
	b := &fakeBroadcaster{}
	sink := &fakeSink{}
	analyst := &fakeAssistant{
		typ:    models.AssistantAnalyst,
		result: &assistants.Result{Status: assistants.StatusSuccess, Payload: map[string]any{"status": "success"}},
	}
	d := NewDispatcher([]assistants.Assistant{analyst}, b, sink, nil, quietLogger(), 0)

	d.Dispatch(context.Background(), "s-1", "u-1", models.AssistantAnalyst, "analyze", testContext())

	assert.Nil(t, analyst.lastQuery().Constraints)
}

func TestDispatchInvokeTimeout(t *testing.T) {
	b := &fakeBroadcaster{}
	sink := &fakeSink{}
	analyst := &fakeAssistant{typ: models.AssistantAnalyst, block: make(chan struct{})}
	d := NewDispatcher([]assistants.Assistant{analyst}, b, sink, nil, quietLogger(), 50*time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Dispatch(context.Background(), "s-1", "u-1", models.AssistantAnalyst, "hi", testContext())
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch did not return after invoke timeout")
	}

	errs := b.byType("error")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Fields["message"], "context deadline exceeded")
}

func TestDispatchConcurrentSameSession(t *testing.T) {
	b := &fakeBroadcaster{}
	sink := &fakeSink{}
	analyst := &fakeAssistant{
		typ:    models.AssistantAnalyst,
		result: &assistants.Result{Status: assistants.StatusSuccess, Payload: map[string]any{"status": "success"}},
	}
	d := NewDispatcher([]assistants.Assistant{analyst}, b, sink, nil, quietLogger(), 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Dispatch(context.Background(), "s-1", "u-1", models.AssistantAnalyst, "msg", testContext())
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(8), analyst.calls.Load())
	assert.Len(t, b.byType("assistant_response"), 8)
	assert.Len(t, sink.all(), 8)
}
