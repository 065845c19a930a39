package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/saalabs/saa-portfolio/internal/assistants"
	"github.com/saalabs/saa-portfolio/internal/models"
)

// ConversationSink persists a completed exchange. Failures are best-effort
// from the dispatcher's point of view: the response already reached the
// client.
type ConversationSink interface {
	AppendExchange(ctx context.Context, userID string, assistantType models.AssistantType, userMessage string, assistantPayload map[string]any) error
}

// AnalysisArchive stores successful assistant results for later review.
type AnalysisArchive interface {
	Save(ctx context.Context, snap *models.AnalysisSnapshot) error
}

const defaultInvokeTimeout = 45 * time.Second

// Dispatcher routes one chat message to its assistant and streams the
// lifecycle (typing, response or error) back through the session's broadcast
// group. One Dispatch call runs per inbound message; callers spawn it and do
// not await completion. Concurrent dispatches on the same session may
// interleave; within a single dispatch the typing event always precedes the
// response or error event. Duplicate rapid sends are not de-duplicated here.
type Dispatcher struct {
	assistants    map[models.AssistantType]assistants.Assistant
	broadcast     Broadcaster
	conversations ConversationSink
	archive       AnalysisArchive // optional
	log           *logrus.Logger
	invokeTimeout time.Duration
	archiveTTL    time.Duration
}

func NewDispatcher(handlers []assistants.Assistant, b Broadcaster, sink ConversationSink, archive AnalysisArchive, log *logrus.Logger, invokeTimeout time.Duration) *Dispatcher {
	byType := make(map[models.AssistantType]assistants.Assistant, len(handlers))
	for _, h := range handlers {
		byType[h.Type()] = h
	}
	if log == nil {
		log = logrus.New()
	}
	if invokeTimeout <= 0 {
		invokeTimeout = defaultInvokeTimeout
	}
	return &Dispatcher{
		assistants:    byType,
		broadcast:     b,
		conversations: sink,
		archive:       archive,
		log:           log,
		invokeTimeout: invokeTimeout,
		archiveTTL:    30 * 24 * time.Hour,
	}
}

// Dispatch processes one chat message end to end. It is designed to run in
// its own goroutine on a context detached from the transport connection, so a
// client disconnect does not abort an in-flight assistant call; delivery to a
// group with no subscribers is simply a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, sessionID, userID string, typ models.AssistantType, message string, pctx *models.PortfolioContext) {
	log := d.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"user_id":    userID,
		"assistant":  typ,
	})

	// Typing feedback goes out before anything slow can happen.
	d.emit(ctx, sessionID, "assistant_typing", map[string]any{"assistant": string(typ)})

	handler, ok := d.assistants[typ]
	if !ok {
		d.emit(ctx, sessionID, "error", map[string]any{"message": "unknown assistant type: " + string(typ)})
		return
	}

	if pctx == nil {
		// Deterministic short-circuit, not an error.
		payload := noPortfolioPayload(typ)
		d.emitResponse(ctx, sessionID, typ, payload)
		d.persist(ctx, log, userID, typ, message, payload)
		return
	}

	q := assistants.Query{Text: message, Context: pctx}
	if typ == models.AssistantOptimizer {
		q.Constraints = deriveConstraints(pctx)
	}

	invokeCtx, cancel := context.WithTimeout(ctx, d.invokeTimeout)
	defer cancel()

	res, err := handler.Invoke(invokeCtx, q)
	if err != nil {
		log.WithError(err).Error("assistant invocation failed")
		d.emit(ctx, sessionID, "error", map[string]any{"message": "Error processing message: " + err.Error()})
		return
	}

	d.emitResponse(ctx, sessionID, typ, res.Payload)
	d.persist(ctx, log, userID, typ, message, res.Payload)

	if d.archive != nil && res.Status == assistants.StatusSuccess {
		snap := &models.AnalysisSnapshot{
			SnapshotID:    uuid.NewString(),
			UserID:        userID,
			PortfolioID:   pctx.PortfolioID,
			AssistantType: string(typ),
			Payload:       res.Payload,
			CreatedAt:     time.Now().UTC(),
			ExpiresAt:     time.Now().UTC().Add(d.archiveTTL),
		}
		if err := d.archive.Save(ctx, snap); err != nil {
			log.WithError(err).Warn("failed to archive analysis snapshot")
		}
	}
}

func (d *Dispatcher) emit(ctx context.Context, sessionID, eventType string, fields map[string]any) {
	if err := d.broadcast.Publish(ctx, sessionID, eventType, fields); err != nil {
		d.log.WithError(err).WithField("session_id", sessionID).Warn("broadcast publish failed")
	}
}

func (d *Dispatcher) emitResponse(ctx context.Context, sessionID string, typ models.AssistantType, payload map[string]any) {
	d.emit(ctx, sessionID, "assistant_response", map[string]any{
		"assistant": string(typ),
		"response":  payload,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// persist is best-effort: the client already has its response, so a store
// failure is reported but never surfaced as a delivery failure.
func (d *Dispatcher) persist(ctx context.Context, log *logrus.Entry, userID string, typ models.AssistantType, userMessage string, payload map[string]any) {
	if err := d.conversations.AppendExchange(ctx, userID, typ, userMessage, payload); err != nil {
		log.WithError(err).Error("failed to persist conversation exchange")
	}
}

func deriveConstraints(pctx *models.PortfolioContext) *models.Constraints {
	c := &models.Constraints{
		RiskTolerance:     pctx.RiskTolerance,
		InvestmentHorizon: pctx.InvestmentHorizon,
		ExcludedAssets:    pctx.ExcludedAssets,
	}
	if c.RiskTolerance == "" {
		c.RiskTolerance = string(models.RiskModerate)
	}
	if c.InvestmentHorizon <= 0 {
		c.InvestmentHorizon = 5
	}
	return c
}

func noPortfolioPayload(typ models.AssistantType) map[string]any {
	switch typ {
	case models.AssistantOptimizer:
		return map[string]any{
			"status":       string(assistants.StatusNoPortfolio),
			"optimization": "Please select or create a portfolio first to begin optimization.",
		}
	default:
		return map[string]any{
			"status":   string(assistants.StatusNoPortfolio),
			"analysis": "Please select or create a portfolio first to begin analysis.",
		}
	}
}
