package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/saalabs/saa-portfolio/internal/chat"
	"github.com/saalabs/saa-portfolio/internal/models"
	"github.com/saalabs/saa-portfolio/internal/services"
)

type WSHandler struct {
	registry   *chat.Registry
	dispatcher *chat.Dispatcher
	portfolios services.PortfolioService
	redis      *redis.Client
	log        *logrus.Logger
	upgrader   websocket.Upgrader
}

func NewWSHandler(registry *chat.Registry, dispatcher *chat.Dispatcher, portfolios services.PortfolioService, rdb *redis.Client, log *logrus.Logger) *WSHandler {
	return &WSHandler{
		registry:   registry,
		dispatcher: dispatcher,
		portfolios: portfolios,
		redis:      rdb,
		log:        log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsClientMsg struct {
	Type        string `json:"type"`
	Assistant   string `json:"assistant"`
	Message     string `json:"message"`
	PortfolioID string `json:"portfolio_id"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.writeText(b)
}

// ChatWS is the chat transport. Each connection registers under a logical
// session and forwards that session's broadcast group to the client; inbound
// chat messages are handed to the dispatcher and processed off-connection.
func (h *WSHandler) ChatWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}

	transportID := uuid.NewString()
	sessionID := h.registry.Connect(transportID, c.Query("session_id"))
	defer h.registry.Disconnect(transportID)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.redis.Subscribe(ctx, chat.SessionChannel(sessionID))
	defer pubsub.Close()

	// Ack goes straight to this connection, not through the group.
	if err := wc.writeJSON(gin.H{"type": "connected", "session_id": sessionID}); err != nil {
		return
	}

	log := h.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"user_id":    userID,
	})
	log.Info("chat connection opened")
	defer log.Info("chat connection closed")

	// reader: WS -> dispatcher
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}

			var msg wsClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				_ = wc.writeJSON(gin.H{"type": "error", "message": "invalid json"})
				continue
			}

			switch msg.Type {
			case "chat_message":
				h.handleChatMessage(sessionID, userID, msg, wc, log)
			case "ping":
				_ = wc.writeJSON(gin.H{"type": "pong"})
			default:
				_ = wc.writeJSON(gin.H{"type": "error", "message": "unknown message type"})
			}
		}
	}()

	// writer: Redis Pub/Sub -> WS
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		default:
			m, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				return
			}
			if werr := wc.writeText([]byte(m.Payload)); werr != nil {
				return
			}
		}
	}
}

func (h *WSHandler) handleChatMessage(sessionID, userID string, msg wsClientMsg, wc *wsConn, log *logrus.Entry) {
	if msg.Message == "" {
		_ = wc.writeJSON(gin.H{"type": "error", "message": "message is required"})
		return
	}
	if msg.Assistant == "" {
		msg.Assistant = string(models.AssistantAnalyst)
	}

	// Context assembly happens per message so the assistant always sees
	// current holdings. A vanished or absent portfolio is the no-portfolio
	// path, not an error.
	var pctx *models.PortfolioContext
	if msg.PortfolioID != "" {
		built, err := h.portfolios.BuildContext(context.Background(), msg.PortfolioID)
		if err == nil {
			pctx = built
		} else {
			log.WithError(err).WithField("portfolio_id", msg.PortfolioID).Warn("portfolio context unavailable")
		}
	}

	// Detached from the connection: a disconnect mid-flight must not cancel
	// the assistant call.
	go h.dispatcher.Dispatch(context.Background(), sessionID, userID, models.AssistantType(msg.Assistant), msg.Message, pctx)
}
