package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/saalabs/saa-portfolio/internal/models"
	pgrepo "github.com/saalabs/saa-portfolio/internal/repositories/postgres"
	"github.com/saalabs/saa-portfolio/internal/utils"
)

// historyWindow bounds how many trailing messages History returns per
// conversation.
const historyWindow = 10

// AssistantConversation is one history entry: the trailing message window for
// a single assistant type, oldest-first.
type AssistantConversation struct {
	Assistant   string           `json:"assistant"`
	Messages    []models.Message `json:"messages"`
	LastMessage *time.Time       `json:"last_message"`
}

type ConversationService interface {
	// AppendExchange records one completed request: a user entry followed by
	// an assistant entry, both or neither.
	AppendExchange(ctx context.Context, userID string, assistantType models.AssistantType, userMessage string, assistantPayload map[string]any) error
	History(ctx context.Context, userID string) ([]AssistantConversation, error)
}

type conversationService struct {
	convos pgrepo.ConversationRepo
}

func NewConversationService(convos pgrepo.ConversationRepo) ConversationService {
	return &conversationService{convos: convos}
}

func (s *conversationService) AppendExchange(ctx context.Context, userID string, assistantType models.AssistantType, userMessage string, assistantPayload map[string]any) error {
	const op = "ConversationService.AppendExchange"

	if userID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if !assistantType.Known() {
		return utils.E(utils.CodeInvalidArgument, op, "unknown assistant type", nil)
	}

	userTS := time.Now().UTC()
	assistantTS := time.Now().UTC()
	entries := []models.Message{
		{Role: models.RoleUser, Content: userMessage, Timestamp: userTS},
		{Role: models.RoleAssistant, Content: assistantPayload, Timestamp: assistantTS},
	}

	if err := s.convos.AppendMessages(ctx, userID, string(assistantType), entries, assistantTS); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to append exchange", err)
	}
	return nil
}

func (s *conversationService) History(ctx context.Context, userID string) ([]AssistantConversation, error) {
	const op = "ConversationService.History"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	rows, err := s.convos.ListByUser(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list conversations", err)
	}

	out := make([]AssistantConversation, 0, len(rows))
	for _, row := range rows {
		var msgs []models.Message
		if len(row.Messages) > 0 {
			if err := json.Unmarshal(row.Messages, &msgs); err != nil {
				return nil, utils.E(utils.CodeInternal, op, "corrupt conversation messages", err)
			}
		}
		if len(msgs) > historyWindow {
			msgs = msgs[len(msgs)-historyWindow:]
		}

		entry := AssistantConversation{
			Assistant: row.AssistantType,
			Messages:  msgs,
		}
		if !row.LastMessageAt.IsZero() {
			t := row.LastMessageAt
			entry.LastMessage = &t
		}
		out = append(out, entry)
	}
	return out, nil
}
