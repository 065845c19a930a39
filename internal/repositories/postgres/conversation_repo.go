package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/saalabs/saa-portfolio/internal/models"
)

type ConversationRepo interface {
	// AppendMessages atomically appends entries to the (userID, assistantType)
	// conversation, creating it when absent. Either all entries land or none.
	AppendMessages(ctx context.Context, userID, assistantType string, entries []models.Message, at time.Time) error
	ListByUser(ctx context.Context, userID string) ([]models.Conversation, error)
}

type conversationRepo struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepo{db: db}
}

func (r *conversationRepo) AppendMessages(ctx context.Context, userID, assistantType string, entries []models.Message, at time.Time) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Idempotent create against the (user_id, assistant_type) unique
		// index; avoids the read-then-conditionally-write duplicate race.
		fresh := &models.Conversation{
			ID:            uuid.NewString(),
			UserID:        userID,
			AssistantType: assistantType,
			Messages:      datatypes.JSON([]byte("[]")),
			StartedAt:     at,
			LastMessageAt: at,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "assistant_type"}},
			DoNothing: true,
		}).Create(fresh).Error; err != nil {
			return err
		}

		q := tx.Where("user_id = ? AND assistant_type = ?", userID, assistantType)
		if tx.Dialector.Name() == "postgres" {
			// sqlite (tests) has no row locks; its writers serialize anyway.
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var row models.Conversation
		if err := q.Take(&row).Error; err != nil {
			return err
		}

		var msgs []models.Message
		if len(row.Messages) > 0 {
			if err := json.Unmarshal(row.Messages, &msgs); err != nil {
				return err
			}
		}
		msgs = append(msgs, entries...)

		raw, err := json.Marshal(msgs)
		if err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", row.ID).
			Updates(map[string]any{
				"messages":        datatypes.JSON(raw),
				"last_message_at": at,
			}).Error
	})
}

func (r *conversationRepo) ListByUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	var rows []models.Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_message_at DESC").
		Find(&rows).Error
	return rows, err
}
