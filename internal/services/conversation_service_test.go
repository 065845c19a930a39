package services

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/saalabs/saa-portfolio/internal/models"
	pgrepo "github.com/saalabs/saa-portfolio/internal/repositories/postgres"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Conversation{}))
	return db
}

func newConversationService(t *testing.T) (ConversationService, *gorm.DB) {
	db := newTestDB(t)
	return NewConversationService(pgrepo.NewConversationRepo(db)), db
}

func TestAppendExchangeCreatesConversation(t *testing.T) {
	svc, db := newConversationService(t)
	ctx := context.Background()

	payload := map[string]any{"status": "success", "analysis": "all good"}
	require.NoError(t, svc.AppendExchange(ctx, "u-1", models.AssistantAnalyst, "how risky am I", payload))

	var row models.Conversation
	require.NoError(t, db.Take(&row).Error)
	assert.Equal(t, "u-1", row.UserID)
	assert.Equal(t, "analyst", row.AssistantType)
	assert.False(t, row.LastMessageAt.IsZero())

	var msgs []models.Message
	require.NoError(t, json.Unmarshal(row.Messages, &msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, "how risky am I", msgs[0].Content)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)
	assert.False(t, msgs[1].Timestamp.Before(msgs[0].Timestamp))
}

func TestAppendExchangeGrowsByTwo(t *testing.T) {
	svc, db := newConversationService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		msg := fmt.Sprintf("question %d", i)
		require.NoError(t, svc.AppendExchange(ctx, "u-1", models.AssistantAnalyst, msg, map[string]any{"status": "success"}))

		var row models.Conversation
		require.NoError(t, db.Take(&row).Error)
		var msgs []models.Message
		require.NoError(t, json.Unmarshal(row.Messages, &msgs))
		assert.Len(t, msgs, 2*(i+1))
	}
}

func TestAppendExchangeSingleRowPerPair(t *testing.T) {
	svc, db := newConversationService(t)
	ctx := context.Background()

	require.NoError(t, svc.AppendExchange(ctx, "u-1", models.AssistantAnalyst, "a", map[string]any{}))
	require.NoError(t, svc.AppendExchange(ctx, "u-1", models.AssistantAnalyst, "b", map[string]any{}))
	require.NoError(t, svc.AppendExchange(ctx, "u-1", models.AssistantOptimizer, "c", map[string]any{}))
	require.NoError(t, svc.AppendExchange(ctx, "u-2", models.AssistantAnalyst, "d", map[string]any{}))

	var count int64
	require.NoError(t, db.Model(&models.Conversation{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestAppendExchangeRejectsUnknownAssistant(t *testing.T) {
	svc, _ := newConversationService(t)

	err := svc.AppendExchange(context.Background(), "u-1", models.AssistantType("sorcerer"), "hi", nil)
	require.Error(t, err)
}

func TestHistoryWindowsLastTen(t *testing.T) {
	svc, _ := newConversationService(t)
	ctx := context.Background()

	// 7 exchanges = 14 messages, only the last 10 come back.
	for i := 0; i < 7; i++ {
		msg := fmt.Sprintf("question %d", i)
		require.NoError(t, svc.AppendExchange(ctx, "u-1", models.AssistantAnalyst, msg, map[string]any{"n": i}))
	}

	history, err := svc.History(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, history, 1)

	entry := history[0]
	assert.Equal(t, "analyst", entry.Assistant)
	require.Len(t, entry.Messages, 10)
	require.NotNil(t, entry.LastMessage)

	// Window keeps the tail: first surviving message is the user entry of
	// exchange 2.
	assert.Equal(t, models.RoleUser, entry.Messages[0].Role)
	assert.Equal(t, "question 2", entry.Messages[0].Content)
	assert.Equal(t, "question 6", entry.Messages[8].Content)

	// Oldest-first within the window.
	for i := 1; i < len(entry.Messages); i++ {
		assert.False(t, entry.Messages[i].Timestamp.Before(entry.Messages[i-1].Timestamp))
	}
}

func TestHistoryCoversBothAssistants(t *testing.T) {
	svc, _ := newConversationService(t)
	ctx := context.Background()

	require.NoError(t, svc.AppendExchange(ctx, "u-1", models.AssistantAnalyst, "analyze", map[string]any{}))
	require.NoError(t, svc.AppendExchange(ctx, "u-1", models.AssistantOptimizer, "optimize", map[string]any{}))

	history, err := svc.History(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, history, 2)

	types := []string{history[0].Assistant, history[1].Assistant}
	assert.ElementsMatch(t, []string{"analyst", "optimizer"}, types)
}

func TestHistoryEmptyForNewUser(t *testing.T) {
	svc, _ := newConversationService(t)

	history, err := svc.History(context.Background(), "u-nobody")
	require.NoError(t, err)
	assert.Empty(t, history)
}
