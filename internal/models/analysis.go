package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AnalysisSnapshot archives a successful assistant result for later review.
// Documents expire via the TTL index on expires_at.
type AnalysisSnapshot struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SnapshotID string             `bson:"snapshot_id" json:"snapshot_id"`
	UserID     string             `bson:"user_id" json:"user_id"`

	PortfolioID   string         `bson:"portfolio_id" json:"portfolio_id"`
	AssistantType string         `bson:"assistant_type" json:"assistant_type"` // analyst|optimizer
	Payload       map[string]any `bson:"payload" json:"payload"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
}
