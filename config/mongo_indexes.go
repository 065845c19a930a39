package config

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureMongoIndexes() error {
	if MongoClient == nil {
		return errors.New("MongoClient is nil; call InitMongo() first")
	}
	db := MongoDatabase()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// analysis_snapshots indexes
	snapshots := db.Collection("analysis_snapshots")
	_, err := snapshots.Indexes().CreateMany(ctx, []mongo.IndexModel{
		// 1) TTL index: expire at ExpiresAt (must be Date)
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetName("ttl_expires_at").
				SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "snapshot_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_snapshot_id").
				SetUnique(true),
		},
		// Query helper for the per-portfolio listing
		{
			Keys:    bson.D{{Key: "portfolio_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("by_portfolio_created"),
		},
	})
	return err
}
