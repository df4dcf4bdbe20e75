// Package indexes creates the MongoDB indexes the stores rely on.
package indexes

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureAll creates all indexes. Safe to call repeatedly; Mongo treats
// an existing identical index as a no-op.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	if err := ensureUsers(ctx, db); err != nil {
		return err
	}
	if err := ensureTokens(ctx, db); err != nil {
		return err
	}
	if err := ensureFiles(ctx, db); err != nil {
		return err
	}
	return ensureJobs(ctx, db)
}

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("users").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_user_email"),
		},
	})
	return err
}

func ensureTokens(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("tokens").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_token_value"),
		},
		// TTL index removes expired tokens; Resolve also checks expiry so
		// correctness does not depend on the monitor's sweep interval.
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_token_ttl"),
		},
	})
	return err
}

func ensureFiles(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("files").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "parent_id", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_file_parent"),
		},
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}},
			Options: options.Index().SetName("idx_file_owner"),
		},
	})
	return err
}

func ensureJobs(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("jobs").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "queue_name", Value: 1},
				{Key: "status", Value: 1},
				{Key: "scheduled_at", Value: 1},
			},
			Options: options.Index().SetName("idx_job_claim"),
		},
	})
	return err
}
