// Package tokens provides the session token store.
//
// A token is an opaque, unguessable credential exchanged for a user identity
// on each request. Tokens carry a fixed time-to-live set at creation; use
// does not extend it, so a long-lived session requires re-authentication
// after expiry regardless of activity.
package tokens

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// DefaultTTL is the token lifetime when none is configured.
const DefaultTTL = 24 * time.Hour

var (
	// ErrNotFound is returned when a token is absent or expired. Callers
	// must treat both identically to "unauthenticated".
	ErrNotFound = errors.New("token not found")
	// ErrTokenGeneration is returned when the system entropy source fails.
	ErrTokenGeneration = errors.New("could not generate token")
)

// Token is a stored session token.
type Token struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Token     string             `bson:"token"` // unique 32-byte random value, base64url
	UserID    primitive.ObjectID `bson:"user_id"`
	ExpiresAt time.Time          `bson:"expires_at"`
	CreatedAt time.Time          `bson:"created_at"`
}

// Store manages session tokens in MongoDB.
type Store struct {
	c   *mongo.Collection
	ttl time.Duration
}

// New creates a new token Store with the given time-to-live.
// A non-positive ttl falls back to DefaultTTL.
func New(db *mongo.Database, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{c: db.Collection("tokens"), ttl: ttl}
}

// Create mints a new token for the user and stores it with the configured TTL.
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID) (string, error) {
	raw := securecookie.GenerateRandomKey(32)
	if raw == nil {
		return "", ErrTokenGeneration
	}
	value := base64.RawURLEncoding.EncodeToString(raw)

	now := time.Now().UTC()
	t := Token{
		ID:        primitive.NewObjectID(),
		Token:     value,
		UserID:    userID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return "", err
	}

	return value, nil
}

// Resolve returns the user ID for a live token. Absent and expired tokens
// both yield ErrNotFound; expiry is checked in the query rather than by
// waiting for the TTL monitor to remove the row.
func (s *Store) Resolve(ctx context.Context, token string) (primitive.ObjectID, error) {
	if token == "" {
		return primitive.NilObjectID, ErrNotFound
	}

	var t Token
	err := s.c.FindOne(ctx, bson.M{
		"token":      token,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return primitive.NilObjectID, ErrNotFound
		}
		return primitive.NilObjectID, err
	}

	return t.UserID, nil
}

// Destroy removes a token. Destroying an absent token is not an error.
func (s *Store) Destroy(ctx context.Context, token string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"token": token})
	return err
}

// DeleteExpired removes tokens past their expiry. The TTL index does this
// too; the sweep keeps the collection tidy when the monitor lags.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{
		"expires_at": bson.M{"$lte": time.Now().UTC()},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
