package testutil

import (
	"testing"

	"github.com/dalemusser/stratafiles/internal/app/store/tokens"
	"github.com/dalemusser/stratafiles/internal/app/store/users"
	"github.com/dalemusser/stratafiles/internal/app/system/authutil"
	"github.com/dalemusser/stratafiles/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// CreateTestUser inserts a user with the given email and password and
// returns the record.
func CreateTestUser(t *testing.T, db *mongo.Database, email, password string) *models.User {
	t.Helper()

	hash, err := authutil.HashPassword(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	ctx, cancel := TestContext()
	defer cancel()

	u, err := users.New(db).Create(ctx, email, hash)
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateTestSession inserts a user and a live session token for them.
func CreateTestSession(t *testing.T, db *mongo.Database, email, password string) (*models.User, string) {
	t.Helper()

	u := CreateTestUser(t, db, email, password)

	ctx, cancel := TestContext()
	defer cancel()

	token, err := tokens.New(db, 0).Create(ctx, u.ID)
	if err != nil {
		t.Fatalf("failed to create test token: %v", err)
	}
	return u, token
}
