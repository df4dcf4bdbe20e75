// Package gate is the access-control decision layer consulted before every
// file operation.
//
// The gate holds no state of its own beyond a reference to the token store:
// authorization is a pure function of (user, record, action). Denials for
// visibility and genuine non-existence both come back as apierr.NotFound so
// a non-owner cannot probe for the existence of private files.
package gate

import (
	"context"
	"errors"

	"github.com/dalemusser/stratafiles/internal/app/store/tokens"
	"github.com/dalemusser/stratafiles/internal/app/system/apierr"
	"github.com/dalemusser/stratafiles/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Action is the kind of access being requested.
type Action int

const (
	// ActionRead covers show and content fetch.
	ActionRead Action = iota
	// ActionWrite covers publish/unpublish and any content mutation.
	ActionWrite
)

// Gate resolves caller identity and authorizes file actions.
type Gate struct {
	tokens *tokens.Store
}

// New creates a new Gate backed by the given token store.
func New(tokenStore *tokens.Store) *Gate {
	return &Gate{tokens: tokenStore}
}

// Authenticate resolves a session token to a user ID. A missing, unknown,
// or expired token yields apierr.Unauthenticated, never a generic failure.
func (g *Gate) Authenticate(ctx context.Context, token string) (primitive.ObjectID, error) {
	if token == "" {
		return primitive.NilObjectID, apierr.Unauthenticated()
	}
	userID, err := g.tokens.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, tokens.ErrNotFound) {
			return primitive.NilObjectID, apierr.Unauthenticated()
		}
		return primitive.NilObjectID, err
	}
	return userID, nil
}

// Identify is Authenticate for read paths: an unresolvable token maps to
// the nil user ID rather than an error, so anonymous callers fall through
// to the visibility rules instead of receiving 401.
func (g *Gate) Identify(ctx context.Context, token string) (primitive.ObjectID, error) {
	userID, err := g.Authenticate(ctx, token)
	if err != nil {
		var apiErr *apierr.Error
		if errors.As(err, &apiErr) && apiErr.Kind == apierr.KindUnauthenticated {
			return primitive.NilObjectID, nil
		}
		return primitive.NilObjectID, err
	}
	return userID, nil
}

// Authorize decides whether userID may perform action on f.
// userID may be the nil ObjectID for anonymous callers. Every denial is
// apierr.NotFound regardless of the reason or authentication state.
func (g *Gate) Authorize(userID primitive.ObjectID, f *models.File, action Action) error {
	if f == nil {
		return apierr.NotFound()
	}

	switch action {
	case ActionRead:
		if f.OwnerID == userID || f.IsPublic {
			return nil
		}
	case ActionWrite:
		if !userID.IsZero() && f.OwnerID == userID {
			return nil
		}
	}

	return apierr.NotFound()
}

// AuthorizeParent validates the target parent of a create operation: the
// record must exist, be visible to the creating user, and be a folder.
// Error messages match the upload validation contract.
func (g *Gate) AuthorizeParent(userID primitive.ObjectID, parent *models.File) error {
	if parent == nil {
		return apierr.Validation("Parent not found")
	}
	if err := g.Authorize(userID, parent, ActionRead); err != nil {
		// Invisible parent reads as absent, same non-leaking policy.
		return apierr.Validation("Parent not found")
	}
	if !parent.IsFolder() {
		return apierr.Validation("Parent is not a folder")
	}
	return nil
}
