// Package files provides storage for file, image, and folder records.
package files

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratafiles/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the fixed number of records returned per listing page.
const PageSize = 20

// ErrNotFound is returned when no record matches the given id.
var ErrNotFound = errors.New("file not found")

// Store provides access to the files collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new file store.
func New(db *mongo.Database) *Store {
	return &Store{
		c: db.Collection("files"),
	}
}

// CreateInput contains the input for creating a file record.
type CreateInput struct {
	OwnerID   primitive.ObjectID
	Name      string
	Type      string
	IsPublic  bool
	ParentID  *primitive.ObjectID // nil = root
	LocalPath string              // empty for folders
}

// Create creates a new file record.
func (s *Store) Create(ctx context.Context, input CreateInput) (*models.File, error) {
	now := time.Now().UTC()
	f := models.File{
		ID:        primitive.NewObjectID(),
		OwnerID:   input.OwnerID,
		Name:      input.Name,
		Type:      input.Type,
		IsPublic:  input.IsPublic,
		ParentID:  input.ParentID,
		LocalPath: input.LocalPath,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.c.InsertOne(ctx, f); err != nil {
		return nil, err
	}

	return &f, nil
}

// GetByID retrieves a file record by ID.
// Returns ErrNotFound when no record exists.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.File, error) {
	var f models.File
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// ListByParent returns one page of records whose parent matches parentID
// (nil = root). Records come back in insertion order; page is zero-based and
// skips page*PageSize records.
func (s *Store) ListByParent(ctx context.Context, parentID *primitive.ObjectID, page int) ([]models.File, error) {
	if page < 0 {
		page = 0
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(page) * PageSize).
		SetLimit(PageSize)

	cursor, err := s.c.Find(ctx, bson.M{"parent_id": parentID}, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.File
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}

	return records, nil
}

// SetPublic flips the visibility flag and returns the updated record.
// Returns ErrNotFound when no record exists.
func (s *Store) SetPublic(ctx context.Context, id primitive.ObjectID, public bool) (*models.File, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var f models.File
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"is_public":  public,
			"updated_at": time.Now().UTC(),
		}},
		opts,
	).Decode(&f)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// Count returns the total number of file records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
