// Package jobs provides the durable background job queue.
//
// Jobs are claimed atomically by polling workers, so delivery is
// at-least-once: a handler may see the same payload again after a worker
// crash or a retried failure, and must be idempotent.
package jobs

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Job status constants.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrNotFound is returned when a job is not found.
var ErrNotFound = errors.New("job not found")

// Job represents a background job.
type Job struct {
	ID          primitive.ObjectID `bson:"_id"`
	QueueName   string             `bson:"queue_name"`
	JobType     string             `bson:"job_type"`
	Payload     map[string]any     `bson:"payload"`
	Status      string             `bson:"status"`
	Attempts    int                `bson:"attempts"`
	MaxAttempts int                `bson:"max_attempts"`
	Error       string             `bson:"error,omitempty"`
	ScheduledAt time.Time          `bson:"scheduled_at"`
	StartedAt   *time.Time         `bson:"started_at,omitempty"`
	CompletedAt *time.Time         `bson:"completed_at,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
	WorkerID    string             `bson:"worker_id,omitempty"`
}

// Store provides job persistence.
type Store struct {
	c *mongo.Collection
}

// New creates a new job store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("jobs")}
}

// Enqueue creates a job that is eligible to run immediately.
func (s *Store) Enqueue(ctx context.Context, queueName, jobType string, payload map[string]any) (Job, error) {
	now := time.Now().UTC()

	job := Job{
		ID:          primitive.NewObjectID(),
		QueueName:   queueName,
		JobType:     jobType,
		Payload:     payload,
		Status:      StatusPending,
		Attempts:    0,
		MaxAttempts: 3,
		ScheduledAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.c.InsertOne(ctx, job); err != nil {
		return Job{}, err
	}

	return job, nil
}

// ClaimNext atomically claims the next available job on the queue.
// Returns nil, nil if no jobs are available.
func (s *Store) ClaimNext(ctx context.Context, queueName, workerID string) (*Job, error) {
	now := time.Now().UTC()

	filter := bson.M{
		"queue_name":   queueName,
		"status":       StatusPending,
		"scheduled_at": bson.M{"$lte": now},
	}

	update := bson.M{
		"$set": bson.M{
			"status":     StatusRunning,
			"started_at": now,
			"worker_id":  workerID,
			"updated_at": now,
		},
		"$inc": bson.M{
			"attempts": 1,
		},
	}

	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "scheduled_at", Value: 1}}).
		SetReturnDocument(options.After)

	var job Job
	err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	return &job, nil
}

// Complete marks a job as completed.
func (s *Store) Complete(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now().UTC()
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"status":       StatusCompleted,
			"completed_at": now,
			"updated_at":   now,
		},
	})
	return err
}

// Fail records a failed attempt. While attempts remain the job is put back
// on the queue after retryDelay; otherwise it is marked failed for good.
func (s *Store) Fail(ctx context.Context, id primitive.ObjectID, errMsg string, retryDelay time.Duration) error {
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	if job.Attempts < job.MaxAttempts {
		_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
			"$set": bson.M{
				"status":       StatusPending,
				"error":        errMsg,
				"scheduled_at": now.Add(retryDelay),
				"started_at":   nil,
				"worker_id":    "",
				"updated_at":   now,
			},
		})
		return err
	}

	_, err = s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"status":       StatusFailed,
			"error":        errMsg,
			"completed_at": now,
			"updated_at":   now,
		},
	})
	return err
}

// GetByID retrieves a job by ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*Job, error) {
	var job Job
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&job); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// CountByStatus returns the number of jobs on a queue with the given status.
func (s *Store) CountByStatus(ctx context.Context, queueName, status string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"queue_name": queueName, "status": status})
}

// CleanupStaleRunning re-queues jobs claimed by workers that died.
func (s *Store) CleanupStaleRunning(ctx context.Context, staleThreshold time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-staleThreshold)
	now := time.Now().UTC()

	result, err := s.c.UpdateMany(ctx, bson.M{
		"status":     StatusRunning,
		"started_at": bson.M{"$lt": cutoff},
	}, bson.M{
		"$set": bson.M{
			"status":     StatusPending,
			"started_at": nil,
			"worker_id":  "",
			"error":      "worker timeout - job re-queued",
			"updated_at": now,
		},
	})
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// DeleteOlderThan deletes completed jobs older than the cutoff.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.c.DeleteMany(ctx, bson.M{
		"status":       StatusCompleted,
		"completed_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
