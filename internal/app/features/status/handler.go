// Package status exposes service liveness and usage counters.
package status

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/stratafiles/internal/app/store/files"
	"github.com/dalemusser/stratafiles/internal/app/store/users"
	"github.com/dalemusser/stratafiles/internal/app/system/apierr"
	"github.com/dalemusser/stratafiles/internal/app/system/jsonutil"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler handles status and stats requests.
type Handler struct {
	mongoClient *mongo.Client
	userStore   *users.Store
	fileStore   *files.Store
	blobs       storage.Store
	logger      *zap.Logger
}

// NewHandler creates a new status Handler.
func NewHandler(mongoClient *mongo.Client, userStore *users.Store, fileStore *files.Store, blobs storage.Store, logger *zap.Logger) *Handler {
	return &Handler{
		mongoClient: mongoClient,
		userStore:   userStore,
		fileStore:   fileStore,
		blobs:       blobs,
		logger:      logger,
	}
}

type statusResponse struct {
	DB      bool `json:"db"`
	Storage bool `json:"storage"`
}

type statsResponse struct {
	Users int64 `json:"users"`
	Files int64 `json:"files"`
}

// status handles GET /status. The db flag reflects a live ping against the
// primary; storage reflects whether a blob backend is wired.
func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := statusResponse{DB: true, Storage: h.blobs != nil}
	if err := h.mongoClient.Ping(ctx, readpref.Primary()); err != nil {
		h.logger.Warn("status check: mongodb ping failed", zap.Error(err))
		resp.DB = false
	}

	jsonutil.OK(w, resp)
}

// stats handles GET /stats.
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userCount, err := h.userStore.Count(ctx)
	if err != nil {
		h.logger.Error("failed to count users", zap.Error(err))
		apierr.Write(w, apierr.Internal())
		return
	}

	fileCount, err := h.fileStore.Count(ctx)
	if err != nil {
		h.logger.Error("failed to count files", zap.Error(err))
		apierr.Write(w, apierr.Internal())
		return
	}

	jsonutil.OK(w, statsResponse{Users: userCount, Files: fileCount})
}
