// Package filesapi provides the file storage API endpoints.
//
// Endpoints:
//   - POST /files - upload a file, image, or folder
//   - GET /files - list records under a parent folder, paged
//   - GET /files/{id} - file record metadata
//   - PUT /files/{id}/publish, /files/{id}/unpublish - toggle visibility
//   - GET /files/{id}/data - raw content, with optional thumbnail size
//
// Every operation consults the access-control gate before touching the
// metadata or blob stores. Requests carry the session token in the X-Token
// header.
package filesapi

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/dalemusser/stratafiles/internal/app/store/files"
	"github.com/dalemusser/stratafiles/internal/app/store/jobs"
	"github.com/dalemusser/stratafiles/internal/app/system/apierr"
	"github.com/dalemusser/stratafiles/internal/app/system/gate"
	"github.com/dalemusser/stratafiles/internal/app/system/jsonutil"
	"github.com/dalemusser/stratafiles/internal/app/system/thumbnails"
	"github.com/dalemusser/stratafiles/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// TokenHeader carries the session token on every authenticated request.
const TokenHeader = "X-Token"

// Handler handles file API requests.
type Handler struct {
	fileStore *files.Store
	jobStore  *jobs.Store
	blobs     storage.Store
	gate      *gate.Gate
	logger    *zap.Logger
}

// NewHandler creates a new filesapi handler.
func NewHandler(fileStore *files.Store, jobStore *jobs.Store, blobs storage.Store, g *gate.Gate, logger *zap.Logger) *Handler {
	return &Handler{
		fileStore: fileStore,
		jobStore:  jobStore,
		blobs:     blobs,
		gate:      g,
		logger:    logger,
	}
}

// upload handles POST /files.
//
// Validation order is fixed: name, then type, then data, then parent.
// Folders are metadata-only. Files and images write the blob first and the
// record second; the two steps are not atomic, so a failed record insert can
// leave a stray blob behind - that is surfaced as a 500, never masked as
// success. Image uploads enqueue thumbnail generation and return before any
// variant exists.
func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := h.gate.Authenticate(ctx, r.Header.Get(TokenHeader))
	if err != nil {
		apierr.Write(w, err)
		return
	}

	var in uploadInput
	if err := jsonutil.Decode(r, &in); err != nil {
		apierr.Write(w, apierr.Validation("Invalid JSON payload"))
		return
	}

	if in.Name == "" {
		apierr.Write(w, apierr.Validation("Missing name"))
		return
	}
	if !models.ValidType(in.Type) {
		apierr.Write(w, apierr.Validation("Missing type"))
		return
	}
	if in.Data == "" && in.Type != models.TypeFolder {
		apierr.Write(w, apierr.Validation("Missing data"))
		return
	}

	parentID, err := h.resolveParent(r, userID, in.ParentID)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	if in.Type == models.TypeFolder {
		folder, err := h.fileStore.Create(ctx, files.CreateInput{
			OwnerID:  userID,
			Name:     in.Name,
			Type:     in.Type,
			IsPublic: in.IsPublic,
			ParentID: parentID,
		})
		if err != nil {
			h.logger.Error("failed to create folder record", zap.Error(err))
			apierr.Write(w, apierr.Internal())
			return
		}
		jsonutil.Created(w, newFileVM(folder))
		return
	}

	data, err := base64.StdEncoding.DecodeString(in.Data)
	if err != nil {
		apierr.Write(w, apierr.Validation("Invalid data"))
		return
	}

	localPath := "files/" + uuid.New().String()
	opts := &storage.PutOptions{ContentType: contentTypeFor(in.Name)}
	if err := h.blobs.Put(ctx, localPath, bytes.NewReader(data), opts); err != nil {
		h.logger.Error("failed to write blob",
			zap.String("path", localPath),
			zap.Error(err))
		apierr.Write(w, apierr.Internal())
		return
	}

	created, err := h.fileStore.Create(ctx, files.CreateInput{
		OwnerID:   userID,
		Name:      in.Name,
		Type:      in.Type,
		IsPublic:  in.IsPublic,
		ParentID:  parentID,
		LocalPath: localPath,
	})
	if err != nil {
		// The blob stays behind; cleanup is an external storage concern.
		h.logger.Error("failed to create file record after blob write",
			zap.String("path", localPath),
			zap.Error(err))
		apierr.Write(w, apierr.Internal())
		return
	}

	if in.Type == models.TypeImage {
		if _, err := h.jobStore.Enqueue(ctx, thumbnails.QueueName, thumbnails.JobType, thumbnails.Payload(userID, created.ID)); err != nil {
			// Fire-and-forget from the caller's perspective: the upload
			// already succeeded, the variants just stay absent.
			h.logger.Error("failed to enqueue thumbnail job",
				zap.String("file_id", created.ID.Hex()),
				zap.Error(err))
		}
	}

	jsonutil.Created(w, newFileVM(created))
}

// resolveParent parses and authorizes the optional parentId of an upload.
func (h *Handler) resolveParent(r *http.Request, userID primitive.ObjectID, raw string) (*primitive.ObjectID, error) {
	if raw == "" || raw == RootParent {
		return nil, nil
	}

	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, apierr.Validation("Parent not found")
	}

	parent, err := h.fileStore.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, files.ErrNotFound) {
			return nil, apierr.Validation("Parent not found")
		}
		return nil, err
	}

	if err := h.gate.AuthorizeParent(userID, parent); err != nil {
		return nil, err
	}

	return &id, nil
}

// show handles GET /files/{id}.
//
// Read access never returns 401: an unresolvable token is treated as
// anonymous, and anything the caller may not see reads as 404.
func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := h.gate.Identify(ctx, r.Header.Get(TokenHeader))
	if err != nil {
		apierr.Write(w, err)
		return
	}

	f, err := h.lookup(r)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	if err := h.gate.Authorize(userID, f, gate.ActionRead); err != nil {
		apierr.Write(w, err)
		return
	}

	jsonutil.OK(w, newFileVM(f))
}

// index handles GET /files?parentId=&page=.
//
// Pagination applies to the parent match; the gate's read policy then
// filters each record before it crosses into the response, so a guessed
// parentId reveals nothing the caller could not already see.
func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := h.gate.Identify(ctx, r.Header.Get(TokenHeader))
	if err != nil {
		apierr.Write(w, err)
		return
	}

	vms := []FileVM{}

	parentID, ok := parseParentParam(r.URL.Query().Get("parentId"))
	if !ok {
		// A parentId that cannot be a record id matches nothing.
		jsonutil.OK(w, vms)
		return
	}

	page := 0
	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page = n
		}
	}

	records, err := h.fileStore.ListByParent(ctx, parentID, page)
	if err != nil {
		h.logger.Error("failed to list files", zap.Error(err))
		apierr.Write(w, apierr.Internal())
		return
	}

	for i := range records {
		f := &records[i]
		if h.gate.Authorize(userID, f, gate.ActionRead) == nil {
			vms = append(vms, newFileVM(f))
		}
	}

	jsonutil.OK(w, vms)
}

// publish handles PUT /files/{id}/publish.
func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	h.setPublic(w, r, true)
}

// unpublish handles PUT /files/{id}/unpublish.
func (h *Handler) unpublish(w http.ResponseWriter, r *http.Request) {
	h.setPublic(w, r, false)
}

// setPublic flips visibility for the record owner. Everything except the
// is_public flag and updated_at is left untouched.
func (h *Handler) setPublic(w http.ResponseWriter, r *http.Request, public bool) {
	ctx := r.Context()

	userID, err := h.gate.Authenticate(ctx, r.Header.Get(TokenHeader))
	if err != nil {
		apierr.Write(w, err)
		return
	}

	f, err := h.lookup(r)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	if err := h.gate.Authorize(userID, f, gate.ActionWrite); err != nil {
		apierr.Write(w, err)
		return
	}

	updated, err := h.fileStore.SetPublic(ctx, f.ID, public)
	if err != nil {
		h.logger.Error("failed to update visibility",
			zap.String("file_id", f.ID.Hex()),
			zap.Error(err))
		apierr.Write(w, apierr.Internal())
		return
	}

	jsonutil.OK(w, newFileVM(updated))
}

// data handles GET /files/{id}/data?size=.
//
// Folders are rejected before any authorization check. A size parameter
// matching a known variant selects the derived thumbnail path; a variant
// that has not been generated yet reads as 404, same as a missing original.
func (h *Handler) data(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	f, err := h.lookup(r)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	if f.IsFolder() {
		apierr.Write(w, apierr.InvalidOperation("A folder doesn't have content"))
		return
	}

	userID, err := h.gate.Identify(ctx, r.Header.Get(TokenHeader))
	if err != nil {
		apierr.Write(w, err)
		return
	}

	if err := h.gate.Authorize(userID, f, gate.ActionRead); err != nil {
		apierr.Write(w, err)
		return
	}

	path := f.LocalPath
	if size := r.URL.Query().Get("size"); size != "" && thumbnails.IsVariantSize(size) && f.Type == models.TypeImage {
		n, _ := strconv.Atoi(size)
		path = f.VariantPath(n)
	}

	reader, err := h.blobs.Get(ctx, path)
	if err != nil {
		apierr.Write(w, apierr.NotFound())
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentTypeFor(f.Name))
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn("failed to stream file content",
			zap.String("path", path),
			zap.Error(err))
	}
}

// lookup resolves the {id} URL parameter to a record. A malformed id and a
// missing record are both apierr.NotFound.
func (h *Handler) lookup(r *http.Request) (*models.File, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return nil, apierr.NotFound()
	}

	f, err := h.fileStore.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, files.ErrNotFound) {
			return nil, apierr.NotFound()
		}
		h.logger.Error("file lookup failed", zap.Error(err))
		return nil, apierr.Internal()
	}

	return f, nil
}

// parseParentParam maps the parentId query value to a store filter.
// ok=false means the value cannot match any record.
func parseParentParam(raw string) (*primitive.ObjectID, bool) {
	if raw == "" || raw == RootParent {
		return nil, true
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, false
	}
	return &id, true
}

// contentTypeFor derives the Content-Type from the declared file name,
// never from the stored bytes.
func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
