// Package thumbnails renders resized image variants for uploaded images.
//
// Generation runs on the job queue, decoupled from the upload request that
// enqueued it. Readers must tolerate "original present, variant absent" as
// a valid transient state.
package thumbnails

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dalemusser/stratafiles/internal/app/store/files"
	"github.com/dalemusser/stratafiles/internal/app/system/jobrunner"
	"github.com/dalemusser/stratafiles/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/disintegration/imaging"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// QueueName is the job queue the thumbnail workers consume.
const QueueName = "thumbnails"

// JobType identifies thumbnail generation jobs on the queue.
const JobType = "generate_thumbnails"

// Sizes are the rendered variant widths.
var Sizes = []int{100, 250, 500}

// IsVariantSize reports whether the size query value selects a known variant.
func IsVariantSize(size string) bool {
	for _, s := range Sizes {
		if size == fmt.Sprintf("%d", s) {
			return true
		}
	}
	return false
}

// Generator renders thumbnail variants for image records.
type Generator struct {
	fileStore *files.Store
	blobs     storage.Store
	logger    *zap.Logger
}

// NewGenerator creates a thumbnail Generator.
func NewGenerator(fileStore *files.Store, blobs storage.Store, logger *zap.Logger) *Generator {
	return &Generator{
		fileStore: fileStore,
		blobs:     blobs,
		logger:    logger,
	}
}

// Payload builds the queue payload for an upload-completion job.
func Payload(userID, fileID primitive.ObjectID) map[string]any {
	return map[string]any{
		"user_id": userID.Hex(),
		"file_id": fileID.Hex(),
	}
}

// Handler returns the jobrunner handler for thumbnail jobs.
func (g *Generator) Handler() jobrunner.JobHandler {
	return func(ctx context.Context, payload map[string]any) error {
		fileID, ok := payload["file_id"].(string)
		if !ok || fileID == "" {
			return fmt.Errorf("payload missing file_id")
		}
		id, err := primitive.ObjectIDFromHex(fileID)
		if err != nil {
			return fmt.Errorf("invalid file_id %q: %w", fileID, err)
		}
		return g.Generate(ctx, id)
	}
}

// Generate renders all variant sizes for the image record.
//
// Each size is rendered independently: one failing size never blocks the
// others. Generation is idempotent - re-running overwrites the same derived
// paths with equivalent content, so at-least-once delivery of the job is
// safe. A partial failure is returned to the queue (which may retry), never
// to the upload caller.
func (g *Generator) Generate(ctx context.Context, fileID primitive.ObjectID) error {
	f, err := g.fileStore.GetByID(ctx, fileID)
	if err != nil {
		return fmt.Errorf("load file record: %w", err)
	}
	if f.Type != models.TypeImage {
		return fmt.Errorf("file %s is %q, not an image", fileID.Hex(), f.Type)
	}
	if f.LocalPath == "" {
		return fmt.Errorf("file %s has no stored content", fileID.Hex())
	}

	reader, err := g.blobs.Get(ctx, f.LocalPath)
	if err != nil {
		return fmt.Errorf("read original %s: %w", f.LocalPath, err)
	}
	src, err := imaging.Decode(reader)
	reader.Close()
	if err != nil {
		return fmt.Errorf("decode image %s: %w", f.LocalPath, err)
	}

	format, contentType := outputFormat(f.Name)

	var failed []string
	for _, size := range Sizes {
		if err := g.renderVariant(ctx, f, src, size, format, contentType); err != nil {
			g.logger.Warn("thumbnail variant failed",
				zap.String("file_id", fileID.Hex()),
				zap.Int("size", size),
				zap.Error(err))
			failed = append(failed, fmt.Sprintf("%d: %v", size, err))
			continue
		}
		g.logger.Debug("thumbnail variant written",
			zap.String("file_id", fileID.Hex()),
			zap.Int("size", size))
	}

	if len(failed) > 0 {
		return fmt.Errorf("variants failed: %s", strings.Join(failed, "; "))
	}
	return nil
}

// renderVariant writes one resized copy at <localPath>_<size>. Width is
// fixed to the target size and height follows the aspect ratio.
func (g *Generator) renderVariant(ctx context.Context, f *models.File, src image.Image, size int, format imaging.Format, contentType string) error {
	resized := imaging.Resize(src, size, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	opts := &storage.PutOptions{ContentType: contentType}
	if err := g.blobs.Put(ctx, f.VariantPath(size), &buf, opts); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// outputFormat picks the encode format from the declared file name,
// defaulting to PNG for unknown extensions.
func outputFormat(name string) (imaging.Format, string) {
	ext := strings.ToLower(filepath.Ext(name))
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return imaging.PNG, "image/png"
	}
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return format, contentType
}
