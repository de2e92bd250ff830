// Package sketch stores drawings as record attachments and loads them back.
package sketch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/heartmarshall/sketch2code/internal/adapter/provider/sketch2code"
	"github.com/heartmarshall/sketch2code/internal/domain"
)

// Remote is the part of the conversion service client used for storage.
type Remote interface {
	SaveOriginalFile(ctx context.Context, payload string) (string, error)
	OriginalURL(folderID string, params url.Values) string
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// host defines the record operations needed by the sketch service.
type host interface {
	UpdateRecordAttachments(ctx context.Context, tableID, recordID string, cells map[string][]domain.NewAttachment) (*domain.Record, error)
	AttachmentClientURL(ctx context.Context, tableID, recordID string, a domain.Attachment) (string, error)
}

// Service implements sketch save and load.
type Service struct {
	log  *slog.Logger
	host host
}

// NewService creates a new sketch service.
func NewService(logger *slog.Logger, h host) *Service {
	return &Service{
		log:  logger.With("service", "sketch"),
		host: h,
	}
}

// CanPersist reports whether save or load may start for target.
func CanPersist(target domain.Target, saving, loading bool) bool {
	return target.Table != nil &&
		target.FieldID() != "" &&
		target.RecordID() != "" &&
		target.Field.IsAttachment() &&
		!saving && !loading
}

// Save uploads the image, then the snapshot, then replaces the field's
// attachments with the pair. The steps never overlap.
func (s *Service) Save(ctx context.Context, rc Remote, target domain.Target, drawing domain.Drawing) ([2]domain.Attachment, error) {
	var saved [2]domain.Attachment

	if !CanPersist(target, false, false) {
		return saved, domain.ErrNoTarget
	}

	png, err := drawing.PNG()
	if err != nil {
		return saved, fmt.Errorf("sketch.Save: export image: %w", err)
	}
	snapshot, err := drawing.Snapshot()
	if err != nil {
		return saved, fmt.Errorf("sketch.Save: export snapshot: %w", err)
	}

	imageFolder, err := rc.SaveOriginalFile(ctx, sketch2code.DataURI(sketch2code.MediaPNG, png))
	if err != nil {
		return saved, domain.TransportError("sketch.Save: upload image", err)
	}

	jsonFolder, err := rc.SaveOriginalFile(ctx, sketch2code.DataURI(sketch2code.MediaJSON, snapshot))
	if err != nil {
		s.log.WarnContext(ctx, "image uploaded but snapshot upload failed",
			slog.String("folder_id", imageFolder),
			slog.String("error", err.Error()),
		)
		return saved, domain.TransportError("sketch.Save: upload snapshot", err)
	}

	pair := []domain.NewAttachment{
		{URL: rc.OriginalURL(imageFolder, nil), Filename: domain.SketchImageFilename},
		{URL: rc.OriginalURL(jsonFolder, url.Values{"content-type": {"text/html"}}), Filename: domain.SketchJSONFilename},
	}

	record, err := s.host.UpdateRecordAttachments(ctx, target.Table.ID, target.Record.ID,
		map[string][]domain.NewAttachment{target.Field.ID: pair})
	if err != nil {
		orphaned := []string{imageFolder, jsonFolder}
		s.log.WarnContext(ctx, "record write failed, uploads left unreferenced",
			slog.String("record_id", target.Record.ID),
			slog.Any("folder_ids", orphaned),
			slog.String("error", err.Error()),
		)
		return saved, &domain.OrphanedUploadError{FolderIDs: orphaned, Err: err}
	}

	for i, a := range pair {
		saved[i] = domain.Attachment{URL: a.URL, Filename: a.Filename}
		if found, ok := record.FindAttachment(target.Field.ID, a.Filename); ok {
			saved[i] = found
		}
	}

	s.log.InfoContext(ctx, "sketch saved",
		slog.String("record_id", target.Record.ID),
		slog.String("field_id", target.Field.ID),
	)

	return saved, nil
}

// Load returns the snapshot stored in the target's sketch.json attachment.
func (s *Service) Load(ctx context.Context, rc Remote, target domain.Target) (domain.SketchSnapshot, error) {
	if !CanPersist(target, false, false) {
		return nil, domain.ErrNoTarget
	}

	att, ok := target.Record.FindAttachment(target.Field.ID, domain.SketchJSONFilename)
	if !ok {
		return nil, domain.ErrSketchNotFound
	}

	clientURL, err := s.host.AttachmentClientURL(ctx, target.Table.ID, target.Record.ID, att)
	if err != nil {
		return nil, fmt.Errorf("sketch.Load: client url: %w", err)
	}

	body, err := rc.Fetch(ctx, clientURL)
	if err != nil {
		return nil, domain.TransportError("sketch.Load: fetch snapshot", err)
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("sketch.Load: %w", domain.ErrInvalidSnapshot)
	}

	s.log.DebugContext(ctx, "sketch loaded",
		slog.String("record_id", target.Record.ID),
		slog.Int("bytes", len(body)),
	)

	return domain.SketchSnapshot(body), nil
}
