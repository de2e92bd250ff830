// Package conversion turns sketch attachments into HTML through the remote
// conversion service and memoizes the result per attachment.
package conversion

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/heartmarshall/sketch2code/internal/domain"
)

const defaultMaxConcurrent = 4

// Remote is the part of the conversion service client the pipeline calls.
type Remote interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
	SaveOriginalFile(ctx context.Context, payload string) (string, error)
	Upload(ctx context.Context, correlationID string) error
	LayoutResult(ctx context.Context, folderID string) (string, error)
	ResultURL(folderID string, params url.Values) string
}

// Source is an attachment together with the URL it can be downloaded from.
type Source struct {
	Attachment domain.Attachment
	ClientURL  string
}

// Pipeline converts attachments and caches the results for its lifetime.
// Entries are never evicted.
type Pipeline struct {
	log           *slog.Logger
	maxConcurrent int

	mu       sync.RWMutex
	cache    map[string]domain.ConversionEntry
	inflight singleflight.Group
}

// NewPipeline creates a pipeline that runs at most maxConcurrent
// conversions at once in ConvertAll.
func NewPipeline(logger *slog.Logger, maxConcurrent int) *Pipeline {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Pipeline{
		log:           logger.With("service", "conversion"),
		maxConcurrent: maxConcurrent,
		cache:         make(map[string]domain.ConversionEntry),
	}
}

// Lookup returns the cached entry for an attachment id.
func (p *Pipeline) Lookup(attachmentID string) (domain.ConversionEntry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.cache[attachmentID]
	return e, ok
}

// Convert returns the HTML for src. Cached attachments return without any
// network access; concurrent calls for the same attachment share one
// conversion. The shared conversion is detached from any single caller's
// cancellation: a caller that gives up returns its own ctx error while the
// others keep waiting. Failures are not cached.
func (p *Pipeline) Convert(ctx context.Context, rc Remote, src Source) (domain.ConversionEntry, error) {
	id := src.Attachment.ID
	if e, ok := p.Lookup(id); ok {
		return e, nil
	}

	work := context.WithoutCancel(ctx)
	ch := p.inflight.DoChan(id, func() (any, error) {
		// Another caller may have finished between Lookup and DoChan.
		if e, ok := p.Lookup(id); ok {
			return e, nil
		}
		e, err := p.convert(work, rc, src)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.cache[id] = e
		p.mu.Unlock()
		return e, nil
	})

	select {
	case <-ctx.Done():
		return domain.ConversionEntry{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.ConversionEntry{}, res.Err
		}
		if res.Shared {
			p.log.DebugContext(ctx, "conversion shared", slog.String("attachment_id", id))
		}
		return res.Val.(domain.ConversionEntry), nil
	}
}

// ConvertAll converts every not-yet-cached source concurrently. Each
// conversion runs on ctx and lands in the cache on its own; a failing
// attachment never cancels its siblings. The first error is returned.
func (p *Pipeline) ConvertAll(ctx context.Context, rc Remote, sources []Source) error {
	var g errgroup.Group
	g.SetLimit(p.maxConcurrent)

	seen := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		if _, dup := seen[src.Attachment.ID]; dup {
			continue
		}
		seen[src.Attachment.ID] = struct{}{}
		if _, ok := p.Lookup(src.Attachment.ID); ok {
			continue
		}

		g.Go(func() error {
			_, err := p.Convert(ctx, rc, src)
			return err
		})
	}

	return g.Wait()
}

// Displayed returns the cached entry of the first attachment, which is the
// only one rendered.
func (p *Pipeline) Displayed(attachments []domain.Attachment) (domain.ConversionEntry, bool) {
	if len(attachments) == 0 {
		return domain.ConversionEntry{}, false
	}
	return p.Lookup(attachments[0].ID)
}

// convert runs fetch, save, upload and result strictly in order.
func (p *Pipeline) convert(ctx context.Context, rc Remote, src Source) (domain.ConversionEntry, error) {
	id := src.Attachment.ID

	data, err := rc.Fetch(ctx, src.ClientURL)
	if err != nil {
		return domain.ConversionEntry{}, domain.TransportError("conversion: fetch attachment", err)
	}

	folderID, err := rc.SaveOriginalFile(ctx, base64.StdEncoding.EncodeToString(data))
	if err != nil {
		return domain.ConversionEntry{}, domain.TransportError("conversion: save original file", err)
	}

	if err := rc.Upload(ctx, folderID); err != nil {
		return domain.ConversionEntry{}, domain.TransportError("conversion: upload", err)
	}

	html, err := rc.LayoutResult(ctx, folderID)
	if err != nil {
		return domain.ConversionEntry{}, domain.TransportError("conversion: layout result", err)
	}

	p.log.InfoContext(ctx, "attachment converted",
		slog.String("attachment_id", id),
		slog.String("correlation_id", folderID),
		slog.Int("html_bytes", len(html)),
	)

	return domain.ConversionEntry{AttachmentID: id, HTML: html, CorrelationID: folderID}, nil
}
