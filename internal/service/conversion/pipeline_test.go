package conversion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/heartmarshall/sketch2code/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Mock
// ---------------------------------------------------------------------------

type remoteMock struct {
	FetchFunc  func(ctx context.Context, rawURL string) ([]byte, error)
	SaveFunc   func(ctx context.Context, payload string) (string, error)
	UploadFunc func(ctx context.Context, correlationID string) error
	ResultFunc func(ctx context.Context, folderID string) (string, error)

	fetches atomic.Int32
	saves   atomic.Int32
	uploads atomic.Int32
	results atomic.Int32
}

// newRemoteMock returns a mock whose folder ids are derived from the
// uploaded payload, so distinct attachments get distinct ids.
func newRemoteMock() *remoteMock {
	return &remoteMock{
		FetchFunc: func(_ context.Context, rawURL string) ([]byte, error) { return []byte(rawURL), nil },
		SaveFunc: func(_ context.Context, payload string) (string, error) {
			return "folder-" + payload, nil
		},
		UploadFunc: func(_ context.Context, _ string) error { return nil },
		ResultFunc: func(_ context.Context, folderID string) (string, error) {
			return "<p>" + folderID + "</p>", nil
		},
	}
}

func (m *remoteMock) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	m.fetches.Add(1)
	return m.FetchFunc(ctx, rawURL)
}

func (m *remoteMock) SaveOriginalFile(ctx context.Context, payload string) (string, error) {
	m.saves.Add(1)
	return m.SaveFunc(ctx, payload)
}

func (m *remoteMock) Upload(ctx context.Context, correlationID string) error {
	m.uploads.Add(1)
	return m.UploadFunc(ctx, correlationID)
}

func (m *remoteMock) LayoutResult(ctx context.Context, folderID string) (string, error) {
	m.results.Add(1)
	return m.ResultFunc(ctx, folderID)
}

func (m *remoteMock) ResultURL(folderID string, params url.Values) string {
	u := "https://api.test/layout/result/" + folderID
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (m *remoteMock) serviceCalls() int32 {
	return m.saves.Load() + m.uploads.Load() + m.results.Load()
}

func newTestPipeline() *Pipeline {
	return NewPipeline(slog.New(slog.NewTextHandler(io.Discard, nil)), 4)
}

func source(id string) Source {
	return Source{
		Attachment: domain.Attachment{ID: id, URL: "https://dl.test/" + id, Filename: id + ".png"},
		ClientURL:  "https://dl.test/" + id,
	}
}

// ---------------------------------------------------------------------------
// Convert
// ---------------------------------------------------------------------------

func TestPipeline_Convert_Idempotent(t *testing.T) {
	t.Parallel()

	rc := newRemoteMock()
	p := newTestPipeline()

	first, err := p.Convert(context.Background(), rc, source("att1"))
	require.NoError(t, err)
	assert.Equal(t, int32(3), rc.serviceCalls(), "save, upload and result once each")
	assert.Equal(t, int32(1), rc.fetches.Load())

	second, err := p.Convert(context.Background(), rc, source("att1"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(3), rc.serviceCalls(), "cached conversion makes no network calls")
	assert.Equal(t, int32(1), rc.fetches.Load())
}

func TestPipeline_Convert_StepOrderAndEntry(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		steps []string
	)
	record := func(s string) {
		mu.Lock()
		steps = append(steps, s)
		mu.Unlock()
	}

	rc := newRemoteMock()
	rc.FetchFunc = func(_ context.Context, _ string) ([]byte, error) { record("fetch"); return []byte("img"), nil }
	rc.SaveFunc = func(_ context.Context, payload string) (string, error) {
		record("save")
		assert.Equal(t, "aW1n", payload)
		return "f-42", nil
	}
	rc.UploadFunc = func(_ context.Context, id string) error {
		record("upload")
		assert.Equal(t, "f-42", id)
		return nil
	}
	rc.ResultFunc = func(_ context.Context, id string) (string, error) { record("result"); return "<div>ok</div>", nil }

	entry, err := newTestPipeline().Convert(context.Background(), rc, source("att1"))

	require.NoError(t, err)
	assert.Equal(t, []string{"fetch", "save", "upload", "result"}, steps)
	assert.Equal(t, domain.ConversionEntry{AttachmentID: "att1", HTML: "<div>ok</div>", CorrelationID: "f-42"}, entry)
}

func TestPipeline_Convert_FailureNotCached(t *testing.T) {
	t.Parallel()

	rc := newRemoteMock()
	rc.UploadFunc = func(_ context.Context, _ string) error { return errors.New("503") }
	p := newTestPipeline()

	_, err := p.Convert(context.Background(), rc, source("att1"))

	require.ErrorIs(t, err, domain.ErrTransport)
	assert.Zero(t, rc.results.Load(), "result must not be requested after a failed upload")
	_, ok := p.Lookup("att1")
	assert.False(t, ok)

	rc.UploadFunc = func(_ context.Context, _ string) error { return nil }
	_, err = p.Convert(context.Background(), rc, source("att1"))
	require.NoError(t, err)
	_, ok = p.Lookup("att1")
	assert.True(t, ok)
}

func TestPipeline_Convert_ConcurrentCallsShareWork(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	rc := newRemoteMock()
	rc.FetchFunc = func(_ context.Context, rawURL string) ([]byte, error) {
		<-release
		return []byte(rawURL), nil
	}
	p := newTestPipeline()

	const callers = 8
	var wg sync.WaitGroup
	entries := make([]domain.ConversionEntry, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entries[i], errs[i] = p.Convert(context.Background(), rc, source("att1"))
		}()
	}

	// Give every caller a chance to join the in-flight conversion.
	for rc.fetches.Load() == 0 {
		runtime.Gosched()
	}
	close(release)
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, entries[0], entries[i])
	}
	assert.Equal(t, int32(1), rc.fetches.Load())
	assert.Equal(t, int32(3), rc.serviceCalls())
	_, ok := p.Lookup("att1")
	assert.True(t, ok)
}

func TestPipeline_Convert_CancelledCallerDoesNotFailOthers(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	rc := newRemoteMock()
	rc.FetchFunc = func(ctx context.Context, rawURL string) ([]byte, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-release:
			return []byte(rawURL), nil
		}
	}
	p := newTestPipeline()

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := p.Convert(firstCtx, rc, source("att1"))
		firstErr <- err
	}()
	for rc.fetches.Load() == 0 {
		runtime.Gosched()
	}

	type result struct {
		entry domain.ConversionEntry
		err   error
	}
	second := make(chan result, 1)
	go func() {
		e, err := p.Convert(context.Background(), rc, source("att1"))
		second <- result{e, err}
	}()
	// Let the second caller join the in-flight conversion.
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "att1", got.entry.AttachmentID)
	assert.Equal(t, int32(1), rc.fetches.Load())

	_, ok := p.Lookup("att1")
	assert.True(t, ok, "conversion finishes and is cached after its first caller left")
}

// ---------------------------------------------------------------------------
// ConvertAll / Displayed
// ---------------------------------------------------------------------------

func TestPipeline_ConvertAll_PartialFailureKeepsSiblings(t *testing.T) {
	t.Parallel()

	badFailed := make(chan struct{})
	var once sync.Once
	rc := newRemoteMock()
	rc.FetchFunc = func(ctx context.Context, rawURL string) ([]byte, error) {
		if strings.HasSuffix(rawURL, "bad") {
			once.Do(func() { close(badFailed) })
			return nil, errors.New("404")
		}
		// Still downloading when the sibling fails.
		<-badFailed
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
			return []byte(rawURL), nil
		}
	}
	p := newTestPipeline()

	err := p.ConvertAll(context.Background(), rc, []Source{source("first"), source("bad"), source("first")})

	require.ErrorIs(t, err, domain.ErrTransport)
	_, badCached := p.Lookup("bad")
	assert.False(t, badCached)
	_, firstCached := p.Lookup("first")
	assert.True(t, firstCached, "a failing sibling must not abort the conversion")

	_, ok := p.Displayed([]domain.Attachment{{ID: "first"}, {ID: "bad"}})
	assert.True(t, ok)
}

func TestPipeline_ConvertAll_SkipsCached(t *testing.T) {
	t.Parallel()

	rc := newRemoteMock()
	p := newTestPipeline()

	require.NoError(t, p.ConvertAll(context.Background(), rc, []Source{source("a"), source("b"), source("c")}))
	assert.Equal(t, int32(9), rc.serviceCalls())

	require.NoError(t, p.ConvertAll(context.Background(), rc, []Source{source("a"), source("b"), source("d")}))
	assert.Equal(t, int32(12), rc.serviceCalls())
}

func TestPipeline_Displayed_FirstAttachmentOnly(t *testing.T) {
	t.Parallel()

	rc := newRemoteMock()
	p := newTestPipeline()
	require.NoError(t, p.ConvertAll(context.Background(), rc, []Source{source("a"), source("b")}))

	entry, ok := p.Displayed([]domain.Attachment{{ID: "b"}, {ID: "a"}})
	require.True(t, ok)
	assert.Equal(t, "b", entry.AttachmentID)

	_, ok = p.Displayed([]domain.Attachment{{ID: "zzz"}, {ID: "a"}})
	assert.False(t, ok)

	_, ok = p.Displayed(nil)
	assert.False(t, ok)
}

// ---------------------------------------------------------------------------
// Preview
// ---------------------------------------------------------------------------

var (
	tblDesigns = &domain.Table{ID: "tbl1", Name: "Designs"}
	fldSketch  = &domain.Field{ID: "fld1", TableID: "tbl1", Type: domain.FieldTypeMultipleAttachments}
	fldText    = &domain.Field{ID: "fld2", TableID: "tbl1", Type: domain.FieldTypeSingleLineText}
	gridView   = &domain.View{ID: "viw1", TableID: "tbl1", Type: domain.ViewTypeGrid}
	formView   = &domain.View{ID: "viw2", TableID: "tbl1", Type: domain.ViewTypeForm}
)

func recordWith(atts ...domain.Attachment) *domain.Record {
	return &domain.Record{ID: "rec1", TableID: "tbl1", Attachments: map[string][]domain.Attachment{"fld1": atts}}
}

func TestPipeline_Preview_States(t *testing.T) {
	t.Parallel()

	enforced := domain.Settings{IsEnforced: true, URLTable: tblDesigns, URLField: fldSketch}

	tests := []struct {
		name     string
		in       PreviewInput
		wantKind domain.PreviewKind
		wantMsg  string
	}{
		{
			name: "enforced table not active",
			in: PreviewInput{
				Settings:      enforced,
				Target:        domain.Target{Table: tblDesigns, Field: fldSketch},
				ActiveTableID: "tbl2",
				ActiveView:    gridView,
			},
			wantKind: domain.PreviewSwitchTable,
			wantMsg:  "Switch to the “Designs” table to see previews.",
		},
		{
			name: "no record outside grid view",
			in: PreviewInput{
				Target:        domain.Target{Table: tblDesigns, Field: fldSketch},
				ActiveTableID: "tbl1",
				ActiveView:    formView,
			},
			wantKind: domain.PreviewSwitchView,
		},
		{
			name: "view switching",
			in: PreviewInput{
				Target:        domain.Target{Table: tblDesigns},
				ActiveTableID: "tbl1",
			},
			wantKind: domain.PreviewSwitchView,
		},
		{
			name: "no record in grid view",
			in: PreviewInput{
				Target:        domain.Target{Table: tblDesigns, Field: fldSketch},
				ActiveTableID: "tbl1",
				ActiveView:    gridView,
			},
			wantKind: domain.PreviewSelectAttachment,
		},
		{
			name: "record without field",
			in: PreviewInput{
				Target:        domain.Target{Table: tblDesigns, Record: recordWith()},
				ActiveTableID: "tbl1",
				ActiveView:    gridView,
			},
			wantKind: domain.PreviewSelectAttachment,
		},
		{
			name: "text field",
			in: PreviewInput{
				Target:        domain.Target{Table: tblDesigns, Field: fldText, Record: recordWith()},
				ActiveTableID: "tbl1",
				ActiveView:    gridView,
			},
			wantKind: domain.PreviewError,
			wantMsg:  msgNotAttachment,
		},
		{
			name: "empty cell",
			in: PreviewInput{
				Target:        domain.Target{Table: tblDesigns, Field: fldSketch, Record: recordWith()},
				ActiveTableID: "tbl1",
				ActiveView:    gridView,
			},
			wantKind: domain.PreviewError,
			wantMsg:  msgNoAttachments,
		},
		{
			name: "record opened from another table while enforced",
			in: PreviewInput{
				Settings:      enforced,
				Target:        domain.Target{Table: tblDesigns, Field: fldSketch, Record: recordWith(source("a").Attachment)},
				ActiveTableID: "tbl2",
			},
			wantKind: domain.PreviewReady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := newTestPipeline().Preview(context.Background(), newRemoteMock(), NewSanitizer(), tt.in)

			assert.Equal(t, tt.wantKind, got.Kind)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, got.Message)
			}
		})
	}
}

func TestPipeline_Preview_Ready(t *testing.T) {
	t.Parallel()

	rc := newRemoteMock()
	rc.SaveFunc = func(_ context.Context, _ string) (string, error) { return "f-1", nil }
	rc.ResultFunc = func(_ context.Context, _ string) (string, error) {
		return `<div class="card" style="color: red" onclick="steal()">Hi<script>alert(1)</script></div>`, nil
	}

	var resolved []string
	in := PreviewInput{
		Target:        domain.Target{Table: tblDesigns, Field: fldSketch, Record: recordWith(source("a").Attachment)},
		ActiveTableID: "tbl1",
		ActiveView:    gridView,
		ClientURL: func(_ context.Context, a domain.Attachment) (string, error) {
			resolved = append(resolved, a.ID)
			return a.URL + "?signed=1", nil
		},
	}

	got := newTestPipeline().Preview(context.Background(), rc, NewSanitizer(), in)

	require.Equal(t, domain.PreviewReady, got.Kind)
	require.NotNil(t, got.Entry)
	assert.Equal(t, []string{"a"}, resolved)
	assert.Equal(t, "https://api.test/layout/result/f-1", got.DownloadURL)
	assert.Equal(t, "https://api.test/layout/result/f-1?download=false", got.DevicePreviewURL)
	assert.Contains(t, got.Entry.HTML, "<script>")
	assert.NotContains(t, got.SanitizedHTML, "<script>")
	assert.NotContains(t, got.SanitizedHTML, "onclick")
	assert.Contains(t, got.SanitizedHTML, `class="card"`)
	assert.Contains(t, got.SanitizedHTML, "Hi")
}

func TestPipeline_Preview_ConversionError(t *testing.T) {
	t.Parallel()

	rc := newRemoteMock()
	rc.ResultFunc = func(_ context.Context, id string) (string, error) { return "", fmt.Errorf("status 500 for %s", id) }

	in := PreviewInput{
		Target:        domain.Target{Table: tblDesigns, Field: fldSketch, Record: recordWith(source("a").Attachment)},
		ActiveTableID: "tbl1",
		ActiveView:    gridView,
	}

	got := newTestPipeline().Preview(context.Background(), rc, NewSanitizer(), in)

	assert.Equal(t, domain.PreviewError, got.Kind)
	assert.Equal(t, msgConvertFailed, got.Message)
}
