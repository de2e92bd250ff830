// Package session ties settings, selection, persistence and conversion
// together for one installation of the extension.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/heartmarshall/sketch2code/internal/domain"
	"github.com/heartmarshall/sketch2code/internal/service/conversion"
	"github.com/heartmarshall/sketch2code/internal/service/restrict"
	"github.com/heartmarshall/sketch2code/internal/service/selection"
	"github.com/heartmarshall/sketch2code/internal/service/settings"
	"github.com/heartmarshall/sketch2code/internal/service/sketch"
)

// Remote is the conversion service client as used by a session.
type Remote interface {
	sketch.Remote
	conversion.Remote
}

// RemoteFactory returns the client for a pair of endpoints.
type RemoteFactory func(apiURL, blobURL string) Remote

// settingsService defines the settings operations needed by a session.
type settingsService interface {
	Current(ctx context.Context) (domain.SettingsResult, error)
	Endpoints(s domain.Settings) settings.Endpoints
}

// catalog defines the host catalog lookups needed by a session.
type catalog interface {
	selection.Catalog
	ViewByIDIfExists(ctx context.Context, tableID, viewID string) (*domain.View, error)
	AttachmentClientURL(ctx context.Context, tableID, recordID string, a domain.Attachment) (string, error)
}

// sketchService defines the persistence operations needed by a session.
type sketchService interface {
	Save(ctx context.Context, rc sketch.Remote, target domain.Target, drawing domain.Drawing) ([2]domain.Attachment, error)
	Load(ctx context.Context, rc sketch.Remote, target domain.Target) (domain.SketchSnapshot, error)
}

type deps struct {
	settings      settingsService
	catalog       catalog
	sketches      sketchService
	remote        RemoteFactory
	sanitizer     *bluemonday.Policy
	maxConcurrent int
}

// Target identifies the resolved table, field and record by id and name.
type Target struct {
	TableID   string `json:"tableId,omitempty"`
	TableName string `json:"tableName,omitempty"`
	FieldID   string `json:"fieldId,omitempty"`
	FieldName string `json:"fieldName,omitempty"`
	FieldType string `json:"fieldType,omitempty"`
	RecordID  string `json:"recordId,omitempty"`
	HasSketch bool   `json:"hasSketch"`
}

// State is the full view model of a session.
type State struct {
	Settings     domain.SettingsResult
	SettingsOpen bool
	Notice       string
	Target       Target
	Surface      restrict.Surface
	CanSave      bool
	CanLoad      bool
	Saving       bool
	Loading      bool
	Tool         domain.Tool
	Snapshot     domain.SketchSnapshot
}

// Session is the mutable state of one installation. Network calls run
// outside the lock; results are applied only if the selection has not
// moved in the meantime.
type Session struct {
	id       string
	log      *slog.Logger
	deps     *deps
	tracker  *selection.Tracker
	gate     *restrict.Gate
	pipeline *conversion.Pipeline

	mu            sync.Mutex
	activeTableID string
	activeViewID  string
	saving        bool
	loading       bool
	tool          domain.Tool
	snapshot      domain.SketchSnapshot
	settingsOpen  bool
	notice        string
	autoLoaded    *autoLoadKey
}

// autoLoadKey identifies one selection of one field. A new selection, even
// of a record seen before, produces a new key.
type autoLoadKey struct {
	selection domain.SelectionKey
	fieldID   string
}

func newSession(id string, logger *slog.Logger, d *deps) *Session {
	return &Session{
		id:         id,
		log:        logger.With("service", "session", slog.String("installation_id", id)),
		deps:       d,
		tracker:    selection.NewTracker(),
		gate:       restrict.NewGate(),
		pipeline:   conversion.NewPipeline(logger, d.maxConcurrent),
		tool:       domain.ToolPencil,
	}
}

// ID returns the installation id the session belongs to.
func (s *Session) ID() string { return s.id }

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

// SelectionChanged records a cursor selection change.
func (s *Session) SelectionChanged(recordIDs, fieldIDs []string) {
	before, _ := s.tracker.Selection()
	s.tracker.SelectionChanged(recordIDs, fieldIDs)
	after, _ := s.tracker.Selection()

	if before != after {
		s.mu.Lock()
		s.notice = ""
		s.mu.Unlock()
	}
}

// ContextSwitched records a table or view switch and drops the selection.
func (s *Session) ContextSwitched(tableID, viewID string) {
	s.mu.Lock()
	s.activeTableID = tableID
	s.activeViewID = viewID
	s.notice = ""
	s.mu.Unlock()

	s.tracker.ContextSwitched()
}

// RecordAction applies a record opened from outside the extension. It is
// ignored while the settings form is open. A mismatch is kept as a notice
// and returned.
func (s *Session) RecordAction(ctx context.Context, action domain.RecordAction) error {
	res, err := s.deps.settings.Current(ctx)
	if err != nil {
		return fmt.Errorf("session.RecordAction: %w", err)
	}

	s.mu.Lock()
	open := s.settingsOpen || !res.IsValid
	s.mu.Unlock()
	if open {
		s.log.DebugContext(ctx, "record action ignored while settings are open")
		return nil
	}

	if err := s.tracker.RecordAction(action, res.Settings); err != nil {
		var mismatch *domain.SelectionMismatchError
		if errors.As(err, &mismatch) {
			s.mu.Lock()
			s.notice = mismatch.Message
			s.mu.Unlock()
		}
		return err
	}

	s.mu.Lock()
	s.notice = ""
	s.mu.Unlock()

	return nil
}

// DismissNotice clears the record action notice.
func (s *Session) DismissNotice() {
	s.mu.Lock()
	s.notice = ""
	s.mu.Unlock()
}

// SetSettingsOpen opens or closes the settings form. It stays open while
// the settings are invalid regardless of this flag.
func (s *Session) SetSettingsOpen(open bool) {
	s.mu.Lock()
	s.settingsOpen = open
	s.notice = ""
	s.mu.Unlock()
}

// SetMode switches between the sketch and code surfaces.
func (s *Session) SetMode(mode domain.ViewMode) error {
	return s.gate.SetMode(mode)
}

// SetTool changes the active drawing tool.
func (s *Session) SetTool(tool domain.Tool) error {
	if !tool.IsValid() {
		return domain.NewValidationError("tool", "unknown tool")
	}
	s.mu.Lock()
	s.tool = tool
	s.mu.Unlock()
	return nil
}

// ---------------------------------------------------------------------------
// State
// ---------------------------------------------------------------------------

// State resolves the current view model. When the sketch-only surface
// targets the configured field of a record, the stored sketch is loaded
// once per selection. A load that fails for any reason other than a
// missing sketch is attempted again on the next call.
func (s *Session) State(ctx context.Context) (State, error) {
	res, err := s.deps.settings.Current(ctx)
	if err != nil {
		return State{}, fmt.Errorf("session.State: %w", err)
	}

	if !res.IsValid {
		st := s.snapshotState()
		st.Settings = res
		st.SettingsOpen = true
		return st, nil
	}

	target, err := s.resolve(ctx, res.Settings)
	if err != nil {
		return State{}, fmt.Errorf("session.State: %w", err)
	}
	surface := s.gate.Project(res.Settings, target)

	st := s.snapshotState()
	if surface.AutoLoad && !st.SettingsOpen {
		if key, ok := s.claimAutoLoad(target); ok {
			if _, err := s.Load(ctx); err != nil && !errors.Is(err, domain.ErrSketchNotFound) {
				s.releaseAutoLoad(key)
				s.log.WarnContext(ctx, "auto-load failed",
					slog.String("record_id", target.RecordID()),
					slog.String("error", err.Error()),
				)
			}
			st = s.snapshotState()
		}
	}

	st.Settings = res
	st.Target = describe(target)
	st.Surface = surface
	st.CanSave = sketch.CanPersist(target, st.Saving, st.Loading)
	st.CanLoad = st.CanSave

	return st, nil
}

func (s *Session) snapshotState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		SettingsOpen: s.settingsOpen,
		Notice:       s.notice,
		Saving:       s.saving,
		Loading:      s.loading,
		Tool:         s.tool,
		Snapshot:     s.snapshot,
	}
}

func (s *Session) claimAutoLoad(target domain.Target) (autoLoadKey, bool) {
	key := autoLoadKey{selection: s.tracker.Key(), fieldID: target.FieldID()}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.autoLoaded != nil && *s.autoLoaded == key {
		return key, false
	}
	s.autoLoaded = &key
	return key, true
}

func (s *Session) releaseAutoLoad(key autoLoadKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.autoLoaded != nil && *s.autoLoaded == key {
		s.autoLoaded = nil
	}
}

// ---------------------------------------------------------------------------
// Save / Load / Preview
// ---------------------------------------------------------------------------

// Save stores drawing on the current target.
func (s *Session) Save(ctx context.Context, drawing domain.Drawing) ([2]domain.Attachment, error) {
	var none [2]domain.Attachment

	res, target, rc, err := s.prepare(ctx)
	if err != nil {
		return none, fmt.Errorf("session.Save: %w", err)
	}

	key, err := s.begin(&s.saving, target)
	if err != nil {
		return none, err
	}
	defer s.end(&s.saving)

	saved, err := s.deps.sketches.Save(ctx, rc, target, drawing)
	if err != nil {
		return none, err
	}

	if s.tracker.Key() != key {
		s.log.InfoContext(ctx, "selection changed during save",
			slog.String("record_id", target.RecordID()))
	}

	s.log.InfoContext(ctx, "sketch saved",
		slog.String("record_id", target.RecordID()),
		slog.Bool("enforced", res.Settings.IsEnforced),
	)

	return saved, nil
}

// Load reads the stored sketch of the current target into the session and
// switches to the select tool. A missing sketch leaves the session as it was.
func (s *Session) Load(ctx context.Context) (domain.SketchSnapshot, error) {
	_, target, rc, err := s.prepare(ctx)
	if err != nil {
		return nil, fmt.Errorf("session.Load: %w", err)
	}

	key, err := s.begin(&s.loading, target)
	if err != nil {
		return nil, err
	}
	defer s.end(&s.loading)

	snapshot, err := s.deps.sketches.Load(ctx, rc, target)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tracker.Key() != key {
		s.log.InfoContext(ctx, "selection changed during load, result dropped",
			slog.String("record_id", target.RecordID()))
		return nil, domain.ErrSelectionChanged
	}

	s.snapshot = snapshot
	s.tool = domain.ToolSelect

	return snapshot, nil
}

// Preview converts the current target's attachments and projects the
// result for the code surface.
func (s *Session) Preview(ctx context.Context) (domain.Preview, error) {
	res, target, rc, err := s.prepare(ctx)
	if err != nil {
		return domain.Preview{}, fmt.Errorf("session.Preview: %w", err)
	}

	s.mu.Lock()
	activeTableID, activeViewID := s.activeTableID, s.activeViewID
	s.mu.Unlock()

	var view *domain.View
	if activeTableID != "" && activeViewID != "" {
		view, err = s.deps.catalog.ViewByIDIfExists(ctx, activeTableID, activeViewID)
		if err != nil {
			return domain.Preview{}, fmt.Errorf("session.Preview: resolve view: %w", err)
		}
	}

	in := conversion.PreviewInput{
		Settings:      res.Settings,
		Target:        target,
		ActiveTableID: activeTableID,
		ActiveView:    view,
	}
	if target.Table != nil && target.Record != nil {
		tableID, recordID := target.Table.ID, target.Record.ID
		in.ClientURL = func(ctx context.Context, a domain.Attachment) (string, error) {
			return s.deps.catalog.AttachmentClientURL(ctx, tableID, recordID, a)
		}
	}

	return s.pipeline.Preview(ctx, rc, s.deps.sanitizer, in), nil
}

// prepare resolves valid settings, the target and the client to use.
func (s *Session) prepare(ctx context.Context) (domain.SettingsResult, domain.Target, Remote, error) {
	res, err := s.deps.settings.Current(ctx)
	if err != nil {
		return res, domain.Target{}, nil, err
	}
	if err := res.Err(); err != nil {
		return res, domain.Target{}, nil, err
	}

	target, err := s.resolve(ctx, res.Settings)
	if err != nil {
		return res, domain.Target{}, nil, err
	}

	ep := s.deps.settings.Endpoints(res.Settings)
	return res, target, s.deps.remote(ep.APIURL, ep.BlobURL), nil
}

func (s *Session) resolve(ctx context.Context, st domain.Settings) (domain.Target, error) {
	s.mu.Lock()
	activeTableID := s.activeTableID
	s.mu.Unlock()

	return s.tracker.Resolve(ctx, st, activeTableID, s.deps.catalog)
}

// begin sets flag unless any operation is in flight and returns the
// selection key the operation starts under.
func (s *Session) begin(flag *bool, target domain.Target) (domain.SelectionKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saving || s.loading {
		return domain.SelectionKey{}, domain.ErrBusy
	}
	if !sketch.CanPersist(target, false, false) {
		return domain.SelectionKey{}, domain.ErrNoTarget
	}
	*flag = true
	return s.tracker.Key(), nil
}

func (s *Session) end(flag *bool) {
	s.mu.Lock()
	*flag = false
	s.mu.Unlock()
}

func describe(t domain.Target) Target {
	var d Target
	if t.Table != nil {
		d.TableID, d.TableName = t.Table.ID, t.Table.Name
	}
	if t.Field != nil {
		d.FieldID, d.FieldName, d.FieldType = t.Field.ID, t.Field.Name, t.Field.Type.String()
	}
	if t.Record != nil {
		d.RecordID = t.Record.ID
		_, d.HasSketch = t.Record.FindAttachment(d.FieldID, domain.SketchJSONFilename)
	}
	return d
}
