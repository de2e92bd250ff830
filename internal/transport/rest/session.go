package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/heartmarshall/sketch2code/internal/adapter/provider/sketch2code"
	"github.com/heartmarshall/sketch2code/internal/domain"
	"github.com/heartmarshall/sketch2code/internal/service/restrict"
	"github.com/heartmarshall/sketch2code/internal/service/session"
	"github.com/heartmarshall/sketch2code/pkg/ctxutil"
)

// Session is the per-installation state machine driven by the host.
type Session interface {
	SelectionChanged(recordIDs, fieldIDs []string)
	ContextSwitched(tableID, viewID string)
	RecordAction(ctx context.Context, action domain.RecordAction) error
	DismissNotice()
	SetSettingsOpen(open bool)
	SetMode(mode domain.ViewMode) error
	SetTool(tool domain.Tool) error
	State(ctx context.Context) (session.State, error)
	Save(ctx context.Context, drawing domain.Drawing) ([2]domain.Attachment, error)
	Load(ctx context.Context) (domain.SketchSnapshot, error)
	Preview(ctx context.Context) (domain.Preview, error)
}

// SessionLookup returns the session of an installation.
type SessionLookup func(installationID string) Session

func (l SessionLookup) fromRequest(r *http.Request) (Session, bool) {
	id, ok := ctxutil.InstallationIDFromCtx(r.Context())
	if !ok {
		return nil, false
	}
	return l(id), true
}

// SessionHandler serves host events and sketch operations.
type SessionHandler struct {
	sessions SessionLookup
	log      *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(sessions SessionLookup, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, log: logger.With("handler", "session")}
}

type selectionRequest struct {
	RecordIDs []string `json:"recordIds"`
	FieldIDs  []string `json:"fieldIds"`
}

type contextRequest struct {
	TableID string `json:"tableId"`
	ViewID  string `json:"viewId"`
}

type modeRequest struct {
	Mode domain.ViewMode `json:"mode"`
}

type toolRequest struct {
	Tool domain.Tool `json:"tool"`
}

type saveRequest struct {
	// Image is a PNG data URI or bare base64.
	Image    string          `json:"image"`
	Snapshot json.RawMessage `json:"snapshot"`
}

type saveResponse struct {
	Attachments [2]domain.Attachment `json:"attachments"`
}

type loadResponse struct {
	Snapshot json.RawMessage `json:"snapshot"`
}

type stateResponse struct {
	Settings     settingsResponse `json:"settings"`
	SettingsOpen bool             `json:"settingsOpen"`
	Notice       string           `json:"notice,omitempty"`
	Target       session.Target   `json:"target"`
	Surface      restrict.Surface `json:"surface"`
	CanSave      bool             `json:"canSave"`
	CanLoad      bool             `json:"canLoad"`
	Saving       bool             `json:"saving"`
	Loading      bool             `json:"loading"`
	Tool         domain.Tool      `json:"tool"`
	Snapshot     json.RawMessage  `json:"snapshot,omitempty"`
}

// Selection handles POST /api/events/selection.
func (h *SessionHandler) Selection(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.fromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.SelectionChanged(req.RecordIDs, req.FieldIDs)
	w.WriteHeader(http.StatusNoContent)
}

// Context handles POST /api/events/context.
func (h *SessionHandler) Context(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.fromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req contextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.ContextSwitched(req.TableID, req.ViewID)
	w.WriteHeader(http.StatusNoContent)
}

// RecordAction handles POST /api/events/record-action.
func (h *SessionHandler) RecordAction(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.fromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req domain.RecordAction
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.RecordAction(r.Context(), req); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DismissNotice handles DELETE /api/notice.
func (h *SessionHandler) DismissNotice(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.fromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	s.DismissNotice()
	w.WriteHeader(http.StatusNoContent)
}

// Mode handles POST /api/mode.
func (h *SessionHandler) Mode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.fromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.SetMode(req.Mode); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Tool handles POST /api/tool.
func (h *SessionHandler) Tool(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.fromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req toolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.SetTool(req.Tool); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// State handles GET /api/state.
func (h *SessionHandler) State(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.fromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	st, err := s.State(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{
		Settings:     toSettingsResponse(st.Settings),
		SettingsOpen: st.SettingsOpen,
		Notice:       st.Notice,
		Target:       st.Target,
		Surface:      st.Surface,
		CanSave:      st.CanSave,
		CanLoad:      st.CanLoad,
		Saving:       st.Saving,
		Loading:      st.Loading,
		Tool:         st.Tool,
		Snapshot:     json.RawMessage(st.Snapshot),
	})
}

// Save handles POST /api/sketch/save.
func (h *SessionHandler) Save(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.fromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	img, err := sketch2code.DecodeDataURI(req.Image)
	if err != nil {
		handleError(h.log, w, r, domain.NewValidationError("image", "must be a base64 PNG data URI"))
		return
	}

	saved, err := s.Save(r.Context(), domain.ExportedDrawing{Image: img, JSON: domain.SketchSnapshot(req.Snapshot)})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{Attachments: saved})
}

// Load handles POST /api/sketch/load.
func (h *SessionHandler) Load(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.fromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	snapshot, err := s.Load(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loadResponse{Snapshot: json.RawMessage(snapshot)})
}

// Preview handles GET /api/preview.
func (h *SessionHandler) Preview(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.fromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	p, err := s.Preview(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
