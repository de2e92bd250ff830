package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/heartmarshall/sketch2code/internal/domain"
)

// settingsService defines the settings operations needed by SettingsHandler.
type settingsService interface {
	Current(ctx context.Context) (domain.SettingsResult, error)
	UpdateMany(ctx context.Context, values map[domain.ConfigKey]any) error
}

// SettingsHandler serves the extension settings.
type SettingsHandler struct {
	svc      settingsService
	sessions SessionLookup
	log      *slog.Logger
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(svc settingsService, sessions SessionLookup, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{svc: svc, sessions: sessions, log: logger.With("handler", "settings")}
}

type tableResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type fieldResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type settingsResponse struct {
	IsValid           bool           `json:"isValid"`
	Message           string         `json:"message,omitempty"`
	IsEnforced        bool           `json:"isEnforced"`
	URLTable          *tableResponse `json:"urlTable"`
	URLField          *fieldResponse `json:"urlField"`
	PrototypeURLField *fieldResponse `json:"prototypeUrlField"`
	IsCustomAPI       bool           `json:"isCustomApi"`
	CustomAPIURL      string         `json:"customApiUrl,omitempty"`
	CustomBlobStore   string         `json:"customBlobStore,omitempty"`
	RestrictMode      string         `json:"restrictMode"`
}

type settingsOpenRequest struct {
	Open bool `json:"open"`
}

// Get handles GET /api/settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Current(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(res))
}

// Update handles PUT /api/settings. The body is an object of persisted
// keys; nothing is written unless every pair is valid.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	values := make(map[domain.ConfigKey]any, len(body))
	for k, v := range body {
		values[domain.ConfigKey(k)] = v
	}

	if err := h.svc.UpdateMany(r.Context(), values); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	res, err := h.svc.Current(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(res))
}

// SetOpen handles POST /api/settings/open.
func (h *SettingsHandler) SetOpen(w http.ResponseWriter, r *http.Request) {
	var req settingsOpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, ok := h.sessions.fromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sess.SetSettingsOpen(req.Open)

	w.WriteHeader(http.StatusNoContent)
}

func toSettingsResponse(res domain.SettingsResult) settingsResponse {
	st := res.Settings
	return settingsResponse{
		IsValid:           res.IsValid,
		Message:           res.Message,
		IsEnforced:        st.IsEnforced,
		URLTable:          toTableResponse(st.URLTable),
		URLField:          toFieldResponse(st.URLField),
		PrototypeURLField: toFieldResponse(st.PrototypeURLField),
		IsCustomAPI:       st.IsCustomAPI,
		CustomAPIURL:      st.CustomAPIURL,
		CustomBlobStore:   st.CustomBlobStore,
		RestrictMode:      domain.ParseRestrictMode(st.RestrictMode.String()).String(),
	}
}

func toTableResponse(t *domain.Table) *tableResponse {
	if t == nil {
		return nil
	}
	return &tableResponse{ID: t.ID, Name: t.Name}
}

func toFieldResponse(f *domain.Field) *fieldResponse {
	if f == nil {
		return nil
	}
	return &fieldResponse{ID: f.ID, Name: f.Name, Type: f.Type.String()}
}
