package rest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/heartmarshall/sketch2code/internal/domain"
	"github.com/heartmarshall/sketch2code/pkg/ctxutil"
)

// User-facing messages for errors that carry no message of their own.
const (
	msgSketchNotFound   = "No sketch found in this field. Save a sketch first."
	msgBusy             = "Another save or load is still running."
	msgSelectionChanged = "The selection changed before the operation finished."
	msgNoTarget         = "Select a record and a sketch field first."
	msgTransport        = "The sketch2code service could not be reached. Try again later."
	msgOrphaned         = "The sketch was uploaded but could not be attached to the record."
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// handleError maps domain errors onto HTTP statuses.
func handleError(log *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *domain.ValidationError
		ce *domain.ConfigurationError
		me *domain.SelectionMismatchError
	)

	// Orphaned uploads wrap the record write error, so they are matched first.
	switch {
	case errors.Is(err, domain.ErrOrphanedUpload):
		log.WarnContext(r.Context(), "orphaned upload",
			slog.String("request_id", ctxutil.RequestIDFromCtx(r.Context())),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, msgOrphaned)
	case errors.As(err, &ve):
		fields := make(map[string]string, len(ve.Errors))
		for _, fe := range ve.Errors {
			fields[fe.Field] = fe.Message
		}
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: ve.Error(), Fields: fields})
	case errors.As(err, &ce):
		writeError(w, http.StatusUnprocessableEntity, ce.Message)
	case errors.As(err, &me):
		writeError(w, http.StatusConflict, me.Message)
	case errors.Is(err, domain.ErrBusy):
		writeError(w, http.StatusConflict, msgBusy)
	case errors.Is(err, domain.ErrSelectionChanged):
		writeError(w, http.StatusConflict, msgSelectionChanged)
	case errors.Is(err, domain.ErrNoTarget):
		writeError(w, http.StatusConflict, msgNoTarget)
	case errors.Is(err, domain.ErrSketchNotFound):
		writeError(w, http.StatusNotFound, msgSketchNotFound)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrTransport), errors.Is(err, domain.ErrInvalidSnapshot):
		log.WarnContext(r.Context(), "remote call failed",
			slog.String("request_id", ctxutil.RequestIDFromCtx(r.Context())),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, msgTransport)
	default:
		log.ErrorContext(r.Context(), "internal error",
			slog.String("request_id", ctxutil.RequestIDFromCtx(r.Context())),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
