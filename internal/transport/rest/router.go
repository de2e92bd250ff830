package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heartmarshall/sketch2code/internal/config"
	"github.com/heartmarshall/sketch2code/internal/transport/middleware"
)

// hostVerifier validates host tokens.
type hostVerifier interface {
	Verify(token string) (string, error)
}

// RouterDeps are the handlers and collaborators mounted by NewRouter.
type RouterDeps struct {
	Health   *HealthHandler
	Settings *SettingsHandler
	Session  *SessionHandler
	Verifier hostVerifier
	Limiter  *middleware.RateLimiter
	Logger   *slog.Logger
	Server   config.ServerConfig
	CORS     config.CORSConfig
}

// NewRouter mounts the health probes and the authenticated /api surface.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(d.Logger),
		middleware.CORS(d.CORS),
	)

	r.Get("/live", d.Health.Live)
	r.Get("/ready", d.Health.Ready)
	r.Get("/health", d.Health.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(
			middleware.HostAuth(d.Verifier, d.Logger),
			middleware.Logger(d.Logger),
			middleware.MaxBody(d.Server.MaxBodyBytes),
		)

		r.Get("/settings", d.Settings.Get)
		r.Put("/settings", d.Settings.Update)
		r.Post("/settings/open", d.Settings.SetOpen)

		r.Post("/events/selection", d.Session.Selection)
		r.Post("/events/context", d.Session.Context)
		r.Post("/events/record-action", d.Session.RecordAction)
		r.Delete("/notice", d.Session.DismissNotice)

		r.Get("/state", d.Session.State)
		r.Post("/mode", d.Session.Mode)
		r.Post("/tool", d.Session.Tool)

		// Each of these reaches the remote conversion service.
		r.Group(func(r chi.Router) {
			if d.Limiter != nil && d.Server.RemoteRatePerMinute > 0 {
				r.Use(d.Limiter.Limit(d.Server.RemoteRatePerMinute))
			}
			r.Post("/sketch/save", d.Session.Save)
			r.Post("/sketch/load", d.Session.Load)
			r.Get("/preview", d.Session.Preview)
		})
	})

	return r
}
