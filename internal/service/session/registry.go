package session

import (
	"log/slog"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Registry keeps one Session per installation. Sessions share the stateless
// services but no mutable state.
type Registry struct {
	log  *slog.Logger
	deps *deps

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a new session registry.
func NewRegistry(
	logger *slog.Logger,
	settings settingsService,
	catalog catalog,
	sketches sketchService,
	remote RemoteFactory,
	sanitizer *bluemonday.Policy,
	maxConcurrent int,
) *Registry {
	return &Registry{
		log: logger,
		deps: &deps{
			settings:      settings,
			catalog:       catalog,
			sketches:      sketches,
			remote:        remote,
			sanitizer:     sanitizer,
			maxConcurrent: maxConcurrent,
		},
		sessions: make(map[string]*Session),
	}
}

// Get returns the session of installationID, creating it on first use.
func (r *Registry) Get(installationID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[installationID]; ok {
		return s
	}
	s := newSession(installationID, r.log, r.deps)
	r.sessions[installationID] = s
	r.log.Info("session created", slog.String("installation_id", installationID))
	return s
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
