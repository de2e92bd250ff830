// Package settings reads the persisted extension configuration, resolves it
// against the host catalog and validates it.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/heartmarshall/sketch2code/internal/domain"
)

// configStore defines the persisted key-value store needed by the settings service.
type configStore interface {
	All(ctx context.Context) (map[domain.ConfigKey]any, error)
	Set(ctx context.Context, key domain.ConfigKey, value any) error
}

// Endpoints is a pair of remote service bases.
type Endpoints struct {
	APIURL  string
	BlobURL string
}

// Service implements configuration reads and writes.
type Service struct {
	log      *slog.Logger
	store    configStore
	catalog  Catalog
	defaults Endpoints
}

// NewService creates a new settings service. defaults are used whenever the
// custom API switch is off.
func NewService(logger *slog.Logger, store configStore, catalog Catalog, defaults Endpoints) *Service {
	return &Service{
		log:      logger.With("service", "settings"),
		store:    store,
		catalog:  catalog,
		defaults: defaults,
	}
}

// Current reads every persisted key and resolves a fresh snapshot.
// Nothing is cached: each call reflects the store as it is now.
func (s *Service) Current(ctx context.Context) (domain.SettingsResult, error) {
	values, err := s.store.All(ctx)
	if err != nil {
		return domain.SettingsResult{}, fmt.Errorf("settings.Current: %w", err)
	}

	result, err := Resolve(ctx, domain.RawConfigFromValues(values), s.catalog)
	if err != nil {
		return domain.SettingsResult{}, fmt.Errorf("settings.Current: %w", err)
	}

	return result, nil
}

// Update persists a single key after checking its name and value type.
func (s *Service) Update(ctx context.Context, key domain.ConfigKey, value any) error {
	if err := validateValue(key, value); err != nil {
		return err
	}

	if err := s.store.Set(ctx, key, value); err != nil {
		return fmt.Errorf("settings.Update: %w", err)
	}

	s.log.InfoContext(ctx, "setting updated", slog.String("key", key.String()))

	return nil
}

// UpdateMany validates every pair before writing any of them.
func (s *Service) UpdateMany(ctx context.Context, values map[domain.ConfigKey]any) error {
	var errs []domain.FieldError
	for key, v := range values {
		var ve *domain.ValidationError
		if err := validateValue(key, v); errors.As(err, &ve) {
			errs = append(errs, ve.Errors...)
		}
	}
	if len(errs) > 0 {
		slices.SortFunc(errs, func(a, b domain.FieldError) int { return strings.Compare(a.Field, b.Field) })
		return &domain.ValidationError{Errors: errs}
	}

	for _, key := range domain.ConfigKeys {
		v, ok := values[key]
		if !ok {
			continue
		}
		if err := s.store.Set(ctx, key, v); err != nil {
			return fmt.Errorf("settings.UpdateMany: %w", err)
		}
	}

	s.log.InfoContext(ctx, "settings updated", slog.Int("keys", len(values)))

	return nil
}

// Endpoints returns the remote bases the snapshot points at.
func (s *Service) Endpoints(settings domain.Settings) Endpoints {
	if settings.IsCustomAPI && settings.CustomAPIURL != "" && settings.CustomBlobStore != "" {
		return Endpoints{APIURL: settings.CustomAPIURL, BlobURL: settings.CustomBlobStore}
	}
	return s.defaults
}

func validateValue(key domain.ConfigKey, value any) error {
	if !key.IsValid() {
		return domain.NewValidationError(key.String(), "unknown key")
	}

	if key.IsBool() {
		if _, ok := value.(bool); !ok {
			return domain.NewValidationError(key.String(), "must be a boolean")
		}
		return nil
	}

	str, ok := value.(string)
	if !ok {
		return domain.NewValidationError(key.String(), "must be a string")
	}

	if key == domain.ConfigKeyRestrictMode && !domain.RestrictMode(str).IsValid() {
		return domain.NewValidationError(key.String(), "must be one of sketch, code, both")
	}

	return nil
}
