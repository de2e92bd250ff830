// Package globalconfig persists the extension's key-value configuration
// per host installation.
package globalconfig

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartmarshall/sketch2code/internal/adapter/postgres"
	"github.com/heartmarshall/sketch2code/internal/domain"
	"github.com/heartmarshall/sketch2code/pkg/ctxutil"
)

// Store reads and writes configuration values of the installation carried
// by the request context.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a new config store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// All returns every persisted value. Keys never written are absent.
func (s *Store) All(ctx context.Context) (map[domain.ConfigKey]any, error) {
	installationID, ok := ctxutil.InstallationIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	query, args, err := postgres.Builder.
		Select("key", "value").
		From("extension_config").
		Where(squirrel.Eq{"installation_id": installationID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build config query: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query config: %w", err)
	}
	defer rows.Close()

	values := make(map[domain.ConfigKey]any)
	for rows.Next() {
		var (
			key string
			raw []byte
		)
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("scan config: %w", err)
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", key, err)
		}
		values[domain.ConfigKey(key)] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate config: %w", err)
	}

	return values, nil
}

// Get returns the value stored under key, or nil when it was never written.
func (s *Store) Get(ctx context.Context, key domain.ConfigKey) (any, error) {
	values, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return values[key], nil
}

// Set writes value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key domain.ConfigKey, value any) error {
	installationID, ok := ctxutil.InstallationIDFromCtx(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode config %s: %w", key, err)
	}

	query, args, err := postgres.Builder.
		Insert("extension_config").
		Columns("installation_id", "key", "value").
		Values(installationID, string(key), raw).
		Suffix("ON CONFLICT (installation_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()").
		ToSql()
	if err != nil {
		return fmt.Errorf("build config upsert: %w", err)
	}

	if _, err := postgres.QuerierFromCtx(ctx, s.pool).Exec(ctx, query, args...); err != nil {
		return postgres.MapError(err, "config", string(key))
	}
	return nil
}
