// Package workspace implements the reference host catalog using PostgreSQL.
// It serves table, field, view and record lookups and rewrites the
// attachment cells of a record.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartmarshall/sketch2code/internal/adapter/postgres"
	"github.com/heartmarshall/sketch2code/internal/domain"
)

// txManager defines the transaction runner needed by the repository.
type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Repo provides workspace persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
	tx   txManager
}

// New creates a new workspace repository.
func New(pool *pgxpool.Pool, tx txManager) *Repo {
	return &Repo{pool: pool, tx: tx}
}

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

// TableByIDIfExists returns the table, or nil when it does not exist.
func (r *Repo) TableByIDIfExists(ctx context.Context, tableID string) (*domain.Table, error) {
	if tableID == "" {
		return nil, nil
	}

	query, args, err := postgres.Builder.
		Select("id", "name").
		From("ws_tables").
		Where(squirrel.Eq{"id": tableID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build table query: %w", err)
	}

	var t domain.Table
	err = postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&t.ID, &t.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, postgres.MapError(err, "table", tableID)
	}
	return &t, nil
}

// FieldByIDIfExists returns the field of tableID, or nil when the field does
// not exist or belongs to another table.
func (r *Repo) FieldByIDIfExists(ctx context.Context, tableID, fieldID string) (*domain.Field, error) {
	if tableID == "" || fieldID == "" {
		return nil, nil
	}

	query, args, err := postgres.Builder.
		Select("id", "table_id", "name", "type").
		From("ws_fields").
		Where(squirrel.Eq{"id": fieldID, "table_id": tableID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build field query: %w", err)
	}

	var (
		f   domain.Field
		typ string
	)
	err = postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&f.ID, &f.TableID, &f.Name, &typ)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, postgres.MapError(err, "field", fieldID)
	}
	f.Type = domain.FieldType(typ)
	return &f, nil
}

// ViewByIDIfExists returns the view of tableID, or nil when it does not exist.
func (r *Repo) ViewByIDIfExists(ctx context.Context, tableID, viewID string) (*domain.View, error) {
	if tableID == "" || viewID == "" {
		return nil, nil
	}

	query, args, err := postgres.Builder.
		Select("id", "table_id", "name", "type").
		From("ws_views").
		Where(squirrel.Eq{"id": viewID, "table_id": tableID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build view query: %w", err)
	}

	var (
		v   domain.View
		typ string
	)
	err = postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&v.ID, &v.TableID, &v.Name, &typ)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, postgres.MapError(err, "view", viewID)
	}
	v.Type = domain.ViewType(typ)
	return &v, nil
}

// RecordByIDIfExists returns the record of tableID with every attachment
// cell, or nil when it does not exist. Attachments keep their cell order.
func (r *Repo) RecordByIDIfExists(ctx context.Context, tableID, recordID string) (*domain.Record, error) {
	if tableID == "" || recordID == "" {
		return nil, nil
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)

	query, args, err := postgres.Builder.
		Select("id", "table_id").
		From("ws_records").
		Where(squirrel.Eq{"id": recordID, "table_id": tableID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build record query: %w", err)
	}

	rec := domain.Record{Attachments: make(map[string][]domain.Attachment)}
	err = q.QueryRow(ctx, query, args...).Scan(&rec.ID, &rec.TableID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, postgres.MapError(err, "record", recordID)
	}

	query, args, err = postgres.Builder.
		Select("id", "field_id", "url", "filename").
		From("ws_attachments").
		Where(squirrel.Eq{"record_id": recordID}).
		OrderBy("field_id", "position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build attachments query: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id      uuid.UUID
			fieldID string
			a       domain.Attachment
		)
		if err := rows.Scan(&id, &fieldID, &a.URL, &a.Filename); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		a.ID = id.String()
		rec.Attachments[fieldID] = append(rec.Attachments[fieldID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}

	return &rec, nil
}

// AttachmentClientURL returns the URL a client can download a from.
// Attachments without an id are not stored yet and are served from their own URL.
func (r *Repo) AttachmentClientURL(ctx context.Context, tableID, recordID string, a domain.Attachment) (string, error) {
	if a.ID == "" {
		return a.URL, nil
	}

	id, err := uuid.Parse(a.ID)
	if err != nil {
		return "", fmt.Errorf("attachment %s: %w", a.ID, domain.ErrNotFound)
	}

	query, args, err := postgres.Builder.
		Select("a.url").
		From("ws_attachments a").
		Join("ws_records r ON r.id = a.record_id").
		Where(squirrel.Eq{"a.id": id, "a.record_id": recordID, "r.table_id": tableID}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build attachment url query: %w", err)
	}

	var u string
	if err := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&u); err != nil {
		return "", postgres.MapError(err, "attachment", a.ID)
	}
	return u, nil
}

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

// UpdateRecordAttachments replaces the listed attachment cells of a record
// in one transaction and returns the record as stored.
func (r *Repo) UpdateRecordAttachments(
	ctx context.Context,
	tableID, recordID string,
	cells map[string][]domain.NewAttachment,
) (*domain.Record, error) {
	var out *domain.Record

	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, r.pool)

		var locked string
		err := q.QueryRow(ctx,
			`SELECT id FROM ws_records WHERE id = $1 AND table_id = $2 FOR UPDATE`,
			recordID, tableID,
		).Scan(&locked)
		if err != nil {
			return postgres.MapError(err, "record", recordID)
		}

		fieldIDs := make([]string, 0, len(cells))
		for id := range cells {
			fieldIDs = append(fieldIDs, id)
		}
		slices.Sort(fieldIDs)

		for _, fieldID := range fieldIDs {
			if err := r.replaceCell(ctx, q, tableID, recordID, fieldID, cells[fieldID]); err != nil {
				return err
			}
		}

		if _, err := q.Exec(ctx, `UPDATE ws_records SET updated_at = now() WHERE id = $1`, recordID); err != nil {
			return fmt.Errorf("touch record: %w", err)
		}

		rec, err := r.RecordByIDIfExists(ctx, tableID, recordID)
		if err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("workspace.UpdateRecordAttachments: %w", err)
	}

	return out, nil
}

func (r *Repo) replaceCell(
	ctx context.Context,
	q postgres.Querier,
	tableID, recordID, fieldID string,
	attachments []domain.NewAttachment,
) error {
	field, err := r.FieldByIDIfExists(ctx, tableID, fieldID)
	if err != nil {
		return err
	}
	if field == nil {
		return fmt.Errorf("field %s: %w", fieldID, domain.ErrNotFound)
	}
	if !field.IsAttachment() {
		return domain.NewValidationError(fieldID, "not an attachment field")
	}

	query, args, err := postgres.Builder.
		Delete("ws_attachments").
		Where(squirrel.Eq{"record_id": recordID, "field_id": fieldID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete attachments: %w", err)
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete attachments: %w", err)
	}

	if len(attachments) == 0 {
		return nil
	}

	insert := postgres.Builder.
		Insert("ws_attachments").
		Columns("id", "record_id", "field_id", "position", "url", "filename")
	for i, a := range attachments {
		if a.URL == "" || a.Filename == "" {
			return domain.NewValidationError(fieldID, "attachment url and filename are required")
		}
		insert = insert.Values(uuid.New(), recordID, fieldID, i, a.URL, a.Filename)
	}

	query, args, err = insert.ToSql()
	if err != nil {
		return fmt.Errorf("build insert attachments: %w", err)
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return postgres.MapError(err, "attachments of record", recordID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Catalog writes
// ---------------------------------------------------------------------------

// CreateTable inserts a table.
func (r *Repo) CreateTable(ctx context.Context, t domain.Table) error {
	return r.insert(ctx, "table", t.ID, postgres.Builder.
		Insert("ws_tables").
		Columns("id", "name").
		Values(t.ID, t.Name))
}

// CreateField inserts a field. The type must be one the host knows.
func (r *Repo) CreateField(ctx context.Context, f domain.Field) error {
	if !f.Type.IsValid() {
		return domain.NewValidationError("type", fmt.Sprintf("unknown field type %q", f.Type))
	}
	return r.insert(ctx, "field", f.ID, postgres.Builder.
		Insert("ws_fields").
		Columns("id", "table_id", "name", "type").
		Values(f.ID, f.TableID, f.Name, string(f.Type)))
}

// CreateView inserts a view. The type must be one the host knows.
func (r *Repo) CreateView(ctx context.Context, v domain.View) error {
	if !v.Type.IsValid() {
		return domain.NewValidationError("type", fmt.Sprintf("unknown view type %q", v.Type))
	}
	return r.insert(ctx, "view", v.ID, postgres.Builder.
		Insert("ws_views").
		Columns("id", "table_id", "name", "type").
		Values(v.ID, v.TableID, v.Name, string(v.Type)))
}

// CreateRecord inserts an empty record.
func (r *Repo) CreateRecord(ctx context.Context, tableID, recordID string) error {
	return r.insert(ctx, "record", recordID, postgres.Builder.
		Insert("ws_records").
		Columns("id", "table_id").
		Values(recordID, tableID))
}

func (r *Repo) insert(ctx context.Context, entity, id string, b squirrel.InsertBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build %s insert: %w", entity, err)
	}
	if _, err := postgres.QuerierFromCtx(ctx, r.pool).Exec(ctx, query, args...); err != nil {
		return postgres.MapError(err, entity, id)
	}
	return nil
}
