package testhelper

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/sketch2code/internal/domain"
)

// UniqueID returns prefix followed by a short random suffix.
func UniqueID(prefix string) string {
	return prefix + uuid.New().String()[:8]
}

// SeedTable inserts a table with a unique id.
func SeedTable(t *testing.T, pool *pgxpool.Pool, name string) domain.Table {
	t.Helper()

	tbl := domain.Table{ID: UniqueID("tbl"), Name: name}
	_, err := pool.Exec(context.Background(),
		`INSERT INTO ws_tables (id, name) VALUES ($1, $2)`, tbl.ID, tbl.Name)
	if err != nil {
		t.Fatalf("testhelper: SeedTable: %v", err)
	}
	return tbl
}

// SeedField inserts a field of the given type into tableID.
func SeedField(t *testing.T, pool *pgxpool.Pool, tableID, name string, typ domain.FieldType) domain.Field {
	t.Helper()

	f := domain.Field{ID: UniqueID("fld"), TableID: tableID, Name: name, Type: typ}
	_, err := pool.Exec(context.Background(),
		`INSERT INTO ws_fields (id, table_id, name, type) VALUES ($1, $2, $3, $4)`,
		f.ID, f.TableID, f.Name, string(f.Type))
	if err != nil {
		t.Fatalf("testhelper: SeedField: %v", err)
	}
	return f
}

// SeedView inserts a view of the given type into tableID.
func SeedView(t *testing.T, pool *pgxpool.Pool, tableID string, typ domain.ViewType) domain.View {
	t.Helper()

	v := domain.View{ID: UniqueID("viw"), TableID: tableID, Name: string(typ) + " view", Type: typ}
	_, err := pool.Exec(context.Background(),
		`INSERT INTO ws_views (id, table_id, name, type) VALUES ($1, $2, $3, $4)`,
		v.ID, v.TableID, v.Name, string(v.Type))
	if err != nil {
		t.Fatalf("testhelper: SeedView: %v", err)
	}
	return v
}

// SeedRecord inserts an empty record into tableID.
func SeedRecord(t *testing.T, pool *pgxpool.Pool, tableID string) domain.Record {
	t.Helper()

	r := domain.Record{ID: UniqueID("rec"), TableID: tableID, Attachments: map[string][]domain.Attachment{}}
	_, err := pool.Exec(context.Background(),
		`INSERT INTO ws_records (id, table_id) VALUES ($1, $2)`, r.ID, r.TableID)
	if err != nil {
		t.Fatalf("testhelper: SeedRecord: %v", err)
	}
	return r
}
