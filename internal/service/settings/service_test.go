package settings

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/heartmarshall/sketch2code/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type catalogMock struct {
	tables map[string]*domain.Table
	fields map[string]*domain.Field
	err    error
}

func (m *catalogMock) TableByIDIfExists(_ context.Context, tableID string) (*domain.Table, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.tables[tableID], nil
}

func (m *catalogMock) FieldByIDIfExists(_ context.Context, tableID, fieldID string) (*domain.Field, error) {
	if m.err != nil {
		return nil, m.err
	}
	f := m.fields[fieldID]
	if f == nil || f.TableID != tableID {
		return nil, nil
	}
	return f, nil
}

type storeMock struct {
	AllFunc func(ctx context.Context) (map[domain.ConfigKey]any, error)
	SetFunc func(ctx context.Context, key domain.ConfigKey, value any) error

	setCalls []domain.ConfigKey
}

func (m *storeMock) All(ctx context.Context) (map[domain.ConfigKey]any, error) {
	return m.AllFunc(ctx)
}

func (m *storeMock) Set(ctx context.Context, key domain.ConfigKey, value any) error {
	m.setCalls = append(m.setCalls, key)
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var (
	tblDesigns  = &domain.Table{ID: "tbl1", Name: "Designs"}
	fldSketches = &domain.Field{ID: "fld1", TableID: "tbl1", Name: "Sketches", Type: domain.FieldTypeMultipleAttachments}
	fldNotes    = &domain.Field{ID: "fld2", TableID: "tbl1", Name: "Notes", Type: domain.FieldTypeSingleLineText}
	fldLink     = &domain.Field{ID: "fld3", TableID: "tbl1", Name: "Link", Type: domain.FieldTypeURL}
	fldCode     = &domain.Field{ID: "fld4", TableID: "tbl1", Name: "Code", Type: domain.FieldTypeBarcode}
	fldOther    = &domain.Field{ID: "fld9", TableID: "tbl2", Name: "Elsewhere", Type: domain.FieldTypeMultipleAttachments}
)

func newCatalog() *catalogMock {
	return &catalogMock{
		tables: map[string]*domain.Table{"tbl1": tblDesigns, "tbl2": {ID: "tbl2", Name: "Other"}},
		fields: map[string]*domain.Field{
			"fld1": fldSketches, "fld2": fldNotes, "fld3": fldLink, "fld4": fldCode, "fld9": fldOther,
		},
	}
}

func newTestService(store configStore, catalog Catalog) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, store, catalog, Endpoints{
		APIURL:  "https://api.default.test",
		BlobURL: "https://blob.default.test",
	})
}

// ---------------------------------------------------------------------------
// Resolve / Validate
// ---------------------------------------------------------------------------

func TestResolve_ValidityGrid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     domain.RawConfig
		wantMsg string
	}{
		{
			name: "empty config is valid",
			raw:  domain.RawConfig{},
		},
		{
			name:    "enforced without table",
			raw:     domain.RawConfig{IsEnforced: true},
			wantMsg: MsgSelectTable,
		},
		{
			name:    "enforced with deleted table",
			raw:     domain.RawConfig{IsEnforced: true, URLTableID: "gone", URLFieldID: "fld1"},
			wantMsg: MsgSelectTable,
		},
		{
			name:    "enforced without field",
			raw:     domain.RawConfig{IsEnforced: true, URLTableID: "tbl1"},
			wantMsg: MsgSelectField,
		},
		{
			name:    "field from another table is not resolved",
			raw:     domain.RawConfig{IsEnforced: true, URLTableID: "tbl1", URLFieldID: "fld9"},
			wantMsg: MsgSelectField,
		},
		{
			name:    "enforced with text field",
			raw:     domain.RawConfig{IsEnforced: true, URLTableID: "tbl1", URLFieldID: "fld2"},
			wantMsg: MsgSelectAttachment,
		},
		{
			name: "enforced with attachment field",
			raw:  domain.RawConfig{IsEnforced: true, URLTableID: "tbl1", URLFieldID: "fld1"},
		},
		{
			name:    "custom api without api url",
			raw:     domain.RawConfig{IsCustomAPI: true, CustomBlobStore: "https://b"},
			wantMsg: MsgProvideAPIURL,
		},
		{
			name:    "custom api without blob store",
			raw:     domain.RawConfig{IsCustomAPI: true, CustomAPIURL: "https://a"},
			wantMsg: MsgProvideBlobStore,
		},
		{
			name: "custom api complete",
			raw:  domain.RawConfig{IsCustomAPI: true, CustomAPIURL: "https://a", CustomBlobStore: "https://b"},
		},
		{
			name:    "prototype field of wrong type",
			raw:     domain.RawConfig{URLTableID: "tbl1", PrototypeURLFieldID: "fld2"},
			wantMsg: MsgSelectPrototypeURL,
		},
		{
			name: "prototype url field",
			raw:  domain.RawConfig{URLTableID: "tbl1", PrototypeURLFieldID: "fld3"},
		},
		{
			name: "prototype barcode field",
			raw:  domain.RawConfig{URLTableID: "tbl1", PrototypeURLFieldID: "fld4"},
		},
		{
			name: "custom api url ignored when switch is off",
			raw:  domain.RawConfig{CustomAPIURL: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := Resolve(context.Background(), tt.raw, newCatalog())
			require.NoError(t, err)

			assert.Equal(t, tt.wantMsg == "", result.IsValid)
			assert.Equal(t, tt.wantMsg, result.Message)
		})
	}
}

func TestResolve_FirstFailureWins(t *testing.T) {
	t.Parallel()

	// Every rule is violated at once; only the first message is reported.
	raw := domain.RawConfig{
		IsEnforced:  true,
		IsCustomAPI: true,
	}

	result, err := Resolve(context.Background(), raw, newCatalog())

	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Equal(t, "Please select a table for sketches.", result.Message)
}

func TestResolve_AttachmentRuleBeforeCustomAPI(t *testing.T) {
	t.Parallel()

	raw := domain.RawConfig{
		IsEnforced:          true,
		URLTableID:          "tbl1",
		URLFieldID:          "fld2",
		IsCustomAPI:         true,
		PrototypeURLFieldID: "fld2",
	}

	result, err := Resolve(context.Background(), raw, newCatalog())

	require.NoError(t, err)
	assert.Equal(t, MsgSelectAttachment, result.Message)
}

func TestResolve_ResolvesEntitiesAndRestrictMode(t *testing.T) {
	t.Parallel()

	raw := domain.RawConfig{
		IsEnforced:          true,
		URLTableID:          "tbl1",
		URLFieldID:          "fld1",
		PrototypeURLFieldID: "fld3",
		RestrictMode:        "bogus",
	}

	result, err := Resolve(context.Background(), raw, newCatalog())

	require.NoError(t, err)
	require.True(t, result.IsValid)
	assert.Same(t, tblDesigns, result.Settings.URLTable)
	assert.Same(t, fldSketches, result.Settings.URLField)
	assert.Same(t, fldLink, result.Settings.PrototypeURLField)
	assert.Equal(t, domain.RestrictModeBoth, result.Settings.RestrictMode)
	assert.NoError(t, result.Err())
}

func TestResolve_NoTableMeansNoFields(t *testing.T) {
	t.Parallel()

	raw := domain.RawConfig{URLFieldID: "fld1", PrototypeURLFieldID: "fld2"}

	result, err := Resolve(context.Background(), raw, newCatalog())

	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Nil(t, result.Settings.URLField)
	assert.Nil(t, result.Settings.PrototypeURLField)
}

func TestResolve_CatalogError(t *testing.T) {
	t.Parallel()

	boom := errors.New("host unavailable")
	_, err := Resolve(context.Background(), domain.RawConfig{URLTableID: "tbl1"}, &catalogMock{err: boom})

	require.ErrorIs(t, err, boom)
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

func TestService_Current_ReadsStoreEveryTime(t *testing.T) {
	t.Parallel()

	values := map[domain.ConfigKey]any{
		domain.ConfigKeyIsEnforced: true,
	}
	store := &storeMock{
		AllFunc: func(ctx context.Context) (map[domain.ConfigKey]any, error) { return values, nil },
	}
	svc := newTestService(store, newCatalog())

	first, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MsgSelectTable, first.Message)
	require.ErrorIs(t, first.Err(), domain.ErrConfigurationInvalid)

	values = map[domain.ConfigKey]any{
		domain.ConfigKeyIsEnforced: true,
		domain.ConfigKeyURLTableID: "tbl1",
		domain.ConfigKeyURLFieldID: "fld1",
	}

	second, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.True(t, second.IsValid)
}

func TestService_Current_StoreError(t *testing.T) {
	t.Parallel()

	boom := errors.New("db down")
	store := &storeMock{
		AllFunc: func(ctx context.Context) (map[domain.ConfigKey]any, error) { return nil, boom },
	}
	svc := newTestService(store, newCatalog())

	_, err := svc.Current(context.Background())

	require.ErrorIs(t, err, boom)
}

func TestService_Update(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		key     domain.ConfigKey
		value   any
		wantErr bool
	}{
		{name: "bool key", key: domain.ConfigKeyIsEnforced, value: true},
		{name: "bool key with string", key: domain.ConfigKeyIsCustomAPI, value: "true", wantErr: true},
		{name: "string key", key: domain.ConfigKeyURLTableID, value: "tbl1"},
		{name: "string key with number", key: domain.ConfigKeyURLFieldID, value: 3, wantErr: true},
		{name: "restrict mode", key: domain.ConfigKeyRestrictMode, value: "code"},
		{name: "bad restrict mode", key: domain.ConfigKeyRestrictMode, value: "draw", wantErr: true},
		{name: "unknown key", key: "theme", value: "dark", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &storeMock{}
			svc := newTestService(store, newCatalog())

			err := svc.Update(context.Background(), tt.key, tt.value)

			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrValidation)
				assert.Empty(t, store.setCalls)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []domain.ConfigKey{tt.key}, store.setCalls)
		})
	}
}

func TestService_UpdateMany_AllOrNothing(t *testing.T) {
	t.Parallel()

	store := &storeMock{}
	svc := newTestService(store, newCatalog())

	err := svc.UpdateMany(context.Background(), map[domain.ConfigKey]any{
		domain.ConfigKeyURLTableID:   "tbl1",
		domain.ConfigKeyIsEnforced:   "yes",
		domain.ConfigKeyRestrictMode: "nope",
	})

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
	assert.Empty(t, store.setCalls)
}

func TestService_UpdateMany_WritesInKeyOrder(t *testing.T) {
	t.Parallel()

	store := &storeMock{}
	svc := newTestService(store, newCatalog())

	err := svc.UpdateMany(context.Background(), map[domain.ConfigKey]any{
		domain.ConfigKeyURLFieldID: "fld1",
		domain.ConfigKeyIsEnforced: true,
		domain.ConfigKeyURLTableID: "tbl1",
	})

	require.NoError(t, err)
	assert.Equal(t, []domain.ConfigKey{
		domain.ConfigKeyIsEnforced,
		domain.ConfigKeyURLTableID,
		domain.ConfigKeyURLFieldID,
	}, store.setCalls)
}

func TestService_Endpoints(t *testing.T) {
	t.Parallel()

	svc := newTestService(&storeMock{}, newCatalog())

	assert.Equal(t, Endpoints{APIURL: "https://api.default.test", BlobURL: "https://blob.default.test"},
		svc.Endpoints(domain.Settings{}))
	assert.Equal(t, Endpoints{APIURL: "https://api.default.test", BlobURL: "https://blob.default.test"},
		svc.Endpoints(domain.Settings{CustomAPIURL: "https://mine.test", CustomBlobStore: "https://mine-blob.test"}))
	assert.Equal(t, Endpoints{APIURL: "https://mine.test", BlobURL: "https://mine-blob.test"},
		svc.Endpoints(domain.Settings{IsCustomAPI: true, CustomAPIURL: "https://mine.test", CustomBlobStore: "https://mine-blob.test"}))
}
