package selection

import (
	"context"
	"errors"
	"testing"

	"github.com/heartmarshall/sketch2code/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type catalogMock struct {
	tables  map[string]*domain.Table
	fields  map[string]*domain.Field
	records map[string]*domain.Record
	err     error
}

func (m *catalogMock) TableByIDIfExists(_ context.Context, tableID string) (*domain.Table, error) {
	return m.tables[tableID], m.err
}

func (m *catalogMock) FieldByIDIfExists(_ context.Context, tableID, fieldID string) (*domain.Field, error) {
	f := m.fields[fieldID]
	if f == nil || f.TableID != tableID {
		return nil, m.err
	}
	return f, m.err
}

func (m *catalogMock) RecordByIDIfExists(_ context.Context, tableID, recordID string) (*domain.Record, error) {
	r := m.records[recordID]
	if r == nil || r.TableID != tableID {
		return nil, m.err
	}
	return r, m.err
}

var (
	tblDesigns = &domain.Table{ID: "tbl1", Name: "Designs"}
	tblOther   = &domain.Table{ID: "tbl2", Name: "Other"}
	fldSketch  = &domain.Field{ID: "fld1", TableID: "tbl1", Type: domain.FieldTypeMultipleAttachments}
	fldNotes   = &domain.Field{ID: "fld2", TableID: "tbl1", Type: domain.FieldTypeSingleLineText}
	recA       = &domain.Record{ID: "recA", TableID: "tbl1"}
	recB       = &domain.Record{ID: "recB", TableID: "tbl1"}
)

func newCatalog() *catalogMock {
	return &catalogMock{
		tables:  map[string]*domain.Table{"tbl1": tblDesigns, "tbl2": tblOther},
		fields:  map[string]*domain.Field{"fld1": fldSketch, "fld2": fldNotes},
		records: map[string]*domain.Record{"recA": recA, "recB": recB},
	}
}

func enforcedSettings() domain.Settings {
	return domain.Settings{IsEnforced: true, URLTable: tblDesigns, URLField: fldSketch}
}

func TestTracker_DeselectionKeepsPrevious(t *testing.T) {
	t.Parallel()

	tr := NewTracker()

	tr.SelectionChanged([]string{"recA", "recB"}, []string{"fld1"})
	rec, fld := tr.Selection()
	assert.Equal(t, "recA", rec)
	assert.Equal(t, "fld1", fld)

	tr.SelectionChanged(nil, nil)
	rec, fld = tr.Selection()
	assert.Equal(t, "recA", rec)
	assert.Equal(t, "fld1", fld)

	tr.SelectionChanged([]string{}, []string{"fld2"})
	rec, fld = tr.Selection()
	assert.Equal(t, "recA", rec)
	assert.Equal(t, "fld2", fld)
}

func TestTracker_ContextSwitchResets(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.SelectionChanged([]string{"recA"}, []string{"fld1"})

	tr.ContextSwitched()

	rec, fld := tr.Selection()
	assert.Empty(t, rec)
	assert.Empty(t, fld)
}

func TestTracker_KeyChangesOnMutation(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	k0 := tr.Key()

	tr.SelectionChanged([]string{"recA"}, nil)
	k1 := tr.Key()
	assert.NotEqual(t, k0, k1)

	tr.SelectionChanged(nil, nil)
	assert.Equal(t, k1, tr.Key(), "deselection is not a change")

	tr.ContextSwitched()
	tr.SelectionChanged([]string{"recA"}, nil)
	assert.NotEqual(t, k1, tr.Key(), "same ids after a reset still yield a new key")
}

func TestTracker_RecordAction(t *testing.T) {
	t.Parallel()

	t.Run("enforced and matching table adopts record", func(t *testing.T) {
		t.Parallel()

		tr := NewTracker()
		err := tr.RecordAction(domain.RecordAction{TableID: "tbl1", RecordID: "recB"}, enforcedSettings())

		require.NoError(t, err)
		rec, _ := tr.Selection()
		assert.Equal(t, "recB", rec)
	})

	t.Run("table mismatch names the enforced table", func(t *testing.T) {
		t.Parallel()

		tr := NewTracker()
		tr.SelectionChanged([]string{"recA"}, nil)
		before := tr.Key()

		err := tr.RecordAction(domain.RecordAction{TableID: "tbl2", RecordID: "recX"}, enforcedSettings())

		var mismatch *domain.SelectionMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Contains(t, mismatch.Message, `"Designs"`)
		assert.ErrorIs(t, err, domain.ErrSelectionMismatch)
		assert.Equal(t, before, tr.Key())
	})

	t.Run("not enforced", func(t *testing.T) {
		t.Parallel()

		tr := NewTracker()
		err := tr.RecordAction(domain.RecordAction{TableID: "tbl1", RecordID: "recA"}, domain.Settings{})

		require.ErrorIs(t, err, domain.ErrSelectionMismatch)
		assert.Contains(t, err.Error(), "Use a specific field for UI Sketches output")
		rec, _ := tr.Selection()
		assert.Empty(t, rec)
	})
}

func TestTracker_Resolve_Enforced(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.SelectionChanged([]string{"recA"}, []string{"fld2"})

	target, err := tr.Resolve(context.Background(), enforcedSettings(), "tbl2", newCatalog())

	require.NoError(t, err)
	assert.Same(t, tblDesigns, target.Table)
	assert.Same(t, fldSketch, target.Field, "configured field wins over the selected one")
	assert.Same(t, recA, target.Record)
}

func TestTracker_Resolve_ActiveTable(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.SelectionChanged([]string{"recB"}, []string{"fld2"})

	target, err := tr.Resolve(context.Background(), domain.Settings{}, "tbl1", newCatalog())

	require.NoError(t, err)
	assert.Same(t, tblDesigns, target.Table)
	assert.Same(t, fldNotes, target.Field)
	assert.Same(t, recB, target.Record)
	assert.Equal(t, "recB", target.RecordID())
}

func TestTracker_Resolve_DeletedEntities(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.SelectionChanged([]string{"recGone"}, []string{"fldGone"})

	target, err := tr.Resolve(context.Background(), domain.Settings{}, "tbl1", newCatalog())

	require.NoError(t, err)
	assert.Same(t, tblDesigns, target.Table)
	assert.Nil(t, target.Field)
	assert.False(t, target.HasRecord())

	target, err = tr.Resolve(context.Background(), domain.Settings{}, "tblGone", newCatalog())
	require.NoError(t, err)
	assert.Nil(t, target.Table)
	assert.Nil(t, target.Record)
}

func TestTracker_Resolve_CatalogError(t *testing.T) {
	t.Parallel()

	boom := errors.New("host down")
	cat := newCatalog()
	cat.err = boom

	tr := NewTracker()
	_, err := tr.Resolve(context.Background(), domain.Settings{}, "tbl1", cat)

	require.ErrorIs(t, err, boom)
}
