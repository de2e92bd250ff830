// Package selection tracks which record and field the extension targets.
package selection

import (
	"context"
	"fmt"
	"sync"

	"github.com/heartmarshall/sketch2code/internal/domain"
)

// Messages reported for record actions that cannot be applied.
const (
	msgTableMismatch = "This block is set up to show HTML Output using records from the %q table, but was opened from a different table."
	msgNotEnforced   = "You must enable \"Use a specific field for UI Sketches output\" to transform sketches with a button field."
)

// Catalog is the part of the host catalog the tracker resolves against.
// Lookups return (nil, nil) for ids that do not exist.
type Catalog interface {
	TableByIDIfExists(ctx context.Context, tableID string) (*domain.Table, error)
	FieldByIDIfExists(ctx context.Context, tableID, fieldID string) (*domain.Field, error)
	RecordByIDIfExists(ctx context.Context, tableID, recordID string) (*domain.Record, error)
}

// Tracker holds the last selected record and field. Deselection keeps the
// previous ids; table and view switches clear them.
type Tracker struct {
	mu         sync.Mutex
	recordID   string
	fieldID    string
	generation uint64
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// SelectionChanged adopts the first id of each non-empty list. An empty list
// leaves the corresponding id untouched.
func (t *Tracker) SelectionChanged(recordIDs, fieldIDs []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := false
	if len(recordIDs) > 0 && recordIDs[0] != t.recordID {
		t.recordID = recordIDs[0]
		changed = true
	}
	if len(fieldIDs) > 0 && fieldIDs[0] != t.fieldID {
		t.fieldID = fieldIDs[0]
		changed = true
	}
	if changed {
		t.generation++
	}
}

// ContextSwitched clears the selection after a table or view switch.
func (t *Tracker) ContextSwitched() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.recordID = ""
	t.fieldID = ""
	t.generation++
}

// RecordAction applies an externally opened record. On error the selection
// is left as it was.
func (t *Tracker) RecordAction(action domain.RecordAction, settings domain.Settings) error {
	if !settings.IsEnforced {
		return &domain.SelectionMismatchError{Message: msgNotEnforced}
	}
	if settings.URLTable == nil || action.TableID != settings.URLTable.ID {
		name := ""
		if settings.URLTable != nil {
			name = settings.URLTable.Name
		}
		return &domain.SelectionMismatchError{Message: fmt.Sprintf(msgTableMismatch, name)}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.recordID != action.RecordID {
		t.recordID = action.RecordID
		t.generation++
	}

	return nil
}

// Selection returns the raw tracked ids.
func (t *Tracker) Selection() (recordID, fieldID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recordID, t.fieldID
}

// Key returns the current selection key. Any mutation produces a new key.
func (t *Tracker) Key() domain.SelectionKey {
	t.mu.Lock()
	defer t.mu.Unlock()
	return domain.SelectionKey{Generation: t.generation, RecordID: t.recordID, FieldID: t.fieldID}
}

// Resolve looks up the target for the given settings. When enforced the
// configured table and field win over the active table and the selected
// field. Missing entities resolve to nil.
func (t *Tracker) Resolve(ctx context.Context, settings domain.Settings, activeTableID string, catalog Catalog) (domain.Target, error) {
	recordID, fieldID := t.Selection()

	var target domain.Target

	if settings.IsEnforced {
		target.Table = settings.URLTable
		target.Field = settings.URLField
	} else if activeTableID != "" {
		table, err := catalog.TableByIDIfExists(ctx, activeTableID)
		if err != nil {
			return domain.Target{}, fmt.Errorf("resolve active table: %w", err)
		}
		target.Table = table
	}

	if target.Table == nil {
		return target, nil
	}

	if !settings.IsEnforced && fieldID != "" {
		field, err := catalog.FieldByIDIfExists(ctx, target.Table.ID, fieldID)
		if err != nil {
			return domain.Target{}, fmt.Errorf("resolve selected field: %w", err)
		}
		target.Field = field
	}

	if recordID != "" {
		record, err := catalog.RecordByIDIfExists(ctx, target.Table.ID, recordID)
		if err != nil {
			return domain.Target{}, fmt.Errorf("resolve selected record: %w", err)
		}
		target.Record = record
	}

	return target, nil
}
