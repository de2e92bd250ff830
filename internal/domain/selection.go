package domain

// TargetSelection is the tracked record/field pair within a table.
// Ids are opaque and resolved lazily; empty means nothing selected.
type TargetSelection struct {
	Table    *Table
	RecordID string
	FieldID  string
}

// Target is a TargetSelection resolved against the host catalog.
// Any of the pointers may be nil when the entity is unset or was deleted.
type Target struct {
	Table  *Table
	Field  *Field
	Record *Record
}

// HasRecord reports whether a record is resolved.
func (t Target) HasRecord() bool { return t.Record != nil }

// FieldID returns the resolved field id or "".
func (t Target) FieldID() string {
	if t.Field == nil {
		return ""
	}
	return t.Field.ID
}

// RecordID returns the resolved record id or "".
func (t Target) RecordID() string {
	if t.Record == nil {
		return ""
	}
	return t.Record.ID
}

// RecordAction is an externally triggered request to open a record,
// for example from a button field.
type RecordAction struct {
	TableID  string `json:"tableId"`
	ViewID   string `json:"viewId,omitempty"`
	RecordID string `json:"recordId"`
}

// SelectionKey identifies the selection an async operation started under.
type SelectionKey struct {
	Generation uint64
	RecordID   string
	FieldID    string
}
