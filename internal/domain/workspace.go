package domain

// Table is a host table as seen by the extension.
type Table struct {
	ID   string
	Name string
}

// Field is a column of a host table.
type Field struct {
	ID      string
	TableID string
	Name    string
	Type    FieldType
}

// IsAttachment reports whether the field can hold sketch attachments.
func (f *Field) IsAttachment() bool {
	return f != nil && f.Type == FieldTypeMultipleAttachments
}

// View is a host view of a table.
type View struct {
	ID      string
	TableID string
	Name    string
	Type    ViewType
}

// Attachment is one file referenced from an attachment cell.
type Attachment struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Record is a host record with the attachment cells the extension reads.
type Record struct {
	ID          string
	TableID     string
	Attachments map[string][]Attachment
}

// CellAttachments returns the attachments stored under fieldID.
// A nil record or an empty cell both yield nil.
func (r *Record) CellAttachments(fieldID string) []Attachment {
	if r == nil {
		return nil
	}
	return r.Attachments[fieldID]
}

// FindAttachment returns the first attachment in the cell named filename.
func (r *Record) FindAttachment(fieldID, filename string) (Attachment, bool) {
	for _, a := range r.CellAttachments(fieldID) {
		if a.Filename == filename {
			return a, true
		}
	}
	return Attachment{}, false
}

// NewAttachment is an attachment to be written to a record; the host assigns the id.
type NewAttachment struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}
