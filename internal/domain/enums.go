package domain

// FieldType is the host's type tag for a table field.
type FieldType string

const (
	FieldTypeMultipleAttachments FieldType = "multipleAttachments"
	FieldTypeURL                 FieldType = "url"
	FieldTypeBarcode             FieldType = "barcode"
	FieldTypeSingleLineText      FieldType = "singleLineText"
	FieldTypeMultilineText       FieldType = "multilineText"
	FieldTypeNumber              FieldType = "number"
	FieldTypeCheckbox            FieldType = "checkbox"
)

func (t FieldType) String() string { return string(t) }

func (t FieldType) IsValid() bool {
	switch t {
	case FieldTypeMultipleAttachments, FieldTypeURL, FieldTypeBarcode,
		FieldTypeSingleLineText, FieldTypeMultilineText, FieldTypeNumber, FieldTypeCheckbox:
		return true
	}
	return false
}

// ViewType is the host's type tag for a table view.
type ViewType string

const (
	ViewTypeGrid     ViewType = "grid"
	ViewTypeForm     ViewType = "form"
	ViewTypeCalendar ViewType = "calendar"
	ViewTypeGallery  ViewType = "gallery"
	ViewTypeKanban   ViewType = "kanban"
)

func (t ViewType) String() string { return string(t) }

func (t ViewType) IsValid() bool {
	switch t {
	case ViewTypeGrid, ViewTypeForm, ViewTypeCalendar, ViewTypeGallery, ViewTypeKanban:
		return true
	}
	return false
}

// RestrictMode limits the extension to sketch editing, code preview, or both.
type RestrictMode string

const (
	RestrictModeSketch RestrictMode = "sketch"
	RestrictModeCode   RestrictMode = "code"
	RestrictModeBoth   RestrictMode = "both"
)

// DefaultRestrictMode is used when the persisted value is missing or unknown.
const DefaultRestrictMode = RestrictModeBoth

func (m RestrictMode) String() string { return string(m) }

func (m RestrictMode) IsValid() bool {
	switch m {
	case RestrictModeSketch, RestrictModeCode, RestrictModeBoth:
		return true
	}
	return false
}

// ParseRestrictMode returns the mode for s, falling back to DefaultRestrictMode.
func ParseRestrictMode(s string) RestrictMode {
	m := RestrictMode(s)
	if !m.IsValid() {
		return DefaultRestrictMode
	}
	return m
}

// ViewMode is the surface currently shown when both surfaces are allowed.
type ViewMode string

const (
	ViewModeSketch ViewMode = "sketch"
	ViewModeCode   ViewMode = "code"
)

func (m ViewMode) IsValid() bool {
	return m == ViewModeSketch || m == ViewModeCode
}

// Tool is the active drawing tool of the canvas.
type Tool string

const (
	ToolPencil    Tool = "pencil"
	ToolLine      Tool = "line"
	ToolRectangle Tool = "rectangle"
	ToolCircle    Tool = "circle"
	ToolSelect    Tool = "select"
	ToolPan       Tool = "pan"
)

func (t Tool) IsValid() bool {
	switch t {
	case ToolPencil, ToolLine, ToolRectangle, ToolCircle, ToolSelect, ToolPan:
		return true
	}
	return false
}

// PreviewKind classifies what the code surface should render.
type PreviewKind string

const (
	PreviewSwitchTable      PreviewKind = "switch_table"
	PreviewSwitchView       PreviewKind = "switch_view"
	PreviewSelectAttachment PreviewKind = "select_attachment"
	PreviewError            PreviewKind = "error"
	PreviewReady            PreviewKind = "ready"
)
