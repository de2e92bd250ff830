package domain

import "encoding/json"

// Filenames of the two attachments written on every save.
const (
	SketchImageFilename = "sketch.png"
	SketchJSONFilename  = "sketch.json"
)

// SketchSnapshot is the structured drawing state. Only the canvas
// understands its contents.
type SketchSnapshot = json.RawMessage

// Drawing is the export side of the canvas capability.
type Drawing interface {
	// PNG renders the current drawing as a PNG image.
	PNG() ([]byte, error)
	// Snapshot exports the current drawing as structured JSON.
	Snapshot() (SketchSnapshot, error)
}

// ExportedDrawing is a Drawing whose exports were produced elsewhere,
// typically by the host-side canvas widget.
type ExportedDrawing struct {
	Image []byte
	JSON  SketchSnapshot
}

func (d ExportedDrawing) PNG() ([]byte, error) {
	if len(d.Image) == 0 {
		return nil, NewValidationError("image", "required")
	}
	return d.Image, nil
}

func (d ExportedDrawing) Snapshot() (SketchSnapshot, error) {
	if len(d.JSON) == 0 || !json.Valid(d.JSON) {
		return nil, NewValidationError("snapshot", "must be valid JSON")
	}
	return d.JSON, nil
}
