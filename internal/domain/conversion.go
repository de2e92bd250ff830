package domain

// ConversionEntry is the converted HTML for one source attachment.
type ConversionEntry struct {
	AttachmentID  string `json:"attachmentId"`
	HTML          string `json:"html"`
	CorrelationID string `json:"correlationId"`
}

// Preview is what the code surface renders for the current target.
type Preview struct {
	Kind    PreviewKind `json:"kind"`
	Message string      `json:"message,omitempty"`
	// Set when Kind is PreviewReady.
	Entry            *ConversionEntry `json:"entry,omitempty"`
	SanitizedHTML    string           `json:"sanitizedHtml,omitempty"`
	DownloadURL      string           `json:"downloadUrl,omitempty"`
	DevicePreviewURL string           `json:"devicePreviewUrl,omitempty"`
}
