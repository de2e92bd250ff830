package sketch2code

import (
	"encoding/base64"
	"strings"
)

// Media markers prefixed to payloads sent to SaveOriginalFile. The service
// only reads the part after the comma.
const (
	MediaPNG  = "image/png"
	MediaJSON = "application/json"
)

// DataURI encodes data as a base64 data URI of the given media type.
func DataURI(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// StripDataURI returns the payload after the first comma, or s unchanged
// when it carries no prefix.
func StripDataURI(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if _, payload, ok := strings.Cut(s, ","); ok {
		return payload
	}
	return s
}

// DecodeDataURI decodes a base64 data URI or a bare base64 string.
func DecodeDataURI(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(StripDataURI(s))
}
