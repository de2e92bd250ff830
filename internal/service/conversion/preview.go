package conversion

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/microcosm-cc/bluemonday"

	"github.com/heartmarshall/sketch2code/internal/domain"
)

// Preview messages.
const (
	msgSwitchTable      = "Switch to the “%s” table to see previews."
	msgSwitchView       = "Switch to a grid view to see previews"
	msgSelectAttachment = "Select a sketch attachment to generate its HTML web page."
	msgNotAttachment    = "Please select an attachment field with your UI sketch(es) to see the output."
	msgNoAttachments    = "There are no attachments. Add a sketch to see its prototype here."
	msgConvertFailed    = "Could not convert the sketch. Try again later."
)

// PreviewInput is everything the code surface depends on.
type PreviewInput struct {
	Settings      domain.Settings
	Target        domain.Target
	ActiveTableID string
	// ActiveView is nil while the host is switching views.
	ActiveView *domain.View
	// ClientURL resolves the download URL of an attachment in Target.Record.
	ClientURL func(ctx context.Context, a domain.Attachment) (string, error)
}

// NewSanitizer returns the policy applied to converted HTML before it is
// embedded. Layout markup keeps its inline styles and classes.
func NewSanitizer() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowStyling()
	p.AllowStyles(
		"color", "background-color", "font-size", "font-weight", "text-align",
		"margin", "padding", "width", "height", "display", "border", "border-radius",
	).Globally()
	p.AllowElements("button", "input", "label", "select", "option", "textarea", "form", "nav", "header", "footer", "section")
	p.AllowAttrs("type", "placeholder", "value", "name").OnElements("input", "button", "textarea", "select", "option")
	return p
}

// Preview decides what the code surface shows for in. Converting the
// displayed attachments happens here; failures surface as an error state
// rather than as a returned error.
func (p *Pipeline) Preview(ctx context.Context, rc Remote, sanitizer *bluemonday.Policy, in PreviewInput) domain.Preview {
	s := in.Settings
	t := in.Target

	if s.IsEnforced && s.URLTable != nil && in.ActiveTableID != s.URLTable.ID && !t.HasRecord() {
		return domain.Preview{Kind: domain.PreviewSwitchTable, Message: fmt.Sprintf(msgSwitchTable, s.URLTable.Name)}
	}

	if !t.HasRecord() && (in.ActiveView == nil || in.ActiveView.Type != domain.ViewTypeGrid) {
		return domain.Preview{Kind: domain.PreviewSwitchView, Message: msgSwitchView}
	}

	if !t.HasRecord() || t.Field == nil {
		return domain.Preview{Kind: domain.PreviewSelectAttachment, Message: msgSelectAttachment}
	}

	if !t.Field.IsAttachment() {
		return domain.Preview{Kind: domain.PreviewError, Message: msgNotAttachment}
	}

	attachments := t.Record.CellAttachments(t.Field.ID)
	if len(attachments) == 0 {
		return domain.Preview{Kind: domain.PreviewError, Message: msgNoAttachments}
	}

	sources := make([]Source, 0, len(attachments))
	for _, a := range attachments {
		clientURL := a.URL
		if in.ClientURL != nil {
			u, err := in.ClientURL(ctx, a)
			if err != nil {
				return domain.Preview{Kind: domain.PreviewError, Message: err.Error()}
			}
			clientURL = u
		}
		sources = append(sources, Source{Attachment: a, ClientURL: clientURL})
	}

	if err := p.ConvertAll(ctx, rc, sources); err != nil {
		p.log.WarnContext(ctx, "conversion failed",
			slog.String("record_id", t.Record.ID),
			slog.String("error", err.Error()),
		)
	}

	entry, ok := p.Displayed(attachments)
	if !ok {
		return domain.Preview{Kind: domain.PreviewError, Message: msgConvertFailed}
	}

	return domain.Preview{
		Kind:             domain.PreviewReady,
		Entry:            &entry,
		SanitizedHTML:    sanitizer.Sanitize(entry.HTML),
		DownloadURL:      rc.ResultURL(entry.CorrelationID, nil),
		DevicePreviewURL: rc.ResultURL(entry.CorrelationID, url.Values{"download": {"false"}}),
	}
}
