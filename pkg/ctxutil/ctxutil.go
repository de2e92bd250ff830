package ctxutil

import "context"

type ctxKey string

const (
	installationIDKey ctxKey = "installation_id"
	requestIDKey      ctxKey = "request_id"
)

// WithInstallationID stores the host installation ID in the context.
func WithInstallationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, installationIDKey, id)
}

// InstallationIDFromCtx extracts the installation ID from the context.
// Returns "" and false if the value is missing, empty, or wrong type.
func InstallationIDFromCtx(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(installationIDKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx extracts the request ID from the context.
// Returns an empty string if absent.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
