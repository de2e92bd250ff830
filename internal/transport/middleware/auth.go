package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/heartmarshall/sketch2code/pkg/ctxutil"
)

type hostVerifier interface {
	Verify(token string) (string, error)
}

// HostAuth rejects requests without a valid host bearer token and stores the
// token's installation id in the request context.
func HostAuth(verifier hostVerifier, logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			installationID, err := verifier.Verify(token)
			if err != nil {
				logger.WarnContext(r.Context(), "host token rejected",
					slog.String("request_id", ctxutil.RequestIDFromCtx(r.Context())),
					slog.String("error", err.Error()),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			ctx := ctxutil.WithInstallationID(r.Context(), installationID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
