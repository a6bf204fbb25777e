package handler

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// WithTelemetry wraps next with OpenTelemetry HTTP server instrumentation.
// Each request produces a server span and request duration metrics through
// the globally registered tracer and meter providers.
func WithTelemetry(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "auth.http")
}
