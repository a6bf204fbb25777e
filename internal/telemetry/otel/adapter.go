package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"auth-service/internal/audit"
	auditdomain "auth-service/internal/audit/domain"
)

// NewAuditEmitter returns an audit.Emitter that mirrors audit entries as OTel
// log records via the given LoggerProvider. If provider is nil, returns a
// no-op emitter.
func NewAuditEmitter(provider *sdklog.LoggerProvider) audit.Emitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger("auth.audit")}
}

// NewAuditEmitterWithLogger returns an emitter writing to the given logger.
// Test seam; production code goes through NewAuditEmitter.
func NewAuditEmitterWithLogger(logger otellog.Logger) audit.Emitter {
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *auditdomain.AuditLog) error { return nil }

type otelEmitter struct {
	logger otellog.Logger
}

// Emit converts the audit entry to an OTel log record and emits it.
func (e *otelEmitter) Emit(ctx context.Context, entry *auditdomain.AuditLog) error {
	if entry == nil {
		return nil
	}
	rec := otellog.Record{}
	if !entry.CreatedAt.IsZero() {
		rec.SetTimestamp(entry.CreatedAt)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	rec.SetBody(otellog.StringValue(entry.Action))
	if entry.UserID != "" {
		rec.AddAttributes(otellog.String("user_id", entry.UserID))
	}
	if entry.Resource != "" {
		rec.AddAttributes(otellog.String("resource", entry.Resource))
	}
	if entry.IP != "" {
		rec.AddAttributes(otellog.String("ip", entry.IP))
	}
	if entry.Metadata != "" {
		rec.AddAttributes(otellog.String("metadata", entry.Metadata))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
