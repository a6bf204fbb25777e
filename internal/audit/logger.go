package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"auth-service/internal/audit/domain"
	auditrepo "auth-service/internal/audit/repository"
)

// Actions recorded by the auth lifecycle.
const (
	ActionLoginSuccess   = "login_success"
	ActionLoginFailure   = "login_failure"
	ActionRegister       = "register"
	ActionRefresh        = "refresh"
	ActionLogout         = "logout"
	ActionLogoutAll      = "logout_all"
	ActionPasswordChange = "password_change"
	ActionDeactivate     = "deactivate"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// Emitter mirrors audit events to an external sink (e.g. an OTel log
// exporter). Emit is best-effort; failures are logged by the caller.
type Emitter interface {
	Emit(ctx context.Context, entry *domain.AuditLog) error
}

// AuditLogger writes a single audit event with explicit action/resource. Used
// by the auth lifecycle code paths. LogEvent is best-effort: failures are
// logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository, an optional IP
// extractor, and an optional emitter.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	emitter     Emitter
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor
// for client IP. ipExtractor may be nil; then IP is recorded as "unknown".
// emitter may be nil to disable mirroring.
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, emitter Emitter) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor, emitter: emitter}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
	if l.emitter != nil {
		if err := l.emitter.Emit(ctx, entry); err != nil {
			log.Printf("audit: failed to emit event %s/%s: %v", action, resource, err)
		}
	}
}
