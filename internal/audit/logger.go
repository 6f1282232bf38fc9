// logger.go implements the asynchronous audit logger. Recording is
// fire-and-forget: a failed audit write never fails the request that caused
// it. Failures are logged and counted so operators can alert on sustained
// loss, but the request path stays non-blocking.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/helpdesk-platform/helpdesk/internal/db/models"
	"github.com/helpdesk-platform/helpdesk/internal/db/repositories"
	"github.com/helpdesk-platform/helpdesk/internal/safego"
	"github.com/helpdesk-platform/helpdesk/internal/telemetry"
)

const recordTimeout = 10 * time.Second

// Logger persists audit records to the database and optionally ships them to
// external destinations. A nil shipper disables shipping.
type Logger struct {
	repo    *repositories.AuditRepository
	shipper Shipper
}

// NewLogger creates an audit logger backed by repo. shipper may be nil.
func NewLogger(repo *repositories.AuditRepository, shipper Shipper) *Logger {
	return &Logger{repo: repo, shipper: shipper}
}

// Record persists an audit entry asynchronously. The database write runs on
// its own deadline, detached from the request context, so response latency
// and request cancellation never affect audit delivery.
func (l *Logger) Record(entry *models.AuditLog) {
	safego.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		if err := l.repo.CreateAuditLog(ctx, entry); err != nil {
			telemetry.AuditDroppedTotal.Inc()
			slog.Warn("audit record dropped",
				"action", entry.Action,
				"tenant_id", entry.TenantID,
				"error", err)
			return
		}

		if l.shipper != nil {
			if err := l.shipper.Ship(ctx, shipEntry(entry)); err != nil {
				slog.Warn("audit shipping failed",
					"action", entry.Action,
					"tenant_id", entry.TenantID,
					"error", err)
			}
		}
	})
}

func shipEntry(entry *models.AuditLog) *LogEntry {
	le := &LogEntry{
		Timestamp: entry.CreatedAt,
		TenantID:  entry.TenantID,
		Action:    entry.Action,
		Metadata:  entry.Metadata,
	}
	if entry.UserID != nil {
		le.UserID = *entry.UserID
	}
	if entry.ResourceType != nil {
		le.ResourceType = *entry.ResourceType
	}
	if entry.ResourceID != nil {
		le.ResourceID = *entry.ResourceID
	}
	if entry.IPAddress != nil {
		le.IPAddress = *entry.IPAddress
	}
	if entry.UserAgent != nil {
		le.UserAgent = *entry.UserAgent
	}
	return le
}
