package port

import "context"

// AuditEntry represents a single auditable statement event.
type AuditEntry struct {
	Tool       string
	SQL        string
	State      string
	RowCount   int64
	DurationMS int64
	Err        error
}

// QueryAuditor records statement audit events.
type QueryAuditor interface {
	Record(ctx context.Context, entry AuditEntry)
	Close() error
}

// NoopAuditor discards all audit entries.
type NoopAuditor struct{}

func (NoopAuditor) Record(context.Context, AuditEntry) {}
func (NoopAuditor) Close() error                       { return nil }
