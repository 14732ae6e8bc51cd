package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/datasweep/internal/logging"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionDecode  AuditAction = "decode"
	ActionClean   AuditAction = "clean"
	ActionProject AuditAction = "project"
	ActionExport  AuditAction = "export"
	ActionBatch   AuditAction = "batch"
)

// AuditEntry records that a pipeline step ran. It carries metadata only;
// no cell values are ever written to the audit log.
type AuditEntry struct {
	ID        string      `json:"id"`
	Action    AuditAction `json:"action"`
	BatchID   string      `json:"batchId,omitempty"`
	FileName  string      `json:"fileName"`
	Detail    string      `json:"detail,omitempty"`
	Rows      int         `json:"rows"`
	Columns   int         `json:"columns"`
	Bytes     int64       `json:"bytes,omitempty"`
	Failed    bool        `json:"failed,omitempty"`
	IPAddress string      `json:"ipAddress,omitempty"`
	UserAgent string      `json:"userAgent,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// AuditRecorder persists and lists audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) error
	Recent(ctx context.Context, limit int) ([]AuditEntry, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// DefaultAuditLimit caps listings when no limit is given.
const DefaultAuditLimit = 100

// newAuditEntry fills in the id, timestamp and request metadata.
func newAuditEntry(ctx context.Context, action AuditAction, fileName string) AuditEntry {
	return AuditEntry{
		ID:        uuid.NewString(),
		Action:    action,
		BatchID:   GetBatchIDFromContext(ctx),
		FileName:  fileName,
		IPAddress: GetIPAddressFromContext(ctx),
		UserAgent: GetUserAgentFromContext(ctx),
		RequestID: GetRequestIDFromContext(ctx),
		CreatedAt: time.Now().UTC(),
	}
}

// MemoryAuditLog keeps the most recent entries in a fixed-size ring.
type MemoryAuditLog struct {
	mu      sync.RWMutex
	entries []AuditEntry
	next    int
	full    bool
}

// NewMemoryAuditLog creates a ring holding at most capacity entries.
func NewMemoryAuditLog(capacity int) *MemoryAuditLog {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryAuditLog{entries: make([]AuditEntry, capacity)}
}

func (m *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[m.next] = entry
	m.next = (m.next + 1) % len(m.entries)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (m *MemoryAuditLog) Recent(_ context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	n := m.next
	if m.full {
		n = len(m.entries)
	}
	limit = min(limit, n)

	out := make([]AuditEntry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.entries)) % len(m.entries)
		out = append(out, m.entries[idx])
	}
	return out, nil
}

// PurgeOlderThan drops entries created before cutoff.
func (m *MemoryAuditLog) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.next
	if m.full {
		n = len(m.entries)
	}
	// Walk oldest to newest and keep survivors in order.
	kept := make([]AuditEntry, 0, n)
	for i := n; i >= 1; i-- {
		e := m.entries[(m.next-i+len(m.entries))%len(m.entries)]
		if !e.CreatedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}

	purged := int64(n - len(kept))
	clear(m.entries)
	copy(m.entries, kept)
	m.next = len(kept) % len(m.entries)
	m.full = len(kept) == len(m.entries)
	return purged, nil
}

// recordAudit writes entry and logs failures without returning them;
// audit problems never fail a pipeline step.
func recordAudit(ctx context.Context, rec AuditRecorder, entry AuditEntry) {
	if rec == nil {
		return
	}
	if err := rec.Record(ctx, entry); err != nil {
		logging.FromContext(ctx).Warn("audit record failed",
			"action", entry.Action,
			"file", entry.FileName,
			"error", err,
		)
	}
}
