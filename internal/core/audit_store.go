package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

var auditSchema = []string{`
CREATE TABLE IF NOT EXISTS pipeline_audit_log (
	id          UUID PRIMARY KEY,
	action      TEXT NOT NULL,
	batch_id    UUID,
	file_name   TEXT NOT NULL,
	detail      TEXT,
	row_count   INTEGER NOT NULL DEFAULT 0,
	col_count   INTEGER NOT NULL DEFAULT 0,
	byte_count  BIGINT NOT NULL DEFAULT 0,
	failed      BOOLEAN NOT NULL DEFAULT FALSE,
	ip_address  TEXT,
	user_agent  TEXT,
	request_id  TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS pipeline_audit_log_created_at_idx
	ON pipeline_audit_log (created_at DESC)`,
}

const insertAuditSQL = `
INSERT INTO pipeline_audit_log
	(id, action, batch_id, file_name, detail, row_count, col_count, byte_count,
	 failed, ip_address, user_agent, request_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

const recentAuditSQL = `
SELECT id, action, batch_id, file_name, detail, row_count, col_count, byte_count,
       failed, ip_address, user_agent, request_id, created_at
FROM pipeline_audit_log
ORDER BY created_at DESC
LIMIT $1`

const purgeAuditSQL = `DELETE FROM pipeline_audit_log WHERE created_at < $1`

// PostgresAuditLog stores audit entries in PostgreSQL.
type PostgresAuditLog struct {
	db DBTX
}

// NewPostgresAuditLog wraps a pool or transaction.
func NewPostgresAuditLog(db DBTX) *PostgresAuditLog {
	return &PostgresAuditLog{db: db}
}

// EnsureSchema creates the audit table if it does not exist.
func (p *PostgresAuditLog) EnsureSchema(ctx context.Context) error {
	for _, stmt := range auditSchema {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create audit schema: %w", err)
		}
	}
	return nil
}

func (p *PostgresAuditLog) Record(ctx context.Context, e AuditEntry) error {
	id, err := uuid.Parse(e.ID)
	if err != nil {
		return fmt.Errorf("audit id %q: %w", e.ID, err)
	}
	var batch uuid.UUID
	if e.BatchID != "" {
		if batch, err = uuid.Parse(e.BatchID); err != nil {
			return fmt.Errorf("batch id %q: %w", e.BatchID, err)
		}
	}

	_, err = p.db.Exec(ctx, insertAuditSQL,
		ToPgUUID(id),
		string(e.Action),
		ToPgUUID(batch),
		e.FileName,
		ToPgText(e.Detail),
		ToPgInt4(e.Rows),
		ToPgInt4(e.Columns),
		ToPgInt8(e.Bytes),
		e.Failed,
		ToPgText(e.IPAddress),
		ToPgText(e.UserAgent),
		ToPgText(e.RequestID),
		pgtype.Timestamptz{Time: e.CreatedAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (p *PostgresAuditLog) Recent(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}

	rows, err := p.db.Query(ctx, recentAuditSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var (
			id, batch             pgtype.UUID
			action, fileName      string
			detail, ip, ua, reqID pgtype.Text
			rowCount, colCount    pgtype.Int4
			byteCount             pgtype.Int8
			failed                bool
			createdAt             pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &action, &batch, &fileName, &detail, &rowCount, &colCount,
			&byteCount, &failed, &ip, &ua, &reqID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, AuditEntry{
			ID:        PgUUIDToString(id),
			Action:    AuditAction(action),
			BatchID:   PgUUIDToString(batch),
			FileName:  fileName,
			Detail:    detail.String,
			Rows:      int(rowCount.Int32),
			Columns:   int(colCount.Int32),
			Bytes:     byteCount.Int64,
			Failed:    failed,
			IPAddress: ip.String,
			UserAgent: ua.String,
			RequestID: reqID.String,
			CreatedAt: createdAt.Time,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	return entries, nil
}

// PurgeOlderThan deletes entries created before cutoff.
func (p *PostgresAuditLog) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.db.Exec(ctx, purgeAuditSQL, pgtype.Timestamptz{Time: cutoff, Valid: true})
	if err != nil {
		return 0, fmt.Errorf("purge audit log: %w", err)
	}
	return tag.RowsAffected(), nil
}
