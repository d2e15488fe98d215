package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	goOTP "github.com/MrEthical07/goOTP"
)

// AuditSink appends audit events to the audit_logs table.
type AuditSink struct {
	db DB
}

func NewAuditSink(db DB) *AuditSink {
	return &AuditSink{db: db}
}

func (s *AuditSink) Emit(ctx context.Context, event goOTP.AuditEvent) error {
	metadata := []byte("{}")
	if len(event.Metadata) > 0 {
		raw, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("encode audit metadata: %w", err)
		}
		metadata = raw
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO audit_logs (event_type, email, user_id, ip_address, user_agent, success, error_code, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.EventType, event.Email, event.UserID, event.IP, event.UserAgent,
		event.Success, event.Error, metadata, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
