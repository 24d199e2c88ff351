// Package audit keeps an append-only trail of every lead analysis.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/wolfman30/lead-analyzer/internal/analyzer"
)

// ErrMissingOrgID is returned when a record or filter has no organization.
var ErrMissingOrgID = errors.New("audit: org id required")

// Record is one immutable analysis snapshot.
type Record struct {
	ID             string             `json:"id"`
	OrgID          string             `json:"org_id"`
	ConversationID string             `json:"conversation_id,omitempty"`
	LeadID         string             `json:"lead_id,omitempty"`
	IsHot          bool               `json:"is_hot"`
	Score          int                `json:"score"`
	Confidence     int                `json:"confidence"`
	Classification string             `json:"classification"`
	Signals        []string           `json:"signals"`
	Breakdown      analyzer.Breakdown `json:"breakdown"`
	Reason         string             `json:"reason"`
	MessageCount   int                `json:"message_count"`
	CreatedAt      time.Time          `json:"created_at"`
}

// NewRecord flattens an analysis into an audit record.
func NewRecord(orgID, conversationID, leadID string, a *analyzer.LeadAnalysis, messageCount int) Record {
	signals := a.Signals.Active()
	if signals == nil {
		signals = []string{}
	}
	return Record{
		OrgID:          orgID,
		ConversationID: conversationID,
		LeadID:         leadID,
		IsHot:          a.IsHot,
		Score:          a.Score,
		Confidence:     a.Confidence,
		Classification: a.Classification(),
		Signals:        signals,
		Breakdown:      a.Breakdown,
		Reason:         a.Reason,
		MessageCount:   messageCount,
	}
}

// Service writes and reads lead_analysis_audit rows.
type Service struct {
	db *sql.DB
}

// NewService creates a new audit service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Log records an analysis snapshot.
func (s *Service) Log(ctx context.Context, rec Record) error {
	if rec.OrgID == "" {
		return ErrMissingOrgID
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	breakdown, err := json.Marshal(rec.Breakdown)
	if err != nil {
		return fmt.Errorf("audit: encode breakdown: %w", err)
	}

	query := `
		INSERT INTO lead_analysis_audit (
			id, org_id, conversation_id, lead_id, is_hot, score, confidence,
			classification, signals, breakdown, reason, message_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = s.db.ExecContext(ctx, query,
		rec.ID,
		rec.OrgID,
		nullString(rec.ConversationID),
		nullString(rec.LeadID),
		rec.IsHot,
		rec.Score,
		rec.Confidence,
		rec.Classification,
		pq.Array(rec.Signals),
		breakdown,
		rec.Reason,
		rec.MessageCount,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: failed to log analysis: %w", err)
	}
	return nil
}

// Filter specifies criteria for querying audit records.
type Filter struct {
	OrgID          string
	ConversationID string
	HotOnly        bool
	StartTime      time.Time
	EndTime        time.Time
	Limit          int
	Offset         int
}

// Query retrieves audit records, newest first.
func (s *Service) Query(ctx context.Context, filter Filter) ([]Record, error) {
	if filter.OrgID == "" {
		return nil, ErrMissingOrgID
	}
	query := `
		SELECT id, org_id, conversation_id, lead_id, is_hot, score, confidence,
			   classification, signals, breakdown, reason, message_count, created_at
		FROM lead_analysis_audit
		WHERE org_id = $1
	`
	args := []interface{}{filter.OrgID}
	argIdx := 2

	if filter.ConversationID != "" {
		query += fmt.Sprintf(" AND conversation_id = $%d", argIdx)
		args = append(args, filter.ConversationID)
		argIdx++
	}
	if filter.HotOnly {
		query += " AND is_hot"
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var convID, leadID sql.NullString
		var breakdown []byte
		err := rows.Scan(
			&r.ID, &r.OrgID, &convID, &leadID, &r.IsHot, &r.Score, &r.Confidence,
			&r.Classification, pq.Array(&r.Signals), &breakdown, &r.Reason, &r.MessageCount, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("audit: failed to scan record: %w", err)
		}
		if len(breakdown) > 0 {
			if err := json.Unmarshal(breakdown, &r.Breakdown); err != nil {
				return nil, fmt.Errorf("audit: decode breakdown: %w", err)
			}
		}
		r.ConversationID = convID.String
		r.LeadID = leadID.String
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate records: %w", err)
	}

	return records, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
