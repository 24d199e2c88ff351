package leads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// db is the subset of pgxpool.Pool used by the repository.
type db interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by a pgx pool.
func NewPostgresRepository(pool db) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

const leadColumns = `id, org_id, conversation_id, name, email, phone, service, company, urgency,
	score, confidence, is_hot, classification, signals, reason, notified_at, created_at, updated_at`

// Upsert inserts the lead for a conversation or refreshes the existing row.
// Contact fields already on record survive an analysis that lost them.
func (r *PostgresRepository) Upsert(ctx context.Context, req *UpsertLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	f := req.fields()

	query := `
		INSERT INTO leads (id, org_id, conversation_id, name, email, phone, service, company, urgency,
			score, confidence, is_hot, classification, signals, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (org_id, conversation_id) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), leads.name),
			email = COALESCE(NULLIF(EXCLUDED.email, ''), leads.email),
			phone = COALESCE(NULLIF(EXCLUDED.phone, ''), leads.phone),
			service = COALESCE(NULLIF(EXCLUDED.service, ''), leads.service),
			company = COALESCE(NULLIF(EXCLUDED.company, ''), leads.company),
			urgency = EXCLUDED.urgency,
			score = EXCLUDED.score,
			confidence = EXCLUDED.confidence,
			is_hot = EXCLUDED.is_hot,
			classification = EXCLUDED.classification,
			signals = EXCLUDED.signals,
			reason = EXCLUDED.reason,
			updated_at = now()
		RETURNING ` + leadColumns

	row := r.db.QueryRow(ctx, query,
		uuid.New().String(),
		f.OrgID,
		f.ConversationID,
		f.Name,
		f.Email,
		f.Phone,
		f.Service,
		f.Company,
		f.Urgency,
		f.Score,
		f.Confidence,
		f.IsHot,
		f.Classification,
		f.Signals,
		f.Reason,
	)
	lead, err := scanLead(row)
	if err != nil {
		return nil, fmt.Errorf("leads: upsert failed: %w", err)
	}
	return lead, nil
}

// GetByID fetches a lead scoped to the org.
func (r *PostgresRepository) GetByID(ctx context.Context, orgID, id string) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1 AND org_id = $2`
	lead, err := scanLead(r.db.QueryRow(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return lead, nil
}

// ListByOrg returns leads newest first.
func (r *PostgresRepository) ListByOrg(ctx context.Context, orgID string, filter ListLeadsFilter) ([]*Lead, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + leadColumns + ` FROM leads
		WHERE org_id = $1 AND ($2 = false OR is_hot)
			AND ($3 = '' OR classification = $3) AND score >= $4
		ORDER BY updated_at DESC, id
		LIMIT $5 OFFSET $6`

	rows, err := r.db.Query(ctx, query, orgID, filter.HotOnly, filter.Classification, filter.MinScore, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	out := []*Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	return out, nil
}

// MarkNotified stamps the time the hot-lead alert went out.
func (r *PostgresRepository) MarkNotified(ctx context.Context, orgID, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE leads SET notified_at = $3, updated_at = now() WHERE id = $1 AND org_id = $2`,
		id, orgID, at.UTC())
	if err != nil {
		return fmt.Errorf("leads: mark notified failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var lead Lead
	if err := row.Scan(
		&lead.ID,
		&lead.OrgID,
		&lead.ConversationID,
		&lead.Name,
		&lead.Email,
		&lead.Phone,
		&lead.Service,
		&lead.Company,
		&lead.Urgency,
		&lead.Score,
		&lead.Confidence,
		&lead.IsHot,
		&lead.Classification,
		&lead.Signals,
		&lead.Reason,
		&lead.NotifiedAt,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &lead, nil
}
