package leads

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(db db) *PostgresRepository {
	if db == nil {
		panic("leads: database handle required")
	}
	return &PostgresRepository{db: db}
}

// Create inserts the lead and its conversation transcript in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("leads: begin failed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := uuid.New()
	query := `
		INSERT INTO leads (id, session_id, reference_number, name, company, email, phone,
			project_type, timeline, budget, summary, score, qualified, user_agent, referrer)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := tx.QueryRow(ctx, query,
		id,
		req.SessionID,
		req.ReferenceNumber,
		req.Name,
		req.Company,
		req.Email,
		req.Phone,
		req.ProjectType,
		req.Timeline,
		req.Budget,
		req.Summary,
		req.Score,
		req.Qualified,
		req.UserAgent,
		req.Referrer,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}

	for _, entry := range req.Conversation {
		if _, err := tx.Exec(ctx,
			`INSERT INTO conversations (lead_id, role, content, created_at) VALUES ($1, $2, $3, $4)`,
			id, entry.Role, entry.Text, entry.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("leads: transcript insert failed: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("leads: commit failed: %w", err)
	}

	return &Lead{
		ID:              id.String(),
		SessionID:       req.SessionID,
		ReferenceNumber: req.ReferenceNumber,
		Name:            req.Name,
		Company:         req.Company,
		Email:           req.Email,
		Phone:           req.Phone,
		ProjectType:     req.ProjectType,
		Timeline:        req.Timeline,
		Budget:          req.Budget,
		Summary:         req.Summary,
		Score:           req.Score,
		Qualified:       req.Qualified,
		CreatedAt:       createdAt,
	}, nil
}

const selectLead = `
	SELECT id, session_id, reference_number, name, company, email, phone,
		project_type, timeline, budget, summary, score, qualified, created_at
	FROM leads
`

// GetByID fetches a lead by primary key.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectLead+`WHERE id = $1`, id))
}

// GetByReference fetches a lead by its customer-facing reference number.
func (r *PostgresRepository) GetByReference(ctx context.Context, reference string) (*Lead, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectLead+`WHERE reference_number = $1`, reference))
}

func (r *PostgresRepository) scanOne(row pgx.Row) (*Lead, error) {
	var lead Lead
	if err := row.Scan(
		&lead.ID,
		&lead.SessionID,
		&lead.ReferenceNumber,
		&lead.Name,
		&lead.Company,
		&lead.Email,
		&lead.Phone,
		&lead.ProjectType,
		&lead.Timeline,
		&lead.Budget,
		&lead.Summary,
		&lead.Score,
		&lead.Qualified,
		&lead.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return &lead, nil
}
