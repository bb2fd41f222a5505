package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ims_backend/internal/inquiries/domain"
	"ims_backend/platform/apperr"
	"ims_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const proposalNotFoundMsg = "proposal not found"

type Proposal struct {
	ID             uuid.UUID
	InquiryID      uuid.UUID
	Title          string
	Link           string
	Details        []domain.LineItem
	SubtotalAmount decimal.Decimal
	VATAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
	Confirmed      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const proposalColumns = `id, inquiry_id, title, link, details, subtotal_amount, vat_amount,
	total_amount, confirmed, created_at, updated_at`

func scanProposal(row pgx.Row) (Proposal, error) {
	var (
		p       Proposal
		details []byte
	)
	err := row.Scan(&p.ID, &p.InquiryID, &p.Title, &p.Link, &details, &p.SubtotalAmount, &p.VATAmount,
		&p.TotalAmount, &p.Confirmed, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Proposal{}, err
	}
	if err := json.Unmarshal(details, &p.Details); err != nil {
		return Proposal{}, fmt.Errorf("decode proposal details: %w", err)
	}
	return p, nil
}

func (r *Repository) CreateProposal(ctx context.Context, p Proposal) (Proposal, error) {
	details, err := json.Marshal(p.Details)
	if err != nil {
		return Proposal{}, fmt.Errorf("encode proposal details: %w", err)
	}

	created, err := scanProposal(db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO proposals (inquiry_id, title, link, details, subtotal_amount, vat_amount, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+proposalColumns,
		p.InquiryID, p.Title, p.Link, details, p.SubtotalAmount, p.VATAmount, p.TotalAmount,
	))
	if err != nil {
		return Proposal{}, fmt.Errorf("insert proposal: %w", err)
	}
	return created, nil
}

func (r *Repository) GetProposal(ctx context.Context, inquiryID, id uuid.UUID) (Proposal, error) {
	p, err := scanProposal(db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+proposalColumns+` FROM proposals WHERE id = $1 AND inquiry_id = $2
	`, id, inquiryID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Proposal{}, apperr.NotFound(proposalNotFoundMsg)
	}
	if err != nil {
		return Proposal{}, fmt.Errorf("get proposal: %w", err)
	}
	return p, nil
}

// ReplaceProposal overwrites the editable fields and the computed totals.
func (r *Repository) ReplaceProposal(ctx context.Context, p Proposal) (Proposal, error) {
	details, err := json.Marshal(p.Details)
	if err != nil {
		return Proposal{}, fmt.Errorf("encode proposal details: %w", err)
	}

	updated, err := scanProposal(db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE proposals SET
			title = $3, link = $4, details = $5,
			subtotal_amount = $6, vat_amount = $7, total_amount = $8,
			updated_at = now()
		WHERE id = $1 AND inquiry_id = $2
		RETURNING `+proposalColumns,
		p.ID, p.InquiryID, p.Title, p.Link, details, p.SubtotalAmount, p.VATAmount, p.TotalAmount,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Proposal{}, apperr.NotFound(proposalNotFoundMsg)
	}
	if err != nil {
		return Proposal{}, fmt.Errorf("update proposal: %w", err)
	}
	return updated, nil
}

func (r *Repository) ListProposals(ctx context.Context, inquiryID uuid.UUID) ([]Proposal, error) {
	return r.queryProposals(ctx, `
		SELECT `+proposalColumns+` FROM proposals WHERE inquiry_id = $1 ORDER BY created_at
	`, inquiryID)
}

// ListProposalsByIDs returns the proposals among ids that belong to inquiryID.
func (r *Repository) ListProposalsByIDs(ctx context.Context, inquiryID uuid.UUID, ids []uuid.UUID) ([]Proposal, error) {
	return r.queryProposals(ctx, `
		SELECT `+proposalColumns+` FROM proposals
		WHERE inquiry_id = $1 AND id = ANY($2::uuid[])
		ORDER BY created_at
	`, inquiryID, ids)
}

// SetProposalsConfirmed flags the listed proposals with a single bulk update.
func (r *Repository) SetProposalsConfirmed(ctx context.Context, inquiryID uuid.UUID, ids []uuid.UUID, confirmed bool) (int64, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE proposals SET confirmed = $3, updated_at = now()
		WHERE inquiry_id = $1 AND id = ANY($2::uuid[])
	`, inquiryID, ids, confirmed)
	if err != nil {
		return 0, fmt.Errorf("set proposals confirmed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteProposal removes an unconfirmed proposal.
func (r *Repository) DeleteProposal(ctx context.Context, inquiryID, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		DELETE FROM proposals WHERE id = $1 AND inquiry_id = $2 AND NOT confirmed
	`, id, inquiryID)
	if err != nil {
		return fmt.Errorf("delete proposal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(proposalNotFoundMsg)
	}
	return nil
}

func (r *Repository) queryProposals(ctx context.Context, sql string, args ...interface{}) ([]Proposal, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	items := make([]Proposal, 0)
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proposals: %w", err)
	}
	return items, nil
}
