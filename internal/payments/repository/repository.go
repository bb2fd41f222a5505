package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ims_backend/internal/shared/paging"
	"ims_backend/platform/apperr"
	"ims_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	paymentNotFoundMsg = "payment not found"
	invoiceNotFoundMsg = "invoice not found"
)

const (
	StatusPending = "PENDING"
	StatusUnpaid  = "UNPAID"
	StatusCleared = "CLEARED"
)

type Payment struct {
	ID          uuid.UUID
	InquiryID   uuid.UUID
	ClientID    *uuid.UUID
	ProposalIDs []uuid.UUID
	Amount      decimal.Decimal
	Status      string
	ClearedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Invoice struct {
	ID        uuid.UUID
	PaymentID uuid.UUID
	Number    string
	FileKey   string
	FileURL   string
	CreatedBy *uuid.UUID
	CreatedAt time.Time
}

type ListParams struct {
	Status    string
	InquiryID *uuid.UUID
	Page      int
	PageSize  int
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const paymentColumns = `id, inquiry_id, client_id, proposal_ids, amount, status, cleared_at, created_at, updated_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.InquiryID, &p.ClientID, &p.ProposalIDs, &p.Amount, &p.Status, &p.ClearedAt,
		&p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// UpsertForInquiry writes the payment of an inquiry. An existing row is only
// refreshed while it is still PENDING.
func (r *Repository) UpsertForInquiry(ctx context.Context, p Payment) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO payments (inquiry_id, client_id, proposal_ids, amount)
		VALUES ($1, $2, $3::uuid[], $4)
		ON CONFLICT (inquiry_id) DO UPDATE SET
			client_id = COALESCE(EXCLUDED.client_id, payments.client_id),
			proposal_ids = EXCLUDED.proposal_ids,
			amount = EXCLUDED.amount,
			updated_at = now()
		WHERE payments.status = 'PENDING'
	`, p.InquiryID, p.ClientID, p.ProposalIDs, p.Amount)
	if err != nil {
		return fmt.Errorf("upsert payment: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Payment, error) {
	return r.get(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

func (r *Repository) GetForUpdate(ctx context.Context, id uuid.UUID) (Payment, error) {
	return r.get(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id)
}

func (r *Repository) GetByInquiry(ctx context.Context, inquiryID uuid.UUID) (Payment, error) {
	return r.get(ctx, `SELECT `+paymentColumns+` FROM payments WHERE inquiry_id = $1`, inquiryID)
}

func (r *Repository) get(ctx context.Context, sql string, id uuid.UUID) (Payment, error) {
	p, err := scanPayment(db.Conn(ctx, r.pool).QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, apperr.NotFound(paymentNotFoundMsg)
	}
	if err != nil {
		return Payment{}, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (r *Repository) List(ctx context.Context, params ListParams) (paging.Page[Payment], error) {
	var status interface{}
	if params.Status != "" {
		status = params.Status
	}
	where := ` WHERE ($1::text IS NULL OR status = $1) AND ($2::uuid IS NULL OR inquiry_id = $2)`
	args := []interface{}{status, params.InquiryID}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM payments`+where, args...).Scan(&total); err != nil {
		return paging.Page[Payment]{}, fmt.Errorf("count payments: %w", err)
	}

	page, pageSize, offset := paging.Normalize(params.Page, params.PageSize)
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+paymentColumns+` FROM payments`+where+` ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		append(args, pageSize, offset)...,
	)
	if err != nil {
		return paging.Page[Payment]{}, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	items := make([]Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return paging.Page[Payment]{}, fmt.Errorf("scan payment: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return paging.Page[Payment]{}, fmt.Errorf("iterate payments: %w", err)
	}
	return paging.New(items, total, page, pageSize), nil
}

// SetStatus moves the payment to status. clearedAt is only written when non-nil.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status string, clearedAt *time.Time) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE payments SET status = $2, cleared_at = COALESCE($3, cleared_at), updated_at = now()
		WHERE id = $1
	`, id, status, clearedAt)
	if err != nil {
		return fmt.Errorf("set payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(paymentNotFoundMsg)
	}
	return nil
}

const invoiceColumns = `id, payment_id, number, file_key, file_url, created_by, created_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var i Invoice
	err := row.Scan(&i.ID, &i.PaymentID, &i.Number, &i.FileKey, &i.FileURL, &i.CreatedBy, &i.CreatedAt)
	return i, err
}

// CreateInvoice inserts an invoice. A taken number is a Conflict carrying the
// existing invoice.
func (r *Repository) CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	created, err := scanInvoice(db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO invoices (payment_id, number, file_key, file_url, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+invoiceColumns,
		inv.PaymentID, inv.Number, inv.FileKey, inv.FileURL, inv.CreatedBy,
	))
	if err != nil {
		if db.IsUniqueViolation(err) {
			conflict := apperr.Conflict("invoice number already exists")
			if existing, getErr := r.GetInvoiceByNumber(ctx, inv.Number); getErr == nil {
				conflict = conflict.WithDetails(existing)
			}
			return Invoice{}, conflict
		}
		return Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	return created, nil
}

func (r *Repository) GetInvoice(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return r.getInvoice(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
}

func (r *Repository) GetInvoiceByNumber(ctx context.Context, number string) (Invoice, error) {
	return r.getInvoice(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE number = $1`, number)
}

func (r *Repository) getInvoice(ctx context.Context, sql string, arg interface{}) (Invoice, error) {
	inv, err := scanInvoice(db.Conn(ctx, r.pool).QueryRow(ctx, sql, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, apperr.NotFound(invoiceNotFoundMsg)
	}
	if err != nil {
		return Invoice{}, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

func (r *Repository) ListInvoices(ctx context.Context, paymentID uuid.UUID) ([]Invoice, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE payment_id = $1 ORDER BY created_at ASC`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	items := make([]Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		items = append(items, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	return items, nil
}
