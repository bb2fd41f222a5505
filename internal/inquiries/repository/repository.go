package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ims_backend/internal/inquiries/domain"
	"ims_backend/internal/shared/paging"
	"ims_backend/platform/apperr"
	"ims_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const inquiryNotFoundMsg = "inquiry not found"

type Inquiry struct {
	ID              uuid.UUID
	ClientID        *uuid.UUID
	LeadID          *uuid.UUID
	SalespersonID   *uuid.UUID
	ContactName     string
	ContactEmail    string
	ContactPhone    string
	Company         string
	AccountantEmail string
	EventName       string
	Venue           string
	Pax             int
	StartDatetime   time.Time
	EndDatetime     time.Time
	ScopeOfWork     []domain.ScopeItem
	Status          domain.Status
	LostReason      string
	FollowUps       domain.FollowUps
	Activity        []domain.Activity
	CreatedBy       *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// InquiryUpdate holds the editable fields; nil leaves a column untouched.
type InquiryUpdate struct {
	SalespersonID   *uuid.UUID
	ContactName     *string
	ContactPhone    *string
	Company         *string
	AccountantEmail *string
	EventName       *string
	Venue           *string
	Pax             *int
	StartDatetime   *time.Time
	EndDatetime     *time.Time
	ScopeOfWork     []domain.ScopeItem
}

type ListParams struct {
	Status        string
	SalespersonID *uuid.UUID
	Search        string
	SortBy        string
	SortOrder     string
	Page          int
	PageSize      int
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const inquiryColumns = `id, client_id, lead_id, salesperson_id, contact_name, contact_email, contact_phone,
	company, accountant_email, event_name, venue, pax, start_datetime, end_datetime, scope_of_work,
	status, lost_reason, follow_ups, activity, created_by, created_at, updated_at`

func scanInquiry(row pgx.Row) (Inquiry, error) {
	var (
		i                         Inquiry
		status                    string
		scope, followUps, history []byte
	)
	err := row.Scan(
		&i.ID, &i.ClientID, &i.LeadID, &i.SalespersonID, &i.ContactName, &i.ContactEmail, &i.ContactPhone,
		&i.Company, &i.AccountantEmail, &i.EventName, &i.Venue, &i.Pax, &i.StartDatetime, &i.EndDatetime, &scope,
		&status, &i.LostReason, &followUps, &history, &i.CreatedBy, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return Inquiry{}, err
	}
	i.Status = domain.Status(status)

	if err := json.Unmarshal(scope, &i.ScopeOfWork); err != nil {
		return Inquiry{}, fmt.Errorf("decode scope_of_work: %w", err)
	}
	if err := json.Unmarshal(followUps, &i.FollowUps); err != nil {
		return Inquiry{}, fmt.Errorf("decode follow_ups: %w", err)
	}
	if err := json.Unmarshal(history, &i.Activity); err != nil {
		return Inquiry{}, fmt.Errorf("decode activity: %w", err)
	}
	return i, nil
}

func (r *Repository) Create(ctx context.Context, i Inquiry) (Inquiry, error) {
	scope, err := json.Marshal(nonNilScope(i.ScopeOfWork))
	if err != nil {
		return Inquiry{}, fmt.Errorf("encode scope_of_work: %w", err)
	}
	followUps, err := json.Marshal(i.FollowUps)
	if err != nil {
		return Inquiry{}, fmt.Errorf("encode follow_ups: %w", err)
	}
	history, err := json.Marshal(nonNilActivity(i.Activity))
	if err != nil {
		return Inquiry{}, fmt.Errorf("encode activity: %w", err)
	}

	created, err := scanInquiry(db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO inquiries (
			client_id, lead_id, salesperson_id, contact_name, contact_email, contact_phone, company,
			accountant_email, event_name, venue, pax, start_datetime, end_datetime, scope_of_work,
			status, follow_ups, activity, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING `+inquiryColumns,
		i.ClientID, i.LeadID, i.SalespersonID, i.ContactName, i.ContactEmail, i.ContactPhone, i.Company,
		i.AccountantEmail, i.EventName, i.Venue, i.Pax, i.StartDatetime, i.EndDatetime, scope,
		string(i.Status), followUps, history, i.CreatedBy,
	))
	if err != nil {
		return Inquiry{}, fmt.Errorf("insert inquiry: %w", err)
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Inquiry, error) {
	return r.get(ctx, `SELECT `+inquiryColumns+` FROM inquiries WHERE id = $1`, id)
}

// GetForUpdate locks the inquiry row for the rest of the transaction.
func (r *Repository) GetForUpdate(ctx context.Context, id uuid.UUID) (Inquiry, error) {
	return r.get(ctx, `SELECT `+inquiryColumns+` FROM inquiries WHERE id = $1 FOR UPDATE`, id)
}

func (r *Repository) get(ctx context.Context, sql string, id uuid.UUID) (Inquiry, error) {
	i, err := scanInquiry(db.Conn(ctx, r.pool).QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Inquiry{}, apperr.NotFound(inquiryNotFoundMsg)
	}
	if err != nil {
		return Inquiry{}, fmt.Errorf("get inquiry: %w", err)
	}
	return i, nil
}

// List excludes DELETED inquiries unless that status is requested explicitly.
func (r *Repository) List(ctx context.Context, params ListParams) (paging.Page[Inquiry], error) {
	var statusParam interface{}
	if params.Status != "" {
		statusParam = params.Status
	}

	baseQuery := `
		FROM inquiries
		WHERE (($1::text IS NULL AND status <> 'DELETED') OR status = $1)
			AND ($2::uuid IS NULL OR salesperson_id = $2)
			AND ($3::text IS NULL OR contact_name ILIKE $3 OR contact_email ILIKE $3
				OR company ILIKE $3 OR event_name ILIKE $3 OR venue ILIKE $3)
	`
	args := []interface{}{statusParam, params.SalespersonID, paging.Search(params.Search)}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return paging.Page[Inquiry]{}, fmt.Errorf("count inquiries: %w", err)
	}

	page, pageSize, offset := paging.Normalize(params.Page, params.PageSize)
	selectQuery := `SELECT ` + inquiryColumns + baseQuery + `
		ORDER BY
			CASE WHEN $4 = 'startDatetime' AND $5 = 'asc' THEN start_datetime END ASC,
			CASE WHEN $4 = 'startDatetime' AND $5 = 'desc' THEN start_datetime END DESC,
			CASE WHEN $4 = 'eventName' AND $5 = 'asc' THEN event_name END ASC,
			CASE WHEN $4 = 'eventName' AND $5 = 'desc' THEN event_name END DESC,
			CASE WHEN $4 = 'createdAt' AND $5 = 'asc' THEN created_at END ASC,
			created_at DESC
		LIMIT $6 OFFSET $7
	`
	rows, err := db.Conn(ctx, r.pool).Query(ctx, selectQuery, append(args, params.SortBy, params.SortOrder, pageSize, offset)...)
	if err != nil {
		return paging.Page[Inquiry]{}, fmt.Errorf("list inquiries: %w", err)
	}
	defer rows.Close()

	items := make([]Inquiry, 0)
	for rows.Next() {
		i, err := scanInquiry(rows)
		if err != nil {
			return paging.Page[Inquiry]{}, fmt.Errorf("scan inquiry: %w", err)
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return paging.Page[Inquiry]{}, fmt.Errorf("iterate inquiries: %w", err)
	}
	return paging.New(items, total, page, pageSize), nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, u InquiryUpdate) (Inquiry, error) {
	var scope []byte
	if u.ScopeOfWork != nil {
		encoded, err := json.Marshal(u.ScopeOfWork)
		if err != nil {
			return Inquiry{}, fmt.Errorf("encode scope_of_work: %w", err)
		}
		scope = encoded
	}

	i, err := scanInquiry(db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE inquiries SET
			salesperson_id = COALESCE($2, salesperson_id),
			contact_name = COALESCE($3, contact_name),
			contact_phone = COALESCE($4, contact_phone),
			company = COALESCE($5, company),
			accountant_email = COALESCE($6, accountant_email),
			event_name = COALESCE($7, event_name),
			venue = COALESCE($8, venue),
			pax = COALESCE($9, pax),
			start_datetime = COALESCE($10, start_datetime),
			end_datetime = COALESCE($11, end_datetime),
			scope_of_work = COALESCE($12::jsonb, scope_of_work),
			updated_at = now()
		WHERE id = $1
		RETURNING `+inquiryColumns,
		id, u.SalespersonID, u.ContactName, u.ContactPhone, u.Company, u.AccountantEmail, u.EventName,
		u.Venue, u.Pax, u.StartDatetime, u.EndDatetime, scope,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Inquiry{}, apperr.NotFound(inquiryNotFoundMsg)
	}
	if err != nil {
		return Inquiry{}, fmt.Errorf("update inquiry: %w", err)
	}
	return i, nil
}

// SetStatus moves the inquiry and appends entry to its activity in one statement.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status domain.Status, lostReason *string, entry domain.Activity) error {
	line, err := json.Marshal([]domain.Activity{entry})
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}
	return r.exec(ctx, "set inquiry status", `
		UPDATE inquiries SET
			status = $2,
			lost_reason = COALESCE($3, lost_reason),
			activity = activity || $4::jsonb,
			updated_at = now()
		WHERE id = $1
	`, id, string(status), lostReason, line)
}

func (r *Repository) AppendActivity(ctx context.Context, id uuid.UUID, entries ...domain.Activity) error {
	if len(entries) == 0 {
		return nil
	}
	lines, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}
	return r.exec(ctx, "append inquiry activity", `
		UPDATE inquiries SET activity = activity || $2::jsonb, updated_at = now() WHERE id = $1
	`, id, lines)
}

func (r *Repository) SetFollowUps(ctx context.Context, id uuid.UUID, f domain.FollowUps) error {
	encoded, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode follow_ups: %w", err)
	}
	return r.exec(ctx, "set inquiry follow-ups", `
		UPDATE inquiries SET follow_ups = $2::jsonb, updated_at = now() WHERE id = $1
	`, id, encoded)
}

func (r *Repository) SetClient(ctx context.Context, id, clientID uuid.UUID) error {
	return r.exec(ctx, "set inquiry client", `
		UPDATE inquiries SET client_id = $2, updated_at = now() WHERE id = $1
	`, id, clientID)
}

func (r *Repository) exec(ctx context.Context, op, sql string, args ...interface{}) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(inquiryNotFoundMsg)
	}
	return nil
}

func nonNilScope(items []domain.ScopeItem) []domain.ScopeItem {
	if items == nil {
		return []domain.ScopeItem{}
	}
	return items
}

func nonNilActivity(items []domain.Activity) []domain.Activity {
	if items == nil {
		return []domain.Activity{}
	}
	return items
}
