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

const clientNotFoundMsg = "client not found"

// Built-in client lists. Users may create others.
const (
	ListProspects = "PROSPECTS"
	ListRetention = "RETENTION"
	ListDeleted   = "DELETED"
)

type Client struct {
	ID             uuid.UUID
	Name           string
	Email          string
	Phone          string
	Company        string
	List           string
	Subscribed     bool
	BirthDate      *time.Time
	LastWishedAt   *time.Time
	TotalInquiries int
	TotalEvents    int
	TotalSpent     decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ClientUpdate struct {
	Name       *string
	Phone      *string
	Company    *string
	List       *string
	Subscribed *bool
	BirthDate  *time.Time
}

type ListParams struct {
	List       string
	Subscribed *bool
	Search     string
	SortBy     string
	SortOrder  string
	Page       int
	PageSize   int
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clientColumns = `id, name, email, phone, company, list, subscribed, birth_date,
	last_wished_datetime, total_inquiries, total_events, total_spent, created_at, updated_at`

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.List, &c.Subscribed, &c.BirthDate,
		&c.LastWishedAt, &c.TotalInquiries, &c.TotalEvents, &c.TotalSpent, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// InsertOrGet inserts c unless a client with the same email (case-insensitive)
// exists. On an existing row, total_inquiries is bumped by inquiryDelta.
func (r *Repository) InsertOrGet(ctx context.Context, c Client, inquiryDelta int) (Client, bool, error) {
	q := db.Conn(ctx, r.pool)

	created, err := scanClient(q.QueryRow(ctx, `
		INSERT INTO clients (name, email, phone, company, list, subscribed, birth_date, total_inquiries)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7)
		ON CONFLICT ((lower(email))) DO NOTHING
		RETURNING `+clientColumns,
		c.Name, c.Email, c.Phone, c.Company, c.List, c.BirthDate, c.TotalInquiries,
	))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Client{}, false, fmt.Errorf("insert client: %w", err)
	}

	existing, err := scanClient(q.QueryRow(ctx, `
		UPDATE clients SET
			total_inquiries = total_inquiries + $2,
			updated_at = CASE WHEN $2 > 0 THEN now() ELSE updated_at END
		WHERE lower(email) = lower($1)
		RETURNING `+clientColumns,
		c.Email, inquiryDelta,
	))
	if err != nil {
		return Client{}, false, fmt.Errorf("load existing client: %w", err)
	}
	return existing, false, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Client, error) {
	c, err := scanClient(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, apperr.NotFound(clientNotFoundMsg)
	}
	if err != nil {
		return Client{}, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (Client, error) {
	c, err := scanClient(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE lower(email) = lower($1)`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, apperr.NotFound(clientNotFoundMsg)
	}
	if err != nil {
		return Client{}, fmt.Errorf("get client by email: %w", err)
	}
	return c, nil
}

func (r *Repository) List(ctx context.Context, params ListParams) (paging.Page[Client], error) {
	var listParam interface{}
	if params.List != "" {
		listParam = params.List
	}

	baseQuery := `
		FROM clients
		WHERE ($1::text IS NULL OR list = $1)
			AND ($2::boolean IS NULL OR subscribed = $2)
			AND ($3::text IS NULL OR name ILIKE $3 OR email ILIKE $3 OR company ILIKE $3)
	`
	args := []interface{}{listParam, params.Subscribed, paging.Search(params.Search)}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return paging.Page[Client]{}, fmt.Errorf("count clients: %w", err)
	}

	page, pageSize, offset := paging.Normalize(params.Page, params.PageSize)

	selectQuery := `SELECT ` + clientColumns + baseQuery + `
		ORDER BY
			CASE WHEN $4 = 'name' AND $5 = 'asc' THEN name END ASC,
			CASE WHEN $4 = 'name' AND $5 = 'desc' THEN name END DESC,
			CASE WHEN $4 = 'totalSpent' AND $5 = 'asc' THEN total_spent END ASC,
			CASE WHEN $4 = 'totalSpent' AND $5 = 'desc' THEN total_spent END DESC,
			CASE WHEN $4 = 'createdAt' AND $5 = 'asc' THEN created_at END ASC,
			CASE WHEN $4 = 'createdAt' AND $5 = 'desc' THEN created_at END DESC,
			created_at DESC
		LIMIT $6 OFFSET $7
	`
	args = append(args, params.SortBy, params.SortOrder, pageSize, offset)

	rows, err := db.Conn(ctx, r.pool).Query(ctx, selectQuery, args...)
	if err != nil {
		return paging.Page[Client]{}, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	items := make([]Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return paging.Page[Client]{}, fmt.Errorf("scan client: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return paging.Page[Client]{}, fmt.Errorf("iterate clients: %w", err)
	}

	return paging.New(items, total, page, pageSize), nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, u ClientUpdate) (Client, error) {
	c, err := scanClient(db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE clients SET
			name = COALESCE($2, name),
			phone = COALESCE($3, phone),
			company = COALESCE($4, company),
			list = COALESCE($5, list),
			subscribed = COALESCE($6, subscribed),
			birth_date = COALESCE($7, birth_date),
			updated_at = now()
		WHERE id = $1
		RETURNING `+clientColumns,
		id, u.Name, u.Phone, u.Company, u.List, u.Subscribed, u.BirthDate,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, apperr.NotFound(clientNotFoundMsg)
	}
	if err != nil {
		return Client{}, fmt.Errorf("update client: %w", err)
	}
	return c, nil
}

// Lists returns the distinct list names in use, built-ins first.
func (r *Repository) Lists(ctx context.Context) ([]string, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT name FROM (
			SELECT unnest(ARRAY[$1, $2]::text[]) AS name
			UNION
			SELECT DISTINCT list FROM clients WHERE list <> $3
		) l
		ORDER BY CASE name WHEN $1 THEN 0 WHEN $2 THEN 1 ELSE 2 END, name
	`, ListProspects, ListRetention, ListDeleted)
	if err != nil {
		return nil, fmt.Errorf("list client lists: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan client list: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// MoveToListByEmail returns the number of rows changed.
func (r *Repository) MoveToListByEmail(ctx context.Context, email, list string) (int64, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE clients SET list = $2, updated_at = now()
		WHERE lower(email) = lower($1) AND list <> $2
	`, email, list)
	if err != nil {
		return 0, fmt.Errorf("move client to list: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) SetSubscribed(ctx context.Context, id uuid.UUID, subscribed bool) error {
	return r.exec(ctx, "set client subscription", `
		UPDATE clients SET subscribed = $2, updated_at = now() WHERE id = $1
	`, id, subscribed)
}

func (r *Repository) StampWished(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.exec(ctx, "stamp client wished", `
		UPDATE clients SET last_wished_datetime = $2, updated_at = now() WHERE id = $1
	`, id, at)
}

func (r *Repository) IncrementInquiries(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, "increment client inquiries", `
		UPDATE clients SET total_inquiries = total_inquiries + 1, updated_at = now() WHERE id = $1
	`, id)
}

func (r *Repository) IncrementEvents(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, "increment client events", `
		UPDATE clients SET total_events = total_events + 1, updated_at = now() WHERE id = $1
	`, id)
}

func (r *Repository) AddSpent(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return r.exec(ctx, "add client spent", `
		UPDATE clients SET total_spent = total_spent + $2, updated_at = now() WHERE id = $1
	`, id, amount)
}

// ListBirthdays returns subscribed, non-deleted clients born on month/day who
// have not been wished in year.
func (r *Repository) ListBirthdays(ctx context.Context, month, day, year int) ([]Client, error) {
	return r.query(ctx, "list birthday clients", `
		SELECT `+clientColumns+`
		FROM clients
		WHERE subscribed AND list <> $4
			AND birth_date IS NOT NULL
			AND EXTRACT(MONTH FROM birth_date) = $1
			AND EXTRACT(DAY FROM birth_date) = $2
			AND (last_wished_datetime IS NULL OR EXTRACT(YEAR FROM last_wished_datetime) < $3)
		ORDER BY created_at
	`, month, day, year, ListDeleted)
}

// ListRecipients returns the subscribed members of a list.
func (r *Repository) ListRecipients(ctx context.Context, list string) ([]Client, error) {
	return r.query(ctx, "list campaign recipients", `
		SELECT `+clientColumns+`
		FROM clients
		WHERE subscribed AND list = $1 AND list <> $2
		ORDER BY lower(email)
	`, list, ListDeleted)
}

func (r *Repository) exec(ctx context.Context, op, sql string, args ...interface{}) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(clientNotFoundMsg)
	}
	return nil
}

func (r *Repository) query(ctx context.Context, op, sql string, args ...interface{}) ([]Client, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := make([]Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return items, nil
}
