package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ims_backend/platform/apperr"
	"ims_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const templateNotFoundMsg = "template not found"

// Template is a keyed email template.
type Template struct {
	ID        uuid.UUID `json:"id"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	HTML      string    `json:"html"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TemplateUpdate carries optional field changes.
type TemplateUpdate struct {
	Name    *string
	Subject *string
	HTML    *string
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const templateColumns = `id, key, name, subject, html, created_at, updated_at`

func scanTemplate(row pgx.Row) (Template, error) {
	var t Template
	err := row.Scan(&t.ID, &t.Key, &t.Name, &t.Subject, &t.HTML, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// Create inserts a template. A duplicate key returns a Conflict carrying the existing row.
func (r *Repository) Create(ctx context.Context, t Template) (Template, error) {
	created, err := scanTemplate(db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO templates (key, name, subject, html)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO NOTHING
		RETURNING `+templateColumns,
		t.Key, t.Name, t.Subject, t.HTML,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		existing, getErr := r.GetByKey(ctx, t.Key)
		if getErr != nil {
			return Template{}, getErr
		}
		return Template{}, apperr.Conflict("template key already exists").WithDetails(existing)
	}
	if err != nil {
		return Template{}, fmt.Errorf("create template: %w", err)
	}
	return created, nil
}

func (r *Repository) GetByKey(ctx context.Context, key string) (Template, error) {
	t, err := scanTemplate(db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+templateColumns+` FROM templates WHERE key = $1
	`, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, apperr.NotFound(templateNotFoundMsg)
	}
	if err != nil {
		return Template{}, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (r *Repository) List(ctx context.Context) ([]Template, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+templateColumns+` FROM templates ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	items := make([]Template, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return items, nil
}

func (r *Repository) Update(ctx context.Context, key string, u TemplateUpdate) (Template, error) {
	t, err := scanTemplate(db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE templates SET
			name = COALESCE($2, name),
			subject = COALESCE($3, subject),
			html = COALESCE($4, html),
			updated_at = now()
		WHERE key = $1
		RETURNING `+templateColumns,
		key, u.Name, u.Subject, u.HTML,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, apperr.NotFound(templateNotFoundMsg)
	}
	if err != nil {
		return Template{}, fmt.Errorf("update template: %w", err)
	}
	return t, nil
}

func (r *Repository) Delete(ctx context.Context, key string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM templates WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(templateNotFoundMsg)
	}
	return nil
}
