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

const userNotFoundMsg = "user not found"

// Repository persists users, roles and refresh tokens.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	Signature    string
	IsActive     bool
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const userColumns = `u.id, u.email, u.password_hash, u.name, u.signature, u.is_active,
	COALESCE((SELECT array_agg(r.role ORDER BY r.role) FROM user_roles r WHERE r.user_id = u.id), '{}'),
	u.created_at, u.updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Signature, &u.IsActive, &u.Roles, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *Repository) CreateUser(ctx context.Context, user User) (User, error) {
	var id uuid.UUID
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, signature)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, user.Email, user.PasswordHash, user.Name, user.Signature).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, apperr.Conflict("email already registered")
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return r.GetUserByID(ctx, id)
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	user, err := scanUser(db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users u WHERE lower(u.email) = lower($1)
	`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.NotFound(userNotFoundMsg)
	}
	if err != nil {
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *Repository) GetUserByID(ctx context.Context, userID uuid.UUID) (User, error) {
	user, err := scanUser(db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users u WHERE u.id = $1
	`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.NotFound(userNotFoundMsg)
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ListUsers returns active users whose name or email matches search.
func (r *Repository) ListUsers(ctx context.Context, search string, limit int) ([]User, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	var searchParam interface{}
	if search != "" {
		searchParam = "%" + search + "%"
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+userColumns+`
		FROM users u
		WHERE u.is_active
			AND ($1::text IS NULL OR u.name ILIKE $1 OR u.email ILIKE $1)
		ORDER BY u.name ASC, u.email ASC
		LIMIT $2
	`, searchParam, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// UpdateProfile changes name and signature; nil fields are kept.
func (r *Repository) UpdateProfile(ctx context.Context, userID uuid.UUID, name, signature *string) (User, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE users SET
			name = COALESCE($2, name),
			signature = COALESCE($3, signature),
			updated_at = now()
		WHERE id = $1
	`, userID, name, signature)
	if err != nil {
		return User{}, fmt.Errorf("update user profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return User{}, apperr.NotFound(userNotFoundMsg)
	}
	return r.GetUserByID(ctx, userID)
}

func (r *Repository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1
	`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(userNotFoundMsg)
	}
	return nil
}

func (r *Repository) SetUserRoles(ctx context.Context, userID uuid.UUID, roles []string) error {
	q := db.Conn(ctx, r.pool)
	if _, err := q.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear user roles: %w", err)
	}
	if len(roles) == 0 {
		return nil
	}
	if _, err := q.Exec(ctx, `
		INSERT INTO user_roles (user_id, role)
		SELECT $1, unnest($2::text[])
		ON CONFLICT DO NOTHING
	`, userID, roles); err != nil {
		return fmt.Errorf("set user roles: %w", err)
	}
	return nil
}

func (r *Repository) CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`, userID, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken returns the owner and expiry of a non-revoked token.
func (r *Repository) GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error) {
	var userID uuid.UUID
	var expiresAt time.Time
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT user_id, expires_at
		FROM refresh_tokens
		WHERE token_hash = $1 AND revoked_at IS NULL
	`, tokenHash).Scan(&userID, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.UUID{}, time.Time{}, apperr.NotFound("refresh token not found")
	}
	if err != nil {
		return uuid.UUID{}, time.Time{}, fmt.Errorf("get refresh token: %w", err)
	}
	return userID, expiresAt, nil
}

func (r *Repository) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE token_hash = $1 AND revoked_at IS NULL
	`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (r *Repository) RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE user_id = $1 AND revoked_at IS NULL
	`, userID)
	if err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}
