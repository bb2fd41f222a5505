package service

import (
	"context"
	"strings"
	"time"

	"ims_backend/internal/auth/password"
	"ims_backend/internal/auth/repository"
	"ims_backend/internal/auth/token"
	"ims_backend/platform/apperr"
	"ims_backend/platform/config"
	"ims_backend/platform/logger"
	"ims_backend/platform/sanitize"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	accessTokenType   = "access"
	refreshTokenBytes = 48

	msgInvalidCredentials = "invalid credentials"
	msgInvalidSession     = "invalid session"
)

// Repository is the persistence the auth service needs.
type Repository interface {
	CreateUser(ctx context.Context, user repository.User) (repository.User, error)
	GetUserByEmail(ctx context.Context, email string) (repository.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (repository.User, error)
	ListUsers(ctx context.Context, search string, limit int) ([]repository.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, name, signature *string) (repository.User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	SetUserRoles(ctx context.Context, userID uuid.UUID, roles []string) error
	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error
}

// Session is the result of a successful sign-in or refresh.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         repository.User
}

type Service struct {
	repo Repository
	cfg  config.AuthServiceConfig
	log  *logger.Logger
	now  func() time.Time
}

func New(repo Repository, cfg config.AuthServiceConfig, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, log: log, now: time.Now}
}

func (s *Service) SignIn(ctx context.Context, email, plainPassword string) (Session, error) {
	email = sanitize.Email(email)
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			s.log.AuthEvent("sign_in", email, false, "unknown email")
			return Session{}, apperr.Unauthorized(msgInvalidCredentials)
		}
		return Session{}, err
	}

	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		s.log.AuthEvent("sign_in", email, false, "password mismatch")
		return Session{}, apperr.Unauthorized(msgInvalidCredentials)
	}
	if !user.IsActive {
		s.log.AuthEvent("sign_in", email, false, "inactive")
		return Session{}, apperr.Forbidden("account disabled")
	}

	session, err := s.issueTokens(ctx, user)
	if err != nil {
		return Session{}, err
	}
	s.log.AuthEvent("sign_in", email, true, "")
	return session, nil
}

// Refresh rotates the refresh token: the presented one is revoked either way.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if refreshToken == "" {
		return Session{}, apperr.Unauthorized(msgInvalidSession)
	}
	hash := token.HashSHA256(refreshToken)
	userID, expiresAt, err := s.repo.GetRefreshToken(ctx, hash)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return Session{}, apperr.Unauthorized(msgInvalidSession)
		}
		return Session{}, err
	}

	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil {
		return Session{}, err
	}
	if s.now().After(expiresAt) {
		return Session{}, apperr.Unauthorized("session expired")
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	if !user.IsActive {
		return Session{}, apperr.Forbidden("account disabled")
	}
	return s.issueTokens(ctx, user)
}

func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.repo.RevokeRefreshToken(ctx, token.HashSHA256(refreshToken))
}

// CurrentUser loads the users row; sessionEmail from the token wins when the
// row has none recorded.
func (s *Service) CurrentUser(ctx context.Context, userID uuid.UUID, sessionEmail string) (repository.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return repository.User{}, err
	}
	if user.Email == "" {
		user.Email = sessionEmail
	}
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (repository.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

func (s *Service) ListUsers(ctx context.Context, search string, limit int) ([]repository.User, error) {
	return s.repo.ListUsers(ctx, sanitize.Text(search), limit)
}

func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, name, signature *string) (repository.User, error) {
	return s.repo.UpdateProfile(ctx, userID, sanitize.TextPtr(name), signature)
}

func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := password.Compare(user.PasswordHash, current); err != nil {
		return apperr.Validation("current password is incorrect")
	}
	hash, err := password.Hash(next)
	if err != nil {
		return apperr.Validation(err.Error())
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	return s.repo.RevokeAllRefreshTokens(ctx, userID)
}

// CreateUser is the admin path for onboarding salespeople.
func (s *Service) CreateUser(ctx context.Context, email, plainPassword, name string, roles []string) (repository.User, error) {
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return repository.User{}, apperr.Validation(err.Error())
	}
	user, err := s.repo.CreateUser(ctx, repository.User{
		Email:        sanitize.Email(email),
		PasswordHash: hash,
		Name:         sanitize.Text(name),
	})
	if err != nil {
		return repository.User{}, err
	}
	if len(roles) > 0 {
		if err := s.repo.SetUserRoles(ctx, user.ID, normalizeRoles(roles)); err != nil {
			return repository.User{}, err
		}
		user.Roles = normalizeRoles(roles)
	}
	return user, nil
}

func (s *Service) SetUserRoles(ctx context.Context, userID uuid.UUID, roles []string) error {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return err
	}
	return s.repo.SetUserRoles(ctx, userID, normalizeRoles(roles))
}

func (s *Service) issueTokens(ctx context.Context, user repository.User) (Session, error) {
	accessToken, err := s.signJWT(user)
	if err != nil {
		return Session{}, err
	}

	refreshToken, err := token.GenerateRandomToken(refreshTokenBytes)
	if err != nil {
		return Session{}, err
	}

	expiresAt := s.now().Add(s.cfg.GetRefreshTokenTTL())
	if err := s.repo.CreateRefreshToken(ctx, user.ID, token.HashSHA256(refreshToken), expiresAt); err != nil {
		return Session{}, err
	}

	return Session{AccessToken: accessToken, RefreshToken: refreshToken, User: user}, nil
}

func (s *Service) signJWT(user repository.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"type":  accessTokenType,
		"roles": user.Roles,
		"exp":   now.Add(s.cfg.GetAccessTokenTTL()).Unix(),
		"iat":   now.Unix(),
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}

func normalizeRoles(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
