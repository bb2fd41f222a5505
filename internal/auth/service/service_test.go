package service

import (
	"context"
	"testing"
	"time"

	"ims_backend/internal/auth/password"
	"ims_backend/internal/auth/repository"
	"ims_backend/internal/auth/token"
	"ims_backend/platform/apperr"
	"ims_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type fakeConfig struct{}

func (fakeConfig) GetJWTAccessSecret() string         { return "test-secret" }
func (fakeConfig) GetAccessTokenTTL() time.Duration  { return 15 * time.Minute }
func (fakeConfig) GetRefreshTokenTTL() time.Duration { return time.Hour }

type storedToken struct {
	userID    uuid.UUID
	expiresAt time.Time
	revoked   bool
}

type fakeRepo struct {
	users  map[uuid.UUID]repository.User
	tokens map[string]*storedToken
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[uuid.UUID]repository.User{}, tokens: map[string]*storedToken{}}
}

func (f *fakeRepo) CreateUser(_ context.Context, u repository.User) (repository.User, error) {
	u.ID = uuid.New()
	u.IsActive = true
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeRepo) GetUserByEmail(_ context.Context, email string) (repository.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return repository.User{}, apperr.NotFound("user not found")
}

func (f *fakeRepo) GetUserByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	u, ok := f.users[id]
	if !ok {
		return repository.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (f *fakeRepo) ListUsers(context.Context, string, int) ([]repository.User, error) {
	return nil, nil
}

func (f *fakeRepo) UpdateProfile(_ context.Context, id uuid.UUID, name, signature *string) (repository.User, error) {
	u := f.users[id]
	if name != nil {
		u.Name = *name
	}
	if signature != nil {
		u.Signature = *signature
	}
	f.users[id] = u
	return u, nil
}

func (f *fakeRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	u := f.users[id]
	u.PasswordHash = hash
	f.users[id] = u
	return nil
}

func (f *fakeRepo) SetUserRoles(_ context.Context, id uuid.UUID, roles []string) error {
	u := f.users[id]
	u.Roles = roles
	f.users[id] = u
	return nil
}

func (f *fakeRepo) CreateRefreshToken(_ context.Context, id uuid.UUID, hash string, exp time.Time) error {
	f.tokens[hash] = &storedToken{userID: id, expiresAt: exp}
	return nil
}

func (f *fakeRepo) GetRefreshToken(_ context.Context, hash string) (uuid.UUID, time.Time, error) {
	t, ok := f.tokens[hash]
	if !ok || t.revoked {
		return uuid.UUID{}, time.Time{}, apperr.NotFound("refresh token not found")
	}
	return t.userID, t.expiresAt, nil
}

func (f *fakeRepo) RevokeRefreshToken(_ context.Context, hash string) error {
	if t, ok := f.tokens[hash]; ok {
		t.revoked = true
	}
	return nil
}

func (f *fakeRepo) RevokeAllRefreshTokens(_ context.Context, id uuid.UUID) error {
	for _, t := range f.tokens {
		if t.userID == id {
			t.revoked = true
		}
	}
	return nil
}

func seedUser(t *testing.T, repo *fakeRepo, email, plain string) repository.User {
	t.Helper()
	hash, err := password.Hash(plain)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u, _ := repo.CreateUser(context.Background(), repository.User{Email: email, PasswordHash: hash, Roles: []string{"sales"}})
	return u
}

func TestSignIn_IssuesAccessTokenWithEmailClaim(t *testing.T) {
	repo := newFakeRepo()
	user := seedUser(t, repo, "jane@ims.test", "password123")
	svc := New(repo, fakeConfig{}, logger.Discard())

	session, err := svc.SignIn(context.Background(), "  Jane@IMS.test ", "password123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.RefreshToken == "" {
		t.Fatalf("expected a refresh token")
	}
	if _, ok := repo.tokens[token.HashSHA256(session.RefreshToken)]; !ok {
		t.Fatalf("expected refresh token hash to be stored")
	}

	parsed, err := jwt.Parse(session.AccessToken, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != user.ID.String() || claims["email"] != "jane@ims.test" || claims["type"] != "access" {
		t.Fatalf("unexpected claims: %v", claims)
	}
}

func TestSignIn_WrongPasswordIsUnauthorized(t *testing.T) {
	repo := newFakeRepo()
	seedUser(t, repo, "jane@ims.test", "password123")
	svc := New(repo, fakeConfig{}, logger.Discard())

	_, err := svc.SignIn(context.Background(), "jane@ims.test", "nope")
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	_, err = svc.SignIn(context.Background(), "ghost@ims.test", "password123")
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	repo := newFakeRepo()
	seedUser(t, repo, "jane@ims.test", "password123")
	svc := New(repo, fakeConfig{}, logger.Discard())

	first, err := svc.SignIn(context.Background(), "jane@ims.test", "password123")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	second, err := svc.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("expected a new refresh token")
	}
	if _, err := svc.Refresh(context.Background(), first.RefreshToken); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected reused token to be rejected, got %v", err)
	}
}

func TestRefresh_ExpiredTokenIsRejected(t *testing.T) {
	repo := newFakeRepo()
	seedUser(t, repo, "jane@ims.test", "password123")
	svc := New(repo, fakeConfig{}, logger.Discard())

	session, err := svc.SignIn(context.Background(), "jane@ims.test", "password123")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, err := svc.Refresh(context.Background(), session.RefreshToken); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected expired session to be unauthorized, got %v", err)
	}
}

func TestSignOut_RevokesToken(t *testing.T) {
	repo := newFakeRepo()
	seedUser(t, repo, "jane@ims.test", "password123")
	svc := New(repo, fakeConfig{}, logger.Discard())

	session, _ := svc.SignIn(context.Background(), "jane@ims.test", "password123")
	if err := svc.SignOut(context.Background(), session.RefreshToken); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if !repo.tokens[token.HashSHA256(session.RefreshToken)].revoked {
		t.Fatalf("expected token to be revoked")
	}
}

func TestCreateUser_NormalizesRoles(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, fakeConfig{}, logger.Discard())

	user, err := svc.CreateUser(context.Background(), "New@IMS.test", "password123", "New Person", []string{"Sales", "sales", " admin "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Email != "new@ims.test" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if len(user.Roles) != 2 || user.Roles[0] != "sales" || user.Roles[1] != "admin" {
		t.Fatalf("unexpected roles %v", user.Roles)
	}
}
