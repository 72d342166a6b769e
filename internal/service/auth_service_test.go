package service

import (
	"context"
	"database/sql"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-web-api/internal/models"
	"github.com/noah-isme/sma-web-api/internal/repository"
	appErrors "github.com/noah-isme/sma-web-api/pkg/errors"
	"github.com/noah-isme/sma-web-api/pkg/jobs"
	"github.com/noah-isme/sma-web-api/pkg/storage"
	"github.com/noah-isme/sma-web-api/pkg/validation"
)

type mockAuthRepo struct {
	users            map[string]*models.User
	admins           map[string]bool
	refreshTokens    map[string]*models.RefreshToken
	createErr        error
	lastLoginUpdated bool
	revokedAll       []string
}

func newMockAuthRepo(users ...*models.User) *mockAuthRepo {
	repo := &mockAuthRepo{
		users:         map[string]*models.User{},
		admins:        map[string]bool{},
		refreshTokens: map[string]*models.RefreshToken{},
	}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.ID = "u-new"
	m.users[user.ID] = user
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthRepo) HasRole(ctx context.Context, userID, role string) (bool, error) {
	return m.admins[userID], nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAll = append(m.revokedAll, userID)
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

type recordingQueue struct {
	jobs []jobs.Job
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newAuthService(repo *mockAuthRepo, queue jobs.Enqueuer) *AuthService {
	return NewAuthService(repo, validation.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "sma-web-api",
		ResetLinkURL:       "https://sekolah.sch.id/reset-password",
	}, storage.NewTokenSigner("reset-secret", time.Hour), queue)
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := newMockAuthRepo(&models.User{ID: "u1", Email: "admin@sekolah.sch.id", PasswordHash: hashed(t, "rahasia123"), Active: true})
	repo.admins["u1"] = true
	svc := newAuthService(repo, nil)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: " Admin@Sekolah.sch.id ", Password: "rahasia123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.True(t, res.User.IsAdmin)
	assert.True(t, repo.lastLoginUpdated)
}

func TestAuthServiceLoginInvalidCredentials(t *testing.T) {
	repo := newMockAuthRepo(&models.User{ID: "u1", Email: "guru@sekolah.sch.id", PasswordHash: hashed(t, "rahasia123"), Active: true})
	svc := newAuthService(repo, nil)

	for _, req := range []models.LoginRequest{
		{Email: "guru@sekolah.sch.id", Password: "salah"},
		{Email: "tidakada@sekolah.sch.id", Password: "rahasia123"},
	} {
		_, err := svc.Login(context.Background(), req)
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
		assert.Equal(t, "Email atau password salah", appErr.Message)
	}
}

func TestAuthServiceLoginInactive(t *testing.T) {
	repo := newMockAuthRepo(&models.User{ID: "u1", Email: "guru@sekolah.sch.id", PasswordHash: hashed(t, "rahasia123")})
	svc := newAuthService(repo, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "guru@sekolah.sch.id", Password: "rahasia123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	repo := newMockAuthRepo(&models.User{ID: "u1", Email: "guru@sekolah.sch.id", Active: true})
	svc := newAuthService(repo, nil)

	_, err := svc.Register(context.Background(), models.RegisterRequest{Email: "GURU@sekolah.sch.id", Password: "rahasia123", FullName: "Guru"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrEmailRegistered.Code, appErr.Code)
	assert.Equal(t, "Email sudah terdaftar", appErr.Message)

	res, err := svc.Register(context.Background(), models.RegisterRequest{Email: "baru@sekolah.sch.id", Password: "rahasia123", FullName: "Baru"})
	require.NoError(t, err)
	assert.Equal(t, "baru@sekolah.sch.id", res.User.Email)
	assert.False(t, res.User.IsAdmin)
}

func TestAuthServiceRefreshTokenRotates(t *testing.T) {
	user := &models.User{ID: "u1", Email: "guru@sekolah.sch.id", Active: true}
	repo := newMockAuthRepo(user)
	repo.refreshTokens["token"] = &models.RefreshToken{ID: "rt1", UserID: user.ID, Token: "token", ExpiresAt: time.Now().Add(time.Hour)}
	svc := newAuthService(repo, nil)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.NoError(t, err)
	assert.NotEqual(t, "token", res.RefreshToken)
	assert.True(t, repo.refreshTokens["token"].Revoked)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceChangePassword(t *testing.T) {
	oldHash := hashed(t, "lama123")
	repo := newMockAuthRepo(&models.User{ID: "u1", PasswordHash: oldHash, Active: true})
	svc := newAuthService(repo, nil)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "keliru", NewPassword: "baru12345"})
	require.Error(t, err)
	assert.Equal(t, "Password lama tidak sesuai", appErrors.FromError(err).Message)

	require.NoError(t, svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "lama123", NewPassword: "baru12345"}))
	assert.NotEqual(t, oldHash, repo.users["u1"].PasswordHash)
	assert.Contains(t, repo.revokedAll, "u1")
}

func TestAuthServiceForgotAndResetPassword(t *testing.T) {
	repo := newMockAuthRepo(&models.User{ID: "u1", Email: "guru@sekolah.sch.id", FullName: "Bu Guru", PasswordHash: hashed(t, "lama123"), Active: true})
	queue := &recordingQueue{}
	svc := newAuthService(repo, queue)

	require.NoError(t, svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "tidakada@sekolah.sch.id"}))
	assert.Empty(t, queue.jobs)

	require.NoError(t, svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "guru@sekolah.sch.id"}))
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobPasswordResetMail, queue.jobs[0].Type)
	mail, ok := queue.jobs[0].Payload.(models.PasswordResetMail)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(mail.Link, "https://sekolah.sch.id/reset-password?token="))
	token := extractToken(t, mail.Link)

	require.NoError(t, svc.ResetPassword(context.Background(), models.ResetPasswordRequest{Token: token, NewPassword: "baru12345"}))
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users["u1"].PasswordHash), []byte("baru12345")))

	err := svc.ResetPassword(context.Background(), models.ResetPasswordRequest{Token: token, NewPassword: "lain12345"})
	require.Error(t, err)
	assert.Equal(t, "Tautan reset password tidak valid atau sudah kedaluwarsa", appErrors.FromError(err).Message)
}

func TestValidateToken(t *testing.T) {
	user := &models.User{ID: "u1", Email: "guru@sekolah.sch.id"}
	svc := newAuthService(newMockAuthRepo(user), nil)
	token, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, err = svc.ValidateToken(token + "x")
	require.Error(t, err)
}

func extractToken(t *testing.T, link string) string {
	t.Helper()
	idx := strings.Index(link, "token=")
	require.GreaterOrEqual(t, idx, 0)
	raw := link[idx+len("token="):]
	token, err := url.QueryUnescape(raw)
	require.NoError(t, err)
	return token
}
