package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/treeline-dev/backend-treeline/internal/auth"
	"github.com/treeline-dev/backend-treeline/internal/common"
)

type fakeAdmins struct {
	byEmail map[string]auth.Admin
}

func (f *fakeAdmins) GetByEmail(_ context.Context, email string) (auth.Admin, error) {
	admin, ok := f.byEmail[email]
	if !ok {
		return auth.Admin{}, pgx.ErrNoRows
	}
	return admin, nil
}

func newAuthService(t *testing.T) (*auth.Service, uuid.UUID) {
	t.Helper()
	hash, err := argon2id.CreateHash("correct horse battery", argon2id.DefaultParams)
	require.NoError(t, err)
	adminID := uuid.New()
	store := &fakeAdmins{byEmail: map[string]auth.Admin{
		"admin@treeline.dev": {ID: adminID, Email: "admin@treeline.dev", PasswordHash: hash},
	}}
	svc, err := auth.NewService(auth.Config{
		Store:          store,
		Secret:         "test-secret-test-secret-test-secret",
		AccessTokenTTL: time.Hour,
		Issuer:         "backend-treeline",
		Audience:       "treeline-admin",
	})
	require.NoError(t, err)
	return svc, adminID
}

func TestLoginIssuesParsableToken(t *testing.T) {
	svc, adminID := newAuthService(t)

	result, err := svc.Login(context.Background(), "Admin@Treeline.dev ", "correct horse battery")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.WithinDuration(t, time.Now().Add(time.Hour), result.AccessExpiry, time.Minute)

	subject, err := svc.ParseAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, adminID.String(), subject)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.Login(context.Background(), "admin@treeline.dev", "wrong")
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "INVALID_CREDENTIALS", appErr.Code)
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.Login(context.Background(), "nobody@treeline.dev", "correct horse battery")
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "INVALID_CREDENTIALS", appErr.Code)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	svc, _ := newAuthService(t)
	svc.WithNow(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	result, err := svc.Login(context.Background(), "admin@treeline.dev", "correct horse battery")
	require.NoError(t, err)

	svc.WithNow(time.Now)
	_, err = svc.ParseAccessToken(result.AccessToken)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthService(t)
	_, err := svc.ParseAccessToken("not-a-token")
	require.Error(t, err)
}

func TestRequireAdminMiddleware(t *testing.T) {
	svc, adminID := newAuthService(t)
	result, err := svc.Login(context.Background(), "admin@treeline.dev", "correct horse battery")
	require.NoError(t, err)

	mw := auth.Middleware{Service: svc}
	var seenAdmin string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenAdmin, _ = common.AdminID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/products", nil)
	req.Header.Set("Authorization", "Bearer "+result.AccessToken)
	rec := httptest.NewRecorder()
	mw.RequireAdmin(next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, adminID.String(), seenAdmin)

	rec = httptest.NewRecorder()
	mw.RequireAdmin(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/products", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
