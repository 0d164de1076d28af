package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Evgen-Mutagen/paymybuddy/internal/core"
	"github.com/Evgen-Mutagen/paymybuddy/internal/model"
	"github.com/Evgen-Mutagen/paymybuddy/internal/repository/repositorytest"
	"github.com/Evgen-Mutagen/paymybuddy/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestRouter(t *testing.T) (http.Handler, *service.Auth, *repositorytest.MemStore) {
	t.Helper()
	store := repositorytest.NewMemStore()
	logger := zap.NewNop()
	hasher := service.BcryptHasher{Cost: bcrypt.MinCost}
	auth := service.NewAuth(store, hasher, service.AuthConfig{SecretKey: "router-test"}, logger)

	cfg := &Config{JWTTTL: time.Hour, RequestTimeout: 5 * time.Second}
	router := NewRouter(cfg, Services{
		Auth:       auth,
		Users:      service.NewUsers(store, hasher, logger),
		Relations:  service.NewRelations(store, logger),
		Settlement: service.NewSettlement(store, logger),
	}, nil, logger)
	return router, auth, store
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterProtectsAPI(t *testing.T) {
	router, _, _ := newTestRouter(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/user/profile"},
		{http.MethodPut, "/api/user/profile"},
		{http.MethodGet, "/api/relations"},
		{http.MethodPost, "/api/relations"},
		{http.MethodGet, "/api/transactions"},
		{http.MethodPost, "/api/transactions"},
	} {
		rec := do(t, router, route.method, route.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.method+" "+route.path)
	}

	rec := do(t, router, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterTransferFlow(t *testing.T) {
	router, auth, store := newTestRouter(t)
	ctx := context.Background()

	_, alice, err := auth.Register(ctx, "alice", "a@x.com", "password123")
	require.NoError(t, err)
	_, _, err = auth.Register(ctx, "bob", "b@x.com", "password123")
	require.NoError(t, err)

	rec := do(t, router, http.MethodPost, "/api/transactions", alice, `{"receiver_email":"b@x.com","amount":"10"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/relations", alice, `{"email":"b@x.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/relations", alice, `{"email":"B@x.com"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/transactions", alice, `{"receiver_email":"b@x.com","description":"rent","amount":"30.25"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/transactions", alice, `{"receiver_email":"b@x.com","amount":"500"}`)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/transactions", alice, `{"receiver_email":"b@x.com","amount":"1.001"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/transactions", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"amount":"30.25"`)

	assert.True(t, store.Balance("a@x.com").Equal(model.DefaultBalance.Sub(decimalOf(t, "30.25"))))
	assert.Equal(t, 1, store.TransactionCount())
	assert.True(t, store.TotalBalance().Equal(model.DefaultBalance.Mul(decimalOf(t, "2"))))

	rec = do(t, router, http.MethodGet, "/api/user/profile", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"balance":"69.75"`)
}

func TestRouterMapsKinds(t *testing.T) {
	router, auth, _ := newTestRouter(t)
	_, token, err := auth.Register(context.Background(), "alice", "a@x.com", "password123")
	require.NoError(t, err)

	rec := do(t, router, http.MethodPost, "/api/relations", token, `{"email":"a@x.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), core.KindSelfRelation.String())

	rec = do(t, router, http.MethodPost, "/api/relations", token, `{"email":"ghost@x.com"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/user/register", "", `{"username":"a","email":"a@x.com","password":"password123"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/user/login", "", `{"email":"a@x.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func decimalOf(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}
