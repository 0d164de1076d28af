package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Evgen-Mutagen/paymybuddy/internal/core"
	"github.com/Evgen-Mutagen/paymybuddy/internal/middlewareinternal"
	"github.com/Evgen-Mutagen/paymybuddy/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSettlement struct {
	transferFn func(ctx context.Context, sender, receiver, description string, amount decimal.Decimal) (*model.Transaction, error)
	listFn     func(ctx context.Context, email string) ([]*model.Transaction, error)
}

func (f *fakeSettlement) Transfer(ctx context.Context, sender, receiver, description string, amount decimal.Decimal) (*model.Transaction, error) {
	return f.transferFn(ctx, sender, receiver, description, amount)
}

func (f *fakeSettlement) ListTransactions(ctx context.Context, email string) ([]*model.Transaction, error) {
	return f.listFn(ctx, email)
}

type fakeGraph struct {
	addFn  func(ctx context.Context, requester, target string) (*model.Relation, error)
	listFn func(ctx context.Context, email string) ([]string, error)
}

func (f *fakeGraph) AddRelation(ctx context.Context, requester, target string) (*model.Relation, error) {
	return f.addFn(ctx, requester, target)
}

func (f *fakeGraph) ListRelations(ctx context.Context, email string) ([]string, error) {
	return f.listFn(ctx, email)
}

func (f *fakeGraph) AreRelated(ctx context.Context, a, b string) (bool, error) {
	return false, nil
}

type fakeAuth struct {
	user *model.User
	err  error
}

func (f *fakeAuth) Register(ctx context.Context, username, email, password string) (*model.User, string, error) {
	return f.user, "token-123", f.err
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	return f.user, "token-123", f.err
}

func (f *fakeAuth) Authenticate(ctx context.Context, token string) (string, error) {
	return "", nil
}

type fakeUsers struct {
	user   *model.User
	err    error
	update core.ProfileUpdate
}

func (f *fakeUsers) GetProfile(ctx context.Context, email string) (*model.User, error) {
	return f.user, f.err
}

func (f *fakeUsers) UpdateProfile(ctx context.Context, email string, update core.ProfileUpdate) (*model.User, error) {
	f.update = update
	return f.user, f.err
}

func authed(r *http.Request, email string) *http.Request {
	return r.WithContext(middlewareinternal.WithEmail(r.Context(), email))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestTransfer(t *testing.T) {
	var got decimal.Decimal
	settlement := &fakeSettlement{
		transferFn: func(ctx context.Context, sender, receiver, description string, amount decimal.Decimal) (*model.Transaction, error) {
			assert.Equal(t, "a@x.com", sender)
			assert.Equal(t, "b@x.com", receiver)
			assert.Equal(t, "lunch", description)
			got = amount
			return &model.Transaction{ID: 1, SenderEmail: sender, ReceiverEmail: receiver, Description: description, Amount: amount, CreatedAt: time.Now()}, nil
		},
	}
	c := NewTransactionController(settlement, zap.NewNop())

	body := `{"receiver_email":"b@x.com","description":"lunch","amount":"12.5"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body)), "a@x.com")
	rec := httptest.NewRecorder()
	c.Transfer(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, got.Equal(decimal.RequireFromString("12.5")))

	var resp transactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "12.50", resp.Amount)
	assert.Equal(t, "b@x.com", resp.ReceiverEmail)
}

func TestTransferAcceptsNumericAmount(t *testing.T) {
	var got decimal.Decimal
	settlement := &fakeSettlement{
		transferFn: func(ctx context.Context, sender, receiver, description string, amount decimal.Decimal) (*model.Transaction, error) {
			got = amount
			return &model.Transaction{Amount: amount}, nil
		},
	}
	c := NewTransactionController(settlement, zap.NewNop())

	body := `{"receiver_email":"b@x.com","amount":0.1}`
	rec := httptest.NewRecorder()
	c.Transfer(rec, authed(httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body)), "a@x.com"))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "0.1", got.String())
}

func TestTransferBadRequests(t *testing.T) {
	settlement := &fakeSettlement{
		transferFn: func(ctx context.Context, sender, receiver, description string, amount decimal.Decimal) (*model.Transaction, error) {
			t.Fatal("settlement must not be called")
			return nil, nil
		},
	}
	c := NewTransactionController(settlement, zap.NewNop())

	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"receiver_email":`, "Invalid request format"},
		{"missing receiver", `{"amount":"1"}`, "receiver_email is required"},
		{"missing amount", `{"receiver_email":"b@x.com"}`, "amount is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c.Transfer(rec, authed(httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(tt.body)), "a@x.com"))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decodeError(t, rec).Message)
		})
	}
}

func TestTransferWithoutCallerIsUnauthorized(t *testing.T) {
	c := NewTransactionController(&fakeSettlement{}, zap.NewNop())

	rec := httptest.NewRecorder()
	c.Transfer(rec, httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTransferErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		status     int
		kind       string
		message    string
		retryAfter bool
	}{
		{core.ErrInvalidAmount, http.StatusUnprocessableEntity, "invalid_amount", "amount must be greater than zero", false},
		{core.NewError(core.KindUserNotFound, "receiver does not exist"), http.StatusNotFound, "user_not_found", "receiver does not exist", false},
		{core.ErrRelationNotFound, http.StatusForbidden, "relation_not_found", "users are not related", false},
		{core.NewError(core.KindInsufficientBalance, "insufficient balance: current balance 10.00, amount to debit 20.00"), http.StatusPaymentRequired, "insufficient_balance", "insufficient balance: current balance 10.00, amount to debit 20.00", false},
		{core.Unavailable("commit transaction", errors.New("pq: connection reset")), http.StatusServiceUnavailable, "store_unavailable", "Service temporarily unavailable, retry later", true},
		{errors.New("something odd"), http.StatusInternalServerError, "internal", "Internal server error", false},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			settlement := &fakeSettlement{
				transferFn: func(ctx context.Context, sender, receiver, description string, amount decimal.Decimal) (*model.Transaction, error) {
					return nil, tt.err
				},
			}
			c := NewTransactionController(settlement, zap.NewNop())

			body := `{"receiver_email":"b@x.com","amount":"20"}`
			rec := httptest.NewRecorder()
			c.Transfer(rec, authed(httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body)), "a@x.com"))

			require.Equal(t, tt.status, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.kind, resp.Error)
			assert.Equal(t, tt.message, resp.Message)
			if tt.retryAfter {
				assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			} else {
				assert.Empty(t, rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestGetTransactionsEmptyIsArray(t *testing.T) {
	settlement := &fakeSettlement{
		listFn: func(ctx context.Context, email string) ([]*model.Transaction, error) {
			return nil, nil
		},
	}
	c := NewTransactionController(settlement, zap.NewNop())

	rec := httptest.NewRecorder()
	c.GetTransactions(rec, authed(httptest.NewRequest(http.MethodGet, "/api/transactions", nil), "a@x.com"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAddRelation(t *testing.T) {
	graph := &fakeGraph{
		addFn: func(ctx context.Context, requester, target string) (*model.Relation, error) {
			assert.Equal(t, "a@x.com", requester)
			return &model.Relation{ID: 3, UserAEmail: requester, UserBEmail: target, Status: model.RelationAccepted}, nil
		},
	}
	c := NewRelationController(graph, zap.NewNop())

	rec := httptest.NewRecorder()
	c.AddRelation(rec, authed(httptest.NewRequest(http.MethodPost, "/api/relations", strings.NewReader(`{"email":"b@x.com"}`)), "a@x.com"))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp relationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "b@x.com", resp.Email)
	assert.Equal(t, "ACCEPTED", resp.Status)
}

func TestAddRelationErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{core.ErrSelfRelation, http.StatusBadRequest},
		{core.ErrDuplicateRelation, http.StatusConflict},
		{core.NewError(core.KindUserNotFound, "relation user does not exist"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(core.KindOf(tt.err).String(), func(t *testing.T) {
			graph := &fakeGraph{
				addFn: func(ctx context.Context, requester, target string) (*model.Relation, error) {
					return nil, tt.err
				},
			}
			c := NewRelationController(graph, zap.NewNop())

			rec := httptest.NewRecorder()
			c.AddRelation(rec, authed(httptest.NewRequest(http.MethodPost, "/api/relations", strings.NewReader(`{"email":"b@x.com"}`)), "a@x.com"))

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestGetRelations(t *testing.T) {
	graph := &fakeGraph{
		listFn: func(ctx context.Context, email string) ([]string, error) {
			return []string{"b@x.com", "c@x.com"}, nil
		},
	}
	c := NewRelationController(graph, zap.NewNop())

	rec := httptest.NewRecorder()
	c.GetRelations(rec, authed(httptest.NewRequest(http.MethodGet, "/api/relations", nil), "a@x.com"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["b@x.com","c@x.com"]`, rec.Body.String())
}

func TestRegisterSetsCookie(t *testing.T) {
	auth := &fakeAuth{user: &model.User{ID: 1, Username: "alice", Email: "a@x.com", Balance: model.DefaultBalance}}
	c := NewAuthController(auth, time.Hour, zap.NewNop())

	body := `{"username":"alice","email":"a@x.com","password":"password123"}`
	rec := httptest.NewRecorder()
	c.Register(rec, httptest.NewRequest(http.MethodPost, "/api/user/register", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "token-123", resp.Token)
	assert.Equal(t, "100.00", resp.User.Balance)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middlewareinternal.TokenCookie, cookies[0].Name)
	assert.Equal(t, "token-123", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLoginInvalidCredentials(t *testing.T) {
	c := NewAuthController(&fakeAuth{err: core.ErrInvalidCredentials}, time.Hour, zap.NewNop())

	rec := httptest.NewRecorder()
	c.Login(rec, httptest.NewRequest(http.MethodPost, "/api/user/login", strings.NewReader(`{"email":"a@x.com","password":"nope"}`)))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid email or password", decodeError(t, rec).Message)
	assert.Empty(t, rec.Result().Cookies())
}

func TestUpdateProfile(t *testing.T) {
	users := &fakeUsers{user: &model.User{ID: 1, Username: "Alice", Email: "alice@x.com", Balance: decimal.RequireFromString("42.5")}}
	c := NewUserController(users, zap.NewNop())

	body := `{"username":"Alice","email":"alice@x.com","password":"password123"}`
	rec := httptest.NewRecorder()
	c.UpdateProfile(rec, authed(httptest.NewRequest(http.MethodPut, "/api/user/profile", strings.NewReader(body)), "a@x.com"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.ProfileUpdate{Username: "Alice", Email: "alice@x.com", Password: "password123"}, users.update)

	var resp profileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "42.50", resp.Balance)
}

func TestGetProfileErrors(t *testing.T) {
	c := NewUserController(&fakeUsers{err: core.NewError(core.KindUserNotFound, "user not found")}, zap.NewNop())

	rec := httptest.NewRecorder()
	c.GetProfile(rec, authed(httptest.NewRequest(http.MethodGet, "/api/user/profile", nil), "a@x.com"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	c.GetProfile(rec, httptest.NewRequest(http.MethodGet, "/api/user/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
