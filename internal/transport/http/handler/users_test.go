package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/otp-identity-api/internal/application/user"
	"github.com/otp-identity-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUserSvc struct{ mock.Mock }

func (m *mockUserSvc) List(ctx context.Context, limit int, cursor, search string) (*user.Page, error) {
	args := m.Called(ctx, limit, cursor, search)
	if p, _ := args.Get(0).(*user.Page); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// withChiID injects a chi URL param "id" into the request context.
func withChiID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestListUsers_PassesQuery(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("List", mock.Anything, 20, "c1", "asha").Return(&user.Page{
		Users: []domain.User{{UserID: "u1", Name: "Asha"}}, NextCursor: "c2",
	}, nil)
	rr := httptest.NewRecorder()
	NewUserHandler(svc).List(rr, httptest.NewRequest(http.MethodGet, "/v1/admin/users?limit=20&cursor=c1&search=asha", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	data := string(readEnvelope(t, rr).Data)
	assert.Contains(t, data, `"next_cursor":"c2"`)
	assert.Contains(t, data, `"name":"Asha"`)
}

func TestListUsers_BadCursor(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("List", mock.Anything, 0, "!!", "").Return(nil, domain.ErrBadRequest)
	rr := httptest.NewRecorder()
	NewUserHandler(svc).List(rr, httptest.NewRequest(http.MethodGet, "/v1/admin/users?cursor=!!", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetUser_NotFound(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Get", mock.Anything, "missing").Return(nil, domain.ErrNotFound)
	rr := httptest.NewRecorder()
	NewUserHandler(svc).Get(rr, withChiID(httptest.NewRequest(http.MethodGet, "/v1/admin/users/missing", nil), "missing"))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Resource not found.", readEnvelope(t, rr).Message)
}
