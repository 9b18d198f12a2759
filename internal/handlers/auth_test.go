package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/co2quest/carbon-tracker/internal/auth"
	"github.com/co2quest/carbon-tracker/internal/models"
)

func authFixture(t *testing.T) (*AuthHandler, *auth.Service, *fakeUserCollection) {
	t.Helper()
	service, err := auth.NewService()
	require.NoError(t, err)
	users := newFakeUserCollection()
	return NewAuthHandler(service, users), service, users
}

func TestRegister(t *testing.T) {
	handler, _, users := authFixture(t)

	body := `{"username":"ecodriver","email":"eco@example.com","password":"secret123"}`
	rec := postJSON(handler.Register, "/api/auth/register", body, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	user, err := users.FindUserByUsername(context.Background(), "ecodriver")
	require.NoError(t, err)
	assert.Equal(t, "eco@example.com", user.Email)
	assert.NotEqual(t, "secret123", user.PasswordHash)
}

func TestRegister_Validation(t *testing.T) {
	handler, _, _ := authFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"short username", `{"username":"ab","email":"a@b.com","password":"secret123"}`},
		{"bad email", `{"username":"ecodriver","email":"not-an-email","password":"secret123"}`},
		{"short password", `{"username":"ecodriver","email":"a@b.com","password":"123"}`},
		{"bad json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(handler.Register, "/api/auth/register", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRegister_Duplicates(t *testing.T) {
	handler, _, _ := authFixture(t)

	body := `{"username":"ecodriver","email":"eco@example.com","password":"secret123"}`
	rec := postJSON(handler.Register, "/api/auth/register", body, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(handler.Register, "/api/auth/register", body, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	other := `{"username":"ecodriver2","email":"eco@example.com","password":"secret123"}`
	rec = postJSON(handler.Register, "/api/auth/register", other, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin(t *testing.T) {
	handler, service, users := authFixture(t)

	hash, err := service.HashPassword("secret123")
	require.NoError(t, err)
	require.NoError(t, users.InsertUser(context.Background(), models.User{
		Username:     "ecodriver",
		Email:        "eco@example.com",
		PasswordHash: hash,
	}))

	rec := postJSON(handler.Login, "/api/auth/login", `{"username":"ecodriver","password":"secret123"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ecodriver", resp.User.Username)
	assert.NotContains(t, rec.Body.String(), hash)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	handler, service, users := authFixture(t)

	hash, err := service.HashPassword("secret123")
	require.NoError(t, err)
	require.NoError(t, users.InsertUser(context.Background(), models.User{Username: "ecodriver", PasswordHash: hash}))

	tests := []struct {
		name string
		body string
		want int
	}{
		{"wrong password", `{"username":"ecodriver","password":"wrong"}`, http.StatusUnauthorized},
		{"unknown user", `{"username":"ghost","password":"secret123"}`, http.StatusUnauthorized},
		{"missing fields", `{"username":"ecodriver"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(handler.Login, "/api/auth/login", tt.body, "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestLogin_MethodNotAllowed(t *testing.T) {
	handler, _, _ := authFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/login", strings.NewReader(""))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
