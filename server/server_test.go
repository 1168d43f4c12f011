package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Naranpurev/devcamper/auth"
	"github.com/Naranpurev/devcamper/bootcamp"
	"github.com/Naranpurev/devcamper/database"
)

type capturingMailer struct {
	to   string
	body string
	fail bool
}

func (m *capturingMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.fail {
		return fmt.Errorf("smtp connection refused")
	}
	m.to = to
	m.body = body
	return nil
}

type fixedGeocoder struct {
	lat, lng float64
}

func (g fixedGeocoder) Geocode(ctx context.Context, location string) (float64, float64, error) {
	return g.lat, g.lng, nil
}

type testEnv struct {
	app    *fiber.App
	users  auth.Users
	camps  bootcamp.Bootcamps
	mailer *capturingMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := auth.NewUsersRepository(db)
	camps := bootcamp.NewRepository(db)

	tokens := auth.NewTokenService([]byte("server-test-secret"), time.Hour, "devcamper", nil)
	resets := auth.NewResetTokenGenerator(10 * time.Minute)
	mailer := &capturingMailer{}

	auther := auth.NewAuthenticator(users, tokens, resets).WithMailer(mailer)

	app := New(Options{
		Auther:       auther,
		Users:        users,
		Bootcamps:    camps,
		Geocoder:     fixedGeocoder{lat: 42.36, lng: -71.06},
		TokenLookup:  "cookie:token,header:Authorization",
		Cookie:       CookieOptions{Name: "token"},
		ResetURLBase: "http://localhost:5000/api/v1/auth/resetpassword",
	})

	return &testEnv{app: app, users: users, camps: camps, mailer: mailer}
}

func (e *testEnv) do(t *testing.T, method, path, token string, payload any) (*http.Response, Envelope) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, 10_000)
	require.NoError(t, err)

	var envelope Envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &envelope))

	return resp, envelope
}

func (e *testEnv) register(t *testing.T, name, email, role string) string {
	t.Helper()

	resp, envelope := e.do(t, fiber.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"name":     name,
		"email":    email,
		"password": "secret123",
		"role":     role,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotEmpty(t, envelope.Token)
	return envelope.Token
}

func TestRegisterAndMe(t *testing.T) {
	env := newTestEnv(t)

	token := env.register(t, "John Doe", "john@example.com", "")

	resp, envelope := env.do(t, fiber.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, envelope.Success)

	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)

	var user map[string]any
	require.NoError(t, json.Unmarshal(raw, &user))
	assert.Equal(t, "john@example.com", user["email"])
	assert.Equal(t, "user", user["role"])
	assert.NotContains(t, user, "password_hash")
	assert.NotContains(t, user, "reset_password_token")
}

func TestRegisterSetsTokenCookie(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/auth/register",
		strings.NewReader(`{"name":"Jane","email":"jane@example.com","password":"secret123"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := env.app.Test(req, 10_000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "token" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	env := newTestEnv(t)

	resp, envelope := env.do(t, fiber.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"name":     "Mallory",
		"email":    "mallory@example.com",
		"password": "secret123",
		"role":     "admin",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.False(t, envelope.Success)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "John", "dup@example.com", "")

	resp, envelope := env.do(t, fiber.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"name":     "John Again",
		"email":    "dup@example.com",
		"password": "secret123",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, auth.TextCodeDuplicateEmail, envelope.Code)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "John", "john@example.com", "")

	respUnknown, envUnknown := env.do(t, fiber.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"email":    "ghost@example.com",
		"password": "secret123",
	})
	respWrong, envWrong := env.do(t, fiber.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"email":    "john@example.com",
		"password": "wrong-password",
	})

	assert.Equal(t, fiber.StatusUnauthorized, respUnknown.StatusCode)
	assert.Equal(t, respUnknown.StatusCode, respWrong.StatusCode)
	assert.Equal(t, envUnknown.Error, envWrong.Error)
	assert.Equal(t, envUnknown.Code, envWrong.Code)
}

func TestProtectedRejectsMissingAndClearedTokens(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, fiber.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// the post-logout cookie value must not pass the guard
	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "none"})
	cleared, err := env.app.Test(req, 10_000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, cleared.StatusCode)
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/auth/logout", nil)
	resp, err := env.app.Test(req, 10_000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "token" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, "none", cookie.Value)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.WithinDuration(t, time.Now().Add(10*time.Second), cookie.Expires, 5*time.Second)
}

func TestUpdateDetails(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "John", "john@example.com", "")
	env.register(t, "Taken", "taken@example.com", "")

	resp, envelope := env.do(t, fiber.MethodPut, "/api/v1/auth/updatedetails", token, fiber.Map{
		"name":  "John Renamed",
		"email": "john.new@example.com",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var user map[string]any
	require.NoError(t, json.Unmarshal(raw, &user))
	assert.Equal(t, "John Renamed", user["name"])
	assert.Equal(t, "john.new@example.com", user["email"])

	// the credentials follow the email change
	login, _ := env.do(t, fiber.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"email":    "john.new@example.com",
		"password": "secret123",
	})
	assert.Equal(t, fiber.StatusOK, login.StatusCode)

	dup, dupEnvelope := env.do(t, fiber.MethodPut, "/api/v1/auth/updatedetails", token, fiber.Map{
		"name":  "John Renamed",
		"email": "taken@example.com",
	})
	assert.Equal(t, fiber.StatusConflict, dup.StatusCode)
	assert.Equal(t, auth.TextCodeDuplicateEmail, dupEnvelope.Code)
}

func TestUpdatePasswordWrongCurrent(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "John", "john@example.com", "")

	resp, _ := env.do(t, fiber.MethodPut, "/api/v1/auth/updatepassword", token, fiber.Map{
		"currentPassword": "not-the-password",
		"newPassword":     "another-secret",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// old credentials still work
	login, _ := env.do(t, fiber.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"email":    "john@example.com",
		"password": "secret123",
	})
	assert.Equal(t, fiber.StatusOK, login.StatusCode)
}

func TestForgotAndResetPasswordRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "John", "john@example.com", "")

	resp, _ := env.do(t, fiber.MethodPost, "/api/v1/auth/forgotpassword", "", fiber.Map{
		"email": "john@example.com",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "john@example.com", env.mailer.to)

	// the raw token is the last path segment of the emailed URL
	parts := strings.Split(env.mailer.body, "/")
	rawToken := parts[len(parts)-1]
	require.Len(t, rawToken, auth.ResetTokenLength*2)

	reset, envelope := env.do(t, fiber.MethodPut, "/api/v1/auth/resetpassword/"+rawToken, "", fiber.Map{
		"password": "brand-new-secret",
	})
	require.Equal(t, fiber.StatusOK, reset.StatusCode)
	assert.NotEmpty(t, envelope.Token)

	// new password works, old one does not
	ok, _ := env.do(t, fiber.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"email":    "john@example.com",
		"password": "brand-new-secret",
	})
	assert.Equal(t, fiber.StatusOK, ok.StatusCode)

	old, _ := env.do(t, fiber.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"email":    "john@example.com",
		"password": "secret123",
	})
	assert.Equal(t, fiber.StatusUnauthorized, old.StatusCode)

	// the token is single use
	again, _ := env.do(t, fiber.MethodPut, "/api/v1/auth/resetpassword/"+rawToken, "", fiber.Map{
		"password": "yet-another-secret",
	})
	assert.Equal(t, fiber.StatusBadRequest, again.StatusCode)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	resp, envelope := env.do(t, fiber.MethodPost, "/api/v1/auth/forgotpassword", "", fiber.Map{
		"email": "nobody@example.com",
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.False(t, envelope.Success)
}

func TestForgotPasswordDeliveryFailure(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "John", "john@example.com", "")
	env.mailer.fail = true

	resp, _ := env.do(t, fiber.MethodPost, "/api/v1/auth/forgotpassword", "", fiber.Map{
		"email": "john@example.com",
	})
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestResetPasswordUnknownToken(t *testing.T) {
	env := newTestEnv(t)

	resp, envelope := env.do(t, fiber.MethodPut,
		"/api/v1/auth/resetpassword/"+strings.Repeat("ab", auth.ResetTokenLength), "",
		fiber.Map{"password": "whatever-secret"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, auth.TextCodeInvalidResetToken, envelope.Code)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "John", "john@example.com", "")

	user, err := env.users.GetByEmail(context.Background(), "john@example.com")
	require.NoError(t, err)

	raw := strings.Repeat("cd", auth.ResetTokenLength)
	require.NoError(t, env.users.SaveResetToken(context.Background(), user.ID,
		auth.HashResetToken(raw), time.Now().Add(-time.Minute)))

	resp, envelope := env.do(t, fiber.MethodPut, "/api/v1/auth/resetpassword/"+raw, "",
		fiber.Map{"password": "whatever-secret"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, auth.TextCodeInvalidResetToken, envelope.Code)
}

func TestBootcampRoleGate(t *testing.T) {
	env := newTestEnv(t)

	userToken := env.register(t, "Reader", "reader@example.com", "user")
	pubToken := env.register(t, "Publisher", "pub@example.com", "publisher")

	payload := fiber.Map{
		"name":        "Devworks Bootcamp",
		"description": "Full stack web development",
		"address":     "233 Bay State Rd Boston MA",
	}

	denied, _ := env.do(t, fiber.MethodPost, "/api/v1/bootcamps", userToken, payload)
	assert.Equal(t, fiber.StatusForbidden, denied.StatusCode)

	created, envelope := env.do(t, fiber.MethodPost, "/api/v1/bootcamps", pubToken, payload)
	require.Equal(t, fiber.StatusCreated, created.StatusCode)
	assert.True(t, envelope.Success)
}

func TestBootcampOwnership(t *testing.T) {
	env := newTestEnv(t)

	ownerToken := env.register(t, "Owner", "owner@example.com", "publisher")
	otherToken := env.register(t, "Other", "other@example.com", "publisher")

	_, created := env.do(t, fiber.MethodPost, "/api/v1/bootcamps", ownerToken, fiber.Map{
		"name":        "Owned Bootcamp",
		"description": "Backend engineering",
	})

	raw, err := json.Marshal(created.Data)
	require.NoError(t, err)
	var record map[string]any
	require.NoError(t, json.Unmarshal(raw, &record))
	id, _ := record["id"].(string)
	require.NotEmpty(t, id)

	update := fiber.Map{"name": "Renamed Bootcamp", "description": "Backend engineering"}

	denied, _ := env.do(t, fiber.MethodPut, "/api/v1/bootcamps/"+id, otherToken, update)
	assert.Equal(t, fiber.StatusForbidden, denied.StatusCode)

	allowed, _ := env.do(t, fiber.MethodPut, "/api/v1/bootcamps/"+id, ownerToken, update)
	assert.Equal(t, fiber.StatusOK, allowed.StatusCode)
}

func TestBootcampRadiusSearch(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "Publisher", "pub@example.com", "publisher")

	seed := func(name string, lat, lng float64) {
		resp, _ := env.do(t, fiber.MethodPost, "/api/v1/bootcamps", token, fiber.Map{
			"name":        name,
			"description": "camp",
			"latitude":    lat,
			"longitude":   lng,
		})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	// test geocoder resolves every zipcode to downtown Boston
	seed("Boston Camp", 42.35, -71.06)
	seed("Cambridge Camp", 42.37, -71.11)
	seed("NYC Camp", 40.71, -74.00)

	resp, envelope := env.do(t, fiber.MethodGet, "/api/v1/bootcamps/radius/02110/10", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotNil(t, envelope.Count)
	assert.Equal(t, 2, *envelope.Count)

	resp, envelope = env.do(t, fiber.MethodGet, "/api/v1/bootcamps/radius/02110/500", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotNil(t, envelope.Count)
	assert.Equal(t, 3, *envelope.Count)
}

func TestUsersRoutesAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	userToken := env.register(t, "Plain", "plain@example.com", "")

	resp, envelope := env.do(t, fiber.MethodGet, "/api/v1/users", userToken, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, auth.TextCodeForbidden, envelope.Code)
}

func TestUsersAdminCRUD(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Plain", "plain@example.com", "")

	// promote a seeded account to admin directly in the store
	adminToken := env.registerAdmin(t, "Root", "root@example.com")

	resp, envelope := env.do(t, fiber.MethodGet, "/api/v1/users", adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotNil(t, envelope.Count)
	assert.Equal(t, 2, *envelope.Count)

	created, createdEnv := env.do(t, fiber.MethodPost, "/api/v1/users", adminToken, fiber.Map{
		"name":     "Second Admin",
		"email":    "second@example.com",
		"password": "secret123",
		"role":     "admin",
	})
	require.Equal(t, fiber.StatusCreated, created.StatusCode)

	raw, err := json.Marshal(createdEnv.Data)
	require.NoError(t, err)
	var record map[string]any
	require.NoError(t, json.Unmarshal(raw, &record))
	assert.Equal(t, "admin", record["role"])
	assert.NotContains(t, record, "password_hash")

	id, _ := record["id"].(string)
	deleted, _ := env.do(t, fiber.MethodDelete, "/api/v1/users/"+id, adminToken, nil)
	assert.Equal(t, fiber.StatusOK, deleted.StatusCode)

	missing, _ := env.do(t, fiber.MethodGet, "/api/v1/users/"+id, adminToken, nil)
	assert.Equal(t, fiber.StatusNotFound, missing.StatusCode)
}

// registerAdmin seeds an admin straight through the repository, since the
// public register endpoint refuses the role.
func (e *testEnv) registerAdmin(t *testing.T, name, email string) string {
	t.Helper()

	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)

	_, err = e.users.Register(context.Background(), &auth.User{
		Name:         name,
		Email:        email,
		Role:         auth.RoleAdmin,
		PasswordHash: hash,
	})
	require.NoError(t, err)

	resp, envelope := e.do(t, fiber.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"email":    email,
		"password": "secret123",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return envelope.Token
}
