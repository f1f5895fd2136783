package server

import (
	"net/http"
	"testing"

	"senyo/internal/allowlist"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientLogin(t *testing.T) {
	s, app, _ := newTestServer(t)
	createUser(t, s, "amara@client.test", "Amara")

	t.Run("success", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
			"email":    "amara@client.test",
			"password": testPassword,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, body["token"])
		user := body["user"].(map[string]any)
		assert.Equal(t, "amara@client.test", user["email"])
		_, leaked := user["password"]
		assert.False(t, leaked)
	})

	t.Run("email is case-insensitive", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
			"email":    "AMARA@Client.Test",
			"password": testPassword,
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("wrong password and unknown account are indistinguishable", func(t *testing.T) {
		resp1, body1 := doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
			"email":    "amara@client.test",
			"password": "not it",
		})
		resp2, body2 := doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
			"email":    "nobody@client.test",
			"password": testPassword,
		})
		assert.Equal(t, http.StatusUnauthorized, resp1.StatusCode)
		assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
		assert.Equal(t, body1["error"], body2["error"])
		assert.Equal(t, "Invalid credentials", body1["error"])
	})

	t.Run("malformed email", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
			"email":    "not-an-email",
			"password": testPassword,
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Invalid email address", body["error"])
	})
}

func TestClientLogin_DisabledAccount(t *testing.T) {
	s, app, _ := newTestServer(t)
	user := createUser(t, s, "gone@client.test", "Gone")
	require.NoError(t, s.db.Model(user).Update("disabled", true).Error)

	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "gone@client.test",
		"password": testPassword,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "This account has been disabled", body["error"])
}

func TestAdminLogin(t *testing.T) {
	s, app, _ := newTestServer(t)
	createUser(t, s, testOperatorEmail, "Ops")
	createUser(t, s, "amara@client.test", "Amara")

	t.Run("allow-listed operator gets an admin session", func(t *testing.T) {
		token := adminLogin(t, app)
		resp, _ := doJSON(t, app, http.MethodGet, "/api/admin/requests", token, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("valid credentials off the allow-list are refused", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPost, "/api/auth/admin/login", "", fiber.Map{
			"email":    "amara@client.test",
			"password": testPassword,
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "Not authorized for admin access", body["error"])
	})

	t.Run("client session cannot reach admin routes", func(t *testing.T) {
		token := clientLogin(t, app, "amara@client.test")
		resp, _ := doJSON(t, app, http.MethodGet, "/api/admin/requests", token, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestAuthRequired(t *testing.T) {
	s, app, _ := newTestServer(t)
	createUser(t, s, "amara@client.test", "Amara")

	t.Run("missing token", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodGet, "/api/requests/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("garbage token", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodGet, "/api/requests/me", "not.a.jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("wrong audience", func(t *testing.T) {
		// Right secret, but an audience neither portal accepts.
		token, err := s.generateToken(1, "some-other-audience")
		require.NoError(t, err)
		resp, _ := doJSON(t, app, http.MethodGet, "/api/requests/me", token, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestLogout_RevokesSession(t *testing.T) {
	s, app, _ := newTestServer(t)
	createUser(t, s, "amara@client.test", "Amara")
	token := clientLogin(t, app, "amara@client.test")

	resp, _ := doJSON(t, app, http.MethodGet, "/api/requests/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/api/requests/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Token has been revoked", body["error"])
}

func TestAdminRequired_AllowlistRemovalForcesSignOut(t *testing.T) {
	s, app, _ := newTestServer(t)
	createUser(t, s, testOperatorEmail, "Ops")
	token := adminLogin(t, app)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/admin/requests", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Operator removed from the allow-list mid-session.
	s.allow = allowlist.Parse("")

	resp, body := doJSON(t, app, http.MethodGet, "/api/admin/requests", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Admin access revoked", body["error"])

	// The session token was revoked outright, not just demoted.
	resp, _ = doJSON(t, app, http.MethodGet, "/api/requests/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestResetPassword(t *testing.T) {
	s, app, _ := newTestServer(t)
	createUser(t, s, "amara@client.test", "Amara")
	token := clientLogin(t, app, "amara@client.test")

	t.Run("wrong current password", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/auth/reset-password", token, fiber.Map{
			"current_password": "not it",
			"new_password":     "a whole new secret",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("too short", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/auth/reset-password", token, fiber.Map{
			"current_password": testPassword,
			"new_password":     "short",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("success rotates the credential", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/auth/reset-password", token, fiber.Map{
			"current_password": testPassword,
			"new_password":     "a whole new secret",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
			"email":    "amara@client.test",
			"password": testPassword,
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp, _ = doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
			"email":    "amara@client.test",
			"password": "a whole new secret",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
