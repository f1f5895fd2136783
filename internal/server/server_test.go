package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"senyo/internal/config"
	"senyo/internal/database"
	"senyo/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	testOperatorEmail = "ops@senyo.test"
	testPassword      = "correct horse battery"
)

func newTestServer(t *testing.T) (*Server, *fiber.App, *miniredis.Miniredis) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		JWTSecret:           "test-secret",
		AdminEmails:         testOperatorEmail,
		AdminTokenTTLHours:  12,
		ClientTokenTTLHours: 168,
		FeatureFlags:        "presence=on,beta_dashboard=off",
	}

	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	app := fiber.New()
	s.SetupRoutes(app)
	return s, app, mr
}

// createUser inserts an auth identity (and matching profile) directly.
func createUser(t *testing.T, s *Server, email, displayName string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		DisplayName: displayName,
		Email:       email,
		Password:    string(hash),
	}
	require.NoError(t, s.db.Create(user).Error)
	require.NoError(t, s.db.Create(&models.ClientProfile{
		UserID:      user.ID,
		DisplayName: displayName,
		Email:       email,
	}).Error)
	return user
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

// login authenticates through the given endpoint and returns the token.
func login(t *testing.T, app *fiber.App, path, email string) string {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, path, "", fiber.Map{
		"email":    email,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "login body: %v", body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func clientLogin(t *testing.T, app *fiber.App, email string) string {
	return login(t, app, "/api/auth/login", email)
}

func adminLogin(t *testing.T, app *fiber.App) string {
	return login(t, app, "/api/auth/admin/login", testOperatorEmail)
}
