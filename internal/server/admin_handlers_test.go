package server

import (
	"net/http"
	"strconv"
	"testing"

	"senyo/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRequest(t *testing.T, s *Server, ownerID uint, status models.RequestStatus) *models.Request {
	t.Helper()
	req := &models.Request{
		OwnerID:     ownerID,
		OwnerName:   "Seeded",
		OwnerEmail:  "seeded@client.test",
		Title:       "Seeded request",
		Description: "Seeded for tests.",
		RequestType: "web",
		Priority:    models.RequestPriorityMedium,
		Status:      status,
	}
	require.NoError(t, s.db.Create(req).Error)
	return req
}

func TestGetAdminRequests(t *testing.T) {
	s, app, _ := newTestServer(t)
	createUser(t, s, testOperatorEmail, "Ops")
	client := createUser(t, s, "amara@client.test", "Amara")
	token := adminLogin(t, app)

	seedRequest(t, s, client.ID, models.RequestStatusPending)
	seedRequest(t, s, client.ID, models.RequestStatusInProgress)
	seedRequest(t, s, client.ID, models.RequestStatusCompleted)
	// Legacy row with no stored status renders and counts as pending.
	legacy := seedRequest(t, s, client.ID, models.RequestStatusPending)
	require.NoError(t, s.db.Model(legacy).Update("status", "").Error)

	t.Run("full snapshot with stats", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodGet, "/api/admin/requests", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, body["requests"], 4)

		stats := body["stats"].(map[string]any)
		assert.EqualValues(t, 4, stats["total"])
		assert.EqualValues(t, 2, stats["pending"])
		assert.EqualValues(t, 1, stats["in_progress"])
		assert.EqualValues(t, 1, stats["completed"])
	})

	t.Run("status filter narrows rows but not stats", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodGet, "/api/admin/requests?status=pending", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, body["requests"], 2)

		stats := body["stats"].(map[string]any)
		assert.EqualValues(t, 4, stats["total"])
	})

	t.Run("priority filter", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodGet, "/api/admin/requests?priority=medium", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, body["requests"], 4)

		resp, body = doJSON(t, app, http.MethodGet, "/api/admin/requests?priority=high", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, body["requests"])
	})

	t.Run("unknown status filter", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodGet, "/api/admin/requests?status=bogus", token, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestUpdateAdminRequest(t *testing.T) {
	s, app, _ := newTestServer(t)
	createUser(t, s, testOperatorEmail, "Ops")
	client := createUser(t, s, "amara@client.test", "Amara")
	token := adminLogin(t, app)

	req := seedRequest(t, s, client.ID, models.RequestStatusPending)
	path := "/api/admin/requests/" + strconv.FormatUint(uint64(req.ID), 10)

	t.Run("legal transition with notes", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPatch, path, token, fiber.Map{
			"status":      "accepted",
			"admin_notes": "Scheduling a kickoff call.",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "accepted", body["status"])
		assert.Equal(t, "Scheduling a kickoff call.", body["admin_notes"])
	})

	t.Run("notes-only edit keeps the status", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPatch, path, token, fiber.Map{
			"admin_notes": "Kickoff done.",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "accepted", body["status"])
		assert.Equal(t, "Kickoff done.", body["admin_notes"])
	})

	t.Run("only status and notes are writable", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPatch, path, token, fiber.Map{
			"status": "completed",
			"title":  "Tampered title",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Seeded request", body["title"])
	})

	t.Run("terminal states refuse new transitions", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPatch, path, token, fiber.Map{
			"status": "in_progress",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown request", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPatch, "/api/admin/requests/99999", token, fiber.Map{
			"status": "accepted",
		})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDeleteRequestConfirmationFlow(t *testing.T) {
	s, app, _ := newTestServer(t)
	createUser(t, s, testOperatorEmail, "Ops")
	client := createUser(t, s, "amara@client.test", "Amara")
	token := adminLogin(t, app)

	active := seedRequest(t, s, client.ID, models.RequestStatusInProgress)
	done := seedRequest(t, s, client.ID, models.RequestStatusCompleted)

	t.Run("active requests cannot even be staged", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodDelete,
			"/api/admin/requests/"+strconv.FormatUint(uint64(active.ID), 10), token, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("staged, peeked, confirmed", func(t *testing.T) {
		path := "/api/admin/requests/" + strconv.FormatUint(uint64(done.ID), 10)

		resp, body := doJSON(t, app, http.MethodDelete, path, token, nil)
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
		assert.Contains(t, body["prompt"], "cannot be undone")

		// Nothing deleted until confirmed.
		var count int64
		s.db.Model(&models.Request{}).Where("id = ?", done.ID).Count(&count)
		assert.EqualValues(t, 1, count)

		resp, body = doJSON(t, app, http.MethodGet, "/api/admin/confirm", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["pending"])
		assert.Equal(t, "delete_request", body["kind"])

		resp, body = doJSON(t, app, http.MethodPost, "/api/admin/confirm", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["confirmed"])

		s.db.Model(&models.Request{}).Where("id = ?", done.ID).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("confirm with nothing staged is a no-op", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPost, "/api/admin/confirm", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, false, body["confirmed"])
	})
}

func TestDismissStagedAction(t *testing.T) {
	s, app, _ := newTestServer(t)
	createUser(t, s, testOperatorEmail, "Ops")
	client := createUser(t, s, "amara@client.test", "Amara")
	token := adminLogin(t, app)

	done := seedRequest(t, s, client.ID, models.RequestStatusRejected)
	path := "/api/admin/requests/" + strconv.FormatUint(uint64(done.ID), 10)

	resp, _ := doJSON(t, app, http.MethodDelete, path, token, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/admin/confirm", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/api/admin/confirm", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["confirmed"])

	var count int64
	s.db.Model(&models.Request{}).Where("id = ?", done.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestProvisionClient(t *testing.T) {
	s, app, _ := newTestServer(t)
	createUser(t, s, testOperatorEmail, "Ops")
	token := adminLogin(t, app)

	t.Run("creates identity and profile", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPost, "/api/admin/clients", token, fiber.Map{
			"display_name": "New Client",
			"email":        "new@client.test",
			"password":     "a fine password",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "new@client.test", body["email"])

		// The new client can sign in with the handed-over credentials.
		resp, _ = doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
			"email":    "new@client.test",
			"password": "a fine password",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("operator session is untouched by provisioning", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodGet, "/api/admin/requests", token, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("duplicate email", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/admin/clients", token, fiber.Map{
			"display_name": "Clone",
			"email":        "new@client.test",
			"password":     "another password",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("weak password", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/admin/clients", token, fiber.Map{
			"display_name": "Weak",
			"email":        "weak@client.test",
			"password":     "short",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestDeprovisionClient(t *testing.T) {
	s, app, _ := newTestServer(t)
	createUser(t, s, testOperatorEmail, "Ops")
	client := createUser(t, s, "amara@client.test", "Amara")
	token := adminLogin(t, app)
	seedRequest(t, s, client.ID, models.RequestStatusPending)

	path := "/api/admin/clients/" + strconv.FormatUint(uint64(client.ID), 10)

	resp, body := doJSON(t, app, http.MethodDelete, path, token, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Contains(t, body["prompt"], "Amara")

	resp, body = doJSON(t, app, http.MethodPost, "/api/admin/confirm", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["confirmed"])

	// The profile document is gone.
	var profiles int64
	s.db.Model(&models.ClientProfile{}).Where("user_id = ?", client.ID).Count(&profiles)
	assert.Zero(t, profiles)

	// The auth identity and the client's requests remain.
	var users, requests int64
	s.db.Model(&models.User{}).Where("id = ?", client.ID).Count(&users)
	s.db.Model(&models.Request{}).Where("owner_id = ?", client.ID).Count(&requests)
	assert.EqualValues(t, 1, users)
	assert.EqualValues(t, 1, requests)
}

func TestGetClients(t *testing.T) {
	s, app, _ := newTestServer(t)
	createUser(t, s, testOperatorEmail, "Ops")
	createUser(t, s, "amara@client.test", "Amara")
	token := adminLogin(t, app)

	resp, body := doJSON(t, app, http.MethodGet, "/api/admin/clients", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	clients := body["clients"].([]any)
	require.Len(t, clients, 2)
	first := clients[0].(map[string]any)
	_, hasOnline := first["online"]
	assert.True(t, hasOnline)
}
