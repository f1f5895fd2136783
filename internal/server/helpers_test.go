package server

import (
	"net/http"
	"testing"

	"senyo/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanizeParam(t *testing.T) {
	cases := map[string]string{
		"id":        "ID",
		"userId":    "user ID",
		"requestId": "request ID",
		"name":      "name",
	}
	for in, want := range cases {
		assert.Equal(t, want, humanizeParam(in), "param %q", in)
	}
}

func TestRespondServiceError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", models.NewNotFoundError("Request", 7), http.StatusNotFound},
		{"validation", models.NewValidationError("bad input"), http.StatusBadRequest},
		{"unauthorized", models.NewUnauthorizedError("no"), http.StatusUnauthorized},
		{"forbidden", models.NewForbiddenError("no"), http.StatusForbidden},
		{"plain error", assert.AnError, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return respondServiceError(c, tc.err)
			})
			resp, err := app.Test(httptestGet())
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func httptestGet() *http.Request {
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	return req
}
