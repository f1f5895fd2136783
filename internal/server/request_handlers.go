package server

import (
	"errors"

	"senyo/internal/models"
	"senyo/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createRequestBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	RequestType string `json:"request_type"`
	Priority    string `json:"priority"`
}

// CreateRequest handles POST /api/requests
// @Summary Submit a new request
// @Description Creates a request owned by the signed-in client; status always starts at pending
// @Tags requests
// @Accept json
// @Produce json
// @Param request body object{title=string,description=string,request_type=string,priority=string} true "Request fields"
// @Success 201 {object} models.Request
// @Failure 400 {object} object{error=string}
// @Failure 401 {object} object{error=string}
// @Router /requests [post]
func (s *Server) CreateRequest(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var body createRequestBody
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	// Owner identity comes from the session, never from the body.
	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	req, err := s.requestService.Create(c.Context(), service.CreateRequestInput{
		OwnerID:     user.ID,
		OwnerName:   user.DisplayName,
		OwnerEmail:  user.Email,
		Title:       body.Title,
		Description: body.Description,
		RequestType: body.RequestType,
		Priority:    body.Priority,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishRequestEvent(c.Context(), user.ID, EventRequestCreated, req)

	return c.Status(fiber.StatusCreated).JSON(req)
}

// GetMyRequests handles GET /api/requests/me
// @Summary List the signed-in client's requests
// @Description Returns summaries of the caller's own requests, newest first
// @Tags requests
// @Produce json
// @Success 200 {object} object{requests=[]service.RequestSummary}
// @Failure 401 {object} object{error=string}
// @Router /requests/me [get]
func (s *Server) GetMyRequests(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	summaries, err := s.requestService.ListOwn(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	// total lets the rendering surface show its "no requests yet" state
	// without inspecting the array.
	return c.JSON(fiber.Map{"requests": summaries, "total": len(summaries)})
}

// GetMyRequest handles GET /api/requests/:id
// @Summary Fetch one of the signed-in client's requests
// @Description Returns the full request; another owner's ID yields 404, never 403
// @Tags requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} models.Request
// @Failure 404 {object} object{error=string}
// @Router /requests/{id} [get]
func (s *Server) GetMyRequest(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	id, err := parseID(c, "id")
	if err != nil {
		if errors.Is(err, errResponseWritten) {
			return nil
		}
		return err
	}

	req, err := s.requestService.GetOwn(c.Context(), id, userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(req)
}

// GetMyProfile handles GET /api/profile/me
// @Summary Fetch the signed-in client's profile
// @Tags profile
// @Produce json
// @Success 200 {object} models.ClientProfile
// @Failure 404 {object} object{error=string}
// @Router /profile/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	profile, err := s.clientService.GetProfile(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(profile)
}
