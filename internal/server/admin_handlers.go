package server

import (
	"context"
	"errors"
	"fmt"

	"senyo/internal/confirm"
	"senyo/internal/models"
	"senyo/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetAdminRequests handles GET /api/admin/requests
// @Summary List all requests with dashboard stats
// @Description Returns every request, optionally filtered by ?status= and ?priority=; stats always cover the unfiltered set
// @Tags admin
// @Produce json
// @Param status query string false "Status filter (pending, accepted, in_progress, completed, rejected)"
// @Param priority query string false "Priority filter (low, medium, high)"
// @Success 200 {object} service.AdminListResult
// @Failure 400 {object} object{error=string}
// @Failure 403 {object} object{error=string}
// @Router /admin/requests [get]
func (s *Server) GetAdminRequests(c *fiber.Ctx) error {
	result, err := s.requestService.AdminList(c.Context(), c.Query("status"), c.Query("priority"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

type updateRequestBody struct {
	Status     string  `json:"status"`
	AdminNotes *string `json:"admin_notes"`
}

// UpdateAdminRequest handles PATCH /api/admin/requests/:id
// @Summary Update a request's status and notes
// @Description Applies a status transition and/or admin notes; no other columns are writable
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param request body object{status=string,admin_notes=string} true "Writable fields"
// @Success 200 {object} models.Request
// @Failure 400 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Router /admin/requests/{id} [patch]
func (s *Server) UpdateAdminRequest(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		if errors.Is(err, errResponseWritten) {
			return nil
		}
		return err
	}

	var body updateRequestBody
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	req, err := s.requestService.Update(c.Context(), service.UpdateInput{
		ID:         id,
		Status:     body.Status,
		AdminNotes: body.AdminNotes,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishRequestEvent(c.Context(), req.OwnerID, EventRequestUpdated, req)

	return c.JSON(req)
}

// DeleteAdminRequest handles DELETE /api/admin/requests/:id
// @Summary Stage deletion of a terminal request
// @Description Nothing is deleted yet; the operator must confirm via POST /admin/confirm
// @Tags admin
// @Produce json
// @Param id path int true "Request ID"
// @Success 202 {object} object{prompt=string}
// @Failure 400 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Router /admin/requests/{id} [delete]
func (s *Server) DeleteAdminRequest(c *fiber.Ctx) error {
	operatorID := c.Locals("userID").(uint)

	id, err := parseID(c, "id")
	if err != nil {
		if errors.Is(err, errResponseWritten) {
			return nil
		}
		return err
	}

	// Validate up front so the operator is not asked to confirm something
	// that will be refused anyway.
	req, err := s.requestRepo.GetByID(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	if !req.DisplayStatus().Terminal() {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Only completed or rejected requests can be deleted"))
	}

	prompt := s.confirmations.Stage(operatorID, confirm.Action{
		Kind:   "delete_request",
		Prompt: fmt.Sprintf("Delete request #%d (%q)? This cannot be undone.", req.ID, req.Title),
		Execute: func(ctx context.Context) error {
			deleted, err := s.requestService.Delete(ctx, id)
			if err != nil {
				return err
			}
			s.publishRequestEvent(ctx, deleted.OwnerID, EventRequestDeleted, fiber.Map{
				"id":    deleted.ID,
				"title": deleted.Title,
			})
			return nil
		},
	})

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"prompt": prompt})
}

type clientRow struct {
	models.ClientProfile
	Online bool `json:"online"`
}

// GetClients handles GET /api/admin/clients
// @Summary List provisioned clients
// @Description Returns every client profile, annotated with live portal presence
// @Tags admin
// @Produce json
// @Success 200 {object} object{clients=[]object}
// @Failure 403 {object} object{error=string}
// @Router /admin/clients [get]
func (s *Server) GetClients(c *fiber.Ctx) error {
	profiles, err := s.clientService.ListClients(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}

	rows := make([]clientRow, 0, len(profiles))
	for _, p := range profiles {
		rows = append(rows, clientRow{
			ClientProfile: p,
			Online:        s.hub != nil && s.hub.IsOnline(p.UserID),
		})
	}

	return c.JSON(fiber.Map{"clients": rows})
}

type provisionBody struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// ProvisionClient handles POST /api/admin/clients
// @Summary Provision a new client account
// @Description Creates the auth identity and profile atomically; the operator's own session is untouched
// @Tags admin
// @Accept json
// @Produce json
// @Param request body object{display_name=string,email=string,password=string} true "New client"
// @Success 201 {object} models.ClientProfile
// @Failure 400 {object} object{error=string}
// @Failure 403 {object} object{error=string}
// @Router /admin/clients [post]
func (s *Server) ProvisionClient(c *fiber.Ctx) error {
	var body provisionBody
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	profile, err := s.clientService.Provision(c.Context(), service.ProvisionInput{
		DisplayName: body.DisplayName,
		Email:       body.Email,
		Password:    body.Password,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishAdminEvent(c.Context(), EventClientProvisioned, profile)

	return c.Status(fiber.StatusCreated).JSON(profile)
}

// DeprovisionClient handles DELETE /api/admin/clients/:userId
// @Summary Stage deprovisioning of a client
// @Description Staged for confirmation; only the profile document is removed, the identity and requests remain
// @Tags admin
// @Produce json
// @Param userId path int true "Client user ID"
// @Success 202 {object} object{prompt=string}
// @Failure 404 {object} object{error=string}
// @Router /admin/clients/{userId} [delete]
func (s *Server) DeprovisionClient(c *fiber.Ctx) error {
	operatorID := c.Locals("userID").(uint)

	userID, err := parseID(c, "userId")
	if err != nil {
		if errors.Is(err, errResponseWritten) {
			return nil
		}
		return err
	}

	profile, err := s.clientService.GetProfile(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	prompt := s.confirmations.Stage(operatorID, confirm.Action{
		Kind: "deprovision_client",
		Prompt: fmt.Sprintf("Deprovision client %s (%s)? Their submitted requests are kept.",
			profile.DisplayName, profile.Email),
		Execute: func(ctx context.Context) error {
			if err := s.clientService.Deprovision(ctx, userID); err != nil {
				return err
			}
			if s.hub != nil {
				s.hub.CloseUser(userID)
			}
			s.publishAdminEvent(ctx, EventClientDeprovisioned, fiber.Map{
				"user_id": profile.UserID,
				"email":   profile.Email,
			})
			return nil
		},
	})

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"prompt": prompt})
}
