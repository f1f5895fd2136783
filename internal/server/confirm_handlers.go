package server

import (
	"senyo/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// GetPendingConfirmation handles GET /api/admin/confirm
// @Summary Show the operator's pending confirmation, if any
// @Tags admin
// @Produce json
// @Success 200 {object} object{pending=bool,kind=string,prompt=string}
// @Router /admin/confirm [get]
func (s *Server) GetPendingConfirmation(c *fiber.Ctx) error {
	operatorID := c.Locals("userID").(uint)

	action, ok := s.confirmations.Peek(operatorID)
	if !ok {
		return c.JSON(fiber.Map{"pending": false})
	}
	return c.JSON(fiber.Map{
		"pending": true,
		"kind":    action.Kind,
		"prompt":  action.Prompt,
	})
}

// ConfirmPendingAction handles POST /api/admin/confirm
// @Summary Execute the operator's staged action
// @Description Confirming with nothing staged (or an expired stage) is a harmless no-op
// @Tags admin
// @Produce json
// @Success 200 {object} object{confirmed=bool,message=string}
// @Router /admin/confirm [post]
func (s *Server) ConfirmPendingAction(c *fiber.Ctx) error {
	operatorID := c.Locals("userID").(uint)

	ok, err := s.confirmations.Confirm(c.Context(), operatorID)
	if err != nil {
		observability.ConfirmationsTotal.WithLabelValues("failed").Inc()
		return respondServiceError(c, err)
	}
	if !ok {
		observability.ConfirmationsTotal.WithLabelValues("expired").Inc()
		return c.JSON(fiber.Map{
			"confirmed": false,
			"message":   "Nothing to confirm",
		})
	}

	observability.ConfirmationsTotal.WithLabelValues("confirmed").Inc()
	return c.JSON(fiber.Map{
		"confirmed": true,
		"message":   "Action completed",
	})
}

// DismissPendingAction handles DELETE /api/admin/confirm
// @Summary Discard the operator's staged action without running it
// @Tags admin
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /admin/confirm [delete]
func (s *Server) DismissPendingAction(c *fiber.Ctx) error {
	operatorID := c.Locals("userID").(uint)

	s.confirmations.Dismiss(operatorID)
	observability.ConfirmationsTotal.WithLabelValues("dismissed").Inc()

	return c.JSON(fiber.Map{"message": "Dismissed"})
}
