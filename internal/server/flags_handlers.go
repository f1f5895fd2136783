package server

import "github.com/gofiber/fiber/v2"

// GetMyFlags handles GET /api/flags/me
// @Summary Evaluated feature flags for the signed-in user
// @Tags flags
// @Produce json
// @Success 200 {object} object{flags=map[string]bool}
// @Router /flags/me [get]
func (s *Server) GetMyFlags(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	return c.JSON(fiber.Map{"flags": s.flags.Snapshot(userID)})
}

// GetFlagConfig handles GET /api/admin/flags
// @Summary Raw feature-flag configuration
// @Tags admin
// @Produce json
// @Success 200 {object} object{flags=map[string]string}
// @Router /admin/flags [get]
func (s *Server) GetFlagConfig(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"flags": s.flags.Raw()})
}
