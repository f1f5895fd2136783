package server

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"senyo/internal/cache"
	"senyo/internal/middleware"
	"senyo/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer      = "senyo-api"
	audiencePortal   = "portal-client"
	audienceOperator = "portal-admin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ClientLogin handles POST /api/auth/login
// @Summary Client portal login
// @Description Authenticate a provisioned client and return a JWT session token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login credentials"
// @Success 200 {object} object{token=string,user=models.User}
// @Failure 400 {object} object{error=string}
// @Failure 401 {object} object{error=string}
// @Router /auth/login [post]
func (s *Server) ClientLogin(c *fiber.Ctx) error {
	return s.login(c, audiencePortal)
}

// AdminLogin handles POST /api/auth/admin/login
// @Summary Operator portal login
// @Description Authenticate an operator; the account must be on the allow-list
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login credentials"
// @Success 200 {object} object{token=string,user=models.User}
// @Failure 401 {object} object{error=string}
// @Failure 403 {object} object{error=string}
// @Router /auth/admin/login [post]
func (s *Server) AdminLogin(c *fiber.Ctx) error {
	return s.login(c, audienceOperator)
}

// login verifies credentials and mints a session token for the requested
// audience. Every credential failure goes through the fixed message table so
// responses cannot reveal whether an account exists.
func (s *Server) login(c *fiber.Ctx, audience string) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewCredentialError(models.CredentialErrorInvalidEmail))
	}

	user, err := s.userRepo.GetByEmail(c.Context(), email)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewCredentialError(models.CredentialErrorUserNotFound))
	}
	if user.Disabled {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewCredentialError(models.CredentialErrorUserDisabled))
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); cmpErr != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewCredentialError(models.CredentialErrorWrongPassword))
	}

	// The allow-list is the only admin authority; there is no admin column
	// to check or forge.
	if audience == audienceOperator && !s.allow.Allows(user.Email) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Not authorized for admin access"))
	}

	token, err := s.generateToken(user.ID, audience)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Logout handles POST /api/auth/logout
// @Summary End the current session
// @Description Closes live subscriptions, then revokes the session token
// @Tags auth
// @Produce json
// @Success 200 {object} object{message=string}
// @Failure 401 {object} object{error=string}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	// Teardown order matters: subscriptions close while the token is still
	// valid, so no live event is delivered to a revoked session and no
	// revoked session keeps a live feed.
	if s.hub != nil {
		s.hub.CloseUser(userID)
	}

	s.revokeSessionToken(c)

	return c.JSON(fiber.Map{"message": "Signed out"})
}

// ResetPassword handles POST /api/auth/reset-password
// @Summary Change the signed-in account's password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{current_password=string,new_password=string} true "Password change"
// @Success 200 {object} object{message=string}
// @Failure 401 {object} object{error=string}
// @Router /auth/reset-password [post]
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); cmpErr != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewCredentialError(models.CredentialErrorWrongPassword))
	}

	if err := s.clientService.ResetPassword(c.Context(), userID, req.NewPassword); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password updated"})
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		isWSPath := strings.HasPrefix(path, "/api/ws")

		// 1. Try WebSocket ticket first (short-lived, single-use)
		ticket := c.Query("ticket")
		if ticket != "" && s.redis != nil {
			if userID, admin, ok := s.redeemWSTicket(c.Context(), ticket); ok {
				c.Locals("userID", userID)
				c.Locals("isAdmin", admin)
				c.Locals("wsTicket", ticket)
				ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, userID)
				c.SetUserContext(ctx)
				return c.Next()
			}
			// A provided but invalid ticket is fatal on WS paths
			if isWSPath {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
		}

		// 2. Fall back to JWT (Bearer token or query param)
		authHeader := c.Get("Authorization")
		tokenString := ""
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// Reject token in query param for WS routes (must use ticket)
		if tokenString == "" && !isWSPath {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(s.config.JWTSecret), nil
		})

		if err != nil || !token.Valid {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token claims"))
		}

		if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != tokenIssuer {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token issuer"))
		}
		audience, audienceOk := claims["aud"].(string)
		if !audienceOk || (audience != audiencePortal && audience != audienceOperator) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token audience"))
		}

		sub, ok := claims["sub"].(string)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid subject claim"))
		}
		userID, err := strconv.ParseUint(sub, 10, 32)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid user ID in token"))
		}

		// Check JTI for revocation
		if jti, exists := claims["jti"].(string); exists && jti != "" {
			if s.redis != nil {
				isBlacklisted, err := s.redis.Exists(c.Context(), cache.TokenBlacklistKey(jti)).Result()
				if err == nil && isBlacklisted > 0 {
					return models.RespondWithError(c, fiber.StatusUnauthorized,
						models.NewUnauthorizedError("Token has been revoked"))
				}
			}
			c.Locals("jti", jti)
		}
		if exp, expOk := claims["exp"].(float64); expOk {
			c.Locals("tokenExp", int64(exp))
		}

		c.Locals("userID", uint(userID))
		c.Locals("isAdmin", audience == audienceOperator)
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, uint(userID))
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// AdminRequired returns middleware enforcing the operator allow-list.
// Must be placed after AuthRequired so that userID is available in locals.
// The allow-list is re-checked on every call, not just at login; an operator
// removed from the list loses access immediately and their session token is
// revoked so the portal signs them out.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(uint)

		admin, _ := c.Locals("isAdmin").(bool)
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}

		user, err := s.userRepo.GetByID(c.Context(), userID)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		}
		if !s.allow.Allows(user.Email) {
			if s.hub != nil {
				s.hub.CloseUser(userID)
			}
			s.revokeSessionToken(c)
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access revoked"))
		}

		return c.Next()
	}
}

// revokeSessionToken blacklists the current session's jti for the token's
// remaining lifetime. A missing jti or Redis leaves nothing to revoke.
func (s *Server) revokeSessionToken(c *fiber.Ctx) {
	if s.redis == nil {
		return
	}
	jti, _ := c.Locals("jti").(string)
	if jti == "" {
		return
	}
	ttl := 24 * time.Hour
	if exp, ok := c.Locals("tokenExp").(int64); ok {
		if remaining := time.Until(time.Unix(exp, 0)); remaining > 0 {
			ttl = remaining
		}
	}
	s.redis.Set(c.Context(), cache.TokenBlacklistKey(jti), "revoked", ttl)
}

// generateToken creates a JWT session token for the given user and audience.
// Operator sessions are short-lived; client sessions persist for days.
func (s *Server) generateToken(userID uint, audience string) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	ttl := time.Duration(s.config.ClientTokenTTLHours) * time.Hour
	if audience == audienceOperator {
		ttl = time.Duration(s.config.AdminTokenTTLHours) * time.Hour
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": tokenIssuer,
		"aud": audience,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": s.generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// generateJTI creates a unique JWT ID to prevent replay attacks
func (s *Server) generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}
