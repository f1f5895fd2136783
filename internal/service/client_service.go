package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"senyo/internal/models"
	"senyo/internal/observability"
	"senyo/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen    = 8
	maxDisplayNameLen = 120
)

// ClientService provisions and deprovisions client portal accounts.
type ClientService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ClientProfileRepository
}

// NewClientService returns a ClientService over the given repositories.
func NewClientService(userRepo repository.UserRepository, profileRepo repository.ClientProfileRepository) *ClientService {
	return &ClientService{userRepo: userRepo, profileRepo: profileRepo}
}

// ProvisionInput carries the fields an operator supplies for a new client.
type ProvisionInput struct {
	DisplayName string
	Email       string
	Password    string
}

// Provision creates the client's auth identity and profile document. It
// never mints a session for the new account; the operator's own session is
// untouched and the client signs in with the credentials handed over
// out of band.
func (s *ClientService) Provision(ctx context.Context, in ProvisionInput) (*models.ClientProfile, error) {
	span, ctx := observability.NewSpan(ctx, "client.provision")
	defer span.End()

	displayName := strings.TrimSpace(in.DisplayName)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if displayName == "" {
		return nil, models.NewValidationError("Display name is required")
	}
	if len(displayName) > maxDisplayNameLen {
		return nil, models.NewValidationError(fmt.Sprintf("Display name too long (max %d characters)", maxDisplayNameLen))
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, models.NewValidationError("A valid email address is required")
	}
	if len(in.Password) < minPasswordLen {
		return nil, models.NewValidationError(fmt.Sprintf("Password must be at least %d characters", minPasswordLen))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		DisplayName: displayName,
		Email:       email,
		Password:    string(hash),
	}
	profile := &models.ClientProfile{
		DisplayName: displayName,
		Email:       email,
	}
	if err := s.profileRepo.Provision(ctx, user, profile); err != nil {
		span.SetError(err)
		return nil, err
	}
	return profile, nil
}

// Deprovision removes the client's profile document. The auth identity and
// any requests the client submitted stay behind.
func (s *ClientService) Deprovision(ctx context.Context, userID uint) error {
	return s.profileRepo.Delete(ctx, userID)
}

// GetProfile fetches the profile for a provisioned client.
func (s *ClientService) GetProfile(ctx context.Context, userID uint) (*models.ClientProfile, error) {
	return s.profileRepo.GetByUserID(ctx, userID)
}

// ListClients returns every provisioned client profile.
func (s *ClientService) ListClients(ctx context.Context) ([]models.ClientProfile, error) {
	return s.profileRepo.List(ctx)
}

// ResetPassword replaces the identity's password hash after validating the
// new password. Existing sessions are not revoked here; the jti blacklist
// handles that at logout.
func (s *ClientService) ResetPassword(ctx context.Context, userID uint, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return models.NewValidationError(fmt.Sprintf("Password must be at least %d characters", minPasswordLen))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	return s.userRepo.UpdatePassword(ctx, userID, string(hash))
}
