package repository

import (
	"context"
	"errors"

	"senyo/internal/cache"
	"senyo/internal/models"

	"gorm.io/gorm"
)

// ClientProfileRepository defines persistence operations for client profiles.
type ClientProfileRepository interface {
	Create(ctx context.Context, profile *models.ClientProfile) error
	Provision(ctx context.Context, user *models.User, profile *models.ClientProfile) error
	GetByUserID(ctx context.Context, userID uint) (*models.ClientProfile, error)
	List(ctx context.Context) ([]models.ClientProfile, error)
	Delete(ctx context.Context, userID uint) error
}

type clientProfileRepository struct {
	db *gorm.DB
}

// NewClientProfileRepository returns a new ClientProfileRepository implementation.
func NewClientProfileRepository(db *gorm.DB) ClientProfileRepository {
	return &clientProfileRepository{db: db}
}

func (r *clientProfileRepository) Create(ctx context.Context, profile *models.ClientProfile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("Client is already provisioned")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Provision creates the auth identity and its profile document in one
// transaction. The profile key is the identity's id.
func (r *clientProfileRepository) Provision(ctx context.Context, user *models.User, profile *models.ClientProfile) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		profile.UserID = user.ID
		return tx.Create(profile).Error
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("An account with this email already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *clientProfileRepository) GetByUserID(ctx context.Context, userID uint) (*models.ClientProfile, error) {
	var profile models.ClientProfile
	key := cache.ProfileKey(userID)

	err := cache.Aside(ctx, key, &profile, cache.ProfileTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).
			Where("user_id = ?", userID).
			First(&profile).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("ClientProfile", userID)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *clientProfileRepository) List(ctx context.Context) ([]models.ClientProfile, error) {
	var profiles []models.ClientProfile
	if err := readDB(r.db).WithContext(ctx).
		Order("created_at DESC").
		Find(&profiles).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return profiles, nil
}

// Delete removes only the profile row. The auth identity and any requests
// owned by the client are left in place.
func (r *clientProfileRepository) Delete(ctx context.Context, userID uint) error {
	res := r.db.WithContext(ctx).Delete(&models.ClientProfile{}, "user_id = ?", userID)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("ClientProfile", userID)
	}
	cache.InvalidateProfile(ctx, userID)
	return nil
}
