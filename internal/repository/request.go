package repository

import (
	"context"
	"errors"

	"senyo/internal/cache"
	"senyo/internal/models"

	"gorm.io/gorm"
)

// RequestRepository defines persistence operations for service requests.
type RequestRepository interface {
	Create(ctx context.Context, req *models.Request) error
	GetByID(ctx context.Context, id uint) (*models.Request, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]models.Request, error)
	ListAll(ctx context.Context) ([]models.Request, error)
	UpdateStatusNotes(ctx context.Context, req *models.Request) error
	Delete(ctx context.Context, id uint) error
}

type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository returns a new RequestRepository implementation.
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *models.Request) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateRequestList(ctx, req.OwnerID)
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id uint) (*models.Request, error) {
	var req models.Request
	if err := readDB(r.db).WithContext(ctx).First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Request", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &req, nil
}

func (r *requestRepository) ListByOwner(ctx context.Context, ownerID uint) ([]models.Request, error) {
	var requests []models.Request
	key := cache.RequestListKey(ownerID)

	err := cache.Aside(ctx, key, &requests, cache.RequestListTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).
			Where("owner_id = ?", ownerID).
			Order("created_at DESC").
			Find(&requests).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// ListAll returns the full snapshot ordered newest first. Filtering and
// stats happen over this snapshot in the service layer.
func (r *requestRepository) ListAll(ctx context.Context) ([]models.Request, error) {
	var requests []models.Request
	if err := readDB(r.db).WithContext(ctx).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

// UpdateStatusNotes persists only the admin-writable columns. Owner fields,
// title, description and created_at are never touched by updates.
func (r *requestRepository) UpdateStatusNotes(ctx context.Context, req *models.Request) error {
	res := r.db.WithContext(ctx).Model(&models.Request{}).
		Where("id = ?", req.ID).
		Updates(map[string]interface{}{
			"status":      req.Status,
			"admin_notes": req.AdminNotes,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Request", req.ID)
	}
	cache.InvalidateRequestList(ctx, req.OwnerID)
	return nil
}

func (r *requestRepository) Delete(ctx context.Context, id uint) error {
	req, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Delete(&models.Request{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateRequestList(ctx, req.OwnerID)
	return nil
}
