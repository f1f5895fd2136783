package service

import (
	"context"
	"testing"

	"senyo/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requestRepoStub is a function-field test double for RequestRepository.
type requestRepoStub struct {
	createFn            func(ctx context.Context, req *models.Request) error
	getByIDFn           func(ctx context.Context, id uint) (*models.Request, error)
	listByOwnerFn       func(ctx context.Context, ownerID uint) ([]models.Request, error)
	listAllFn           func(ctx context.Context) ([]models.Request, error)
	updateStatusNotesFn func(ctx context.Context, req *models.Request) error
	deleteFn            func(ctx context.Context, id uint) error
}

func (s *requestRepoStub) Create(ctx context.Context, req *models.Request) error {
	return s.createFn(ctx, req)
}

func (s *requestRepoStub) GetByID(ctx context.Context, id uint) (*models.Request, error) {
	return s.getByIDFn(ctx, id)
}

func (s *requestRepoStub) ListByOwner(ctx context.Context, ownerID uint) ([]models.Request, error) {
	return s.listByOwnerFn(ctx, ownerID)
}

func (s *requestRepoStub) ListAll(ctx context.Context) ([]models.Request, error) {
	return s.listAllFn(ctx)
}

func (s *requestRepoStub) UpdateStatusNotes(ctx context.Context, req *models.Request) error {
	return s.updateStatusNotesFn(ctx, req)
}

func (s *requestRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopRequestRepo() *requestRepoStub {
	return &requestRepoStub{
		createFn:            func(context.Context, *models.Request) error { return nil },
		getByIDFn:           func(context.Context, uint) (*models.Request, error) { return nil, nil },
		listByOwnerFn:       func(context.Context, uint) ([]models.Request, error) { return nil, nil },
		listAllFn:           func(context.Context) ([]models.Request, error) { return nil, nil },
		updateStatusNotesFn: func(context.Context, *models.Request) error { return nil },
		deleteFn:            func(context.Context, uint) error { return nil },
	}
}

// userRepoStub is a function-field test double for UserRepository.
type userRepoStub struct {
	getByIDFn        func(ctx context.Context, id uint) (*models.User, error)
	getByEmailFn     func(ctx context.Context, email string) (*models.User, error)
	createFn         func(ctx context.Context, user *models.User) error
	updateFn         func(ctx context.Context, user *models.User) error
	updatePasswordFn func(ctx context.Context, id uint, hash string) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}

func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}

func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}

func (s *userRepoStub) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return s.updatePasswordFn(ctx, id, hash)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:        func(context.Context, uint) (*models.User, error) { return nil, nil },
		getByEmailFn:     func(context.Context, string) (*models.User, error) { return nil, nil },
		createFn:         func(context.Context, *models.User) error { return nil },
		updateFn:         func(context.Context, *models.User) error { return nil },
		updatePasswordFn: func(context.Context, uint, string) error { return nil },
	}
}

// profileRepoStub is a function-field test double for ClientProfileRepository.
type profileRepoStub struct {
	createFn      func(ctx context.Context, profile *models.ClientProfile) error
	provisionFn   func(ctx context.Context, user *models.User, profile *models.ClientProfile) error
	getByUserIDFn func(ctx context.Context, userID uint) (*models.ClientProfile, error)
	listFn        func(ctx context.Context) ([]models.ClientProfile, error)
	deleteFn      func(ctx context.Context, userID uint) error
}

func (s *profileRepoStub) Create(ctx context.Context, profile *models.ClientProfile) error {
	return s.createFn(ctx, profile)
}

func (s *profileRepoStub) Provision(ctx context.Context, user *models.User, profile *models.ClientProfile) error {
	return s.provisionFn(ctx, user, profile)
}

func (s *profileRepoStub) GetByUserID(ctx context.Context, userID uint) (*models.ClientProfile, error) {
	return s.getByUserIDFn(ctx, userID)
}

func (s *profileRepoStub) List(ctx context.Context) ([]models.ClientProfile, error) {
	return s.listFn(ctx)
}

func (s *profileRepoStub) Delete(ctx context.Context, userID uint) error {
	return s.deleteFn(ctx, userID)
}

func noopProfileRepo() *profileRepoStub {
	return &profileRepoStub{
		createFn:      func(context.Context, *models.ClientProfile) error { return nil },
		provisionFn:   func(context.Context, *models.User, *models.ClientProfile) error { return nil },
		getByUserIDFn: func(context.Context, uint) (*models.ClientProfile, error) { return nil, nil },
		listFn:        func(context.Context) ([]models.ClientProfile, error) { return nil, nil },
		deleteFn:      func(context.Context, uint) error { return nil },
	}
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok, "expected *models.AppError, got %T", err)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}
