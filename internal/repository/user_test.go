package repository

import (
	"context"
	"testing"

	"senyo/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestUserRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("CreateAndGetByEmail", func(t *testing.T) {
		user := &models.User{
			DisplayName: "Kofi Adjei",
			Email:       "kofi@example.com",
			Password:    "$2a$10$hash",
		}
		assert.NoError(t, repo.Create(ctx, user))
		assert.NotZero(t, user.ID)

		got, err := repo.GetByEmail(ctx, "kofi@example.com")
		assert.NoError(t, err)
		assert.NotNil(t, got)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("GetByEmailMissingIsNilNil", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, "nobody@example.com")
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		err := repo.Create(ctx, &models.User{
			DisplayName: "Duplicate",
			Email:       "kofi@example.com",
			Password:    "x",
		})
		assert.Error(t, err)
		appErr, ok := err.(*models.AppError)
		assert.True(t, ok)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	})

	t.Run("UpdatePassword", func(t *testing.T) {
		user, err := repo.GetByEmail(ctx, "kofi@example.com")
		assert.NoError(t, err)

		assert.NoError(t, repo.UpdatePassword(ctx, user.ID, "$2a$10$newhash"))

		got, err := repo.GetByID(ctx, user.ID)
		assert.NoError(t, err)
		assert.Equal(t, "$2a$10$newhash", got.Password)

		assert.Error(t, repo.UpdatePassword(ctx, 9999, "x"))
	})
}
