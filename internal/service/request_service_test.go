package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"senyo/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestService_Create_Validation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   CreateRequestInput
	}{
		{"missing title", CreateRequestInput{Description: "d", RequestType: "web_design"}},
		{"blank title", CreateRequestInput{Title: "   ", Description: "d", RequestType: "web_design"}},
		{"title too long", CreateRequestInput{Title: strings.Repeat("x", 201), Description: "d", RequestType: "web_design"}},
		{"missing description", CreateRequestInput{Title: "t", RequestType: "web_design"}},
		{"missing request type", CreateRequestInput{Title: "t", Description: "d"}},
		{"bad priority", CreateRequestInput{Title: "t", Description: "d", RequestType: "web_design", Priority: "urgent"}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc := NewRequestService(noopRequestRepo())
			_, err := svc.Create(context.Background(), tc.in)
			assertValidationError(t, err)
		})
	}
}

func TestRequestService_Create_ForcesPendingStatus(t *testing.T) {
	t.Parallel()

	repo := noopRequestRepo()
	var saved *models.Request
	repo.createFn = func(_ context.Context, req *models.Request) error {
		saved = req
		req.ID = 1
		return nil
	}
	svc := NewRequestService(repo)

	req, err := svc.Create(context.Background(), CreateRequestInput{
		OwnerID:     7,
		OwnerName:   "Efua Asante",
		OwnerEmail:  "efua@example.com",
		Title:       "  Brand refresh  ",
		Description: "Full rebrand of the storefront",
		RequestType: "branding",
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, models.RequestStatusPending, saved.Status)
	assert.Equal(t, models.RequestPriorityMedium, saved.Priority, "priority defaults to medium")
	assert.Equal(t, "Brand refresh", saved.Title, "title is trimmed")
	assert.Equal(t, uint(7), req.OwnerID)
}

func TestRequestService_ListOwn_Previews(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 300)
	repo := noopRequestRepo()
	repo.listByOwnerFn = func(_ context.Context, ownerID uint) ([]models.Request, error) {
		return []models.Request{
			{ID: 1, OwnerID: ownerID, Title: "Short", Description: "fits entirely"},
			{ID: 2, OwnerID: ownerID, Title: "Long", Description: long},
		}, nil
	}
	svc := NewRequestService(repo)

	summaries, err := svc.ListOwn(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, "fits entirely", summaries[0].Preview)
	assert.Equal(t, models.RequestStatusPending, summaries[0].Status, "blank status renders as pending")

	assert.True(t, strings.HasSuffix(summaries[1].Preview, "…"))
	assert.Less(t, len([]rune(summaries[1].Preview)), len([]rune(long)))
}

func TestRequestService_GetOwn_HidesForeignRequests(t *testing.T) {
	t.Parallel()

	repo := noopRequestRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Request, error) {
		return &models.Request{ID: id, OwnerID: 99, Title: "Someone else's"}, nil
	}
	svc := NewRequestService(repo)

	_, err := svc.GetOwn(context.Background(), 5, 7)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", appErr.Code, "foreign requests read as not found")
}

func TestRequestService_AdminList(t *testing.T) {
	t.Parallel()

	snapshot := []models.Request{
		{ID: 1, Status: models.RequestStatusPending, Priority: models.RequestPriorityHigh},
		{ID: 2, Status: models.RequestStatusInProgress, Priority: models.RequestPriorityLow},
		{ID: 3, Status: models.RequestStatusCompleted, Priority: models.RequestPriorityHigh},
		{ID: 4, Status: "", Priority: models.RequestPriorityMedium},
	}
	repo := noopRequestRepo()
	repo.listAllFn = func(context.Context) ([]models.Request, error) {
		return snapshot, nil
	}
	svc := NewRequestService(repo)

	t.Run("unfiltered", func(t *testing.T) {
		res, err := svc.AdminList(context.Background(), "", "")
		require.NoError(t, err)
		assert.Len(t, res.Requests, 4)
		assert.Equal(t, 4, res.Stats.Total)
		assert.Equal(t, 2, res.Stats.Pending, "blank status counts as pending")
	})

	t.Run("filtered stats still cover everything", func(t *testing.T) {
		res, err := svc.AdminList(context.Background(), "completed", "")
		require.NoError(t, err)
		require.Len(t, res.Requests, 1)
		assert.Equal(t, uint(3), res.Requests[0].ID)
		assert.Equal(t, 4, res.Stats.Total)
	})

	t.Run("priority filter", func(t *testing.T) {
		res, err := svc.AdminList(context.Background(), "", "high")
		require.NoError(t, err)
		assert.Len(t, res.Requests, 2)
		assert.Equal(t, 4, res.Stats.Total)
	})

	t.Run("filters compose", func(t *testing.T) {
		res, err := svc.AdminList(context.Background(), "pending", "high")
		require.NoError(t, err)
		require.Len(t, res.Requests, 1)
		assert.Equal(t, uint(1), res.Requests[0].ID)
	})

	t.Run("unknown filter rejected", func(t *testing.T) {
		_, err := svc.AdminList(context.Background(), "archived", "")
		assertValidationError(t, err)

		_, err = svc.AdminList(context.Background(), "", "urgent")
		assertValidationError(t, err)
	})
}

func TestRequestService_Update_Transitions(t *testing.T) {
	t.Parallel()

	mkRepo := func(current models.RequestStatus) (*requestRepoStub, **models.Request) {
		repo := noopRequestRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.Request, error) {
			return &models.Request{ID: id, OwnerID: 7, Status: current, AdminNotes: "existing"}, nil
		}
		var saved *models.Request
		repo.updateStatusNotesFn = func(_ context.Context, req *models.Request) error {
			saved = req
			return nil
		}
		return repo, &saved
	}

	t.Run("pending to accepted", func(t *testing.T) {
		t.Parallel()
		repo, saved := mkRepo(models.RequestStatusPending)
		svc := NewRequestService(repo)
		req, err := svc.Update(context.Background(), UpdateInput{ID: 1, Status: "accepted"})
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusAccepted, req.Status)
		require.NotNil(t, *saved)
	})

	t.Run("completed is terminal", func(t *testing.T) {
		t.Parallel()
		repo, _ := mkRepo(models.RequestStatusCompleted)
		svc := NewRequestService(repo)
		_, err := svc.Update(context.Background(), UpdateInput{ID: 1, Status: "pending"})
		assertValidationError(t, err)
	})

	t.Run("notes only update keeps status", func(t *testing.T) {
		t.Parallel()
		repo, saved := mkRepo(models.RequestStatusInProgress)
		svc := NewRequestService(repo)
		notes := "Client called, new deadline"
		req, err := svc.Update(context.Background(), UpdateInput{ID: 1, AdminNotes: &notes})
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusInProgress, req.Status)
		assert.Equal(t, notes, (*saved).AdminNotes)
	})

	t.Run("nil notes leave stored notes alone", func(t *testing.T) {
		t.Parallel()
		repo, saved := mkRepo(models.RequestStatusPending)
		svc := NewRequestService(repo)
		_, err := svc.Update(context.Background(), UpdateInput{ID: 1, Status: "in_progress"})
		require.NoError(t, err)
		assert.Equal(t, "existing", (*saved).AdminNotes)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		t.Parallel()
		repo, _ := mkRepo(models.RequestStatusPending)
		svc := NewRequestService(repo)
		_, err := svc.Update(context.Background(), UpdateInput{ID: 1, Status: "done"})
		assertValidationError(t, err)
	})
}

func TestRequestService_Delete(t *testing.T) {
	t.Parallel()

	t.Run("terminal request deleted", func(t *testing.T) {
		t.Parallel()
		repo := noopRequestRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.Request, error) {
			return &models.Request{ID: id, OwnerID: 7, Status: models.RequestStatusRejected}, nil
		}
		deleted := false
		repo.deleteFn = func(_ context.Context, id uint) error {
			deleted = true
			return nil
		}
		svc := NewRequestService(repo)
		req, err := svc.Delete(context.Background(), 3)
		require.NoError(t, err)
		assert.True(t, deleted)
		assert.Equal(t, uint(7), req.OwnerID)
	})

	t.Run("active request refused", func(t *testing.T) {
		t.Parallel()
		repo := noopRequestRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.Request, error) {
			return &models.Request{ID: id, Status: models.RequestStatusInProgress}, nil
		}
		svc := NewRequestService(repo)
		_, err := svc.Delete(context.Background(), 3)
		assertValidationError(t, err)
	})

	t.Run("repo error propagates", func(t *testing.T) {
		t.Parallel()
		repoErr := errors.New("db down")
		repo := noopRequestRepo()
		repo.getByIDFn = func(context.Context, uint) (*models.Request, error) {
			return nil, repoErr
		}
		svc := NewRequestService(repo)
		_, err := svc.Delete(context.Background(), 3)
		assert.ErrorIs(t, err, repoErr)
	})
}

func TestPreview(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", Preview("short"))

	long := strings.Repeat("word ", 60)
	p := Preview(long)
	assert.True(t, strings.HasSuffix(p, "…"))
	assert.NotContains(t, p, " …", "trailing spaces are trimmed before the ellipsis")

	// Multibyte text is cut on rune boundaries.
	accented := strings.Repeat("é", 200)
	assert.Equal(t, strings.Repeat("é", 140)+"…", Preview(accented))
}

func TestRequestSummaryTimestampsCarryThrough(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := noopRequestRepo()
	repo.listByOwnerFn = func(context.Context, uint) ([]models.Request, error) {
		return []models.Request{{ID: 1, Description: "d", CreatedAt: created, UpdatedAt: created}}, nil
	}
	svc := NewRequestService(repo)

	summaries, err := svc.ListOwn(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, created, summaries[0].CreatedAt)
}
