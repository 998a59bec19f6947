package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"citycare-be/apperrors"
	"citycare-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// runIssueStoreSuite exercises the IssueStore contract against any
// implementation. newStore must return an empty store.
func runIssueStoreSuite(t *testing.T, newStore func(t *testing.T) IssueStore) {
	t.Run("CreateAssignsIdentityAndVersion", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Create(context.Background(), seedIssue(primitive.NewObjectID(), models.CategoryRoad))
		require.NoError(t, err)

		assert.False(t, created.ID.IsZero())
		assert.Equal(t, int64(1), created.Version)
		assert.False(t, created.CreatedAt.IsZero())
		assert.Equal(t, models.StatusPending, created.Status)
		assert.Len(t, created.StatusHistory, 1)
		assert.Nil(t, created.AssignedTo)
	})

	t.Run("CreateRejectsMissingFields", func(t *testing.T) {
		s := newStore(t)
		issue := seedIssue(primitive.NewObjectID(), models.CategoryRoad)
		issue.Location = ""

		_, err := s.Create(context.Background(), issue)
		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, apperrors.ErrorCodeValidation, appErr.Code)
		assert.Equal(t, "location", appErr.Field)

		all, err := s.List(context.Background(), IssueFilter{})
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("CreateRejectsNonCreationHistory", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*models.Issue)
		}{
			{"already resolved with history", func(i *models.Issue) {
				i.StatusHistory = append(i.StatusHistory,
					models.StatusChangeEvent{Status: models.StatusInProgress, ChangedBy: i.ReportedBy, ActorRole: models.RoleCitizen},
					models.StatusChangeEvent{Status: models.StatusResolved, ChangedBy: i.ReportedBy, ActorRole: models.RoleCitizen})
				i.Status = models.StatusResolved
			}},
			{"not pending", func(i *models.Issue) {
				i.StatusHistory[0].Status = models.StatusInProgress
				i.Status = models.StatusInProgress
			}},
			{"duplicate creation event", func(i *models.Issue) {
				i.StatusHistory = append(i.StatusHistory, i.StatusHistory[0])
			}},
			{"creation event by another user", func(i *models.Issue) {
				i.StatusHistory[0].ChangedBy = primitive.NewObjectID()
			}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s := newStore(t)
				issue := seedIssue(primitive.NewObjectID(), models.CategoryRoad)
				tt.mutate(issue)

				_, err := s.Create(context.Background(), issue)
				assert.ErrorIs(t, err, apperrors.ErrValidation)

				all, err := s.List(context.Background(), IssueFilter{})
				require.NoError(t, err)
				assert.Empty(t, all)
			})
		}
	})

	t.Run("GetByIDMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetByID(context.Background(), primitive.NewObjectID())
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("ListFiltersAndOrdersNewestFirst", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		alice, bob := primitive.NewObjectID(), primitive.NewObjectID()

		first, err := s.Create(ctx, seedIssue(alice, models.CategoryRoad))
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
		second, err := s.Create(ctx, seedIssue(bob, models.CategoryWater))
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
		third, err := s.Create(ctx, seedIssue(alice, models.CategoryWater))
		require.NoError(t, err)

		volunteer := primitive.NewObjectID()
		_, err = s.Update(ctx, second.ID, second.Version, IssueMutation{AssignedTo: &volunteer})
		require.NoError(t, err)

		all, err := s.List(ctx, IssueFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []primitive.ObjectID{third.ID, second.ID, first.ID}, idsOf(all))

		water := models.CategoryWater
		byAlice, err := s.List(ctx, IssueFilter{ReportedBy: &alice, Category: &water})
		require.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{third.ID}, idsOf(byAlice))

		assigned, err := s.List(ctx, IssueFilter{AssignedTo: &volunteer})
		require.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{second.ID}, idsOf(assigned))

		resolved := models.StatusResolved
		none, err := s.List(ctx, IssueFilter{Status: &resolved})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("UpdateAppendsHistoryAtomically", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		reporter := primitive.NewObjectID()
		created, err := s.Create(ctx, seedIssue(reporter, models.CategoryOther))
		require.NoError(t, err)

		status := models.StatusInProgress
		event := models.StatusChangeEvent{
			Status:    status,
			ChangedBy: reporter,
			ChangedAt: time.Now().UTC().Truncate(time.Millisecond),
			Note:      "Reporter update",
			ActorRole: models.RoleCitizen,
		}
		updated, err := s.Update(ctx, created.ID, created.Version, IssueMutation{Status: &status, AppendEvent: &event})
		require.NoError(t, err)

		assert.Equal(t, status, updated.Status)
		assert.Equal(t, int64(2), updated.Version)
		require.Len(t, updated.StatusHistory, 2)
		assert.Equal(t, "Reporter update", updated.StatusHistory[1].Note)
		assert.Equal(t, created.StatusHistory[0].Note, updated.StatusHistory[0].Note)

		reloaded, err := s.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, updated.StatusHistory, reloaded.StatusHistory)
	})

	t.Run("UpdateRejectsStaleVersion", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		created, err := s.Create(ctx, seedIssue(primitive.NewObjectID(), models.CategoryOther))
		require.NoError(t, err)

		volunteer := primitive.NewObjectID()
		_, err = s.Update(ctx, created.ID, created.Version, IssueMutation{AssignedTo: &volunteer})
		require.NoError(t, err)

		status := models.StatusResolved
		event := models.StatusChangeEvent{Status: status, ChangedBy: volunteer, ActorRole: models.RoleVolunteer}
		_, err = s.Update(ctx, created.ID, created.Version, IssueMutation{Status: &status, AppendEvent: &event})
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		assert.True(t, apperrors.IsRetryable(err))

		reloaded, err := s.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, reloaded.Status)
		assert.Len(t, reloaded.StatusHistory, 1)
		assert.Equal(t, int64(2), reloaded.Version)
	})

	t.Run("UpdateMissingIssue", func(t *testing.T) {
		s := newStore(t)
		volunteer := primitive.NewObjectID()
		_, err := s.Update(context.Background(), primitive.NewObjectID(), 1, IssueMutation{AssignedTo: &volunteer})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("UpdateStaleVersionMissingVersusExisting", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		created, err := s.Create(ctx, seedIssue(primitive.NewObjectID(), models.CategoryOther))
		require.NoError(t, err)

		volunteer := primitive.NewObjectID()
		stale := created.Version + 41

		_, err = s.Update(ctx, primitive.NewObjectID(), stale, IssueMutation{AssignedTo: &volunteer})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.False(t, apperrors.IsRetryable(err))

		_, err = s.Update(ctx, created.ID, stale, IssueMutation{AssignedTo: &volunteer})
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		assert.True(t, apperrors.IsRetryable(err))

		reloaded, err := s.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, reloaded.AssignedTo)
		assert.Equal(t, created.Version, reloaded.Version)
	})

	t.Run("UpdateFailureIsNotRetryable", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Create(context.Background(), seedIssue(primitive.NewObjectID(), models.CategoryOther))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		volunteer := primitive.NewObjectID()
		_, err = s.Update(ctx, created.ID, created.Version, IssueMutation{AssignedTo: &volunteer})
		assert.ErrorIs(t, err, apperrors.ErrPersistence)
		assert.False(t, apperrors.IsRetryable(err))
	})

	t.Run("UpdateRejectsStatusWithoutHistory", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		created, err := s.Create(ctx, seedIssue(primitive.NewObjectID(), models.CategoryOther))
		require.NoError(t, err)

		status := models.StatusResolved
		_, err = s.Update(ctx, created.ID, created.Version, IssueMutation{Status: &status})
		assert.ErrorIs(t, err, apperrors.ErrValidation)

		reloaded, err := s.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, reloaded.Status)
	})

	t.Run("CountByStatus", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, target := range []models.IssueStatus{models.StatusPending, models.StatusInProgress, models.StatusResolved, models.StatusResolved} {
			reporter := primitive.NewObjectID()
			created, err := s.Create(ctx, seedIssue(reporter, models.CategoryOther))
			require.NoError(t, err)
			if target == models.StatusPending {
				continue
			}
			status := target
			event := models.StatusChangeEvent{Status: status, ChangedBy: reporter, ActorRole: models.RoleCitizen}
			_, err = s.Update(ctx, created.ID, created.Version, IssueMutation{Status: &status, AppendEvent: &event})
			require.NoError(t, err)
		}

		counts, err := s.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts[models.StatusPending])
		assert.Equal(t, int64(1), counts[models.StatusInProgress])
		assert.Equal(t, int64(2), counts[models.StatusResolved])
	})
}

func seedIssue(reporter primitive.ObjectID, category models.IssueCategory) *models.Issue {
	return &models.Issue{
		Title:       "Pothole",
		Description: "Deep pothole",
		Category:    category,
		Location:    "5th Ave",
		Status:      models.StatusPending,
		ReportedBy:  reporter,
		StatusHistory: []models.StatusChangeEvent{{
			Status:    models.StatusPending,
			ChangedBy: reporter,
			ChangedAt: time.Now().UTC().Truncate(time.Millisecond),
			Note:      "Reported by user",
			ActorRole: models.RoleCitizen,
		}},
	}
}

func idsOf(issues []models.Issue) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(issues))
	for _, issue := range issues {
		ids = append(ids, issue.ID)
	}
	return ids
}
