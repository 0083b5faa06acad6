package excuses

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pulse/backend/internal/models"
)

var errNoRow = errors.New("no matching row")

type mockReviewStore struct {
	excuses map[uuid.UUID]*models.Excuse
	calls   int
}

func newMockReviewStore() *mockReviewStore {
	return &mockReviewStore{excuses: map[uuid.UUID]*models.Excuse{}}
}

func (m *mockReviewStore) add(status models.ExcuseStatus) uuid.UUID {
	id := uuid.New()
	m.excuses[id] = &models.Excuse{ID: id, Status: status, Slot: models.ExcuseSlotAll}
	return id
}

// Review mirrors the persistence guard: only a pending row matches the update.
func (m *mockReviewStore) Review(_ context.Context, id, reviewer uuid.UUID, status models.ExcuseStatus, notes string, at time.Time) (*models.Excuse, error) {
	m.calls++
	ex, ok := m.excuses[id]
	if !ok || ex.Status != models.ExcuseStatusPending {
		return nil, errNoRow
	}
	ex.Status = status
	ex.ReviewedBy = &reviewer
	ex.ReviewedAt = &at
	ex.ReviewNotes = notes
	return ex, nil
}

func (m *mockReviewStore) IsNotFound(err error) bool {
	return errors.Is(err, errNoRow)
}

func TestReviewApprovesPending(t *testing.T) {
	store := newMockReviewStore()
	id := store.add(models.ExcuseStatusPending)
	reviewer := uuid.New()
	at := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	ex, err := reviewExcuse(context.Background(), store, id, reviewer, models.ExcuseStatusApproved, "doctor's note checks out", at)
	require.NoError(t, err)
	assert.Equal(t, models.ExcuseStatusApproved, ex.Status)
	require.NotNil(t, ex.ReviewedBy)
	assert.Equal(t, reviewer, *ex.ReviewedBy)
	require.NotNil(t, ex.ReviewedAt)
	assert.Equal(t, at, *ex.ReviewedAt)
	assert.Equal(t, "doctor's note checks out", ex.ReviewNotes)
}

func TestReviewRejectsPending(t *testing.T) {
	store := newMockReviewStore()
	id := store.add(models.ExcuseStatusPending)

	ex, err := reviewExcuse(context.Background(), store, id, uuid.New(), models.ExcuseStatusRejected, "no proof attached", time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.ExcuseStatusRejected, ex.Status)
}

func TestReviewTerminalStatesAreImmutable(t *testing.T) {
	for _, seeded := range []models.ExcuseStatus{models.ExcuseStatusApproved, models.ExcuseStatusRejected} {
		for _, decision := range []models.ExcuseStatus{models.ExcuseStatusApproved, models.ExcuseStatusRejected} {
			store := newMockReviewStore()
			id := store.add(seeded)

			_, err := reviewExcuse(context.Background(), store, id, uuid.New(), decision, "", time.Now())
			assert.ErrorIs(t, err, ErrAlreadyReviewed, "seeded=%s decision=%s", seeded, decision)
			assert.Equal(t, seeded, store.excuses[id].Status)
		}
	}
}

func TestSecondReviewConflicts(t *testing.T) {
	store := newMockReviewStore()
	id := store.add(models.ExcuseStatusPending)

	first, err := reviewExcuse(context.Background(), store, id, uuid.New(), models.ExcuseStatusApproved, "", time.Now())
	require.NoError(t, err)
	require.Equal(t, models.ExcuseStatusApproved, first.Status)

	_, err = reviewExcuse(context.Background(), store, id, uuid.New(), models.ExcuseStatusRejected, "changed my mind", time.Now())
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
	assert.Equal(t, models.ExcuseStatusApproved, store.excuses[id].Status)
}

func TestReviewRejectsInvalidDecision(t *testing.T) {
	store := newMockReviewStore()
	id := store.add(models.ExcuseStatusPending)

	_, err := reviewExcuse(context.Background(), store, id, uuid.New(), models.ExcuseStatusPending, "", time.Now())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyReviewed)
	assert.Zero(t, store.calls)
	assert.Equal(t, models.ExcuseStatusPending, store.excuses[id].Status)
}
