package excuses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/campus-pulse/backend/internal/models"
)

// ErrAlreadyReviewed means the excuse left the pending state before this
// review was applied.
var ErrAlreadyReviewed = errors.New("excuse has already been reviewed")

// ReviewStore persists review transitions. Implemented by Repository.
type ReviewStore interface {
	Review(ctx context.Context, id, reviewer uuid.UUID, status models.ExcuseStatus, notes string, at time.Time) (*models.Excuse, error)
	IsNotFound(err error) bool
}

// reviewExcuse applies a reviewer's decision. pending is the only reviewable
// state; approved and rejected are terminal, so a store miss means the excuse
// was already reviewed.
func reviewExcuse(ctx context.Context, store ReviewStore, id, reviewer uuid.UUID, decision models.ExcuseStatus, notes string, at time.Time) (*models.Excuse, error) {
	if decision != models.ExcuseStatusApproved && decision != models.ExcuseStatusRejected {
		return nil, fmt.Errorf("invalid review decision: %s", decision)
	}
	ex, err := store.Review(ctx, id, reviewer, decision, notes, at)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}
	return ex, nil
}
