package services

import (
	"context"

	"github.com/google/logger"

	"prizewheel/internal/store"
)

// ClaimService hands out strictly unique, gap-tolerant sequential claim ids.
// Uniqueness comes from the store's single-round-trip atomic increment plus a
// conditional bind onto the attendee row; gaps appear when a bind loses a
// race and its sequence value is abandoned, which the contract allows.
type ClaimService struct {
	store *store.Store
}

// NewClaimService creates a ClaimService.
func NewClaimService(st *store.Store) *ClaimService {
	return &ClaimService{store: st}
}

// NextClaimID returns the attendee's claim id, allocating one from the
// sequence if the attendee does not have one yet. Idempotent per attendee:
// concurrent calls for the same attendee all return the same value, and at
// most one sequence value is ever bound.
func (s *ClaimService) NextClaimID(ctx context.Context, attendeeID string) (int64, error) {
	attendee, err := s.store.GetAttendee(ctx, attendeeID)
	if err != nil {
		return 0, err
	}
	if attendee == nil {
		return 0, ErrAttendeeNotFound
	}
	if attendee.ClaimID != nil {
		return *attendee.ClaimID, nil
	}

	next, err := s.store.NextSequence(ctx)
	if err != nil {
		return 0, err
	}

	err = s.store.BindClaimID(ctx, attendeeID, next)
	if err == store.ErrClaimBound {
		// A concurrent request bound first; our sequence value becomes a gap.
		logger.Infof("Claim bind lost race for attendee %s, abandoning sequence value %d", attendeeID, next)
		attendee, err = s.store.GetAttendee(ctx, attendeeID)
		if err != nil {
			return 0, err
		}
		if attendee == nil || attendee.ClaimID == nil {
			return 0, ErrAllocationContention
		}
		return *attendee.ClaimID, nil
	}
	if err != nil {
		return 0, err
	}

	return next, nil
}
