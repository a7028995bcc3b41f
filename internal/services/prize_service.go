package services

import (
	"context"
	"math/rand"

	"github.com/google/logger"

	"prizewheel/internal/models"
	"prizewheel/internal/notify"
	"prizewheel/internal/store"
)

// PrizeService allocates prizes to verified attendees. It is stateless per
// request: every read is a snapshot and every mutation goes through the
// store's conditional updates, so concurrent spins from independent stations
// stay correct without any in-process locking.
type PrizeService struct {
	store      *store.Store
	notifier   notify.Notifier
	maxRetries int
	segments   int
}

// NewPrizeService creates a PrizeService. maxRetries bounds how many times a
// spin re-runs selection after losing the stock race to a concurrent spin;
// segments is the number of visual segments on the wheel, used only to
// default a new prize's stored wheel position.
func NewPrizeService(st *store.Store, notifier notify.Notifier, maxRetries, segments int) *PrizeService {
	if maxRetries < 1 {
		maxRetries = 3
	}
	if segments < 1 {
		segments = 12
	}
	return &PrizeService{
		store:      st,
		notifier:   notifier,
		maxRetries: maxRetries,
		segments:   segments,
	}
}

// AddPrize creates a prize at setup time. A negative wheelPosition asks the
// store to derive and persist the default position once.
func (s *PrizeService) AddPrize(ctx context.Context, prize *models.Prize, wheelPosition int) error {
	return s.store.CreatePrize(ctx, prize, wheelPosition, s.segments)
}

// ListPrizes returns every prize, including out-of-stock ones.
func (s *PrizeService) ListPrizes(ctx context.Context) ([]models.Prize, error) {
	return s.store.ListPrizes(ctx)
}

// ListAwards returns the award audit log.
func (s *PrizeService) ListAwards(ctx context.Context) ([]models.Award, error) {
	return s.store.ListAwards(ctx)
}

// AllocatePrize picks a weighted-random in-stock prize for the attendee,
// decrements its stock and binds it to the attendee as one atomic unit, and
// returns the prize's public fields for the wheel animation.
//
// The call is idempotent per attendee: a second attempt observes the first
// bind and returns ErrAlreadyClaimed without mutating anything.
func (s *PrizeService) AllocatePrize(ctx context.Context, attendeeID string) (*models.SpinResult, error) {
	attendee, err := s.store.GetAttendee(ctx, attendeeID)
	if err != nil {
		return nil, err
	}
	if attendee == nil {
		return nil, ErrAttendeeNotFound
	}
	if !attendee.Verified {
		return nil, ErrNotVerified
	}
	if attendee.PrizeID != nil {
		return nil, ErrAlreadyClaimed
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		prizes, err := s.store.ListAvailablePrizes(ctx)
		if err != nil {
			return nil, err
		}
		if len(prizes) == 0 {
			return nil, ErrOutOfStock
		}

		selected := pickWeighted(prizes)

		err = s.store.AwardPrize(ctx, attendeeID, selected.ID, selected.Name)
		switch err {
		case nil:
			logger.Infof("Awarded prize %q (id=%d) to attendee %s", selected.Name, selected.ID, attendeeID)
			go s.notifier.AwardConfirmed(*attendee, selected)
			return &models.SpinResult{
				ID:            selected.ID,
				Name:          selected.Name,
				DisplayText:   selected.DisplayText,
				WheelPosition: selected.WheelPosition,
				Color:         selected.Color,
				TextColor:     selected.TextColor,
			}, nil
		case store.ErrStockConflict:
			// Another station took the last unit of this prize between our
			// snapshot and the decrement. Re-read stock and pick again.
			logger.Infof("Stock conflict on prize %d for attendee %s, retrying (%d/%d)",
				selected.ID, attendeeID, attempt+1, s.maxRetries)
			continue
		case store.ErrPrizeBound:
			// A concurrent spin for the same attendee won the bind. The
			// transaction already reverted the decrement, so just report the
			// duplicate.
			logger.Infof("Attendee %s already bound to a prize, treating as duplicate spin", attendeeID)
			return nil, ErrAlreadyClaimed
		default:
			return nil, err
		}
	}

	// Every retry lost the race for a last unit; the pool is effectively gone.
	return nil, ErrOutOfStock
}

// pickWeighted draws one prize with probability proportional to its weight.
// Unset (non-positive) weights count as 1. If floating-point accumulation
// falls through without selecting, the last prize wins deterministically
// rather than failing the spin.
func pickWeighted(prizes []models.Prize) models.Prize {
	total := 0.0
	for _, p := range prizes {
		total += float64(effectiveWeight(p))
	}

	r := rand.Float64() * total
	acc := 0.0
	for _, p := range prizes {
		acc += float64(effectiveWeight(p))
		if r < acc {
			return p
		}
	}
	return prizes[len(prizes)-1]
}

func effectiveWeight(p models.Prize) int {
	if p.Weight <= 0 {
		return 1
	}
	return p.Weight
}
