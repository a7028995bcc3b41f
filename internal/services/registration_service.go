package services

import (
	"context"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"

	"prizewheel/internal/models"
	"prizewheel/internal/otp"
	"prizewheel/internal/store"
)

// RegistrationService creates attendee records and drives the one-time-code
// verification handshake through the otp collaborator.
type RegistrationService struct {
	store *store.Store
	codes otp.Service
}

// NewRegistrationService creates a RegistrationService.
func NewRegistrationService(st *store.Store, codes otp.Service) *RegistrationService {
	return &RegistrationService{store: st, codes: codes}
}

// Register creates an attendee and issues a verification code to them.
func (s *RegistrationService) Register(ctx context.Context, name, email string) (*models.Attendee, error) {
	attendee := &models.Attendee{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateAttendee(ctx, attendee); err != nil {
		return nil, err
	}
	if err := s.codes.Issue(attendee.ID); err != nil {
		// Registration stands; the attendee can request a fresh code.
		logger.Errorf("Failed to issue verification code for attendee %s: %v", attendee.ID, err)
	}
	return attendee, nil
}

// Verify checks the attendee's one-time code and marks them verified.
// Verifying an already-verified attendee is a no-op success.
func (s *RegistrationService) Verify(ctx context.Context, attendeeID, code string) error {
	attendee, err := s.store.GetAttendee(ctx, attendeeID)
	if err != nil {
		return err
	}
	if attendee == nil {
		return ErrAttendeeNotFound
	}
	if attendee.Verified {
		return nil
	}
	if !s.codes.Verify(attendeeID, code) {
		return ErrInvalidCode
	}
	return s.store.MarkVerified(ctx, attendeeID)
}

// GetAttendee returns the attendee record for station dashboards.
func (s *RegistrationService) GetAttendee(ctx context.Context, attendeeID string) (*models.Attendee, error) {
	attendee, err := s.store.GetAttendee(ctx, attendeeID)
	if err != nil {
		return nil, err
	}
	if attendee == nil {
		return nil, ErrAttendeeNotFound
	}
	return attendee, nil
}
