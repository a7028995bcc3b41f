package notify

import (
	"github.com/google/logger"

	"prizewheel/internal/models"
)

// Notifier sends the post-allocation confirmation. It runs after the award
// transaction has committed and is fire-and-forget: a delivery failure never
// affects the allocation result.
type Notifier interface {
	AwardConfirmed(attendee models.Attendee, prize models.Prize)
}

// LogNotifier writes confirmations to the application log. It stands in for
// the real email/SMS confirmation collaborator.
type LogNotifier struct{}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// AwardConfirmed logs the confirmation that would otherwise be emailed.
func (n *LogNotifier) AwardConfirmed(attendee models.Attendee, prize models.Prize) {
	logger.Infof("Confirmation: attendee %s (%s) won %q", attendee.ID, attendee.Email, prize.Name)
}
