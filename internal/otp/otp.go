package otp

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/logger"
)

// Service issues and checks one-time verification codes. Code transport
// (email/SMS) is an external collaborator; implementations of this interface
// are the boundary to it.
type Service interface {
	// Issue generates a code for the attendee and hands it to the transport.
	Issue(attendeeID string) error
	// Verify reports whether code matches the attendee's outstanding code.
	// A code can be consumed at most once.
	Verify(attendeeID, code string) bool
}

type issuedCode struct {
	code      string
	expiresAt time.Time
}

// MockService keeps issued codes in memory and logs them instead of sending.
// Used when MOCK_VERIFICATION_MODE is on (the default for booth setups with
// no outbound email/SMS).
type MockService struct {
	mu     sync.Mutex
	codes  map[string]issuedCode
	expiry time.Duration
}

// NewMockService creates a MockService whose codes expire after expiry.
func NewMockService(expiry time.Duration) *MockService {
	return &MockService{
		codes:  make(map[string]issuedCode),
		expiry: expiry,
	}
}

// Issue generates a six-digit code and logs it.
func (m *MockService) Issue(attendeeID string) error {
	code := fmt.Sprintf("%06d", rand.Intn(1000000))

	m.mu.Lock()
	m.codes[attendeeID] = issuedCode{code: code, expiresAt: time.Now().Add(m.expiry)}
	m.mu.Unlock()

	logger.Infof("Mock verification code for attendee %s: %s", attendeeID, code)
	return nil
}

// Verify consumes the attendee's outstanding code if it matches and has not
// expired.
func (m *MockService) Verify(attendeeID, code string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	issued, ok := m.codes[attendeeID]
	if !ok || time.Now().After(issued.expiresAt) || issued.code != code {
		return false
	}
	delete(m.codes, attendeeID)
	return true
}
