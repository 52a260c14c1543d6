package registration

import (
	"sync"

	"github.com/revival-automotive/account-service/internal/otp"
)

// State is a registration flow's position in the
// CollectingDetails → AwaitingVerification → Completing → Done machine.
type State int

const (
	StateCollectingDetails State = iota
	StateAwaitingVerification
	StateCompleting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateCollectingDetails:
		return "collecting_details"
	case StateAwaitingVerification:
		return "awaiting_verification"
	case StateCompleting:
		return "completing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Flow is the explicit state object for one registration attempt: the current
// state, the transient form data, and the live verification challenge. The
// pending registration and challenge exist only between form submission and
// verification; Back and reset discard them.
type Flow struct {
	mu      sync.Mutex
	state   State
	pending *PendingRegistration
	otp     *otp.Service
}

// State returns the flow's current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// reset discards the pending registration and the live challenge and returns
// the flow to collecting details. Caller holds f.mu.
func (f *Flow) reset() {
	f.pending = nil
	f.otp.Reset()
	f.state = StateCollectingDetails
}
