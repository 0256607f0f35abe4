// Package transactionPipeline builds, estimates, signs, submits and
// confirms transactions against a node. One Execution tracks one
// transaction through the state machine
//
//	Building -> Estimating -> Signing -> Submitted -> Pending
//	                                   -> Confirmed | Dropped | TimedOut
//
// and is owned by a single goroutine; nothing here is shared or locked.
// Nonce assignment across concurrently executing pipelines for the same
// account is the caller's responsibility to serialize.
package transactionPipeline

// State is one step of the transaction lifecycle.
type State uint8

const (
	StateBuilding State = iota
	StateEstimating
	StateSigning
	StateSubmitted
	StatePending
	StateConfirmed
	StateDropped
	StateTimedOut
)

// Terminal reports whether the state is final. Once a terminal state is
// reached no further transition occurs.
func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateDropped, StateTimedOut:
		return true
	}
	return false
}

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateEstimating:
		return "estimating"
	case StateSigning:
		return "signing"
	case StateSubmitted:
		return "submitted"
	case StatePending:
		return "pending"
	case StateConfirmed:
		return "confirmed"
	case StateDropped:
		return "dropped"
	case StateTimedOut:
		return "timedOut"
	default:
		return "unknown"
	}
}
