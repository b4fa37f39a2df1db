package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the state of the circuit breaker.
type State int

const (
	// Closed is the initial state where requests are allowed.
	Closed State = iota
	// Open state is when the circuit has tripped and requests are blocked.
	Open
	// HalfOpen allows trial requests to test the downstream's recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "Half-Open"
	default:
		return "Unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker rejects a request.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker trips after a run of consecutive failures, blocks requests for a
// cool-down period, then lets trial requests through until it either closes
// again or re-trips.
type Breaker struct {
	failureThreshold uint32
	successThreshold uint32
	cooldown         time.Duration

	state           State
	failures        uint32
	halfOpenSuccess uint32
	openedAt        time.Time
	mutex           sync.Mutex
}

// New creates a Breaker.
// failureThreshold: consecutive failures required to open the circuit.
// successThreshold: consecutive half-open successes required to close it.
// cooldown: how long the circuit stays open before allowing trial requests.
func New(failureThreshold, successThreshold uint32, cooldown time.Duration) *Breaker {
	return &Breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		cooldown:         cooldown,
		state:            Closed,
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.state
}

// Do runs fn under the breaker. When the circuit is open, fn is not called
// and ErrCircuitOpen is returned.
func (b *Breaker) Do(fn func() error) error {
	b.mutex.Lock()
	if b.state == Open {
		if time.Since(b.openedAt) < b.cooldown {
			b.mutex.Unlock()
			return ErrCircuitOpen
		}
		b.state = HalfOpen
		b.halfOpenSuccess = 0
	}
	b.mutex.Unlock()

	err := fn()

	b.mutex.Lock()
	defer b.mutex.Unlock()
	if err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}

// caller holds b.mutex
func (b *Breaker) onSuccess() {
	switch b.state {
	case HalfOpen:
		b.halfOpenSuccess++
		if b.halfOpenSuccess >= b.successThreshold {
			b.state = Closed
			b.failures = 0
		}
	case Closed:
		b.failures = 0
	}
}

// caller holds b.mutex
func (b *Breaker) onFailure() {
	switch b.state {
	case HalfOpen:
		b.trip()
	case Closed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.trip()
		}
	}
}

func (b *Breaker) trip() {
	b.state = Open
	b.openedAt = time.Now()
	b.failures = 0
	b.halfOpenSuccess = 0
}
