package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type State string

const (
	StateCreated          State = "CREATED"
	StateAuthRequested    State = "AUTH_REQUESTED"
	StateAuthSucceeded    State = "AUTH_SUCCEEDED"
	StateAuthFailed       State = "AUTH_FAILED"
	StatePaymentSubmitted State = "PAYMENT_SUBMITTED"
	StatePaymentSucceeded State = "PAYMENT_SUCCEEDED"
	StatePaymentFailed    State = "PAYMENT_FAILED"
)

// CREATED may move straight to AUTH_SUCCEEDED when the request already carries
// authentication evidence.
var transitions = map[State][]State{
	StateCreated:          {StateAuthRequested, StateAuthSucceeded},
	StateAuthRequested:    {StateAuthSucceeded, StateAuthFailed},
	StateAuthSucceeded:    {StatePaymentSubmitted},
	StatePaymentSubmitted: {StatePaymentSucceeded, StatePaymentFailed},
}

func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

func (s State) failure() bool {
	return s == StateAuthFailed || s == StatePaymentFailed
}

var ErrInvalidTransition = errors.New("invalid state transition")

// flow tracks one authenticate-and-pay sequence.
type flow struct {
	id      uuid.UUID
	state   State
	history []State
}

func newFlow(id uuid.UUID) *flow {
	return &flow{id: id, state: StateCreated, history: []State{StateCreated}}
}

// advance moves the flow to next. Progress is refused once ctx is done so an
// aborted flow never reaches a later step; failure states are always recorded.
func (f *flow) advance(ctx context.Context, next State) error {
	if !next.failure() {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "flow aborted in %s", f.state)
		}
	}
	for _, allowed := range transitions[f.state] {
		if allowed == next {
			f.state = next
			f.history = append(f.history, next)
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidTransition, "%s -> %s", f.state, next)
}
