package payment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlow_Advance(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		path  []State
		valid bool
	}{
		{name: "HappyPath", path: []State{StateAuthRequested, StateAuthSucceeded, StatePaymentSubmitted, StatePaymentSucceeded}, valid: true},
		{name: "PriorEvidence", path: []State{StateAuthSucceeded, StatePaymentSubmitted, StatePaymentFailed}, valid: true},
		{name: "AuthFailed", path: []State{StateAuthRequested, StateAuthFailed}, valid: true},
		{name: "PayAfterAuthFailed", path: []State{StateAuthRequested, StateAuthFailed, StatePaymentSubmitted}},
		{name: "SkipAuthentication", path: []State{StatePaymentSubmitted}},
		{name: "SucceedWithoutSubmit", path: []State{StateAuthRequested, StateAuthSucceeded, StatePaymentSucceeded}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFlow(uuid.New())
			var err error
			for _, next := range tt.path {
				if err = f.advance(ctx, next); err != nil {
					break
				}
			}
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, tt.path[len(tt.path)-1], f.state)
				assert.Equal(t, append([]State{StateCreated}, tt.path...), f.history)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidTransition))
			}
		})
	}
}

func TestFlow_AdvanceCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newFlow(uuid.New())
	require.NoError(t, f.advance(ctx, StateAuthRequested))

	cancel()
	err := f.advance(ctx, StateAuthSucceeded)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, StateAuthRequested, f.state)

	require.NoError(t, f.advance(ctx, StateAuthFailed))
	assert.True(t, f.state.Terminal())
}

func TestState_Terminal(t *testing.T) {
	for _, s := range []State{StateAuthFailed, StatePaymentSucceeded, StatePaymentFailed} {
		assert.True(t, s.Terminal(), s)
	}
	for _, s := range []State{StateCreated, StateAuthRequested, StateAuthSucceeded, StatePaymentSubmitted} {
		assert.False(t, s.Terminal(), s)
	}
}
