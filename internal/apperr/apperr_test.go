package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want Kind
	}{
		{"sentinel", ErrResourceBusy, KindConflict},
		{"wrapped sentinel", fmt.Errorf("%w: available 2", ErrInsufficientStock), KindExhausted},
		{"plain error", errors.New("boom"), KindUnavailable},
		{"pricing", ErrPricingNotConfigured, KindConfiguration},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestNormalize(t *testing.T) {
	err := Normalize(fmt.Errorf("lock session: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, Retryable(err))

	busy := fmt.Errorf("%w: table 3", ErrResourceBusy)
	assert.Same(t, busy, Normalize(busy))
	assert.False(t, Retryable(busy))

	assert.NoError(t, Normalize(nil))
}
