package optimization

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		kind ErrorKind
	}{
		{fmt.Errorf("%w: 1 candidate", ErrInsufficientCandidates), KindInsufficientCandidates},
		{fmt.Errorf("fetch: %w", ErrUnstableMarketData), KindUnstableMarketData},
		{fmt.Errorf("%w: both failed", ErrOptimizationInfeasible), KindOptimizationInfeasible},
		{fmt.Errorf("%w: bad amount", ErrInvalidInput), KindInvalidInput},
		{errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Internal error.", UserMessage(errors.New("nil pointer in solver")))
	assert.Equal(t, "invalid input: investment amount must be positive",
		UserMessage(fmt.Errorf("%w: investment amount must be positive", ErrInvalidInput)))
}
