package images

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHostBreaker_OpensAfterThreshold(t *testing.T) {
	b := newHostBreaker(3, time.Minute)
	boom := errors.New("connection refused")

	for i := 0; i < 2; i++ {
		b.recordFailure("cdn.example", boom)
		assert.NoError(t, b.allow("cdn.example"))
	}

	b.recordFailure("cdn.example", boom)
	assert.Equal(t, stateOpen, b.state("cdn.example"))
	assert.ErrorIs(t, b.allow("cdn.example"), ErrHostUnavailable)

	assert.NoError(t, b.allow("other.example"), "hosts are tracked separately")
}

func TestHostBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Now()
	b := newHostBreaker(1, time.Minute)
	b.now = func() time.Time { return now }

	b.recordFailure("cdn.example", errors.New("timeout"))
	assert.ErrorIs(t, b.allow("cdn.example"), ErrHostUnavailable)

	now = now.Add(2 * time.Minute)
	assert.NoError(t, b.allow("cdn.example"))
	assert.Equal(t, stateHalfOpen, b.state("cdn.example"))

	// A failed probe reopens at once.
	b.recordFailure("cdn.example", errors.New("timeout"))
	assert.Equal(t, stateOpen, b.state("cdn.example"))

	now = now.Add(2 * time.Minute)
	assert.NoError(t, b.allow("cdn.example"))
	b.recordSuccess("cdn.example")
	assert.Equal(t, stateClosed, b.state("cdn.example"))
}

func TestBreakerState_String(t *testing.T) {
	assert.Equal(t, "closed", stateClosed.String())
	assert.Equal(t, "open", stateOpen.String())
	assert.Equal(t, "half-open", stateHalfOpen.String())
}
