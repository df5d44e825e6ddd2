package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func cooldown30s(string) time.Duration { return 30 * time.Second }

func TestExecutionState_RejectsSecondExecuteWithinCooldown(t *testing.T) {
	s := NewExecutionState(cooldown30s)

	d1 := s.TryBegin("valr")
	assert.True(t, d1.Allowed)
	s.Complete("valr")

	d2 := s.TryBegin("valr")
	assert.False(t, d2.Allowed)
	assert.Equal(t, "cooldown active", d2.Reason)
}

func TestExecutionState_RejectsConcurrentExecutionOnSameExchange(t *testing.T) {
	s := NewExecutionState(cooldown30s)

	d1 := s.TryBegin("binance")
	assert.True(t, d1.Allowed)

	d2 := s.TryBegin("binance")
	assert.False(t, d2.Allowed)
	assert.Equal(t, "exchange busy with another execution", d2.Reason)

	s.Complete("binance")
}

func TestExecutionState_DifferentExchangesIndependent(t *testing.T) {
	s := NewExecutionState(cooldown30s)

	d1 := s.TryBegin("valr")
	assert.True(t, d1.Allowed)
	d2 := s.TryBegin("binance")
	assert.True(t, d2.Allowed)
}

// TestExecutionState_ConcurrentTryBegin fires many concurrent TryBegin calls
// on the same exchange and asserts exactly one wins the "exchange busy" race.
func TestExecutionState_ConcurrentTryBegin(t *testing.T) {
	s := NewExecutionState(cooldown30s)
	const n = 50

	var wg sync.WaitGroup
	allowed := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			allowed[i] = s.TryBegin("kraken").Allowed
		}(i)
	}
	wg.Wait()

	count := 0
	for _, a := range allowed {
		if a {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
