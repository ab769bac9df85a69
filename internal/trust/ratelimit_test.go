package trust

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_FixedWindow(t *testing.T) {
	l := NewRateLimiter(nil)
	now := time.Now()
	l.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow("user-1", ActionReport), "attempt %d", i+1)
	}
	assert.False(t, l.Allow("user-1", ActionReport), "6th report in the window is denied")

	// Other actors and other actions are unaffected.
	assert.True(t, l.Allow("user-2", ActionReport))
	assert.True(t, l.Allow("user-1", ActionWrite))
}

func TestRateLimiter_WindowReset(t *testing.T) {
	l := NewRateLimiter(map[Action]Rule{
		ActionReport: {Max: 2, Window: time.Minute},
	})
	now := time.Now()
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("user-1", ActionReport))
	assert.True(t, l.Allow("user-1", ActionReport))
	assert.False(t, l.Allow("user-1", ActionReport))

	// Just before the window closes the counter still holds.
	now = now.Add(59 * time.Second)
	assert.False(t, l.Allow("user-1", ActionReport))

	// Once the window has elapsed a fresh one starts.
	now = now.Add(time.Second)
	assert.True(t, l.Allow("user-1", ActionReport))
	assert.True(t, l.Allow("user-1", ActionReport))
	assert.False(t, l.Allow("user-1", ActionReport))
}

func TestRateLimiter_UnknownActionAllowed(t *testing.T) {
	l := NewRateLimiter(map[Action]Rule{})
	for i := 0; i < 1000; i++ {
		assert.True(t, l.Allow("user-1", ActionReport))
	}
}

func TestRateLimiter_SweepDropsExpiredCounters(t *testing.T) {
	l := NewRateLimiter(map[Action]Rule{
		ActionWrite: {Max: 10, Window: time.Minute},
	})
	now := time.Now()
	l.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		l.Allow(fmt.Sprintf("ip:10.0.0.%d", i), ActionWrite)
	}
	assert.Equal(t, 50, l.Size())

	now = now.Add(2 * time.Minute)
	l.sweepLocked(now)
	assert.Equal(t, 0, l.Size())
}

func TestRateLimiter_Concurrent(t *testing.T) {
	l := NewRateLimiter(map[Action]Rule{
		ActionWrite: {Max: 100, Window: time.Minute},
	})

	// 200 concurrent attempts by one actor: exactly 100 may pass.
	var wg sync.WaitGroup
	results := make(chan bool, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- l.Allow("user-1", ActionWrite)
		}()
	}
	wg.Wait()
	close(results)

	allowed := 0
	for ok := range results {
		if ok {
			allowed++
		}
	}
	assert.Equal(t, 100, allowed)
}
