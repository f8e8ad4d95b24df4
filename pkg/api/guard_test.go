package api

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruchirkulkarni22/LensOra/pkg/workflows"
)

func TestGuard_SingleFlight(t *testing.T) {
	g := newGenerationGuard()

	require.NoError(t, g.begin("LENS-1"))
	assert.ErrorIs(t, g.begin("LENS-1"), ErrInFlight)

	g.end("LENS-1", nil)
}

func TestGuard_RateWindow(t *testing.T) {
	g := newGenerationGuard()
	current := time.Now()
	g.now = func() time.Time { return current }

	require.NoError(t, g.begin("LENS-1"))
	g.end("LENS-1", nil)

	// Within the window → rejected.
	current = current.Add(10 * time.Second)
	assert.ErrorIs(t, g.begin("LENS-1"), ErrRateLimited)

	// After the window → accepted.
	current = current.Add(20 * time.Second)
	assert.NoError(t, g.begin("LENS-1"))
}

func TestGuard_ConcurrentBeginAdmitsExactlyOne(t *testing.T) {
	g := newGenerationGuard()

	const callers = 16
	var wg sync.WaitGroup
	admitted := make(chan struct{}, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.begin("LENS-1") == nil {
				admitted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(admitted)

	count := 0
	for range admitted {
		count++
	}
	assert.Equal(t, 1, count, "exactly one concurrent caller may win")
}

func TestGuard_IndependentTickets(t *testing.T) {
	g := newGenerationGuard()
	require.NoError(t, g.begin("LENS-1"))
	require.NoError(t, g.begin("LENS-2"))
}

func TestGuard_Cache(t *testing.T) {
	g := newGenerationGuard()

	_, ok := g.cached("LENS-1")
	assert.False(t, ok)

	require.NoError(t, g.begin("LENS-1"))
	g.end("LENS-1", &workflows.ResolutionResult{Status: workflows.ResolutionStatusSuccess, TicketKey: "LENS-1"})

	cached, ok := g.cached("LENS-1")
	require.True(t, ok)
	assert.Equal(t, "LENS-1", cached.TicketKey)
}
