package api

import (
	"errors"
	"sync"
	"time"

	"github.com/ruchirkulkarni22/LensOra/pkg/workflows"
)

// rateWindow is the minimum gap between two generation requests for the
// same ticket.
const rateWindow = 25 * time.Second

// Guard errors.
var (
	// ErrRateLimited: the same ticket was requested again inside the rate
	// window.
	ErrRateLimited = errors.New("generation re-requested within rate window")
	// ErrInFlight: a generation for this ticket is currently running.
	ErrInFlight = errors.New("generation already in flight")
)

// generationGuard is the process-local rate-limit and single-flight registry
// for resolution generation, plus the last-generation cache served by the
// solutions-cache endpoint. It is deliberately not persisted: its only job
// is request de-duplication within one process lifetime.
type generationGuard struct {
	mu          sync.Mutex
	inFlight    map[string]bool
	lastRequest map[string]time.Time
	cache       map[string]workflows.ResolutionResult
	now         func() time.Time
}

func newGenerationGuard() *generationGuard {
	return &generationGuard{
		inFlight:    make(map[string]bool),
		lastRequest: make(map[string]time.Time),
		cache:       make(map[string]workflows.ResolutionResult),
		now:         time.Now,
	}
}

// begin claims the ticket for one generation. Exactly one concurrent caller
// wins; later callers get ErrInFlight, and re-requests inside the rate
// window get ErrRateLimited.
func (g *generationGuard) begin(ticketKey string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inFlight[ticketKey] {
		return ErrInFlight
	}
	if last, ok := g.lastRequest[ticketKey]; ok && g.now().Sub(last) < rateWindow {
		return ErrRateLimited
	}

	g.inFlight[ticketKey] = true
	g.lastRequest[ticketKey] = g.now()
	return nil
}

// end releases the ticket and caches the result when one was produced.
func (g *generationGuard) end(ticketKey string, result *workflows.ResolutionResult) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, ticketKey)
	if result != nil {
		g.cache[ticketKey] = *result
	}
}

// cached returns the last generation payload for a ticket.
func (g *generationGuard) cached(ticketKey string) (workflows.ResolutionResult, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	result, ok := g.cache[ticketKey]
	return result, ok
}
