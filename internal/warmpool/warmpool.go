// Package warmpool reduces perceived cold-start latency by issuing
// speculative warm-up calls to the renderer. Renderer invocations are
// single-use, so the pool tracks recent warm-up attempts rather than idle
// reusable handles.
package warmpool

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/zimalabs/genflow/internal/renderer"
)

// warmupPrompt is the minimal throwaway prompt used for priming calls.
const warmupPrompt = "Reply with the single word: ready"

// Record tracks the warm-up state for one session.
type Record struct {
	SessionID  string
	LastWarmup time.Time
	Duration   time.Duration
}

// Stats is a snapshot of warm pool observability counters.
type Stats struct {
	WarmSessions int   `json:"warm_sessions"`
	WarmStarts   int64 `json:"warm_starts"`
	ColdStarts   int64 `json:"cold_starts"`
	Warmups      int64 `json:"warmups"`
}

// Pool tracks renderer warmth per session and issues best-effort warm-up
// calls. All failures are logged and swallowed; warm-up must never fail a
// caller's request.
type Pool struct {
	factory    renderer.Factory
	warmWindow time.Duration
	staleAfter time.Duration

	mu       sync.Mutex
	sessions map[string]*Record

	warmStarts int64
	coldStarts int64
	warmups    int64

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a Pool. warmWindow is how long a warm-up keeps a session warm;
// staleAfter is when inactive session records are purged.
func New(factory renderer.Factory, warmWindow, staleAfter time.Duration) *Pool {
	return &Pool{
		factory:    factory,
		warmWindow: warmWindow,
		staleAfter: staleAfter,
		sessions:   make(map[string]*Record),
		stopCh:     make(chan struct{}),
	}
}

// IsWarm reports whether the session had a successful warm-up within the
// warm window.
func (p *Pool) IsWarm(sessionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.sessions[sessionID]
	return ok && time.Since(rec.LastWarmup) < p.warmWindow
}

// WarmSession issues one best-effort warm-up call for the session. It is
// idempotent: a session that is already warm is skipped. The system prompt
// payload primes any backend-side caching of the session's preamble.
func (p *Pool) WarmSession(ctx context.Context, sessionID, systemPrompt string) {
	if sessionID == "" || p.IsWarm(sessionID) {
		return
	}

	start := time.Now()
	if err := p.ping(ctx, systemPrompt); err != nil {
		log.Printf("[warmpool] session %s warm-up failed: %v", sessionID, err)
		return
	}
	elapsed := time.Since(start)

	p.mu.Lock()
	p.sessions[sessionID] = &Record{
		SessionID:  sessionID,
		LastWarmup: time.Now(),
		Duration:   elapsed,
	}
	p.warmups++
	p.mu.Unlock()

	log.Printf("[warmpool] session %s warmed in %v", sessionID, elapsed.Round(time.Millisecond))
}

// WarmGlobal issues a minimal throwaway prompt so backend-side model caching
// is primed independent of any session.
func (p *Pool) WarmGlobal(ctx context.Context) {
	start := time.Now()
	if err := p.ping(ctx, ""); err != nil {
		log.Printf("[warmpool] global warm-up failed: %v", err)
		return
	}

	p.mu.Lock()
	p.warmups++
	p.mu.Unlock()

	log.Printf("[warmpool] global warm-up completed in %v", time.Since(start).Round(time.Millisecond))
}

// ping runs one throwaway renderer invocation and drains its events.
func (p *Pool) ping(ctx context.Context, systemPrompt string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	prompt := warmupPrompt
	if systemPrompt != "" {
		prompt = systemPrompt + "\n\n" + warmupPrompt
	}

	r := p.factory.New(ctx)
	if err := r.Start(prompt, renderer.StartOptions{}); err != nil {
		return err
	}
	for range r.Events() {
	}
	return r.Wait()
}

// RecordStart counts one renderer start against the session's warmth state,
// for warm-vs-cold observability.
func (p *Pool) RecordStart(sessionID string) {
	warm := p.IsWarm(sessionID)

	p.mu.Lock()
	defer p.mu.Unlock()
	if warm {
		p.warmStarts++
	} else {
		p.coldStarts++
	}
}

// Purge removes session records with no warm-up inside the stale window and
// returns how many were removed.
func (p *Pool) Purge() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	for id, rec := range p.sessions {
		if time.Since(rec.LastWarmup) > p.staleAfter {
			delete(p.sessions, id)
			removed++
		}
	}
	return removed
}

// Run starts the periodic global warm-up and stale-record purge loop.
// A non-positive interval disables the global ping but still purges.
func (p *Pool) Run(ctx context.Context, interval time.Duration) {
	purgeTicker := time.NewTicker(10 * time.Minute)
	defer purgeTicker.Stop()

	var warmCh <-chan time.Time
	if interval > 0 {
		warmTicker := time.NewTicker(interval)
		defer warmTicker.Stop()
		warmCh = warmTicker.C
	}

	for {
		select {
		case <-warmCh:
			p.WarmGlobal(ctx)
		case <-purgeTicker.C:
			if n := p.Purge(); n > 0 {
				log.Printf("[warmpool] purged %d stale session records", n)
			}
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop terminates the Run loop.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
}

// Stats returns a snapshot of warmth counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	warm := 0
	for _, rec := range p.sessions {
		if time.Since(rec.LastWarmup) < p.warmWindow {
			warm++
		}
	}
	return Stats{
		WarmSessions: warm,
		WarmStarts:   p.warmStarts,
		ColdStarts:   p.coldStarts,
		Warmups:      p.warmups,
	}
}
