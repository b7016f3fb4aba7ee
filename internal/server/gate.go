package server

import "sync"

// ActionGate serializes narrative-mutating actions across all sessions: at
// most one action pipeline runs at a time, system-wide. An action arriving
// while the gate is held is rejected, not queued; the client is told to
// resend. The gate stays held across the full generation round-trip, which
// blocks other players from advancing the story (but not from reading or
// disconnecting) for the duration of one call. That is a deliberate
// simplicity-over-throughput tradeoff.
type ActionGate struct {
	mu   sync.Mutex
	busy bool
}

// NewActionGate creates a released gate.
func NewActionGate() *ActionGate {
	return &ActionGate{}
}

// TryAcquire atomically checks and sets the busy flag. It never blocks;
// false means another action is in flight.
func (g *ActionGate) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.busy {
		return false
	}
	g.busy = true
	return true
}

// Release clears the busy flag, admitting the next action. Callers must
// ensure Release runs on every exit path of the protected pipeline,
// including generation failures.
func (g *ActionGate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.busy = false
}
