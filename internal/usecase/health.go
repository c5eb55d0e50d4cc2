package usecase

import (
	"sync"
	"time"
)

// ProviderHealth tracks per-provider failure state shared across
// concurrent queries. Updates carry the sequence number observed when
// the provider was selected; a stale sequence means another query
// already recorded an outcome for that window, so the update is
// dropped instead of double-penalizing or double-resetting cooldowns.
type ProviderHealth struct {
	mu       sync.Mutex
	states   map[string]*healthState
	initial  time.Duration
	max      time.Duration
	now      func() time.Time
}

type healthState struct {
	failures      int
	cooldownUntil time.Time
	seq           uint64
}

func NewProviderHealth(initial, max time.Duration) *ProviderHealth {
	if initial <= 0 {
		initial = 2 * time.Second
	}
	if max < initial {
		max = 2 * time.Minute
	}
	return &ProviderHealth{
		states:  make(map[string]*healthState),
		initial: initial,
		max:     max,
		now:     time.Now,
	}
}

// Acquire reports whether the provider is usable and returns the
// sequence number to pass back to MarkFailure or MarkSuccess.
func (h *ProviderHealth) Acquire(name string) (seq uint64, available bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.state(name)
	if h.now().Before(s.cooldownUntil) {
		return s.seq, false
	}
	return s.seq, true
}

// MarkFailure records a transient failure, doubling the cooldown up to
// the cap. Returns false when the sequence is stale and nothing was
// recorded.
func (h *ProviderHealth) MarkFailure(name string, seq uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.state(name)
	if s.seq != seq {
		return false
	}
	s.seq++
	s.failures++

	cooldown := h.initial << (s.failures - 1)
	if cooldown > h.max || cooldown <= 0 {
		cooldown = h.max
	}
	s.cooldownUntil = h.now().Add(cooldown)
	return true
}

// MarkSuccess resets the provider's failure state.
func (h *ProviderHealth) MarkSuccess(name string, seq uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.state(name)
	if s.seq != seq {
		return false
	}
	s.seq++
	s.failures = 0
	s.cooldownUntil = time.Time{}
	return true
}

// Failures returns the consecutive failure count for a provider.
func (h *ProviderHealth) Failures(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state(name).failures
}

// InCooldown reports whether the provider is currently cooling down.
func (h *ProviderHealth) InCooldown(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now().Before(h.state(name).cooldownUntil)
}

func (h *ProviderHealth) state(name string) *healthState {
	s, ok := h.states[name]
	if !ok {
		s = &healthState{}
		h.states[name] = s
	}
	return s
}
