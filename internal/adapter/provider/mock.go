package provider

import (
	"context"
	"sync"

	"nyaya/internal/port"
)

// ScriptedProvider returns canned responses in order. Used in tests to
// simulate rate limits, transient failures, and successes.
type ScriptedProvider struct {
	ProviderName string

	mu        sync.Mutex
	responses []ScriptedResponse
	calls     int
}

type ScriptedResponse struct {
	Text string
	Err  error
}

func NewScripted(name string, responses ...ScriptedResponse) *ScriptedProvider {
	return &ScriptedProvider{ProviderName: name, responses: responses}
}

func (p *ScriptedProvider) Name() string {
	return p.ProviderName
}

// Calls returns how many times Complete was invoked.
func (p *ScriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *ScriptedProvider) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.calls
	p.calls++
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	if idx < 0 {
		return "", nil
	}
	r := p.responses[idx]
	return r.Text, r.Err
}

var _ port.GenerationProvider = (*ScriptedProvider)(nil)
