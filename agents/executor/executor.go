/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package executor

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"
)

// ProviderID names an LLM vendor.
type ProviderID string

const (
	Anthropic ProviderID = "anthropic"
	Google    ProviderID = "google"
	OpenAI    ProviderID = "openai"
)

// Providers returns every known provider identifier.
func Providers() []ProviderID {
	return []ProviderID{Anthropic, Google, OpenAI}
}

// ParseProviderID validates s against the known providers.
func ParseProviderID(s string) (ProviderID, bool) {
	id := ProviderID(strings.ToLower(strings.TrimSpace(s)))
	return id, slices.Contains(Providers(), id)
}

// Streamer delivers the text of one model response incrementally.
type Streamer interface {
	// Stream sends prompt (with an optional system instruction) and yields
	// text fragments in the order the provider produced them. A non-nil
	// error is always the final element. Iteration can be abandoned early;
	// the sequence is not resumable and a new call starts a new request.
	Stream(ctx context.Context, prompt, system string, opts ...CallOption) iter.Seq2[string, error]
}

// CallSettings is the resolved form of a call's options.
type CallSettings struct {
	// JSONOutput asks the provider for its native JSON response mode when it has one.
	JSONOutput bool
}

// CallOption adjusts a single Stream call.
type CallOption func(*CallSettings)

// WithJSONOutput requests a JSON-mode response.
func WithJSONOutput() CallOption {
	return func(s *CallSettings) {
		s.JSONOutput = true
	}
}

// ResolveCallOptions applies opts to a zero CallSettings.
func ResolveCallOptions(opts ...CallOption) CallSettings {
	var s CallSettings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Collect drains a stream into a single string, stopping at the first error.
func Collect(seq iter.Seq2[string, error]) (string, error) {
	var sb strings.Builder
	for chunk, err := range seq {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(chunk)
	}
	return sb.String(), nil
}

// Registry is the lookup table from provider identifier to adapter.
// Providers without credentials are simply never registered.
type Registry struct {
	mu        sync.RWMutex
	streamers map[ProviderID]Streamer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{streamers: make(map[ProviderID]Streamer)}
}

// Register installs s for id, replacing any previous adapter.
func (r *Registry) Register(id ProviderID, s Streamer) error {
	if _, ok := ParseProviderID(string(id)); !ok {
		return fmt.Errorf("unknown provider %q", id)
	}
	if s == nil {
		return fmt.Errorf("streamer for %q cannot be nil", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streamers[id] = s
	return nil
}

// Lookup returns the adapter for id, or a ConfigurationError when the
// provider is unknown or was not configured.
func (r *Registry) Lookup(id ProviderID) (Streamer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.streamers[id]
	if !ok {
		return nil, &ConfigurationError{Provider: id, Reason: "provider is not configured (missing credentials)"}
	}
	return s, nil
}

// Configured lists the registered providers in a stable order.
func (r *Registry) Configured() []ProviderID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ProviderID, 0, len(r.streamers))
	for _, id := range Providers() {
		if _, ok := r.streamers[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
