/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package progress

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultHeartbeatInterval keeps idle streaming connections from being reaped.
const DefaultHeartbeatInterval = 30 * time.Second

var (
	droppedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docscore_progress_dropped_events_total",
			Help: "Progress events published while nobody was subscribed",
		},
		[]string{"type"},
	)
	activeSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docscore_progress_subscribers",
			Help: "Currently registered progress subscribers",
		},
	)
)

// Relay fans progress events out to the subscribers of each evaluation.
// Publishing never blocks on a missing audience: with no subscribers the
// event is dropped. A Relay is safe for concurrent use.
type Relay struct {
	heartbeat time.Duration
	now       func() time.Time

	mu       sync.RWMutex
	subs     map[string][]*Handle
	inflight map[string]chan struct{}
	closed   bool
	wg       sync.WaitGroup
}

// Option configures a Relay.
type Option func(*Relay)

// WithHeartbeatInterval overrides DefaultHeartbeatInterval.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.heartbeat = d
		}
	}
}

// WithClock sets the clock used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(r *Relay) {
		r.now = now
	}
}

// New creates an empty Relay.
func New(opts ...Option) *Relay {
	r := &Relay{
		heartbeat: DefaultHeartbeatInterval,
		now:       time.Now,
		subs:      make(map[string][]*Handle),
		inflight:  make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle identifies one subscription.
type Handle struct {
	relay        *Relay
	evaluationID string
	fn           func(Event)
	active       atomic.Bool
	// deliver serializes callbacks so heartbeats never overlap other events.
	deliver sync.Mutex
}

// EvaluationID returns the evaluation the handle is subscribed to.
func (h *Handle) EvaluationID() string {
	return h.evaluationID
}

// Subscribe registers fn for the events of evaluationID. fn runs on the
// publishing goroutine and must not block.
func (r *Relay) Subscribe(evaluationID string, fn func(Event)) *Handle {
	h := &Handle{relay: r, evaluationID: evaluationID, fn: fn}
	h.active.Store(true)

	r.mu.Lock()
	r.subs[evaluationID] = append(r.subs[evaluationID], h)
	r.mu.Unlock()

	activeSubscribers.Inc()
	return h
}

// Unsubscribe removes h. It is a no-op for a nil handle or one that was
// already removed, and may be called from inside a callback.
func (r *Relay) Unsubscribe(h *Handle) {
	if h == nil || h.relay != r || !h.active.CompareAndSwap(true, false) {
		return
	}

	r.mu.Lock()
	subs := slices.DeleteFunc(r.subs[h.evaluationID], func(s *Handle) bool { return s == h })
	if len(subs) == 0 {
		delete(r.subs, h.evaluationID)
	} else {
		r.subs[h.evaluationID] = subs
	}
	r.mu.Unlock()

	activeSubscribers.Dec()
}

// Subscribers returns how many subscribers evaluationID has.
func (r *Relay) Subscribers(evaluationID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[evaluationID])
}

// Publish delivers ev to the current subscribers of evaluationID, in
// subscription order. Subscribers removed while the publish is running are
// skipped.
func (r *Relay) Publish(evaluationID string, ev Event) {
	ev.EvaluationID = evaluationID
	if ev.Time.IsZero() {
		ev.Time = r.now()
	}

	r.mu.RLock()
	snapshot := slices.Clone(r.subs[evaluationID])
	r.mu.RUnlock()

	if len(snapshot) == 0 {
		droppedEvents.WithLabelValues(string(ev.Type)).Inc()
		return
	}
	for _, h := range snapshot {
		h.deliver.Lock()
		if h.active.Load() {
			h.fn(ev)
		}
		h.deliver.Unlock()
	}
}

// Begin marks evaluationID as in flight. Until End is called a heartbeat is
// published every interval, but only while someone is subscribed.
func (r *Relay) Begin(evaluationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if _, ok := r.inflight[evaluationID]; ok {
		return
	}
	stop := make(chan struct{})
	r.inflight[evaluationID] = stop

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if r.Subscribers(evaluationID) > 0 {
					r.Publish(evaluationID, Event{Type: TypeHeartbeat})
				}
			}
		}
	}()
}

// End stops the heartbeat for evaluationID. It is idempotent.
func (r *Relay) End(evaluationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stop, ok := r.inflight[evaluationID]; ok {
		close(stop)
		delete(r.inflight, evaluationID)
	}
}

// Close stops every heartbeat and waits for them to exit.
func (r *Relay) Close() {
	r.mu.Lock()
	r.closed = true
	for id, stop := range r.inflight {
		close(stop)
		delete(r.inflight, id)
	}
	r.mu.Unlock()
	r.wg.Wait()
}
