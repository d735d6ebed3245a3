/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"chainguard.dev/docscore/evaluations"
	"chainguard.dev/docscore/progress"
	"github.com/chainguard-dev/clog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var droppedClientEvents = promauto.NewCounter(prometheus.CounterOpts{
	Name: "docscore_stream_dropped_events_total",
	Help: "Progress events dropped because a stream client fell behind",
})

// clientQueue is a bounded per-client queue. Non-terminal events are
// dropped when it is full; terminal events evict the oldest queued event.
type clientQueue struct {
	ch chan progress.Event
}

func (q clientQueue) push(ev progress.Event) {
	for {
		select {
		case q.ch <- ev:
			return
		default:
		}
		if !ev.Type.Terminal() {
			droppedClientEvents.Inc()
			return
		}
		select {
		case <-q.ch:
			droppedClientEvents.Inc()
		default:
		}
	}
}

// stream serves the progress of one evaluation as Server-Sent Events. It
// subscribes before reading the current record, so nothing published after
// the snapshot is missed; chunks published earlier are not replayed.
func (s *Server) stream(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	log := clog.FromContext(ctx).With("evaluation_id", id)

	q := clientQueue{ch: make(chan progress.Event, s.buffer)}
	h := s.relay.Subscribe(id, q.push)
	defer s.relay.Unsubscribe(h)

	rec, err := s.svc.Status(ctx, id)
	if err != nil {
		s.lookupError(c, err)
		return
	}

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	send := func(ev progress.Event) bool {
		if ev.Time.IsZero() {
			ev.Time = time.Now()
		}
		data, err := json.Marshal(ev)
		if err != nil {
			log.With("error", err).Warn("Failed to encode event")
			return true
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
			return false
		}
		w.Flush()
		return true
	}

	if !send(progress.Event{Type: progress.TypeConnected, EvaluationID: id}) {
		return
	}
	if !send(progress.Event{Type: progress.TypeUpdate, EvaluationID: id, Data: rec, Score: rec.OverallScore}) {
		return
	}
	if rec.Status.Terminal() {
		send(terminalEvent(rec))
		return
	}

	for {
		select {
		case ev := <-q.ch:
			if !send(ev) || ev.Type.Terminal() {
				return
			}
		case <-ctx.Done():
			log.Info("Stream client disconnected")
			return
		}
	}
}

func terminalEvent(rec *evaluations.Record) progress.Event {
	ev := progress.Event{Type: progress.TypeComplete, EvaluationID: rec.ID, Data: rec, Score: rec.OverallScore}
	if rec.Status == evaluations.StatusFailed {
		ev.Type = progress.TypeError
		ev.Message = rec.Error
	}
	return ev
}
