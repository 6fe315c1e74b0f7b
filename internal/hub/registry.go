// Package hub owns the live set of supervisor connections and fans
// classified transcript events out to them.
package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/callpulse/hub/internal/event"
	"github.com/callpulse/hub/internal/metrics"
)

type Options struct {
	// SendBuffer bounds each member's outbound queue. A member whose queue
	// is full when an event arrives is evicted.
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

func DefaultOptions() Options {
	return Options{
		SendBuffer:   64,
		WriteTimeout: 5 * time.Second,
		PingInterval: 30 * time.Second,
	}
}

// Registry is the set of registered supervisor connections. All access to
// the set goes through its methods; enqueueing happens under the read lock
// and queue closure under the write lock, so a member being removed never
// receives a send on a closed queue.
type Registry struct {
	mu      sync.RWMutex
	members map[*Member]struct{}
	opts    Options
}

func NewRegistry(opts Options) *Registry {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultOptions().SendBuffer
	}
	return &Registry{
		members: make(map[*Member]struct{}),
		opts:    opts,
	}
}

// Register adds conn to the member set and starts its write pump. It never
// rejects a connection.
func (r *Registry) Register(conn Conn) *Member {
	m := newMember(r, conn)

	r.mu.Lock()
	r.members[m] = struct{}{}
	r.mu.Unlock()
	metrics.ConnectedSupervisors.Inc()

	// The pump may remove m on its first write, so it starts only once m
	// is in the set.
	go m.writePump()
	return m
}

// Deregister removes m. Removing an absent member is a no-op.
func (r *Registry) Deregister(m *Member) {
	r.remove(m, "")
}

func (r *Registry) remove(m *Member, reason string) bool {
	r.mu.Lock()
	_, ok := r.members[m]
	if ok {
		delete(r.members, m)
		close(m.send)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	metrics.ConnectedSupervisors.Dec()
	if reason != "" {
		metrics.EvictedMembersTotal.WithLabelValues(reason).Inc()
		slog.Warn("Supervisor evicted", "supervisor_id", m.ID, "reason", reason)
	}
	return true
}

// Broadcast queues e for every member and returns how many accepted it.
// Members that cannot accept are collected during the pass and removed once
// it completes; delivery to the others is unaffected.
func (r *Registry) Broadcast(e event.Event) int {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("broadcast marshal error", "error", err)
		return 0
	}

	var failed []*Member
	delivered := 0

	r.mu.RLock()
	for m := range r.members {
		select {
		case m.send <- data:
			delivered++
		default:
			failed = append(failed, m)
		}
	}
	r.mu.RUnlock()

	for _, m := range failed {
		r.remove(m, "queue_full")
	}

	metrics.BroadcastsTotal.WithLabelValues(string(e.Type)).Inc()
	metrics.DeliveriesTotal.Add(float64(delivered))
	return delivered
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// CloseAll removes every member, closing their connections after a normal
// close frame. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	n := len(r.members)
	for m := range r.members {
		delete(r.members, m)
		close(m.send)
	}
	r.mu.Unlock()

	metrics.ConnectedSupervisors.Sub(float64(n))
	slog.Info("Registry closed", "disconnected_supervisors", n)
}
