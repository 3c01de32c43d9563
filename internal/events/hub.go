// Package events is the in-process feed of job progress. The serve
// daemon publishes lifecycle events here; the host bridge and the watch
// TUI consume them.
package events

import (
	"sync"
	"time"
)

// Event types published by the workflow controller.
const (
	TypeJobCreated   = "job.created"
	TypeJobCompleted = "job.completed"
	TypeTargetState  = "target.state"
)

// JobPayload accompanies job.* events.
type JobPayload struct {
	JobID   string `json:"job_id"`
	Action  string `json:"action"`
	Targets int    `json:"targets"`
	Status  string `json:"status,omitempty"`
}

// TargetPayload accompanies target.state events.
type TargetPayload struct {
	JobID  string `json:"job_id"`
	Target string `json:"target"`
	State  string `json:"state"`
	Error  string `json:"error,omitempty"`
}

// Event is one progress notification. Exactly one of Job or Target is
// set, matching Type.
type Event struct {
	ID     int64          `json:"id"`
	Type   string         `json:"type"`
	At     time.Time      `json:"at"`
	Job    *JobPayload    `json:"job,omitempty"`
	Target *TargetPayload `json:"target,omitempty"`
}

type subscriber struct {
	ch chan Event
}

// Hub fans events out to live subscribers and keeps a bounded replay
// window so late clients can catch up by last-seen ID.
type Hub struct {
	mu     sync.Mutex
	lastID int64
	window []Event
	keep   int
	subs   map[*subscriber]struct{}
}

func NewHub(keep int) *Hub {
	if keep <= 0 {
		keep = 100
	}
	return &Hub{
		window: make([]Event, 0, keep),
		keep:   keep,
		subs:   make(map[*subscriber]struct{}),
	}
}

// PublishJob emits a job lifecycle event.
func (h *Hub) PublishJob(eventType string, p JobPayload) {
	h.publish(Event{Type: eventType, Job: &p})
}

// PublishTarget emits a target state transition.
func (h *Hub) PublishTarget(p TargetPayload) {
	h.publish(Event{Type: TypeTargetState, Target: &p})
}

func (h *Hub) publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastID++
	ev.ID = h.lastID
	ev.At = time.Now().UTC()

	h.window = append(h.window, ev)
	if len(h.window) > h.keep {
		n := copy(h.window, h.window[len(h.window)-h.keep:])
		h.window = h.window[:n]
	}

	for sub := range h.subs {
		// A slow subscriber loses events rather than blocking jobs;
		// it recovers via SnapshotSince.
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// Subscribe registers a live feed. The returned cancel is idempotent
// and closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, 128)}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, sub)
			h.mu.Unlock()
			// No publisher can hold a reference anymore; closing
			// outside the lock is safe.
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// SnapshotSince returns retained events with ID > lastID, oldest-first.
func (h *Hub) SnapshotSince(lastID int64) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Event, 0, len(h.window))
	for _, ev := range h.window {
		if ev.ID > lastID {
			out = append(out, ev)
		}
	}
	return out
}
