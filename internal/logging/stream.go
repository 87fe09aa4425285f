package logging

import (
	"context"
	"sync"
	"time"
)

// DefaultStreamCapacity is the ring size used when NewStreamHub gets zero.
const DefaultStreamCapacity = 512

// LogEvent is one structured log line as served by the control API.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	RunID         string            `json:"run_id,omitempty"`
	Language      string            `json:"language,omitempty"`
	Stage         string            `json:"stage,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	Details       []DetailField     `json:"details,omitempty"`
}

// DetailField mirrors the console handler's info bullet lines.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// StreamHub keeps the most recent log events in a ring and lets readers
// poll or block for newer ones by sequence number. Sequences start at 1 and
// never repeat within a process.
type StreamHub struct {
	mu      sync.Mutex
	ring    []LogEvent
	start   int // index of the oldest event
	count   int
	lastSeq uint64
	changed chan struct{} // closed and replaced on every publish
}

// NewStreamHub returns a hub retaining up to capacity events.
func NewStreamHub(capacity int) *StreamHub {
	if capacity <= 0 {
		capacity = DefaultStreamCapacity
	}
	return &StreamHub{
		ring:    make([]LogEvent, capacity),
		changed: make(chan struct{}),
	}
}

// Publish stamps evt with the next sequence (and a timestamp when missing)
// and wakes blocked readers. The oldest event is dropped once the ring is
// full.
func (h *StreamHub) Publish(evt LogEvent) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastSeq++
	evt.Sequence = h.lastSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if h.count < len(h.ring) {
		h.ring[(h.start+h.count)%len(h.ring)] = evt
		h.count++
	} else {
		h.ring[h.start] = evt
		h.start = (h.start + 1) % len(h.ring)
	}
	close(h.changed)
	h.changed = make(chan struct{})
}

// Fetch returns up to limit buffered events with a sequence above since,
// oldest first, and the cursor to pass as since on the next call. With wait
// set and nothing newer buffered, Fetch blocks until an event arrives or ctx
// ends.
func (h *StreamHub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]LogEvent, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		h.mu.Lock()
		events, next := h.afterLocked(since, h.clamp(limit))
		changed := h.changed
		h.mu.Unlock()

		if len(events) > 0 || !wait {
			return events, next, nil
		}
		select {
		case <-ctx.Done():
			return nil, next, ctx.Err()
		case <-changed:
		}
	}
}

// Tail returns the newest limit events and the latest sequence.
func (h *StreamHub) Tail(limit int) ([]LogEvent, uint64) {
	if h == nil {
		return nil, 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	n := min(h.clamp(limit), h.count)
	out := make([]LogEvent, 0, n)
	for i := h.count - n; i < h.count; i++ {
		out = append(out, h.at(i))
	}
	return out, h.lastSeq
}

// FirstSequence reports the oldest sequence still buffered, or the latest
// sequence when the ring is empty.
func (h *StreamHub) FirstSequence() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 {
		return h.lastSeq
	}
	return h.at(0).Sequence
}

func (h *StreamHub) clamp(limit int) int {
	if limit <= 0 || limit > len(h.ring) {
		return len(h.ring)
	}
	return limit
}

// at returns the i-th oldest buffered event.
func (h *StreamHub) at(i int) LogEvent {
	return h.ring[(h.start+i)%len(h.ring)]
}

func (h *StreamHub) afterLocked(since uint64, limit int) ([]LogEvent, uint64) {
	if h.count == 0 || h.lastSeq <= since {
		return nil, h.lastSeq
	}
	// Sequences in the ring are contiguous, so the first match is computed.
	first := h.at(0).Sequence
	skip := 0
	if since >= first {
		skip = int(since - first + 1)
	}
	n := min(limit, h.count-skip)
	out := make([]LogEvent, 0, n)
	for i := skip; i < skip+n; i++ {
		out = append(out, h.at(i))
	}
	return out, out[len(out)-1].Sequence
}
