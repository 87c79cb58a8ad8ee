package events

import (
	"context"
	"strconv"
	"sync"
	"time"

	"fundflow/core/types"
)

// DefaultHistoryLimit bounds the replay buffer kept by a Broadcaster.
const DefaultHistoryLimit = 2048

const subscriberBuffer = 32

// Record is a sequenced event as delivered to subscribers.
type Record struct {
	Sequence   uint64            `json:"sequence"`
	Cursor     string            `json:"cursor"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Timestamp  int64             `json:"timestamp"`
}

func (r Record) clone() Record {
	out := r
	if r.Attributes != nil {
		out.Attributes = make(map[string]string, len(r.Attributes))
		for k, v := range r.Attributes {
			out.Attributes[k] = v
		}
	}
	return out
}

// Broadcaster is an Emitter that assigns sequence numbers, keeps a bounded
// history for replay and fans events out to subscribers. Slow subscribers
// miss events rather than block emitters.
type Broadcaster struct {
	mu      sync.Mutex
	limit   int
	seq     uint64
	nextID  uint64
	history []Record
	subs    map[uint64]chan Record
	nowFn   func() time.Time
}

// NewBroadcaster returns a broadcaster retaining up to limit events. A
// non-positive limit selects DefaultHistoryLimit.
func NewBroadcaster(limit int) *Broadcaster {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Broadcaster{
		limit: limit,
		subs:  make(map[uint64]chan Record),
		nowFn: time.Now,
	}
}

// SetNowFunc overrides the clock used to timestamp records.
func (b *Broadcaster) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	b.mu.Lock()
	b.nowFn = now
	b.mu.Unlock()
}

// Emit implements Emitter.
func (b *Broadcaster) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	var body *types.Event
	if payload, ok := evt.(Payload); ok {
		body = payload.Event()
	}
	if body == nil {
		body = &types.Event{Type: evt.EventType()}
	}
	body = body.Clone()

	b.mu.Lock()
	b.seq++
	rec := Record{
		Sequence:   b.seq,
		Cursor:     strconv.FormatUint(b.seq, 10),
		Type:       body.Type,
		Attributes: body.Attributes,
		Timestamp:  b.nowFn().Unix(),
	}
	b.history = append(b.history, rec)
	if len(b.history) > b.limit {
		excess := len(b.history) - b.limit
		trimmed := make([]Record, b.limit)
		copy(trimmed, b.history[excess:])
		b.history = trimmed
	}
	// Sends stay under the lock so cancel cannot close a channel mid-send.
	for _, ch := range b.subs {
		select {
		case ch <- rec.clone():
		default:
		}
	}
	b.mu.Unlock()
}

// Subscribe registers a subscriber and returns its channel, a cancel func and
// the retained events with a sequence greater than since. The subscription
// ends when ctx is done or cancel is called.
func (b *Broadcaster) Subscribe(ctx context.Context, since uint64) (<-chan Record, func(), []Record) {
	updates := make(chan Record, subscriberBuffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = updates
	backlog := make([]Record, 0, len(b.history))
	for _, rec := range b.history {
		if rec.Sequence > since {
			backlog = append(backlog, rec.clone())
		}
	}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
			b.mu.Unlock()
		})
	}
	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}
	return updates, cancel, backlog
}

// History returns a copy of the retained events.
func (b *Broadcaster) History() []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Record, len(b.history))
	for i, rec := range b.history {
		out[i] = rec.clone()
	}
	return out
}
