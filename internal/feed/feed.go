// Package feed keeps the events pushed toward the UI in a bounded in-memory
// ring and fans them out to live subscribers.
//
// The bridge emits into a Feed; the desktop shell subscribes and forwards to
// the webview, and a page that (re)loads late replays Recent to catch up.
// Nothing is written to disk.
package feed

import (
	"sync"
	"time"
)

const (
	defaultCapacity = 500
	subBuffer       = 100
)

// Event is one named notification with its payload.
type Event struct {
	Seq     int64     `json:"seq"`
	Name    string    `json:"name"`
	Payload any       `json:"payload"`
	Time    time.Time `json:"time"`
}

// Feed is a fixed-size ring of events with subscriber notification.
type Feed struct {
	mu     sync.Mutex
	events []Event
	head   int
	count  int
	seq    int64
	subs   []chan Event
	closed bool
}

// New creates a feed retaining the last capacity events. A capacity <= 0
// selects the default.
func New(capacity int) *Feed {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Feed{events: make([]Event, capacity)}
}

// Emit appends an event. It satisfies bridge.Sink.
func (f *Feed) Emit(name string, payload any) {
	f.Append(name, payload)
}

// Append stores an event, notifies subscribers and returns its seq.
// Subscribers whose buffer is full miss the event; it stays in the ring.
func (f *Feed) Append(name string, payload any) int64 {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return 0
	}
	f.seq++
	ev := Event{Seq: f.seq, Name: name, Payload: payload, Time: time.Now()}

	capacity := len(f.events)
	if f.count >= capacity {
		f.head = (f.head + 1) % capacity
	} else {
		f.count++
	}
	f.events[(f.head+f.count-1)%capacity] = ev

	// Notify under the lock; unsubscribe closes channels while holding it.
	for _, ch := range f.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	f.mu.Unlock()
	return ev.Seq
}

// Recent returns the last n events, oldest first. n <= 0 returns all.
func (f *Feed) Recent(n int) []Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n <= 0 || n > f.count {
		n = f.count
	}
	out := make([]Event, n)
	start := f.count - n
	for i := 0; i < n; i++ {
		out[i] = f.events[(f.head+start+i)%len(f.events)]
	}
	return out
}

// Subscribe returns a channel receiving every event appended after the
// call, and a function to unsubscribe. The channel is closed on
// unsubscribe or Close.
func (f *Feed) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subBuffer)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	f.subs = append(f.subs, ch)
	f.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			for i, s := range f.subs {
				if s == ch {
					f.subs = append(f.subs[:i], f.subs[i+1:]...)
					close(ch)
					break
				}
			}
		})
	}
	return ch, unsub
}

// Close closes every subscriber channel. Later appends are ignored.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for _, ch := range f.subs {
		close(ch)
	}
	f.subs = nil
}
