package session

import (
	"log/slog"
	"sync"
	"time"

	"foodstreet/pkg/logging"
	"foodstreet/pkg/model"
)

// broadcaster fans events out to subscribers. A subscriber that is not keeping up
// misses events rather than stalling the controller.
type broadcaster struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan model.Event
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan model.Event)}
}

func (b *broadcaster) subscribe(buffer int) (<-chan model.Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan model.Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *broadcaster) publish(ev model.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	logging.LogEvent(&ev)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			slog.Debug("Session: subscriber lagging, event dropped", "subscriber", id, "type", ev.Type)
		}
	}
}

func (b *broadcaster) count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
