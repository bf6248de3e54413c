// internal/handlers/hub.go
package handlers

import (
	"sync"

	"github.com/jason-s-yu/tycoon/internal/game"
)

// watcherBuffer is how many events a slow watcher may lag before it misses some.
const watcherBuffer = 64

// Hub fans orchestrator notifications out to the watchers of each game code.
type Hub struct {
	mu       sync.Mutex
	watchers map[string]map[chan game.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{watchers: make(map[string]map[chan game.Event]struct{})}
}

// Sink returns the notification sink for code. next, if set, also receives
// every event.
func (h *Hub) Sink(code string, next func(game.Event)) func(game.Event) {
	return func(ev game.Event) {
		if next != nil {
			next(ev)
		}
		h.publish(code, ev)
	}
}

func (h *Hub) publish(code string, ev game.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.watchers[code] {
		select {
		case ch <- ev:
		default:
			// Drop rather than stall the orchestrator.
		}
	}
}

// Watch registers a watcher for code. The returned func unregisters it.
func (h *Hub) Watch(code string) (<-chan game.Event, func()) {
	ch := make(chan game.Event, watcherBuffer)
	h.mu.Lock()
	if h.watchers[code] == nil {
		h.watchers[code] = make(map[chan game.Event]struct{})
	}
	h.watchers[code][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.watchers[code], ch)
			if len(h.watchers[code]) == 0 {
				delete(h.watchers, code)
			}
			h.mu.Unlock()
		})
	}
}

// Watchers counts the watchers of code.
func (h *Hub) Watchers(code string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchers[code])
}
