package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pandeptwidyaop/release-radar/internal/models"
)

const subscriberBuffer = 100

// EventBus fans registry events out to stream subscribers. Slow subscribers
// miss events rather than block publishers.
type EventBus struct {
	subs   map[string]chan models.AppEvent
	subsMu sync.RWMutex
}

// NewEventBus creates an empty EventBus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[string]chan models.AppEvent)}
}

// Subscribe registers a new subscriber and returns its id and channel.
func (b *EventBus) Subscribe() (string, <-chan models.AppEvent) {
	id := uuid.New().String()
	ch := make(chan models.AppEvent, subscriberBuffer)

	b.subsMu.Lock()
	b.subs[id] = ch
	b.subsMu.Unlock()

	return id, ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *EventBus) Unsubscribe(id string) {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()

	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish delivers an event to every subscriber without blocking.
func (b *EventBus) Publish(eventType models.EventType, app *models.App) {
	if b == nil {
		return
	}

	event := models.AppEvent{
		At:   time.Now(),
		App:  app,
		Type: eventType,
		Key:  app.Key(),
	}

	b.subsMu.RLock()
	defer b.subsMu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribers returns the number of active subscribers.
func (b *EventBus) Subscribers() int {
	b.subsMu.RLock()
	defer b.subsMu.RUnlock()
	return len(b.subs)
}
