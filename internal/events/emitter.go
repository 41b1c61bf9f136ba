package events

import (
	"sync"
)

// Event names pushed to observers.
const (
	QueueStateChange       = "queue:state-change"
	QueueSending           = "queue:sending"
	QueueSent              = "queue:sent"
	QueueSendFailed        = "queue:send-failed"
	QueueWaiting           = "queue:waiting"
	QueueCountdown         = "queue:countdown"
	QueueCompleted         = "queue:completed"
	QueueDailyLimitReached = "queue:daily-limit-reached"
	QueueRateLimited       = "queue:rate-limited"
	QueueError             = "queue:error"
	DraftProgress          = "campaigns:draft-progress"
	InboxNewReplies        = "inbox:new-replies"
)

// Event is a named notification with an arbitrary payload.
type Event struct {
	Name    string `json:"name"`
	Payload any    `json:"payload"`
}

// Emitter fans events out to subscribers. Emitting is fire-and-forget: a
// broadcast to zero listeners is a no-op, and a subscriber that stops
// draining loses events rather than blocking the core.
type Emitter struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// NewEmitter creates an emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{subs: make(map[int]chan Event)}
}

// Subscribe registers an observer. The returned cancel function removes the
// subscription and closes the channel.
func (e *Emitter) Subscribe() (<-chan Event, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.next
	e.next++
	ch := make(chan Event, 64)
	e.subs[id] = ch

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if sub, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Emit broadcasts an event to all subscribers without blocking.
func (e *Emitter) Emit(name string, payload any) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, ch := range e.subs {
		select {
		case ch <- Event{Name: name, Payload: payload}:
		default:
		}
	}
}

// SubscriberCount reports the number of attached observers.
func (e *Emitter) SubscriberCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs)
}
