package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"cold-outreach-go/internal/events"
)

// EventsHandler streams engine events to the UI over server-sent events.
type EventsHandler struct {
	emitter *events.Emitter
}

func NewEventsHandler(emitter *events.Emitter) *EventsHandler {
	return &EventsHandler{emitter: emitter}
}

// Stream subscribes the client and forwards every event until it
// disconnects.
func (h *EventsHandler) Stream(c *gin.Context) {
	ch, cancel := h.emitter.Subscribe()
	defer cancel()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, ev.Payload)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
