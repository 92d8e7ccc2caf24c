package realtime

import (
	"encoding/json"
	"sync"

	"news-social/domain/model"

	"github.com/gin-gonic/gin"
)

const subscriberBuffer = 16

// Hub fans post status events out to every connected SSE stream.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan model.PostStatusEvent]struct{}
}

func NewPostHub() *Hub {
	return &Hub{subs: make(map[chan model.PostStatusEvent]struct{})}
}

// Serve streams events until the client goes away.
func (h *Hub) Serve(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ch := make(chan model.PostStatusEvent, subscriberBuffer)
	h.add(ch)
	defer h.remove(ch)

	_, _ = c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case evt := <-ch:
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			_, _ = c.Writer.Write([]byte("event: post_status\ndata: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// Broadcast never blocks; slow subscribers miss events.
func (h *Hub) Broadcast(evt model.PostStatusEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) add(ch chan model.PostStatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[ch] = struct{}{}
}

func (h *Hub) remove(ch chan model.PostStatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, ch)
}
