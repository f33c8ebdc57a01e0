package api

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"hourlysheet/domain/activity"
	"hourlysheet/internal/logging"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	clientBuffer    = 10
	broadcastBuffer = 100
	pingInterval    = 30 * time.Second
)

// activityClient is one connected event stream. An empty action receives
// every entry.
type activityClient struct {
	action activity.Action
	ch     chan activity.Entry
}

// ActivityHub streams audit entries to Server-Sent Events clients
type ActivityHub struct {
	clients   map[chan activity.Entry]activity.Action
	clientsMu sync.RWMutex
	broadcast chan activity.Entry
	done      <-chan struct{}
	log       *zap.SugaredLogger
}

// NewActivityHub starts a hub that runs until ctx is cancelled
func NewActivityHub(ctx context.Context, log *zap.SugaredLogger) *ActivityHub {
	hub := &ActivityHub{
		clients:   make(map[chan activity.Entry]activity.Action),
		broadcast: make(chan activity.Entry, broadcastBuffer),
		done:      ctx.Done(),
		log:       logging.OrNop(log),
	}

	go hub.run()
	return hub
}

func (h *ActivityHub) run() {
	for {
		select {
		case entry := <-h.broadcast:
			h.clientsMu.RLock()
			for ch, action := range h.clients {
				if action != "" && action != entry.Action {
					continue
				}
				select {
				case ch <- entry:
				default:
					h.log.Warnw("event client is slow, dropping entry", "action", entry.Action)
				}
			}
			h.clientsMu.RUnlock()

		case <-h.done:
			return
		}
	}
}

// Publish queues an entry for every matching client. It never blocks.
func (h *ActivityHub) Publish(entry activity.Entry) {
	select {
	case h.broadcast <- entry:
	default:
		h.log.Warnw("broadcast queue full, dropping entry", "action", entry.Action)
	}
}

func (h *ActivityHub) subscribe(action activity.Action) activityClient {
	client := activityClient{action: action, ch: make(chan activity.Entry, clientBuffer)}

	h.clientsMu.Lock()
	h.clients[client.ch] = action
	total := len(h.clients)
	h.clientsMu.Unlock()

	h.log.Debugw("event client connected", "action", action, "clients", total)
	return client
}

func (h *ActivityHub) unsubscribe(client activityClient) {
	h.clientsMu.Lock()
	delete(h.clients, client.ch)
	total := len(h.clients)
	h.clientsMu.Unlock()

	h.log.Debugw("event client disconnected", "clients", total)
}

// ClientCount returns the number of connected streams
func (h *ActivityHub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// HandleSSE streams entries as "activity" events, optionally narrowed by
// the action query parameter
func (h *ActivityHub) HandleSSE(c *gin.Context) {
	client := h.subscribe(activity.Action(c.Query("action")))
	defer h.unsubscribe(client)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case entry := <-client.ch:
			c.SSEvent("activity", entry)
			return true

		case <-time.After(pingInterval):
			c.SSEvent("ping", gin.H{"timestamp": time.Now().UTC().Format(time.RFC3339)})
			return true

		case <-ctx.Done():
			return false

		case <-h.done:
			return false
		}
	})
}
