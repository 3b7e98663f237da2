package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/danielandresolateseguel/server1/internal/event"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// roomEvent routes an event to the tabs of one storefront
type roomEvent struct {
	StorefrontID string
	Event        Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by storefront ID
	rooms map[string]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *roomEvent

	// Mutex for thread-safe room access
	mu sync.RWMutex

	// Closed when Run returns
	done chan struct{}

	// Called from Run when the last tab of a storefront leaves
	onEmpty func(storefrontID string)

	log *zap.Logger
}

// NewHub creates a new Hub instance
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomEvent, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// OnRoomEmpty sets a callback run when the last tab of a storefront
// disconnects. Must be called before Run.
func (h *Hub) OnRoomEmpty(fn func(storefrontID string)) {
	h.onEmpty = fn
}

// Run starts the hub's main loop and returns when ctx is done.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.storefrontID] == nil {
				h.rooms[client.storefrontID] = make(map[*Client]bool)
			}
			h.rooms[client.storefrontID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			emptied := false
			h.mu.Lock()
			if clients, ok := h.rooms[client.storefrontID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					// Clean up empty rooms
					if len(clients) == 0 {
						delete(h.rooms, client.storefrontID)
						emptied = true
					}
				}
			}
			h.mu.Unlock()
			if emptied {
				h.roomEmptied(client.storefrontID)
			}

		case ev := <-h.broadcast:
			emptied := false
			h.mu.Lock()
			clients := h.rooms[ev.StorefrontID]

			// Marshal event to JSON once
			message, err := json.Marshal(ev.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					close(client.send)
					delete(h.rooms[ev.StorefrontID], client)
					if len(h.rooms[ev.StorefrontID]) == 0 {
						delete(h.rooms, ev.StorefrontID)
						emptied = true
					}
				}
			}
			h.mu.Unlock()
			if emptied {
				h.roomEmptied(ev.StorefrontID)
			}
		}
	}
}

// Register adds a client to its storefront's room. It is a no-op once the
// hub has stopped.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Clients returns how many tabs are connected to storefrontID.
func (h *Hub) Clients(storefrontID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[storefrontID])
}

func (h *Hub) roomEmptied(storefrontID string) {
	if h.onEmpty != nil {
		h.onEmpty(storefrontID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, clients := range h.rooms {
		for client := range clients {
			close(client.send)
		}
		delete(h.rooms, id)
	}
}

// BroadcastToStorefront sends an event to every tab of one storefront.
// When the hub is backed up the event is dropped rather than blocking the
// caller; the page catches up with the next snapshot.
func (h *Hub) BroadcastToStorefront(storefrontID string, ev Event) {
	select {
	case h.broadcast <- &roomEvent{StorefrontID: storefrontID, Event: ev}:
	default:
		h.log.Warn("websocket broadcast dropped",
			zap.String("storefront", storefrontID),
			zap.String("type", ev.Type),
		)
	}
}

// Publisher returns an event.Publisher that broadcasts to storefrontID.
func (h *Hub) Publisher(storefrontID string) event.Publisher {
	return event.PublisherFunc(func(e event.Event) {
		ev := Event{Type: e.Type}
		if e.Payload != nil {
			raw, err := json.Marshal(e.Payload)
			if err != nil {
				h.log.Error("encoding event payload", zap.String("type", e.Type), zap.Error(err))
				return
			}
			ev.Payload = raw
		}
		h.BroadcastToStorefront(storefrontID, ev)
	})
}
