package events

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type KeyCreatedEvent struct {
	KeyID     uuid.UUID `json:"key_id"`
	Name      string    `json:"name"`
	KeyPrefix string    `json:"key_prefix"`
}

type KeyRevokedEvent struct {
	KeyID uuid.UUID `json:"key_id"`
}

type ToolExecutedEvent struct {
	KeyID      uuid.UUID `json:"key_id"`
	ToolName   string    `json:"tool_name"`
	Success    bool      `json:"success"`
	DurationMs int       `json:"duration_ms"`
}

type Client struct {
	ID      string
	OwnerID uuid.UUID
	Send    chan []byte
}

// Hub broadcasts gateway events to the owning user's connected dashboards.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *OwnerMessage
	mu         sync.RWMutex
}

type OwnerMessage struct {
	OwnerID uuid.UUID
	Event   Event
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *OwnerMessage, 256),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			data, _ := json.Marshal(msg.Event)
			for _, client := range h.clients {
				if client.OwnerID == msg.OwnerID {
					select {
					case client.Send <- data:
					default:
						// Client buffer full, skip
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) BroadcastKeyCreated(ownerID, keyID uuid.UUID, name, keyPrefix string) {
	h.broadcast <- &OwnerMessage{
		OwnerID: ownerID,
		Event: Event{
			Type: "key_created",
			Data: KeyCreatedEvent{KeyID: keyID, Name: name, KeyPrefix: keyPrefix},
		},
	}
}

func (h *Hub) BroadcastKeyRevoked(ownerID, keyID uuid.UUID) {
	h.broadcast <- &OwnerMessage{
		OwnerID: ownerID,
		Event: Event{
			Type: "key_revoked",
			Data: KeyRevokedEvent{KeyID: keyID},
		},
	}
}

func (h *Hub) BroadcastToolExecuted(ownerID, keyID uuid.UUID, toolName string, success bool, durationMs int) {
	h.broadcast <- &OwnerMessage{
		OwnerID: ownerID,
		Event: Event{
			Type: "tool_executed",
			Data: ToolExecutedEvent{KeyID: keyID, ToolName: toolName, Success: success, DurationMs: durationMs},
		},
	}
}
