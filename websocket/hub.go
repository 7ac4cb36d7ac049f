package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Event kinds pushed to car owners
const (
	EventBookingCreated  = "booking_created"
	EventBookingCanceled = "booking_canceled"
	EventBookingModified = "booking_modified"
)

// Event is a booking lifecycle notification
type Event struct {
	Type      string      `json:"type"`
	BookingID string      `json:"booking_id,omitempty"`
	CarID     uint        `json:"car_id,omitempty"`
	OwnerID   uint        `json:"-"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// Hub manages all WebSocket connections. Clients are keyed by user ID; a
// reconnect replaces the previous connection for that user.
type Hub struct {
	// Registered clients
	Clients map[uint]*Client

	// Outbound booking events
	Broadcast chan *Event

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[uint]*Client),
		Broadcast:  make(chan *Event, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if old, ok := h.Clients[client.UserID]; ok {
				close(old.Send)
			}
			h.Clients[client.UserID] = client
			h.mu.Unlock()
			log.Printf("🔌 Client registered: user=%d", client.UserID)

		case client := <-h.Unregister:
			h.mu.Lock()
			if current, ok := h.Clients[client.UserID]; ok && current == client {
				delete(h.Clients, client.UserID)
				close(client.Send)
			}
			h.mu.Unlock()
			log.Printf("🔌 Client unregistered: user=%d", client.UserID)

		case event := <-h.Broadcast:
			h.deliver(event)
		}
	}
}

// deliver sends an event to the targeted owner only. Events for owners
// without an open connection are dropped; push is best-effort.
func (h *Hub) deliver(event *Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("❌ Failed to marshal event: %v", err)
		return
	}

	h.mu.RLock()
	client, ok := h.Clients[event.OwnerID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case client.Send <- payload:
	default:
		log.Printf("⚠️ Send buffer full for user %d, dropping %s", event.OwnerID, event.Type)
	}
}

// NotifyBookingEvent queues a booking event for the car owner. Never blocks
// the request path.
func (h *Hub) NotifyBookingEvent(eventType string, ownerID uint, bookingID string, carID uint, data interface{}) {
	event := &Event{
		Type:      eventType,
		BookingID: bookingID,
		CarID:     carID,
		OwnerID:   ownerID,
		Timestamp: time.Now(),
		Data:      data,
	}

	select {
	case h.Broadcast <- event:
	default:
		log.Printf("⚠️ Event channel full, dropping %s for booking %s", eventType, bookingID)
	}
}
