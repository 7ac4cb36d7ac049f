package websocket

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestClient(userID uint) *Client {
	return &Client{UserID: userID, Send: make(chan []byte, 4)}
}

func TestBookingEventReachesOwnerOnly(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	owner := newTestClient(1)
	bystander := newTestClient(2)
	hub.Register <- owner
	hub.Register <- bystander

	hub.NotifyBookingEvent(EventBookingCanceled, 1, "b-1", 7, nil)

	select {
	case payload := <-owner.Send:
		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("failed to decode event: %v", err)
		}
		if event.Type != EventBookingCanceled || event.BookingID != "b-1" || event.CarID != 7 {
			t.Fatalf("unexpected event payload: %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatalf("owner never received the booking event")
	}

	select {
	case payload := <-bystander.Send:
		t.Fatalf("event leaked to another user: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventForDisconnectedOwnerIsDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	connected := newTestClient(2)
	hub.Register <- connected

	// owner 1 has no open connection; push is best-effort
	hub.NotifyBookingEvent(EventBookingCreated, 1, "b-1", 7, nil)

	select {
	case payload := <-connected.Send:
		t.Fatalf("event for an absent owner reached someone else: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReconnectReplacesClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	stale := newTestClient(1)
	hub.Register <- stale

	fresh := newTestClient(1)
	hub.Register <- fresh

	select {
	case _, open := <-stale.Send:
		if open {
			t.Fatalf("stale connection received data instead of being closed")
		}
	case <-time.After(time.Second):
		t.Fatalf("stale connection was never closed on reconnect")
	}

	hub.NotifyBookingEvent(EventBookingModified, 1, "b-1", 7, nil)

	select {
	case <-fresh.Send:
	case <-time.After(time.Second):
		t.Fatalf("replacement connection never received the event")
	}
}
