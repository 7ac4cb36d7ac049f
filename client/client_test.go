package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func seededManager(baseURL string, bookings ...Booking) *Manager {
	m := New(baseURL, Session{Email: "renter@example.com", Token: "test-token"})
	m.bookings = bookings
	return m
}

func confirmedBooking(id string, daily float64) Booking {
	return Normalize(Booking{
		ID:               id,
		UserEmail:        "renter@example.com",
		BookingDate:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		BookingDateValid: true,
		EndDate:          time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		EndDateValid:     true,
		TotalPrice:       daily * 3,
		Status:           StatusConfirmed,
		CarData:          CarData{CarModel: "Honda Civic", DailyRentalPrice: daily},
	})
}

func TestRefreshRequiresIdentity(t *testing.T) {
	m := New("http://localhost", Session{})

	if err := m.Refresh(context.Background()); !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}
}

func TestRefreshReplacesBookings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/my-bookings" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("email"); got != "renter@example.com" {
			t.Fatalf("unexpected email param %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Fatalf("unexpected auth header %q", got)
		}
		fmt.Fprint(w, `[
			{"_id":"b-1","bookingDate":"2024-06-01T00:00:00Z","endDate":"2024-06-03T00:00:00Z","totalPrice":150,"status":"confirmed","carData":{"carModel":"Toyota Corolla","dailyRentalPrice":50}},
			{"_id":"b-2","bookingDate":"bad","endDate":"","totalPrice":null,"status":""}
		]`)
	}))
	defer srv.Close()

	m := New(srv.URL, Session{Email: "renter@example.com", Token: "test-token"})

	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	got := m.Bookings()
	if len(got) != 2 {
		t.Fatalf("expected 2 bookings, got %d", len(got))
	}
	if got[0].Duration != 3 || got[0].TotalPrice != 150 {
		t.Fatalf("first booking derived wrong: %+v", got[0])
	}
	if got[1].TotalPrice != 0 || got[1].Status != StatusConfirmed || got[1].BookingDateValid {
		t.Fatalf("second booking should get defaults: %+v", got[1])
	}
}

func TestRefreshServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := seededManager(srv.URL, confirmedBooking("b-1", 50))

	if err := m.Refresh(context.Background()); err == nil {
		t.Fatalf("expected error on 500 response")
	}
	if got := m.Bookings(); len(got) != 1 || got[0].ID != "b-1" {
		t.Fatalf("failed refresh must leave the list untouched, got %+v", got)
	}
}

func TestStaleRefreshIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprint(w, `[{"_id":"b-1","bookingDate":"2024-06-01T00:00:00Z","endDate":"2024-06-03T00:00:00Z","totalPrice":150,"status":"confirmed"}]`)
	}))
	defer srv.Close()

	m := seededManager(srv.URL, confirmedBooking("b-1", 50))

	done := make(chan error, 1)
	go func() { done <- m.Refresh(context.Background()) }()

	// a mutation lands while the fetch is still on the wire
	time.Sleep(20 * time.Millisecond)
	m.mu.Lock()
	m.clock++
	m.lastMutation = m.clock
	m.bookings[0].Status = StatusCanceled
	m.mu.Unlock()

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	if got := m.Bookings(); got[0].Status != StatusCanceled {
		t.Fatalf("stale fetch overwrote a newer mutation, status %q", got[0].Status)
	}
}

func TestCancelAdoptsEchoedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/bookings/b-1" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["status"] != StatusCanceled {
			t.Fatalf("expected canceled status in payload, got %q", body["status"])
		}
		fmt.Fprint(w, `{"booking":{"_id":"b-1","status":"canceled","bookingDate":"2024-06-01T00:00:00Z","endDate":"2024-06-03T00:00:00Z","totalPrice":150}}`)
	}))
	defer srv.Close()

	m := seededManager(srv.URL, confirmedBooking("b-1", 50))

	if err := m.Cancel(context.Background(), "b-1"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if got := m.Bookings(); got[0].Status != StatusCanceled {
		t.Fatalf("expected canceled status, got %q", got[0].Status)
	}
	if m.Busy() {
		t.Fatalf("manager still busy after cancel returned")
	}
}

func TestCancelRefusedWhenAlreadyCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("canceled booking must not reach the network")
	}))
	defer srv.Close()

	b := confirmedBooking("b-1", 50)
	b.Status = StatusCanceled
	m := seededManager(srv.URL, b)

	if err := m.Cancel(context.Background(), "b-1"); !errors.Is(err, ErrAlreadyCanceled) {
		t.Fatalf("expected ErrAlreadyCanceled, got %v", err)
	}
}

func TestCancelUnknownBooking(t *testing.T) {
	m := seededManager("http://localhost", confirmedBooking("b-1", 50))

	if err := m.Cancel(context.Background(), "nope"); !errors.Is(err, ErrUnknownBooking) {
		t.Fatalf("expected ErrUnknownBooking, got %v", err)
	}
}

func TestMutationInFlightGuard(t *testing.T) {
	m := seededManager("http://localhost", confirmedBooking("b-1", 50))
	m.mu.Lock()
	m.busy = true
	m.mu.Unlock()

	if err := m.Cancel(context.Background(), "b-1"); !errors.Is(err, ErrMutationInFlight) {
		t.Fatalf("expected ErrMutationInFlight from Cancel, got %v", err)
	}

	in := ModifyDatesInput{
		Start: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC),
	}
	if _, err := m.ModifyDates(context.Background(), "b-1", in); !errors.Is(err, ErrMutationInFlight) {
		t.Fatalf("expected ErrMutationInFlight from ModifyDates, got %v", err)
	}
}

func TestModifyDatesValidationFailsBeforeNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("invalid input must not reach the network")
	}))
	defer srv.Close()

	m := seededManager(srv.URL, confirmedBooking("b-1", 50))
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	if _, err := m.ModifyDates(context.Background(), "b-1", ModifyDatesInput{Start: day, End: day}); !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("start==end should fail validation, got %v", err)
	}
	if _, err := m.ModifyDates(context.Background(), "b-1", ModifyDatesInput{Start: day}); !errors.Is(err, ErrMissingDates) {
		t.Fatalf("missing end date should fail validation, got %v", err)
	}
}

func TestModifyDatesConflictLeavesListUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"conflict":{"message":"Car unavailable for the selected dates"}}`)
	}))
	defer srv.Close()

	m := seededManager(srv.URL, confirmedBooking("b-1", 50))
	before := m.Bookings()[0]

	in := ModifyDatesInput{
		Start: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC),
	}
	res, err := m.ModifyDates(context.Background(), "b-1", in)
	if err != nil {
		t.Fatalf("conflict is an outcome, not an error: %v", err)
	}
	if res.Ok() {
		t.Fatalf("expected conflict outcome, got success")
	}
	if res.Conflict != "Car unavailable for the selected dates" {
		t.Fatalf("unexpected conflict message %q", res.Conflict)
	}

	after := m.Bookings()[0]
	if !after.BookingDate.Equal(before.BookingDate) || !after.EndDate.Equal(before.EndDate) || after.TotalPrice != before.TotalPrice {
		t.Fatalf("conflict must leave the booking untouched: %+v", after)
	}
}

func TestModifyDatesAppliesServerRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["bookingDate"] != "2024-06-10T00:00:00Z" || body["endDate"] != "2024-06-14T00:00:00Z" {
			t.Fatalf("unexpected payload %v", body)
		}
		// the server repriced from its own rate, not the client's cache
		fmt.Fprint(w, `{"booking":{"_id":"b-1","status":"confirmed","bookingDate":"2024-06-10T00:00:00Z","endDate":"2024-06-14T00:00:00Z","totalPrice":300,"carData":{"carModel":"Honda Civic","dailyRentalPrice":60}}}`)
	}))
	defer srv.Close()

	m := seededManager(srv.URL, confirmedBooking("b-1", 50))

	in := ModifyDatesInput{
		Start: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC),
	}

	predicted, days, err := m.PredictedTotal("b-1", in)
	if err != nil {
		t.Fatalf("predicted total failed: %v", err)
	}
	if days != 5 || predicted != 250 {
		t.Fatalf("expected 5 days at 50 = 250, got %d days, %v", days, predicted)
	}

	res, err := m.ModifyDates(context.Background(), "b-1", in)
	if err != nil {
		t.Fatalf("modify failed: %v", err)
	}
	if !res.Ok() {
		t.Fatalf("expected success, got conflict %q", res.Conflict)
	}

	got := m.Bookings()[0]
	if got.TotalPrice != 300 {
		t.Fatalf("server total must win over the prediction, got %v", got.TotalPrice)
	}
	if got.Duration != 5 {
		t.Fatalf("expected 5 rental days, got %d", got.Duration)
	}
	if got.CarData.DailyRentalPrice != 60 {
		t.Fatalf("expected updated snapshot rate 60, got %v", got.CarData.DailyRentalPrice)
	}
}

func TestModifyDatesRefusedOnCanceledBooking(t *testing.T) {
	b := confirmedBooking("b-1", 50)
	b.Status = StatusCanceled
	m := seededManager("http://localhost", b)

	in := ModifyDatesInput{
		Start: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC),
	}
	if _, err := m.ModifyDates(context.Background(), "b-1", in); !errors.Is(err, ErrAlreadyCanceled) {
		t.Fatalf("expected ErrAlreadyCanceled, got %v", err)
	}
}
