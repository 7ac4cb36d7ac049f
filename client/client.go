package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCanceled  = "canceled"
)

var (
	ErrNoIdentity       = errors.New("no signed-in identity")
	ErrUnknownBooking   = errors.New("booking not found")
	ErrAlreadyCanceled  = errors.New("booking is already canceled")
	ErrMutationInFlight = errors.New("another booking update is still in flight")
	ErrMissingDates     = errors.New("both start and end dates are required")
	ErrInvalidDateRange = errors.New("end date must be after the start date")
)

// Session carries the signed-in identity every request is made on behalf of.
// A Manager without a session email cannot fetch or mutate anything.
type Session struct {
	Email string
	Token string
}

// Manager owns the local booking list for one session and keeps it
// consistent with the server across fetches and mutations.
type Manager struct {
	baseURL    string
	session    Session
	httpClient *http.Client

	mu       sync.Mutex
	bookings []Booking
	// clock orders fetches against mutations: a fetch response is applied
	// only if it started after the last mutation was applied.
	clock        uint64
	lastMutation uint64
	busy         bool

	// now is swappable for tests
	now func() time.Time
}

func New(baseURL string, session Session) *Manager {
	return &Manager{
		baseURL:    baseURL,
		session:    session,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}
}

// Bookings returns a snapshot of the current list
func (m *Manager) Bookings() []Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Booking, len(m.bookings))
	copy(out, m.bookings)
	return out
}

// Busy reports whether a mutation is still waiting on the server
func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy
}

// Refresh fetches the session's bookings and replaces the local list.
// A response that raced with a mutation and lost is discarded silently:
// the authoritative record the mutation installed stays put.
func (m *Manager) Refresh(ctx context.Context) error {
	if m.session.Email == "" {
		return ErrNoIdentity
	}

	m.mu.Lock()
	m.clock++
	seq := m.clock
	m.mu.Unlock()

	u := fmt.Sprintf("%s/my-bookings?email=%s", m.baseURL, url.QueryEscape(m.session.Email))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build bookings request: %w", err)
	}
	m.authorize(req)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch bookings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fetch bookings: server returned %s", resp.Status)
	}

	var raws []RawBooking
	if err := json.NewDecoder(resp.Body).Decode(&raws); err != nil {
		return fmt.Errorf("decode bookings: %w", err)
	}

	now := m.now()
	derived := make([]Booking, 0, len(raws))
	for _, raw := range raws {
		derived = append(derived, Derive(raw, now))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if seq <= m.lastMutation {
		// stale response, a mutation has been applied since this fetch began
		return nil
	}
	m.bookings = derived
	return nil
}

// Cancel marks a booking canceled and adopts the status the server echoes
// back. Canceling a canceled booking is refused locally.
func (m *Manager) Cancel(ctx context.Context, bookingID string) error {
	m.mu.Lock()
	idx := m.indexOf(bookingID)
	if idx < 0 {
		m.mu.Unlock()
		return ErrUnknownBooking
	}
	if m.bookings[idx].Status == StatusCanceled {
		m.mu.Unlock()
		return ErrAlreadyCanceled
	}
	if m.busy {
		m.mu.Unlock()
		return ErrMutationInFlight
	}
	m.busy = true
	m.mu.Unlock()
	defer m.clearBusy()

	body := map[string]string{"status": StatusCanceled}
	raw, status, err := m.patchBooking(ctx, bookingID, body)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("cancel booking: server returned %d: %s", status, errorMessage(raw))
	}

	echoed, err := decodeBookingEnvelope(raw)
	if err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock++
	m.lastMutation = m.clock
	if idx := m.indexOf(bookingID); idx >= 0 {
		m.bookings[idx].Status = echoed.Status
		m.bookings[idx] = Normalize(m.bookings[idx])
	}
	return nil
}

// ModifyDatesInput is a validated date-range change request
type ModifyDatesInput struct {
	Start time.Time
	End   time.Time
}

func (in ModifyDatesInput) Validate() error {
	if in.Start.IsZero() || in.End.IsZero() {
		return ErrMissingDates
	}
	if !in.End.After(in.Start) {
		return ErrInvalidDateRange
	}
	if RentalDays(in.Start, in.End) < 1 {
		return ErrInvalidDateRange
	}
	return nil
}

// ModifyResult is the outcome of a date change. Exactly one branch is set:
// Booking on success, Conflict when the server refused the range. Transport
// and validation failures are returned as errors instead.
type ModifyResult struct {
	Booking  *Booking
	Conflict string
}

func (r ModifyResult) Ok() bool { return r.Booking != nil }

// PredictedTotal estimates the new price for a range before submitting,
// using the locally cached daily rate.
func (m *Manager) PredictedTotal(bookingID string, in ModifyDatesInput) (float64, int, error) {
	if err := in.Validate(); err != nil {
		return 0, 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexOf(bookingID)
	if idx < 0 {
		return 0, 0, ErrUnknownBooking
	}
	days := RentalDays(in.Start, in.End)
	return float64(days) * m.bookings[idx].CarData.DailyRentalPrice, days, nil
}

// ModifyDates submits a new date range. Invalid input never reaches the
// network. On success the server's repriced record replaces the local one;
// on conflict the local record is left untouched.
func (m *Manager) ModifyDates(ctx context.Context, bookingID string, in ModifyDatesInput) (ModifyResult, error) {
	if err := in.Validate(); err != nil {
		return ModifyResult{}, err
	}

	m.mu.Lock()
	idx := m.indexOf(bookingID)
	if idx < 0 {
		m.mu.Unlock()
		return ModifyResult{}, ErrUnknownBooking
	}
	if m.bookings[idx].Status == StatusCanceled {
		m.mu.Unlock()
		return ModifyResult{}, ErrAlreadyCanceled
	}
	if m.busy {
		m.mu.Unlock()
		return ModifyResult{}, ErrMutationInFlight
	}
	m.busy = true
	m.mu.Unlock()
	defer m.clearBusy()

	body := map[string]string{
		"bookingDate": in.Start.UTC().Format(time.RFC3339),
		"endDate":     in.End.UTC().Format(time.RFC3339),
	}
	raw, status, err := m.patchBooking(ctx, bookingID, body)
	if err != nil {
		return ModifyResult{}, err
	}

	if status == http.StatusConflict {
		return ModifyResult{Conflict: conflictMessage(raw)}, nil
	}
	if status < 200 || status > 299 {
		return ModifyResult{}, fmt.Errorf("modify booking: server returned %d: %s", status, errorMessage(raw))
	}

	echoed, err := decodeBookingEnvelope(raw)
	if err != nil {
		return ModifyResult{}, fmt.Errorf("modify booking: %w", err)
	}
	updated := Derive(echoed, m.now())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock++
	m.lastMutation = m.clock
	if idx := m.indexOf(bookingID); idx >= 0 {
		m.bookings[idx] = updated
	}
	return ModifyResult{Booking: &updated}, nil
}

func (m *Manager) patchBooking(ctx context.Context, bookingID string, body any) ([]byte, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("encode booking update: %w", err)
	}

	u := fmt.Sprintf("%s/bookings/%s", m.baseURL, url.PathEscape(bookingID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("build booking update: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	m.authorize(req)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("update booking: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read booking response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

func (m *Manager) authorize(req *http.Request) {
	if m.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+m.session.Token)
	}
}

func (m *Manager) clearBusy() {
	m.mu.Lock()
	m.busy = false
	m.mu.Unlock()
}

// indexOf must be called with m.mu held
func (m *Manager) indexOf(bookingID string) int {
	for i := range m.bookings {
		if m.bookings[i].ID == bookingID {
			return i
		}
	}
	return -1
}

func decodeBookingEnvelope(raw []byte) (RawBooking, error) {
	var envelope struct {
		Booking RawBooking `json:"booking"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return RawBooking{}, fmt.Errorf("decode booking envelope: %w", err)
	}
	if envelope.Booking.ID == "" {
		return RawBooking{}, errors.New("response missing booking")
	}
	return envelope.Booking, nil
}

func conflictMessage(raw []byte) string {
	var body struct {
		Conflict struct {
			Message string `json:"message"`
		} `json:"conflict"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Conflict.Message != "" {
			return body.Conflict.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return "Booking conflict"
}

func errorMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return string(raw)
}
