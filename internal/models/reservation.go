package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ReservationStatus is the normalized lifecycle state of a reservation.
// Transitions are backend-owned; the client only observes them.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationApproved  ReservationStatus = "approved"
	ReservationRejected  ReservationStatus = "rejected"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationUnknown   ReservationStatus = "unknown"
)

// ParseReservationStatus normalizes a raw backend status string.
// The "canceled" spelling is folded into "cancelled".
func ParseReservationStatus(raw string) ReservationStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return ReservationPending
	case "approved":
		return ReservationApproved
	case "rejected":
		return ReservationRejected
	case "cancelled", "canceled":
		return ReservationCancelled
	default:
		return ReservationUnknown
	}
}

// UnmarshalJSON normalizes the status at decode time so callers never see
// raw backend casing or synonyms.
func (s *ReservationStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal reservation status: %w", err)
	}
	*s = ParseReservationStatus(raw)
	return nil
}

// Terminal reports whether the status ends the approval wait. Unknown values
// are treated as still in flight so polling keeps observing the backend.
func (s ReservationStatus) Terminal() bool {
	switch s {
	case ReservationApproved, ReservationRejected, ReservationCancelled:
		return true
	}
	return false
}

// FlexID is an identifier that backends serialize as either a JSON number
// or a JSON string. It is stored as its string form.
type FlexID string

// UnmarshalJSON accepts a string, a number, or null.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("failed to unmarshal id %s: %w", string(data), err)
	}
	*f = FlexID(n.String())
	return nil
}

// String returns the identifier in its canonical string form.
func (f FlexID) String() string {
	return string(f)
}

// Reservation is a visitor's claim on a plot awaiting an admin decision.
type Reservation struct {
	ID        FlexID            `json:"id"`
	PlotID    FlexID            `json:"plot_id"`
	Status    ReservationStatus `json:"status"`
	Notes     string            `json:"notes,omitempty"`
	CreatedAt string            `json:"created_at,omitempty"`
}
