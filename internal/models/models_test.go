package models

import (
	"encoding/json"
	"testing"
)

func TestParsePlotStatus(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected PlotStatus
	}{
		{name: "lowercase available", raw: "available", expected: PlotAvailable},
		{name: "uppercase available", raw: "AVAILABLE", expected: PlotAvailable},
		{name: "mixed case reserved", raw: "Reserved", expected: PlotReserved},
		{name: "occupied with whitespace", raw: "  occupied ", expected: PlotOccupied},
		{name: "unrecognized value", raw: "for-sale", expected: PlotUnknown},
		{name: "empty string", raw: "", expected: PlotUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParsePlotStatus(tt.raw); got != tt.expected {
				t.Errorf("ParsePlotStatus(%q) = %q, want %q", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestCanonicalKey(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		uid      string
		expected string
	}{
		{name: "id preferred over uid", id: "42", uid: "abc-123", expected: "42"},
		{name: "uid as fallback", id: "", uid: "abc-123", expected: "abc-123"},
		{name: "id only", id: "42", uid: "", expected: "42"},
		{name: "neither present", id: "", uid: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalKey(tt.id, tt.uid); got != tt.expected {
				t.Errorf("CanonicalKey(%q, %q) = %q, want %q", tt.id, tt.uid, got, tt.expected)
			}
		})
	}
}

func TestPlotAvailable(t *testing.T) {
	tests := []struct {
		status   PlotStatus
		expected bool
	}{
		{status: PlotAvailable, expected: true},
		{status: PlotReserved, expected: false},
		{status: PlotOccupied, expected: false},
		{status: PlotUnknown, expected: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			p := &Plot{Status: tt.status}
			if got := p.Available(); got != tt.expected {
				t.Errorf("Available() with status %q = %v, want %v", tt.status, got, tt.expected)
			}
		})
	}
}

func TestParseReservationStatus(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected ReservationStatus
	}{
		{name: "pending", raw: "pending", expected: ReservationPending},
		{name: "approved uppercase", raw: "APPROVED", expected: ReservationApproved},
		{name: "rejected", raw: "rejected", expected: ReservationRejected},
		{name: "british spelling", raw: "cancelled", expected: ReservationCancelled},
		{name: "american spelling folds", raw: "canceled", expected: ReservationCancelled},
		{name: "unrecognized value", raw: "on-hold", expected: ReservationUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseReservationStatus(tt.raw); got != tt.expected {
				t.Errorf("ParseReservationStatus(%q) = %q, want %q", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestReservationStatusUnmarshalNormalizes(t *testing.T) {
	var r Reservation
	if err := json.Unmarshal([]byte(`{"id": 900, "plot_id": "42", "status": "Canceled"}`), &r); err != nil {
		t.Fatalf("failed to unmarshal reservation: %v", err)
	}

	if r.Status != ReservationCancelled {
		t.Errorf("expected status %q after decode, got %q", ReservationCancelled, r.Status)
	}
	if r.ID.String() != "900" {
		t.Errorf("expected id '900', got %q", r.ID.String())
	}
	if r.PlotID.String() != "42" {
		t.Errorf("expected plot_id '42', got %q", r.PlotID.String())
	}
}

func TestReservationStatusTerminal(t *testing.T) {
	tests := []struct {
		status   ReservationStatus
		expected bool
	}{
		{status: ReservationPending, expected: false},
		{status: ReservationApproved, expected: true},
		{status: ReservationRejected, expected: true},
		{status: ReservationCancelled, expected: true},
		// Unknown keeps the approval wait alive.
		{status: ReservationUnknown, expected: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.expected {
				t.Errorf("%q.Terminal() = %v, want %v", tt.status, got, tt.expected)
			}
		})
	}
}

func TestFlexIDUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		expected string
		wantErr  bool
	}{
		{name: "json string", data: `"abc-7"`, expected: "abc-7"},
		{name: "json integer", data: `900`, expected: "900"},
		{name: "json float keeps form", data: `3.5`, expected: "3.5"},
		{name: "null becomes empty", data: `null`, expected: ""},
		{name: "object rejected", data: `{"id": 1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexID
			err := json.Unmarshal([]byte(tt.data), &f)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s, got none", tt.data)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.String() != tt.expected {
				t.Errorf("FlexID from %s = %q, want %q", tt.data, f.String(), tt.expected)
			}
		})
	}
}

func TestApplicantApplyOverrides(t *testing.T) {
	tests := []struct {
		name        string
		profile     Applicant
		wantContact string
		wantAddress string
	}{
		{
			name: "profile values win for contact and address",
			profile: Applicant{
				FullName:      "Juan Dela Cruz",
				ContactNumber: "09170000001",
				Address:       "Quezon City",
			},
			wantContact: "09170000001",
			wantAddress: "Quezon City",
		},
		{
			name:        "local values fill blanks",
			profile:     Applicant{FullName: "Juan Dela Cruz"},
			wantContact: "09991234567",
			wantAddress: "Marikina",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.profile.ApplyOverrides("Son", "09991234567", "Marikina")

			// Relationship always comes from the local entry.
			if got.Relationship != "Son" {
				t.Errorf("expected relationship 'Son', got %q", got.Relationship)
			}
			if got.ContactNumber != tt.wantContact {
				t.Errorf("expected contact %q, got %q", tt.wantContact, got.ContactNumber)
			}
			if got.Address != tt.wantAddress {
				t.Errorf("expected address %q, got %q", tt.wantAddress, got.Address)
			}
			if got.FullName != tt.profile.FullName {
				t.Errorf("expected full name untouched, got %q", got.FullName)
			}
		})
	}
}
