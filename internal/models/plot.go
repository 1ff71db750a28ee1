package models

import (
	"strings"

	"github.com/paulmach/orb"
)

// PlotStatus is the normalized reservability state of a plot.
// Backend status strings are free text with inconsistent casing, so every
// value is normalized through ParsePlotStatus at the ingestion boundary and
// the rest of the code only ever sees these constants.
type PlotStatus string

const (
	PlotAvailable PlotStatus = "available"
	PlotReserved  PlotStatus = "reserved"
	PlotOccupied  PlotStatus = "occupied"
	PlotUnknown   PlotStatus = "unknown"
)

// ParsePlotStatus normalizes a raw backend status string to a PlotStatus.
// Unrecognized values map to PlotUnknown rather than failing.
func ParsePlotStatus(raw string) PlotStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "available":
		return PlotAvailable
	case "reserved":
		return PlotReserved
	case "occupied":
		return PlotOccupied
	default:
		return PlotUnknown
	}
}

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Plot represents a single burial unit with boundary geometry.
// Key is the canonical join identity used across the map, the list view and
// reservation records; it is chosen once at ingestion (id preferred, uid as
// fallback) so downstream code never branches on which raw key was present.
type Plot struct {
	Geometry  orb.Geometry `json:"-"`
	Centroid  *LatLng      `json:"centroid,omitempty"`
	Price     *float64     `json:"price,omitempty"`
	Key       string       `json:"key"`
	ID        string       `json:"id,omitempty"`
	UID       string       `json:"uid,omitempty"`
	Name      string       `json:"plot_name,omitempty"`
	Type      string       `json:"plot_type,omitempty"`
	RawStatus string       `json:"raw_status,omitempty"`
	Status    PlotStatus   `json:"status"`
	SizeSqm   float64      `json:"size_sqm,omitempty"`
}

// CanonicalKey selects the join key for a plot from its raw identifiers.
// Returns an empty string when neither identifier is present.
func CanonicalKey(id, uid string) string {
	if id != "" {
		return id
	}
	return uid
}

// Available reports whether the plot can currently be selected for a
// reservation. The backend status is the single source of truth; this is
// only ever a snapshot of the last fetch.
func (p *Plot) Available() bool {
	return p.Status == PlotAvailable
}
