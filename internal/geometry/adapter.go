package geometry

import (
	"github.com/paulmach/orb"

	"github.com/rcabanilla/lapida/internal/models"
)

// Fill and stroke colors keyed by plot status. Selected always renders blue
// regardless of status.
const (
	ColorAvailable = "#34a853"
	ColorReserved  = "#fbbc05"
	ColorOccupied  = "#ea4335"
	ColorUnknown   = "#9e9e9e"
	ColorSelected  = "#4285f4"
)

// Style describes how the map surface should paint a shape.
type Style struct {
	FillColor     string  `json:"fill_color"`
	StrokeColor   string  `json:"stroke_color"`
	FillOpacity   float64 `json:"fill_opacity"`
	StrokeOpacity float64 `json:"stroke_opacity"`
	StrokeWeight  float64 `json:"stroke_weight"`
	ZIndex        int     `json:"z_index"`
}

// Shape is a renderable polygon handed to the external map surface.
type Shape struct {
	Key   string          `json:"key"`
	Path  []models.LatLng `json:"path"`
	Style Style           `json:"style"`
}

// Centroid computes a representative center point for camera framing.
// For a point geometry it returns the coordinate itself. For polygons and
// multi-polygons it returns the midpoint of the bounding box of the first
// outer ring; this is not a true area centroid, matching the behavior the
// map surface was built against. Returns nil for missing or malformed
// geometry rather than panicking.
func Centroid(g orb.Geometry) *models.LatLng {
	switch geom := g.(type) {
	case orb.Point:
		return &models.LatLng{Lat: geom.Lat(), Lng: geom.Lon()}
	default:
		ring := outerRing(g)
		if ring == nil {
			return nil
		}
		center := ring.Bound().Center()
		return &models.LatLng{Lat: center.Lat(), Lng: center.Lon()}
	}
}

// ToShape converts a plot into a renderable shape. The style is a function of
// three inputs: the base color from the plot status, a dim treatment when the
// only-available filter is active and the plot does not match it, and a
// selected override when the plot's key matches selectedKey. Selected wins
// over dim. Returns nil for unsupported geometry types or empty rings.
//
// Multi-polygon support is limited to the first sub-polygon's outer ring.
// This is a documented compatibility limitation, not an oversight.
func ToShape(p models.Plot, selectedKey string, onlyAvailable bool) *Shape {
	ring := outerRing(p.Geometry)
	if len(ring) == 0 {
		return nil
	}

	path := make([]models.LatLng, 0, len(ring))
	for _, pt := range ring {
		path = append(path, models.LatLng{Lat: pt.Lat(), Lng: pt.Lon()})
	}

	style := baseStyle(p.Status)
	if onlyAvailable && !p.Available() {
		style = dim(style)
	}
	if selectedKey != "" && p.Key == selectedKey {
		style = selectedStyle()
	}

	return &Shape{
		Key:   p.Key,
		Path:  path,
		Style: style,
	}
}

// outerRing extracts the outer ring used for rendering and centroid math.
// Only the first sub-polygon of a multi-polygon is considered.
func outerRing(g orb.Geometry) orb.Ring {
	switch geom := g.(type) {
	case orb.Polygon:
		if len(geom) == 0 {
			return nil
		}
		return geom[0]
	case orb.MultiPolygon:
		if len(geom) == 0 || len(geom[0]) == 0 {
			return nil
		}
		return geom[0][0]
	default:
		return nil
	}
}

func baseStyle(status models.PlotStatus) Style {
	color := ColorUnknown
	switch status {
	case models.PlotAvailable:
		color = ColorAvailable
	case models.PlotReserved:
		color = ColorReserved
	case models.PlotOccupied:
		color = ColorOccupied
	}

	return Style{
		FillColor:     color,
		StrokeColor:   color,
		FillOpacity:   0.45,
		StrokeOpacity: 0.9,
		StrokeWeight:  1.5,
		ZIndex:        1,
	}
}

func dim(s Style) Style {
	s.FillOpacity = 0.08
	s.StrokeOpacity = 0.25
	return s
}

func selectedStyle() Style {
	return Style{
		FillColor:     ColorSelected,
		StrokeColor:   ColorSelected,
		FillOpacity:   0.55,
		StrokeOpacity: 1.0,
		StrokeWeight:  3,
		ZIndex:        10,
	}
}
