package geometry

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/paulmach/orb/geojson"

	"github.com/rcabanilla/lapida/internal/logger"
	"github.com/rcabanilla/lapida/internal/models"
)

// Ingest normalizes a GeoJSON feature collection into plots. This is the one
// place raw backend identity and status values are interpreted: the canonical
// key is chosen (id preferred, uid fallback), the status string is folded
// into the closed PlotStatus enum, and the centroid is precomputed. Features
// with no usable identity are skipped.
//
// log may be nil; unrecognized statuses and skipped features are reported at
// warn level, never treated as errors.
func Ingest(fc *geojson.FeatureCollection, log *logger.Logger) []models.Plot {
	if fc == nil {
		return nil
	}

	plots := make([]models.Plot, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f == nil {
			continue
		}

		props := map[string]interface{}(f.Properties)
		id := propString(props, "id")
		uid := propString(props, "uid")
		key := models.CanonicalKey(id, uid)
		if key == "" {
			if log != nil {
				log.Warn("Skipping plot feature without id or uid", map[string]interface{}{
					"plot_name": propString(props, "plot_name"),
				})
			}
			continue
		}

		rawStatus := propString(props, "status")
		status := models.ParsePlotStatus(rawStatus)
		if status == models.PlotUnknown && log != nil {
			log.Warn("Unrecognized plot status", map[string]interface{}{
				"key":    key,
				"status": rawStatus,
			})
		}

		plot := models.Plot{
			Key:       key,
			ID:        id,
			UID:       uid,
			Name:      propString(props, "plot_name"),
			Type:      propString(props, "plot_type"),
			RawStatus: rawStatus,
			Status:    status,
			Geometry:  f.Geometry,
			Centroid:  Centroid(f.Geometry),
		}

		if size, ok := propFloat(props, "size_sqm"); ok {
			plot.SizeSqm = size
		}
		if price, ok := propFloat(props, "price"); ok {
			plot.Price = &price
		}

		plots = append(plots, plot)
	}

	return plots
}

// propString reads a property that may arrive as a string or a number.
// Numeric identifiers are rendered without a trailing ".0".
func propString(props map[string]interface{}, key string) string {
	switch v := props[key].(type) {
	case string:
		return v
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// propFloat reads a numeric property, tolerating string-encoded numbers.
func propFloat(props map[string]interface{}, key string) (float64, bool) {
	switch v := props[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
