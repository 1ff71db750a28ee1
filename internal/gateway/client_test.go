package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcabanilla/lapida/internal/logger"
	"github.com/rcabanilla/lapida/internal/models"
)

const plotCollection = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"properties": {"id": "42", "plot_name": "Lot 42", "status": "available"},
			"geometry": {"type": "Polygon", "coordinates": [[[120, 14], [121, 14], [121, 15], [120, 15], [120, 14]]]}
		},
		{
			"type": "Feature",
			"properties": {"uid": "u-7", "status": "reserved"},
			"geometry": {"type": "Polygon", "coordinates": [[[122, 14], [123, 14], [123, 15], [122, 15], [122, 14]]]}
		}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, logger.New("development")), srv
}

func TestListPlots(t *testing.T) {
	var gotPath, gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(plotCollection))
	})

	plots, err := client.ListPlots(context.Background())
	require.NoError(t, err)
	require.Len(t, plots, 2)

	assert.Equal(t, "/plot/", gotPath)
	assert.Empty(t, gotAuth, "plot reads work without a token")
	assert.Equal(t, "42", plots[0].Key)
	assert.Equal(t, models.PlotAvailable, plots[0].Status)
	assert.Equal(t, "u-7", plots[1].Key)
	assert.Equal(t, models.PlotReserved, plots[1].Status)
}

func TestWithTokenForwardsBearer(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	})

	bound := client.WithToken("tok-123")
	_, err := bound.ListMyReservations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)

	// The original client stays unauthenticated.
	_, err = client.ListMyReservations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestListMyReservationsEnvelopes(t *testing.T) {
	const record = `{"id": 900, "plot_id": "42", "status": "pending"}`

	tests := []struct {
		name string
		body string
	}{
		{name: "bare array", body: `[` + record + `]`},
		{name: "data envelope", body: `{"data": [` + record + `]}`},
		{name: "reservations envelope", body: `{"reservations": [` + record + `]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/visitor/my-reservations", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			})

			reservations, err := client.ListMyReservations(context.Background())
			require.NoError(t, err)
			require.Len(t, reservations, 1)
			assert.Equal(t, "900", reservations[0].ID.String())
			assert.Equal(t, models.ReservationPending, reservations[0].Status)
		})
	}
}

func TestReserve(t *testing.T) {
	var gotBody map[string]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/visitor/reserve-plot", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data": {"id": 900, "plot_id": "42", "status": "pending"}}`))
	})

	reservation, err := client.Reserve(context.Background(), "42", "Applicant: Juan Dela Cruz")
	require.NoError(t, err)

	assert.Equal(t, "42", gotBody["plot_id"])
	assert.Equal(t, "Applicant: Juan Dela Cruz", gotBody["notes"])
	assert.Equal(t, "900", reservation.ID.String())
	assert.Equal(t, models.ReservationPending, reservation.Status)
}

func TestReserveBareResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "r-1", "plot_id": 42, "status": "pending"}`))
	})

	reservation, err := client.Reserve(context.Background(), "42", "")
	require.NoError(t, err)
	assert.Equal(t, "r-1", reservation.ID.String())
	assert.Equal(t, "42", reservation.PlotID.String())
}

func TestCancel(t *testing.T) {
	var gotMethod, gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.Cancel(context.Background(), "900"))
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/visitor/cancel-reservation/900", gotPath)
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantMessage string
	}{
		{
			name:        "json message field",
			status:      http.StatusConflict,
			contentType: "application/json",
			body:        `{"message": "Plot is already reserved"}`,
			wantMessage: "Plot is already reserved",
		},
		{
			name:        "json error field",
			status:      http.StatusForbidden,
			contentType: "application/json; charset=utf-8",
			body:        `{"error": "Visitor account required"}`,
			wantMessage: "Visitor account required",
		},
		{
			name:        "html error page stripped",
			status:      http.StatusBadGateway,
			contentType: "text/html",
			body:        "<html><body><h1>502 Bad Gateway</h1>\n<p>nginx</p></body></html>",
			wantMessage: "502 Bad Gateway nginx",
		},
		{
			name:        "empty body falls back to status text",
			status:      http.StatusServiceUnavailable,
			contentType: "text/plain",
			body:        "",
			wantMessage: "Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.ListMyReservations(context.Background())
			require.Error(t, err)

			apiErr, ok := err.(*APIError)
			require.True(t, ok, "expected *APIError, got %T", err)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Contains(t, apiErr.Error(), "backend returned")
		})
	}
}

func TestPing(t *testing.T) {
	t.Run("any http response counts as reachable", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		assert.NoError(t, client.Ping(context.Background()))
	})

	t.Run("transport failure is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		client := NewClient(srv.URL, time.Second, logger.New("development"))
		srv.Close()

		assert.Error(t, client.Ping(context.Background()))
	})
}

func TestDecodeReservationListBadShape(t *testing.T) {
	_, err := decodeReservationList([]byte(`"surprise"`))
	assert.Error(t, err)
}
