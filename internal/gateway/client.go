package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/rcabanilla/lapida/internal/geometry"
	"github.com/rcabanilla/lapida/internal/logger"
	"github.com/rcabanilla/lapida/internal/models"
)

// maxBodyBytes caps how much of a backend response is read. Error pages from
// misconfigured proxies can be arbitrarily large HTML.
const maxBodyBytes = 8 << 20

// APIError is a non-2xx backend response. The HTTP status is kept in the
// message so 403 vs 404 vs 500 failures stay distinguishable in logs and
// user-facing toasts.
type APIError struct {
	Message string
	Status  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// PlotGateway defines all network I/O against the cemetery backend. It holds
// no business rules beyond request shaping and response normalization.
type PlotGateway interface {
	// ListPlots fetches the plot inventory as normalized plots.
	// Works without a token; the backend serves the inventory publicly.
	ListPlots(ctx context.Context) ([]models.Plot, error)

	// ListMyReservations fetches the caller's reservations. The backend
	// wraps the list in varying envelopes; all are normalized to a flat
	// slice.
	ListMyReservations(ctx context.Context) ([]models.Reservation, error)

	// Reserve submits a reservation request for a plot.
	Reserve(ctx context.Context, plotID, notes string) (*models.Reservation, error)

	// Cancel requests cancellation of a reservation. Only success or
	// failure matters; the response body is ignored.
	Cancel(ctx context.Context, reservationID string) error

	// Ping reports whether the backend is reachable at all. Any HTTP
	// response counts; only transport failures are errors.
	Ping(ctx context.Context) error
}

// Client is the concrete HTTP implementation of PlotGateway.
type Client struct {
	http    *http.Client
	log     *logger.Logger
	baseURL string
	token   string
}

// NewClient creates a gateway client for the given backend base URL.
// The timeout applies to every request end to end.
func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		log:     log,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// WithToken returns a copy of the client bound to the given bearer token.
// The token is opaque; it is forwarded to the backend unchanged. An empty
// token yields an unauthenticated client, which the backend tolerates for
// reads and rejects for writes.
func (c *Client) WithToken(token string) *Client {
	bound := *c
	bound.token = token
	return &bound
}

// ListPlots fetches GET /plot/ and ingests the GeoJSON feature collection.
func (c *Client) ListPlots(ctx context.Context) ([]models.Plot, error) {
	data, err := c.do(ctx, http.MethodGet, "/plot/", nil)
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse plot inventory: %w", err)
	}

	plots := geometry.Ingest(fc, c.log)
	c.log.Debug("Fetched plot inventory", map[string]interface{}{
		"features": len(fc.Features),
		"plots":    len(plots),
	})

	return plots, nil
}

// ListMyReservations fetches GET /visitor/my-reservations.
func (c *Client) ListMyReservations(ctx context.Context) ([]models.Reservation, error) {
	data, err := c.do(ctx, http.MethodGet, "/visitor/my-reservations", nil)
	if err != nil {
		return nil, err
	}

	reservations, err := decodeReservationList(data)
	if err != nil {
		return nil, err
	}

	return reservations, nil
}

// Reserve submits POST /visitor/reserve-plot with {plot_id, notes}.
func (c *Client) Reserve(ctx context.Context, plotID, notes string) (*models.Reservation, error) {
	body := map[string]string{
		"plot_id": plotID,
		"notes":   notes,
	}

	data, err := c.do(ctx, http.MethodPost, "/visitor/reserve-plot", body)
	if err != nil {
		return nil, err
	}

	return decodeReservation(data)
}

// Cancel submits PATCH /visitor/cancel-reservation/:id.
func (c *Client) Cancel(ctx context.Context, reservationID string) error {
	path := "/visitor/cancel-reservation/" + reservationID
	_, err := c.do(ctx, http.MethodPatch, path, nil)
	return err
}

// Ping issues a bare GET against the base URL.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to build ping request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	return nil
}

// do issues a request and returns the raw body for 2xx responses. Non-2xx
// responses become an *APIError carrying the status and the best available
// message: the parsed backend message when the body is JSON, stripped plain
// text otherwise (backends behind proxies return HTML error pages).
func (c *Client) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{
			Status:  resp.StatusCode,
			Message: errorMessage(resp.StatusCode, resp.Header.Get("Content-Type"), data),
		}
		c.log.Warn("Backend request failed", map[string]interface{}{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
			"error":  apiErr.Message,
		})
		return nil, apiErr
	}

	return data, nil
}

// errorMessage extracts a human-readable message from an error response.
// The content type is inspected before any JSON parsing is attempted.
func errorMessage(status int, contentType string, body []byte) string {
	if strings.Contains(contentType, "application/json") {
		var envelope struct {
			Message string `json:"message"`
			Error   string `json:"error"`
			Detail  string `json:"detail"`
		}
		if err := json.Unmarshal(body, &envelope); err == nil {
			for _, msg := range []string{envelope.Message, envelope.Error, envelope.Detail} {
				if msg != "" {
					return msg
				}
			}
		}
	}

	if text := stripMarkup(string(body)); text != "" {
		return text
	}
	return http.StatusText(status)
}

// stripMarkup removes HTML tags and collapses whitespace so proxy error
// pages reduce to a short readable line.
func stripMarkup(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}

	text := strings.Join(strings.Fields(b.String()), " ")
	const maxLen = 200
	if len(text) > maxLen {
		text = text[:maxLen]
	}
	return text
}

// decodeReservationList normalizes the envelope shapes the backend has been
// observed to return for reservation lists.
func decodeReservationList(data []byte) ([]models.Reservation, error) {
	var bare []models.Reservation
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare, nil
	}

	var wrapped struct {
		Data         []models.Reservation `json:"data"`
		Reservations []models.Reservation `json:"reservations"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil {
		if wrapped.Data != nil {
			return wrapped.Data, nil
		}
		if wrapped.Reservations != nil {
			return wrapped.Reservations, nil
		}
	}

	return nil, fmt.Errorf("unexpected reservation list response shape")
}

// decodeReservation accepts {data: Reservation} or a bare Reservation.
func decodeReservation(data []byte) (*models.Reservation, error) {
	var wrapped struct {
		Data *models.Reservation `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Data != nil {
		return wrapped.Data, nil
	}

	var bare models.Reservation
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("failed to parse reservation response: %w", err)
	}
	return &bare, nil
}
