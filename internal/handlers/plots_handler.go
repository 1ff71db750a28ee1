package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/rcabanilla/lapida/internal/errors"
	"github.com/rcabanilla/lapida/internal/gateway"
	"github.com/rcabanilla/lapida/internal/geometry"
	"github.com/rcabanilla/lapida/internal/middleware"
	"github.com/rcabanilla/lapida/internal/models"
	"github.com/rcabanilla/lapida/internal/session"
)

// PlotsHandler serves the plot inventory as renderable map shapes and the
// caller's reservation list. Plot reads tolerate anonymous callers; the
// selection highlight and filter flag come from the caller's session when a
// token is present.
type PlotsHandler struct {
	sessions *session.Manager
	gw       gateway.PlotGateway
}

// NewPlotsHandler creates a new PlotsHandler instance.
func NewPlotsHandler(sessions *session.Manager, gw gateway.PlotGateway) *PlotsHandler {
	return &PlotsHandler{
		sessions: sessions,
		gw:       gw,
	}
}

// PlotsRequest represents the query parameters for the plots endpoint.
type PlotsRequest struct {
	OnlyAvailable *bool `form:"only_available"`
}

// PlotsResponse carries the inventory and its rendering. Stale is set when
// the backend refresh failed and the payload is the previously cached data;
// the frontend shows an inline banner but keeps the map populated.
type PlotsResponse struct {
	Plots  []models.Plot     `json:"plots"`
	Shapes []*geometry.Shape `json:"shapes"`
	Count  int               `json:"count"`
	Stale  bool              `json:"stale,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// ReservationsResponse carries the caller's reservation list with the same
// keep-prior-data degradation as PlotsResponse.
type ReservationsResponse struct {
	Reservations []models.Reservation `json:"reservations"`
	Count        int                  `json:"count"`
	Stale        bool                 `json:"stale,omitempty"`
	Error        string               `json:"error,omitempty"`
}

// List handles GET /api/v1/plots.
func (h *PlotsHandler) List(c *gin.Context) {
	var req PlotsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		apierrors.BadRequest(c, "Invalid query parameters", nil)
		return
	}

	var (
		plots       []models.Plot
		fetchErr    error
		selectedKey string
		onlyAvail   bool
	)

	if token := middleware.GetToken(c); token != "" {
		wiz := h.sessions.Get(token)
		plots, fetchErr = wiz.Plots(c.Request.Context())
		selectedKey = wiz.SelectedKey()
		onlyAvail = wiz.OnlyAvailable()
	} else {
		plots, fetchErr = h.gw.ListPlots(c.Request.Context())
	}

	if req.OnlyAvailable != nil {
		onlyAvail = *req.OnlyAvailable
	}

	if fetchErr != nil && len(plots) == 0 {
		apierrors.UpstreamError(c, "Failed to load the plot map", fetchErr)
		return
	}

	shapes := make([]*geometry.Shape, 0, len(plots))
	for _, p := range plots {
		if shape := geometry.ToShape(p, selectedKey, onlyAvail); shape != nil {
			shapes = append(shapes, shape)
		}
	}

	resp := PlotsResponse{
		Plots:  plots,
		Shapes: shapes,
		Count:  len(plots),
	}
	if fetchErr != nil {
		resp.Stale = true
		resp.Error = fetchErr.Error()
	}

	c.JSON(http.StatusOK, resp)
}

// MyReservations handles GET /api/v1/reservations. Requires a token.
func (h *PlotsHandler) MyReservations(c *gin.Context) {
	wiz := h.sessions.Get(middleware.GetToken(c))

	reservations, err := wiz.Reservations(c.Request.Context())
	if err != nil && len(reservations) == 0 {
		apierrors.UpstreamError(c, "Failed to load your reservations", err)
		return
	}

	resp := ReservationsResponse{
		Reservations: reservations,
		Count:        len(reservations),
	}
	if err != nil {
		resp.Stale = true
		resp.Error = err.Error()
	}

	c.JSON(http.StatusOK, resp)
}
