package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/rcabanilla/lapida/internal/errors"
	"github.com/rcabanilla/lapida/internal/gateway"
	"github.com/rcabanilla/lapida/internal/middleware"
	"github.com/rcabanilla/lapida/internal/models"
	"github.com/rcabanilla/lapida/internal/session"
	"github.com/rcabanilla/lapida/internal/wizard"
)

// WizardHandler exposes the reservation wizard over HTTP. Every route is
// bound to the caller's session; the RequireToken middleware guarantees a
// token is present before any of these run.
type WizardHandler struct {
	sessions *session.Manager
}

// NewWizardHandler creates a new WizardHandler instance.
func NewWizardHandler(sessions *session.Manager) *WizardHandler {
	return &WizardHandler{
		sessions: sessions,
	}
}

// DetailsRequest is the step-1 payload. Nothing here is required at edit
// time: the wizard accepts partial input and only validates on transitions,
// so the details form can autosave as the visitor types.
type DetailsRequest struct {
	FullName      string          `json:"full_name"`
	Email         string          `json:"email"`
	Relationship  string          `json:"relationship"`
	ContactNumber string          `json:"contact_number"`
	Address       string          `json:"address"`
	Deceased      DeceasedPayload `json:"deceased"`
	Notes         string          `json:"notes"`
	OnlyAvailable bool            `json:"only_available"`
}

// DeceasedPayload mirrors the deceased record fields of the details form.
type DeceasedPayload struct {
	FullName     string `json:"full_name"`
	Age          string `json:"age"`
	DateOfDeath  string `json:"date_of_death"`
	DateOfBurial string `json:"date_of_burial"`
	Remarks      string `json:"remarks"`
}

// SelectRequest identifies the plot picked on the map or from the list.
type SelectRequest struct {
	Key string `json:"key" binding:"required"`
}

// StateResponse wraps the wizard snapshot returned by every wizard route.
type StateResponse struct {
	State wizard.State `json:"state"`
}

// SubmitResponse is returned by a successful submission.
type SubmitResponse struct {
	Reservation *models.Reservation `json:"reservation"`
	State       wizard.State        `json:"state"`
}

func (h *WizardHandler) wizardFor(c *gin.Context) *wizard.Wizard {
	return h.sessions.Get(middleware.GetToken(c))
}

// State handles GET /api/v1/wizard.
func (h *WizardHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, StateResponse{State: h.wizardFor(c).State()})
}

// Details handles PUT /api/v1/wizard/details. Edits are always accepted and
// queue a debounced draft save; validation issues are reported in the
// returned state but never block the edit itself.
func (h *WizardHandler) Details(c *gin.Context) {
	var req DetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	wiz := h.wizardFor(c)
	wiz.SetDetails(wizard.DetailsInput{
		Profile: models.Applicant{
			FullName: req.FullName,
			Email:    req.Email,
		},
		Deceased: models.Deceased{
			FullName:     req.Deceased.FullName,
			Age:          req.Deceased.Age,
			DateOfDeath:  req.Deceased.DateOfDeath,
			DateOfBurial: req.Deceased.DateOfBurial,
			Remarks:      req.Deceased.Remarks,
		},
		Relationship:  req.Relationship,
		ContactNumber: req.ContactNumber,
		Address:       req.Address,
		Notes:         req.Notes,
		OnlyAvailable: req.OnlyAvailable,
	})

	c.JSON(http.StatusOK, StateResponse{State: wiz.State()})
}

// Next handles POST /api/v1/wizard/next.
func (h *WizardHandler) Next(c *gin.Context) {
	wiz := h.wizardFor(c)
	if err := wiz.Next(c.Request.Context()); err != nil {
		respondWizardError(c, err)
		return
	}
	c.JSON(http.StatusOK, StateResponse{State: wiz.State()})
}

// Back handles POST /api/v1/wizard/back.
func (h *WizardHandler) Back(c *gin.Context) {
	wiz := h.wizardFor(c)
	if err := wiz.Back(); err != nil {
		respondWizardError(c, err)
		return
	}
	c.JSON(http.StatusOK, StateResponse{State: wiz.State()})
}

// Select handles POST /api/v1/wizard/select. Both the map click and the
// list pick paths land here.
func (h *WizardHandler) Select(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	wiz := h.wizardFor(c)
	if err := wiz.Select(c.Request.Context(), req.Key); err != nil {
		respondWizardError(c, err)
		return
	}
	c.JSON(http.StatusOK, StateResponse{State: wiz.State()})
}

// Submit handles POST /api/v1/wizard/submit, the step 3 → 4 transition.
func (h *WizardHandler) Submit(c *gin.Context) {
	wiz := h.wizardFor(c)
	reservation, err := wiz.Submit(c.Request.Context())
	if err != nil {
		respondWizardError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SubmitResponse{
		Reservation: reservation,
		State:       wiz.State(),
	})
}

// Cancel handles POST /api/v1/wizard/cancel. A successful cancellation
// resets the whole wizard.
func (h *WizardHandler) Cancel(c *gin.Context) {
	wiz := h.wizardFor(c)
	if err := wiz.CancelActive(c.Request.Context()); err != nil {
		respondWizardError(c, err)
		return
	}
	c.JSON(http.StatusOK, StateResponse{State: wiz.State()})
}

// Reset handles POST /api/v1/wizard/reset.
func (h *WizardHandler) Reset(c *gin.Context) {
	wiz := h.wizardFor(c)
	wiz.Reset(c.Request.Context())
	c.JSON(http.StatusOK, StateResponse{State: wiz.State()})
}

// respondWizardError maps wizard and gateway errors onto the API error
// envelope. Backend messages pass through verbatim so the visitor sees what
// the backend said.
func respondWizardError(c *gin.Context, err error) {
	var validationErr *wizard.ValidationError
	if errors.As(err, &validationErr) {
		details := make(map[string]interface{}, len(validationErr.Issues))
		for _, issue := range validationErr.Issues {
			details[issue.Field] = issue.Reason
		}
		apierrors.BadRequest(c, "Please fix the highlighted fields", details)
		return
	}

	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		apierrors.UpstreamError(c, apiErr.Message, err)
		return
	}

	switch {
	case errors.Is(err, wizard.ErrNotAuthenticated):
		apierrors.Unauthorized(c, err.Error())
	case errors.Is(err, wizard.ErrPlotNotFound):
		apierrors.NotFound(c, "No plot found for that selection")
	case errors.Is(err, wizard.ErrPlotUnavailable):
		apierrors.Conflict(c, "That plot is no longer available, please pick another one")
	case errors.Is(err, wizard.ErrWrongStep),
		errors.Is(err, wizard.ErrNoSelection),
		errors.Is(err, wizard.ErrNoActiveReservation):
		apierrors.BadRequest(c, err.Error(), nil)
	default:
		apierrors.UpstreamError(c, err.Error(), err)
	}
}
