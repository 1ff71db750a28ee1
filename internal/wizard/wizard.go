package wizard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rcabanilla/lapida/internal/draft"
	"github.com/rcabanilla/lapida/internal/gateway"
	"github.com/rcabanilla/lapida/internal/logger"
	"github.com/rcabanilla/lapida/internal/models"
)

// Step identifies a wizard state. The flow is strictly ordered; step 4 can
// only loop back to step 1 through an explicit reset.
type Step int

const (
	StepDetails Step = iota + 1
	StepMapPick
	StepConfirm
	StepAwaitApproval
)

// String returns the step name used in API payloads and logs.
func (s Step) String() string {
	switch s {
	case StepDetails:
		return "details"
	case StepMapPick:
		return "map_pick"
	case StepConfirm:
		return "confirm"
	case StepAwaitApproval:
		return "await_approval"
	default:
		return "unknown"
	}
}

// Camera zoom levels. An explicit plot selection frames tightly; transition
// recenters (resume into map pick, advance to confirm) pull back slightly.
// Selection wins when both would fire in one action.
const (
	ZoomSelection  = 21
	ZoomTransition = 19
)

// Camera is the map framing target reported to the map surface.
type Camera struct {
	Center models.LatLng `json:"center"`
	Zoom   int           `json:"zoom"`
}

// DefaultPollInterval matches the approval-wait refresh cadence the portal
// frontend was built against.
const DefaultPollInterval = 8 * time.Second

// Wizard-level errors.
var (
	ErrNotAuthenticated    = errors.New("sign in to reserve a plot")
	ErrWrongStep           = errors.New("action not allowed in the current step")
	ErrNoSelection         = errors.New("no plot selected")
	ErrPlotNotFound        = errors.New("plot not found")
	ErrPlotUnavailable     = errors.New("plot is no longer available")
	ErrNoActiveReservation = errors.New("no reservation to cancel")
)

// Config carries the wizard's dependencies. Gateway and Log are required;
// Drafts may be nil when persistence is disabled.
type Config struct {
	Gateway       gateway.PlotGateway
	Drafts        *draft.Manager
	Log           *logger.Logger
	Now           func() time.Time
	VisitorKey    string
	Authenticated bool
	PollInterval  time.Duration
	DefaultCamera Camera
}

// Wizard drives one visitor through the four-step reservation flow. All
// methods serialize on an internal mutex, mirroring the run-to-completion
// event handling of the original UI: a transition either fully applies or
// leaves the state untouched.
type Wizard struct {
	gw     gateway.PlotGateway
	drafts *draft.Manager
	log    *logger.Logger
	now    func() time.Time

	mu            sync.Mutex
	step          Step
	profile       models.Applicant
	relationship  string
	contactLocal  string
	addressLocal  string
	deceased      models.Deceased
	notes         string
	onlyAvailable bool

	plots        []models.Plot
	selected     *models.Plot
	active       *models.Reservation
	reservations []models.Reservation

	camera        Camera
	defaultCamera Camera
	poll          *poller
	pollInterval  time.Duration

	visitorKey    string
	authenticated bool
}

// DetailsInput is the step-1 payload: profile fields supplied by the portal
// plus the local-only override fields.
type DetailsInput struct {
	Profile       models.Applicant
	Deceased      models.Deceased
	Relationship  string
	ContactNumber string
	Address       string
	Notes         string
	OnlyAvailable bool
}

// State is a read-only snapshot of the wizard for the frontend.
type State struct {
	Selected      *models.Plot        `json:"selected_plot,omitempty"`
	Active        *models.Reservation `json:"active_reservation,omitempty"`
	Applicant     models.Applicant    `json:"applicant"`
	Deceased      models.Deceased     `json:"deceased"`
	StepName      string              `json:"step_name"`
	Notes         string              `json:"notes,omitempty"`
	Issues        []FieldIssue        `json:"issues,omitempty"`
	Camera        Camera              `json:"camera"`
	Step          Step                `json:"step"`
	OnlyAvailable bool                `json:"only_available"`
	Polling       bool                `json:"polling"`
}

// New creates a wizard at step 1 and restores any persisted draft for the
// visitor. Draft restore is best effort; failures leave a clean wizard.
func New(cfg Config) *Wizard {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	w := &Wizard{
		gw:            cfg.Gateway,
		drafts:        cfg.Drafts,
		log:           cfg.Log,
		now:           now,
		step:          StepDetails,
		camera:        cfg.DefaultCamera,
		defaultCamera: cfg.DefaultCamera,
		pollInterval:  interval,
		visitorKey:    cfg.VisitorKey,
		authenticated: cfg.Authenticated,
	}

	if w.drafts != nil {
		if d := w.drafts.Restore(context.Background(), w.visitorKey); d != nil {
			w.relationship = d.Relationship
			w.contactLocal = d.ContactNumber
			w.addressLocal = d.Address
			w.deceased = d.Deceased
			w.notes = d.Notes
			w.onlyAvailable = d.OnlyAvailable
			w.log.Debug("Restored wizard draft", map[string]interface{}{
				"saved_at": d.SavedAt,
			})
		}
	}

	return w
}

// applicant merges the account profile with local overrides. Relationship is
// always local; contact and address fall back to local input only when the
// profile left them blank.
func (w *Wizard) applicant() models.Applicant {
	return w.profile.ApplyOverrides(w.relationship, w.contactLocal, w.addressLocal)
}

// SetDetails records applicant/deceased input. Edits are always accepted in
// any step; validation only gates transitions. Each edit queues a debounced
// draft save.
func (w *Wizard) SetDetails(in DetailsInput) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.profile = in.Profile
	w.relationship = in.Relationship
	w.contactLocal = in.ContactNumber
	w.addressLocal = in.Address
	w.deceased = in.Deceased
	w.notes = in.Notes
	w.onlyAvailable = in.OnlyAvailable

	w.queueDraftLocked()
}

// Validate runs the infoValid predicate against the current details.
func (w *Wizard) Validate() []FieldIssue {
	w.mu.Lock()
	defer w.mu.Unlock()
	return validateDetails(w.applicant(), w.deceased, w.now())
}

// Next advances 1→2 or 2→3 when the step's guard holds. A failed guard
// leaves the step unchanged and returns either a *ValidationError or a
// selection error.
func (w *Wizard) Next(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.step {
	case StepDetails:
		if issues := validateDetails(w.applicant(), w.deceased, w.now()); len(issues) > 0 {
			return &ValidationError{Issues: issues}
		}
		w.step = StepMapPick
		// Resume case: keep the prior selection and frame it.
		if w.selected != nil && w.selected.Centroid != nil {
			w.camera = Camera{Center: *w.selected.Centroid, Zoom: ZoomTransition}
		}
		w.log.Info("Wizard advanced to map pick", w.logFields(nil))
		return nil

	case StepMapPick:
		if issues := validateDetails(w.applicant(), w.deceased, w.now()); len(issues) > 0 {
			return &ValidationError{Issues: issues}
		}
		if w.selected == nil {
			return ErrNoSelection
		}
		if !w.selected.Available() {
			return ErrPlotUnavailable
		}
		w.step = StepConfirm
		if w.selected.Centroid != nil {
			w.camera = Camera{Center: *w.selected.Centroid, Zoom: ZoomTransition}
		}
		w.log.Info("Wizard advanced to confirm", w.logFields(nil))
		return nil

	default:
		return ErrWrongStep
	}
}

// Back steps 2→1 or 3→2. Step 4 only exits through Reset.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.step {
	case StepMapPick:
		w.step = StepDetails
	case StepConfirm:
		w.step = StepMapPick
	default:
		return ErrWrongStep
	}
	return nil
}

// Select is the single funnel for both the map-click and list-pick paths.
// It re-fetches the inventory so availability is judged at the moment of
// selection, rejects non-available plots, replaces any prior selection,
// recenters the camera, and invalidates a stale active reservation (the
// prior in-flight reservation context is abandoned client-side, never
// cancelled server-side automatically).
func (w *Wizard) Select(ctx context.Context, key string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepMapPick {
		return ErrWrongStep
	}

	if plots, err := w.gw.ListPlots(ctx); err == nil {
		w.plots = plots
	} else {
		// A stale list is still better than refusing the click; the backend
		// re-checks on submission anyway.
		w.log.Warn("Plot refresh failed during selection", w.logFields(map[string]interface{}{
			"error": err.Error(),
		}))
	}

	plot := findPlot(w.plots, key)
	if plot == nil {
		return ErrPlotNotFound
	}
	if !plot.Available() {
		return ErrPlotUnavailable
	}

	selected := *plot
	w.selected = &selected
	w.active = nil
	if selected.Centroid != nil {
		w.camera = Camera{Center: *selected.Centroid, Zoom: ZoomSelection}
	}

	w.log.Info("Plot selected", w.logFields(map[string]interface{}{
		"plot":   selected.Key,
		"name":   selected.Name,
		"status": selected.Status,
	}))
	return nil
}

// Submit performs the 3→4 transition: compose notes, POST the reservation,
// store the returned record, start the approval poller, and kick off a
// background refresh of plots and reservations. Failure surfaces the backend
// error verbatim and leaves the wizard at step 3 with input intact; the
// draft is not cleared on success (it stays until an explicit reset).
func (w *Wizard) Submit(ctx context.Context) (*models.Reservation, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepConfirm {
		return nil, ErrWrongStep
	}
	if !w.authenticated {
		return nil, ErrNotAuthenticated
	}
	if issues := validateDetails(w.applicant(), w.deceased, w.now()); len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	if w.selected == nil {
		return nil, ErrNoSelection
	}

	// Availability may have changed since step 2; re-check against a fresh
	// inventory when the backend lets us, and trust its rejection otherwise.
	if plots, err := w.gw.ListPlots(ctx); err == nil {
		w.plots = plots
		if current := findPlot(plots, w.selected.Key); current != nil && !current.Available() {
			return nil, ErrPlotUnavailable
		}
	}

	notes := composeNotes(w.applicant(), w.deceased, w.notes)
	reservation, err := w.gw.Reserve(ctx, w.selected.Key, notes)
	if err != nil {
		w.log.Warn("Reservation submission failed", w.logFields(map[string]interface{}{
			"plot":  w.selected.Key,
			"error": err.Error(),
		}))
		return nil, err
	}

	w.active = reservation
	w.step = StepAwaitApproval
	w.startPollingLocked()
	go w.refreshBackground()

	w.log.Info("Reservation submitted", w.logFields(map[string]interface{}{
		"plot":        w.selected.Key,
		"reservation": reservation.ID.String(),
		"status":      reservation.Status,
	}))
	return reservation, nil
}

// CancelActive requests cancellation of the active reservation. Success
// resets the whole wizard (including draft storage) and refreshes data in
// the background; failure leaves the current state untouched.
func (w *Wizard) CancelActive(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active == nil || w.active.ID == "" {
		return ErrNoActiveReservation
	}

	id := w.active.ID.String()
	if err := w.gw.Cancel(ctx, id); err != nil {
		w.log.Warn("Reservation cancellation failed", w.logFields(map[string]interface{}{
			"reservation": id,
			"error":       err.Error(),
		}))
		return err
	}

	w.resetLocked(ctx)
	go w.refreshBackground()

	w.log.Info("Reservation cancelled", w.logFields(map[string]interface{}{
		"reservation": id,
	}))
	return nil
}

// Reset returns the wizard to step 1: selection, active reservation, notes,
// deceased record and overrides are cleared, the persisted draft is removed,
// and the camera returns to the default framing.
func (w *Wizard) Reset(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked(ctx)
}

func (w *Wizard) resetLocked(ctx context.Context) {
	w.stopPollingLocked()
	w.step = StepDetails
	w.selected = nil
	w.active = nil
	w.notes = ""
	w.relationship = ""
	w.contactLocal = ""
	w.addressLocal = ""
	w.deceased = models.Deceased{}
	w.camera = w.defaultCamera

	if w.drafts != nil {
		w.drafts.Clear(ctx, w.visitorKey)
	}
}

// Plots returns the plot inventory, refreshing it from the backend. On
// refresh failure the previously cached inventory is returned alongside the
// error so callers can keep prior data visible behind an error banner.
func (w *Wizard) Plots(ctx context.Context) ([]models.Plot, error) {
	plots, err := w.gw.ListPlots(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		return w.plots, err
	}
	w.plots = plots
	return w.plots, nil
}

// Reservations returns the visitor's reservations, refreshing from the
// backend with the same keep-prior-data degradation as Plots.
func (w *Wizard) Reservations(ctx context.Context) ([]models.Reservation, error) {
	reservations, err := w.gw.ListMyReservations(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		return w.reservations, err
	}
	w.reservations = reservations
	return w.reservations, nil
}

// SelectedKey returns the canonical key of the current selection, or "".
func (w *Wizard) SelectedKey() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.selected == nil {
		return ""
	}
	return w.selected.Key
}

// OnlyAvailable reports the state of the availability filter flag.
func (w *Wizard) OnlyAvailable() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.onlyAvailable
}

// State returns a snapshot for the frontend, including current validation
// issues so the details form can render persistent inline alerts.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	return State{
		Step:          w.step,
		StepName:      w.step.String(),
		Applicant:     w.applicant(),
		Deceased:      w.deceased,
		Notes:         w.notes,
		OnlyAvailable: w.onlyAvailable,
		Issues:        validateDetails(w.applicant(), w.deceased, w.now()),
		Selected:      w.selected,
		Active:        w.active,
		Camera:        w.camera,
		Polling:       w.poll != nil,
	}
}

// Close stops background work. Called when the session is evicted.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopPollingLocked()
}

// refreshBackground re-fetches plots and reservations after a submission or
// cancellation. It is fire-and-forget relative to the step transition that
// triggered it; failures only lose freshness.
func (w *Wizard) refreshBackground() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if plots, err := w.gw.ListPlots(ctx); err == nil {
		w.mu.Lock()
		w.plots = plots
		w.mu.Unlock()
	}
	if reservations, err := w.gw.ListMyReservations(ctx); err == nil {
		w.mu.Lock()
		w.reservations = reservations
		w.mu.Unlock()
	}
}

func (w *Wizard) queueDraftLocked() {
	if w.drafts == nil {
		return
	}
	w.drafts.Queue(w.visitorKey, &draft.Draft{
		Relationship:  w.relationship,
		ContactNumber: w.contactLocal,
		Address:       w.addressLocal,
		Deceased:      w.deceased,
		Notes:         w.notes,
		OnlyAvailable: w.onlyAvailable,
	})
}

func (w *Wizard) logFields(extra map[string]interface{}) map[string]interface{} {
	fields := map[string]interface{}{
		"visitor": w.visitorKey,
		"step":    w.step.String(),
	}
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}

func findPlot(plots []models.Plot, key string) *models.Plot {
	for i := range plots {
		if plots[i].Key == key {
			return &plots[i]
		}
	}
	return nil
}
