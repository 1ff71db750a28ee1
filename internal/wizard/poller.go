package wizard

import (
	"context"
	"time"
)

// poller is the cancellable approval-wait task. Exactly one may be active
// per wizard; starting a new one stops the previous one first.
type poller struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// startPollingLocked launches the approval poll loop. Caller holds w.mu.
func (w *Wizard) startPollingLocked() {
	w.stopPollingLocked()

	ctx, cancel := context.WithCancel(context.Background())
	p := &poller{cancel: cancel, done: make(chan struct{})}
	w.poll = p

	go w.pollLoop(ctx, p)
}

// stopPollingLocked cancels the active poller, if any. It does not wait for
// the loop to drain; an in-flight tick re-checks the step under the lock
// before touching state, so a late tick is a no-op. Caller holds w.mu.
func (w *Wizard) stopPollingLocked() {
	if w.poll != nil {
		w.poll.cancel()
		w.poll = nil
	}
}

// pollLoop re-fetches the reservation list at a fixed interval while the
// active reservation is pending. Each tick is independent: fetch failures
// are logged and swallowed, never surfaced as blocking errors. The loop
// exits when the reservation reaches a terminal status, the wizard leaves
// step 4, or the poller is cancelled.
func (w *Wizard) pollLoop(ctx context.Context, p *poller) {
	defer close(p.done)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.pollTick(ctx, p) {
				return
			}
		}
	}
}

// pollTick runs one poll iteration and reports whether the loop should
// stop. The fetch is bounded by the poll interval so ticks cannot pile up
// behind a slow backend.
func (w *Wizard) pollTick(ctx context.Context, p *poller) bool {
	tickCtx, cancel := context.WithTimeout(ctx, w.pollInterval)
	defer cancel()

	reservations, err := w.gw.ListMyReservations(tickCtx)
	if err != nil {
		w.log.Debug("Approval poll tick failed", map[string]interface{}{
			"visitor": w.visitorKey,
			"error":   err.Error(),
		})
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// The wizard may have been reset or re-submitted while the fetch was in
	// flight; only the poller that is still current may apply updates.
	if w.poll != p || w.step != StepAwaitApproval || w.active == nil {
		return true
	}

	w.reservations = reservations
	for i := range reservations {
		if reservations[i].ID == w.active.ID {
			w.active = &reservations[i]
			break
		}
	}

	if w.active.Status.Terminal() {
		w.log.Info("Reservation reached terminal status", map[string]interface{}{
			"visitor":     w.visitorKey,
			"reservation": w.active.ID.String(),
			"status":      w.active.Status,
		})
		p.cancel()
		w.poll = nil
		return true
	}

	return false
}
