package modal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"parking-companion/internal/backend"
	"parking-companion/internal/metrics"
	"parking-companion/internal/model"
	"parking-companion/internal/parse"
	"parking-companion/internal/store"
)

// DefaultLoginPath is where unauthenticated users are sent.
const DefaultLoginPath = "/login"

// Actions are the dialog's button handlers.
type Actions struct {
	Confirm func(ctx context.Context)
	Decline func(ctx context.Context)
	Finish  func(ctx context.Context)
}

// Display is the part of the page the dialog lives in.
type Display interface {
	// HasDialog reports whether the page carries the dialog markup.
	HasDialog() bool
	Bind(actions Actions)
	ShowView(v View)
	SetOpen(open bool)
	SetTimerText(text string)
	Alert(message string)
	Redirect(location string)
	// Location is the current path plus query string.
	Location() string
}

// Backend is the reservation API used by the dialog.
type Backend interface {
	Reserve(ctx context.Context, osmID string) (*backend.ActionResult, error)
	Finish(ctx context.Context) (*backend.ActionResult, error)
	ActiveReservation(ctx context.Context) (*backend.ActiveStatus, error)
}

// Options configures a Controller. Zero values select the defaults.
type Options struct {
	Tick      time.Duration
	LoginPath string
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// State is what the dialog currently shows.
type State struct {
	View View `json:"view"`
	Open bool `json:"open"`
}

// Controller drives the decision dialog.
type Controller struct {
	mu       sync.Mutex
	attached bool
	state    State

	records   *store.Records
	backend   Backend
	display   Display
	timer     *Timer
	loginPath string
	metrics   *metrics.Metrics
}

// NewController creates a dialog controller. Nothing is bound to the page until
// Init or Open runs.
func NewController(records *store.Records, b Backend, display Display, opts Options) *Controller {
	if opts.LoginPath == "" {
		opts.LoginPath = DefaultLoginPath
	}
	return &Controller{
		state:     State{View: ViewIdle},
		records:   records,
		backend:   b,
		display:   display,
		timer:     NewTimer(opts.Tick, opts.Now),
		loginPath: opts.LoginPath,
		metrics:   opts.Metrics,
	}
}

// State returns the current view and open flag.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// TimerRunning reports whether the duration timer is ticking.
func (c *Controller) TimerRunning() bool {
	return c.timer.Running()
}

// Open is the dialog entry point used by the map view. An active parking takes
// precedence over the offered candidate.
func (c *Controller) Open(ctx context.Context, candidate model.PendingDecision) {
	if !c.ensureDialog() {
		return
	}

	active := c.records.Active(ctx)
	if SelectView(Snapshot{Pending: &candidate, Active: active}) == ViewActive {
		c.showActive(active.StartedAt)
		return
	}

	c.show(ViewDecision)
	c.records.SetPending(ctx, candidate)
	c.setOpen(true)
}

// Confirm reserves the pending spot.
func (c *Controller) Confirm(ctx context.Context) {
	pending := c.records.Pending(ctx)
	if pending == nil || pending.OsmID == "" {
		return
	}

	res, err := c.backend.Reserve(ctx, pending.OsmID)
	if err != nil {
		log.Printf("Error reserving parking %s: %v", pending.OsmID, err)
		c.metrics.Reservation("error")
		c.display.Alert(MsgReserveNetwork)
		return
	}
	if res.AuthRequired() {
		c.metrics.Reservation("auth_required")
		c.redirectToLogin()
		return
	}
	if !res.Succeeded() {
		c.metrics.Reservation(res.Reason())
		switch res.Error {
		case backend.CodeAlreadyReserved:
			if !c.showServerActive(ctx) {
				c.display.Alert(MsgAlreadyParking)
			}
			c.records.ClearPending(ctx)
		case backend.CodeNoSpace:
			c.display.Alert(MsgParkingFull)
		default:
			c.display.Alert(MsgReserveFailed + res.Reason())
		}
		return
	}

	c.metrics.Reservation("ok")
	c.records.ClearPending(ctx)
	c.records.SetActive(ctx, model.ActiveParking{OsmID: string(res.OsmID), StartedAt: res.StartedAt})
	c.show(ViewActive)
	c.startTimer(res.StartedAt)
}

// Decline drops the pending decision and closes the dialog.
func (c *Controller) Decline(ctx context.Context) {
	c.records.ClearPending(ctx)
	c.Close()
}

// Finish ends the active reservation. On failure the dialog stays as it is.
func (c *Controller) Finish(ctx context.Context) {
	res, err := c.backend.Finish(ctx)
	if err != nil {
		log.Printf("Error finishing reservation: %v", err)
		c.metrics.Finish("error")
		c.display.Alert(MsgFinishNetwork)
		return
	}
	if res.AuthRequired() {
		c.metrics.Finish("auth_required")
		c.redirectToLogin()
		return
	}
	if !res.Succeeded() {
		c.metrics.Finish(res.Reason())
		c.display.Alert(MsgFinishFailed + res.Reason())
		return
	}

	c.metrics.Finish("ok")
	c.records.ClearActive(ctx)
	c.timer.Stop()
	c.Close()
}

// Close hides the dialog and stops the timer.
func (c *Controller) Close() {
	c.setOpen(false)
	c.timer.Stop()
}

// Init binds the dialog buttons, restores a pending prompt and syncs the active
// reservation with the server.
func (c *Controller) Init(ctx context.Context) {
	c.attach()
	if pending := c.records.Pending(ctx); pending != nil {
		c.Open(ctx, *pending)
	}
	if err := c.Sync(ctx); err != nil {
		log.Printf("Warning: could not sync the active reservation: %v", err)
	}
}

// Sync asks the server for the active reservation. An active one is persisted and
// shown; an inactive answer drops the local record. A rejected request changes nothing.
func (c *Controller) Sync(ctx context.Context) error {
	status, err := c.backend.ActiveReservation(ctx)
	if err != nil {
		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) {
			c.metrics.Sync("rejected")
			return nil
		}
		c.metrics.Sync("error")
		return fmt.Errorf("sync active reservation: %w", err)
	}

	if status.Active {
		c.metrics.Sync("active")
		c.records.SetActive(ctx, model.ActiveParking{OsmID: string(status.OsmID), StartedAt: status.StartedAt})
		if c.ensureDialog() {
			c.showActive(status.StartedAt)
		}
		return nil
	}

	c.metrics.Sync("inactive")
	c.records.ClearActive(ctx)
	if c.State().View != ViewActive {
		return nil
	}
	// The displayed reservation no longer exists on the server.
	c.timer.Stop()
	switch SelectView(Snapshot{Pending: c.records.Pending(ctx), Server: ServerInactive}) {
	case ViewDecision:
		c.show(ViewDecision)
	default:
		c.show(ViewIdle)
		c.Close()
	}
	return nil
}

func (c *Controller) showServerActive(ctx context.Context) bool {
	status, err := c.backend.ActiveReservation(ctx)
	if err != nil || !status.Active {
		return false
	}
	c.records.SetActive(ctx, model.ActiveParking{OsmID: string(status.OsmID), StartedAt: status.StartedAt})
	c.ensureDialog()
	c.showActive(status.StartedAt)
	return true
}

func (c *Controller) showActive(startedAt string) {
	c.show(ViewActive)
	c.setOpen(true)
	c.startTimer(startedAt)
}

func (c *Controller) startTimer(startedAt string) {
	start, err := parse.StartedAt(startedAt)
	if err != nil {
		log.Printf("Warning: reservation start %q is not a timestamp: %v", startedAt, err)
		c.timer.Stop()
		c.display.SetTimerText(FormatDuration(0))
		return
	}
	c.timer.Start(start, c.display.SetTimerText)
}

func (c *Controller) show(v View) {
	c.mu.Lock()
	c.state.View = v
	c.mu.Unlock()
	c.display.ShowView(v)
}

func (c *Controller) setOpen(open bool) {
	c.mu.Lock()
	c.state.Open = open
	c.mu.Unlock()
	c.display.SetOpen(open)
}

// ensureDialog binds the buttons when the dialog markup is present.
func (c *Controller) ensureDialog() bool {
	if !c.display.HasDialog() {
		log.Println("Warning: decision dialog markup is missing from the page")
		return false
	}
	c.attach()
	return true
}

func (c *Controller) attach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attached || !c.display.HasDialog() {
		return
	}
	c.display.Bind(Actions{Confirm: c.Confirm, Decline: c.Decline, Finish: c.Finish})
	c.attached = true
}

func (c *Controller) redirectToLogin() {
	c.display.Redirect(c.loginPath + "?next=" + encodeURIComponent(c.display.Location()))
}

// encodeURIComponent escapes everything but the characters JavaScript's
// encodeURIComponent leaves alone.
func encodeURIComponent(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if isUnreserved(ch) {
			b.WriteByte(ch)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", ch)
	}
	return b.String()
}

func isUnreserved(ch byte) bool {
	switch {
	case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", ch) >= 0
}
