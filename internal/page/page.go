// Package page holds the state of the rendered page: the map's marker layer and
// controls, and the decision dialog. The map view and the dialog draw on it, and the
// control API reads it back and fires the dialog's buttons.
package page

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"parking-companion/internal/mapview"
	"parking-companion/internal/modal"
)

// Dialog button actions.
const (
	ActionPark   = "park"
	ActionNoPark = "no-park"
	ActionFinish = "finish"
)

// maxHistory bounds the remembered alerts and opened windows.
const maxHistory = 20

var (
	// ErrUnknownAction is returned by Trigger for a button the dialog does not have.
	ErrUnknownAction = errors.New("unknown dialog action")

	// ErrNotBound is returned by Trigger before the dialog buttons are wired.
	ErrNotBound = errors.New("dialog actions are not bound")
)

// Notifier receives the alerts shown to the user.
type Notifier interface {
	Notify(message string)
}

// MapState is the map part of the page.
type MapState struct {
	Markers     []mapview.Marker      `json:"markers"`
	RadiusLabel int                   `json:"radius_label"`
	Legend      []mapview.LegendEntry `json:"legend"`
	Windows     []string              `json:"opened_windows"`
}

// DialogState is the decision dialog part of the page.
type DialogState struct {
	Present   bool       `json:"present"`
	View      modal.View `json:"view"`
	Open      bool       `json:"open"`
	TimerText string     `json:"timer"`
	Alerts    []string   `json:"alerts"`
	Redirect  string     `json:"redirect,omitempty"`
	Location  string     `json:"location"`
}

// Page is a headless rendition of the parking page.
type Page struct {
	mu sync.Mutex

	markers     []mapview.Marker
	radiusLabel int
	windows     []string

	hasDialog bool
	actions   *modal.Actions
	view      modal.View
	open      bool
	timerText string
	alerts    []string
	redirect  string
	location  string

	notifier Notifier
}

// New creates a page at location (path plus query). hasDialog tells whether the
// dialog markup is rendered. notifier may be nil.
func New(location string, hasDialog bool, notifier Notifier) *Page {
	return &Page{
		hasDialog: hasDialog,
		view:      modal.ViewIdle,
		location:  location,
		notifier:  notifier,
	}
}

func (p *Page) ClearMarkers() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.markers = nil
}

func (p *Page) AddMarker(m mapview.Marker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.markers = append(p.markers, m)
}

func (p *Page) SetRadiusLabel(radius int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.radiusLabel = radius
}

func (p *Page) OpenWindow(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.windows = appendBounded(p.windows, url)
}

func (p *Page) HasDialog() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasDialog
}

func (p *Page) Bind(actions modal.Actions) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = &actions
}

func (p *Page) ShowView(v modal.View) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view = v
}

func (p *Page) SetOpen(open bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = open
}

func (p *Page) SetTimerText(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timerText = text
}

// Alert shows a message to the user and forwards it to the notifier.
func (p *Page) Alert(message string) {
	p.mu.Lock()
	p.alerts = appendBounded(p.alerts, message)
	n := p.notifier
	p.mu.Unlock()

	if n != nil {
		n.Notify(message)
	}
}

func (p *Page) Redirect(location string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.redirect = location
}

func (p *Page) Location() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.location
}

// SetLocation changes the current path and query.
func (p *Page) SetLocation(location string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.location = location
}

// Trigger clicks a dialog button. The bound handler runs on the caller's goroutine.
func (p *Page) Trigger(ctx context.Context, action string) error {
	p.mu.Lock()
	actions := p.actions
	p.mu.Unlock()

	if actions == nil {
		return ErrNotBound
	}

	var fn func(context.Context)
	switch action {
	case ActionPark:
		fn = actions.Confirm
	case ActionNoPark:
		fn = actions.Decline
	case ActionFinish:
		fn = actions.Finish
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	fn(ctx)
	return nil
}

// Map returns a copy of the map state.
func (p *Page) Map() MapState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return MapState{
		Markers:     append([]mapview.Marker{}, p.markers...),
		RadiusLabel: p.radiusLabel,
		Legend:      mapview.Legend,
		Windows:     append([]string{}, p.windows...),
	}
}

// Dialog returns a copy of the dialog state.
func (p *Page) Dialog() DialogState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return DialogState{
		Present:   p.hasDialog,
		View:      p.view,
		Open:      p.open,
		TimerText: p.timerText,
		Alerts:    append([]string{}, p.alerts...),
		Redirect:  p.redirect,
		Location:  p.location,
	}
}

func appendBounded(list []string, v string) []string {
	list = append(list, v)
	if len(list) > maxHistory {
		list = list[len(list)-maxHistory:]
	}
	return list
}
