package mapview

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"parking-companion/internal/backend"
	"parking-companion/internal/metrics"
	"parking-companion/internal/model"
	"parking-companion/internal/parse"
)

// Radius slider bounds, in metres.
const (
	MinRadius  = 100
	MaxRadius  = 1000
	RadiusStep = 50
)

// DefaultPollInterval is the refresh period used when none is given.
const DefaultPollInterval = 20 * time.Second

// ErrUnknownMarker is returned when navigating to a marker that is not displayed.
var ErrUnknownMarker = errors.New("marker not found")

// Marker is one parking location drawn on the map.
type Marker struct {
	ID     string  `json:"id"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Color  string  `json:"color"`
	Popup  string  `json:"popup"`
	NavURL string  `json:"nav_url"`
}

// Surface is the part of the page the map view draws on.
type Surface interface {
	ClearMarkers()
	AddMarker(m Marker)
	SetRadiusLabel(radius int)
	OpenWindow(url string)
}

// Lister fetches nearby parking locations.
type Lister interface {
	ListParkings(ctx context.Context, q backend.Query) ([]backend.ParkingItem, error)
}

// ModalOpener is the decision dialog entry point.
type ModalOpener interface {
	Open(ctx context.Context, candidate model.PendingDecision)
}

// Settings is the current state of the map controls.
type Settings struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Radius     int     `json:"radius"`
	OnlyPublic bool    `json:"only_public"`
	Polling    bool    `json:"polling"`
}

// Controller drives the map view: the controls, the marker layer and polling.
type Controller struct {
	mu         sync.Mutex
	lat, lon   float64
	radius     int
	onlyPublic bool
	markers    map[string]Marker
	poll       *poller

	backend Lister
	surface Surface
	modal   ModalOpener
	metrics *metrics.Metrics
}

type poller struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewController creates a map view centred on the page data. modal and m may be nil.
func NewController(page parse.PageData, lister Lister, surface Surface, modal ModalOpener, m *metrics.Metrics) *Controller {
	c := &Controller{
		lat:     page.Lat,
		lon:     page.Lon,
		radius:  page.Radius,
		markers: make(map[string]Marker),
		backend: lister,
		surface: surface,
		modal:   modal,
		metrics: m,
	}
	surface.SetRadiusLabel(c.radius)
	return c
}

// Settings returns the current control values.
func (c *Controller) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Settings{Lat: c.lat, Lon: c.lon, Radius: c.radius, OnlyPublic: c.onlyPublic, Polling: c.poll != nil}
}

// SetOnlyPublic toggles the public-only filter and refreshes.
func (c *Controller) SetOnlyPublic(ctx context.Context, only bool) error {
	c.mu.Lock()
	c.onlyPublic = only
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// InputRadius follows the slider while it is being dragged: the radius and its
// label change, nothing is fetched. Values are clamped and snapped to the slider step.
func (c *Controller) InputRadius(radius int) int {
	radius = snapRadius(radius)
	c.mu.Lock()
	c.radius = radius
	c.mu.Unlock()
	c.surface.SetRadiusLabel(radius)
	return radius
}

// CommitRadius is the slider change event: it refreshes with the current radius.
func (c *Controller) CommitRadius(ctx context.Context) error {
	return c.Refresh(ctx)
}

func snapRadius(r int) int {
	if r < MinRadius {
		return MinRadius
	}
	if r > MaxRadius {
		return MaxRadius
	}
	return MinRadius + ((r-MinRadius+RadiusStep/2)/RadiusStep)*RadiusStep
}

// Refresh clears the markers and reloads them from the backend. A non-success
// status leaves the map empty without reporting anything to the user.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.markers = make(map[string]Marker)
	c.surface.ClearMarkers()
	q := backend.Query{Lat: c.lat, Lon: c.lon, Radius: c.radius, OnlyPublic: c.onlyPublic}
	c.mu.Unlock()

	items, err := c.backend.ListParkings(ctx, q)
	if err != nil {
		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) {
			c.metrics.Refresh("rejected", 0)
			return nil
		}
		c.metrics.Refresh("error", 0)
		return fmt.Errorf("refresh parkings: %w", err)
	}

	markers := make([]Marker, 0, len(items))
	for _, item := range items {
		navURL := NavigationURL(item.Lat, item.Lon)
		popup, err := renderPopup(item, navURL)
		if err != nil {
			log.Printf("Warning: %v", err)
			continue
		}
		markers = append(markers, Marker{
			ID:     string(item.ID),
			Lat:    item.Lat,
			Lon:    item.Lon,
			Color:  MarkerColor(item),
			Popup:  popup,
			NavURL: navURL,
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another refresh may have drawn in the meantime; the latest result replaces it.
	c.markers = make(map[string]Marker, len(markers))
	c.surface.ClearMarkers()
	for _, m := range markers {
		c.markers[m.ID] = m
		c.surface.AddMarker(m)
	}
	c.metrics.Refresh("ok", len(markers))
	return nil
}

// Navigate handles a click on a popup's navigate link: the directions open in a
// new window and the decision dialog is offered for the spot.
func (c *Controller) Navigate(ctx context.Context, markerID string) error {
	c.mu.Lock()
	m, ok := c.markers[markerID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMarker, markerID)
	}

	c.surface.OpenWindow(m.NavURL)
	if c.modal == nil {
		log.Println("Warning: decision dialog is not wired; navigation only")
		return nil
	}
	c.modal.Open(ctx, model.PendingDecision{OsmID: m.ID, Lat: m.Lat, Lon: m.Lon, Nav: m.NavURL})
	return nil
}

// StartPolling refreshes every interval until StopPolling is called or ctx is done.
// It reports false, doing nothing, when polling is already running.
func (c *Controller) StartPolling(ctx context.Context, interval time.Duration) bool {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.poll != nil {
		return false
	}
	loopCtx, cancel := context.WithCancel(ctx)
	p := &poller{cancel: cancel, done: make(chan struct{})}
	c.poll = p
	go c.pollLoop(loopCtx, p, interval)
	return true
}

// StopPolling stops the refresh loop and waits for it to exit. It reports false
// when polling was not running.
func (c *Controller) StopPolling() bool {
	c.mu.Lock()
	p := c.poll
	c.poll = nil
	c.mu.Unlock()
	if p == nil {
		return false
	}
	p.cancel()
	<-p.done
	return true
}

func (c *Controller) pollLoop(ctx context.Context, p *poller, interval time.Duration) {
	defer close(p.done)
	defer func() {
		c.mu.Lock()
		if c.poll == p {
			c.poll = nil
		}
		c.mu.Unlock()
	}()

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Error refreshing parkings: %v", err)
			}
			timer.Reset(interval)
		}
	}
}

// Run performs the initial load and then polls until ctx is done.
func (c *Controller) Run(ctx context.Context, interval time.Duration) {
	log.Println("Starting map view...")
	if err := c.Refresh(ctx); err != nil {
		log.Printf("Error loading parkings: %v", err)
	}
	c.StartPolling(ctx, interval)
	<-ctx.Done()
	c.StopPolling()
	log.Println("Map view shutting down.")
}
