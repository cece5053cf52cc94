package modal

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-companion/internal/backend"
	"parking-companion/internal/model"
	"parking-companion/internal/store"
)

type fakeDisplay struct {
	mu        sync.Mutex
	noDialog  bool
	binds     int
	actions   Actions
	view      View
	open      bool
	timerText string
	ticks     int
	alerts    []string
	redirect  string
	location  string
}

func (d *fakeDisplay) HasDialog() bool { return !d.noDialog }

func (d *fakeDisplay) Bind(a Actions) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.binds++
	d.actions = a
}

func (d *fakeDisplay) ShowView(v View) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.view = v
}

func (d *fakeDisplay) SetOpen(open bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = open
}

func (d *fakeDisplay) SetTimerText(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timerText = text
	d.ticks++
}

func (d *fakeDisplay) Alert(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alerts = append(d.alerts, msg)
}

func (d *fakeDisplay) Redirect(loc string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.redirect = loc
}

func (d *fakeDisplay) Location() string { return d.location }

func (d *fakeDisplay) tickCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ticks
}

type fakeBackend struct {
	reserve      *backend.ActionResult
	reserveErr   error
	finish       *backend.ActionResult
	finishErr    error
	status       *backend.ActiveStatus
	statusErr    error
	reserveCalls []string
}

func (b *fakeBackend) Reserve(_ context.Context, osmID string) (*backend.ActionResult, error) {
	b.reserveCalls = append(b.reserveCalls, osmID)
	return b.reserve, b.reserveErr
}

func (b *fakeBackend) Finish(context.Context) (*backend.ActionResult, error) {
	return b.finish, b.finishErr
}

func (b *fakeBackend) ActiveReservation(context.Context) (*backend.ActiveStatus, error) {
	if b.statusErr != nil {
		return nil, b.statusErr
	}
	if b.status == nil {
		return &backend.ActiveStatus{}, nil
	}
	return b.status, nil
}

var candidate = model.PendingDecision{OsmID: "123", Lat: 50.06, Lon: 19.93, Nav: "https://www.google.com/maps/dir/?api=1&destination=50.06,19.93"}

func fixedNow() time.Time { return time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC) }

func newTestController(t *testing.T, b *fakeBackend) (*Controller, *fakeDisplay, *store.Records) {
	t.Helper()
	display := &fakeDisplay{location: "/map?q=a b"}
	records := store.NewRecords(store.NewMemoryStore())
	c := NewController(records, b, display, Options{Tick: time.Hour, Now: fixedNow})
	t.Cleanup(c.Close)
	return c, display, records
}

func TestFormatDuration(t *testing.T) {
	testCases := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00"},
		{59900 * time.Millisecond, "00:00:59"},
		{90061000 * time.Millisecond, "25:01:01"},
		{-5 * time.Second, "00:00:00"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, FormatDuration(tc.in), tc.in.String())
	}
}

func TestSelectView(t *testing.T) {
	active := &model.ActiveParking{OsmID: "1", StartedAt: "2025-05-01T09:00:00"}
	testCases := []struct {
		name string
		in   Snapshot
		want View
	}{
		{"nothing", Snapshot{}, ViewIdle},
		{"pending only", Snapshot{Pending: &candidate}, ViewDecision},
		{"active wins over pending", Snapshot{Pending: &candidate, Active: active}, ViewActive},
		{"active without start", Snapshot{Pending: &candidate, Active: &model.ActiveParking{OsmID: "1"}}, ViewDecision},
		{"server active", Snapshot{Server: ServerActive}, ViewActive},
		{"server inactive drops local", Snapshot{Active: active, Server: ServerInactive}, ViewIdle},
		{"server inactive keeps pending", Snapshot{Pending: &candidate, Active: active, Server: ServerInactive}, ViewDecision},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SelectView(tc.in))
		})
	}
}

func TestEncodeURIComponent(t *testing.T) {
	assert.Equal(t, "%2Fmap%3Fq%3Da%20b", encodeURIComponent("/map?q=a b"))
	assert.Equal(t, "a-_.!~*'()z", encodeURIComponent("a-_.!~*'()z"))
	assert.Equal(t, "%C5%BC", encodeURIComponent("ż"))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("missing dialog", func(t *testing.T) {
		c, display, records := newTestController(t, &fakeBackend{})
		display.noDialog = true
		c.Open(ctx, candidate)
		assert.Nil(t, records.Pending(ctx))
		assert.Equal(t, State{View: ViewIdle}, c.State())
		assert.Zero(t, display.binds)
	})

	t.Run("decision", func(t *testing.T) {
		c, display, records := newTestController(t, &fakeBackend{})
		c.Open(ctx, candidate)
		assert.Equal(t, &candidate, records.Pending(ctx))
		assert.Equal(t, State{View: ViewDecision, Open: true}, c.State())
		assert.Equal(t, ViewDecision, display.view)
		assert.True(t, display.open)
		assert.Equal(t, 1, display.binds)
		assert.False(t, c.TimerRunning())
	})

	t.Run("active parking ignores the candidate", func(t *testing.T) {
		c, display, records := newTestController(t, &fakeBackend{})
		records.SetActive(ctx, model.ActiveParking{OsmID: "9", StartedAt: "2025-05-01T09:00:00"})
		c.Open(ctx, candidate)
		assert.Nil(t, records.Pending(ctx))
		assert.Equal(t, State{View: ViewActive, Open: true}, c.State())
		assert.True(t, c.TimerRunning())
		assert.Equal(t, "01:00:00", display.timerText)
	})
}

func TestConfirm_NoPendingDoesNothing(t *testing.T) {
	b := &fakeBackend{}
	c, display, _ := newTestController(t, b)
	c.Confirm(context.Background())
	assert.Empty(t, b.reserveCalls)
	assert.Empty(t, display.alerts)
}

func TestConfirm_Success(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{reserve: &backend.ActionResult{
		StatusCode: http.StatusOK, OK: true, ReservationID: 7, OsmID: "123", StartedAt: "2025-05-01T09:58:30.5",
	}}
	c, display, records := newTestController(t, b)
	c.Open(ctx, candidate)

	c.Confirm(ctx)

	assert.Equal(t, []string{"123"}, b.reserveCalls)
	assert.Nil(t, records.Pending(ctx))
	assert.Equal(t, &model.ActiveParking{OsmID: "123", StartedAt: "2025-05-01T09:58:30.5"}, records.Active(ctx))
	assert.Equal(t, ViewActive, c.State().View)
	assert.True(t, c.TimerRunning())
	assert.Equal(t, "00:01:29", display.timerText)
	assert.Empty(t, display.alerts)
}

func TestConfirm_AuthRequired(t *testing.T) {
	testCases := []struct {
		name string
		res  *backend.ActionResult
	}{
		{"status 401", &backend.ActionResult{StatusCode: http.StatusUnauthorized}},
		{"error code", &backend.ActionResult{StatusCode: http.StatusForbidden, Error: backend.CodeAuthRequired}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			c, display, records := newTestController(t, &fakeBackend{reserve: tc.res})
			c.Open(ctx, candidate)
			c.Confirm(ctx)
			assert.Equal(t, "/login?next=%2Fmap%3Fq%3Da%20b", display.redirect)
			assert.NotNil(t, records.Pending(ctx))
		})
	}
}

func TestConfirm_AlreadyReserved(t *testing.T) {
	ctx := context.Background()
	res := &backend.ActionResult{StatusCode: http.StatusConflict, Error: backend.CodeAlreadyReserved}

	t.Run("server shows the active parking", func(t *testing.T) {
		b := &fakeBackend{reserve: res, status: &backend.ActiveStatus{Active: true, OsmID: "55", StartedAt: "2025-05-01T08:00:00Z"}}
		c, display, records := newTestController(t, b)
		c.Open(ctx, candidate)
		c.Confirm(ctx)

		assert.Empty(t, display.alerts)
		assert.Nil(t, records.Pending(ctx))
		assert.Equal(t, &model.ActiveParking{OsmID: "55", StartedAt: "2025-05-01T08:00:00Z"}, records.Active(ctx))
		assert.Equal(t, State{View: ViewActive, Open: true}, c.State())
		assert.Equal(t, "02:00:00", display.timerText)
	})

	t.Run("nothing to show", func(t *testing.T) {
		c, display, records := newTestController(t, &fakeBackend{reserve: res})
		c.Open(ctx, candidate)
		c.Confirm(ctx)

		assert.Equal(t, []string{MsgAlreadyParking}, display.alerts)
		assert.Nil(t, records.Pending(ctx))
		assert.Equal(t, ViewDecision, c.State().View)
	})
}

func TestConfirm_Failures(t *testing.T) {
	testCases := []struct {
		name  string
		res   *backend.ActionResult
		err   error
		alert string
	}{
		{"no space", &backend.ActionResult{StatusCode: http.StatusConflict, Error: backend.CodeNoSpace}, nil, MsgParkingFull},
		{"error code", &backend.ActionResult{StatusCode: http.StatusBadRequest, Error: "bad_osm_id"}, nil, MsgReserveFailed + "bad_osm_id"},
		{"bare status", &backend.ActionResult{StatusCode: http.StatusInternalServerError}, nil, MsgReserveFailed + "500"},
		{"ok false", &backend.ActionResult{StatusCode: http.StatusOK}, nil, MsgReserveFailed + "200"},
		{"network", nil, backend.ErrTransport, MsgReserveNetwork},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			c, display, records := newTestController(t, &fakeBackend{reserve: tc.res, reserveErr: tc.err})
			c.Open(ctx, candidate)
			c.Confirm(ctx)

			assert.Equal(t, []string{tc.alert}, display.alerts)
			assert.Equal(t, &candidate, records.Pending(ctx))
			assert.Nil(t, records.Active(ctx))
			assert.Equal(t, State{View: ViewDecision, Open: true}, c.State())
		})
	}
}

func TestDecline(t *testing.T) {
	ctx := context.Background()
	c, display, records := newTestController(t, &fakeBackend{})
	c.Open(ctx, candidate)
	c.Decline(ctx)
	assert.Nil(t, records.Pending(ctx))
	assert.False(t, c.State().Open)
	assert.False(t, display.open)
}

func TestFinish(t *testing.T) {
	ctx := context.Background()
	active := model.ActiveParking{OsmID: "9", StartedAt: "2025-05-01T09:00:00"}

	t.Run("success", func(t *testing.T) {
		c, display, records := newTestController(t, &fakeBackend{finish: &backend.ActionResult{StatusCode: http.StatusOK, OK: true}})
		records.SetActive(ctx, active)
		c.Open(ctx, candidate)
		require.True(t, c.TimerRunning())

		c.Finish(ctx)
		assert.Nil(t, records.Active(ctx))
		assert.False(t, c.TimerRunning())
		assert.False(t, c.State().Open)
		assert.Empty(t, display.alerts)
	})

	t.Run("failure keeps the dialog", func(t *testing.T) {
		c, display, records := newTestController(t, &fakeBackend{finish: &backend.ActionResult{StatusCode: http.StatusNotFound, Error: "no_active"}})
		records.SetActive(ctx, active)
		c.Open(ctx, candidate)

		c.Finish(ctx)
		assert.Equal(t, []string{MsgFinishFailed + "no_active"}, display.alerts)
		assert.NotNil(t, records.Active(ctx))
		assert.True(t, c.State().Open)
		assert.True(t, c.TimerRunning())
	})

	t.Run("network", func(t *testing.T) {
		c, display, _ := newTestController(t, &fakeBackend{finishErr: backend.ErrTransport})
		c.Finish(ctx)
		assert.Equal(t, []string{MsgFinishNetwork}, display.alerts)
	})

	t.Run("auth required", func(t *testing.T) {
		c, display, records := newTestController(t, &fakeBackend{finish: &backend.ActionResult{StatusCode: http.StatusUnauthorized}})
		records.SetActive(ctx, active)
		c.Finish(ctx)
		assert.Equal(t, "/login?next=%2Fmap%3Fq%3Da%20b", display.redirect)
		assert.NotNil(t, records.Active(ctx))
	})
}

func TestInit(t *testing.T) {
	ctx := context.Background()

	t.Run("binds once and restores the prompt", func(t *testing.T) {
		c, display, records := newTestController(t, &fakeBackend{})
		records.SetPending(ctx, candidate)

		c.Init(ctx)
		c.Init(ctx)

		assert.Equal(t, 1, display.binds)
		assert.Equal(t, State{View: ViewDecision, Open: true}, c.State())
	})

	t.Run("server active overrides the prompt", func(t *testing.T) {
		b := &fakeBackend{status: &backend.ActiveStatus{Active: true, OsmID: "77", StartedAt: "2025-05-01T09:59:00+00:00"}}
		c, display, records := newTestController(t, b)
		records.SetPending(ctx, candidate)

		c.Init(ctx)
		assert.Equal(t, &model.ActiveParking{OsmID: "77", StartedAt: "2025-05-01T09:59:00+00:00"}, records.Active(ctx))
		assert.Equal(t, State{View: ViewActive, Open: true}, c.State())
		assert.Equal(t, "00:01:00", display.timerText)
	})

	t.Run("server inactive clears the local record", func(t *testing.T) {
		c, _, records := newTestController(t, &fakeBackend{})
		records.SetActive(ctx, model.ActiveParking{OsmID: "9", StartedAt: "2025-05-01T09:00:00"})
		c.Open(ctx, candidate)
		require.Equal(t, ViewActive, c.State().View)

		c.Init(ctx)
		assert.Nil(t, records.Active(ctx))
		assert.Equal(t, State{View: ViewIdle}, c.State())
		assert.False(t, c.TimerRunning())
	})

	t.Run("failures leave the state", func(t *testing.T) {
		for _, err := range []error{backend.ErrTransport, &backend.StatusError{Method: "GET", Path: "/api/me/active_reservation", StatusCode: 500}} {
			c, _, records := newTestController(t, &fakeBackend{statusErr: err})
			active := model.ActiveParking{OsmID: "9", StartedAt: "2025-05-01T09:00:00"}
			records.SetActive(ctx, active)

			c.Init(ctx)
			assert.Equal(t, &active, records.Active(ctx))
		}
	})

	t.Run("bound actions drive the controller", func(t *testing.T) {
		c, display, records := newTestController(t, &fakeBackend{})
		c.Init(ctx)
		c.Open(ctx, candidate)
		display.actions.Decline(ctx)
		assert.Nil(t, records.Pending(ctx))
		assert.False(t, c.State().Open)
	})
}

func TestTimer_StopHaltsTicks(t *testing.T) {
	display := &fakeDisplay{}
	timer := NewTimer(2*time.Millisecond, nil)
	timer.Start(time.Now(), display.SetTimerText)

	require.Eventually(t, func() bool { return display.tickCount() >= 3 }, time.Second, time.Millisecond)
	timer.Stop()
	stopped := display.tickCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, display.tickCount())
	assert.False(t, timer.Running())
}

func TestTimer_RestartReplacesRun(t *testing.T) {
	var mu sync.Mutex
	var texts []string
	tick := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		texts = append(texts, s)
	}

	timer := NewTimer(time.Hour, fixedNow)
	timer.Start(fixedNow().Add(-time.Minute), tick)
	timer.Start(fixedNow().Add(-time.Hour), tick)
	defer timer.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"00:01:00", "01:00:00"}, texts)
	assert.True(t, timer.Running())
}

func TestStartTimer_BadTimestamp(t *testing.T) {
	ctx := context.Background()
	c, display, records := newTestController(t, &fakeBackend{})
	records.SetActive(ctx, model.ActiveParking{OsmID: "9", StartedAt: "yesterday"})
	c.Open(ctx, candidate)
	assert.Equal(t, ViewActive, c.State().View)
	assert.False(t, c.TimerRunning())
	assert.Equal(t, "00:00:00", display.timerText)
}
