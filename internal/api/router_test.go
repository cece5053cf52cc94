package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"parking-companion/config"
	"parking-companion/internal/backend"
	"parking-companion/internal/db"
	"parking-companion/internal/mapview"
	"parking-companion/internal/metrics"
	"parking-companion/internal/modal"
	"parking-companion/internal/page"
	"parking-companion/internal/parse"
	"parking-companion/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router      *gin.Engine
	page        *page.Page
	listCalls   *atomic.Int32
	reserveBody atomic.Value
}

func newFakeBackend(t *testing.T, env *testEnv) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/parkings", func(w http.ResponseWriter, r *http.Request) {
		env.listCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"id":101,"lat":50.06,"lon":19.93,"name":"Plac","access_class":"public","fee":"free","percent_occupied":40}]}`))
	})
	mux.HandleFunc("/api/parkings/101/reserve", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(env.reserveBody.Load().(string)))
	})
	mux.HandleFunc("/api/me/active_reservation", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"active":false}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

func newTestEnv(t *testing.T, gormDB *gorm.DB, wp *webpush.Options) *testEnv {
	t.Helper()
	env := &testEnv{listCalls: &atomic.Int32{}}
	env.reserveBody.Store(`{"ok":true,"reservation_id":1,"osm_id":"101","started_at":"2025-05-01T09:00:00"}`)
	srv := newFakeBackend(t, env)

	client, err := backend.NewClient(config.BackendConfig{BaseURL: srv.URL, SessionCookie: "session", Timeout: 5 * time.Second})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	env.page = page.New("/map", true, nil)
	dialog := modal.NewController(store.NewRecords(store.NewMemoryStore()), client, env.page, modal.Options{Tick: time.Hour, Metrics: m})
	t.Cleanup(dialog.Close)
	mapView := mapview.NewController(parse.PageData{Lat: parse.DefaultLat, Lon: parse.DefaultLon, Radius: parse.DefaultRadius}, client, env.page, dialog, m)

	env.router = NewRouter(Deps{
		Server:   config.ServerConfig{CacheTTLSeconds: 60},
		DB:       gormDB,
		Webpush:  wp,
		Map:      mapView,
		Dialog:   dialog,
		Page:     env.page,
		Gatherer: reg,
	})
	return env
}

func (env *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	w := env.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMapRoutes(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := env.do(http.MethodPost, "/ui/map/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)
	markers := decode(t, w)["markers"].([]any)
	require.Len(t, markers, 1)
	assert.Equal(t, "green", markers[0].(map[string]any)["color"])

	w = env.do(http.MethodPut, "/ui/map/radius", `{"radius":520}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 500, decode(t, w)["radius_label"])
	assert.EqualValues(t, 1, env.listCalls.Load())

	w = env.do(http.MethodPut, "/ui/map/radius?commit=1", `{"radius":500}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, env.listCalls.Load())

	w = env.do(http.MethodPut, "/ui/map/only_public", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPut, "/ui/map/only_public", `{"only_public":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["settings"].(map[string]any)["only_public"])

	first := env.do(http.MethodGet, "/ui/map", "")
	require.Equal(t, http.StatusOK, first.Code)
	second := env.do(http.MethodGet, "/ui/map", "")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestNavigateAndReserve(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := env.do(http.MethodPost, "/ui/modal/actions/park", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(http.MethodPost, "/ui/map/markers/999/navigate", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/ui/map/refresh", "").Code)
	w = env.do(http.MethodPost, "/ui/map/markers/101/navigate", "")
	require.Equal(t, http.StatusOK, w.Code)
	dialog := decode(t, w)["dialog"].(map[string]any)
	assert.Equal(t, "decision-pending", dialog["view"])
	assert.Equal(t, true, dialog["open"])
	assert.Equal(t, []string{"https://www.google.com/maps/dir/?api=1&destination=50.06,19.93"}, env.page.Map().Windows)

	w = env.do(http.MethodPost, "/ui/modal/actions/maybe", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, "/ui/modal/actions/park", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "active", body["view"])
	assert.Equal(t, true, body["timer_running"])

	w = env.do(http.MethodPost, "/ui/modal/close", "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["open"])
	assert.Equal(t, false, body["timer_running"])
}

func TestReserveFailureShowsAlert(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.reserveBody.Store(`{"ok":false,"error":"no_space"}`)

	w := env.do(http.MethodPost, "/ui/modal/open", `{"osm":"101","lat":50.06,"lon":19.93}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/ui/modal/actions/park", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, []any{modal.MsgParkingFull}, body["alerts"])
	assert.Equal(t, "decision-pending", body["view"])

	w = env.do(http.MethodPost, "/ui/modal/open", `{"lat":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscriptions(t *testing.T) {
	env := newTestEnv(t, newTestDB(t), nil)

	w := env.do(http.MethodPut, "/api/subscriptions", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())

	w = env.do(http.MethodPut, "/api/subscriptions", `{"endpoint":"https://push.example/abc","p256dh":"key","auth":"auth"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = env.do(http.MethodGet, "/api/subscriptions?endpoint=https://push.example/abc", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://push.example/abc", decode(t, w)["endpoint"])

	w = env.do(http.MethodDelete, "/api/subscriptions", `{"endpoint":"https://push.example/abc"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(http.MethodGet, "/api/subscriptions?endpoint=https://push.example/abc", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/api/subscriptions", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscriptions_NoDatabase(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	w := env.do(http.MethodPut, "/api/subscriptions", `{"endpoint":"e","p256dh":"k","auth":"a"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestVAPIDPublicKey(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, env.do(http.MethodGet, "/api/vapid_public_key", "").Code)

	env = newTestEnv(t, nil, &webpush.Options{VAPIDPublicKey: "pub"})
	w := env.do(http.MethodGet, "/api/vapid_public_key", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"pub"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/ui/map/refresh", "").Code)

	w := env.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `parkd_map_refreshes_total{result="ok"} 1`))
}

func TestGetDialog(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	w := env.do(http.MethodGet, "/ui/modal", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "idle", decode(t, w)["view"])
}
