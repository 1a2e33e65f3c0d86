package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"openair-backend/config"
	"openair-backend/internal/access"
	"openair-backend/internal/dashboard"
	"openair-backend/internal/db"
	"openair-backend/internal/ledger"
	"openair-backend/internal/metrics"
	"openair-backend/internal/mock"
	"openair-backend/internal/model"
	"openair-backend/internal/mw"
	"openair-backend/internal/source"
	"openair-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type downSource struct{}

var errDown = errors.New("upstream down")

func (downSource) FetchReading(context.Context) (model.Reading, error) { return model.Reading{}, errDown }
func (downSource) FetchTransactions(context.Context, int) ([]model.Transaction, error) {
	return nil, errDown
}
func (downSource) FetchBalance(context.Context, string) (model.Balance, error) {
	return model.Balance{}, errDown
}

type testEnv struct {
	router *gin.Engine
	store  store.Store
}

func newTestEnv(t *testing.T, upstream source.Source, policy config.FallbackPolicy) *testEnv {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	s := store.NewGormStore(gormDB)

	logger := zap.NewNop()
	gen := mock.NewGenerator()
	if upstream == nil {
		upstream = source.NewMock(gen, 0)
	}
	policies := source.Policies{Readings: policy, Transactions: policy, Balances: policy}
	src := source.NewFallback(upstream, policies, gen, logger, nil)

	sessions := access.NewSessions(store.NewFlags(s), time.Minute, logger)
	dash := dashboard.New(dashboard.Intervals{Readings: time.Hour, Balance: time.Hour}, src, src, sessions, nil, logger, nil)
	_ = dash.RefreshReading(context.Background())

	cfg := config.Default().Server
	cfg.RateLimitPerSec = 1000
	cfg.RateLimitBurst = 1000

	router := NewRouter(cfg, Deps{
		Store:     s,
		Sessions:  sessions,
		Dashboard: dash,
		Ledger:    ledger.New(src, logger),
		Sensors:   gen,
		WebPush:   &webpush.Options{VAPIDPublicKey: "test-public-key"},
	}, logger, metrics.New("test"))
	return &testEnv{router: router, store: s}
}

// client replays the session cookie like a browser would.
type client struct {
	t      *testing.T
	env    *testEnv
	cookie *http.Cookie
}

func (e *testEnv) client(t *testing.T) *client {
	return &client{t: t, env: e}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	c.env.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == mw.SessionCookie {
			c.cookie = ck
		}
	}
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil, config.FallbackLastKnownGood)
	w := env.client(t).do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil, config.FallbackLastKnownGood)
	c := env.client(t)
	c.do(http.MethodGet, "/api/session", nil)

	w := c.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")
}

func TestSession_GatedByDefault(t *testing.T) {
	env := newTestEnv(t, nil, config.FallbackLastKnownGood)
	c := env.client(t)

	w := c.do(http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, access.View{State: access.StateGated}, decode[access.View](t, w))
	require.NotNil(t, c.cookie)

	for _, path := range []string{"/api/readings/current", "/api/transactions", "/api/sensors"} {
		w := c.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodPost, "/api/transactions", ledger.Entry{SensorID: "sensor-1"}).Code)
	assert.Equal(t, http.StatusNoContent, c.do(http.MethodGet, "/api/balance", nil).Code)
}

func TestSession_DemoFlow(t *testing.T) {
	env := newTestEnv(t, nil, config.FallbackLastKnownGood)
	c := env.client(t)

	w := c.do(http.MethodPost, "/api/session/demo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, access.View{State: access.StateDemo, ShowDemoBanner: true, CanView: true}, decode[access.View](t, w))

	v, ok, err := env.store.GetFlag(context.Background(), c.cookie.Value, access.DemoModeKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	w = c.do(http.MethodGet, "/api/readings/current", nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[dashboard.Snapshot](t, w)
	assert.Equal(t, 58.0, snap.Reading.AQI)
	assert.Equal(t, "moderate", string(snap.Bands.AQI))
	assert.Len(t, snap.Reading.HistoricalData, 7)
	assert.False(t, snap.Fallback)

	w = c.do(http.MethodDelete, "/api/session/demo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, access.StateGated, decode[access.View](t, w).State)
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodGet, "/api/readings/current", nil).Code)
}

func TestSession_WalletTakesPrecedence(t *testing.T) {
	env := newTestEnv(t, nil, config.FallbackLastKnownGood)
	c := env.client(t)
	c.do(http.MethodPost, "/api/session/demo", nil)

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPut, "/api/session/wallet", gin.H{}).Code)

	w := c.do(http.MethodPut, "/api/session/wallet", gin.H{"publicKey": "Wallet111"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, access.View{State: access.StateConnected, CanView: true, Wallet: "Wallet111"}, decode[access.View](t, w))

	w = c.do(http.MethodGet, "/api/balance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	b := decode[model.Balance](t, w)
	assert.Equal(t, "Wallet111", b.Owner)
	assert.Equal(t, mock.MockBalance, b.Amount)
	assert.Equal(t, model.TokenSymbol, b.Symbol)

	w = c.do(http.MethodDelete, "/api/session/wallet", nil)
	assert.Equal(t, access.View{State: access.StateDemo, ShowDemoBanner: true, CanView: true}, decode[access.View](t, w))
}

func TestSession_ClientsAreIsolated(t *testing.T) {
	env := newTestEnv(t, nil, config.FallbackLastKnownGood)
	a, b := env.client(t), env.client(t)

	a.do(http.MethodPost, "/api/session/demo", nil)
	b.do(http.MethodGet, "/api/session", nil)

	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/sensors", nil).Code)
	assert.Equal(t, http.StatusForbidden, b.do(http.MethodGet, "/api/sensors", nil).Code)
}

func TestTransactions(t *testing.T) {
	env := newTestEnv(t, nil, config.FallbackLastKnownGood)
	c := env.client(t)
	c.do(http.MethodPost, "/api/session/demo", nil)

	w := c.do(http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Transaction](t, w), 10)

	w = c.do(http.MethodGet, "/api/transactions?limit=3", nil)
	assert.Len(t, decode[[]model.Transaction](t, w), 3)

	w = c.do(http.MethodGet, "/api/transactions?limit=0", nil)
	assert.JSONEq(t, `[]`, w.Body.String())

	for _, bad := range []string{"-1", "ten"} {
		w = c.do(http.MethodGet, "/api/transactions?limit="+bad, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}

	w = c.do(http.MethodPost, "/api/transactions", ledger.Entry{SensorID: "Sensor 2", AQI: 130, PM25: 48, Humidity: 40})
	require.Equal(t, http.StatusCreated, w.Code)
	sig := decode[map[string]string](t, w)["signature"]
	assert.NotEmpty(t, sig)

	w = c.do(http.MethodGet, "/api/transactions?limit=1", nil)
	txs := decode[[]model.Transaction](t, w)
	require.Len(t, txs, 1)
	assert.Equal(t, sig, txs[0].Signature)
	assert.Equal(t, "sensor-2", txs[0].SensorID)

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/transactions", ledger.Entry{SensorID: "x", AQI: 1}).Code)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/transactions", ledger.Entry{SensorID: "sensor-1", AQI: -5}).Code)
}

func TestSensors(t *testing.T) {
	env := newTestEnv(t, nil, config.FallbackLastKnownGood)
	c := env.client(t)
	c.do(http.MethodPost, "/api/session/demo", nil)

	w := c.do(http.MethodGet, "/api/sensors", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sensors := decode[[]model.SensorLocation](t, w)
	require.Len(t, sensors, 5)
	assert.Equal(t, "unhealthy", string(sensors[2].Status))
}

func TestSensors_CachedBodyNeverReachesGatedClient(t *testing.T) {
	env := newTestEnv(t, nil, config.FallbackLastKnownGood)
	demo := env.client(t)
	demo.do(http.MethodPost, "/api/session/demo", nil)

	w := demo.do(http.MethodGet, "/api/sensors", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get(mw.CacheHeader))
	w = demo.do(http.MethodGet, "/api/sensors", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get(mw.CacheHeader))
	cached := w.Body.String()

	gated := env.client(t)
	w = gated.do(http.MethodGet, "/api/sensors", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get(mw.CacheHeader))
	assert.NotEqual(t, cached, w.Body.String())
	assert.NotContains(t, w.Body.String(), "sensor-1")
}

func TestClassify(t *testing.T) {
	env := newTestEnv(t, nil, config.FallbackLastKnownGood)
	c := env.client(t)

	testCases := []struct {
		query string
		code  int
		band  string
	}{
		{"value=42&metric=AQI", http.StatusOK, "good"},
		{"value=50&metric=aqi", http.StatusOK, "good"},
		{"value=151&metric=aqi", http.StatusOK, "hazardous"},
		{"value=35.4&metric=PM2.5", http.StatusOK, "moderate"},
		{"value=-4", http.StatusOK, "good"},
		{"value=24&metric=temperature", http.StatusBadRequest, ""},
		{"value=24&metric=ozone", http.StatusBadRequest, ""},
		{"value=abc&metric=aqi", http.StatusBadRequest, ""},
		{"value=NaN&metric=aqi", http.StatusBadRequest, ""},
		{"metric=aqi", http.StatusBadRequest, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.query, func(t *testing.T) {
			w := c.do(http.MethodGet, "/api/classify?"+tc.query, nil)
			require.Equal(t, tc.code, w.Code)
			if tc.code == http.StatusOK {
				assert.Equal(t, tc.band, string(decode[classifyResponse](t, w).Band))
			}
		})
	}
}

func TestUpstreamDown_FallbackServesDefaults(t *testing.T) {
	env := newTestEnv(t, downSource{}, config.FallbackFixedDefault)
	c := env.client(t)
	c.do(http.MethodPost, "/api/session/demo", nil)

	w := c.do(http.MethodGet, "/api/readings/current", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[dashboard.Snapshot](t, w).Fallback)

	w = c.do(http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Transaction](t, w), 1)

	c.do(http.MethodPut, "/api/session/wallet", gin.H{"publicKey": "Wallet111"})
	w = c.do(http.MethodGet, "/api/balance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	b := decode[model.Balance](t, w)
	assert.Equal(t, mock.FallbackBalance, b.Amount)
	assert.True(t, b.Fallback)
}

func TestUpstreamDown_PropagateError(t *testing.T) {
	env := newTestEnv(t, downSource{}, config.FallbackPropagateError)
	c := env.client(t)
	c.do(http.MethodPost, "/api/session/demo", nil)
	c.do(http.MethodPut, "/api/session/wallet", gin.H{"publicKey": "Wallet111"})

	for _, path := range []string{"/api/readings/current", "/api/transactions", "/api/balance"} {
		w := c.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
}

func TestSubscriptions(t *testing.T) {
	env := newTestEnv(t, nil, config.FallbackLastKnownGood)
	c := env.client(t)

	w := c.do(http.MethodPut, "/api/subscriptions", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())

	endpoint := "https://push.example/abc%2Bdef"
	w = c.do(http.MethodPut, "/api/subscriptions", gin.H{"endpoint": endpoint, "p256dh": "key", "auth": "auth"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = c.do(http.MethodGet, "/api/subscriptions?endpoint="+endpoint, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, endpoint, decode[subscriptionResponse](t, w).Endpoint)

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodGet, "/api/subscriptions", nil).Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/subscriptions?endpoint=https://push.example/none", nil).Code)

	w = c.do(http.MethodDelete, "/api/subscriptions", gin.H{"endpoint": endpoint})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/subscriptions?endpoint="+endpoint, nil).Code)
}

func TestVAPIDPublicKey(t *testing.T) {
	env := newTestEnv(t, nil, config.FallbackLastKnownGood)
	w := env.client(t).do(http.MethodGet, "/api/vapid_public_key", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"test-public-key"}`, w.Body.String())

	h := NewHandler(Deps{}, zap.NewNop())
	r := gin.New()
	r.GET("/k", h.GetVAPIDPublicKey)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/k", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
