package health

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vault_bot/internal/engine"
	"vault_bot/internal/indicator"
	"vault_bot/internal/models"
	"vault_bot/internal/modules/health/service"
	"vault_bot/pkg/logger"
)

type stubEngine struct {
	state   engine.State
	tracker *indicator.Tracker
	logs    []models.LogEntry
	limit   int
}

func (s *stubEngine) State() engine.State        { return s.state }
func (s *stubEngine) Config() engine.Config      { return engine.DefaultConfig() }
func (s *stubEngine) Market() *indicator.Tracker { return s.tracker }
func (s *stubEngine) Logs(limit int) []models.LogEntry {
	s.limit = limit
	return s.logs
}

type stubFeed struct{ connected, authorized bool }

func (s stubFeed) Connected() bool  { return s.connected }
func (s stubFeed) Authorized() bool { return s.authorized }

type stubTrades struct {
	got models.TradeFilter
	out []models.Trade
	err error
}

func (s *stubTrades) ListTrades(_ context.Context, f models.TradeFilter) ([]models.Trade, error) {
	s.got = f
	return s.out, s.err
}

type fixture struct {
	srv    *httptest.Server
	state  *service.State
	engine *stubEngine
	trades *stubTrades
}

func newFixture(t *testing.T, feed stubFeed) *fixture {
	t.Helper()
	logger.UseNop()

	f := &fixture{
		state: service.NewState(),
		engine: &stubEngine{
			state:   engine.NewState(engine.DefaultConfig()),
			tracker: indicator.NewTracker(indicator.DefaultConfig()),
		},
		trades: &stubTrades{},
	}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	f.srv = httptest.NewServer(newMux(handlers{state: f.state, engine: f.engine, feed: feed, trades: f.trades}, metrics))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) get(t *testing.T, path string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestReadyz(t *testing.T) {
	f := newFixture(t, stubFeed{connected: true, authorized: true})

	code, _ := f.get(t, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	f.state.SetReady(true)
	code, body := f.get(t, "/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", string(body))
}

func TestReadyz_FeedNotAuthorized(t *testing.T) {
	f := newFixture(t, stubFeed{connected: true})
	f.state.SetReady(true)

	code, _ := f.get(t, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestLivezAndMetrics(t *testing.T) {
	f := newFixture(t, stubFeed{})

	code, body := f.get(t, "/livez")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", string(body))

	code, body = f.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "# metrics", string(body))
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, stubFeed{connected: true})
	f.engine.state.IsRunning = true

	code, body := f.get(t, "/healthz")
	require.Equal(t, http.StatusOK, code)

	var got map[string]any
	require.NoError(t, sonic.Unmarshal(body, &got))
	assert.Equal(t, true, got["connected"])
	assert.Equal(t, false, got["authorized"])
	assert.Equal(t, true, got["running"])
	assert.Equal(t, "TRAINING", got["mode"])
}

func TestStatus(t *testing.T) {
	f := newFixture(t, stubFeed{})
	f.engine.state.Balance = 42.5
	f.engine.tracker.OnTick("R_100", 1234.5)

	code, body := f.get(t, "/status")
	require.Equal(t, http.StatusOK, code)

	var got statusResponse
	require.NoError(t, sonic.Unmarshal(body, &got))
	assert.Equal(t, 42.5, got.State.Balance)
	assert.Equal(t, "TRAINING", got.Mode)
	assert.False(t, got.CanStartLive)
	require.Len(t, got.Indicators, len(models.Whitelist))
	assert.Equal(t, models.SymbolR100, got.Indicators[2].Symbol)
	assert.Equal(t, 1234.5, got.Indicators[2].LastPrice)
}

func TestLogs(t *testing.T) {
	f := newFixture(t, stubFeed{})
	f.engine.logs = []models.LogEntry{{ID: "l-1", Type: models.LogWarning, Message: "Engine stopped"}}

	code, body := f.get(t, "/logs")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, defaultLogs, f.engine.limit)

	var got []models.LogEntry
	require.NoError(t, sonic.Unmarshal(body, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Engine stopped", got[0].Message)

	f.get(t, "/logs?limit=5")
	assert.Equal(t, 5, f.engine.limit)

	code, _ = f.get(t, "/logs?limit=x")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTrades(t *testing.T) {
	f := newFixture(t, stubFeed{})
	f.trades.out = []models.Trade{{ID: "t-1", Symbol: models.SymbolR10, Result: models.ResultWin, Profit: 0.9}}

	code, body := f.get(t, "/trades?symbol=r_10&result=win&from=2026-03-01T00:00:00Z&limit=20")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.TradeFilter{
		Symbol: models.SymbolR10,
		Result: models.ResultWin,
		From:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Limit:  20,
	}, f.trades.got)

	var got []models.Trade
	require.NoError(t, sonic.Unmarshal(body, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "t-1", got[0].ID)
}

func TestTrades_EmptyIsArray(t *testing.T) {
	f := newFixture(t, stubFeed{})

	code, body := f.get(t, "/trades")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "[]", string(body))
}

func TestTrades_BadRequests(t *testing.T) {
	f := newFixture(t, stubFeed{})
	for _, q := range []string{"symbol=EURUSD", "result=PENDING", "from=yesterday", "limit=0"} {
		code, _ := f.get(t, "/trades?"+q)
		assert.Equal(t, http.StatusBadRequest, code, q)
	}
}

func TestTrades_StoreError(t *testing.T) {
	f := newFixture(t, stubFeed{})
	f.trades.err = errors.New("db down")

	code, _ := f.get(t, "/trades")
	assert.Equal(t, http.StatusInternalServerError, code)
}
