package health

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"vault_bot/internal/engine"
	"vault_bot/internal/indicator"
	"vault_bot/internal/models"
	"vault_bot/internal/modules/health/service"
	"vault_bot/pkg/logger"
)

const defaultLogs = 50

type EngineView interface {
	State() engine.State
	Config() engine.Config
	Market() *indicator.Tracker
	Logs(limit int) []models.LogEntry
}

type FeedStatus interface {
	Connected() bool
	Authorized() bool
}

type TradeLister interface {
	ListTrades(ctx context.Context, filter models.TradeFilter) ([]models.Trade, error)
}

type statusResponse struct {
	State        engine.State         `json:"state"`
	Mode         string               `json:"mode"`
	CanStartLive bool                 `json:"can_start_live"`
	Indicators   []indicator.Snapshot `json:"indicators"`
}

type handlers struct {
	state  *service.State
	engine EngineView
	feed   FeedStatus
	trades TradeLister
}

func newMux(h handlers, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", h.readyz)
	mux.HandleFunc("/healthz", h.healthz)
	mux.HandleFunc("/status", h.status)
	mux.HandleFunc("/logs", h.logs)
	mux.HandleFunc("/trades", h.listTrades)
	mux.Handle("/metrics", metrics)

	return mux
}

// readyz reports ready once settings are restored and the feed is authorized.
func (h handlers) readyz(w http.ResponseWriter, _ *http.Request) {
	if !h.state.Ready() || !h.feed.Connected() || !h.feed.Authorized() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (h handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	s := h.engine.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"ready":      h.state.Ready(),
		"connected":  h.feed.Connected(),
		"authorized": h.feed.Authorized(),
		"running":    s.IsRunning,
		"mode":       s.Mode(),
		"uptimeSec":  int64(h.state.Uptime().Seconds()),
	})
}

func (h handlers) status(w http.ResponseWriter, _ *http.Request) {
	s := h.engine.State()
	writeJSON(w, http.StatusOK, statusResponse{
		State:        s,
		Mode:         s.Mode(),
		CanStartLive: s.CanStartLive(h.engine.Config()),
		Indicators:   h.engine.Market().Snapshots(),
	})
}

func (h handlers) logs(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogs
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, h.engine.Logs(limit))
}

func (h handlers) listTrades(w http.ResponseWriter, r *http.Request) {
	f, err := parseTradeFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	trades, err := h.trades.ListTrades(r.Context(), f)
	if err != nil {
		logger.Error("health: list trades: %v", err)
		http.Error(w, "trade history unavailable", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

type badRequest string

func (e badRequest) Error() string { return string(e) }

func parseTradeFilter(r *http.Request) (models.TradeFilter, error) {
	q := r.URL.Query()
	var f models.TradeFilter

	if v := q.Get("symbol"); v != "" {
		sym, ok := models.ParseSymbol(strings.ToUpper(v))
		if !ok {
			return f, badRequest("unknown symbol " + v)
		}
		f.Symbol = sym
	}
	switch v := models.Result(strings.ToUpper(q.Get("result"))); v {
	case "":
	case models.ResultWin, models.ResultLoss:
		f.Result = v
	default:
		return f, badRequest("result must be WIN or LOSS")
	}
	for _, p := range []struct {
		key string
		dst *time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, badRequest(p.key + " must be RFC3339")
		}
		*p.dst = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return f, badRequest("limit must be a positive integer")
		}
		f.Limit = n
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		logger.Error("health: encode response: %v", err)
		http.Error(w, "encode error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
