package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vault_bot/internal/engine"
	"vault_bot/internal/models"
	"vault_bot/pkg/logger"
)

type sinkRecorder struct {
	mu     sync.Mutex
	events []engine.Event
}

func (s *sinkRecorder) Send(ev engine.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *sinkRecorder) Submit(_ context.Context, ev engine.Event) error { return s.Send(ev) }

func find[T engine.Event](s *sinkRecorder) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if v, ok := e.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// fakeDeriv answers the subset of the API the client uses.
type fakeDeriv struct {
	t          *testing.T
	failBuy    bool
	connects   int
	mu         sync.Mutex
	requests   []map[string]any
	dropFirstN int

	// dropOnBuy closes the first connection on buy without replying;
	// executeDroppedBuy decides whether that buy went through.
	dropOnBuy         bool
	executeDroppedBuy bool
	boughtAt          int64
}

func (f *fakeDeriv) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	f.mu.Lock()
	f.connects++
	n := f.connects
	f.mu.Unlock()
	if n <= f.dropFirstN {
		return
	}

	reply := func(v map[string]any) {
		data, _ := sonic.Marshal(v)
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req map[string]any
		if err := sonic.Unmarshal(msg, &req); err != nil {
			continue
		}
		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.mu.Unlock()

		pt := req["passthrough"]
		switch {
		case req["authorize"] != nil:
			if req["authorize"] == "bad" {
				reply(map[string]any{"msg_type": "authorize", "error": map[string]any{"code": "InvalidToken", "message": "The token is invalid."}})
				continue
			}
			reply(map[string]any{"msg_type": "authorize", "authorize": map[string]any{"balance": 100.5, "currency": "USD", "loginid": "VRTC1"}})
		case req["ticks"] != nil:
			_ = conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
			reply(map[string]any{"msg_type": "tick", "tick": map[string]any{"symbol": "R_50", "quote": 251.37, "epoch": 1700000000}})
			reply(map[string]any{"msg_type": "tick", "tick": map[string]any{"symbol": "FRXEURUSD", "quote": 1.1, "epoch": 1700000000}})
		case req["proposal"] != nil && req["proposal_open_contract"] == nil:
			reply(map[string]any{"msg_type": "proposal", "passthrough": pt, "proposal": map[string]any{"id": "prop-1", "ask_price": 1, "payout": 1.95}})
		case req["portfolio"] != nil:
			reply(map[string]any{"msg_type": "portfolio", "portfolio": map[string]any{"contracts": []any{}}})
		case req["profit_table"] != nil:
			txs := []any{}
			f.mu.Lock()
			if f.boughtAt > 0 {
				txs = append(txs, map[string]any{
					"contract_id": 42, "buy_price": 1, "purchase_time": f.boughtAt,
					"shortcode": fmt.Sprintf("CALL_R_10_1.95_%d_1T_S0P_0", f.boughtAt),
				})
			}
			f.mu.Unlock()
			reply(map[string]any{"msg_type": "profit_table", "profit_table": map[string]any{"count": len(txs), "transactions": txs}})
		case req["buy"] != nil && f.dropOnBuy && n == 1:
			if f.executeDroppedBuy {
				f.mu.Lock()
				f.boughtAt = time.Now().Unix()
				f.mu.Unlock()
			}
			return
		case req["buy"] != nil:
			if f.failBuy {
				reply(map[string]any{"msg_type": "buy", "passthrough": pt, "error": map[string]any{"code": "InsufficientBalance", "message": "no money"}})
				continue
			}
			reply(map[string]any{"msg_type": "buy", "passthrough": pt, "buy": map[string]any{"contract_id": 42, "buy_price": 1, "payout": 1.95, "balance_after": 99.5}})
		case req["proposal_open_contract"] != nil:
			reply(map[string]any{"msg_type": "proposal_open_contract", "passthrough": pt, "proposal_open_contract": map[string]any{"contract_id": 42, "is_sold": 0}})
			sold := map[string]any{"msg_type": "proposal_open_contract", "passthrough": pt,
				"proposal_open_contract": map[string]any{"contract_id": 42, "is_sold": 1, "status": "won", "profit": 0.95, "payout": 1.95},
				"subscription":           map[string]any{"id": "sub-1"}}
			reply(sold)
			reply(sold)
		}
	}
}

func (f *fakeDeriv) sawRequest(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if _, ok := r[key]; ok {
			return true
		}
	}
	return false
}

func startClient(t *testing.T, srv *fakeDeriv, token string) (*Client, *sinkRecorder) {
	t.Helper()
	logger.UseNop()
	hs := httptest.NewServer(srv)
	t.Cleanup(hs.Close)

	sink := &sinkRecorder{}
	c := NewClient(Config{
		URL:                  "ws" + strings.TrimPrefix(hs.URL, "http"),
		Token:                token,
		ReconnectBase:        time.Millisecond,
		ReconnectMax:         5 * time.Millisecond,
		ReconnectMaxAttempts: 5,
	}, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { c.Run(ctx); close(done) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return c, sink
}

func TestClient_AuthorizeAndTicks(t *testing.T) {
	srv := &fakeDeriv{t: t}
	c, sink := startClient(t, srv, "tok")

	require.Eventually(t, func() bool {
		_, ok := find[engine.Tick](sink)
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	auth, ok := find[engine.AuthorizationChanged](sink)
	require.True(t, ok)
	assert.True(t, auth.OK)
	assert.Equal(t, 100.5, auth.Balance)
	assert.Equal(t, "VRTC1", auth.LoginID)
	assert.True(t, c.Authorized())

	tick, _ := find[engine.Tick](sink)
	assert.Equal(t, "R_50", tick.Symbol)
	assert.Equal(t, 251.37, tick.Price)

	sink.mu.Lock()
	ticks := 0
	for _, e := range sink.events {
		if _, ok := e.(engine.Tick); ok {
			ticks++
		}
	}
	sink.mu.Unlock()
	assert.Equal(t, 1, ticks, "non-whitelisted symbols are ignored")
	assert.True(t, srv.sawRequest("forget_all"))
	assert.True(t, srv.sawRequest("balance"))
}

func TestClient_OrderSettles(t *testing.T) {
	srv := &fakeDeriv{t: t}
	c, sink := startClient(t, srv, "tok")
	require.Eventually(t, c.Authorized, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, c.Dispatch(models.Order{
		TradeID: "trade-1", Amount: 1, Basis: "stake", ContractType: models.DirectionCall,
		Currency: "USD", Duration: 1, DurationUnit: "t", Symbol: models.SymbolR10,
	}))

	require.Eventually(t, func() bool {
		_, ok := find[engine.OrderConfirmed](sink)
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	conf, _ := find[engine.OrderConfirmed](sink)
	assert.Equal(t, "trade-1", conf.TradeID)
	assert.Equal(t, models.SymbolR10, conf.Symbol)
	assert.Equal(t, models.ResultWin, conf.Result)
	assert.Equal(t, 0.95, conf.Profit)
	assert.Equal(t, 1.95, conf.Payout)
	assert.Equal(t, int64(42), conf.ContractID)

	bal, ok := find[engine.BalanceChanged](sink)
	require.True(t, ok)
	assert.Equal(t, 99.5, bal.Balance)

	// the duplicate sold frame must not confirm twice
	time.Sleep(20 * time.Millisecond)
	sink.mu.Lock()
	n := 0
	for _, e := range sink.events {
		if _, ok := e.(engine.OrderConfirmed); ok {
			n++
		}
	}
	sink.mu.Unlock()
	assert.Equal(t, 1, n)
	assert.True(t, srv.sawRequest("forget"))
}

func TestClient_BuyErrorFailsOrder(t *testing.T) {
	srv := &fakeDeriv{t: t, failBuy: true}
	c, sink := startClient(t, srv, "tok")
	require.Eventually(t, c.Authorized, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, c.Dispatch(models.Order{TradeID: "trade-2", Amount: 1, ContractType: models.DirectionPut, Symbol: models.SymbolR100}))

	require.Eventually(t, func() bool {
		_, ok := find[engine.OrderFailed](sink)
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	failed, _ := find[engine.OrderFailed](sink)
	assert.Equal(t, "trade-2", failed.TradeID)
	assert.Equal(t, models.SymbolR100, failed.Symbol)
	assert.Contains(t, failed.Reason, "InsufficientBalance")
}

func countEvents[T engine.Event](s *sinkRecorder) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if _, ok := e.(T); ok {
			n++
		}
	}
	return n
}

func liveOrder(id string) models.Order {
	return models.Order{
		TradeID: id, Amount: 1, Basis: "stake", ContractType: models.DirectionCall,
		Currency: "USD", Duration: 1, DurationUnit: "t", Symbol: models.SymbolR10,
	}
}

func TestClient_BuyLostOnDisconnectIsRecovered(t *testing.T) {
	srv := &fakeDeriv{t: t, dropOnBuy: true, executeDroppedBuy: true}
	c, sink := startClient(t, srv, "tok")
	require.Eventually(t, c.Authorized, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, c.Dispatch(liveOrder("live-1")))

	require.Eventually(t, func() bool {
		_, ok := find[engine.OrderConfirmed](sink)
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	conf, _ := find[engine.OrderConfirmed](sink)
	assert.Equal(t, "live-1", conf.TradeID)
	assert.Equal(t, models.SymbolR10, conf.Symbol)
	assert.Equal(t, int64(42), conf.ContractID)
	assert.Equal(t, models.ResultWin, conf.Result)

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, countEvents[engine.OrderFailed](sink), "a bought contract must not be reported as failed")
	assert.Equal(t, 1, countEvents[engine.OrderConfirmed](sink))
	assert.True(t, srv.sawRequest("portfolio"))
	assert.True(t, srv.sawRequest("profit_table"))
}

func TestClient_BuyLostOnDisconnectNeverExecuted(t *testing.T) {
	srv := &fakeDeriv{t: t, dropOnBuy: true}
	c, sink := startClient(t, srv, "tok")
	require.Eventually(t, c.Authorized, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, c.Dispatch(liveOrder("live-2")))

	require.Eventually(t, func() bool {
		_, ok := find[engine.OrderFailed](sink)
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	failed, _ := find[engine.OrderFailed](sink)
	assert.Equal(t, "live-2", failed.TradeID)
	assert.Equal(t, "buy not executed", failed.Reason)
	assert.Equal(t, 1, countEvents[engine.OrderFailed](sink))
	assert.Zero(t, countEvents[engine.OrderConfirmed](sink))
}

func TestPendingBuyMatches(t *testing.T) {
	sent := time.Unix(1700000000, 0)
	b := pendingBuy{order: liveOrder("t"), sentAt: sent}

	assert.True(t, b.matches(ownedContract{ID: 1, ContractType: "CALL", Symbol: "R_10", BuyPrice: 1, PurchaseTime: sent.Unix()}))
	assert.True(t, b.matches(ownedContract{ID: 2, Shortcode: "CALL_R_10_1.95_1700000001_1T_S0P_0", BuyPrice: 1, PurchaseTime: sent.Unix() + 1}))
	assert.False(t, b.matches(ownedContract{ID: 3, Shortcode: "CALL_R_100_1.95_1700000001_1T_S0P_0", BuyPrice: 1, PurchaseTime: sent.Unix()}))
	assert.False(t, b.matches(ownedContract{ID: 4, ContractType: "PUT", Symbol: "R_10", BuyPrice: 1, PurchaseTime: sent.Unix()}))
	assert.False(t, b.matches(ownedContract{ID: 5, ContractType: "CALL", Symbol: "R_10", BuyPrice: 1.1, PurchaseTime: sent.Unix()}))
	assert.False(t, b.matches(ownedContract{ID: 6, ContractType: "CALL", Symbol: "R_10", BuyPrice: 1, PurchaseTime: sent.Add(-time.Minute).Unix()}))
}

func TestClient_BadToken(t *testing.T) {
	srv := &fakeDeriv{t: t}
	c, sink := startClient(t, srv, "bad")

	require.Eventually(t, func() bool {
		_, ok := find[engine.AuthorizationChanged](sink)
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	auth, _ := find[engine.AuthorizationChanged](sink)
	assert.False(t, auth.OK)
	assert.Contains(t, auth.Reason, "InvalidToken")
	assert.False(t, c.Authorized())
	assert.ErrorIs(t, c.Dispatch(models.Order{TradeID: "x"}), ErrNotAuthorized)
}

func TestClient_ReconnectsAfterDrop(t *testing.T) {
	srv := &fakeDeriv{t: t, dropFirstN: 2}
	c, sink := startClient(t, srv, "tok")

	require.Eventually(t, c.Authorized, 2*time.Second, 5*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	var attempts []int
	for _, e := range sink.events {
		if st, ok := e.(engine.TransportStatus); ok && !st.Connected {
			attempts = append(attempts, st.Attempt)
		}
	}
	assert.Equal(t, []int{1, 1}, attempts, "the counter resets after every successful dial")
}

func TestClient_DispatchWhileDisconnected(t *testing.T) {
	c := NewClient(Config{}, &sinkRecorder{})
	assert.ErrorIs(t, c.Dispatch(models.Order{TradeID: "x"}), ErrNotConnected)
}

func TestReconnectDelay(t *testing.T) {
	base, maxDelay := time.Second, 10*time.Second
	assert.Equal(t, 2*time.Second, reconnectDelay(base, maxDelay, 1))
	assert.Equal(t, 4*time.Second, reconnectDelay(base, maxDelay, 2))
	assert.Equal(t, 8*time.Second, reconnectDelay(base, maxDelay, 3))
	assert.Equal(t, 10*time.Second, reconnectDelay(base, maxDelay, 4))
	assert.Equal(t, 10*time.Second, reconnectDelay(base, maxDelay, 50))
	assert.Equal(t, time.Second, reconnectDelay(base, maxDelay, 0))
}
