package service

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"vault_bot/internal/engine"
	"vault_bot/internal/models"
	"vault_bot/pkg/logger"
)

var (
	ErrNotConnected  = errors.New("deriv: not connected")
	ErrNotAuthorized = errors.New("deriv: not authorized")
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// Sink receives the events decoded from the feed. *engine.Engine satisfies it.
type Sink interface {
	Send(ev engine.Event) error
	Submit(ctx context.Context, ev engine.Event) error
}

type Config struct {
	URL                  string
	Token                string
	Symbols              []models.Symbol
	ReconnectBase        time.Duration
	ReconnectMax         time.Duration
	ReconnectMaxAttempts int
}

// Client keeps one connection to the Deriv API: it authorizes, streams ticks
// and balance, and walks dispatched orders through proposal, buy and
// settlement.
type Client struct {
	cfg      Config
	sink     Sink
	wsDialer *websocket.Dialer

	connected  atomic.Bool
	authorized atomic.Bool
	reqID      atomic.Int64
	dropped    atomic.Int64

	reconnect chan struct{}

	writeMu sync.Mutex
	connMu  sync.RWMutex
	conn    *websocket.Conn

	ordersMu     sync.Mutex
	inflight     map[string]models.Order // trade id -> order awaiting its proposal
	bought       map[string]pendingBuy   // trade id -> buy sent, reply not seen yet
	contracts    map[int64]models.Order  // contract id -> order awaiting settlement
	recovery     map[string]struct{}     // buys being looked up after a reconnect
	recoveryWait int                     // lookup replies still expected
}

func NewClient(cfg Config, sink Sink) *Client {
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = models.Whitelist
	}
	return &Client{
		cfg:       cfg,
		sink:      sink,
		wsDialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
		reconnect: make(chan struct{}, 1),
		inflight:  make(map[string]models.Order),
		bought:    make(map[string]pendingBuy),
		contracts: make(map[int64]models.Order),
	}
}

func (c *Client) Connected() bool  { return c.connected.Load() }
func (c *Client) Authorized() bool { return c.authorized.Load() }

// DroppedTicks counts ticks the engine queue had no room for.
func (c *Client) DroppedTicks() int64 { return c.dropped.Load() }

// Reconnect drops the current connection and resets the attempt counter. It
// also wakes a client that gave up after too many failures.
func (c *Client) Reconnect() {
	select {
	case c.reconnect <- struct{}{}:
	default:
	}
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// Run connects and keeps reconnecting until ctx is done.
func (c *Client) Run(ctx context.Context) {
	attempt := 0
	for {
		// a Reconnect issued while connected has already done its job
		select {
		case <-c.reconnect:
		default:
		}

		err := c.session(ctx, func() { attempt = 0 })
		if ctx.Err() != nil {
			return
		}

		attempt++
		reason := "closed"
		if err != nil {
			reason = err.Error()
		}
		logger.Warn("[DERIV] connection lost: %s", reason)

		if attempt > c.cfg.ReconnectMaxAttempts {
			c.emitStatus(engine.TransportStatus{Connected: false, Reason: "gave up after " + reason})
			logger.Error("[DERIV] giving up after %d attempts, waiting for a manual reconnect", attempt-1)
			select {
			case <-ctx.Done():
				return
			case <-c.reconnect:
				attempt = 0
				continue
			}
		}

		c.emitStatus(engine.TransportStatus{Connected: false, Attempt: attempt, Reason: reason})
		delay := reconnectDelay(c.cfg.ReconnectBase, c.cfg.ReconnectMax, attempt)
		logger.Info("[DERIV] reconnecting in %s", delay)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-c.reconnect:
			t.Stop()
			attempt = 0
		case <-t.C:
		}
	}
}

// session runs one connection until it fails. onOpen fires after the dial
// succeeds.
func (c *Client) session(ctx context.Context, onOpen func()) error {
	conn, _, err := c.wsDialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return errors.Wrap(err, "dial")
	}
	onOpen()

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	c.connected.Store(true)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	defer func() {
		close(stop)
		_ = conn.Close()
		wg.Wait()
		c.connMu.Lock()
		c.conn = nil
		c.connMu.Unlock()
		c.connected.Store(false)
		c.authorized.Store(false)
		c.abortRecovery()
		c.failInflight("connection lost")
	}()

	logger.Info("[DERIV] connected to %s", c.cfg.URL)
	c.emitStatus(engine.TransportStatus{Connected: true})

	if c.cfg.Token == "" {
		c.emit(engine.AuthorizationChanged{OK: false, Reason: "no API token configured"})
	} else if err := c.write(authorizeReq{Authorize: c.cfg.Token, ReqID: c.nextReq()}); err != nil {
		return err
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()
	go func() {
		defer wg.Done()
		c.keepalive(stop)
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return errors.Wrap(err, "read")
		}
		c.handle(ctx, msg)
	}
}

func (c *Client) keepalive(stop <-chan struct{}) {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if err := c.write(pingReq{Ping: 1}); err != nil {
				logger.Warn("[DERIV] ping: %v", err)
			}
		}
	}
}

func (c *Client) handle(ctx context.Context, msg []byte) {
	var f frame
	if err := sonic.Unmarshal(msg, &f); err != nil {
		logger.Warn("[DERIV] dropping malformed frame: %v", err)
		return
	}

	if f.Error != nil {
		c.onError(ctx, f)
		return
	}

	switch f.MsgType {
	case "authorize":
		if f.Authorize != nil {
			c.onAuthorized(*f.Authorize)
		}
	case "tick":
		if f.Tick != nil {
			c.onTick(*f.Tick)
		}
	case "balance":
		if f.Balance != nil {
			c.emit(engine.BalanceChanged{Balance: f.Balance.Balance, Currency: f.Balance.Currency})
		}
	case "proposal":
		if f.Proposal != nil {
			c.onProposal(ctx, f)
		}
	case "buy":
		if f.Buy != nil {
			c.onBuy(ctx, f)
		}
	case "proposal_open_contract":
		if f.OpenContract != nil {
			c.onOpenContract(ctx, f)
		}
	case "portfolio":
		if f.Portfolio != nil {
			c.onRecoveryReply(ctx, f.Portfolio.owned())
		}
	case "profit_table":
		if f.ProfitTable != nil {
			c.onRecoveryReply(ctx, f.ProfitTable.owned())
		}
	case "ping", "forget", "forget_all", "ticks":
	default:
		logger.Warn("[DERIV] unexpected msg_type %q", f.MsgType)
	}
}

func (c *Client) onAuthorized(a authorizeResp) {
	c.authorized.Store(true)
	c.emit(engine.AuthorizationChanged{OK: true, Balance: a.Balance, Currency: a.Currency, LoginID: a.LoginID})

	symbols := make([]string, 0, len(c.cfg.Symbols))
	for _, s := range c.cfg.Symbols {
		symbols = append(symbols, string(s))
	}
	for _, req := range []any{
		forgetAllReq{ForgetAll: "ticks"},
		ticksReq{Ticks: symbols, Subscribe: 1},
		balanceReq{Balance: 1, Subscribe: 1},
	} {
		if err := c.write(req); err != nil {
			logger.Error("[DERIV] subscribe: %v", err)
			return
		}
	}
	logger.Info("[DERIV] subscribed to %v", symbols)
	c.resubscribeContracts()
	c.recoverBought()
}

func (c *Client) onTick(t tickResp) {
	if _, ok := models.ParseSymbol(t.Symbol); !ok {
		return
	}
	err := c.sink.Send(engine.Tick{Symbol: t.Symbol, Price: t.Quote, At: time.Unix(t.Epoch, 0)})
	if errors.Is(err, engine.ErrQueueFull) {
		c.dropped.Add(1)
	}
}

func (c *Client) onError(ctx context.Context, f frame) {
	reason := f.Error.Code + ": " + f.Error.Message
	switch f.MsgType {
	case "authorize":
		c.authorized.Store(false)
		c.emit(engine.AuthorizationChanged{OK: false, Reason: reason})
	case "proposal":
		if f.Passthrough != nil {
			if o, ok := c.takeInflight(f.Passthrough.TradeID); ok {
				c.submit(ctx, engine.OrderFailed{TradeID: o.TradeID, Symbol: o.Symbol, Reason: reason, At: time.Now()})
				return
			}
		}
		logger.Warn("[DERIV] proposal error without a known order: %s", reason)
	case "buy":
		if f.Passthrough != nil {
			if b, ok := c.takeBought(f.Passthrough.TradeID); ok {
				c.submit(ctx, engine.OrderFailed{TradeID: b.order.TradeID, Symbol: b.order.Symbol, Reason: reason, At: time.Now()})
				return
			}
		}
		logger.Warn("[DERIV] buy error without a known order: %s", reason)
	case "portfolio", "profit_table":
		// the buys stay pending; the next authorization retries the lookup
		logger.Error("[DERIV] %s lookup failed: %s", f.MsgType, reason)
		c.abortRecovery()
	default:
		logger.Warn("[DERIV] API error on %q: %s", f.MsgType, reason)
	}
}

func (c *Client) emit(ev engine.Event) {
	if err := c.sink.Send(ev); err != nil {
		logger.Error("[DERIV] event %T not delivered: %v", ev, err)
	}
}

// submit waits for room: order outcomes must reach the engine.
func (c *Client) submit(ctx context.Context, ev engine.Event) {
	if err := c.sink.Submit(ctx, ev); err != nil {
		logger.Error("[DERIV] event %T not delivered: %v", ev, err)
	}
}

func (c *Client) emitStatus(st engine.TransportStatus) {
	c.emit(st)
}

func (c *Client) nextReq() int64 { return c.reqID.Add(1) }

func (c *Client) write(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.Wrap(err, "write")
	}
	return nil
}
