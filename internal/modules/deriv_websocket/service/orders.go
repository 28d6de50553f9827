package service

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"vault_bot/internal/engine"
	"vault_bot/internal/models"
	"vault_bot/pkg/logger"
)

const failTimeout = 5 * time.Second

// Dispatch sends the proposal for o. The rest of the flow is driven by the
// responses: proposal -> buy -> proposal_open_contract until sold.
func (c *Client) Dispatch(o models.Order) error {
	if !c.Connected() {
		return ErrNotConnected
	}
	if !c.Authorized() {
		return ErrNotAuthorized
	}

	c.ordersMu.Lock()
	c.inflight[o.TradeID] = o
	c.ordersMu.Unlock()

	err := c.write(proposalReq{
		Proposal:     1,
		Amount:       models.RoundMoney(o.Amount),
		Basis:        o.Basis,
		ContractType: string(o.ContractType),
		Currency:     o.Currency,
		Duration:     o.Duration,
		DurationUnit: o.DurationUnit,
		Symbol:       string(o.Symbol),
		Passthrough:  &passthrough{TradeID: o.TradeID},
		ReqID:        c.nextReq(),
	})
	if err != nil {
		c.takeInflight(o.TradeID)
		return errors.Wrapf(err, "proposal %s", o.TradeID)
	}
	logger.Info("[DERIV] proposal %s %s %s", o.ContractType, o.Symbol, models.FormatMoney(o.Amount))
	return nil
}

// onProposal buys the quoted contract. From here on the order may exist on
// the server, so it moves to bought and is never failed by a disconnect.
func (c *Client) onProposal(ctx context.Context, f frame) {
	o, ok := c.peekInflight(f.Passthrough)
	if !ok {
		logger.Warn("[DERIV] proposal %s for unknown order", f.Proposal.ID)
		return
	}

	c.ordersMu.Lock()
	delete(c.inflight, o.TradeID)
	c.bought[o.TradeID] = pendingBuy{order: o, sentAt: time.Now()}
	c.ordersMu.Unlock()

	err := c.write(buyReq{
		Buy:         f.Proposal.ID,
		Price:       f.Proposal.AskPrice,
		Passthrough: &passthrough{TradeID: o.TradeID},
		ReqID:       c.nextReq(),
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrNotConnected):
		c.takeBought(o.TradeID)
		c.submit(ctx, engine.OrderFailed{TradeID: o.TradeID, Symbol: o.Symbol, Reason: err.Error(), At: time.Now()})
	default:
		logger.Warn("[DERIV] buy %s: %v, outcome resolved after reconnect", o.TradeID, err)
	}
}

func (c *Client) onBuy(ctx context.Context, f frame) {
	var tradeID string
	if f.Passthrough != nil {
		tradeID = f.Passthrough.TradeID
	}
	b, ok := c.takeBought(tradeID)
	if !ok {
		logger.Warn("[DERIV] bought contract %d for unknown order", f.Buy.ContractID)
		return
	}
	o := b.order

	c.ordersMu.Lock()
	c.contracts[f.Buy.ContractID] = o
	c.ordersMu.Unlock()
	logger.Info("[DERIV] bought contract %d at %s", f.Buy.ContractID, models.FormatMoney(f.Buy.BuyPrice))

	if f.Buy.BalanceAfter > 0 {
		c.emit(engine.BalanceChanged{Balance: f.Buy.BalanceAfter})
	}
	if err := c.watchContract(f.Buy.ContractID, o.TradeID); err != nil {
		logger.Error("[DERIV] watch contract %d: %v", f.Buy.ContractID, err)
	}
}

func (c *Client) onOpenContract(ctx context.Context, f frame) {
	oc := f.OpenContract
	if oc.IsSold != 1 {
		return
	}

	c.ordersMu.Lock()
	o, ok := c.contracts[oc.ContractID]
	delete(c.contracts, oc.ContractID)
	c.ordersMu.Unlock()
	if !ok {
		// repeated sold updates for a contract already settled
		return
	}
	if f.Subscription != nil && f.Subscription.ID != "" {
		_ = c.write(forgetReq{Forget: f.Subscription.ID})
	}

	res := models.ResultLoss
	payout := 0.0
	if oc.Profit > 0 {
		res = models.ResultWin
		payout = oc.Payout
	}
	c.submit(ctx, engine.OrderConfirmed{
		TradeID:    o.TradeID,
		Symbol:     o.Symbol,
		Result:     res,
		Payout:     payout,
		Profit:     oc.Profit,
		ContractID: oc.ContractID,
		At:         time.Now(),
	})
}

func (c *Client) watchContract(contractID int64, tradeID string) error {
	return c.write(openContractReq{
		ProposalOpenContract: 1,
		ContractID:           contractID,
		Subscribe:            1,
		Passthrough:          &passthrough{TradeID: tradeID},
	})
}

// resubscribeContracts re-attaches to contracts bought before a reconnect.
func (c *Client) resubscribeContracts() {
	c.ordersMu.Lock()
	ids := make(map[int64]string, len(c.contracts))
	for id, o := range c.contracts {
		ids[id] = o.TradeID
	}
	c.ordersMu.Unlock()

	for id, tradeID := range ids {
		if err := c.watchContract(id, tradeID); err != nil {
			logger.Error("[DERIV] resubscribe contract %d: %v", id, err)
		}
	}
}

func (c *Client) peekInflight(p *passthrough) (models.Order, bool) {
	if p == nil {
		return models.Order{}, false
	}
	c.ordersMu.Lock()
	defer c.ordersMu.Unlock()
	o, ok := c.inflight[p.TradeID]
	return o, ok
}

func (c *Client) takeInflight(tradeID string) (models.Order, bool) {
	c.ordersMu.Lock()
	defer c.ordersMu.Unlock()
	o, ok := c.inflight[tradeID]
	delete(c.inflight, tradeID)
	return o, ok
}

func (c *Client) takeBought(tradeID string) (pendingBuy, bool) {
	c.ordersMu.Lock()
	defer c.ordersMu.Unlock()
	b, ok := c.bought[tradeID]
	delete(c.bought, tradeID)
	return b, ok
}

// failInflight reports every order whose buy was never sent.
func (c *Client) failInflight(reason string) {
	c.ordersMu.Lock()
	orders := make([]models.Order, 0, len(c.inflight))
	for id, o := range c.inflight {
		orders = append(orders, o)
		delete(c.inflight, id)
	}
	c.ordersMu.Unlock()

	if len(orders) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), failTimeout)
	defer cancel()
	for _, o := range orders {
		c.submit(ctx, engine.OrderFailed{TradeID: o.TradeID, Symbol: o.Symbol, Reason: reason, At: time.Now()})
	}
}
