package service

import (
	"context"
	"math"
	"strings"
	"time"

	"vault_bot/internal/engine"
	"vault_bot/internal/models"
	"vault_bot/pkg/logger"
)

const (
	recoveryLookback  = time.Minute
	recoveryLimit     = 50
	clockSkew         = 5 * time.Second
	buyPriceTolerance = 0.01
)

// pendingBuy is an order whose buy request was written but not answered.
type pendingBuy struct {
	order  models.Order
	sentAt time.Time
}

// ownedContract is a contract the account holds or has held. Open contracts
// come from portfolio with type and symbol; settled ones come from
// profit_table with only the shortcode, e.g. "CALL_R_10_1.95_1700000000_1T_S0P_0".
type ownedContract struct {
	ID           int64
	ContractType string
	Symbol       string
	Shortcode    string
	BuyPrice     float64
	PurchaseTime int64
}

func (p *portfolioResp) owned() []ownedContract {
	out := make([]ownedContract, 0, len(p.Contracts))
	for _, k := range p.Contracts {
		out = append(out, ownedContract{
			ID:           k.ContractID,
			ContractType: k.ContractType,
			Symbol:       k.Symbol,
			BuyPrice:     k.BuyPrice,
			PurchaseTime: k.PurchaseTime,
		})
	}
	return out
}

func (p *profitTableResp) owned() []ownedContract {
	out := make([]ownedContract, 0, len(p.Transactions))
	for _, k := range p.Transactions {
		out = append(out, ownedContract{
			ID:           k.ContractID,
			Shortcode:    k.Shortcode,
			BuyPrice:     k.BuyPrice,
			PurchaseTime: k.PurchaseTime,
		})
	}
	return out
}

// matches reports whether k can be the contract bought for b.
func (b pendingBuy) matches(k ownedContract) bool {
	typ, sym := string(b.order.ContractType), string(b.order.Symbol)
	if k.Symbol != "" {
		if k.Symbol != sym || k.ContractType != typ {
			return false
		}
	} else if !strings.HasPrefix(k.Shortcode, typ+"_"+sym+"_") {
		return false
	}
	if math.Abs(k.BuyPrice-models.RoundMoney(b.order.Amount)) > buyPriceTolerance {
		return false
	}
	return k.PurchaseTime >= b.sentAt.Add(-clockSkew).Unix()
}

// recoverBought looks up buys whose reply was lost with the connection. Both
// open and settled contracts are queried; a buy found in neither was never
// executed.
func (c *Client) recoverBought() {
	c.ordersMu.Lock()
	if len(c.bought) == 0 {
		c.ordersMu.Unlock()
		return
	}
	from := time.Now()
	c.recovery = make(map[string]struct{}, len(c.bought))
	for id, b := range c.bought {
		c.recovery[id] = struct{}{}
		if b.sentAt.Before(from) {
			from = b.sentAt
		}
	}
	c.recoveryWait = 2
	n := len(c.recovery)
	c.ordersMu.Unlock()

	logger.Warn("[DERIV] looking up %d unanswered buys", n)
	for _, req := range []any{
		portfolioReq{Portfolio: 1, ReqID: c.nextReq()},
		profitTableReq{
			ProfitTable: 1,
			Description: 1,
			DateFrom:    from.Add(-recoveryLookback).Unix(),
			Limit:       recoveryLimit,
			Sort:        "DESC",
			ReqID:       c.nextReq(),
		},
	} {
		if err := c.write(req); err != nil {
			logger.Error("[DERIV] buy lookup: %v", err)
			c.abortRecovery()
			return
		}
	}
}

// onRecoveryReply attaches found contracts to their orders. Once both lookups
// have answered, buys still unmatched are reported as failed.
func (c *Client) onRecoveryReply(ctx context.Context, owned []ownedContract) {
	type found struct {
		contractID int64
		tradeID    string
	}
	var (
		watch     []found
		notBought []models.Order
	)

	c.ordersMu.Lock()
	if c.recovery == nil {
		c.ordersMu.Unlock()
		return
	}
	claimed := make(map[int64]bool, len(owned))
	for tradeID := range c.recovery {
		b, ok := c.bought[tradeID]
		if !ok {
			// the buy reply made it after all
			delete(c.recovery, tradeID)
			continue
		}
		for _, k := range owned {
			if _, taken := c.contracts[k.ID]; taken || claimed[k.ID] || !b.matches(k) {
				continue
			}
			claimed[k.ID] = true
			c.contracts[k.ID] = b.order
			delete(c.bought, tradeID)
			delete(c.recovery, tradeID)
			watch = append(watch, found{contractID: k.ID, tradeID: tradeID})
			break
		}
	}
	c.recoveryWait--
	if c.recoveryWait <= 0 {
		for tradeID := range c.recovery {
			if b, ok := c.bought[tradeID]; ok {
				notBought = append(notBought, b.order)
				delete(c.bought, tradeID)
			}
		}
		c.recovery = nil
	}
	c.ordersMu.Unlock()

	for _, w := range watch {
		logger.Info("[DERIV] recovered contract %d for %s", w.contractID, w.tradeID)
		if err := c.watchContract(w.contractID, w.tradeID); err != nil {
			logger.Error("[DERIV] watch contract %d: %v", w.contractID, err)
		}
	}
	for _, o := range notBought {
		c.submit(ctx, engine.OrderFailed{TradeID: o.TradeID, Symbol: o.Symbol, Reason: "buy not executed", At: time.Now()})
	}
}

func (c *Client) abortRecovery() {
	c.ordersMu.Lock()
	defer c.ordersMu.Unlock()
	c.recovery = nil
	c.recoveryWait = 0
}
