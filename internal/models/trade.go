package models

import "time"

type Result string

const (
	ResultWin     Result = "WIN"
	ResultLoss    Result = "LOSS"
	ResultPending Result = "PENDING"
)

// Trade is a single paper or live contract. Once Result is WIN or LOSS the
// record is never changed again.
type Trade struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Symbol      Symbol    `json:"symbol"`
	Direction   Direction `json:"direction"`
	Stake       float64   `json:"stake"`
	Payout      float64   `json:"payout"`
	Probability float64   `json:"probability"`
	Result      Result    `json:"result"`
	Profit      float64   `json:"profit"`
	IsTraining  bool      `json:"is_training"`
}

func (t Trade) Resolved() bool {
	return t.Result == ResultWin || t.Result == ResultLoss
}

// TradeFilter narrows trade history queries. Empty fields match everything.
type TradeFilter struct {
	Symbol Symbol
	Result Result
	From   time.Time
	To     time.Time
	Limit  int
}

const MaxTradePage = 100

// PageSize clamps the requested limit to 1..MaxTradePage.
func (f TradeFilter) PageSize() int {
	if f.Limit <= 0 || f.Limit > MaxTradePage {
		return MaxTradePage
	}
	return f.Limit
}
