package sql

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type VaultSetting struct {
	VaultBalance     float64
	ProtectedFloor   float64
	DailyLossLimit   float64
	MinProbability   float64
	PaperTradesCount int32
}

type TradeHistory struct {
	ID          string
	CreatedAt   pgtype.Timestamptz
	Symbol      string
	Direction   string
	Stake       float64
	Payout      float64
	Probability float64
	Result      string
	Profit      float64
	IsTraining  bool
}
