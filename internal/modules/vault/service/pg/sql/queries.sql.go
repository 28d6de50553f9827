package sql

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getSettings = `-- name: GetSettings :one
SELECT vault_balance, protected_floor, daily_loss_limit, min_probability, paper_trades_count
FROM vault_settings
WHERE id = 1
`

func (q *Queries) GetSettings(ctx context.Context, db DBTX) (VaultSetting, error) {
	row := db.QueryRow(ctx, getSettings)
	var i VaultSetting
	err := row.Scan(
		&i.VaultBalance,
		&i.ProtectedFloor,
		&i.DailyLossLimit,
		&i.MinProbability,
		&i.PaperTradesCount,
	)
	return i, err
}

const lockSettings = `-- name: LockSettings :one
SELECT vault_balance, protected_floor, daily_loss_limit, min_probability, paper_trades_count
FROM vault_settings
WHERE id = 1
FOR UPDATE
`

func (q *Queries) LockSettings(ctx context.Context, db DBTX) (VaultSetting, error) {
	row := db.QueryRow(ctx, lockSettings)
	var i VaultSetting
	err := row.Scan(
		&i.VaultBalance,
		&i.ProtectedFloor,
		&i.DailyLossLimit,
		&i.MinProbability,
		&i.PaperTradesCount,
	)
	return i, err
}

const upsertSettings = `-- name: UpsertSettings :exec
INSERT INTO vault_settings (id, vault_balance, protected_floor, daily_loss_limit, min_probability, paper_trades_count, updated_at)
VALUES (1, $1, $2, $3, $4, $5, now())
ON CONFLICT (id) DO UPDATE
SET vault_balance      = EXCLUDED.vault_balance,
    protected_floor    = EXCLUDED.protected_floor,
    daily_loss_limit   = EXCLUDED.daily_loss_limit,
    min_probability    = EXCLUDED.min_probability,
    paper_trades_count = EXCLUDED.paper_trades_count,
    updated_at         = now()
`

type UpsertSettingsParams struct {
	VaultBalance     float64
	ProtectedFloor   float64
	DailyLossLimit   float64
	MinProbability   float64
	PaperTradesCount int32
}

func (q *Queries) UpsertSettings(ctx context.Context, db DBTX, arg *UpsertSettingsParams) error {
	_, err := db.Exec(ctx, upsertSettings,
		arg.VaultBalance,
		arg.ProtectedFloor,
		arg.DailyLossLimit,
		arg.MinProbability,
		arg.PaperTradesCount,
	)
	return err
}

const insertTrade = `-- name: InsertTrade :execrows
INSERT INTO trade_history (id, created_at, symbol, direction, stake, payout, probability, result, profit, is_training)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO NOTHING
`

type InsertTradeParams struct {
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

func (q *Queries) InsertTrade(ctx context.Context, db DBTX, arg *InsertTradeParams) (int64, error) {
	result, err := db.Exec(ctx, insertTrade,
		arg.ID,
		arg.CreatedAt,
		arg.Symbol,
		arg.Direction,
		arg.Stake,
		arg.Payout,
		arg.Probability,
		arg.Result,
		arg.Profit,
		arg.IsTraining,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listTrades = `-- name: ListTrades :many
SELECT id, created_at, symbol, direction, stake, payout, probability, result, profit, is_training
FROM trade_history
WHERE ($1::text = '' OR symbol = $1)
  AND ($2::text = '' OR result = $2)
  AND ($3::timestamptz IS NULL OR created_at >= $3)
  AND ($4::timestamptz IS NULL OR created_at <= $4)
ORDER BY created_at DESC
LIMIT $5
`

type ListTradesParams struct {
	Symbol   string
	Result   string
	FromTs   pgtype.Timestamptz
	ToTs     pgtype.Timestamptz
	RowLimit int32
}

func (q *Queries) ListTrades(ctx context.Context, db DBTX, arg *ListTradesParams) ([]TradeHistory, error) {
	rows, err := db.Query(ctx, listTrades,
		arg.Symbol,
		arg.Result,
		arg.FromTs,
		arg.ToTs,
		arg.RowLimit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TradeHistory
	for rows.Next() {
		var i TradeHistory
		if err := rows.Scan(
			&i.ID,
			&i.CreatedAt,
			&i.Symbol,
			&i.Direction,
			&i.Stake,
			&i.Payout,
			&i.Probability,
			&i.Result,
			&i.Profit,
			&i.IsTraining,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
