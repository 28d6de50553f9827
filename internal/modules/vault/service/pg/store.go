package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"vault_bot/internal/models"
	"vault_bot/internal/modules/vault/service"
	"vault_bot/internal/modules/vault/service/pg/sql"
	"vault_bot/pkg/db"
	"vault_bot/pkg/tracing"
)

// Store is the postgres implementation of service.Store.
type Store struct {
	db       db.TxManager
	conn     db.Transaction
	sql      *sql.Queries
	defaults models.VaultSettings
}

var _ service.Store = (*Store)(nil)

func New(tm *db.PgTxManager, defaults models.VaultSettings) *Store {
	return &Store{
		db:       tm,
		conn:     tm.Conn(),
		sql:      sql.New(),
		defaults: defaults,
	}
}

func (s *Store) LoadSettings(ctx context.Context) (out models.VaultSettings, ok bool, err error) {
	span, ctx := tracing.StartSpan(ctx, "vault.LoadSettings")
	defer func() {
		tracing.Finish(span, err)
		if err != nil {
			err = fmt.Errorf("pg.LoadSettings: %w", err)
		}
	}()

	row, err := s.sql.GetSettings(ctx, s.conn)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.VaultSettings{}, false, nil
	}
	if err != nil {
		return models.VaultSettings{}, false, err
	}
	return fromRow(row), true, nil
}

// SaveSettings applies patch under a row lock so concurrent patches never
// overwrite each other's fields.
func (s *Store) SaveSettings(ctx context.Context, patch models.SettingsPatch) (out models.VaultSettings, err error) {
	span, ctx := tracing.StartSpan(ctx, "vault.SaveSettings")
	defer func() {
		tracing.Finish(span, err)
		if err != nil {
			err = fmt.Errorf("pg.SaveSettings: %w", err)
		}
	}()

	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		cur := s.defaults
		row, err := s.sql.LockSettings(ctxTx, tx)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return err
		default:
			cur = fromRow(row)
		}

		out = patch.Apply(cur)
		return s.sql.UpsertSettings(ctxTx, tx, &sql.UpsertSettingsParams{
			VaultBalance:     models.RoundMoney(out.VaultBalance),
			ProtectedFloor:   models.RoundMoney(out.ProtectedFloor),
			DailyLossLimit:   models.RoundMoney(out.DailyLossLimit),
			MinProbability:   out.MinProbability,
			PaperTradesCount: int32(out.PaperTradesCount),
		})
	})
	return out, err
}

func (s *Store) InsertTrade(ctx context.Context, t models.Trade) (err error) {
	if !t.Resolved() {
		return fmt.Errorf("pg.InsertTrade %s: %w", t.ID, service.ErrUnresolved)
	}

	span, ctx := tracing.StartSpan(ctx, "vault.InsertTrade")
	span.SetTag("trade.id", t.ID)
	defer func() {
		tracing.Finish(span, err)
		if err != nil {
			err = fmt.Errorf("pg.InsertTrade: %w", err)
		}
	}()

	_, err = s.sql.InsertTrade(ctx, s.conn, &sql.InsertTradeParams{
		ID:          t.ID,
		CreatedAt:   pgtype.Timestamptz{Time: t.Timestamp, Valid: true},
		Symbol:      string(t.Symbol),
		Direction:   string(t.Direction),
		Stake:       models.RoundMoney(t.Stake),
		Payout:      models.RoundMoney(t.Payout),
		Probability: t.Probability,
		Result:      string(t.Result),
		Profit:      models.RoundMoney(t.Profit),
		IsTraining:  t.IsTraining,
	})
	return err
}

func (s *Store) ListTrades(ctx context.Context, f models.TradeFilter) (out []models.Trade, err error) {
	span, ctx := tracing.StartSpan(ctx, "vault.ListTrades")
	defer func() {
		tracing.Finish(span, err)
		if err != nil {
			err = fmt.Errorf("pg.ListTrades: %w", err)
		}
	}()

	err = s.db.RunRepeatableRead(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, err := s.sql.ListTrades(ctxTx, tx, listParams(f))
		if err != nil {
			return err
		}
		out = make([]models.Trade, 0, len(rows))
		for _, r := range rows {
			out = append(out, models.Trade{
				ID:          r.ID,
				Timestamp:   r.CreatedAt.Time,
				Symbol:      models.Symbol(r.Symbol),
				Direction:   models.Direction(r.Direction),
				Stake:       r.Stake,
				Payout:      r.Payout,
				Probability: r.Probability,
				Result:      models.Result(r.Result),
				Profit:      r.Profit,
				IsTraining:  r.IsTraining,
			})
		}
		return nil
	})
	return out, err
}

func listParams(f models.TradeFilter) *sql.ListTradesParams {
	return &sql.ListTradesParams{
		Symbol:   string(f.Symbol),
		Result:   string(f.Result),
		FromTs:   pgtype.Timestamptz{Time: f.From, Valid: !f.From.IsZero()},
		ToTs:     pgtype.Timestamptz{Time: f.To, Valid: !f.To.IsZero()},
		RowLimit: int32(f.PageSize()),
	}
}

func fromRow(r sql.VaultSetting) models.VaultSettings {
	return models.VaultSettings{
		VaultBalance:     r.VaultBalance,
		ProtectedFloor:   r.ProtectedFloor,
		DailyLossLimit:   r.DailyLossLimit,
		MinProbability:   r.MinProbability,
		PaperTradesCount: int(r.PaperTradesCount),
	}
}
