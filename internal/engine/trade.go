package engine

import (
	"fmt"
	"math"
	"time"

	"vault_bot/internal/models"
)

func (m *Machine) onTimer(s State, e TimerFire) (State, []Effect) {
	if !s.IsRunning || e.Gen != s.TimerGen {
		return s, nil
	}

	s, effects := m.rollover(s, e.At)

	if s.DailyLimitReached() {
		var stopEffects []Effect
		s, stopEffects = m.stop(s)
		effects = append(effects, stopEffects...)
		return s, append(effects, logf(models.LogError, "Daily loss limit reached. Stopping engine."))
	}
	if !s.Authorized {
		return s, effects
	}
	if s.Pending != nil {
		// the previous live contract has not settled yet
		return s, effects
	}

	c, ok := m.analyzer.Evaluate(m.market, s.Threshold(m.cfg))
	if !ok {
		return s, effects
	}
	s, tradeEffects := m.execute(s, c, e.At)
	return s, append(effects, tradeEffects...)
}

// execute realizes a candidate: a paper trade settles immediately, a live
// trade is dispatched and left pending.
func (m *Machine) execute(s State, c models.Candidate, at time.Time) (State, []Effect) {
	stake := s.ActiveStake(m.cfg)

	if s.Balance-stake < s.ProtectedFloor {
		return s, []Effect{EmitLog{
			Type:    models.LogWarning,
			Message: "Trade blocked: Would breach protected floor",
			Data: map[string]any{
				"balance": s.Balance,
				"stake":   stake,
				"floor":   s.ProtectedFloor,
			},
		}}
	}

	trade := models.Trade{
		ID:          m.newID(),
		Timestamp:   at,
		Symbol:      c.Symbol,
		Direction:   c.Direction,
		Stake:       stake,
		Probability: c.Probability,
		IsTraining:  s.IsTraining,
	}

	if s.IsTraining {
		trade.Payout = stake * m.cfg.PayoutRatio
		if m.rng.Float64() < c.Probability/100 {
			trade.Result = models.ResultWin
			trade.Profit = trade.Payout
		} else {
			trade.Result = models.ResultLoss
			trade.Profit = -stake
		}
		effects := []Effect{
			EmitLog{
				Type: models.LogTrade,
				Message: fmt.Sprintf("[PAPER] %s %s @ %.1f%% → %s",
					trade.Direction, trade.Symbol, trade.Probability, trade.Result),
				Data: map[string]any{"trade": trade},
			},
			SaveTrade{Trade: trade},
		}
		s, aggEffects := m.aggregate(s, trade)
		return s, append(effects, aggEffects...)
	}

	trade.Result = models.ResultPending
	s.Pending = &trade
	s.CurrentSymbol = trade.Symbol
	return s, []Effect{
		DispatchOrder{Order: models.Order{
			TradeID:      trade.ID,
			Amount:       stake,
			Basis:        "stake",
			ContractType: trade.Direction,
			Currency:     s.Currency,
			Duration:     m.cfg.ContractTicks,
			DurationUnit: "t",
			Symbol:       trade.Symbol,
		}},
		logf(models.LogInfo, "Proposal sent: %s %s @ $%.2f", trade.Direction, trade.Symbol, stake),
	}
}

func (m *Machine) onConfirmed(s State, e OrderConfirmed) (State, []Effect) {
	p := s.Pending
	if p == nil || p.Symbol != e.Symbol || (e.TradeID != "" && e.TradeID != p.ID) {
		return s, []Effect{EmitLog{
			Type:    models.LogWarning,
			Message: "Dropped confirmation with no matching pending trade",
			Data:    map[string]any{"symbol": e.Symbol, "trade_id": e.TradeID},
		}}
	}
	if e.Result != models.ResultWin && e.Result != models.ResultLoss {
		return s, []Effect{logf(models.LogWarning, "Dropped confirmation for %s with result %q", e.Symbol, e.Result)}
	}

	trade := *p
	trade.Result = e.Result
	trade.Payout = e.Payout
	trade.Profit = e.Profit
	s.Pending = nil
	if s.CurrentSymbol == trade.Symbol {
		s.CurrentSymbol = ""
	}

	effects := []Effect{
		EmitLog{
			Type:    models.LogTrade,
			Message: fmt.Sprintf("[LIVE] %s %s → %s (%+.2f)", trade.Direction, trade.Symbol, trade.Result, trade.Profit),
			Data:    map[string]any{"trade": trade, "contract_id": e.ContractID},
		},
		SaveTrade{Trade: trade},
	}
	s, aggEffects := m.aggregate(s, trade)
	return s, append(effects, aggEffects...)
}

func (m *Machine) onFailed(s State, e OrderFailed) (State, []Effect) {
	p := s.Pending
	if p == nil || p.Symbol != e.Symbol || (e.TradeID != "" && e.TradeID != p.ID) {
		return s, []Effect{logf(models.LogWarning, "Order failure for %s with no pending trade: %s", e.Symbol, e.Reason)}
	}
	s.Pending = nil
	if s.CurrentSymbol == e.Symbol {
		s.CurrentSymbol = ""
	}
	return s, []Effect{logf(models.LogError, "Order %s %s failed: %s", p.Direction, p.Symbol, e.Reason)}
}

// aggregate folds a resolved trade into the counters and risk figures.
func (m *Machine) aggregate(s State, t models.Trade) (State, []Effect) {
	var (
		effects []Effect
		patch   models.SettingsPatch
	)

	win := t.Result == models.ResultWin
	s.TradesCount++
	if win {
		s.WinsCount++
		s.CurrentStreak++
		s.LongestStreak = max(s.LongestStreak, s.CurrentStreak)
	} else {
		s.LossesCount++
		s.CurrentStreak = 0
		s.DailyLoss += math.Abs(t.Profit)
	}
	s.WinRate = winRate(s.WinsCount, s.TradesCount)
	s.TotalProfit += t.Profit
	s.LastTradeResult = t.Result

	if t.Profit >= m.cfg.VaultTrigger {
		s.Vault += m.cfg.FloorIncrement
		s.ProtectedFloor += m.cfg.FloorIncrement
		vault, floor := s.Vault, s.ProtectedFloor
		patch.VaultBalance = &vault
		patch.ProtectedFloor = &floor
		effects = append(effects, logf(models.LogSuccess,
			"Vault +%.2f (vault %.2f, floor %.2f)", m.cfg.FloorIncrement, vault, floor))
	}

	if win {
		s.CurrentStake = m.cfg.DefaultStake
	} else {
		s.CurrentStake = min(s.CurrentStake*m.cfg.LossMultiplier, m.cfg.MaxStake)
	}
	s.CurrentStake = clamp(s.CurrentStake, m.cfg.MinStake, m.cfg.MaxStake)

	wasRecovery := s.IsRecoveryMode
	s.IsRecoveryMode = s.DailyLoss >= s.DailyLossLimit*m.cfg.RecoveryThreshold
	if s.IsRecoveryMode && !wasRecovery {
		effects = append(effects, logf(models.LogWarning,
			"Recovery mode engaged: daily loss %.2f of %.2f, stake %.2f, threshold %.0f%%",
			s.DailyLoss, s.DailyLossLimit, m.cfg.RecoveryStake, m.cfg.RecoveryProbability))
	}

	if t.IsTraining {
		s.PaperTradesCount++
		paper := s.PaperTradesCount
		patch.PaperTradesCount = &paper
		var calEffects []Effect
		s, calEffects = m.calibrate(s)
		if len(calEffects) > 0 {
			minProb := s.MinProbability
			patch.MinProbability = &minProb
			effects = append(effects, calEffects...)
		}
	}

	if !patch.Empty() {
		effects = append(effects, SaveSettings{Patch: patch})
	}
	return s, effects
}

// calibrate raises the acceptance bar every TradesPerCalibration paper trades
// while the win rate stays under target. It never lowers it.
func (m *Machine) calibrate(s State) (State, []Effect) {
	n := m.cfg.TradesPerCalibration
	if n <= 0 || s.PaperTradesCount%n != 0 || s.WinRate >= m.cfg.WinRateThreshold {
		return s, nil
	}
	next := min(m.cfg.MaxProbability, s.MinProbability+m.cfg.ProbabilityIncrement)
	if next == s.MinProbability {
		return s, nil
	}
	s.MinProbability = next
	return s, []Effect{logf(models.LogInfo,
		"Calibration: win rate %.1f%% < %.0f%%, min probability raised to %.0f%%",
		s.WinRate, m.cfg.WinRateThreshold, s.MinProbability)}
}
