package engine

import (
	"vault_bot/internal/models"
)

func (m *Machine) start(s State, e StartRequested) (State, []Effect) {
	s, effects := m.rollover(s, e.At)

	if s.IsRunning {
		return s, effects
	}
	if e.Calibration && !s.IsTraining {
		return s, append(effects, logf(models.LogWarning, "Calibration runs only in TRAINING mode"))
	}
	if !e.Calibration && s.IsTraining && s.PaperTradesCount < m.cfg.MinPaperTrades {
		return s, append(effects, logf(models.LogWarning,
			"Complete %d paper trades first (%d/%d)",
			m.cfg.MinPaperTrades, s.PaperTradesCount, m.cfg.MinPaperTrades))
	}
	if s.DailyLimitReached() {
		return s, append(effects, logf(models.LogError, "Daily loss limit reached. Engine locked."))
	}

	s.IsRunning = true
	s.TimerGen++
	msg := "Engine started in %s mode"
	if e.Calibration {
		msg = "Calibration started in %s mode"
	}
	return s, append(effects,
		StartTimer{Gen: s.TimerGen},
		logf(models.LogSuccess, msg, s.Mode()),
	)
}

// stop never touches Pending: an order already sent still settles.
func (m *Machine) stop(s State) (State, []Effect) {
	s.IsRunning = false
	s.CurrentSymbol = ""
	return s, []Effect{
		CancelTimer{},
		logf(models.LogWarning, "Engine stopped"),
	}
}

func (m *Machine) toggleMode(s State) (State, []Effect) {
	if !s.CanStartLive(m.cfg) {
		return s, []Effect{logf(models.LogWarning,
			"Live mode locked: complete %d paper trades first (%d/%d)",
			m.cfg.MinPaperTrades, s.PaperTradesCount, m.cfg.MinPaperTrades)}
	}

	var effects []Effect
	if s.IsRunning {
		s, effects = m.stop(s)
	}
	s.IsTraining = !s.IsTraining
	return s, append(effects, logf(models.LogInfo, "Switched to %s mode", s.Mode()))
}

func (m *Machine) setDailyLossLimit(s State, limit float64) (State, []Effect) {
	if limit <= 0 {
		return s, []Effect{logf(models.LogWarning, "Daily loss limit must be positive, got %.2f", limit)}
	}
	s.DailyLossLimit = limit
	return s, []Effect{
		logf(models.LogInfo, "Daily loss limit set to $%.2f", limit),
		SaveSettings{Patch: models.SettingsPatch{DailyLossLimit: &limit}},
	}
}

// onSettings restores the persisted record. Vault and floor are never lowered.
func (m *Machine) onSettings(s State, st models.VaultSettings) (State, []Effect) {
	if st.VaultBalance > s.Vault {
		s.Vault = st.VaultBalance
	}
	if st.ProtectedFloor > s.ProtectedFloor {
		s.ProtectedFloor = st.ProtectedFloor
	}
	if st.DailyLossLimit > 0 {
		s.DailyLossLimit = st.DailyLossLimit
	}
	if st.MinProbability > 0 {
		s.MinProbability = clamp(st.MinProbability, 0, m.cfg.MaxProbability)
	}
	s.PaperTradesCount = max(s.PaperTradesCount, st.PaperTradesCount)
	return s, []Effect{logf(models.LogSuccess,
		"Vault settings loaded: vault %.2f, floor %.2f, limit %.2f, min probability %.0f%%, paper trades %d",
		s.Vault, s.ProtectedFloor, s.DailyLossLimit, s.MinProbability, s.PaperTradesCount)}
}

func (m *Machine) onAuthorization(s State, e AuthorizationChanged) (State, []Effect) {
	s.Authorized = e.OK
	if !e.OK {
		return s, []Effect{logf(models.LogError, "Authorization failed: %s. Trading blocked.", e.Reason)}
	}
	s.Balance = e.Balance
	if e.Currency != "" {
		s.Currency = e.Currency
	}
	return s, []Effect{logf(models.LogSuccess, "Authorized: %s %.2f", s.Currency, s.Balance)}
}

func (m *Machine) onTransport(s State, e TransportStatus) (State, []Effect) {
	s.Connected = e.Connected
	if e.Connected {
		return s, []Effect{logf(models.LogSuccess, "Feed connected")}
	}
	s.Authorized = false
	if e.Attempt > 0 {
		return s, []Effect{logf(models.LogWarning, "Feed disconnected (%s), reconnect attempt %d", e.Reason, e.Attempt)}
	}
	return s, []Effect{logf(models.LogWarning, "Feed disconnected: %s", e.Reason)}
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
