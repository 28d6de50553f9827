package service

import (
	"fmt"
	"strings"

	"vault_bot/internal/engine"
	"vault_bot/internal/indicator"
	"vault_bot/internal/models"
)

var logIcons = map[models.LogType]string{
	models.LogInfo:    "ℹ️",
	models.LogSuccess: "✅",
	models.LogWarning: "⚠️",
	models.LogError:   "❌",
	models.LogTrade:   "💹",
}

func formatLog(typ models.LogType, msg string) string {
	icon, ok := logIcons[typ]
	if !ok {
		icon = "•"
	}
	return icon + " " + msg
}

func formatStatus(s engine.State, cfg engine.Config, snaps []indicator.Snapshot) string {
	var b strings.Builder
	state := "⏸ idle"
	if s.IsRunning {
		state = "▶️ running"
	}
	fmt.Fprintf(&b, "*📊 Status*\n\n")
	fmt.Fprintf(&b, "Engine: %s, mode *%s*\n", state, s.Mode())
	fmt.Fprintf(&b, "Feed: connected *%s*, authorized *%s*\n", onOff(s.Connected), onOff(s.Authorized))
	fmt.Fprintf(&b, "Balance: `%s %s`\n", f2(s.Balance), s.Currency)
	fmt.Fprintf(&b, "Vault: `%s`, floor: `%s`\n", f2(s.Vault), f2(s.ProtectedFloor))
	fmt.Fprintf(&b, "Daily loss: `%s / %s`, recovery *%s*\n", f2(s.DailyLoss), f2(s.DailyLossLimit), onOff(s.IsRecoveryMode))
	fmt.Fprintf(&b, "Stake: `%s`, threshold: `%.0f%%`\n", f2(s.ActiveStake(cfg)), s.Threshold(cfg))
	fmt.Fprintf(&b, "Trades: `%d` (W %d / L %d), win rate `%.1f%%`\n", s.TradesCount, s.WinsCount, s.LossesCount, s.WinRate)
	fmt.Fprintf(&b, "Streak: `%d`, best `%d`\n", s.CurrentStreak, s.LongestStreak)
	fmt.Fprintf(&b, "Profit: `%s`\n", f2(s.TotalProfit))
	fmt.Fprintf(&b, "Paper trades: `%d/%d`\n", s.PaperTradesCount, cfg.MinPaperTrades)
	if s.Pending != nil {
		fmt.Fprintf(&b, "Pending: %s %s @ `%s`\n", s.Pending.Direction, s.Pending.Symbol, f2(s.Pending.Stake))
	}

	if len(snaps) > 0 {
		b.WriteString("\n*Indicators*\n")
		for _, sn := range snaps {
			if sn.Samples == 0 {
				fmt.Fprintf(&b, "%s: no data\n", sn.Symbol)
				continue
			}
			fmt.Fprintf(&b, "%s: `%.4f` RSI `%.1f` EMA `%.4f` (%+.2f%%)\n",
				sn.Symbol, sn.LastPrice, sn.RSI, sn.EMA, sn.PriceChangePct)
		}
	}
	return b.String()
}

func formatLogs(entries []models.LogEntry) string {
	if len(entries) == 0 {
		return "📭 No log entries yet"
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %s\n", e.Timestamp.Format("15:04:05"), formatLog(e.Type, e.Message))
	}
	return b.String()
}

func formatTrades(trades []models.Trade) string {
	if len(trades) == 0 {
		return "📭 No trades found"
	}
	var b strings.Builder
	b.WriteString("*📜 History*\n")
	for _, t := range trades {
		mode := "LIVE"
		if t.IsTraining {
			mode = "PAPER"
		}
		fmt.Fprintf(&b, "%s [%s] %s %s stake `%s` → *%s* `%+.2f`\n",
			t.Timestamp.Format("01-02 15:04"), mode, t.Direction, t.Symbol, f2(t.Stake), t.Result, t.Profit)
	}
	return b.String()
}

const helpText = "*Commands*\n" +
	"/run start trading in the current mode\n" +
	"/train start a paper calibration session\n" +
	"/halt stop the engine\n" +
	"/mode switch between TRAINING and LIVE\n" +
	"/limit <usd> set the daily loss limit\n" +
	"/status engine, risk and indicators\n" +
	"/logs [n] recent engine log\n" +
	"/history [symbol] [WIN|LOSS] recent trades\n" +
	"/reconnect reconnect the price feed"
