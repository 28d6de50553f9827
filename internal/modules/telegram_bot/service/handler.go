package service

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vault_bot/internal/models"
	"vault_bot/pkg/logger"
)

const (
	historyPage = 10
	logsPage    = 15
	maxLogsPage = 50
)

// buttonCommand maps reply keyboard labels to commands.
func buttonCommand(label string) (string, bool) {
	switch label {
	case "▶️ Run":
		return "run", true
	case "🎓 Train":
		return "train", true
	case "⏹ Halt":
		return "halt", true
	case "🔁 Mode":
		return "mode", true
	case "📊 Status":
		return "status", true
	case "📜 History":
		return "history", true
	case "🔌 Reconnect":
		return "reconnect", true
	}
	return "", false
}

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	if chatID != t.chatID {
		logger.Warn("telegram: ignoring message from chat %d", chatID)
		return
	}

	var cmd, args string
	switch {
	case msg.IsCommand():
		cmd, args = msg.Command(), msg.CommandArguments()
	default:
		c, ok := buttonCommand(strings.TrimSpace(msg.Text))
		if !ok {
			return
		}
		cmd = c
	}

	if cmd == "start" {
		t.sendMenu(ctx, chatID)
		return
	}
	if _, err := t.Send(ctx, chatID, t.command(ctx, cmd, args)); err != nil {
		logger.Error("telegram reply: %v", err)
	}
}

func (t *Telegram) sendMenu(ctx context.Context, chatID int64) {
	replyKb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("▶️ Run"),
			tgbotapi.NewKeyboardButton("🎓 Train"),
			tgbotapi.NewKeyboardButton("⏹ Halt"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("🔁 Mode"),
			tgbotapi.NewKeyboardButton("📊 Status"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📜 History"),
			tgbotapi.NewKeyboardButton("🔌 Reconnect"),
		),
	)
	m := tgbotapi.NewMessage(chatID, "Vault bot for Deriv synthetic indices.\n\n"+helpText)
	m.ParseMode = tgbotapi.ModeMarkdown
	m.ReplyMarkup = replyKb
	if _, err := t.bot.Send(m); err != nil {
		logger.Error("telegram menu: %v", err)
	}
}

// command executes one operator command and returns the reply text. Engine
// commands are queued; their outcome arrives as a log notification.
func (t *Telegram) command(ctx context.Context, cmd, args string) string {
	switch cmd {
	case "run":
		return queued(t.engine.Start(), "▶️ Start requested")
	case "train":
		return queued(t.engine.Calibrate(), "🎓 Calibration requested")
	case "halt":
		return queued(t.engine.Stop(), "⏹ Stop requested")
	case "mode":
		return queued(t.engine.ToggleMode(), "🔁 Mode switch requested")
	case "limit":
		v, err := parseFloat(args)
		if err != nil || v <= 0 {
			return "Usage: /limit <usd>, e.g. /limit 2.50"
		}
		return queued(t.engine.SetDailyLossLimit(v), fmt.Sprintf("Daily loss limit → `%s`", f2(v)))
	case "status":
		return formatStatus(t.engine.State(), t.engine.Config(), t.engine.Market().Snapshots())
	case "logs":
		return formatLogs(t.engine.Logs(parseLimit(args, logsPage, maxLogsPage)))
	case "history":
		f, bad := parseHistoryArgs(args)
		if bad != "" {
			return fmt.Sprintf("Unknown symbol %q, use one of %s", bad, strings.Join(models.WhitelistStrings(), ", "))
		}
		trades, err := t.trades.ListTrades(ctx, f)
		if err != nil {
			logger.Error("telegram history: %v", err)
			return "❗️ Could not load trade history"
		}
		return formatTrades(trades)
	case "reconnect":
		t.feed.Reconnect()
		return "🔌 Reconnecting to the price feed"
	case "help":
		return helpText
	default:
		return "Unknown command. " + helpText
	}
}

func queued(err error, ok string) string {
	if err != nil {
		return "❗️ " + err.Error()
	}
	return ok
}

// parseHistoryArgs reads "[symbol] [WIN|LOSS]" in any order. bad is the
// first argument that is neither.
func parseHistoryArgs(args string) (f models.TradeFilter, bad string) {
	f = models.TradeFilter{Limit: historyPage}
	for _, a := range strings.Fields(args) {
		switch up := strings.ToUpper(a); up {
		case string(models.ResultWin), string(models.ResultLoss):
			f.Result = models.Result(up)
		default:
			sym, ok := models.ParseSymbol(up)
			if !ok {
				return f, a
			}
			f.Symbol = sym
		}
	}
	return f, ""
}
