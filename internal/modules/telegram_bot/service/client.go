package service

import (
	"context"
	"fmt"
	"sync"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vault_bot/internal/engine"
	"vault_bot/internal/indicator"
	"vault_bot/internal/models"
	"vault_bot/pkg/logger"
)

const outboxSize = 256

// Controller is the engine surface the bot drives.
type Controller interface {
	Start() error
	Calibrate() error
	Stop() error
	ToggleMode() error
	SetDailyLossLimit(limit float64) error
	State() engine.State
	Config() engine.Config
	Market() *indicator.Tracker
	Logs(limit int) []models.LogEntry
}

type TradeLister interface {
	ListTrades(ctx context.Context, filter models.TradeFilter) ([]models.Trade, error)
}

type Reconnector interface {
	Reconnect()
}

// botAPI is the part of *tgbot.BotAPI in use.
type botAPI interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
	GetUpdatesChan(config tgbot.UpdateConfig) tgbot.UpdatesChannel
	StopReceivingUpdates()
}

// Telegram talks to one operator chat: it forwards engine logs and turns
// commands into engine events.
type Telegram struct {
	bot    botAPI
	chatID int64

	engine Controller
	trades TradeLister
	feed   Reconnector

	outbox chan string
	wg     sync.WaitGroup
}

func NewTelegram(token string, chatID int64, eng Controller, trades TradeLister, feed Reconnector) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newTelegram(b, chatID, eng, trades, feed), nil
}

func newTelegram(b botAPI, chatID int64, eng Controller, trades TradeLister, feed Reconnector) *Telegram {
	return &Telegram{
		bot:    b,
		chatID: chatID,
		engine: eng,
		trades: trades,
		feed:   feed,
		outbox: make(chan string, outboxSize),
	}
}

func (t *Telegram) Send(ctx context.Context, chatID int64, msg string) (tgbot.Message, error) {
	m := tgbot.NewMessage(chatID, msg)
	m.ParseMode = tgbot.ModeMarkdown
	out, err := t.bot.Send(m)
	if err != nil {
		// retry without markup: symbols like R_10 can break Markdown parsing
		return t.bot.Send(tgbot.NewMessage(chatID, msg))
	}
	return out, nil
}

func (t *Telegram) SendF(ctx context.Context, chatID int64, format string, args ...any) (tgbot.Message, error) {
	return t.Send(ctx, chatID, fmt.Sprintf(format, args...))
}

// Notify queues an engine log for the operator chat. It never blocks; info
// entries stay in the journal only.
func (t *Telegram) Notify(_ context.Context, typ models.LogType, msg string) {
	if typ == models.LogInfo {
		return
	}
	select {
	case t.outbox <- formatLog(typ, msg):
	default:
		logger.Warn("telegram outbox full, dropping: %s", msg)
	}
}

// Start runs the update loop and the outbox sender until ctx is done.
func (t *Telegram) Start(ctx context.Context) {
	t.wg.Add(2)
	go func() {
		defer t.wg.Done()
		t.sendLoop(ctx)
	}()
	go func() {
		defer t.wg.Done()
		u := tgbot.NewUpdate(0)
		u.Timeout = 30
		updates := t.bot.GetUpdatesChan(u)
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				t.handleUpdate(ctx, update)
			}
		}
	}()
}

func (t *Telegram) Stop() {
	t.bot.StopReceivingUpdates()
	t.wg.Wait()
}

func (t *Telegram) sendLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-t.outbox:
			if _, err := t.Send(ctx, t.chatID, msg); err != nil {
				logger.Error("telegram send: %v", err)
			}
		}
	}
}
