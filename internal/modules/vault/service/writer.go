package service

import (
	"context"
	"time"

	"vault_bot/internal/models"
	"vault_bot/pkg/logger"
)

const (
	DefaultWriterQueue = 1024
	drainTimeout       = 5 * time.Second
)

type writeJob struct {
	trade *models.Trade
	patch *models.SettingsPatch
}

// Writer applies store writes one at a time in submission order, off the
// engine loop. Settings patches depend on that order.
type Writer struct {
	store Store
	jobs  chan writeJob

	// OnError is called for every failed or dropped write. Optional.
	OnError func(op string, err error)
	// OnSettings receives the stored record after each successful patch. Optional.
	OnSettings func(models.VaultSettings)
}

func NewWriter(store Store, size int) *Writer {
	if size <= 0 {
		size = DefaultWriterQueue
	}
	return &Writer{
		store: store,
		jobs:  make(chan writeJob, size),
	}
}

// SaveTrade queues t. It reports false when the queue is full.
func (w *Writer) SaveTrade(t models.Trade) bool {
	return w.enqueue("trade", writeJob{trade: &t})
}

// SaveSettings queues p. It reports false when the queue is full.
func (w *Writer) SaveSettings(p models.SettingsPatch) bool {
	return w.enqueue("settings", writeJob{patch: &p})
}

func (w *Writer) Pending() int { return len(w.jobs) }

func (w *Writer) enqueue(op string, j writeJob) bool {
	select {
	case w.jobs <- j:
		return true
	default:
		logger.Error("vault writer queue full, dropping %s write", op)
		w.fail(op, errQueueFull)
		return false
	}
}

// Run writes until ctx is done, then drains what is already queued.
func (w *Writer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case j := <-w.jobs:
			w.write(ctx, j)
		}
	}
}

func (w *Writer) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case j := <-w.jobs:
			w.write(ctx, j)
		default:
			return
		}
	}
}

func (w *Writer) write(ctx context.Context, j writeJob) {
	switch {
	case j.trade != nil:
		if err := w.store.InsertTrade(ctx, *j.trade); err != nil {
			logger.Error("save trade %s: %v", j.trade.ID, err)
			w.fail("trade", err)
		}
	case j.patch != nil:
		st, err := w.store.SaveSettings(ctx, *j.patch)
		if err != nil {
			logger.Error("save settings: %v", err)
			w.fail("settings", err)
			return
		}
		if w.OnSettings != nil {
			w.OnSettings(st)
		}
	}
}

func (w *Writer) fail(op string, err error) {
	if w.OnError != nil {
		w.OnError(op, err)
	}
}
