package engine

import (
	"vault_bot/internal/models"
)

// Effect is a side effect requested by a transition. The loop executes them
// after the state has been updated; transitions never do I/O.
type Effect interface {
	isEffect()
}

type EmitLog struct {
	Type    models.LogType
	Message string
	Data    map[string]any
}

func (EmitLog) isEffect() {}

type SaveTrade struct {
	Trade models.Trade
}

func (SaveTrade) isEffect() {}

type SaveSettings struct {
	Patch models.SettingsPatch
}

func (SaveSettings) isEffect() {}

type DispatchOrder struct {
	Order models.Order
}

func (DispatchOrder) isEffect() {}

type StartTimer struct {
	Gen uint64
}

func (StartTimer) isEffect() {}

type CancelTimer struct{}

func (CancelTimer) isEffect() {}
