package models

// VaultSettings is the singleton settings record kept by the store.
type VaultSettings struct {
	VaultBalance   float64 `json:"vault_balance"`
	ProtectedFloor float64 `json:"protected_floor"`
	DailyLossLimit float64 `json:"daily_loss_limit"`
	MinProbability float64 `json:"min_probability"`

	PaperTradesCount int `json:"paper_trades_count"`
}

// SettingsPatch carries only the fields that changed; nil means untouched.
type SettingsPatch struct {
	VaultBalance   *float64 `json:"vault_balance,omitempty"`
	ProtectedFloor *float64 `json:"protected_floor,omitempty"`
	DailyLossLimit *float64 `json:"daily_loss_limit,omitempty"`
	MinProbability *float64 `json:"min_probability,omitempty"`

	PaperTradesCount *int `json:"paper_trades_count,omitempty"`
}

func (p SettingsPatch) Empty() bool {
	return p.VaultBalance == nil && p.ProtectedFloor == nil &&
		p.DailyLossLimit == nil && p.MinProbability == nil &&
		p.PaperTradesCount == nil
}

// Apply merges the patch into s.
func (p SettingsPatch) Apply(s VaultSettings) VaultSettings {
	if p.VaultBalance != nil {
		s.VaultBalance = *p.VaultBalance
	}
	if p.ProtectedFloor != nil {
		s.ProtectedFloor = *p.ProtectedFloor
	}
	if p.DailyLossLimit != nil {
		s.DailyLossLimit = *p.DailyLossLimit
	}
	if p.MinProbability != nil {
		s.MinProbability = *p.MinProbability
	}
	if p.PaperTradesCount != nil {
		s.PaperTradesCount = *p.PaperTradesCount
	}
	return s
}
