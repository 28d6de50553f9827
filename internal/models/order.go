package models

// Order is the dispatch request for one live contract.
type Order struct {
	TradeID      string    `json:"trade_id"`
	Amount       float64   `json:"amount"`
	Basis        string    `json:"basis"`
	ContractType Direction `json:"contract_type"`
	Currency     string    `json:"currency"`
	Duration     int       `json:"duration"`
	DurationUnit string    `json:"duration_unit"`
	Symbol       Symbol    `json:"symbol"`
}
