package service

// Frames of the Deriv (binary.com) v3 websocket API. Only the fields the bot
// reads are declared.

type passthrough struct {
	TradeID string `json:"trade_id,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type frame struct {
	MsgType     string       `json:"msg_type"`
	ReqID       int64        `json:"req_id,omitempty"`
	Passthrough *passthrough `json:"passthrough,omitempty"`
	Error       *apiError    `json:"error,omitempty"`

	Authorize    *authorizeResp    `json:"authorize,omitempty"`
	Tick         *tickResp         `json:"tick,omitempty"`
	Balance      *balanceResp      `json:"balance,omitempty"`
	Proposal     *proposalResp     `json:"proposal,omitempty"`
	Buy          *buyResp          `json:"buy,omitempty"`
	OpenContract *openContractResp `json:"proposal_open_contract,omitempty"`
	Portfolio    *portfolioResp    `json:"portfolio,omitempty"`
	ProfitTable  *profitTableResp  `json:"profit_table,omitempty"`
	Subscription *subscription     `json:"subscription,omitempty"`
}

type authorizeResp struct {
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
	LoginID  string  `json:"loginid"`
}

type tickResp struct {
	Symbol string  `json:"symbol"`
	Quote  float64 `json:"quote"`
	Epoch  int64   `json:"epoch"`
}

type balanceResp struct {
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

type proposalResp struct {
	ID       string  `json:"id"`
	AskPrice float64 `json:"ask_price"`
	Payout   float64 `json:"payout"`
}

type buyResp struct {
	ContractID   int64   `json:"contract_id"`
	BuyPrice     float64 `json:"buy_price"`
	Payout       float64 `json:"payout"`
	BalanceAfter float64 `json:"balance_after"`
}

type openContractResp struct {
	ContractID int64   `json:"contract_id"`
	IsSold     int     `json:"is_sold"`
	Status     string  `json:"status"`
	Profit     float64 `json:"profit"`
	Payout     float64 `json:"payout"`
	SellPrice  float64 `json:"sell_price"`
	Underlying string  `json:"underlying"`
	SellTime   int64   `json:"sell_time"`
}

type portfolioResp struct {
	Contracts []struct {
		ContractID   int64   `json:"contract_id"`
		ContractType string  `json:"contract_type"`
		Symbol       string  `json:"symbol"`
		BuyPrice     float64 `json:"buy_price"`
		PurchaseTime int64   `json:"purchase_time"`
	} `json:"contracts"`
}

type profitTableResp struct {
	Transactions []struct {
		ContractID   int64   `json:"contract_id"`
		BuyPrice     float64 `json:"buy_price"`
		PurchaseTime int64   `json:"purchase_time"`
		Shortcode    string  `json:"shortcode"`
	} `json:"transactions"`
}

type subscription struct {
	ID string `json:"id"`
}

// requests

type authorizeReq struct {
	Authorize string `json:"authorize"`
	ReqID     int64  `json:"req_id"`
}

type forgetAllReq struct {
	ForgetAll string `json:"forget_all"`
}

type forgetReq struct {
	Forget string `json:"forget"`
}

type ticksReq struct {
	Ticks     []string `json:"ticks"`
	Subscribe int      `json:"subscribe"`
}

type balanceReq struct {
	Balance   int `json:"balance"`
	Subscribe int `json:"subscribe"`
}

type pingReq struct {
	Ping int `json:"ping"`
}

type proposalReq struct {
	Proposal     int          `json:"proposal"`
	Amount       float64      `json:"amount"`
	Basis        string       `json:"basis"`
	ContractType string       `json:"contract_type"`
	Currency     string       `json:"currency"`
	Duration     int          `json:"duration"`
	DurationUnit string       `json:"duration_unit"`
	Symbol       string       `json:"symbol"`
	Passthrough  *passthrough `json:"passthrough,omitempty"`
	ReqID        int64        `json:"req_id"`
}

type buyReq struct {
	Buy         string       `json:"buy"`
	Price       float64      `json:"price"`
	Passthrough *passthrough `json:"passthrough,omitempty"`
	ReqID       int64        `json:"req_id"`
}

type openContractReq struct {
	ProposalOpenContract int          `json:"proposal_open_contract"`
	ContractID           int64        `json:"contract_id"`
	Subscribe            int          `json:"subscribe"`
	Passthrough          *passthrough `json:"passthrough,omitempty"`
}

type portfolioReq struct {
	Portfolio int   `json:"portfolio"`
	ReqID     int64 `json:"req_id"`
}

type profitTableReq struct {
	ProfitTable int    `json:"profit_table"`
	Description int    `json:"description"`
	DateFrom    int64  `json:"date_from"`
	Limit       int    `json:"limit"`
	Sort        string `json:"sort"`
	ReqID       int64  `json:"req_id"`
}
