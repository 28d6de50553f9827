package models

// Direction of a rise/fall contract.
type Direction string

const (
	DirectionCall Direction = "CALL"
	DirectionPut  Direction = "PUT"
)

// Candidate is the single trade the analyzer proposes for one evaluation cycle.
type Candidate struct {
	Symbol      Symbol
	Direction   Direction
	Probability float64
	RSI         float64
	EMA         float64
	Price       float64
}
