package signal

import (
	"vault_bot/internal/models"
)

// Market exposes the per-instrument price windows the analyzer reads.
type Market interface {
	Prices(sym models.Symbol) []float64
}

type Analyzer struct {
	policy  Policy
	symbols []models.Symbol
}

func NewAnalyzer(policy Policy) *Analyzer {
	return &Analyzer{policy: policy, symbols: models.Whitelist}
}

// Evaluate scans every instrument and returns the highest-probability candidate
// at or above threshold. Ties keep the earlier instrument in whitelist order.
func (a *Analyzer) Evaluate(m Market, threshold float64) (models.Candidate, bool) {
	var (
		best  models.Candidate
		found bool
	)
	for _, sym := range a.symbols {
		c, ok := a.policy.Score(m.Prices(sym))
		if !ok || c.Probability < threshold {
			continue
		}
		if !found || c.Probability > best.Probability {
			c.Symbol = sym
			best = c
			found = true
		}
	}
	return best, found
}
