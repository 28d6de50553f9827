package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vault_bot/internal/indicator"
	"vault_bot/internal/models"
)

type fakeMarket map[models.Symbol][]float64

func (f fakeMarket) Prices(sym models.Symbol) []float64 { return f[sym] }

// falling returns n strictly decreasing prices followed by one uptick.
func fallingThenUp(n int) []float64 {
	out := make([]float64, 0, n+1)
	p := 1000.0
	for i := 0; i < n; i++ {
		out = append(out, p)
		p -= 1
	}
	return append(out, out[len(out)-1]+0.5)
}

func risingThenDown(n int) []float64 {
	out := make([]float64, 0, n+1)
	p := 1000.0
	for i := 0; i < n; i++ {
		out = append(out, p)
		p += 1
	}
	return append(out, out[len(out)-1]-0.5)
}

func TestAnalyzer_CallOnOversoldUptick(t *testing.T) {
	tr := indicator.NewTracker(indicator.DefaultConfig())
	for _, p := range fallingThenUp(19) {
		tr.OnTick("R_10", p)
	}
	require.Len(t, tr.Prices(models.SymbolR10), 20)

	a := NewAnalyzer(DefaultMeanReversion())
	c, ok := a.Evaluate(tr, 75)
	require.True(t, ok)
	assert.Equal(t, models.SymbolR10, c.Symbol)
	assert.Equal(t, models.DirectionCall, c.Direction)
	assert.GreaterOrEqual(t, c.Probability, 75.0)
	assert.LessOrEqual(t, c.Probability, 95.0)
	assert.Less(t, c.RSI, 30.0)
}

func TestAnalyzer_PutOnOverboughtDowntick(t *testing.T) {
	m := fakeMarket{models.SymbolR100: risingThenDown(25)}
	c, ok := NewAnalyzer(DefaultMeanReversion()).Evaluate(m, 75)
	require.True(t, ok)
	assert.Equal(t, models.DirectionPut, c.Direction)
	assert.Equal(t, models.SymbolR100, c.Symbol)
}

func TestAnalyzer_NotEnoughSamples(t *testing.T) {
	m := fakeMarket{models.SymbolR10: fallingThenUp(18)}
	_, ok := NewAnalyzer(DefaultMeanReversion()).Evaluate(m, 0)
	assert.False(t, ok)
}

func TestAnalyzer_NoUptickNoCall(t *testing.T) {
	prices := fallingThenUp(20)
	prices = prices[:len(prices)-1] // still falling on the last tick
	m := fakeMarket{models.SymbolR10: prices}
	_, ok := NewAnalyzer(DefaultMeanReversion()).Evaluate(m, 0)
	assert.False(t, ok)
}

func TestAnalyzer_ThresholdRejects(t *testing.T) {
	m := fakeMarket{models.SymbolR10: fallingThenUp(19)}
	a := NewAnalyzer(DefaultMeanReversion())
	c, ok := a.Evaluate(m, 0)
	require.True(t, ok)

	_, ok = a.Evaluate(m, c.Probability+0.01)
	assert.False(t, ok)
	_, ok = a.Evaluate(m, c.Probability)
	assert.True(t, ok)
}

func TestAnalyzer_TieKeepsWhitelistOrder(t *testing.T) {
	series := fallingThenUp(19)
	m := fakeMarket{
		models.SymbolR50:    series,
		models.Symbol1HZ10V: series,
	}
	c, ok := NewAnalyzer(DefaultMeanReversion()).Evaluate(m, 0)
	require.True(t, ok)
	assert.Equal(t, models.SymbolR50, c.Symbol)
}

type fixedPolicy map[float64]float64

func (f fixedPolicy) Score(prices []float64) (models.Candidate, bool) {
	if len(prices) == 0 {
		return models.Candidate{}, false
	}
	p, ok := f[prices[0]]
	return models.Candidate{Direction: models.DirectionCall, Probability: p}, ok
}

func TestAnalyzer_PicksHighest(t *testing.T) {
	m := fakeMarket{
		models.SymbolR10:    {1},
		models.SymbolR50:    {2},
		models.SymbolR100:   {3},
		models.Symbol1HZ10V: {4},
	}
	pol := fixedPolicy{1: 80, 2: 91, 3: 88, 4: 91}
	c, ok := NewAnalyzer(pol).Evaluate(m, 75)
	require.True(t, ok)
	assert.Equal(t, models.SymbolR50, c.Symbol)
	assert.Equal(t, 91.0, c.Probability)
}

func TestMeanReversion_CappedAt95(t *testing.T) {
	pol := DefaultMeanReversion()
	pol.ProbPerPoint = 10
	c, ok := pol.Score(fallingThenUp(25))
	require.True(t, ok)
	assert.Equal(t, 95.0, c.Probability)
}
