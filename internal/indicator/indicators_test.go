package indicator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRSI_NotEnoughData(t *testing.T) {
	prices := make([]float64, 14)
	for i := range prices {
		prices[i] = float64(100 - i)
	}
	assert.Equal(t, 50.0, RSI(prices, 14))
}

func TestRSI_AllGainsIs100(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = float64(100 + i)
	}
	assert.Equal(t, 100.0, RSI(prices, 14))
}

func TestRSI_AllLossesIsZero(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = float64(100 - i)
	}
	assert.InDelta(t, 0.0, RSI(prices, 14), 1e-9)
}

func TestRSI_SimpleAverageFormula(t *testing.T) {
	// 13 drops of 1, then a rise of 1: avgGain=1/14, avgLoss=13/14 -> rs=1/13
	prices := []float64{100, 99, 98, 97, 96, 95, 94, 93, 92, 91, 90, 89, 88, 87, 88}
	want := 100 - 100/(1+1.0/13)
	assert.InDelta(t, want, RSI(prices, 14), 1e-9)
}

func TestRSI_Bounded(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for n := 0; n < 200; n++ {
		length := 15 + r.Intn(90)
		prices := make([]float64, length)
		p := 1000.0
		for i := range prices {
			p += r.NormFloat64() * 3
			prices[i] = p
		}
		v := RSI(prices, 14)
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 100.0)
	}
}

func TestEMA_ConstantSeries(t *testing.T) {
	prices := make([]float64, 50)
	for i := range prices {
		prices[i] = 42.5
	}
	assert.InDelta(t, 42.5, EMA(prices, 9), 1e-12)
}

func TestEMA_SeedAndRecursion(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	seed := 5.0 // mean of 1..9
	want := (10-seed)*0.2 + seed
	assert.InDelta(t, want, EMA(prices, 9), 1e-12)
}

func TestEMA_ShortSeriesReturnsLast(t *testing.T) {
	assert.Equal(t, 3.0, EMA([]float64{1, 2, 3}, 9))
	assert.Equal(t, 0.0, EMA(nil, 9))
}

func TestChangePct(t *testing.T) {
	assert.Equal(t, 0.0, ChangePct([]float64{100}))
	assert.InDelta(t, 1.0, ChangePct([]float64{100, 101}), 1e-12)
	assert.InDelta(t, -2.0, ChangePct([]float64{50, 49}), 1e-12)
}

func TestSignalStrength(t *testing.T) {
	assert.Equal(t, 0.0, SignalStrength(50, 30, 70))
	assert.InDelta(t, 30.0, SignalStrength(20, 30, 70), 1e-12)
	assert.InDelta(t, 15.0, SignalStrength(75, 30, 70), 1e-12)
	assert.Equal(t, 100.0, SignalStrength(0, 30, 70))
	assert.False(t, math.IsNaN(SignalStrength(100, 30, 70)))
}
