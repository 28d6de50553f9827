package signal

import (
	"vault_bot/internal/indicator"
	"vault_bot/internal/models"
)

// Policy scores one instrument's price window. ok is false when the window
// does not produce a directional setup; the threshold is applied by the Analyzer.
type Policy interface {
	Score(prices []float64) (c models.Candidate, ok bool)
}

// MeanReversion buys oversold upticks and sells overbought downticks,
// with a bonus when price sits on the confirming side of the EMA.
type MeanReversion struct {
	MinSamples     int
	RSIPeriod      int
	EMAPeriod      int
	Oversold       float64
	Overbought     float64
	BaseProb       float64
	ProbPerPoint   float64
	EMABonus       float64
	MaxProbability float64
}

func DefaultMeanReversion() MeanReversion {
	return MeanReversion{
		MinSamples:     20,
		RSIPeriod:      14,
		EMAPeriod:      9,
		Oversold:       30,
		Overbought:     70,
		BaseProb:       70,
		ProbPerPoint:   0.8,
		EMABonus:       5,
		MaxProbability: 95,
	}
}

func (p MeanReversion) Score(prices []float64) (models.Candidate, bool) {
	if len(prices) < p.MinSamples || len(prices) < 2 {
		return models.Candidate{}, false
	}

	rsi := indicator.RSI(prices, p.RSIPeriod)
	ema := indicator.EMA(prices, p.EMAPeriod)
	cur := prices[len(prices)-1]
	prev := prices[len(prices)-2]

	c := models.Candidate{RSI: rsi, EMA: ema, Price: cur}
	switch {
	case rsi < p.Oversold && cur > prev:
		c.Direction = models.DirectionCall
		c.Probability = min(p.MaxProbability, p.BaseProb+(p.Oversold-rsi)*p.ProbPerPoint)
		if cur > ema {
			c.Probability += p.EMABonus
		}
	case rsi > p.Overbought && cur < prev:
		c.Direction = models.DirectionPut
		c.Probability = min(p.MaxProbability, p.BaseProb+(rsi-p.Overbought)*p.ProbPerPoint)
		if cur < ema {
			c.Probability += p.EMABonus
		}
	default:
		return models.Candidate{}, false
	}

	c.Probability = min(p.MaxProbability, c.Probability)
	return c, true
}
