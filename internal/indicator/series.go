package indicator

// Series is a bounded price window; the oldest sample is evicted on overflow.
type Series struct {
	capacity int
	prices   []float64
}

func NewSeries(capacity int) *Series {
	if capacity <= 0 {
		capacity = 1
	}
	return &Series{
		capacity: capacity,
		prices:   make([]float64, 0, capacity),
	}
}

func (s *Series) Push(price float64) {
	if len(s.prices) == s.capacity {
		copy(s.prices, s.prices[1:])
		s.prices = s.prices[:len(s.prices)-1]
	}
	s.prices = append(s.prices, price)
}

// Prices is a view of the window; callers must not modify it.
func (s *Series) Prices() []float64 { return s.prices }

func (s *Series) Len() int { return len(s.prices) }

// Last returns the newest price and the one before it.
func (s *Series) Last() (cur, prev float64, ok bool) {
	n := len(s.prices)
	if n < 2 {
		return 0, 0, false
	}
	return s.prices[n-1], s.prices[n-2], true
}
