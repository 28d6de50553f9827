package models

// Symbol is a synthetic index identifier as used by the price feed.
type Symbol string

const (
	SymbolR10    Symbol = "R_10"
	SymbolR50    Symbol = "R_50"
	SymbolR100   Symbol = "R_100"
	Symbol1HZ10V Symbol = "1HZ10V"
)

// Whitelist is the ordered set of tradable instruments. Order matters: ties in
// candidate ranking go to the earlier symbol.
var Whitelist = []Symbol{SymbolR10, SymbolR50, SymbolR100, Symbol1HZ10V}

var labels = map[Symbol]string{
	SymbolR10:    "Volatility 10",
	SymbolR50:    "Volatility 50",
	SymbolR100:   "Volatility 100",
	Symbol1HZ10V: "Volatility 10 (1s)",
}

// ParseSymbol reports whether s is a whitelisted instrument.
func ParseSymbol(s string) (Symbol, bool) {
	for _, sym := range Whitelist {
		if string(sym) == s {
			return sym, true
		}
	}
	return "", false
}

func (s Symbol) Label() string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}

// WhitelistStrings is the whitelist in the form the feed subscription expects.
func WhitelistStrings() []string {
	out := make([]string, 0, len(Whitelist))
	for _, s := range Whitelist {
		out = append(out, string(s))
	}
	return out
}
