package service

import (
	"fmt"
	"strconv"
	"strings"
)

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func f2(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// parseFloat accepts a decimal comma and a leading "$".
func parseFloat(s string) (float64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

func parseLimit(s string, def, maxN int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, maxN)
}
