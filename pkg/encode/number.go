package encode

import (
	"math"
	"strconv"
)

// dec formats f with at most prec decimals and no trailing zeros.
func dec(f float64, prec int) string {
	p := math.Pow10(prec)
	f = math.Round(f*p) / p
	if f == 0 {
		return "0" // avoids "-0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// fixed returns round(f·scale) as an integer.
func fixed(f, scale float64) int {
	return int(math.Round(f * scale))
}
