package spatial

import (
	"math"
	"strconv"
)

// FormatPriceLabel renders a compact marker label: 950, 1.5k, 250k, 1.2M.
func FormatPriceLabel(price float64) string {
	if price < 0 {
		price = 0
	}
	if r := math.Round(price); r < 1000 {
		return strconv.FormatFloat(r, 'f', -1, 64)
	}
	if k := abbreviate(price / 1e3); k < 1000 {
		return strconv.FormatFloat(k, 'f', -1, 64) + "k"
	}
	return strconv.FormatFloat(abbreviate(price/1e6), 'f', -1, 64) + "M"
}

// abbreviate keeps one decimal below ten and none above.
func abbreviate(v float64) float64 {
	if v < 10 {
		if r := math.Round(v*10) / 10; r < 10 {
			return r
		}
	}
	return math.Round(v)
}
