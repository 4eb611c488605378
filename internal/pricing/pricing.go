// Package pricing computes line-item and cart totals.
//
// Every intermediate product is rounded to cents before it is summed so the
// float drift of one add-on never compounds into the cart total.
package pricing

import (
	"math"

	"github.com/yungbote/storefront-backend/internal/types"
)

func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return math.Round(x*100) / 100
}

// money treats malformed catalog prices as zero.
func money(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
		return 0
	}
	return x
}

func multiplier(q int) float64 {
	if q <= 0 {
		return 1
	}
	return float64(q)
}

func AddOnTotal(addOns []types.AddOnSelection) float64 {
	total := 0.0
	for _, a := range addOns {
		total += Round2(money(a.UnitPrice) * multiplier(a.Quantity))
	}
	return total
}

// UnitPrice is the price of one unit of the item including its add-ons.
func UnitPrice(li types.LineItem) float64 {
	return Round2(money(li.BasePrice) + AddOnTotal(li.AddOns))
}

// LineTotal is UnitPrice times the item quantity.
func LineTotal(li types.LineItem) float64 {
	return Round2(UnitPrice(li) * multiplier(li.Quantity))
}

func CartTotal(items []types.LineItem) float64 {
	sum := 0.0
	for _, li := range items {
		sum += LineTotal(li)
	}
	return Round2(sum)
}

// MinorUnits converts an amount to integer cents for the payment processor.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(Round2(money(amount)) * 100))
}
