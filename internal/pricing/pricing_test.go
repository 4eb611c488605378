package pricing

import (
	"math"
	"math/rand"
	"testing"

	"github.com/yungbote/storefront-backend/internal/types"
)

func TestLineTotalRoundsEachStep(t *testing.T) {
	li := types.LineItem{
		BasePrice: 8.99,
		Quantity:  3,
		AddOns: []types.AddOnSelection{
			{ID: "cheese", UnitPrice: 0.333, Quantity: 3},
			{ID: "bacon", UnitPrice: 1.5, Quantity: 1},
		},
	}
	// add-ons: round2(0.999)=1.00 + 1.50 = 2.50; unit = 11.49; line = 34.47
	if got := AddOnTotal(li.AddOns); got != 2.5 {
		t.Fatalf("AddOnTotal: want=2.5 got=%v", got)
	}
	if got := UnitPrice(li); got != 11.49 {
		t.Fatalf("UnitPrice: want=11.49 got=%v", got)
	}
	if got := LineTotal(li); got != 34.47 {
		t.Fatalf("LineTotal: want=34.47 got=%v", got)
	}
}

func TestMalformedPricesCountAsZero(t *testing.T) {
	li := types.LineItem{
		BasePrice: math.NaN(),
		Quantity:  2,
		AddOns:    []types.AddOnSelection{{ID: "a", UnitPrice: math.Inf(1), Quantity: 1}, {ID: "b", UnitPrice: -4, Quantity: 1}},
	}
	if got := LineTotal(li); got != 0 {
		t.Fatalf("LineTotal: want=0 got=%v", got)
	}
}

func TestNonPositiveQuantityActsAsOne(t *testing.T) {
	for _, q := range []int{0, -3} {
		li := types.LineItem{BasePrice: 5, Quantity: q}
		if got := LineTotal(li); got != 5 {
			t.Fatalf("quantity %d: want=5 got=%v", q, got)
		}
	}
}

func TestCartTotalMatchesSumOfLines(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		var items []types.LineItem
		n := r.Intn(6)
		for j := 0; j < n; j++ {
			li := types.LineItem{
				BasePrice: float64(r.Intn(5000)) / 100,
				Quantity:  1 + r.Intn(5),
			}
			for k := 0; k < r.Intn(4); k++ {
				li.AddOns = append(li.AddOns, types.AddOnSelection{
					ID:        string(rune('a' + k)),
					UnitPrice: float64(r.Intn(300)) / 100,
					Quantity:  1 + r.Intn(3),
				})
			}
			items = append(items, li)
		}
		sum := 0.0
		for _, li := range items {
			lt := LineTotal(li)
			if lt < 0 {
				t.Fatalf("negative line total %v", lt)
			}
			if lt != LineTotal(li) {
				t.Fatalf("line total not deterministic")
			}
			sum += lt
		}
		if got, want := CartTotal(items), Round2(sum); got != want {
			t.Fatalf("CartTotal: want=%v got=%v", want, got)
		}
	}
}

func TestMinorUnits(t *testing.T) {
	cases := map[float64]int64{0: 0, 12.34: 1234, 0.1 + 0.2: 30, 19.999: 2000, -5: 0}
	for in, want := range cases {
		if got := MinorUnits(in); got != want {
			t.Fatalf("MinorUnits(%v): want=%d got=%d", in, want, got)
		}
	}
}
