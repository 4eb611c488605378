package pricing

import "github.com/yungbote/storefront-backend/internal/types"

const MaxAddOnQuantity = 3

// SelectAddOn adds addOn with quantity 1, or increments it when already
// selected. Selecting past MaxAddOnQuantity is a no-op. The input slice is
// never modified.
func SelectAddOn(selected []types.AddOnSelection, addOn types.AddOnSelection) []types.AddOnSelection {
	out := append([]types.AddOnSelection(nil), selected...)
	for i := range out {
		if out[i].ID == addOn.ID {
			if out[i].Quantity < MaxAddOnQuantity {
				out[i].Quantity++
			}
			return out
		}
	}
	addOn.Quantity = 1
	return append(out, addOn)
}

// DecrementAddOn lowers the quantity of id by one and drops the selection once
// it would fall below 1.
func DecrementAddOn(selected []types.AddOnSelection, id string) []types.AddOnSelection {
	out := make([]types.AddOnSelection, 0, len(selected))
	for _, a := range selected {
		if a.ID == id {
			a.Quantity--
			if a.Quantity < 1 {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

// SetAddOnQuantity sets id to qty, clamped to MaxAddOnQuantity. qty < 1
// removes the selection. Unknown ids are ignored.
func SetAddOnQuantity(selected []types.AddOnSelection, id string, qty int) []types.AddOnSelection {
	if qty > MaxAddOnQuantity {
		qty = MaxAddOnQuantity
	}
	out := make([]types.AddOnSelection, 0, len(selected))
	for _, a := range selected {
		if a.ID == id {
			if qty < 1 {
				continue
			}
			a.Quantity = qty
		}
		out = append(out, a)
	}
	return out
}

// NormalizeAddOns collapses duplicate ids (first position wins, quantities
// summed) and clamps every quantity into [1, MaxAddOnQuantity].
func NormalizeAddOns(addOns []types.AddOnSelection) []types.AddOnSelection {
	if addOns == nil {
		return nil
	}
	idx := map[string]int{}
	out := make([]types.AddOnSelection, 0, len(addOns))
	for _, a := range addOns {
		if a.Quantity < 1 {
			a.Quantity = 1
		}
		if i, ok := idx[a.ID]; ok {
			out[i].Quantity += a.Quantity
		} else {
			idx[a.ID] = len(out)
			out = append(out, a)
		}
	}
	for i := range out {
		if out[i].Quantity > MaxAddOnQuantity {
			out[i].Quantity = MaxAddOnQuantity
		}
	}
	return out
}
