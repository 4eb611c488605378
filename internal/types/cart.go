package types

import (
	"time"

	"gorm.io/datatypes"
)

type AddOnSelection struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

// LineItem is one cart row. LineItemID is assigned once when the configured
// item is first added and is the only key used to merge, update or remove it.
type LineItem struct {
	LineItemID    string           `json:"lineItemId"`
	CatalogItemID string           `json:"catalogItemId"`
	Name          string           `json:"name"`
	BasePrice     float64          `json:"basePrice"`
	Quantity      int              `json:"quantity"`
	AddOns        []AddOnSelection `json:"addOns"`

	ImageRef    string `json:"imageRef,omitempty"`
	Description string `json:"description,omitempty"`
}

// Clone returns a copy that shares no add-on slice with li.
func (li LineItem) Clone() LineItem {
	out := li
	if li.AddOns != nil {
		out.AddOns = append([]AddOnSelection(nil), li.AddOns...)
	}
	return out
}

// CartSnapshot is the persisted form of one owner's cart.
type CartSnapshot struct {
	OwnerID   string         `gorm:"primaryKey;column:owner_id" json:"owner_id"`
	Items     datatypes.JSON `gorm:"column:items;not null" json:"items"`
	Total     float64        `gorm:"column:total;not null;default:0" json:"total"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CartSnapshot) TableName() string {
	return "cart_snapshots"
}
