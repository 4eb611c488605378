package types

type CatalogItem struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	BasePrice   float64        `json:"basePrice"`
	ImageRef    string         `json:"imageRef"`
	CategoryRef string         `json:"categoryRef"`
	Description string         `json:"description,omitempty"`
	AddOns      []CatalogAddOn `json:"addOns,omitempty"`
}

// CatalogAddOn is an add-on the catalog offers for an item, at its
// authoritative unit price.
type CatalogAddOn struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
}
