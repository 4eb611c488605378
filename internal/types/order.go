package types

type OrderLine struct {
	LineItemID    string           `json:"lineItemId"`
	CatalogItemID string           `json:"catalogItemId"`
	Name          string           `json:"name"`
	Quantity      int              `json:"quantity"`
	UnitPrice     float64          `json:"unitPrice"`
	LineTotal     float64          `json:"lineTotal"`
	AddOns        []AddOnSelection `json:"addOns"`
}

type OrderRequest struct {
	Items               []OrderLine `json:"items"`
	TotalPrice          float64     `json:"totalPrice"`
	SpecialInstructions string      `json:"specialInstructions,omitempty"`
}

type PaymentIntentRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	OrderID  string `json:"orderId"`
}

// PaymentOutcome is whatever the payment widget reported on success.
type PaymentOutcome map[string]any

type PaymentRecordRequest struct {
	PaymentIntent PaymentOutcome `json:"paymentIntent"`
	OrderID       string         `json:"orderId"`
}
