package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/storefront-backend/internal/platform/logger"
	"github.com/yungbote/storefront-backend/internal/platform/transport"
	"github.com/yungbote/storefront-backend/internal/pricing"
	"github.com/yungbote/storefront-backend/internal/types"
)

type Step string

const (
	StepReview       Step = "review"
	StepPayment      Step = "payment"
	StepConfirmation Step = "confirmation"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidTransition = errors.New("invalid checkout transition")
	ErrDevSkipDisabled   = errors.New("dev skip is disabled")
)

// Session is the state of one checkout attempt. Transitions take a Session
// and return the next one; the caller owns storage. CartClearedOnce only ever
// goes from false to true. Loading is true only while the store is running a
// transition on the session.
type Session struct {
	ID               string `json:"id"`
	OwnerID          string `json:"ownerId"`
	Step             Step   `json:"step"`
	OrderID          string `json:"orderId,omitempty"`
	ClientSecret     string `json:"clientSecret,omitempty"`
	PaymentCompleted bool   `json:"paymentCompleted"`
	CartClearedOnce  bool   `json:"cartClearedOnce"`
	Error            string `json:"error,omitempty"`
	Loading          bool   `json:"loading"`
}

func NewSession(ownerID string) Session {
	return Session{ID: uuid.NewString(), OwnerID: ownerID, Step: StepReview}
}

// CheckoutError is a failed remote step, carrying the message shown to the
// shopper and the original transport error.
type CheckoutError struct {
	Op      string
	Message string
	Err     error
}

func (e *CheckoutError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *CheckoutError) Unwrap() error { return e.Err }

// CheckoutCart is the part of the cart the orchestrator needs.
type CheckoutCart interface {
	Items() []types.LineItem
	Total() float64
	IsEmpty() bool
	Clear(ctx context.Context) error
}

type CheckoutOptions struct {
	Currency string
	// AllowDevSkip enables the no-network shortcut; never set in production.
	AllowDevSkip  bool
	RecordTimeout time.Duration
}

type Checkout struct {
	log    *logger.Logger
	orders OrderService
	opts   CheckoutOptions
}

func NewCheckout(log *logger.Logger, orders OrderService, opts CheckoutOptions) *Checkout {
	if strings.TrimSpace(opts.Currency) == "" {
		opts.Currency = "usd"
	}
	if opts.RecordTimeout <= 0 {
		opts.RecordTimeout = 30 * time.Second
	}
	return &Checkout{
		log:    log.With("service", "Checkout"),
		orders: orders,
		opts:   opts,
	}
}

// Submit creates the order and then its payment intent, moving Review to
// Payment. On any failure the session stays in Review with Error set so the
// shopper can retry; nothing is retried here.
func (c *Checkout) Submit(ctx context.Context, s Session, cart CheckoutCart, instructions string) (Session, error) {
	if s.Step != StepReview {
		return s, ErrInvalidTransition
	}
	if cart == nil || cart.IsEmpty() {
		s.Error = "Your cart is empty."
		return s, ErrEmptyCart
	}

	items := cart.Items()
	total := pricing.CartTotal(items)
	orderID, err := c.orders.CreateOrder(ctx, types.OrderRequest{
		Items:               orderLines(items),
		TotalPrice:          total,
		SpecialInstructions: strings.TrimSpace(instructions),
	})
	if err != nil {
		return c.fail(s, "create order", "We couldn't place your order", err)
	}

	secret, err := c.orders.CreatePaymentIntent(ctx, types.PaymentIntentRequest{
		Amount:   pricing.MinorUnits(total),
		Currency: c.opts.Currency,
		OrderID:  orderID,
	})
	if err != nil {
		return c.fail(s, "create payment intent", "We couldn't start the payment", err)
	}

	s.OrderID = orderID
	s.ClientSecret = secret
	s.Step = StepPayment
	s.Error = ""
	c.log.Info("checkout advanced to payment", "session_id", s.ID, "order_id", orderID)
	return s, nil
}

// Back returns from Payment to Review. The order id and client secret are
// kept.
func (c *Checkout) Back(s Session) (Session, error) {
	if s.Step != StepPayment {
		return s, ErrInvalidTransition
	}
	s.Step = StepReview
	s.Error = ""
	return s, nil
}

// PaymentSucceeded moves Payment to Confirmation, clears the cart if this
// session has not done so yet, and records the payment in the background.
// Calling it again once confirmed changes nothing and returns a nil task.
func (c *Checkout) PaymentSucceeded(ctx context.Context, s Session, cart CheckoutCart, outcome types.PaymentOutcome) (Session, *Task, error) {
	switch s.Step {
	case StepConfirmation:
		return s, nil, nil
	case StepPayment:
	default:
		return s, nil, ErrInvalidTransition
	}

	s.PaymentCompleted = true
	s.Step = StepConfirmation
	s.Error = ""
	s = c.clearOnce(ctx, s, cart)

	task := c.recordPayment(ctx, s, outcome)
	return s, task, nil
}

// PaymentFailed keeps the session in Payment and surfaces msg.
func (c *Checkout) PaymentFailed(s Session, msg string) (Session, error) {
	if s.Step != StepPayment {
		return s, ErrInvalidTransition
	}
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = "Payment failed. Please try again."
	}
	s.Error = msg
	return s, nil
}

// DevSkip advances one step without touching the network: Review to Payment,
// or Payment to Confirmation with the same clear-once effect as a real
// payment.
func (c *Checkout) DevSkip(ctx context.Context, s Session, cart CheckoutCart) (Session, error) {
	if !c.opts.AllowDevSkip {
		return s, ErrDevSkipDisabled
	}
	switch s.Step {
	case StepReview:
		s.Step = StepPayment
		s.Error = ""
		return s, nil
	case StepPayment:
		s.Step = StepConfirmation
		s.Error = ""
		return c.clearOnce(ctx, s, cart), nil
	default:
		return s, ErrInvalidTransition
	}
}

// ShouldRedirectToCart reports whether the shopper should be sent back to
// the cart view: the cart emptied before the payment completed.
func ShouldRedirectToCart(s Session, cart CheckoutCart) bool {
	if s.Step == StepConfirmation || s.PaymentCompleted {
		return false
	}
	return cart == nil || cart.IsEmpty()
}

func (c *Checkout) clearOnce(ctx context.Context, s Session, cart CheckoutCart) Session {
	if s.CartClearedOnce {
		return s
	}
	s.CartClearedOnce = true
	if cart == nil {
		return s
	}
	if err := cart.Clear(ctx); err != nil {
		c.log.Error("clear cart after checkout failed", "session_id", s.ID, "error", err)
	}
	return s
}

func (c *Checkout) fail(s Session, op, headline string, err error) (Session, error) {
	msg := headline + ". Please try again."
	var herr *transport.HTTPError
	if errors.As(err, &herr) && transport.IsClientError(err) && strings.TrimSpace(herr.Message) != "" {
		msg = fmt.Sprintf("%s: %s", headline, herr.Message)
	}
	c.log.Warn("checkout step failed", "session_id", s.ID, "op", op, "error", err)
	s.Error = msg
	return s, &CheckoutError{Op: op, Message: msg, Err: err}
}

func (c *Checkout) recordPayment(ctx context.Context, s Session, outcome types.PaymentOutcome) *Task {
	bg := context.WithoutCancel(ctx)
	return startTask(func() error {
		rctx, cancel := context.WithTimeout(bg, c.opts.RecordTimeout)
		defer cancel()
		if err := c.orders.RecordPayment(rctx, outcome, s.OrderID); err != nil {
			c.log.Error("record payment failed", "session_id", s.ID, "order_id", s.OrderID, "error", err)
			return err
		}
		return nil
	})
}

func orderLines(items []types.LineItem) []types.OrderLine {
	out := make([]types.OrderLine, 0, len(items))
	for _, li := range items {
		out = append(out, types.OrderLine{
			LineItemID:    li.LineItemID,
			CatalogItemID: li.CatalogItemID,
			Name:          li.Name,
			Quantity:      li.Quantity,
			UnitPrice:     pricing.UnitPrice(li),
			LineTotal:     pricing.LineTotal(li),
			AddOns:        li.AddOns,
		})
	}
	return out
}

// Task is a fire-and-forget side effect. Its error is reported by Wait and
// never feeds back into the transition that started it.
type Task struct {
	done chan struct{}
	err  error
}

func startTask(fn func() error) *Task {
	t := &Task{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		t.err = fn()
	}()
	return t
}

// Wait blocks until the task finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
