package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/storefront-backend/internal/platform/identity"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
	"github.com/yungbote/storefront-backend/internal/platform/transport"
	"github.com/yungbote/storefront-backend/internal/types"
)

// OrderService wraps the remote order, payment-intent and payment-record
// endpoints.
type OrderService interface {
	CreateOrder(ctx context.Context, req types.OrderRequest) (string, error)
	CreatePaymentIntent(ctx context.Context, req types.PaymentIntentRequest) (string, error)
	RecordPayment(ctx context.Context, outcome types.PaymentOutcome, orderID string) error
}

type orderService struct {
	remote
}

func NewOrderService(log *logger.Logger, tr Transport, idp identity.Provider, defaults RequestDefaults) OrderService {
	serviceLog := log.With("service", "OrderService")
	return &orderService{remote: remote{tr: tr, identity: idp, log: serviceLog, defaults: defaults}}
}

func (s *orderService) CreateOrder(ctx context.Context, req types.OrderRequest) (string, error) {
	payload, err := s.fetch(ctx, "post", "/orders", req, hasString("orderId"))
	if err != nil {
		return "", err
	}
	out, err := transport.Decode[struct {
		OrderID string `json:"orderId"`
	}](payload)
	if err != nil {
		return "", fmt.Errorf("decode order: %w", err)
	}
	return strings.TrimSpace(out.OrderID), nil
}

func (s *orderService) CreatePaymentIntent(ctx context.Context, req types.PaymentIntentRequest) (string, error) {
	payload, err := s.fetch(ctx, "post", "/payments/intent", req, hasString("clientSecret"))
	if err != nil {
		return "", err
	}
	out, err := transport.Decode[struct {
		ClientSecret string `json:"clientSecret"`
	}](payload)
	if err != nil {
		return "", fmt.Errorf("decode payment intent: %w", err)
	}
	return out.ClientSecret, nil
}

func (s *orderService) RecordPayment(ctx context.Context, outcome types.PaymentOutcome, orderID string) error {
	_, err := s.fetch(ctx, "post", "/payments/confirm", types.PaymentRecordRequest{
		PaymentIntent: outcome,
		OrderID:       orderID,
	}, nil)
	return err
}
