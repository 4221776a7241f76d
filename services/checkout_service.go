package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/wavemandarin/mandarin_school/models"
	"github.com/wavemandarin/mandarin_school/payments"
)

var (
	ErrReferenceMismatch = errors.New("payment does not belong to this order")
	ErrNotPayable        = errors.New("order is not awaiting payment")
	ErrPaymentIncomplete = errors.New("payment not completed")
)

// OrderRecords is the order access checkout needs.
type OrderRecords interface {
	FindByNumber(ctx context.Context, orderNumber string) (*models.StudentOrder, error)
	FindByProviderRef(ctx context.Context, provider, ref string) (*models.StudentOrder, error)
	AttachIntent(ctx context.Context, order *models.StudentOrder, intent *payments.Intent) error
	RecordPayer(ctx context.Context, orderNumber string, conf *payments.Confirmation)
}

type CheckoutOutcome struct {
	Confirmation *payments.Confirmation
	Order        *models.StudentOrder
	Credit       *CreditResult
}

func (o *CheckoutOutcome) Credited() bool {
	return o != nil && o.Credit != nil && o.Credit.Credited
}

type CheckoutService struct {
	orders     OrderRecords
	reconciler *Reconciler
	registry   *payments.Registry
	paypal     *payments.PayPalClient
	rate       decimal.Decimal
}

func NewCheckoutService(orders OrderRecords, reconciler *Reconciler, registry *payments.Registry, paypal *payments.PayPalClient, rate decimal.Decimal) *CheckoutService {
	return &CheckoutService{orders: orders, reconciler: reconciler, registry: registry, paypal: paypal, rate: rate}
}

// Supports reports whether checkout is configured for the named provider.
func (s *CheckoutService) Supports(provider string) bool {
	return s.registry.Has(provider)
}

func intentRequest(order *models.StudentOrder, email string) payments.IntentRequest {
	return payments.IntentRequest{
		OrderNumber:   order.OrderNumber,
		CourseKey:     order.CourseKey,
		PackageKey:    order.PackageKey,
		PackageName:   order.PackageName,
		Classes:       order.ClassesPurchased,
		AmountCNY:     order.Amount,
		CustomerEmail: email,
	}
}

// StartCheckout creates the provider-side payment for a pending order.
func (s *CheckoutService) StartCheckout(ctx context.Context, order *models.StudentOrder, email string) (*payments.Intent, error) {
	if order.Status != models.OrderPending {
		return nil, ErrNotPayable
	}
	provider, err := s.registry.Get(order.PaymentProvider)
	if err != nil {
		return nil, err
	}
	intent, err := provider.CreateIntent(ctx, intentRequest(order, email))
	if err != nil {
		return nil, err
	}
	if err := s.orders.AttachIntent(ctx, order, intent); err != nil {
		return nil, err
	}
	if intent.Reference != "" {
		ref := intent.Reference
		order.ProviderRef = &ref
	}
	return intent, nil
}

// ConfirmOrder asks the order's provider for the payment verdict and applies it.
func (s *CheckoutService) ConfirmOrder(ctx context.Context, order *models.StudentOrder, reference string) (*CheckoutOutcome, error) {
	provider, err := s.registry.Get(order.PaymentProvider)
	if err != nil {
		return nil, err
	}
	if reference == "" && order.ProviderRef != nil {
		reference = *order.ProviderRef
	}
	conf, err := provider.Confirm(ctx, payments.ConfirmRequest{OrderNumber: order.OrderNumber, Reference: reference})
	if err != nil {
		return nil, err
	}
	if conf.OrderNumber != "" && conf.OrderNumber != order.OrderNumber {
		return nil, ErrReferenceMismatch
	}
	conf.OrderNumber = order.OrderNumber
	return s.Apply(ctx, conf)
}

// HandleWebhook verifies and applies a provider webhook. A nil outcome means nothing to do.
func (s *CheckoutService) HandleWebhook(ctx context.Context, providerName string, req payments.WebhookRequest) (*CheckoutOutcome, error) {
	provider, err := s.registry.Get(providerName)
	if err != nil {
		return nil, err
	}
	conf, err := provider.OnWebhook(ctx, req)
	if err != nil || conf == nil {
		return nil, err
	}
	if conf.OrderNumber == "" {
		logrus.WithField("provider", providerName).Warn("Webhook without order number ignored")
		return nil, nil
	}
	return s.Apply(ctx, conf)
}

// Apply credits a paid confirmation or flags a manual one for review.
func (s *CheckoutService) Apply(ctx context.Context, conf *payments.Confirmation) (*CheckoutOutcome, error) {
	order, err := s.orders.FindByNumber(ctx, conf.OrderNumber)
	if err != nil {
		return nil, err
	}
	if conf.Reference != "" && order.ProviderRef != nil && *order.ProviderRef != conf.Reference {
		return nil, ErrReferenceMismatch
	}

	outcome := &CheckoutOutcome{Confirmation: conf, Order: order}
	switch {
	case conf.Paid:
		credit, err := s.reconciler.CreditOrder(ctx, order.OrderNumber, conf.Provider)
		if err != nil {
			return nil, err
		}
		outcome.Credit = credit
		outcome.Order = credit.Order
		s.orders.RecordPayer(ctx, order.OrderNumber, conf)
	case conf.AwaitingReview:
		updated, err := s.reconciler.MarkPendingConfirmation(ctx, order.OrderNumber)
		if err != nil {
			return nil, err
		}
		outcome.Order = updated
	default:
		return outcome, ErrPaymentIncomplete
	}
	return outcome, nil
}

type PayPalOrderRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	Metadata    map[string]interface{}
}

// CreatePayPalOrder backs the generic create-order endpoint. When metadata names one
// of our orders, the amount and description come from that order instead of the client.
func (s *CheckoutService) CreatePayPalOrder(ctx context.Context, req PayPalOrderRequest) (string, error) {
	if s.paypal == nil {
		return "", fmt.Errorf("%w: %s", payments.ErrUnknownProvider, payments.ProviderPayPal)
	}
	orderNumber, _ := req.Metadata["orderNumber"].(string)
	if orderNumber == "" {
		return s.paypal.CreateOrder(ctx, payments.CreateOrderRequest{
			Amount:      req.Amount,
			Currency:    req.Currency,
			Description: req.Description,
			Metadata:    req.Metadata,
		})
	}

	order, err := s.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		return "", err
	}
	if order.Status != models.OrderPending {
		return "", ErrNotPayable
	}
	ir := intentRequest(order, "")
	meta := ir.Metadata()
	for k, v := range req.Metadata {
		if _, reserved := meta[k]; !reserved {
			meta[k] = v
		}
	}
	usd := payments.ConvertCNYToUSD(order.Amount, s.rate)
	paypalOrderID, err := s.paypal.CreateOrder(ctx, payments.CreateOrderRequest{
		Amount:      usd,
		Currency:    "USD",
		Description: ir.Describe(),
		Metadata:    meta,
	})
	if err != nil {
		return "", err
	}
	order.PaymentProvider = payments.ProviderPayPal
	intent := &payments.Intent{Provider: payments.ProviderPayPal, Reference: paypalOrderID, Amount: usd, Currency: "USD"}
	if err := s.orders.AttachIntent(ctx, order, intent); err != nil {
		return "", err
	}
	return paypalOrderID, nil
}

// checkCapturable refuses to take money for a linked order that can no longer be credited.
// PayPal orders created without one of our orders are not linked and pass.
func (s *CheckoutService) checkCapturable(ctx context.Context, paypalOrderID string) error {
	order, err := s.orders.FindByProviderRef(ctx, payments.ProviderPayPal, paypalOrderID)
	if errors.Is(err, ErrOrderNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	switch order.Status {
	case models.OrderPending, models.OrderPendingConfirmation, models.OrderPaid:
		return nil
	}
	logrus.WithFields(logrus.Fields{
		"order_number": order.OrderNumber,
		"status":       order.Status,
		"paypal_order": paypalOrderID,
	}).Warn("Refusing PayPal capture for closed order")
	return ErrNotPayable
}

// CapturePayPalOrder captures and, when the capture belongs to one of our orders, reconciles it.
func (s *CheckoutService) CapturePayPalOrder(ctx context.Context, paypalOrderID string) (*payments.CaptureResult, *CheckoutOutcome, error) {
	if s.paypal == nil {
		return nil, nil, fmt.Errorf("%w: %s", payments.ErrUnknownProvider, payments.ProviderPayPal)
	}
	if err := s.checkCapturable(ctx, paypalOrderID); err != nil {
		return nil, nil, err
	}
	res, err := s.paypal.CaptureOrder(ctx, paypalOrderID)
	if err != nil {
		return nil, nil, err
	}
	orderNumber, _ := res.Metadata["orderNumber"].(string)
	if orderNumber == "" || res.Status != payments.PayPalStatusCompleted {
		return res, nil, nil
	}

	outcome, err := s.Apply(ctx, &payments.Confirmation{
		Provider:    payments.ProviderPayPal,
		Reference:   res.OrderID,
		OrderNumber: orderNumber,
		Status:      res.Status,
		Paid:        true,
		PayerEmail:  res.PayerEmail,
		PayerName:   res.PayerName,
		Metadata:    res.Metadata,
	})
	return res, outcome, err
}
