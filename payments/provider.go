package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	ProviderStripe = "stripe"
	ProviderPayPal = "paypal"
	ProviderWechat = "wechat"
	ProviderAlipay = "alipay"
)

// TimeoutMessage is returned to clients when a provider call exceeds its deadline.
const TimeoutMessage = "Request timeout - please check your network connection"

var (
	ErrPaymentTimeout     = errors.New("payment provider request timed out")
	ErrWebhookUnsupported = errors.New("provider does not accept webhooks")
	ErrSignatureInvalid   = errors.New("webhook signature verification failed")
	ErrUnknownProvider    = errors.New("unknown payment provider")
	ErrNotApproved        = errors.New("payment has not been approved by the payer")
)

type IntentRequest struct {
	OrderNumber   string
	CourseKey     string
	PackageKey    string
	PackageName   string
	Classes       int
	AmountCNY     decimal.Decimal
	CustomerEmail string
}

// Intent is what the client needs to continue payment with the provider.
type Intent struct {
	Provider     string          `json:"provider"`
	Reference    string          `json:"reference,omitempty"`
	ClientSecret string          `json:"client_secret,omitempty"`
	QRCodeURL    string          `json:"qr_code_url,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
}

type ConfirmRequest struct {
	OrderNumber string
	Reference   string
}

// Confirmation is a provider's verdict about one payment.
type Confirmation struct {
	Provider    string
	Reference   string
	OrderNumber string
	Status      string
	Paid        bool
	// AwaitingReview means staff must verify the payment by hand.
	AwaitingReview bool
	PayerEmail     string
	PayerName      string
	Metadata       map[string]interface{}
}

type WebhookRequest struct {
	Payload []byte
	Headers map[string]string
}

type PaymentProvider interface {
	Name() string
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	Confirm(ctx context.Context, req ConfirmRequest) (*Confirmation, error)
	// OnWebhook returns nil, nil for events that need no action.
	OnWebhook(ctx context.Context, req WebhookRequest) (*Confirmation, error)
}

type Registry struct {
	providers map[string]PaymentProvider
}

func NewRegistry(providers ...PaymentProvider) *Registry {
	r := &Registry{providers: make(map[string]PaymentProvider, len(providers))}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

func (r *Registry) Get(name string) (PaymentProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

func (r *Registry) Has(name string) bool {
	_, ok := r.providers[name]
	return ok
}

// Describe is the line-item text shown on provider checkout pages.
func (req IntentRequest) Describe() string {
	return fmt.Sprintf("%s - %d 课时", req.PackageName, req.Classes)
}

func (req IntentRequest) Metadata() map[string]interface{} {
	return map[string]interface{}{
		"orderNumber": req.OrderNumber,
		"courseId":    req.CourseKey,
		"packageId":   req.PackageKey,
		"classes":     req.Classes,
	}
}
