package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/webhook"
)

// CheckoutSessions is the slice of the Stripe SDK used here, so tests can swap it.
type CheckoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeSessionAPI struct{}

func (stripeSessionAPI) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.New(params)
}

func (stripeSessionAPI) Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.Get(id, params)
}

type StripeProvider struct {
	sessions      CheckoutSessions
	webhookSecret string
	rate          decimal.Decimal
}

func NewStripeProvider(secretKey, webhookSecret string, rate decimal.Decimal) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{sessions: stripeSessionAPI{}, webhookSecret: webhookSecret, rate: rate}
}

func (p *StripeProvider) Name() string { return ProviderStripe }

// CreateIntent opens an embedded Checkout Session; the client mounts it with ClientSecret.
func (p *StripeProvider) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	usd := ConvertCNYToUSD(req.AmountCNY, p.rate)
	params := &stripe.CheckoutSessionParams{
		UIMode:               stripe.String(string(stripe.CheckoutSessionUIModeEmbedded)),
		RedirectOnCompletion: stripe.String(string(stripe.CheckoutSessionRedirectOnCompletionNever)),
		Mode:                 stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID:    stripe.String(req.OrderNumber),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.Describe()),
						Description: stripe.String(req.Describe()),
					},
					UnitAmount: stripe.Int64(ToMinorUnits(usd)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"orderNumber": req.OrderNumber,
			"packageId":   req.PackageKey,
			"courseId":    req.CourseKey,
			"classes":     strconv.Itoa(req.Classes),
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx

	s, err := p.sessions.New(params)
	if err != nil {
		return nil, err
	}
	return &Intent{
		Provider:     ProviderStripe,
		Reference:    s.ID,
		ClientSecret: s.ClientSecret,
		Amount:       usd,
		Currency:     "USD",
	}, nil
}

type SessionStatus struct {
	Status        string `json:"status"`
	CustomerEmail string `json:"customer_email"`
	PaymentStatus string `json:"payment_status"`
}

func (p *StripeProvider) SessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := p.sessions.Get(sessionID, params)
	if err != nil {
		return nil, err
	}
	return &SessionStatus{
		Status:        string(s.Status),
		CustomerEmail: sessionEmail(s),
		PaymentStatus: string(s.PaymentStatus),
	}, nil
}

func (p *StripeProvider) Confirm(ctx context.Context, req ConfirmRequest) (*Confirmation, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := p.sessions.Get(req.Reference, params)
	if err != nil {
		return nil, err
	}
	conf := sessionConfirmation(s)
	if conf.OrderNumber == "" {
		conf.OrderNumber = req.OrderNumber
	}
	return conf, nil
}

func (p *StripeProvider) OnWebhook(_ context.Context, req WebhookRequest) (*Confirmation, error) {
	event, err := webhook.ConstructEventWithOptions(req.Payload, req.Headers["Stripe-Signature"], p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("invalid checkout session payload: %w", err)
		}
		return sessionConfirmation(&s), nil
	}
	return nil, nil
}

func sessionConfirmation(s *stripe.CheckoutSession) *Confirmation {
	orderNumber := s.Metadata["orderNumber"]
	if orderNumber == "" {
		orderNumber = s.ClientReferenceID
	}
	meta := make(map[string]interface{}, len(s.Metadata))
	for k, v := range s.Metadata {
		meta[k] = v
	}
	return &Confirmation{
		Provider:    ProviderStripe,
		Reference:   s.ID,
		OrderNumber: orderNumber,
		Status:      string(s.Status),
		Paid:        s.Status == stripe.CheckoutSessionStatusComplete && s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		PayerEmail:  sessionEmail(s),
		Metadata:    meta,
	}
}

func sessionEmail(s *stripe.CheckoutSession) string {
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		return s.CustomerDetails.Email
	}
	return s.CustomerEmail
}
