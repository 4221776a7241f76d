package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const PayPalTimeout = 30 * time.Second

const (
	PayPalStatusCompleted      = "COMPLETED"
	PayPalEventCaptureComplete = "PAYMENT.CAPTURE.COMPLETED"
)

type PayPalClient struct {
	http      *resty.Client
	clientID  string
	secret    string
	webhookID string
	tokens    *tokenCache
}

func NewPayPalClient(baseURL, clientID, secret, webhookID string) *PayPalClient {
	c := &PayPalClient{
		http:      resty.New().SetBaseURL(baseURL).SetTimeout(PayPalTimeout),
		clientID:  clientID,
		secret:    secret,
		webhookID: webhookID,
	}
	c.tokens = &tokenCache{now: time.Now, fetch: c.fetchAccessToken}
	return c
}

type paypalErrorResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Details []struct {
		Issue       string `json:"issue"`
		Description string `json:"description"`
	} `json:"details"`
}

func (e *paypalErrorResponse) hasIssue(issue string) bool {
	for _, d := range e.Details {
		if d.Issue == issue {
			return true
		}
	}
	return false
}

func (c *PayPalClient) fetchAccessToken(ctx context.Context) (*TokenResponse, error) {
	var tokenResp TokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.clientID, c.secret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		SetResult(&tokenResp).
		Post("/v1/oauth2/token")
	if err != nil {
		return nil, wrapTransportError(err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("failed to get PayPal access token, status: %s", resp.Status())
	}
	return &tokenResp, nil
}

// send runs call with a bearer token. A 401 drops the cached token and the call is
// retried once with a fresh one.
func (c *PayPalClient) send(ctx context.Context, call func(r *resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	for attempt := 0; ; attempt++ {
		token, err := c.tokens.Get(ctx)
		if err != nil {
			return nil, err
		}
		r := c.http.R().SetContext(ctx).SetAuthToken(token).SetHeader("Content-Type", "application/json")
		resp, err := call(r)
		if err != nil {
			return nil, wrapTransportError(err)
		}
		if resp.StatusCode() == http.StatusUnauthorized && attempt == 0 {
			logrus.Warn("PayPal rejected the access token, fetching a new one")
			c.tokens.Invalidate()
			continue
		}
		return resp, nil
	}
}

type CreateOrderRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	Metadata    map[string]interface{}
}

// CreateOrder registers a CAPTURE order and returns PayPal's order id.
func (c *PayPalClient) CreateOrder(ctx context.Context, req CreateOrderRequest) (string, error) {
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	unit := map[string]interface{}{
		"amount": map[string]string{
			"currency_code": currency,
			"value":         req.Amount.StringFixed(2),
		},
	}
	if req.Description != "" {
		unit["description"] = req.Description
	}
	if len(req.Metadata) > 0 {
		customID, err := json.Marshal(req.Metadata)
		if err != nil {
			return "", err
		}
		unit["custom_id"] = string(customID)
	}
	payload := map[string]interface{}{
		"intent":         "CAPTURE",
		"purchase_units": []interface{}{unit},
		"application_context": map[string]string{
			"brand_name":   "WaveMandarin",
			"locale":       "en-US",
			"landing_page": "NO_PREFERENCE",
			"user_action":  "PAY_NOW",
		},
	}

	var order struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	var apiErr paypalErrorResponse
	resp, err := c.send(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(payload).SetResult(&order).SetError(&apiErr).Post("/v2/checkout/orders")
	})
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("failed to create PayPal order: %s", resp.String())
	}
	return order.ID, nil
}

type CaptureResult struct {
	OrderID    string
	CaptureID  string
	Status     string
	Metadata   map[string]interface{}
	PayerEmail string
	PayerName  string
}

type paypalOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Payer  struct {
		EmailAddress string `json:"email_address"`
		Name         struct {
			GivenName string `json:"given_name"`
			Surname   string `json:"surname"`
		} `json:"name"`
	} `json:"payer"`
	PurchaseUnits []struct {
		CustomID string `json:"custom_id"`
		Payments struct {
			Captures []struct {
				ID       string `json:"id"`
				Status   string `json:"status"`
				CustomID string `json:"custom_id"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

func (o *paypalOrderResponse) toResult() *CaptureResult {
	res := &CaptureResult{
		OrderID:    o.ID,
		Status:     o.Status,
		PayerEmail: o.Payer.EmailAddress,
		PayerName:  strings.TrimSpace(o.Payer.Name.GivenName + " " + o.Payer.Name.Surname),
		Metadata:   map[string]interface{}{},
	}
	if len(o.PurchaseUnits) == 0 {
		return res
	}
	unit := o.PurchaseUnits[0]
	customID := unit.CustomID
	if len(unit.Payments.Captures) > 0 {
		capture := unit.Payments.Captures[0]
		res.CaptureID = capture.ID
		if capture.CustomID != "" {
			customID = capture.CustomID
		}
	}
	res.Metadata = parseCustomID(customID)
	return res
}

func parseCustomID(customID string) map[string]interface{} {
	meta := map[string]interface{}{}
	if customID == "" {
		return meta
	}
	if err := json.Unmarshal([]byte(customID), &meta); err != nil {
		logrus.WithError(err).Warn("PayPal custom_id is not JSON")
		return map[string]interface{}{}
	}
	return meta
}

// CaptureOrder captures an approved order. An order captured earlier is reported
// from its current details instead of failing.
func (c *PayPalClient) CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	var order paypalOrderResponse
	var apiErr paypalErrorResponse
	resp, err := c.send(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(map[string]interface{}{}).
			SetResult(&order).
			SetError(&apiErr).
			Post("/v2/checkout/orders/" + orderID + "/capture")
	})
	if err != nil {
		return nil, err
	}
	if resp.IsSuccess() {
		return order.toResult(), nil
	}

	switch {
	case apiErr.hasIssue("ORDER_ALREADY_CAPTURED"):
		return c.GetOrder(ctx, orderID)
	case apiErr.hasIssue("ORDER_NOT_APPROVED"):
		return nil, ErrNotApproved
	}
	return nil, fmt.Errorf("failed to capture PayPal order: %s", resp.String())
}

func (c *PayPalClient) GetOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	var order paypalOrderResponse
	resp, err := c.send(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&order).Get("/v2/checkout/orders/" + orderID)
	})
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to fetch PayPal order: %s", resp.String())
	}
	return order.toResult(), nil
}

// VerifyWebhook asks PayPal to validate the transmission headers of a webhook delivery.
func (c *PayPalClient) VerifyWebhook(ctx context.Context, headers map[string]string, body []byte) (bool, error) {
	if c.webhookID == "" {
		return false, ErrWebhookUnsupported
	}
	payload := map[string]interface{}{
		"auth_algo":         headers["Paypal-Auth-Algo"],
		"cert_url":          headers["Paypal-Cert-Url"],
		"transmission_id":   headers["Paypal-Transmission-Id"],
		"transmission_sig":  headers["Paypal-Transmission-Sig"],
		"transmission_time": headers["Paypal-Transmission-Time"],
		"webhook_id":        c.webhookID,
		"webhook_event":     json.RawMessage(body),
	}
	var result struct {
		VerificationStatus string `json:"verification_status"`
	}
	resp, err := c.send(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(payload).SetResult(&result).Post("/v1/notifications/verify-webhook-signature")
	})
	if err != nil {
		return false, err
	}
	if !resp.IsSuccess() {
		return false, fmt.Errorf("PayPal webhook verification failed: %s", resp.String())
	}
	return result.VerificationStatus == "SUCCESS", nil
}

func wrapTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrPaymentTimeout, err)
	}
	return err
}

// PayPalProvider charges catalog orders in USD at a fixed CNY rate.
type PayPalProvider struct {
	client *PayPalClient
	rate   decimal.Decimal
}

func NewPayPalProvider(client *PayPalClient, rate decimal.Decimal) *PayPalProvider {
	return &PayPalProvider{client: client, rate: rate}
}

func (p *PayPalProvider) Name() string { return ProviderPayPal }

func (p *PayPalProvider) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	usd := ConvertCNYToUSD(req.AmountCNY, p.rate)
	orderID, err := p.client.CreateOrder(ctx, CreateOrderRequest{
		Amount:      usd,
		Currency:    "USD",
		Description: req.Describe(),
		Metadata:    req.Metadata(),
	})
	if err != nil {
		return nil, err
	}
	return &Intent{Provider: ProviderPayPal, Reference: orderID, Amount: usd, Currency: "USD"}, nil
}

func (p *PayPalProvider) Confirm(ctx context.Context, req ConfirmRequest) (*Confirmation, error) {
	res, err := p.client.CaptureOrder(ctx, req.Reference)
	if err != nil {
		return nil, err
	}
	return p.confirmation(res, req.OrderNumber), nil
}

func (p *PayPalProvider) confirmation(res *CaptureResult, fallbackOrder string) *Confirmation {
	orderNumber, _ := res.Metadata["orderNumber"].(string)
	if orderNumber == "" {
		orderNumber = fallbackOrder
	}
	return &Confirmation{
		Provider:    ProviderPayPal,
		Reference:   res.OrderID,
		OrderNumber: orderNumber,
		Status:      res.Status,
		Paid:        res.Status == PayPalStatusCompleted,
		PayerEmail:  res.PayerEmail,
		PayerName:   res.PayerName,
		Metadata:    res.Metadata,
	}
}

type paypalWebhookEvent struct {
	EventType string `json:"event_type"`
	Resource  struct {
		ID                string `json:"id"`
		Status            string `json:"status"`
		CustomID          string `json:"custom_id"`
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
	} `json:"resource"`
}

func (p *PayPalProvider) OnWebhook(ctx context.Context, req WebhookRequest) (*Confirmation, error) {
	ok, err := p.client.VerifyWebhook(ctx, req.Headers, req.Payload)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSignatureInvalid
	}

	var event paypalWebhookEvent
	if err := json.Unmarshal(req.Payload, &event); err != nil {
		return nil, fmt.Errorf("invalid PayPal webhook payload: %w", err)
	}
	if event.EventType != PayPalEventCaptureComplete {
		return nil, nil
	}

	meta := parseCustomID(event.Resource.CustomID)
	orderNumber, _ := meta["orderNumber"].(string)
	return &Confirmation{
		Provider:    ProviderPayPal,
		Reference:   event.Resource.SupplementaryData.RelatedIDs.OrderID,
		OrderNumber: orderNumber,
		Status:      event.Resource.Status,
		Paid:        event.Resource.Status == PayPalStatusCompleted,
		Metadata:    meta,
	}, nil
}
