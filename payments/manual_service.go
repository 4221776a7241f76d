package payments

import "context"

// ManualProvider covers WeChat Pay and Alipay transfers made by scanning a QR code.
// Payment is only ever confirmed by staff.
type ManualProvider struct {
	name  string
	qrURL string
}

func NewManualProvider(name, qrURL string) *ManualProvider {
	return &ManualProvider{name: name, qrURL: qrURL}
}

func (p *ManualProvider) Name() string { return p.name }

func (p *ManualProvider) CreateIntent(_ context.Context, req IntentRequest) (*Intent, error) {
	return &Intent{
		Provider:  p.name,
		QRCodeURL: p.qrURL,
		Amount:    req.AmountCNY,
		Currency:  "CNY",
	}, nil
}

func (p *ManualProvider) Confirm(_ context.Context, req ConfirmRequest) (*Confirmation, error) {
	return &Confirmation{
		Provider:       p.name,
		OrderNumber:    req.OrderNumber,
		Status:         "pending_confirmation",
		AwaitingReview: true,
	}, nil
}

func (p *ManualProvider) OnWebhook(context.Context, WebhookRequest) (*Confirmation, error) {
	return nil, ErrWebhookUnsupported
}
