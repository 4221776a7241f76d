package notifications

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	config "github.com/wavemandarin/mandarin_school/configs"
)

const brevoBaseURL = "https://api.brevo.com"

type BrevoService struct {
	http        *resty.Client
	SenderEmail string
	SenderName  string
}

var EmailClient *BrevoService

type brevoContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type brevoPayload struct {
	Sender      brevoContact   `json:"sender"`
	To          []brevoContact `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

func NewBrevoService(baseURL, apiKey, senderEmail, senderName string) *BrevoService {
	return &BrevoService{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10*time.Second).
			SetHeader("accept", "application/json").
			SetHeader("api-key", apiKey),
		SenderEmail: senderEmail,
		SenderName:  senderName,
	}
}

func InitEmailService(cfg *config.AppConfig) {
	if cfg.BrevoAPIKey == "" || cfg.EmailSender == "" {
		logrus.Warn("⚠️ Email service not configured. Missing BREVO_API_KEY or EMAIL_SENDER.")
		EmailClient = nil
		return
	}
	EmailClient = NewBrevoService(brevoBaseURL, cfg.BrevoAPIKey, cfg.EmailSender, cfg.EmailSenderName)
	logrus.WithField("sender", cfg.EmailSender).Info("✅ Email service initialized successfully.")
}

func (s *BrevoService) Send(toEmail, toName, subject, htmlContent string) error {
	at := strings.Index(toEmail, "@")
	if at <= 0 {
		return fmt.Errorf("invalid recipient email: %s", toEmail)
	}
	if toName == "" {
		toName = toEmail[:at]
	}

	resp, err := s.http.R().
		SetBody(brevoPayload{
			Sender:      brevoContact{Name: s.SenderName, Email: s.SenderEmail},
			To:          []brevoContact{{Name: toName, Email: toEmail}},
			Subject:     subject,
			HTMLContent: htmlContent,
		}).
		Post("/v3/smtp/email")
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode() != http.StatusCreated {
		return fmt.Errorf("failed to send email via Brevo: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// SendEmail is fire-and-forget; failures are only logged.
func SendEmail(toName, toEmail, subject, htmlContent string) {
	if EmailClient == nil {
		logrus.Debug("Email client not initialized, skipping email send.")
		return
	}

	log := logrus.WithFields(logrus.Fields{"to": toEmail, "subject": subject})
	if err := EmailClient.Send(toEmail, toName, subject, htmlContent); err != nil {
		log.WithError(err).Error("🔥 Failed to send email")
		return
	}
	log.Info("✅ Email sent")
}
