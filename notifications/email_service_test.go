package notifications

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrevoSend(t *testing.T) {
	var got brevoPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/smtp/email", r.URL.Path)
		assert.Equal(t, "key-123", r.Header.Get("api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"m1"}`))
	}))
	defer srv.Close()

	svc := NewBrevoService(srv.URL, "key-123", "hello@wavemandarin.com", "Wave Mandarin")
	subject, body := OrderPaidEmail("<Anna>", "35课时", 35, 40, "ORD-1-AAAAAAA")
	require.NoError(t, svc.Send("anna@example.com", "", subject, body))

	assert.Equal(t, "anna", got.To[0].Name)
	assert.Equal(t, "Wave Mandarin", got.Sender.Name)
	assert.Contains(t, got.HTMLContent, "&lt;Anna&gt;")
	assert.Contains(t, got.Subject, "ORD-1-AAAAAAA")
}

func TestBrevoSendRejectsBadRecipient(t *testing.T) {
	svc := NewBrevoService("http://127.0.0.1:0", "k", "s@example.com", "S")
	assert.Error(t, svc.Send("not-an-email", "", "s", "b"))
}

func TestBrevoSendReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"unauthorized"}`))
	}))
	defer srv.Close()

	svc := NewBrevoService(srv.URL, "bad", "s@example.com", "S")
	err := svc.Send("anna@example.com", "Anna", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
