package payments

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// tokenCache holds an OAuth access token until shortly before it expires.
type tokenCache struct {
	mu     sync.RWMutex
	token  string
	expiry time.Time
	now    func() time.Time
	fetch  func(ctx context.Context) (*TokenResponse, error)
}

func (t *tokenCache) Get(ctx context.Context) (string, error) {
	t.mu.RLock()
	if t.token != "" && t.now().Before(t.expiry) {
		token := t.token
		t.mu.RUnlock()
		return token, nil
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && t.now().Before(t.expiry) {
		return t.token, nil
	}

	logrus.Debug("Fetching new PayPal access token")
	resp, err := t.fetch(ctx)
	if err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned an empty access token")
	}

	t.token = resp.AccessToken
	ttl := time.Duration(resp.ExpiresIn-60) * time.Second
	if ttl < 0 {
		ttl = 0
	}
	t.expiry = t.now().Add(ttl)
	return t.token, nil
}

func (t *tokenCache) Invalidate() {
	t.mu.Lock()
	t.token = ""
	t.mu.Unlock()
}
