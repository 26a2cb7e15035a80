// Package paymentgateway реализует клиент внешнего платежного шлюза.
//
// Шлюз работает по модели checkout-сессий: сервис создает сессию на сумму
// с описанием, получает URL для редиректа участника, а о результате узнает
// из подписанного вебхука (checkout.session.completed / checkout.session.expired).
package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client клиент HTTP API платежного шлюза.
type Client struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт новый клиент шлюза.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		apiURL:     "https://api.checkout-gateway.com/v1",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	url := c.apiURL + path
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	// Ключ идемпотентности: повтор запроса не создаст вторую сессию.
	req.Header.Set("Idempotence-Key", uuid.New().String())
	return req, nil
}

// CreateCheckoutSession создает checkout-сессию и возвращает
// её идентификатор вместе с URL для редиректа.
func (c *Client) CreateCheckoutSession(ctx context.Context, reqParams CreateSessionRequest) (*CreateSessionResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/checkout/sessions", reqParams)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errors.New("unexpected status: " + resp.Status)
	}

	var sessionResp CreateSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sessionResp); err != nil {
		return nil, err
	}
	return &sessionResp, nil
}
