// Package transaction submits finalized carts to the external transaction
// service.
package transaction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/susatyo441/shop-vision/internal/domain"
)

var ErrSubmitFailed = errors.New("transaction submission failed")

type createRequest struct {
	Data []createItem `json:"data"`
}

type createItem struct {
	ProductID   string  `json:"productID"`
	Quantity    int     `json:"quantity"`
	VariantName *string `json:"variantName,omitempty"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[struct{}]
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	settings := gobreaker.Settings{
		Name:    "transaction-service",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// Create persists the cart as an order. Failures are retryable; the caller
// keeps the cart so the user can retry without re-capturing.
func (c *Client) Create(ctx context.Context, items []domain.LineItem) error {
	payload := createRequest{Data: make([]createItem, len(items))}
	for i, item := range items {
		payload.Data[i] = createItem{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			VariantName: item.VariantName,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal transaction failed: %w", err)
	}

	_, err = c.breaker.Execute(func() (struct{}, error) {
		req, errReq := http.NewRequestWithContext(
			ctx, http.MethodPost, c.baseURL+"/transaction", bytes.NewReader(body))
		if errReq != nil {
			return struct{}{}, fmt.Errorf("create transaction request failed: %w", errReq)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, errDo := c.httpClient.Do(req)
		if errDo != nil {
			return struct{}{}, fmt.Errorf("transaction request failed: %w", errDo)
		}
		defer resp.Body.Close()

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return struct{}{}, fmt.Errorf("%w: status %d", ErrSubmitFailed, resp.StatusCode)
		}
		return struct{}{}, nil
	})
	return err
}
