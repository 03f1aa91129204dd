package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/susatyo441/shop-vision/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

// ListParams mirrors the catalog service's paginated product listing.
type ListParams struct {
	Page          int
	Limit         int
	Search        string
	SortBy        string
	OnlyAvailable bool
}

type ProductPage struct {
	Products []domain.Product `json:"data"`
	Total    int              `json:"total"`
}

// Client talks to the external catalog service over its REST API. Calls go
// through a circuit breaker so a degraded catalog cannot pile up requests
// during an active capture session.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	settings := gobreaker.Settings{
		Name:    "catalog-service",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    gobreaker.NewCircuitBreaker[*http.Response](settings),
	}
}

// GetProductDetail fetches one product by id.
func (c *Client) GetProductDetail(ctx context.Context, id string) (*domain.Product, error) {
	resp, err := c.do(ctx, fmt.Sprintf("%s/product/%s", c.baseURL, url.PathEscape(id)))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrProductNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog service returned status %d", resp.StatusCode)
	}

	var payload struct {
		Data domain.Product `json:"data"`
	}
	if errDecode := json.NewDecoder(resp.Body).Decode(&payload); errDecode != nil {
		return nil, fmt.Errorf("decode product detail failed: %w", errDecode)
	}

	return &payload.Data, nil
}

// GetProducts fetches a paginated product listing.
func (c *Client) GetProducts(ctx context.Context, params ListParams) (*ProductPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(params.Page))
	query.Set("limit", strconv.Itoa(params.Limit))
	query.Set("search", params.Search)
	if params.SortBy != "" {
		query.Set("sortBy", params.SortBy)
		query.Set("sortOrder", "1")
	}
	if params.OnlyAvailable {
		query.Set("isAvailable", "true")
	}

	resp, err := c.do(ctx, fmt.Sprintf("%s/product?%s", c.baseURL, query.Encode()))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog service returned status %d", resp.StatusCode)
	}

	var page ProductPage
	if errDecode := json.NewDecoder(resp.Body).Decode(&page); errDecode != nil {
		return nil, fmt.Errorf("decode product page failed: %w", errDecode)
	}

	return &page, nil
}

func (c *Client) do(ctx context.Context, rawURL string) (*http.Response, error) {
	return c.breaker.Execute(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create catalog request failed: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("catalog request failed: %w", err)
		}

		// 5xx counts as a breaker failure, 4xx is the caller's problem.
		if resp.StatusCode >= http.StatusInternalServerError {
			resp.Body.Close()
			return nil, fmt.Errorf("catalog service returned status %d", resp.StatusCode)
		}

		return resp, nil
	})
}
