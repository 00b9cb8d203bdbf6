package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crm-orders/internal/metrics"
	"crm-orders/internal/storage"
)

// TokenSource отдаёт bearer-токен текущей сессии пользователя.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// StatusError: бэкенд ответил не 2xx.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

type Options struct {
	Timeout         time.Duration
	LegacyEnvelopes bool
	HTTPClient      *http.Client
	Metrics         *metrics.Metrics
}

// Client: типизированный доступ к REST API одной роли (базовый путь /api/{role}).
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	legacy     bool
	metrics    *metrics.Metrics
}

func BasePath(baseURL, role string) string {
	return strings.TrimSuffix(baseURL, "/") + "/api/" + role
}

func NewClient(baseURL, role string, tokens TokenSource, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    BasePath(baseURL, role),
		tokens:     tokens,
		httpClient: httpClient,
		legacy:     opts.LegacyEnvelopes,
		metrics:    opts.Metrics,
	}
}

func (c *Client) GetOrderByID(ctx context.Context, id int64) (*storage.Order, error) {
	var order *storage.Order
	q := url.Values{"id": {strconv.FormatInt(id, 10)}}
	if err := c.do(ctx, http.MethodGet, "getOrderById", q, nil, &order); err != nil {
		return nil, err
	}
	return order, nil
}

func (c *Client) GetAllOrders(ctx context.Context) ([]storage.Order, error) {
	var orders []storage.Order
	if err := c.do(ctx, http.MethodGet, "getAllOrders", nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) UpdateDeadline(ctx context.Context, req storage.DeadlineUpdate) error {
	q := url.Values{"id": {strconv.FormatInt(req.ID, 10)}}
	return c.do(ctx, http.MethodPut, "updateDeadline", q, req, nil)
}

func (c *Client) CreateRawMaterialsByOrder(ctx context.Context, req storage.RawMaterialsPayload) error {
	return c.do(ctx, http.MethodPost, "createRawMaterialsByOrder", nil, req, nil)
}

func (c *Client) CreateDeadlineByOrder(ctx context.Context, req storage.DeadlinesPayload) error {
	return c.do(ctx, http.MethodPost, "createDeadlineByOrder", nil, req, nil)
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status string) error {
	q := url.Values{
		"id":     {strconv.FormatInt(id, 10)},
		"status": {status},
	}
	return c.do(ctx, http.MethodPut, "updateOrderStatus", q, nil, nil)
}

func (c *Client) GetRawMaterials(ctx context.Context) ([]storage.CatalogMaterial, error) {
	var catalog []storage.CatalogMaterial
	if err := c.do(ctx, http.MethodGet, "getRawMaterials", nil, nil, &catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body, out any) (err error) {
	op := "gateway." + endpoint

	start := time.Now()
	defer func() { c.metrics.ObserveGateway(endpoint, start, err) }()

	target := c.baseURL + "/" + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("%s: token: %w", op, err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: execute request: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: %w", op, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))})
	}

	if err := decodeEnvelope(data, out, c.legacy); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
