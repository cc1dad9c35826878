package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var ErrUnexpectedStatus = errors.New("unexpected status")

const providerPageSize = 15

// Client calls the registry API under <base>/registry/v1.
type Client struct {
	base  string
	http  *http.Client
	token func(ctx context.Context) string
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption { return func(c *Client) { c.http = hc } }

// WithToken sets a bearer token source consulted per request.
func WithToken(f func(ctx context.Context) string) ClientOption {
	return func(c *Client) { c.token = f }
}

func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/") + "/registry/v1",
		http: &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) CreateService(ctx context.Context, payload any) (ServiceResponse, error) {
	var out ServiceResponse
	err := c.do(ctx, http.MethodPost, "/create", payload, &out)
	return out, err
}

func (c *Client) CreateServiceSpec(ctx context.Context, payload any) (ServiceResponse, error) {
	var out ServiceResponse
	err := c.do(ctx, http.MethodPost, "/specs/create", payload, &out)
	return out, err
}

func (c *Client) UpdateServiceSpec(ctx context.Context, payload any) (ServiceResponse, error) {
	var out ServiceResponse
	err := c.do(ctx, http.MethodPut, "/specs/update", payload, &out)
	return out, err
}

func (c *Client) EditService(ctx context.Context, id string, payload any) (ServiceResponse, error) {
	var out ServiceResponse
	err := c.do(ctx, http.MethodPut, "/update/"+url.PathEscape(id), payload, &out)
	return out, err
}

func (c *Client) UpdateServiceSpecStatus(ctx context.Context, payload any) (ServiceResponse, error) {
	var out ServiceResponse
	err := c.do(ctx, http.MethodPut, "/specs/update/status", payload, &out)
	return out, err
}

func (c *Client) FetchServices(ctx context.Context, page, limit int) ([]Service, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	var out envelope[[]Service]
	err := c.do(ctx, http.MethodGet, "?"+q.Encode(), nil, &out)
	return out.Data, err
}

func (c *Client) FetchServicesByProvider(ctx context.Context, providerID string, page int) ([]Service, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(providerPageSize))
	q.Set("page", strconv.Itoa(page))
	var out envelope[[]Service]
	err := c.do(ctx, http.MethodGet, "/provider/"+url.PathEscape(providerID)+"?"+q.Encode(), nil, &out)
	return out.Data, err
}

// FindServiceSpecsByService lists the specifications of a service.
func (c *Client) FindServiceSpecsByService(ctx context.Context, serviceID string) ([]ServiceSpecification, error) {
	var out envelope[[]ServiceSpecification]
	err := c.do(ctx, http.MethodGet, "/specs/"+url.PathEscape(serviceID)+"/list", nil, &out)
	return out.Data, err
}

func (c *Client) FindService(ctx context.Context, id string) (Service, error) {
	var out envelope[Service]
	err := c.do(ctx, http.MethodGet, "/"+url.PathEscape(id), nil, &out)
	return out.Data, err
}

func (c *Client) FindServiceSpec(ctx context.Context, id string) (ServiceSpecification, error) {
	var out envelope[ServiceSpecification]
	err := c.do(ctx, http.MethodGet, "/specs/"+url.PathEscape(id), nil, &out)
	return out.Data, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := c.token(ctx); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s: %d %s", ErrUnexpectedStatus, method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
