package cartstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jmilosz/storecart/core/cart"
)

// TokenSource supplies the bearer credential attached to every request. The
// cart client never acquires or renews tokens itself; that is the auth
// collaborator's job.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource wrapping a fixed credential.
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) {
	if t == "" {
		return "", fmt.Errorf("bearer token: %w", ErrAuth)
	}
	return string(t), nil
}

// Client is a typed client for the remote cart API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// NewClient builds a cart API client. httpClient may be nil, in which case a
// client with a 10 second timeout is used.
func NewClient(baseURL string, tokens TokenSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		tokens:  tokens,
	}
}

// List fetches the authoritative line items.
func (c *Client) List(ctx context.Context) ([]cart.LineItem, error) {
	var items []cart.LineItem
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Add creates a line item for the product, merging server-side when the
// product is already in the cart.
func (c *Client) Add(ctx context.Context, productID string, quantity int) error {
	body := cart.ItemNew{ProductID: productID, Quantity: quantity}
	return c.do(ctx, http.MethodPost, "/cart", body, nil)
}

// Update replaces the quantity of one line item.
func (c *Client) Update(ctx context.Context, itemID string, quantity int) error {
	body := cart.ItemUp{Quantity: quantity}
	return c.do(ctx, http.MethodPut, "/cart/"+itemID, body, nil)
}

// Remove deletes one line item.
func (c *Client) Remove(ctx context.Context, itemID string) error {
	return c.do(ctx, http.MethodDelete, "/cart/"+itemID, nil, nil)
}

// Clear deletes every line item.
func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/cart", nil, nil)
}

func (c *Client) do(ctx context.Context, method string, path string, body interface{}, out interface{}) error {
	op := method + " " + path

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshaling body: %w", op, err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("%s: building request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &RemoteError{Op: op, Msg: err.Error(), kind: ErrAuth}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.http.Do(req)
	if err != nil {
		return &RemoteError{Op: op, Msg: err.Error(), kind: ErrUnavailable}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return remoteErr(op, res.StatusCode, errorMessage(res.Body))
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return &RemoteError{Op: op, Msg: "decoding response: " + err.Error(), kind: ErrUnavailable}
		}
	}

	return nil
}

// errorMessage pulls the {"error": "..."} body the service answers failures
// with, falling back to the raw text.
func errorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return "no error detail"
	}

	var er struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &er); err == nil && er.Error != "" {
		return er.Error
	}
	return string(data)
}
