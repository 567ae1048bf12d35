// Package cartclient talks to the persisted-cart REST API on behalf of the sync coordinator.
package cartclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/quotecart/internal/cart"
	"github.com/angelmondragon/quotecart/internal/cartsync"
	"github.com/angelmondragon/quotecart/internal/pricing"
	pkgerrors "github.com/angelmondragon/quotecart/pkg/errors"
)

const (
	// OwnerHeader carries the cart owner identity.
	OwnerHeader = "X-Cart-Owner"

	defaultTimeout             = 10 * time.Second
	errorBodyReadLimit   int64 = 4096
	cartPath                   = "/api/v1/cart"
	cartItemsPath              = "/api/v1/cart/items"
	cartCountPath              = "/api/v1/cart/count"
)

var (
	errBaseURLRequired = errors.New("cart api base url is required")
	errOwnerRequired   = errors.New("cart owner is required")
)

// Client is a cartsync.Remote backed by the persisted-cart REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	ownerID    string
}

var _ cartsync.Remote = (*Client)(nil)

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds a client for the cart of ownerID.
func NewClient(baseURL, ownerID string, opts ...Option) (*Client, error) {
	trimmedURL := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmedURL == "" {
		return nil, errBaseURLRequired
	}
	trimmedOwner := strings.TrimSpace(ownerID)
	if trimmedOwner == "" {
		return nil, errOwnerRequired
	}

	client := &Client{
		baseURL:    trimmedURL,
		ownerID:    trimmedOwner,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type addRequest struct {
	Type     string        `json:"type"`
	Input    pricing.Input `json:"input"`
	ForceAdd bool          `json:"force_add"`
}

type cartPayload struct {
	Items []cart.Item `json:"items"`
}

type countPayload struct {
	Count int `json:"count"`
}

type errorEnvelope struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type duplicateDetails struct {
	IsDuplicate bool   `json:"is_duplicate"`
	DuplicateID string `json:"duplicate_id"`
}

// List fetches the server cart in insertion order.
func (c *Client) List(ctx context.Context) ([]cart.Item, error) {
	var out cartPayload
	if err := c.do(ctx, "list", http.MethodGet, cartPath, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Count fetches the number of saved lines.
func (c *Client) Count(ctx context.Context) (int, error) {
	var out countPayload
	if err := c.do(ctx, "count", http.MethodGet, cartCountPath, nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// Add creates the line on the server. With force set the duplicate check is skipped.
func (c *Client) Add(ctx context.Context, item cart.Item, force bool) (cart.Item, error) {
	body := addRequest{Type: string(item.Type), Input: item.Input, ForceAdd: force}
	var out cart.Item
	if err := c.do(ctx, "add", http.MethodPost, cartItemsPath, body, &out); err != nil {
		return cart.Item{}, err
	}
	return out, nil
}

// Update sends a partial update of a saved line.
func (c *Client) Update(ctx context.Context, id string, patch cart.Patch) (cart.Item, error) {
	var out cart.Item
	if err := c.do(ctx, "update", http.MethodPatch, itemPath(id), patch, &out); err != nil {
		return cart.Item{}, err
	}
	return out, nil
}

// Remove deletes a saved line.
func (c *Client) Remove(ctx context.Context, id string) error {
	return c.do(ctx, "remove", http.MethodDelete, itemPath(id), nil, nil)
}

// Clear deletes every saved line.
func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, "clear", http.MethodDelete, cartPath, nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("marshal %s request", op))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("build %s request", op))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(OwnerHeader, c.ownerID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(op, resp)
	}
	if dest == nil {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return &cartsync.SyncError{Kind: cartsync.KindHTTP, Op: op, Status: resp.StatusCode, Message: "decode response", Err: err}
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		return &cartsync.SyncError{Kind: cartsync.KindHTTP, Op: op, Status: resp.StatusCode, Message: "decode response data", Err: err}
	}
	return nil
}

func transportError(op string, err error) *cartsync.SyncError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &cartsync.SyncError{Kind: cartsync.KindTimeout, Op: op, Message: "request timed out", Err: err}
	}
	return &cartsync.SyncError{Kind: cartsync.KindNetwork, Op: op, Message: err.Error(), Err: err}
}

func responseError(op string, resp *http.Response) *cartsync.SyncError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))

	var envelope errorEnvelope
	message := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	if resp.StatusCode == http.StatusConflict && envelope.Error.Code == string(pkgerrors.CodeDuplicate) {
		var details duplicateDetails
		_ = json.Unmarshal(envelope.Error.Details, &details)
		serr := cartsync.DuplicateRejected(resp.StatusCode, details.DuplicateID, message)
		serr.Op = op
		return serr
	}

	serr := cartsync.HTTPError(resp.StatusCode, message)
	serr.Op = op
	return serr
}

func itemPath(id string) string {
	return cartItemsPath + "/" + url.PathEscape(id)
}
