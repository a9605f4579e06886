// Package backend implements the domain client interfaces by communicating
// with the external backend REST API. All business state (inventory, wallet
// ledger, purchase transitions) lives server-side; this client only moves
// requests and echoes responses.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/g11-iic2173/frontend-iic2173-g11/internal/domain"
)

// DefaultPageLimit is used when the caller does not choose a page size.
const DefaultPageLimit = 25

// Client implements domain.AuthClient, domain.PropertyClient,
// domain.WalletClient and domain.PurchaseClient by making HTTP requests to
// the backend API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	authURL    string
	httpClient *http.Client
}

// NewClient creates a new backend client. authURL may equal baseURL when the
// auth endpoints live on the same service.
func NewClient(baseURL, authURL string, timeout time.Duration) *Client {
	if authURL == "" {
		authURL = baseURL
	}
	return &Client{
		baseURL: baseURL,
		authURL: authURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// errorResponse is the backend's error envelope. The message is surfaced to
// the user verbatim.
type errorResponse struct {
	Error string `json:"error"`
}

// tokenResponse is the auth service's answer to login/signup.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Login obtains an access token for the given credentials.
// POST {auth}/login
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}
	var resp tokenResponse
	if err := c.doJSON(ctx, http.MethodPost, c.authURL+"/login", "", body, &resp); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// Signup registers a new user and returns an access token.
// POST {auth}/signup
func (c *Client) Signup(ctx context.Context, email, username, password string) (string, error) {
	body := map[string]string{"email": email, "username": username, "password": password}
	var resp tokenResponse
	if err := c.doJSON(ctx, http.MethodPost, c.authURL+"/signup", "", body, &resp); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// ListProperties fetches a page of the property inventory.
// GET /properties?location=&date=&price=&page=&limit=
func (c *Client) ListProperties(ctx context.Context, token string, filter domain.PropertyFilter) ([]domain.Property, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultPageLimit
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	params := url.Values{}
	if filter.Location != "" {
		params.Set("location", filter.Location)
	}
	if filter.Date != "" {
		params.Set("date", filter.Date)
	}
	if filter.Price != "" {
		params.Set("price", filter.Price)
	}
	params.Set("page", strconv.Itoa(filter.Page))
	params.Set("limit", strconv.Itoa(filter.Limit))

	var properties []domain.Property
	endpoint := fmt.Sprintf("%s/properties?%s", c.baseURL, params.Encode())
	if err := c.doJSON(ctx, http.MethodGet, endpoint, token, nil, &properties); err != nil {
		return nil, err
	}
	return properties, nil
}

// GetProperty fetches a single property by id.
// GET /properties/:id
func (c *Client) GetProperty(ctx context.Context, token, id string) (*domain.Property, error) {
	var property domain.Property
	endpoint := fmt.Sprintf("%s/properties/%s", c.baseURL, url.PathEscape(id))
	if err := c.doJSON(ctx, http.MethodGet, endpoint, token, nil, &property); err != nil {
		return nil, err
	}
	return &property, nil
}

// GetWallet fetches the user's current balance.
// GET /wallet
func (c *Client) GetWallet(ctx context.Context, token string) (*domain.Wallet, error) {
	var wallet domain.Wallet
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/wallet", token, nil, &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

// Recharge adds amount to the user's wallet and returns the new balance.
// POST /wallet/recharge
func (c *Client) Recharge(ctx context.Context, token string, amount float64) (*domain.Wallet, error) {
	body := map[string]float64{"amount": amount}
	var wallet domain.Wallet
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/wallet/recharge", token, body, &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

// CreatePurchase starts a purchase for the property identified by its URL.
// The backend answers with either an immediate status or a gateway handoff.
// POST /purchases
func (c *Client) CreatePurchase(ctx context.Context, token, propertyURL string) (*domain.PurchaseOutcome, error) {
	body := map[string]string{"property_url": propertyURL}
	var outcome domain.PurchaseOutcome
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/purchases", token, body, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}

// CreateIntent registers the pending gateway transaction server-side.
// POST /purchases/create-intent
func (c *Client) CreateIntent(ctx context.Context, token string, intent domain.IntentRequest) error {
	return c.doJSON(ctx, http.MethodPost, c.baseURL+"/purchases/create-intent", token, intent, nil)
}

// CommitPurchase finalizes a purchase after the gateway redirected back.
// POST /purchases/commit
func (c *Client) CommitPurchase(ctx context.Context, token string, commit domain.CommitRequest) (*domain.CommitResult, error) {
	var result domain.CommitResult
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/purchases/commit", token, commit, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListPurchases fetches the user's purchase history.
// GET /purchases
func (c *Client) ListPurchases(ctx context.Context, token string) ([]domain.Purchase, error) {
	var purchases []domain.Purchase
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/purchases", token, nil, &purchases); err != nil {
		return nil, err
	}
	return purchases, nil
}

// DownloadReceipt streams the PDF receipt for a purchase. The caller owns the
// returned reader. The second return value is the response content type.
// GET /purchases/:id/receipt
func (c *Client) DownloadReceipt(ctx context.Context, token string, purchaseID int64) (io.ReadCloser, string, error) {
	endpoint := fmt.Sprintf("%s/purchases/%d/receipt", c.baseURL, purchaseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, "", c.responseError(resp)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	return resp.Body, contentType, nil
}

// doJSON performs a JSON request against the backend. token is optional; out
// may be nil when the response body is irrelevant.
func (c *Client) doJSON(ctx context.Context, method, endpoint, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.responseError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// responseError maps a non-2xx backend response to a domain error, keeping
// the server's error message verbatim when one is present.
func (c *Client) responseError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var envelope errorResponse
	message := ""
	if err := json.Unmarshal(raw, &envelope); err == nil {
		message = envelope.Error
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.NewAPIError(domain.ErrSessionExpired, message, resp.StatusCode)
	case http.StatusNotFound:
		return domain.NewAPIError(domain.ErrNotFound, message, resp.StatusCode)
	default:
		// No message to surface: views fall back to a generic text.
		return domain.NewAPIError(domain.ErrRequestFailed, message, resp.StatusCode)
	}
}
