// Package domain contains the core entities and interfaces for the frontend.
package domain

import (
	"context"
	"io"
)

// PropertyFilter carries the property list query. Zero values mean "no
// filter"; Page and Limit always apply.
type PropertyFilter struct {
	ID       string
	Location string
	Date     string
	Price    string
	Page     int
	Limit    int
}

// PurchaseOutcome is the backend's answer to a purchase-creation request.
// Exactly one of the two shapes is populated: an immediate terminal Status,
// or a gateway handoff (DepositURL + DepositToken).
type PurchaseOutcome struct {
	Status       string `json:"status,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
	DepositURL   string `json:"deposit_url,omitempty"`
	DepositToken string `json:"deposit_token,omitempty"`
	OrderID      string `json:"order_id,omitempty"`
}

// RequiresGateway reports whether the outcome needs a gateway confirmation
// step before the purchase can proceed.
func (o PurchaseOutcome) RequiresGateway() bool {
	return o.DepositURL != "" && o.DepositToken != ""
}

// IntentRequest registers a pending gateway transaction server-side before
// the browser is allowed to leave for the gateway.
type IntentRequest struct {
	PropertyURL  string `json:"property_url"`
	PropertyID   string `json:"property_id"`
	DepositToken string `json:"deposit_token"`
}

// CommitRequest finalizes a purchase after the gateway redirects back.
type CommitRequest struct {
	TokenWS    string `json:"token_ws"`
	PropertyID string `json:"property_id"`
	RequestID  string `json:"request_id,omitempty"`
}

// Key identifies the commit for deduplication: repeated callbacks for the
// same (token_ws, property_id) pair must commit at most once.
func (c CommitRequest) Key() string {
	return c.TokenWS + ":" + c.PropertyID
}

// CommitResult is the backend's response to a commit call.
type CommitResult struct {
	Message      string `json:"message"`
	PropertyName string `json:"property_name"`
	PropertyURL  string `json:"property_url"`
	Status       string `json:"status,omitempty"`
}

// AuthClient obtains access tokens from the auth service.
type AuthClient interface {
	Login(ctx context.Context, email, password string) (string, error)
	Signup(ctx context.Context, email, username, password string) (string, error)
}

// PropertyClient reads the property inventory.
type PropertyClient interface {
	ListProperties(ctx context.Context, token string, filter PropertyFilter) ([]Property, error)
	GetProperty(ctx context.Context, token, id string) (*Property, error)
}

// WalletClient reads and recharges the user's wallet.
type WalletClient interface {
	GetWallet(ctx context.Context, token string) (*Wallet, error)
	Recharge(ctx context.Context, token string, amount float64) (*Wallet, error)
}

// PurchaseClient drives the purchase flow against the backend.
type PurchaseClient interface {
	CreatePurchase(ctx context.Context, token, propertyURL string) (*PurchaseOutcome, error)
	CreateIntent(ctx context.Context, token string, intent IntentRequest) error
	CommitPurchase(ctx context.Context, token string, commit CommitRequest) (*CommitResult, error)
	ListPurchases(ctx context.Context, token string) ([]Purchase, error)
	DownloadReceipt(ctx context.Context, token string, purchaseID int64) (io.ReadCloser, string, error)
}
