// Package domain contains the core entities and interfaces for the frontend.
// Every entity here is owned by the backend service; the frontend only holds
// transient copies echoed from the REST API.
package domain

import (
	"strings"
	"time"
)

// Purchase status values as reported by the backend. Status transitions are
// server-driven; the frontend only ever reads them.
const (
	StatusPending  = "PENDING"
	StatusAccepted = "ACCEPTED"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
	StatusError    = "ERROR"
)

// VisitFeeRate is the fraction of a property's listed price charged for
// scheduling a visit.
const VisitFeeRate = 0.10

// Property is a rental listing as returned by the backend.
// Offers is the number of bookable visit slots remaining.
type Property struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Location string  `json:"location"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Offers   int     `json:"offers"`
	Img      string  `json:"img"`
	URL      string  `json:"url"`
}

// VisitFee returns the visit-scheduling fee for the property (10% of the
// listed price).
func (p Property) VisitFee() float64 {
	return p.Price * VisitFeeRate
}

// Wallet is the authenticated user's prepaid balance.
type Wallet struct {
	Balance float64 `json:"balance"`
}

// CanSchedule reports whether a visit to the property can be scheduled with
// the given wallet: there must be slots left and enough balance to cover the
// fee.
func (w Wallet) CanSchedule(p Property) bool {
	return p.Offers > 0 && w.Balance >= p.VisitFee()
}

// Purchase is a visit-scheduling purchase record. The embedded property
// snapshot keeps the backend's field name ("propertie").
type Purchase struct {
	ID            int64     `json:"id"`
	RequestID     string    `json:"request_id"`
	Status        string    `json:"status"`
	PriceAmount   float64   `json:"price_amount"`
	PriceCurrency string    `json:"price_currency"`
	CreatedAt     time.Time `json:"createdAt"`
	Property      *Property `json:"propertie,omitempty"`
	ReceiptURL    string    `json:"receipt_url,omitempty"`
}

// IsPending reports whether the purchase is still awaiting a terminal status.
// The backend is inconsistent about casing, so the comparison is
// case-insensitive.
func (p Purchase) IsPending() bool {
	return strings.EqualFold(p.Status, StatusPending)
}

// IsAccepted reports whether the purchase reached a successful terminal
// status. The backend uses ACCEPTED and APPROVED interchangeably.
func (p Purchase) IsAccepted() bool {
	s := strings.ToUpper(p.Status)
	return s == StatusAccepted || s == StatusApproved
}

// ReservationCode is the short code shown to the user for an issued purchase
// (the first 8 characters of the request id).
func (p Purchase) ReservationCode() string {
	if len(p.RequestID) < 8 {
		return p.RequestID
	}
	return p.RequestID[:8]
}

// HasPending reports whether any purchase in the list is still pending.
func HasPending(purchases []Purchase) bool {
	for _, p := range purchases {
		if p.IsPending() {
			return true
		}
	}
	return false
}

// GatewayHandoff is the ephemeral bundle carried from purchase initiation to
// the gateway confirmation view. It is held in the browser session only, used
// exactly once to build the redirect form, and never reconstructed.
type GatewayHandoff struct {
	DepositURL   string  `json:"deposit_url"`
	DepositToken string  `json:"deposit_token"`
	PropertyID   string  `json:"property_id"`
	PropertyURL  string  `json:"property_url"`
	OrderID      string  `json:"order_id,omitempty"`
	Amount       int     `json:"amount"`
	Title        string  `json:"title"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
}

// Complete reports whether the handoff carries everything the create-intent
// registration needs. Submission to the gateway is blocked otherwise.
func (h GatewayHandoff) Complete() bool {
	return h.PropertyURL != "" && h.PropertyID != "" && h.DepositToken != ""
}
