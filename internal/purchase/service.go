// Package purchase implements the purchase/visit-scheduling flow: initiation,
// gateway intent registration, and the deduplicated commit that finalizes a
// purchase after the gateway redirects back.
package purchase

import (
	"context"
	"io"
	"log"
	"math"
	"strconv"

	"github.com/g11-iic2173/frontend-iic2173-g11/internal/domain"
)

// Service orchestrates the purchase flow against the backend.
type Service struct {
	purchases domain.PurchaseClient
	guard     *CommitGuard
}

// NewService creates a purchase service.
func NewService(purchases domain.PurchaseClient) *Service {
	return &Service{
		purchases: purchases,
		guard:     NewCommitGuard(),
	}
}

// InitiateResult is the outcome of a purchase initiation. Either Status is a
// terminal/pending state to display, or Handoff carries the bundle for the
// gateway confirmation step.
type InitiateResult struct {
	Status  string
	Handoff *domain.GatewayHandoff
}

// Initiate issues the purchase-creation request for the property.
//
// Requires an authenticated session and a property with visit slots left;
// both are checked locally before any request is sent. When the backend
// demands a gateway confirmation, the returned handoff is the sole input to
// that step: no second round-trip happens before the transition.
func (s *Service) Initiate(ctx context.Context, token string, property domain.Property) (*InitiateResult, error) {
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}
	if property.Offers <= 0 {
		return nil, domain.ErrNoOffersLeft
	}

	outcome, err := s.purchases.CreatePurchase(ctx, token, property.URL)
	if err != nil {
		return nil, err
	}

	if !outcome.RequiresGateway() {
		status := outcome.Status
		if status == "" {
			status = "pending"
		}
		return &InitiateResult{Status: status}, nil
	}

	handoff := &domain.GatewayHandoff{
		DepositURL:   outcome.DepositURL,
		DepositToken: outcome.DepositToken,
		PropertyID:   strconv.FormatInt(property.ID, 10),
		PropertyURL:  property.URL,
		OrderID:      outcome.OrderID,
		Amount:       1,
		Title:        property.Name,
		Price:        property.VisitFee(),
		Currency:     property.Currency,
	}
	return &InitiateResult{Handoff: handoff}, nil
}

// RegisterIntent registers the pending transaction server-side. It must
// succeed before the browser is allowed to leave for the gateway; an
// incomplete handoff blocks the submission with no request sent.
func (s *Service) RegisterIntent(ctx context.Context, token string, handoff domain.GatewayHandoff) error {
	if token == "" {
		return domain.ErrNotAuthenticated
	}
	if !handoff.Complete() {
		return domain.ErrIncompleteHandoff
	}
	return s.purchases.CreateIntent(ctx, token, domain.IntentRequest{
		PropertyURL:  handoff.PropertyURL,
		PropertyID:   handoff.PropertyID,
		DepositToken: handoff.DepositToken,
	})
}

// Commit finalizes a purchase from the gateway callback parameters, at most
// once per (token_ws, property_id) pair. Repeated callbacks replay the
// stored result; a failed attempt clears the marker so a retry can commit.
//
// Missing token_ws or property_id is a user cancellation, reported without
// any network call.
func (s *Service) Commit(ctx context.Context, token string, commit domain.CommitRequest) (*domain.CommitResult, error) {
	if commit.TokenWS == "" || commit.PropertyID == "" {
		return nil, domain.ErrCallbackCancelled
	}
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}

	key := commit.Key()
	cached, owned := s.guard.begin(key)
	if !owned {
		if cached != nil {
			return cached, nil
		}
		return nil, domain.ErrCommitInFlight
	}

	result, err := s.purchases.CommitPurchase(ctx, token, commit)
	if err != nil {
		s.guard.fail(key)
		return nil, err
	}

	log.Printf("Purchase committed for property %s (token_ws %s...)",
		commit.PropertyID, shortToken(commit.TokenWS))
	s.guard.succeed(key, result)
	return result, nil
}

// History fetches the user's purchase list.
func (s *Service) History(ctx context.Context, token string) ([]domain.Purchase, error) {
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}
	return s.purchases.ListPurchases(ctx, token)
}

// Receipt streams the PDF receipt for a purchase. The caller must close the
// returned reader.
func (s *Service) Receipt(ctx context.Context, token string, purchaseID int64) (io.ReadCloser, string, error) {
	if token == "" {
		return nil, "", domain.ErrNotAuthenticated
	}
	return s.purchases.DownloadReceipt(ctx, token, purchaseID)
}

// FormatFee renders a visit fee with two decimals the way the detail view
// displays it, e.g. "10000.00 CLP".
func FormatFee(fee float64, currency string) string {
	rounded := math.Round(fee*100) / 100
	return strconv.FormatFloat(rounded, 'f', 2, 64) + " " + currency
}

// shortToken truncates gateway tokens for logging.
func shortToken(t string) string {
	if len(t) <= 8 {
		return t
	}
	return t[:8]
}
