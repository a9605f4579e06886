package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/g11-iic2173/frontend-iic2173-g11/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, srv.URL, 5*time.Second)
}

func TestLoginReturnsAccessToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ana@example.com", body["email"])
		assert.Equal(t, "secret", body["password"])

		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-123"})
	})

	token, err := client.Login(context.Background(), "ana@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
}

func TestLoginSurfacesServerErrorVerbatim(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"error": "credenciales inválidas"})
	})

	_, err := client.Login(context.Background(), "ana@example.com", "bad")
	require.Error(t, err)

	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "credenciales inválidas", apiErr.Message)
	assert.ErrorIs(t, err, domain.ErrRequestFailed)
}

func TestListPropertiesDefaultsAndBearerAuth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "/properties", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Empty(t, r.URL.Query().Get("location"))

		json.NewEncoder(w).Encode([]domain.Property{
			{ID: 42, Name: "Casa Ñuñoa", Price: 100000, Currency: "CLP", Offers: 2},
		})
	})

	properties, err := client.ListProperties(context.Background(), "tok-123", domain.PropertyFilter{})
	require.NoError(t, err)
	require.Len(t, properties, 1)
	assert.Equal(t, int64(42), properties[0].ID)
}

func TestListPropertiesFilters(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Valparaíso", q.Get("location"))
		assert.Equal(t, "2026-09-01", q.Get("date"))
		assert.Equal(t, "200000", q.Get("price"))
		assert.Equal(t, "3", q.Get("page"))
		assert.Equal(t, "50", q.Get("limit"))
		json.NewEncoder(w).Encode([]domain.Property{})
	})

	_, err := client.ListProperties(context.Background(), "tok", domain.PropertyFilter{
		Location: "Valparaíso",
		Date:     "2026-09-01",
		Price:    "200000",
		Page:     3,
		Limit:    50,
	})
	require.NoError(t, err)
}

func TestSessionExpiredMapping(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]string{"error": "token expirado"})
		})

		_, err := client.ListPurchases(context.Background(), "stale")
		assert.ErrorIs(t, err, domain.ErrSessionExpired, "status %d", status)
	}
}

func TestRechargeRoundTrip(t *testing.T) {
	balance := 100.0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wallet/recharge":
			var body map[string]float64
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			balance += body["amount"]
			json.NewEncoder(w).Encode(domain.Wallet{Balance: balance})
		case "/wallet":
			json.NewEncoder(w).Encode(domain.Wallet{Balance: balance})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	wallet, err := client.Recharge(context.Background(), "tok", 50)
	require.NoError(t, err)
	assert.InDelta(t, 150.0, wallet.Balance, 0.001)

	// A re-fetch reflects the recharge exactly.
	wallet, err = client.GetWallet(context.Background(), "tok")
	require.NoError(t, err)
	assert.InDelta(t, 150.0, wallet.Balance, 0.001)
}

func TestCreatePurchaseShapes(t *testing.T) {
	t.Run("immediate status", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "https://listings.example.com/42", body["property_url"])
			json.NewEncoder(w).Encode(map[string]string{"status": "PENDING"})
		})

		outcome, err := client.CreatePurchase(context.Background(), "tok", "https://listings.example.com/42")
		require.NoError(t, err)
		assert.False(t, outcome.RequiresGateway())
		assert.Equal(t, "PENDING", outcome.Status)
	})

	t.Run("gateway handoff", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{
				"deposit_url":   "https://gateway.example.com/init",
				"deposit_token": "tkn-1",
			})
		})

		outcome, err := client.CreatePurchase(context.Background(), "tok", "u")
		require.NoError(t, err)
		assert.True(t, outcome.RequiresGateway())
	})
}

func TestCommitPurchaseBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/purchases/commit", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "abc", body["token_ws"])
		assert.Equal(t, "42", body["property_id"])
		json.NewEncoder(w).Encode(domain.CommitResult{
			Message:      "Compra confirmada",
			PropertyName: "Casa Ñuñoa",
			PropertyURL:  "https://listings.example.com/42",
		})
	})

	result, err := client.CommitPurchase(context.Background(), "tok", domain.CommitRequest{
		TokenWS:    "abc",
		PropertyID: "42",
	})
	require.NoError(t, err)
	assert.Equal(t, "Compra confirmada", result.Message)
}

func TestDownloadReceipt(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/purchases/7/receipt", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	})

	body, contentType, err := client.DownloadReceipt(context.Background(), "tok", 7)
	require.NoError(t, err)
	defer body.Close()
	assert.Equal(t, "application/pdf", contentType)
}

func TestTransportFailure(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", "", time.Second)
	_, err := client.GetWallet(context.Background(), "tok")
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}
