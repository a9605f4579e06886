package web

import (
	"context"
	"errors"
	"html/template"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/g11-iic2173/frontend-iic2173-g11/internal/domain"
	"github.com/g11-iic2173/frontend-iic2173-g11/internal/purchase"
	"github.com/g11-iic2173/frontend-iic2173-g11/internal/session"
	"github.com/g11-iic2173/frontend-iic2173-g11/internal/visits"
)

// Handler contains the HTTP handlers for the frontend views.
type Handler struct {
	auth       domain.AuthClient
	properties domain.PropertyClient
	wallet     domain.WalletClient
	purchases  *purchase.Service
	sessions   *session.Manager
}

// NewHandler creates the view handler with its backend dependencies.
func NewHandler(
	auth domain.AuthClient,
	properties domain.PropertyClient,
	wallet domain.WalletClient,
	purchases *purchase.Service,
	sessions *session.Manager,
) *Handler {
	return &Handler{
		auth:       auth,
		properties: properties,
		wallet:     wallet,
		purchases:  purchases,
		sessions:   sessions,
	}
}

// ErrorResponse is the JSON error shape for the fetch-style endpoints.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// LoginPage handles GET /login
func (h *Handler) LoginPage(c *gin.Context) {
	if currentSession(c).Authenticated() {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.HTML(http.StatusOK, "login.html", gin.H{
		"Flashes": h.sessions.TakeFlashes(c.Writer, c.Request),
	})
}

// Login handles POST /login
func (h *Handler) Login(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")
	if email == "" || password == "" {
		h.sessions.Flash(c.Writer, c.Request, "Correo y contraseña son obligatorios")
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	token, err := h.auth.Login(c.Request.Context(), email, password)
	if err != nil {
		h.sessions.Flash(c.Writer, c.Request, domain.UserMessage(err, "Error al iniciar sesión"))
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	if err := h.sessions.SaveToken(c.Writer, c.Request, token); err != nil {
		log.Printf("Failed to save session: %v", err)
		h.sessions.Flash(c.Writer, c.Request, "Error al iniciar sesión")
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// SignupPage handles GET /signup
func (h *Handler) SignupPage(c *gin.Context) {
	if currentSession(c).Authenticated() {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.HTML(http.StatusOK, "signup.html", gin.H{
		"Flashes": h.sessions.TakeFlashes(c.Writer, c.Request),
	})
}

// Signup handles POST /signup
func (h *Handler) Signup(c *gin.Context) {
	email := c.PostForm("email")
	username := c.PostForm("username")
	password := c.PostForm("password")
	if email == "" || username == "" || password == "" {
		h.sessions.Flash(c.Writer, c.Request, "Todos los campos son obligatorios")
		c.Redirect(http.StatusSeeOther, "/signup")
		return
	}

	token, err := h.auth.Signup(c.Request.Context(), email, username, password)
	if err != nil {
		h.sessions.Flash(c.Writer, c.Request, domain.UserMessage(err, "Error al registrar usuario"))
		c.Redirect(http.StatusSeeOther, "/signup")
		return
	}

	if err := h.sessions.SaveToken(c.Writer, c.Request, token); err != nil {
		log.Printf("Failed to save session: %v", err)
		h.sessions.Flash(c.Writer, c.Request, "Error al registrar usuario")
		c.Redirect(http.StatusSeeOther, "/signup")
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// Logout handles POST /logout. Clearing the cookie prevents any later call
// from carrying stale credentials.
func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessions.Clear(c.Writer, c.Request); err != nil {
		log.Printf("Failed to clear session: %v", err)
	}
	c.Redirect(http.StatusSeeOther, "/login")
}

// Properties handles GET / — the filtered, paginated property list.
// An exact-id search hits the detail endpoint and renders a one-item list.
func (h *Handler) Properties(c *gin.Context) {
	sess := currentSession(c)
	filter := domain.PropertyFilter{
		ID:       c.Query("id"),
		Location: c.Query("location"),
		Date:     c.Query("date"),
		Price:    c.Query("price"),
		Page:     queryInt(c, "page", 1),
		Limit:    queryInt(c, "limit", 25),
	}

	flashes := h.sessions.TakeFlashes(c.Writer, c.Request)
	var properties []domain.Property
	var err error
	if filter.ID != "" {
		var property *domain.Property
		property, err = h.properties.GetProperty(c.Request.Context(), sess.Token, filter.ID)
		if property != nil {
			properties = []domain.Property{*property}
		}
	} else {
		properties, err = h.properties.ListProperties(c.Request.Context(), sess.Token, filter)
	}
	if err != nil {
		log.Printf("Failed to load properties: %v", err)
		flashes = append(flashes, domain.UserMessage(err, "No se pudieron cargar las propiedades"))
		properties = nil
	}

	c.HTML(http.StatusOK, "properties.html", gin.H{
		"Flashes":    flashes,
		"Email":      sess.Email(),
		"Properties": properties,
		"Filter":     filter,
		"PrevQuery":  pageQuery(filter, filter.Page-1),
		"NextQuery":  pageQuery(filter, filter.Page+1),
	})
}

// PropertyDetail handles GET /properties/:id
func (h *Handler) PropertyDetail(c *gin.Context) {
	sess := currentSession(c)
	property, err := h.properties.GetProperty(c.Request.Context(), sess.Token, c.Param("id"))
	if err != nil {
		h.sessions.Flash(c.Writer, c.Request,
			domain.UserMessage(err, "Error cargando la propiedad"))
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	// A wallet failure leaves the balance at zero; the view still renders.
	wallet := domain.Wallet{}
	if w, err := h.wallet.GetWallet(c.Request.Context(), sess.Token); err == nil {
		wallet = *w
	}

	c.HTML(http.StatusOK, "property_detail.html", gin.H{
		"Flashes":  h.sessions.TakeFlashes(c.Writer, c.Request),
		"Property": *property,
		"Wallet":   wallet,
		"Fee":      property.VisitFee(),
		"CanBuy":   wallet.CanSchedule(*property),
	})
}

// Recharge handles POST /wallet/recharge. The flash carries the reconciled
// balance returned by the backend; the redirected detail view re-fetches the
// wallet, reverting any display the backend did not confirm.
func (h *Handler) Recharge(c *gin.Context) {
	sess := currentSession(c)
	propertyID := c.PostForm("property_id")
	back := "/properties/" + url.PathEscape(propertyID)
	if propertyID == "" {
		back = "/"
	}

	amount, err := strconv.ParseFloat(c.PostForm("amount"), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		h.sessions.Flash(c.Writer, c.Request, "Ingresa un monto válido para recargar")
		c.Redirect(http.StatusSeeOther, back)
		return
	}

	wallet, err := h.wallet.Recharge(c.Request.Context(), sess.Token, amount)
	if err != nil {
		h.sessions.Flash(c.Writer, c.Request, domain.UserMessage(err, "No se pudo recargar"))
		c.Redirect(http.StatusSeeOther, back)
		return
	}

	h.sessions.Flash(c.Writer, c.Request,
		"Recarga exitosa. Nuevo saldo: "+strconv.FormatFloat(wallet.Balance, 'f', 2, 64))
	c.Redirect(http.StatusSeeOther, back)
}

// CreatePurchase handles POST /purchases — the purchase initiation. On an
// immediate status the user lands back on the detail view, which re-fetches
// property and wallet; on a gateway handoff the payload is stashed in the
// session and the flow moves to the confirmation view.
func (h *Handler) CreatePurchase(c *gin.Context) {
	sess := currentSession(c)
	propertyID := c.PostForm("property_id")
	back := "/properties/" + url.PathEscape(propertyID)

	property, err := h.properties.GetProperty(c.Request.Context(), sess.Token, propertyID)
	if err != nil {
		h.sessions.Flash(c.Writer, c.Request, domain.UserMessage(err, "No se pudo comprar"))
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	result, err := h.purchases.Initiate(c.Request.Context(), sess.Token, *property)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotAuthenticated):
			h.sessions.Flash(c.Writer, c.Request, "Debes iniciar sesión para comprar/agendar")
			c.Redirect(http.StatusSeeOther, "/login")
		case errors.Is(err, domain.ErrNoOffersLeft):
			h.sessions.Flash(c.Writer, c.Request, "No quedan visitas disponibles")
			c.Redirect(http.StatusSeeOther, back)
		default:
			h.sessions.Flash(c.Writer, c.Request, domain.UserMessage(err, "No se pudo comprar"))
			c.Redirect(http.StatusSeeOther, back)
		}
		return
	}

	if result.Handoff != nil {
		if err := h.sessions.StashHandoff(c.Writer, c.Request, *result.Handoff); err != nil {
			log.Printf("Failed to stash gateway handoff: %v", err)
			h.sessions.Flash(c.Writer, c.Request, "No se pudo iniciar el pago")
			c.Redirect(http.StatusSeeOther, back)
			return
		}
		c.Redirect(http.StatusSeeOther, "/confirm-purchase")
		return
	}

	h.sessions.Flash(c.Writer, c.Request, "Compra iniciada. Estado: "+result.Status)
	c.Redirect(http.StatusSeeOther, back)
}

// ConfirmPurchase handles GET /confirm-purchase — the gateway confirmation
// relay. The handoff payload is consumed on render: entering without one
// (direct navigation, refresh) goes straight back to the property list.
func (h *Handler) ConfirmPurchase(c *gin.Context) {
	handoff, ok := h.sessions.TakeHandoff(c.Writer, c.Request)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	c.HTML(http.StatusOK, "confirm_purchase.html", gin.H{
		"Handoff": *handoff,
		"Total":   handoff.Price * float64(handoff.Amount),
	})
}

// CreateIntent handles POST /purchases/create-intent, called by the
// confirmation view before it lets the browser submit the gateway form.
func (h *Handler) CreateIntent(c *gin.Context) {
	sess := currentSession(c)

	var req domain.IntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
			Code:    "VALIDATION_ERROR",
		})
		return
	}

	err := h.purchases.RegisterIntent(c.Request.Context(), sess.Token, domain.GatewayHandoff{
		PropertyURL:  req.PropertyURL,
		PropertyID:   req.PropertyID,
		DepositToken: req.DepositToken,
	})
	if err != nil {
		handleIntentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PurchaseCompleted handles the gateway callback (GET /purchase-completed and
// its alias). Missing parameters mean the user cancelled at the gateway: no
// commit call is made. Otherwise the commit runs at most once per
// (token_ws, property_id) pair.
func (h *Handler) PurchaseCompleted(c *gin.Context) {
	commit := domain.CommitRequest{
		TokenWS:    c.Query("token_ws"),
		PropertyID: c.Query("property_id"),
		RequestID:  c.Query("request_id"),
	}

	if commit.TokenWS == "" || commit.PropertyID == "" {
		commitAttemptsTotal.WithLabelValues("cancelled").Inc()
		c.HTML(http.StatusOK, "purchase_completed.html", gin.H{"Cancelled": true})
		return
	}

	sess := currentSession(c)
	result, err := h.purchases.Commit(c.Request.Context(), sess.Token, commit)
	if err != nil {
		commitAttemptsTotal.WithLabelValues("failed").Inc()
		log.Printf("Commit failed for property %s: %v", commit.PropertyID, err)
		c.HTML(http.StatusOK, "purchase_completed.html", gin.H{
			"Error": domain.UserMessage(err, "No se pudo confirmar la compra"),
		})
		return
	}

	commitAttemptsTotal.WithLabelValues("committed").Inc()
	c.HTML(http.StatusOK, "purchase_completed.html", gin.H{"Result": result})
}

// MyVisits handles GET /my-visits — the purchase history table.
func (h *Handler) MyVisits(c *gin.Context) {
	sess := currentSession(c)
	purchases, err := h.purchases.History(c.Request.Context(), sess.Token)
	data := gin.H{
		"Flashes":    h.sessions.TakeFlashes(c.Writer, c.Request),
		"Purchases":  purchases,
		"HasPending": domain.HasPending(purchases),
	}
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			data["SessionExpired"] = true
		} else {
			log.Printf("Failed to load purchases: %v", err)
			data["Error"] = domain.UserMessage(err, "No se pudieron cargar tus visitas")
		}
	}
	c.HTML(http.StatusOK, "my_visits.html", data)
}

// VisitDetail handles GET /my-visits/:id
func (h *Handler) VisitDetail(c *gin.Context) {
	sess := currentSession(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/my-visits")
		return
	}

	purchases, err := h.purchases.History(c.Request.Context(), sess.Token)
	if err != nil {
		h.sessions.Flash(c.Writer, c.Request,
			domain.UserMessage(err, "No se pudo cargar el detalle de compra"))
		c.Redirect(http.StatusSeeOther, "/my-visits")
		return
	}

	for _, p := range purchases {
		if p.ID == id {
			c.HTML(http.StatusOK, "visit_detail.html", gin.H{"Purchase": p})
			return
		}
	}
	h.sessions.Flash(c.Writer, c.Request, "Compra no encontrada")
	c.Redirect(http.StatusSeeOther, "/my-visits")
}

// visitEvent is one server-sent update of the watched purchase list.
type visitEvent struct {
	Pending bool   `json:"pending"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
}

// VisitEvents handles GET /my-visits/events — a server-sent event stream
// that re-fetches the purchase list every five seconds while any entry is
// pending. The watcher is torn down when the stream ends, whichever side
// closes it.
func (h *Handler) VisitEvents(c *gin.Context) {
	sess := currentSession(c)
	if !sess.Authenticated() {
		c.Status(http.StatusUnauthorized)
		return
	}

	ctx := c.Request.Context()
	updates := make(chan visitEvent, 1)
	deliver := func(purchases []domain.Purchase, err error) {
		ev := visitEvent{Pending: domain.HasPending(purchases), Count: len(purchases)}
		if err != nil {
			ev.Pending = true // unknown state: keep the client listening
			ev.Error = domain.UserMessage(err, "No se pudieron cargar tus visitas")
		}
		select {
		case updates <- ev:
		case <-ctx.Done():
		}
	}

	watcher := visits.NewWatcher(func(fetchCtx context.Context) ([]domain.Purchase, error) {
		return h.purchases.History(fetchCtx, sess.Token)
	}, deliver, 0)
	defer watcher.Stop()

	go watcher.Start(ctx)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// The first update mirrors the page the client just rendered; skip it so
	// the client only reloads on genuinely new poll cycles.
	first := true
	c.Stream(func(io.Writer) bool {
		select {
		case ev := <-updates:
			if first {
				first = false
				return ev.Pending
			}
			c.SSEvent("message", ev)
			return ev.Pending
		case <-ctx.Done():
			return false
		}
	})
}

// Receipt handles GET /purchases/:id/receipt by streaming the PDF from the
// backend.
func (h *Handler) Receipt(c *gin.Context) {
	sess := currentSession(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/my-visits")
		return
	}

	body, contentType, err := h.purchases.Receipt(c.Request.Context(), sess.Token, id)
	if err != nil {
		h.sessions.Flash(c.Writer, c.Request,
			domain.UserMessage(err, "No se pudo descargar la boleta"))
		c.Redirect(http.StatusSeeOther, "/my-visits")
		return
	}
	defer body.Close()

	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		log.Printf("Failed to stream receipt %d: %v", id, err)
	}
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "propiedades-frontend",
	})
}

// handleIntentError maps purchase-flow errors to JSON responses.
func handleIntentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated), errors.Is(err, domain.ErrSessionExpired):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Success: false,
			Error:   domain.UserMessage(err, "Debes iniciar sesión"),
			Code:    "UNAUTHORIZED",
		})
	case errors.Is(err, domain.ErrIncompleteHandoff):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Faltan datos requeridos para crear el intent (property_url, property_id o deposit_token)",
			Code:    "INCOMPLETE_HANDOFF",
		})
	default:
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Success: false,
			Error:   domain.UserMessage(err, "No se pudo crear el intento de pago"),
			Code:    "INTENT_ERROR",
		})
	}
}

// queryInt parses an integer query parameter with a fallback.
func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

// pageQuery rebuilds the list query string for the given page.
func pageQuery(filter domain.PropertyFilter, page int) template.URL {
	if page < 1 {
		page = 1
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
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(filter.Limit))
	return template.URL(params.Encode())
}
