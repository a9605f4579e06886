package web

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/g11-iic2173/frontend-iic2173-g11/internal/session"
)

// SetupRouter configures the Gin router with all routes and middleware.
func SetupRouter(handler *Handler, sessions *session.Manager, ginMode string) *gin.Engine {
	// Set Gin mode
	gin.SetMode(ginMode)

	// Create router with default middleware (logger and recovery)
	router := gin.New()
	router.SetHTMLTemplate(loadTemplates())

	// Apply middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(SessionMiddleware(sessions))

	// Operational endpoints (no auth required)
	router.GET("/health", handler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth
	router.GET("/login", handler.LoginPage)
	router.POST("/login", handler.Login)
	router.GET("/signup", handler.SignupPage)
	router.POST("/signup", handler.Signup)
	router.POST("/logout", handler.Logout)

	// The gateway redirects the user's browser here; the view itself decides
	// between commit and cancellation, so no session redirect may interfere.
	router.GET("/purchase-completed", handler.PurchaseCompleted)
	router.GET("/completed-purchase", handler.PurchaseCompleted)

	// Authenticated views
	authed := router.Group("/", RequireSession())
	{
		authed.GET("/", handler.Properties)
		authed.GET("/properties/:id", handler.PropertyDetail)
		authed.POST("/wallet/recharge", handler.Recharge)
		authed.POST("/purchases", handler.CreatePurchase)
		authed.GET("/confirm-purchase", handler.ConfirmPurchase)
		authed.POST("/purchases/create-intent", handler.CreateIntent)
		authed.GET("/my-visits", handler.MyVisits)
		authed.GET("/my-visits/events", handler.VisitEvents)
		authed.GET("/my-visits/:id", handler.VisitDetail)
		authed.GET("/purchases/:id/receipt", handler.Receipt)
	}

	return router
}
