package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"intihelp/internal/authz"
	"intihelp/internal/handlers"
	"intihelp/internal/middleware"
	"intihelp/internal/services"
)

func SetupRoutes(
	r *gin.Engine,
	auth services.AuthService,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	catalogHandler *handlers.CatalogHandler,
	taskHandler *handlers.TaskHandler,
	assistantHandler *handlers.AssistantHandler,
	paymentHandler *handlers.PaymentHandler,
	couponHandler *handlers.CouponHandler,
	fileHandler *handlers.FileHandler,
	integrationsHandler *handlers.IntegrationsHandler, // nil when the bot is not configured
) *gin.Engine {

	// ---- public
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()}) })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)
	r.POST("/refresh", authHandler.Refresh)
	r.POST("/password/forgot", authHandler.ForgotPassword)
	r.POST("/password/reset", authHandler.ResetPassword)

	catalog := r.Group("/catalog")
	{
		catalog.GET("/task-types", catalogHandler.TaskTypes)
		catalog.GET("/careers", catalogHandler.Careers)
		catalog.GET("/universities", catalogHandler.Universities)
	}

	if integrationsHandler != nil {
		r.POST("/telegram/webhook", integrationsHandler.Webhook)
	}

	// ---- protected
	r.Use(middleware.AuthMiddleware(auth))

	r.POST("/logout", authHandler.Logout)

	me := r.Group("/me")
	{
		me.GET("", userHandler.Me)
		me.PUT("", userHandler.UpdateMe)
		me.POST("/password", userHandler.ChangePassword)
		me.PUT("/photo", fileHandler.SetProfilePicture)
		me.DELETE("/photo", fileHandler.RemoveProfilePicture)
		if integrationsHandler != nil {
			me.POST("/telegram", integrationsHandler.RequestTelegramLink)
		}
	}

	// TASKS
	tasks := r.Group("/tasks")
	{
		tasks.GET("", taskHandler.List)
		tasks.GET("/:id", taskHandler.Get)
		tasks.POST("/quotes", middleware.RequireRoles(authz.RoleStudent), taskHandler.Quotes)
		tasks.POST("", middleware.RequireRoles(authz.RoleStudent), taskHandler.Create)

		// role checks for transitions live in the transition table
		tasks.POST("/:id/status", taskHandler.ChangeStatus)
		tasks.POST("/:id/accept", taskHandler.Accept)
		tasks.POST("/:id/reject", taskHandler.Reject)
		tasks.POST("/:id/start", taskHandler.Start)
		tasks.POST("/:id/cancel", taskHandler.Cancel)
		tasks.POST("/:id/approve", taskHandler.Approve)
		tasks.POST("/:id/dispute", taskHandler.Dispute)
		tasks.POST("/:id/rate", taskHandler.Rate)
		tasks.POST("/:id/progress", taskHandler.SendProgress)
		tasks.POST("/:id/deliver", taskHandler.Deliver)
		tasks.POST("/:id/resolve", middleware.RequireRoles(authz.RoleAdmin), taskHandler.Resolve)
		tasks.POST("/:id/payout", middleware.RequireRoles(authz.RoleAdmin), taskHandler.Payout)
	}

	// ASSISTANT SERVICES
	svc := r.Group("/services", middleware.RequireRoles(authz.RoleAssistant))
	{
		svc.GET("/:taskTypeID/pricing", assistantHandler.GetPricing)
		svc.PUT("/:taskTypeID/pricing", assistantHandler.SavePricing)
	}
	r.GET("/dashboard/assistant", middleware.RequireRoles(authz.RoleAssistant), assistantHandler.Dashboard)

	// PAYMENTS
	payments := r.Group("/payments")
	{
		payments.POST("", paymentHandler.Submit)
		payments.GET("", paymentHandler.List)
		payments.GET("/:id/receipt", paymentHandler.Receipt)
		payments.POST("/:id/verify", middleware.RequireRoles(authz.RoleAdmin), paymentHandler.Verify)
		payments.POST("/:id/reject", middleware.RequireRoles(authz.RoleAdmin), paymentHandler.Reject)
	}
	r.GET("/groups/:id", paymentHandler.Group)

	// COUPONS
	coupons := r.Group("/coupons")
	{
		coupons.POST("/validate", couponHandler.Validate)
		coupons.POST("", middleware.RequireRoles(authz.RoleAdmin), couponHandler.Create)
		coupons.DELETE("/:code", middleware.RequireRoles(authz.RoleAdmin), couponHandler.Deactivate)
	}

	// FILES
	files := r.Group("/files")
	{
		files.POST("", fileHandler.Upload)
		files.GET("/:id", fileHandler.Get)
	}

	return r
}
