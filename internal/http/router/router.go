package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/crowdfunding-backend/internal/config"
	"github.com/ignatzorin/crowdfunding-backend/internal/http/handlers"
	"github.com/ignatzorin/crowdfunding-backend/internal/http/middleware"
	"github.com/ignatzorin/crowdfunding-backend/internal/metrics"
	"github.com/ignatzorin/crowdfunding-backend/internal/models"
)

// Handlers все HTTP обработчики приложения.
type Handlers struct {
	Health       *handlers.HealthHandler
	Payment      *handlers.PaymentHandler
	Donation     *handlers.DonationHandler
	Wallet       *handlers.WalletHandler
	Campaign     *handlers.CampaignHandler
	Withdrawal   *handlers.WithdrawalHandler
	Notification *handlers.NotificationHandler
	WS           *handlers.WSHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokens middleware.TokenParser, limitStore limiter.Store) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	rateLimit := middleware.RateLimitMiddleware(limitStore, cfg.RateLimitLimit, cfg.RateLimitPeriod)

	api.POST("/payments/callback", rateLimit, h.Payment.Callback)
	api.GET("/campaigns/:id/donations", middleware.UUIDValidator("id"), h.Donation.ListSupporters)
	api.GET("/ws", h.WS.Handle)

	auth := api.Group("")
	auth.Use(middleware.AuthMiddleware(tokens))
	{
		auth.POST("/donations", rateLimit, h.Donation.Create)
		auth.GET("/donations/my", h.Donation.ListMine)
		auth.GET("/donations/:id", middleware.UUIDValidator("id"), h.Donation.Get)

		auth.GET("/wallet", h.Wallet.Wallet)
		auth.GET("/wallet/ledger", h.Wallet.Ledger)

		auth.POST("/campaigns/:id/withdrawals", middleware.UUIDValidator("id"), h.Withdrawal.Create)
		auth.GET("/campaigns/:id/withdrawals", middleware.UUIDValidator("id"), h.Withdrawal.ListByCampaign)
		auth.POST("/campaigns/:id/changes", middleware.UUIDValidator("id"), h.Campaign.SubmitChanges)

		auth.GET("/notifications", h.Notification.ListNotifications)
		auth.GET("/notifications/unread/count", h.Notification.CountUnread)
		auth.PUT("/notifications/read-all", h.Notification.MarkAllAsRead)
		auth.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), h.Notification.MarkAsRead)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokens), middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/master-account", h.Wallet.MasterAccount)
		admin.PUT("/donations/:id/status", middleware.UUIDValidator("id"), h.Donation.OverrideStatus)

		campaigns := admin.Group("/campaigns/:id", middleware.UUIDValidator("id"))
		campaigns.POST("/approve", h.Campaign.Approve)
		campaigns.POST("/reject", h.Campaign.Reject)
		campaigns.POST("/recompute", h.Campaign.Recompute)
		campaigns.POST("/changes/approve", h.Campaign.ApproveChanges)
		campaigns.POST("/changes/reject", h.Campaign.RejectChanges)

		withdrawals := admin.Group("/withdrawals/:id", middleware.UUIDValidator("id"))
		withdrawals.POST("/approve", h.Withdrawal.Approve)
		withdrawals.POST("/reject", h.Withdrawal.Reject)
		withdrawals.POST("/complete", h.Withdrawal.Complete)
	}

	return r
}
