package api

import (
	"net/http"

	"TG_rewards_bot/internal/ledger"
	"TG_rewards_bot/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter builds the HTTP surface: a keep-alive page for uptime probes and
// a token-guarded admin API over the ledger's read path.
func NewRouter(l *ledger.Ledger, hub *EventHub, adminToken string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Bot is running successfully!")
	})
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	a := router.Group("/api/v1")
	NewAdminRoutes(a, l, hub, adminToken)

	return router
}

type adminRoutes struct {
	ledger *ledger.Ledger
	hub    *EventHub
}

func NewAdminRoutes(handler *gin.RouterGroup, l *ledger.Ledger, hub *EventHub, adminToken string) {
	r := &adminRoutes{ledger: l, hub: hub}
	h := handler.Group("/admin")
	h.Use(adminAuth(adminToken))
	{
		h.GET("/stats", r.GetStats)
		h.GET("/leaderboard", r.GetLeaderboard)
		h.GET("/withdraws", r.GetPendingWithdrawals)
		h.GET("/events", r.StreamEvents)
	}
}

// adminAuth guards the admin API with a shared-secret header. An empty
// configured token disables the whole group.
func adminAuth(adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminToken == "" || c.GetHeader("X-Admin-Token") != adminToken {
			logger.Logger().Info("unauthorized access attempt to admin endpoint",
				zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (r *adminRoutes) GetStats(c *gin.Context) {
	s := r.ledger.Stats()
	c.JSON(http.StatusOK, gin.H{
		"total_users":       s.TotalUsers,
		"active_users":      s.ActiveUsers,
		"blocked_users":     s.BlockedUsers,
		"total_points":      s.TotalPoints,
		"total_referrals":   s.TotalReferrals,
		"pending_withdraws": s.PendingWithdraws,
	})
}

func (r *adminRoutes) GetLeaderboard(c *gin.Context) {
	users := r.ledger.Leaderboard(0)

	response := make([]gin.H, 0, len(users))
	for _, u := range users {
		response = append(response, gin.H{
			"user_id":   u.ID,
			"username":  u.Username,
			"points":    u.Points,
			"referrals": u.ReferralCount,
		})
	}
	c.JSON(http.StatusOK, response)
}

func (r *adminRoutes) GetPendingWithdrawals(c *gin.Context) {
	c.JSON(http.StatusOK, r.ledger.PendingWithdrawals())
}

func (r *adminRoutes) StreamEvents(c *gin.Context) {
	r.hub.Serve(c.Writer, c.Request)
}
