package http_api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// SubscriptionResponse represents a user's subscription status
type SubscriptionResponse struct {
	Subscribed bool   `json:"subscribed"`
	Status     string `json:"status"`
}

// PoolResponse represents the current state of the account pool
type PoolResponse struct {
	Accounts        int `json:"accounts"`
	PendingInvoices int `json:"pending_invoices"`
}

// health is a liveness probe.
func (s *HTTPServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// isSubscribed reports whether the given user has an active subscription.
func (s *HTTPServer) isSubscribed(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "user_id must be a positive integer",
		})
		return
	}

	active, label := s.ledger.Status(userID)
	c.JSON(http.StatusOK, SubscriptionResponse{
		Subscribed: active,
		Status:     label,
	})
}

// poolStatus exposes the live account count and tracked invoices.
func (s *HTTPServer) poolStatus(c *gin.Context) {
	c.JSON(http.StatusOK, PoolResponse{
		Accounts:        s.pool.Size(),
		PendingInvoices: s.reconciler.PendingCount(),
	})
}
