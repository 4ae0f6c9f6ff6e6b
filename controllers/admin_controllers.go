package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zedbites/backoffice/models"
	"github.com/zedbites/backoffice/services"
	"github.com/zedbites/backoffice/utils"
)

const recentOrderCount = 10

type AdminController struct {
	Sync    *services.OrderSync
	Metrics services.MetricsProvider
	Clients func() int
}

func NewAdminController(sync *services.OrderSync, metrics services.MetricsProvider, clients func() int) *AdminController {
	return &AdminController{Sync: sync, Metrics: metrics, Clients: clients}
}

type dashboardStats struct {
	Today           *services.DailyMetrics     `json:"today"`
	OrderStats      map[models.OrderStatus]int `json:"order_stats"`
	ActiveOrders    int                        `json:"active_orders"`
	RecentOrders    []services.OrderView       `json:"recent_orders"`
	RealtimeClients int                        `json:"realtime_clients"`
}

// GetDashboardStats combines today's metrics with the live order list.
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	today, err := ac.Metrics.Daily(c.Request.Context(), time.Now())
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	stats := dashboardStats{
		Today:      today,
		OrderStats: make(map[models.OrderStatus]int, len(models.OrderStatuses)),
	}
	for status, views := range ac.Sync.Board() {
		stats.OrderStats[status] = len(views)
		if !status.IsTerminal() {
			stats.ActiveOrders += len(views)
		}
	}

	orders := ac.Sync.Orders()
	if len(orders) > recentOrderCount {
		orders = orders[:recentOrderCount]
	}
	stats.RecentOrders = orders

	if ac.Clients != nil {
		stats.RealtimeClients = ac.Clients()
	}

	utils.RespondJSON(c, http.StatusOK, "Dashboard stats retrieved successfully", stats)
}
