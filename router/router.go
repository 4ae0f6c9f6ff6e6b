package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zedbites/backoffice/controllers"
	"github.com/zedbites/backoffice/middlewares"
	"github.com/zedbites/backoffice/models"
	"github.com/zedbites/backoffice/realtime"
	"github.com/zedbites/backoffice/services"
	"github.com/zedbites/backoffice/utils"
	"gorm.io/gorm"
)

// Deps carries everything the HTTP layer talks to.
type Deps struct {
	DB         *gorm.DB
	Tokens     *utils.TokenManager
	Hub        *realtime.Hub
	Notifier   services.Notifier
	Sync       *services.OrderSync
	Trackers   *services.TrackerRegistry
	Metrics    services.MetricsProvider
	Emails     services.EmailStore
	Jobs       services.Jobs
	Loc        *time.Location
	CORSOrigin string

	// APIRateLimit is requests per minute per client on /admin and /email; 0 disables.
	APIRateLimit int
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.CORSOrigin))
	r.Use(middlewares.LoggerMiddleware())

	userCtrl := controllers.NewUserController(d.DB, d.Tokens)
	orderCtrl := controllers.NewOrderController(d.Sync)
	deliveryCtrl := controllers.NewDeliveryController(d.Trackers)
	inventoryCtrl := controllers.NewInventoryController(d.DB, d.Notifier)
	recipeCtrl := controllers.NewRecipeController(d.DB)
	financeCtrl := controllers.NewFinanceController(d.DB, d.Loc)
	notificationCtrl := controllers.NewNotificationController(d.DB, d.Notifier)
	reportCtrl := controllers.NewReportController(d.DB, d.Metrics, d.Loc)
	emailCtrl := controllers.NewEmailController(d.Emails, d.Jobs)
	realtimeCtrl := controllers.NewRealtimeController(d.Hub)
	adminCtrl := controllers.NewAdminController(d.Sync, d.Metrics, d.Hub.ClientCount)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/login", userCtrl.Login)
	}

	// WebSocket for the order board and driver apps
	ws := r.Group("/ws")
	ws.Use(middlewares.WebSocketAuthMiddleware(d.Tokens))
	{
		ws.GET("", realtimeCtrl.Board)
	}

	limited := []gin.HandlerFunc{middlewares.AuthMiddleware(d.Tokens)}
	if d.APIRateLimit > 0 {
		limited = append(limited, middlewares.NewRateLimiter(d.APIRateLimit, time.Minute).RateLimit())
	}

	// ----------------------------------------------------------------
	//                      EMAIL MANAGEMENT API
	// ----------------------------------------------------------------
	email := r.Group("/email", limited...)
	email.Use(middlewares.RequireRole(models.RoleAdmin))
	{
		email.GET("/recipients", emailCtrl.GetRecipients)
		email.POST("/recipients", emailCtrl.CreateRecipient)
		email.PUT("/recipients", emailCtrl.UpdateRecipient)
		email.DELETE("/recipients", emailCtrl.DeleteRecipient)
		email.GET("/logs", emailCtrl.GetLogs)
		email.POST("/test-daily", emailCtrl.TestDaily)
		email.POST("/test-weekly", emailCtrl.TestWeekly)
	}

	reports := r.Group("/reports", limited...)
	reports.Use(middlewares.RequireRole(models.RoleAdmin))
	{
		reports.POST("/:report_type", emailCtrl.TriggerReport)
	}

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/admin", limited...)

	auth.GET("/profile", userCtrl.GetProfile)
	auth.GET("/dashboard/stats", middlewares.RequireRole(models.RoleStaff), adminCtrl.GetDashboardStats)

	// ORDERS
	orders := auth.Group("/orders")
	orders.Use(middlewares.RequireRole(models.RoleStaff, models.RoleDriver))
	{
		orders.GET("", orderCtrl.GetAllOrders)
		orders.GET("/board", orderCtrl.GetBoard)
		orders.POST("/refresh", orderCtrl.Refresh)
		orders.GET("/:order_id", orderCtrl.GetOrderByID)
		orders.POST("", middlewares.RequireRole(models.RoleStaff), orderCtrl.CreateOrder)
		orders.POST("/:order_id/advance", orderCtrl.AdvanceOrder)
		orders.PATCH("/:order_id/status", orderCtrl.UpdateOrderStatus)
		orders.PATCH("/:order_id/location", orderCtrl.UpdateLocation)
	}

	// DELIVERIES (driver devices)
	deliveries := auth.Group("/deliveries/:order_id")
	deliveries.Use(middlewares.RequireRole(models.RoleDriver))
	{
		deliveries.POST("/start", deliveryCtrl.StartTracking)
		deliveries.POST("/position", deliveryCtrl.PushPosition)
		deliveries.POST("/error", deliveryCtrl.ReportError)
		deliveries.POST("/stop", deliveryCtrl.StopTracking)
		deliveries.POST("/delivered", deliveryCtrl.MarkDelivered)
	}

	staff := auth.Group("")
	staff.Use(middlewares.RequireRole(models.RoleStaff))

	// INVENTORY
	staff.GET("/inventory", inventoryCtrl.GetAllItems)
	staff.GET("/inventory/low-stock", inventoryCtrl.GetLowStock)
	staff.POST("/inventory", inventoryCtrl.CreateItem)
	staff.PUT("/inventory/:item_id", inventoryCtrl.UpdateItem)
	staff.DELETE("/inventory/:item_id", inventoryCtrl.DeleteItem)

	// RECIPES
	staff.GET("/recipes", recipeCtrl.GetAllRecipes)
	staff.GET("/recipes/:recipe_id", recipeCtrl.GetRecipeByID)
	staff.POST("/recipes", recipeCtrl.CreateRecipe)
	staff.PUT("/recipes/:recipe_id", recipeCtrl.UpdateRecipe)
	staff.DELETE("/recipes/:recipe_id", recipeCtrl.DeleteRecipe)

	// FINANCE
	staff.GET("/sales", financeCtrl.ListSales)
	staff.POST("/sales", financeCtrl.CreateSale)
	staff.DELETE("/sales/:sale_id", financeCtrl.DeleteSale)
	staff.GET("/expenses", financeCtrl.ListExpenses)
	staff.POST("/expenses", financeCtrl.CreateExpense)
	staff.DELETE("/expenses/:expense_id", financeCtrl.DeleteExpense)
	staff.GET("/finance/summary", financeCtrl.Summary)

	// NOTIFICATIONS
	staff.GET("/notifications", notificationCtrl.GetAllNotifications)
	staff.POST("/notifications", notificationCtrl.CreateNotification)
	staff.GET("/notifications/:notif_id", notificationCtrl.GetNotificationByID)
	staff.DELETE("/notifications/:notif_id", notificationCtrl.DeleteNotification)

	// REPORTS
	staff.GET("/reports/preview/:report_type", reportCtrl.Preview)
	staff.GET("/reports/daily.pdf", reportCtrl.DailyPDF)
	staff.GET("/reports/sales.xlsx", reportCtrl.SalesXLSX)

	// USERS (admin only)
	users := auth.Group("/users")
	users.Use(middlewares.RequireRole(models.RoleAdmin))
	{
		users.GET("", userCtrl.GetAllUsers)
		users.POST("", userCtrl.Register)
		users.DELETE("/:user_id", userCtrl.DeleteUser)
	}

	return r
}
