package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zedbites/backoffice/models"
	"github.com/zedbites/backoffice/services"
	"github.com/zedbites/backoffice/utils"
)

type OrderController struct {
	Sync *services.OrderSync
}

func NewOrderController(sync *services.OrderSync) *OrderController {
	return &OrderController{Sync: sync}
}

// orderErrorStatus maps order service errors to HTTP status codes.
func orderErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, services.ErrUnknownStatus),
		errors.Is(err, services.ErrInvalidOrder),
		errors.Is(err, services.ErrInvalidLocation):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func parseOrderID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("order_id"), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid order_id %q", c.Param("order_id")))
		return 0, false
	}
	return uint(id), true
}

// GetAllOrders -> local order view, newest first
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "List of orders", oc.Sync.Orders())
}

// GetBoard -> orders grouped by status tab
func (oc *OrderController) GetBoard(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Order board", oc.Sync.Board())
}

// Refresh forces a full reload from the store.
func (oc *OrderController) Refresh(c *gin.Context) {
	orders, err := oc.Sync.FetchAll(c.Request.Context())
	if err != nil {
		utils.RespondError(c, http.StatusServiceUnavailable, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Orders reloaded", orders)
}

func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}
	order, found := oc.Sync.Order(id)
	if !found {
		utils.RespondError(c, http.StatusNotFound, services.ErrOrderNotFound)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

func (oc *OrderController) CreateOrder(c *gin.Context) {
	var body services.CreateOrderInput
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Sync.CreateOrder(c.Request.Context(), body)
	if err != nil {
		utils.RespondError(c, orderErrorStatus(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// AdvanceOrder -> move to the next status
func (oc *OrderController) AdvanceOrder(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}
	order, err := oc.Sync.Advance(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, orderErrorStatus(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, fmt.Sprintf("Order is %s", order.Status), order)
}

func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}
	var body struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Sync.UpdateStatus(c.Request.Context(), id, body.Status)
	if err != nil {
		utils.RespondError(c, orderErrorStatus(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, fmt.Sprintf("Order is %s", order.Status), order)
}

func (oc *OrderController) UpdateLocation(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}
	var body struct {
		Lat *float64 `json:"lat" binding:"required"`
		Lng *float64 `json:"lng" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Sync.UpdateLocation(c.Request.Context(), id, models.Location{Lat: *body.Lat, Lng: *body.Lng})
	if err != nil {
		utils.RespondError(c, orderErrorStatus(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Location updated", order)
}
