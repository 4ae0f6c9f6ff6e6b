package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zedbites/backoffice/services"
	"github.com/zedbites/backoffice/utils"
)

// DeliveryController relays the driver's device to the delivery trackers.
type DeliveryController struct {
	Trackers *services.TrackerRegistry
}

func NewDeliveryController(trackers *services.TrackerRegistry) *DeliveryController {
	return &DeliveryController{Trackers: trackers}
}

func deliveryErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrTrackingNotStarted),
		errors.Is(err, services.ErrNotInDelivery):
		return http.StatusConflict
	case errors.Is(err, services.ErrPositionBufferFull):
		return http.StatusTooManyRequests
	case errors.Is(err, services.ErrNoPositionSource),
		errors.Is(err, services.ErrWatchAlreadyActive):
		return http.StatusServiceUnavailable
	}
	return orderErrorStatus(err)
}

func (dc *DeliveryController) StartTracking(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}
	if err := dc.Trackers.Start(c.Request.Context(), id); err != nil {
		utils.RespondError(c, deliveryErrorStatus(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Tracking started", gin.H{"order_id": id, "tracking": true})
}

// PushPosition accepts one geolocation fix from the driver's device.
func (dc *DeliveryController) PushPosition(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}
	var body struct {
		Lat      *float64 `json:"lat" binding:"required,gte=-90,lte=90"`
		Lng      *float64 `json:"lng" binding:"required,gte=-180,lte=180"`
		Accuracy float64  `json:"accuracy"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	pos := services.Position{Lat: *body.Lat, Lng: *body.Lng, Accuracy: body.Accuracy}
	if err := dc.Trackers.Push(id, pos); err != nil {
		utils.RespondError(c, deliveryErrorStatus(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusAccepted, "Position accepted", nil)
}

// ReportError forwards a device-side geolocation failure to the tracker.
func (dc *DeliveryController) ReportError(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}
	var body struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := dc.Trackers.Fail(id, errors.New(body.Message)); err != nil {
		utils.RespondError(c, deliveryErrorStatus(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Tracking error recorded", nil)
}

func (dc *DeliveryController) StopTracking(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}
	dc.Trackers.Stop(id)
	utils.RespondJSON(c, http.StatusOK, "Tracking stopped", gin.H{"order_id": id, "tracking": false})
}

func (dc *DeliveryController) MarkDelivered(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}
	order, err := dc.Trackers.MarkDelivered(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, deliveryErrorStatus(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order delivered", order)
}
