package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zedbites/backoffice/models"
	"github.com/zedbites/backoffice/services"
	"github.com/zedbites/backoffice/utils"
	"gorm.io/gorm"
)

const defaultNotificationLimit = 100

type NotificationController struct {
	DB       *gorm.DB
	Notifier services.Notifier
}

func NewNotificationController(db *gorm.DB, notifier services.Notifier) *NotificationController {
	return &NotificationController{DB: db, Notifier: notifier}
}

// GetAllNotifications, newest first. Optional ?source= and ?limit=.
func (nc *NotificationController) GetAllNotifications(c *gin.Context) {
	limit := defaultNotificationLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.RespondError(c, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	q := nc.DB.Order("created_at DESC, id DESC").Limit(limit)
	if source := c.Query("source"); source != "" {
		q = q.Where("source = ?", source)
	}

	var notifs []models.Notification
	if err := q.Find(&notifs).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All notifications", notifs)
}

// CreateNotification stores a manual note and pushes it to connected staff.
func (nc *NotificationController) CreateNotification(c *gin.Context) {
	type reqBody struct {
		Title   string `json:"title"`
		Message string `json:"message" binding:"required"`
	}
	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	nc.Notifier.Notify(c.Request.Context(), "manual", body.Title, body.Message)

	utils.RespondJSON(c, http.StatusCreated, "Notification created", gin.H{
		"title":   body.Title,
		"message": body.Message,
	})
}

func (nc *NotificationController) GetNotificationByID(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("notif_id"))

	var notif models.Notification
	if err := nc.DB.First(&notif, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Notification detail", notif)
}

func (nc *NotificationController) DeleteNotification(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("notif_id"))

	if err := nc.DB.Delete(&models.Notification{}, id).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Notification deleted", gin.H{"notif_id": id})
}
