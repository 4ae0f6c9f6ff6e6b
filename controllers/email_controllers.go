package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zedbites/backoffice/models"
	"github.com/zedbites/backoffice/services"
	"github.com/zedbites/backoffice/utils"
)

// EmailController serves recipient management, the send log and manual report
// triggers. Errors use the bare {"error": "..."} body.
type EmailController struct {
	Store services.EmailStore
	Jobs  services.Jobs
}

func NewEmailController(store services.EmailStore, jobs services.Jobs) *EmailController {
	RegisterValidators()
	return &EmailController{Store: store, Jobs: jobs}
}

func recipientErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrDuplicateRecipient):
		return http.StatusConflict
	case errors.Is(err, services.ErrRecipientNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidRecipient),
		errors.Is(err, services.ErrUnknownReportType):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (ec *EmailController) GetRecipients(c *gin.Context) {
	recipients, err := ec.Store.ListRecipients(c.Request.Context())
	if err != nil {
		utils.RespondAPIError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, recipients)
}

func (ec *EmailController) CreateRecipient(c *gin.Context) {
	var body struct {
		ReportType models.ReportType `json:"report_type" binding:"required,reporttype"`
		Email      string            `json:"email" binding:"required,email"`
		Name       *string           `json:"name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondAPIError(c, http.StatusBadRequest, err)
		return
	}

	recipient, err := ec.Store.AddRecipient(c.Request.Context(), body.ReportType, body.Email, body.Name)
	if err != nil {
		utils.RespondAPIError(c, recipientErrorStatus(err), err)
		return
	}
	utils.InfoLogger.WithField("email", recipient.Email).Infof("recipient added to %s report", recipient.ReportType)
	c.JSON(http.StatusCreated, recipient)
}

func (ec *EmailController) UpdateRecipient(c *gin.Context) {
	var body struct {
		ID         uint               `json:"id" binding:"required"`
		ReportType *models.ReportType `json:"report_type" binding:"omitempty,reporttype"`
		Email      *string            `json:"email" binding:"omitempty,email"`
		Name       *string            `json:"name"`
		IsActive   *bool              `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondAPIError(c, http.StatusBadRequest, err)
		return
	}

	recipient, err := ec.Store.UpdateRecipient(c.Request.Context(), body.ID, services.RecipientUpdate{
		ReportType: body.ReportType,
		Email:      body.Email,
		Name:       body.Name,
		IsActive:   body.IsActive,
	})
	if err != nil {
		utils.RespondAPIError(c, recipientErrorStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, recipient)
}

func (ec *EmailController) DeleteRecipient(c *gin.Context) {
	var body struct {
		ID uint `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondAPIError(c, http.StatusBadRequest, err)
		return
	}

	if err := ec.Store.DeleteRecipient(c.Request.Context(), body.ID); err != nil {
		utils.RespondAPIError(c, recipientErrorStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetLogs -> newest first, ?limit=N (default 50, max 500)
func (ec *EmailController) GetLogs(c *gin.Context) {
	limit := services.DefaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > services.MaxLogLimit {
			utils.RespondAPIError(c, http.StatusBadRequest,
				fmt.Errorf("limit must be an integer between 1 and %d", services.MaxLogLimit))
			return
		}
		limit = n
	}

	logs, err := ec.Store.ListLogs(c.Request.Context(), limit)
	if err != nil {
		utils.RespondAPIError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (ec *EmailController) TestDaily(c *gin.Context) {
	ec.runReport(c, models.ReportDaily, services.Trigger{Manual: true})
}

func (ec *EmailController) TestWeekly(c *gin.Context) {
	ec.runReport(c, models.ReportWeekly, services.Trigger{Manual: true})
}

// TriggerReport is the job entry point for /reports/:type. The body is
// {"scheduled": true} or {"manual": true}; an empty body is accepted.
func (ec *EmailController) TriggerReport(c *gin.Context) {
	reportType := models.ReportType(c.Param("report_type"))
	if !reportType.Valid() {
		utils.RespondAPIError(c, http.StatusNotFound, fmt.Errorf("%w: %q", services.ErrUnknownReportType, reportType))
		return
	}

	var trigger services.Trigger
	if err := c.ShouldBindJSON(&trigger); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondAPIError(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	ec.runReport(c, reportType, trigger)
}

func (ec *EmailController) runReport(c *gin.Context, reportType models.ReportType, trigger services.Trigger) {
	result, err := ec.Jobs.Run(c.Request.Context(), reportType, trigger)
	if err != nil {
		utils.ErrorLogger.WithError(err).WithField("report", reportType).Error("report job failed")
		utils.RespondAPIError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": result.Message,
		"sent":    result.Sent,
		"failed":  result.Failed,
		"total":   result.Total,
		"data":    result.Snapshot,
	})
}
