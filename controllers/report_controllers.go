package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zedbites/backoffice/models"
	"github.com/zedbites/backoffice/services"
	"github.com/zedbites/backoffice/utils"
	"gorm.io/gorm"
)

// ReportController serves report previews and file exports.
type ReportController struct {
	DB      *gorm.DB
	Metrics services.MetricsProvider
	Loc     *time.Location
}

func NewReportController(db *gorm.DB, metrics services.MetricsProvider, loc *time.Location) *ReportController {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportController{DB: db, Metrics: metrics, Loc: loc}
}

// reportDay reads ?date=YYYY-MM-DD, defaulting to today.
func (rc *ReportController) reportDay(c *gin.Context) (time.Time, error) {
	raw := c.Query("date")
	if raw == "" {
		return time.Now(), nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, rc.Loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return t, nil
}

// Preview returns the snapshot a report would be sent with, without sending it.
func (rc *ReportController) Preview(c *gin.Context) {
	day, err := rc.reportDay(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var snapshot interface{}
	switch models.ReportType(c.Param("report_type")) {
	case models.ReportDaily:
		snapshot, err = rc.Metrics.Daily(c.Request.Context(), day)
	case models.ReportWeekly:
		snapshot, err = rc.Metrics.Weekly(c.Request.Context(), day)
	default:
		utils.RespondError(c, http.StatusNotFound, services.ErrUnknownReportType)
		return
	}
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Report preview", snapshot)
}

func (rc *ReportController) DailyPDF(c *gin.Context) {
	day, err := rc.reportDay(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	snapshot, err := rc.Metrics.Daily(c.Request.Context(), day)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var buf bytes.Buffer
	if err := services.WriteDailyPDF(&buf, snapshot, time.Now(), rc.Loc); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="daily-report-%s.pdf"`, snapshot.Date))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (rc *ReportController) SalesXLSX(c *gin.Context) {
	from, to, err := dateRange(c, rc.Loc)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	var sales []models.Sale
	if err := rc.DB.Where("sold_at >= ? AND sold_at < ?", from, to).
		Order("sold_at ASC").Find(&sales).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var buf bytes.Buffer
	if err := services.WriteSalesXLSX(&buf, sales, rc.Loc); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="sales-%s.xlsx"`, from.In(rc.Loc).Format(dateLayout)))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
