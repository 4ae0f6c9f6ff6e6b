package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zedbites/backoffice/models"
	"github.com/zedbites/backoffice/utils"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// FinanceController records manual sales and expenses.
type FinanceController struct {
	DB  *gorm.DB
	Loc *time.Location
}

func NewFinanceController(db *gorm.DB, loc *time.Location) *FinanceController {
	if loc == nil {
		loc = time.UTC
	}
	return &FinanceController{DB: db, Loc: loc}
}

// dateRange reads ?from=YYYY-MM-DD&to=YYYY-MM-DD (both inclusive, local
// calendar days) and returns UTC bounds [from, to). Defaults to the last 30 days.
func dateRange(c *gin.Context, loc *time.Location) (time.Time, time.Time, error) {
	now := time.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	from, to := today.AddDate(0, 0, -29), today

	if raw := c.Query("from"); raw != "" {
		t, err := time.ParseInLocation(dateLayout, raw, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date %q", raw)
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.ParseInLocation(dateLayout, raw, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date %q", raw)
		}
		to = t
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("to must not be before from")
	}
	return from.UTC(), to.AddDate(0, 0, 1).UTC(), nil
}

func currentUserID(c *gin.Context) *uint {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uint); ok && id != 0 {
			return &id
		}
	}
	return nil
}

func (fc *FinanceController) ListSales(c *gin.Context) {
	from, to, err := dateRange(c, fc.Loc)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	var sales []models.Sale
	if err := fc.DB.Where("sold_at >= ? AND sold_at < ?", from, to).
		Order("sold_at DESC").Find(&sales).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of sales", sales)
}

func (fc *FinanceController) CreateSale(c *gin.Context) {
	var body struct {
		Description string     `json:"description" binding:"required"`
		Amount      float64    `json:"amount" binding:"required,gt=0"`
		SoldAt      *time.Time `json:"sold_at"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	now := time.Now().UTC()
	sale := models.Sale{
		Description: body.Description,
		Amount:      models.FromCents(models.ToCents(body.Amount)),
		SoldAt:      now,
		CreatedBy:   currentUserID(c),
		CreatedAt:   now,
	}
	if body.SoldAt != nil {
		sale.SoldAt = body.SoldAt.UTC()
	}
	if err := fc.DB.Create(&sale).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Sale recorded", sale)
}

func (fc *FinanceController) DeleteSale(c *gin.Context) {
	fc.deleteEntry(c, &models.Sale{}, "sale_id", "Sale deleted")
}

func (fc *FinanceController) ListExpenses(c *gin.Context) {
	from, to, err := dateRange(c, fc.Loc)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	q := fc.DB.Where("spent_at >= ? AND spent_at < ?", from, to)
	if category := c.Query("category"); category != "" {
		q = q.Where("category = ?", category)
	}
	var expenses []models.Expense
	if err := q.Order("spent_at DESC").Find(&expenses).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of expenses", expenses)
}

func (fc *FinanceController) CreateExpense(c *gin.Context) {
	var body struct {
		Category    string     `json:"category" binding:"required"`
		Description string     `json:"description"`
		Amount      float64    `json:"amount" binding:"required,gt=0"`
		SpentAt     *time.Time `json:"spent_at"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	now := time.Now().UTC()
	expense := models.Expense{
		Category:    body.Category,
		Description: body.Description,
		Amount:      models.FromCents(models.ToCents(body.Amount)),
		SpentAt:     now,
		CreatedBy:   currentUserID(c),
		CreatedAt:   now,
	}
	if body.SpentAt != nil {
		expense.SpentAt = body.SpentAt.UTC()
	}
	if err := fc.DB.Create(&expense).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Expense recorded", expense)
}

func (fc *FinanceController) DeleteExpense(c *gin.Context) {
	fc.deleteEntry(c, &models.Expense{}, "expense_id", "Expense deleted")
}

// Summary nets order revenue and manual sales against expenses for a date range.
func (fc *FinanceController) Summary(c *gin.Context) {
	from, to, err := dateRange(c, fc.Loc)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var orders, sales, expenses float64
	if err := fc.DB.Model(&models.Order{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Select("COALESCE(SUM(total_amount), 0)").Row().Scan(&orders); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if err := fc.DB.Model(&models.Sale{}).
		Where("sold_at >= ? AND sold_at < ?", from, to).
		Select("COALESCE(SUM(amount), 0)").Row().Scan(&sales); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if err := fc.DB.Model(&models.Expense{}).
		Where("spent_at >= ? AND spent_at < ?", from, to).
		Select("COALESCE(SUM(amount), 0)").Row().Scan(&expenses); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	incomeCents := models.ToCents(orders) + models.ToCents(sales)
	netCents := incomeCents - models.ToCents(expenses)
	utils.RespondJSON(c, http.StatusOK, "Finance summary", gin.H{
		"from":          from.In(fc.Loc).Format(dateLayout),
		"to":            to.Add(-time.Second).In(fc.Loc).Format(dateLayout),
		"order_revenue": orders,
		"manual_sales":  sales,
		"income":        models.FromCents(incomeCents),
		"expenses":      expenses,
		"net":           models.FromCents(netCents),
		"display_net":   utils.FormatCurrency(models.FromCents(netCents)),
	})
}

func (fc *FinanceController) deleteEntry(c *gin.Context, model interface{}, param, message string) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid %s", param))
		return
	}
	res := fc.DB.Delete(model, id)
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, gorm.ErrRecordNotFound)
		return
	}
	utils.RespondJSON(c, http.StatusOK, message, gin.H{param: id})
}
