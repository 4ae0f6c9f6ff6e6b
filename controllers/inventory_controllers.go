package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zedbites/backoffice/models"
	"github.com/zedbites/backoffice/services"
	"github.com/zedbites/backoffice/utils"
	"gorm.io/gorm"
)

type InventoryController struct {
	DB       *gorm.DB
	Notifier services.Notifier
}

func NewInventoryController(db *gorm.DB, notifier services.Notifier) *InventoryController {
	return &InventoryController{DB: db, Notifier: notifier}
}

type inventoryRequest struct {
	Name         string   `json:"name" binding:"required"`
	Unit         string   `json:"unit" binding:"required"`
	Quantity     *float64 `json:"quantity" binding:"required,gte=0"`
	ReorderLevel float64  `json:"reorder_level" binding:"gte=0"`
	UnitCost     float64  `json:"unit_cost" binding:"gte=0"`
}

// GetAllItems
func (ic *InventoryController) GetAllItems(c *gin.Context) {
	var items []models.InventoryItem
	if err := ic.DB.Order("name ASC").Find(&items).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of inventory items", items)
}

// GetLowStock -> items at or below their reorder level
func (ic *InventoryController) GetLowStock(c *gin.Context) {
	var items []models.InventoryItem
	if err := ic.DB.Where("quantity <= reorder_level").Order("name ASC").Find(&items).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Low stock items", items)
}

func (ic *InventoryController) CreateItem(c *gin.Context) {
	var body inventoryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	now := time.Now().UTC()
	item := models.InventoryItem{
		Name:         body.Name,
		Unit:         body.Unit,
		Quantity:     *body.Quantity,
		ReorderLevel: body.ReorderLevel,
		UnitCost:     body.UnitCost,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := ic.DB.Create(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.RespondError(c, http.StatusConflict, errors.New("an inventory item with this name already exists"))
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Inventory item created", item)
}

func (ic *InventoryController) UpdateItem(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("item_id"))

	var item models.InventoryItem
	if err := ic.DB.First(&item, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var body inventoryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	wasLow := item.IsLowStock()
	item.Name = body.Name
	item.Unit = body.Unit
	item.Quantity = *body.Quantity
	item.ReorderLevel = body.ReorderLevel
	item.UnitCost = body.UnitCost
	item.UpdatedAt = time.Now().UTC()

	if err := ic.DB.Save(&item).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	if !wasLow && item.IsLowStock() && ic.Notifier != nil {
		ic.Notifier.Notify(c.Request.Context(), "inventory", "Low stock",
			item.Name+" is at or below its reorder level")
	}
	utils.RespondJSON(c, http.StatusOK, "Inventory item updated", item)
}

func (ic *InventoryController) DeleteItem(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("item_id"))

	var used int64
	ic.DB.Model(&models.RecipeIngredient{}).Where("inventory_item_id = ?", id).Count(&used)
	if used > 0 {
		utils.RespondError(c, http.StatusConflict, errors.New("item is used by a recipe"))
		return
	}

	res := ic.DB.Delete(&models.InventoryItem{}, id)
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, gorm.ErrRecordNotFound)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Inventory item deleted", gin.H{"item_id": id})
}
