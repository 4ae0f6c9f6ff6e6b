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

type RecipeController struct {
	DB *gorm.DB
}

func NewRecipeController(db *gorm.DB) *RecipeController {
	return &RecipeController{DB: db}
}

type ingredientRequest struct {
	InventoryItemID uint    `json:"inventory_item_id" binding:"required"`
	Quantity        float64 `json:"quantity" binding:"required,gt=0"`
}

type recipeRequest struct {
	Name        string              `json:"name" binding:"required"`
	Category    string              `json:"category"`
	Description string              `json:"description"`
	Price       float64             `json:"price" binding:"gte=0"`
	IsActive    *bool               `json:"is_active"`
	Ingredients []ingredientRequest `json:"ingredients" binding:"dive"`
}

func (r recipeRequest) ingredients() []models.RecipeIngredient {
	out := make([]models.RecipeIngredient, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		out = append(out, models.RecipeIngredient{InventoryItemID: ing.InventoryItemID, Quantity: ing.Quantity})
	}
	return out
}

func checkIngredients(tx *gorm.DB, ings []ingredientRequest) error {
	for _, ing := range ings {
		var count int64
		if err := tx.Model(&models.InventoryItem{}).Where("id = ?", ing.InventoryItemID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("inventory item %d not found", ing.InventoryItemID)
		}
	}
	return nil
}

var errBadIngredient = errors.New("bad ingredient")

// GetAllRecipes, optionally ?active=true
func (rc *RecipeController) GetAllRecipes(c *gin.Context) {
	q := rc.DB.Preload("Ingredients.InventoryItem").Order("name ASC")
	if active := c.Query("active"); active != "" {
		b, err := strconv.ParseBool(active)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("active must be true or false"))
			return
		}
		q = q.Where("is_active = ?", b)
	}

	var recipes []models.Recipe
	if err := q.Find(&recipes).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of recipes", recipes)
}

func (rc *RecipeController) GetRecipeByID(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("recipe_id"))

	var recipe models.Recipe
	if err := rc.DB.Preload("Ingredients.InventoryItem").First(&recipe, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Recipe detail", recipe)
}

func (rc *RecipeController) CreateRecipe(c *gin.Context) {
	var body recipeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	now := time.Now().UTC()
	recipe := models.Recipe{
		Name:        body.Name,
		Category:    body.Category,
		Description: body.Description,
		Price:       body.Price,
		IsActive:    body.IsActive == nil || *body.IsActive,
		Ingredients: body.ingredients(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := rc.DB.Transaction(func(tx *gorm.DB) error {
		if err := checkIngredients(tx, body.Ingredients); err != nil {
			return fmt.Errorf("%w: %v", errBadIngredient, err)
		}
		return tx.Create(&recipe).Error
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errBadIngredient) {
			status = http.StatusBadRequest
		}
		utils.RespondError(c, status, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Recipe created", recipe)
}

// UpdateRecipe replaces the recipe fields and its ingredient list.
func (rc *RecipeController) UpdateRecipe(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("recipe_id"))

	var recipe models.Recipe
	if err := rc.DB.First(&recipe, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var body recipeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	recipe.Name = body.Name
	recipe.Category = body.Category
	recipe.Description = body.Description
	recipe.Price = body.Price
	if body.IsActive != nil {
		recipe.IsActive = *body.IsActive
	}
	recipe.UpdatedAt = time.Now().UTC()

	err := rc.DB.Transaction(func(tx *gorm.DB) error {
		if err := checkIngredients(tx, body.Ingredients); err != nil {
			return fmt.Errorf("%w: %v", errBadIngredient, err)
		}
		if err := tx.Omit("Ingredients").Save(&recipe).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		ings := body.ingredients()
		for i := range ings {
			ings[i].RecipeID = recipe.ID
		}
		if len(ings) > 0 {
			if err := tx.Create(&ings).Error; err != nil {
				return err
			}
		}
		recipe.Ingredients = ings
		return nil
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errBadIngredient) {
			status = http.StatusBadRequest
		}
		utils.RespondError(c, status, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Recipe updated", recipe)
}

func (rc *RecipeController) DeleteRecipe(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("recipe_id"))

	err := rc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Recipe{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Recipe deleted", gin.H{"recipe_id": id})
}
