package models

import "time"

type Recipe struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	Name        string             `gorm:"type:varchar(255);not null" json:"name"`
	Category    string             `gorm:"type:varchar(100)" json:"category"`
	Description string             `gorm:"type:text" json:"description"`
	Price       float64            `gorm:"type:decimal(10,2);not null" json:"price"`
	IsActive    bool               `gorm:"not null;index" json:"is_active"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"ingredients"`
	CreatedAt   time.Time          `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time          `gorm:"not null" json:"updated_at"`
}

type RecipeIngredient struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	RecipeID        uint          `gorm:"not null;index" json:"recipe_id"`
	InventoryItemID uint          `gorm:"not null" json:"inventory_item_id"`
	InventoryItem   InventoryItem `gorm:"foreignKey:InventoryItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"inventory_item"`
	Quantity        float64       `gorm:"type:decimal(12,3);not null" json:"quantity"`
}
