package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/zedbites/backoffice/models"
	"github.com/zedbites/backoffice/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database. driver is one of mysql, postgres or sqlite.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	return db, nil
}

// Models lists every table owned by the service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Order{},
		&models.OrderItem{},
		&models.DBChange{},
		&models.Notification{},
		&models.EmailRecipient{},
		&models.EmailLog{},
		&models.InventoryItem{},
		&models.Recipe{},
		&models.RecipeIngredient{},
		&models.Sale{},
		&models.Expense{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to AutoMigrate: %w", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}

// EnsureAdmin creates the first admin account when no user with that email exists.
func EnsureAdmin(db *gorm.DB, name, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	admin := models.User{
		Name:      name,
		Email:     email,
		Password:  string(hashed),
		Role:      models.RoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(&admin).Error; err != nil {
		return false, fmt.Errorf("failed to create admin user: %w", err)
	}
	return true, nil
}
