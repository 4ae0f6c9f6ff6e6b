package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zedbites/backoffice/models"
	"gorm.io/gorm"
)

// OrderStore is the persistence boundary for orders and their items. Every
// mutation appends rows to the change journal in the same transaction.
type OrderStore interface {
	ListOrders(ctx context.Context) ([]models.Order, error)
	ListItems(ctx context.Context, orderID uint) ([]models.OrderItem, error)
	GetOrder(ctx context.Context, id uint) (*models.Order, error)
	OrderIDForItem(ctx context.Context, itemID uint) (uint, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) (*models.Order, error)
	UpdateLocation(ctx context.Context, id uint, loc models.Location) (*models.Order, error)
}

type GormOrderStore struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewGormOrderStore(db *gorm.DB) *GormOrderStore {
	return &GormOrderStore{
		DB:  db,
		Now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *GormOrderStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := s.DB.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *GormOrderStore) ListItems(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := s.DB.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list items for order %d: %w", orderID, err)
	}
	return items, nil
}

func (s *GormOrderStore) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).
		Preload("OrderItems", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order %d: %w", id, err)
	}
	return &order, nil
}

func (s *GormOrderStore) OrderIDForItem(ctx context.Context, itemID uint) (uint, error) {
	var item models.OrderItem
	err := s.DB.WithContext(ctx).Select("id", "order_id").First(&item, itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrOrderNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to fetch order item %d: %w", itemID, err)
	}
	return item.OrderID, nil
}

// CreateOrder inserts the order and then its items. Both writes share one
// transaction so an item failure never leaves an orphaned order behind.
func (s *GormOrderStore) CreateOrder(ctx context.Context, order *models.Order) error {
	now := s.Now()
	items := order.OrderItems

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order.CreatedAt = now
		order.UpdatedAt = now
		order.Version = 1
		if err := tx.Omit("OrderItems").Create(order).Error; err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for i := range items {
			items[i].ID = 0
			items[i].OrderID = order.ID
			items[i].CreatedAt = now
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("failed to insert order items: %w", err)
			}
		}
		order.OrderItems = items

		if err := recordChange(tx, "orders", int64(order.ID), models.ActionInsert, now); err != nil {
			return err
		}
		for _, item := range items {
			if err := recordChange(tx, "order_items", int64(item.ID), models.ActionInsert, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateStatus validates the move against the persisted status and bumps the
// order version. A concurrent writer that got there first yields ErrConcurrentUpdate.
func (s *GormOrderStore) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}

	return s.mutate(ctx, id, func(order *models.Order, now time.Time) (map[string]interface{}, error) {
		if !order.Status.CanTransitionTo(status) {
			return nil, &TransitionError{OrderID: order.ID, From: order.Status, To: status}
		}
		order.Status = status
		return map[string]interface{}{"status": status}, nil
	})
}

// UpdateLocation stores the reported position with a server-assigned timestamp.
func (s *GormOrderStore) UpdateLocation(ctx context.Context, id uint, loc models.Location) (*models.Order, error) {
	if !loc.Valid() {
		return nil, ErrInvalidLocation
	}

	return s.mutate(ctx, id, func(order *models.Order, now time.Time) (map[string]interface{}, error) {
		lat, lng := loc.Lat, loc.Lng
		order.CurrentLat = &lat
		order.CurrentLng = &lng
		order.LocationUpdatedAt = &now
		return map[string]interface{}{
			"current_lat":         lat,
			"current_lng":         lng,
			"location_updated_at": now,
		}, nil
	})
}

type orderMutation func(order *models.Order, now time.Time) (map[string]interface{}, error)

func (s *GormOrderStore) mutate(ctx context.Context, id uint, fn orderMutation) (*models.Order, error) {
	var order models.Order
	now := s.Now()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to fetch order %d: %w", id, err)
		}

		updates, err := fn(&order, now)
		if err != nil {
			return err
		}
		updates["version"] = order.Version + 1
		updates["updated_at"] = now

		res := tx.Model(&models.Order{}).
			Where("id = ? AND version = ?", order.ID, order.Version).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to update order %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}
		order.Version++
		order.UpdatedAt = now

		return recordChange(tx, "orders", int64(order.ID), models.ActionUpdate, now)
	})
	if err != nil {
		return nil, err
	}

	items, err := s.ListItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.OrderItems = items
	return &order, nil
}

func recordChange(tx *gorm.DB, table string, recordID int64, action string, at time.Time) error {
	change := models.DBChange{
		TableName:  table,
		RecordID:   recordID,
		ActionType: action,
		ChangedAt:  at,
	}
	if err := tx.Create(&change).Error; err != nil {
		return fmt.Errorf("failed to journal %s change: %w", table, err)
	}
	return nil
}
