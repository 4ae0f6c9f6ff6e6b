package services

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zedbites/backoffice/models"
	"gorm.io/gorm"
)

func day(d, h int) time.Time {
	return time.Date(2026, 3, d, h, 0, 0, 0, time.UTC)
}

func seedMetrics(t *testing.T, db *gorm.DB) {
	t.Helper()
	store := NewGormOrderStore(db)
	orders := []struct {
		at    time.Time
		items []models.OrderItem
		total float64
	}{
		{day(9, 10), []models.OrderItem{{Name: "X", Quantity: 2, Price: 10}}, 20},
		{day(9, 11), []models.OrderItem{{Name: "Y", Quantity: 3, Price: 10}}, 30},
		{day(8, 9), []models.OrderItem{{Name: "X", Quantity: 1, Price: 10}}, 10},
		{time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC), []models.OrderItem{{Name: "Z", Quantity: 1, Price: 25}}, 25},
	}
	for _, o := range orders {
		at := o.at
		store.Now = func() time.Time { return at }
		require.NoError(t, store.CreateOrder(context.Background(), &models.Order{
			CustomerName: "c",
			TotalAmount:  o.total,
			Status:       models.OrderStatusPlaced,
			OrderItems:   o.items,
		}))
	}

	require.NoError(t, db.Create(&[]models.Sale{
		{Description: "walk-in", Amount: 15, SoldAt: day(9, 13), CreatedAt: day(9, 13)},
		{Description: "walk-in", Amount: 15, SoldAt: day(1, 13), CreatedAt: day(1, 13)},
	}).Error)
	require.NoError(t, db.Create(&[]models.Expense{
		{Category: InventoryExpenseCategory, Amount: 100, SpentAt: day(5, 9), CreatedAt: day(5, 9)},
		{Category: "rent", Amount: 900, SpentAt: day(5, 9), CreatedAt: day(5, 9)},
	}).Error)
	require.NoError(t, db.Create(&[]models.InventoryItem{
		{Name: "Chicken", Unit: "kg", Quantity: 1, ReorderLevel: 5, UnitCost: 10, CreatedAt: day(1, 0), UpdatedAt: day(1, 0)},
		{Name: "Mealie meal", Unit: "kg", Quantity: 5, ReorderLevel: 5, UnitCost: 2, CreatedAt: day(1, 0), UpdatedAt: day(1, 0)},
		{Name: "Oil", Unit: "l", Quantity: 10, ReorderLevel: 2, UnitCost: 3, CreatedAt: day(1, 0), UpdatedAt: day(1, 0)},
	}).Error)
	require.NoError(t, db.Create(&[]models.Recipe{
		{Name: "Nshima & Chicken", Price: 45, IsActive: true, CreatedAt: day(1, 0), UpdatedAt: day(1, 0)},
		{Name: "Fritters", Price: 10, IsActive: true, CreatedAt: day(1, 0), UpdatedAt: day(1, 0)},
		{Name: "Old special", Price: 60, IsActive: false, CreatedAt: day(1, 0), UpdatedAt: day(1, 0)},
	}).Error)
}

func TestStoreMetricsDaily(t *testing.T) {
	db := newTestDB(t)
	seedMetrics(t, db)
	m, err := NewStoreMetrics(db, time.UTC)
	require.NoError(t, err)

	got, err := m.Daily(context.Background(), day(9, 23))
	require.NoError(t, err)
	assert.Equal(t, &DailyMetrics{
		Date:            "2026-03-09",
		OrderCount:      2,
		Revenue:         65,
		InventoryAlerts: 2,
		ActiveRecipes:   2,
	}, got)
}

func TestStoreMetricsWeekly(t *testing.T) {
	db := newTestDB(t)
	seedMetrics(t, db)
	m, err := NewStoreMetrics(db, time.UTC)
	require.NoError(t, err)

	got, err := m.Weekly(context.Background(), day(9, 8))
	require.NoError(t, err)
	assert.Equal(t, "2026-03-03", got.WeekStart)
	assert.Equal(t, "2026-03-09", got.WeekEnd)
	assert.Equal(t, int64(3), got.TotalOrders)
	assert.Equal(t, 75.0, got.TotalRevenue)
	assert.Equal(t, 25.0, got.AverageOrderValue)
	assert.Equal(t, 87.5, got.GrowthPercent)
	assert.Equal(t, 2.0, got.InventoryTurnover)
	assert.Nil(t, got.SatisfactionScore)
	assert.Equal(t, []TopItem{
		{Name: "X", Quantity: 3, Revenue: 30},
		{Name: "Y", Quantity: 3, Revenue: 30},
	}, got.TopItems)
}

func TestStoreMetricsEmptyDatabase(t *testing.T) {
	m, err := NewStoreMetrics(newTestDB(t), time.UTC)
	require.NoError(t, err)

	weekly, err := m.Weekly(context.Background(), day(9, 8))
	require.NoError(t, err)
	assert.Zero(t, weekly.TotalOrders)
	assert.Zero(t, weekly.AverageOrderValue)
	assert.Zero(t, weekly.GrowthPercent)
	assert.Empty(t, weekly.TopItems)
}

func TestRandomMetricsIsDeterministicPerSeed(t *testing.T) {
	a := NewRandomMetrics(rand.NewPCG(1, 2), time.UTC)
	b := NewRandomMetrics(rand.NewPCG(1, 2), time.UTC)

	wa, err := a.Weekly(context.Background(), day(9, 8))
	require.NoError(t, err)
	wb, err := b.Weekly(context.Background(), day(9, 8))
	require.NoError(t, err)
	assert.Equal(t, wa, wb)

	require.NotNil(t, wa.SatisfactionScore)
	assert.GreaterOrEqual(t, *wa.SatisfactionScore, 4.0)
	assert.LessOrEqual(t, *wa.SatisfactionScore, 5.0)
	assert.Len(t, wa.TopItems, topItemsLimit)

	d, err := a.Daily(context.Background(), day(9, 8))
	require.NoError(t, err)
	assert.Equal(t, "2026-03-09", d.Date)
	assert.GreaterOrEqual(t, d.OrderCount, int64(10))
}

func TestDayWindowUsesLocalCalendar(t *testing.T) {
	lusaka := time.FixedZone("CAT", 2*60*60)
	from, to := dayWindow(time.Date(2026, 3, 8, 23, 30, 0, 0, time.UTC), lusaka)
	assert.Equal(t, time.Date(2026, 3, 8, 22, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 9, 22, 0, 0, 0, time.UTC), to)
}
