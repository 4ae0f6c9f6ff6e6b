package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

const topItemsLimit = 5

type DailyMetrics struct {
	Date            string  `json:"date"`
	OrderCount      int64   `json:"order_count"`
	Revenue         float64 `json:"revenue"`
	InventoryAlerts int64   `json:"inventory_alerts"`
	ActiveRecipes   int64   `json:"active_recipes"`
}

type TopItem struct {
	Name     string  `db:"name" json:"name"`
	Quantity int64   `db:"quantity" json:"quantity"`
	Revenue  float64 `db:"revenue" json:"revenue"`
}

type WeeklyMetrics struct {
	WeekStart         string    `json:"week_start"`
	WeekEnd           string    `json:"week_end"`
	TotalOrders       int64     `json:"total_orders"`
	TotalRevenue      float64   `json:"total_revenue"`
	AverageOrderValue float64   `json:"average_order_value"`
	TopItems          []TopItem `json:"top_items"`
	InventoryTurnover float64   `json:"inventory_turnover"`
	GrowthPercent     float64   `json:"growth_percent"`
	// SatisfactionScore is nil when no rating source is configured.
	SatisfactionScore *float64 `json:"satisfaction_score,omitempty"`
}

// MetricsProvider builds the snapshot a report is rendered from.
type MetricsProvider interface {
	Daily(ctx context.Context, day time.Time) (*DailyMetrics, error)
	Weekly(ctx context.Context, weekEnd time.Time) (*WeeklyMetrics, error)
}

// dayWindow returns the UTC bounds of the calendar day containing t in loc.
func dayWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

// weekWindow returns the seven local days ending with the day containing t.
func weekWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	_, end := dayWindow(t, loc)
	return end.AddDate(0, 0, -7), end
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// StoreMetrics aggregates report figures straight from the order, inventory,
// recipe, sales and expense tables.
type StoreMetrics struct {
	db  *sqlx.DB
	loc *time.Location
}

// NewStoreMetrics shares the gorm connection pool with sqlx.
func NewStoreMetrics(gdb *gorm.DB, loc *time.Location) (*StoreMetrics, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &StoreMetrics{db: sqlx.NewDb(sqlDB, sqlxDriverName(gdb.Dialector.Name())), loc: loc}, nil
}

// sqlxDriverName maps a gorm dialect to the driver name sqlx uses to pick a bindvar style.
func sqlxDriverName(dialect string) string {
	switch dialect {
	case "postgres":
		return "pgx"
	case "sqlite":
		return "sqlite3"
	default:
		return dialect
	}
}

func (m *StoreMetrics) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return m.db.GetContext(ctx, dest, m.db.Rebind(query), args...)
}

func (m *StoreMetrics) orderTotals(ctx context.Context, from, to time.Time) (int64, float64, error) {
	var row struct {
		Count   int64           `db:"cnt"`
		Revenue sql.NullFloat64 `db:"revenue"`
	}
	err := m.get(ctx, &row, `
		SELECT COUNT(*) AS cnt, SUM(total_amount) AS revenue
		FROM orders
		WHERE created_at >= ? AND created_at < ?`, from, to)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to total orders: %w", err)
	}
	return row.Count, row.Revenue.Float64, nil
}

func (m *StoreMetrics) salesTotal(ctx context.Context, from, to time.Time) (float64, error) {
	var total sql.NullFloat64
	if err := m.get(ctx, &total, `
		SELECT SUM(amount) FROM sales
		WHERE sold_at >= ? AND sold_at < ?`, from, to); err != nil {
		return 0, fmt.Errorf("failed to total sales: %w", err)
	}
	return total.Float64, nil
}

func (m *StoreMetrics) revenue(ctx context.Context, from, to time.Time) (int64, float64, error) {
	count, orderRevenue, err := m.orderTotals(ctx, from, to)
	if err != nil {
		return 0, 0, err
	}
	sales, err := m.salesTotal(ctx, from, to)
	if err != nil {
		return 0, 0, err
	}
	return count, round2(orderRevenue + sales), nil
}

func (m *StoreMetrics) Daily(ctx context.Context, day time.Time) (*DailyMetrics, error) {
	from, to := dayWindow(day, m.loc)

	count, revenue, err := m.revenue(ctx, from, to)
	if err != nil {
		return nil, err
	}

	out := &DailyMetrics{
		Date:       from.In(m.loc).Format("2006-01-02"),
		OrderCount: count,
		Revenue:    revenue,
	}
	if err := m.get(ctx, &out.InventoryAlerts,
		`SELECT COUNT(*) FROM inventory_items WHERE quantity <= reorder_level`); err != nil {
		return nil, fmt.Errorf("failed to count low stock items: %w", err)
	}
	if err := m.get(ctx, &out.ActiveRecipes,
		`SELECT COUNT(*) FROM recipes WHERE is_active = ?`, true); err != nil {
		return nil, fmt.Errorf("failed to count active recipes: %w", err)
	}
	return out, nil
}

func (m *StoreMetrics) Weekly(ctx context.Context, weekEnd time.Time) (*WeeklyMetrics, error) {
	from, to := weekWindow(weekEnd, m.loc)

	count, revenue, err := m.revenue(ctx, from, to)
	if err != nil {
		return nil, err
	}
	_, prevRevenue, err := m.revenue(ctx, from.AddDate(0, 0, -7), from)
	if err != nil {
		return nil, err
	}

	out := &WeeklyMetrics{
		WeekStart:    from.In(m.loc).Format("2006-01-02"),
		WeekEnd:      to.Add(-time.Second).In(m.loc).Format("2006-01-02"),
		TotalOrders:  count,
		TotalRevenue: revenue,
		TopItems:     []TopItem{},
	}
	if count > 0 {
		out.AverageOrderValue = round2(revenue / float64(count))
	}
	if prevRevenue > 0 {
		out.GrowthPercent = round2((revenue - prevRevenue) / prevRevenue * 100)
	}

	if err := m.db.SelectContext(ctx, &out.TopItems, m.db.Rebind(`
		SELECT oi.name AS name,
		       SUM(oi.quantity) AS quantity,
		       SUM(oi.quantity * oi.price) AS revenue
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.created_at >= ? AND o.created_at < ?
		GROUP BY oi.name
		ORDER BY quantity DESC, name ASC
		LIMIT ?`), from, to, topItemsLimit); err != nil {
		return nil, fmt.Errorf("failed to rank items: %w", err)
	}
	for i := range out.TopItems {
		out.TopItems[i].Revenue = round2(out.TopItems[i].Revenue)
	}

	var purchases, stockValue sql.NullFloat64
	if err := m.get(ctx, &purchases, `
		SELECT SUM(amount) FROM expenses
		WHERE category = ? AND spent_at >= ? AND spent_at < ?`, InventoryExpenseCategory, from, to); err != nil {
		return nil, fmt.Errorf("failed to total inventory purchases: %w", err)
	}
	if err := m.get(ctx, &stockValue,
		`SELECT SUM(quantity * unit_cost) FROM inventory_items`); err != nil {
		return nil, fmt.Errorf("failed to value inventory: %w", err)
	}
	if stockValue.Float64 > 0 {
		out.InventoryTurnover = round2(purchases.Float64 / stockValue.Float64)
	}
	return out, nil
}

// InventoryExpenseCategory marks expenses that restock inventory.
const InventoryExpenseCategory = "inventory"

// RandomMetrics produces plausible placeholder figures for demos.
type RandomMetrics struct {
	rng *rand.Rand
	loc *time.Location
}

func NewRandomMetrics(src rand.Source, loc *time.Location) *RandomMetrics {
	if src == nil {
		src = rand.NewPCG(uint64(time.Now().UnixNano()), 0)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &RandomMetrics{rng: rand.New(src), loc: loc}
}

var placeholderItems = []string{"Nshima & Chicken", "Beef Burger", "Village Chicken", "Chips", "Fanta"}

func (m *RandomMetrics) Daily(ctx context.Context, day time.Time) (*DailyMetrics, error) {
	from, _ := dayWindow(day, m.loc)
	return &DailyMetrics{
		Date:            from.In(m.loc).Format("2006-01-02"),
		OrderCount:      int64(m.rng.IntN(50) + 10),
		Revenue:         round2(m.rng.Float64()*5000 + 1000),
		InventoryAlerts: int64(m.rng.IntN(5)),
		ActiveRecipes:   int64(m.rng.IntN(30) + 20),
	}, nil
}

func (m *RandomMetrics) Weekly(ctx context.Context, weekEnd time.Time) (*WeeklyMetrics, error) {
	from, to := weekWindow(weekEnd, m.loc)
	orders := int64(m.rng.IntN(300) + 100)
	revenue := round2(m.rng.Float64()*30000 + 10000)
	score := round2(4.0 + m.rng.Float64())

	top := make([]TopItem, 0, topItemsLimit)
	qty := int64(m.rng.IntN(40) + 60)
	for _, name := range placeholderItems {
		top = append(top, TopItem{Name: name, Quantity: qty, Revenue: round2(float64(qty) * (m.rng.Float64()*80 + 20))})
		qty -= int64(m.rng.IntN(10) + 1)
	}

	return &WeeklyMetrics{
		WeekStart:         from.In(m.loc).Format("2006-01-02"),
		WeekEnd:           to.Add(-time.Second).In(m.loc).Format("2006-01-02"),
		TotalOrders:       orders,
		TotalRevenue:      revenue,
		AverageOrderValue: round2(revenue / float64(orders)),
		TopItems:          top,
		InventoryTurnover: round2(m.rng.Float64()*3 + 1),
		GrowthPercent:     round2(m.rng.Float64()*40 - 10),
		SatisfactionScore: &score,
	}, nil
}
