package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zedbites/backoffice/models"
	"github.com/zedbites/backoffice/realtime"
)

// flakyStore fails ListOrders while broken is set.
type flakyStore struct {
	*GormOrderStore
	broken bool
}

func (s *flakyStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	if s.broken {
		return nil, errors.New("connection refused")
	}
	return s.GormOrderStore.ListOrders(ctx)
}

func newTestSync(t *testing.T) (*OrderSync, *GormOrderStore, *recordingNotifier, *recordingHub) {
	t.Helper()
	store := NewGormOrderStore(newTestDB(t))
	notifier := &recordingNotifier{}
	hub := &recordingHub{}
	return NewOrderSync(store, notifier, hub, time.UTC, quietLogger()), store, notifier, hub
}

func sampleInput() CreateOrderInput {
	return CreateOrderInput{
		CustomerName:  "A",
		CustomerPhone: "0971234567",
		Items:         []OrderItemInput{{Name: "X", Quantity: 2, Price: 10}},
	}
}

func TestCreateOrderTotalsInCents(t *testing.T) {
	sync, _, _, _ := newTestSync(t)
	ctx := context.Background()

	view, err := sync.CreateOrder(ctx, sampleInput())
	require.NoError(t, err)
	assert.Equal(t, 20.00, view.TotalAmount)
	assert.Equal(t, models.OrderStatusPlaced, view.Status)
	assert.Equal(t, "+260 97 123 4567", view.DisplayPhone)
	assert.Equal(t, "K20.00", view.DisplayTotal)
	require.NotNil(t, view.NextStatus)
	assert.Equal(t, models.OrderStatusCooking, *view.NextStatus)

	view, err = sync.CreateOrder(ctx, CreateOrderInput{
		CustomerName: "B",
		Items: []OrderItemInput{
			{Name: "Soda", Quantity: 3, Price: 0.1},
			{Name: "Bun", Quantity: 7, Price: 2.35},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 16.75, view.TotalAmount)
}

func TestCreateOrderValidation(t *testing.T) {
	tests := []struct {
		name  string
		input CreateOrderInput
	}{
		{"missing customer", CreateOrderInput{Items: []OrderItemInput{{Name: "X", Quantity: 1, Price: 1}}}},
		{"no items", CreateOrderInput{CustomerName: "A"}},
		{"zero quantity", CreateOrderInput{CustomerName: "A", Items: []OrderItemInput{{Name: "X", Quantity: 0, Price: 1}}}},
		{"negative price", CreateOrderInput{CustomerName: "A", Items: []OrderItemInput{{Name: "X", Quantity: 1, Price: -1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sync, _, _, _ := newTestSync(t)
			_, err := sync.CreateOrder(context.Background(), tt.input)
			assert.ErrorIs(t, err, ErrInvalidOrder)
			assert.Empty(t, sync.Orders())
		})
	}
}

func TestAdvanceThroughLifecycle(t *testing.T) {
	sync, _, _, _ := newTestSync(t)
	ctx := context.Background()
	view, err := sync.CreateOrder(ctx, sampleInput())
	require.NoError(t, err)

	for _, want := range []models.OrderStatus{models.OrderStatusCooking, models.OrderStatusDispatched, models.OrderStatusDelivered} {
		view, err = sync.Advance(ctx, view.ID)
		require.NoError(t, err)
		assert.Equal(t, want, view.Status)
	}
	assert.Nil(t, view.NextStatus)

	_, err = sync.Advance(ctx, view.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "already delivered")

	local, ok := sync.Order(view.ID)
	require.True(t, ok)
	assert.Equal(t, models.OrderStatusDelivered, local.Status)
}

func TestFetchAllKeepsStaleListOnFailure(t *testing.T) {
	base := NewGormOrderStore(newTestDB(t))
	store := &flakyStore{GormOrderStore: base}
	notifier := &recordingNotifier{}
	sync := NewOrderSync(store, notifier, nil, time.UTC, quietLogger())
	ctx := context.Background()

	_, err := sync.CreateOrder(ctx, sampleInput())
	require.NoError(t, err)
	before, err := sync.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, before, 1)
	assert.Len(t, before[0].OrderItems, 1)

	store.broken = true
	after, err := sync.FetchAll(ctx)
	assert.Error(t, err)
	assert.Len(t, after, 1)
	assert.Len(t, sync.Orders(), 1)

	notices := notifier.all()
	require.Len(t, notices, 1)
	assert.Equal(t, "order_sync", notices[0].Source)
}

func TestFetchAllEmptyIsValid(t *testing.T) {
	sync, _, notifier, _ := newTestSync(t)
	orders, err := sync.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, notifier.all())
}

func TestFetchAllOrdersNewestFirst(t *testing.T) {
	sync, store, _, _ := newTestSync(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		at := base.Add(time.Duration(i) * time.Minute)
		store.Now = func() time.Time { return at }
		in := sampleInput()
		in.CustomerName = name
		_, err := sync.CreateOrder(ctx, in)
		require.NoError(t, err)
	}

	orders, err := sync.FetchAll(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(orders))
	for _, o := range orders {
		names = append(names, o.CustomerName)
	}
	if diff := cmp.Diff([]string{"third", "second", "first"}, names); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "01 Mar 2026, 12:02", orders[0].DisplayTime)
}

func TestHandleChangeIgnoresStaleVersion(t *testing.T) {
	sync, store, _, _ := newTestSync(t)
	ctx := context.Background()
	view, err := sync.CreateOrder(ctx, sampleInput())
	require.NoError(t, err)

	stale, err := store.GetOrder(ctx, view.ID)
	require.NoError(t, err)

	_, err = sync.UpdateStatus(ctx, view.ID, models.OrderStatusCooking)
	require.NoError(t, err)

	// A slow read of the old row arrives after the newer one.
	applied := sync.apply(*stale)
	assert.Equal(t, models.OrderStatusCooking, applied.Status)
	local, _ := sync.Order(view.ID)
	assert.Equal(t, uint64(2), local.Version)
}

func TestHandleChangeAppliesExternalWrites(t *testing.T) {
	sync, store, _, hub := newTestSync(t)
	ctx := context.Background()

	// Written by another instance: the local view has never seen it.
	order := &models.Order{
		CustomerName: "Remote",
		Status:       models.OrderStatusPlaced,
		OrderItems:   []models.OrderItem{{Name: "Chips", Quantity: 1, Price: 15}},
	}
	require.NoError(t, store.CreateOrder(ctx, order))
	_, ok := sync.Order(order.ID)
	require.False(t, ok)

	require.NoError(t, sync.HandleChange(ctx, models.DBChange{TableName: "orders", RecordID: int64(order.ID), ActionType: models.ActionInsert}))
	got, ok := sync.Order(order.ID)
	require.True(t, ok)
	assert.Len(t, got.OrderItems, 1)

	require.NoError(t, sync.HandleChange(ctx, models.DBChange{TableName: "order_items", RecordID: int64(order.OrderItems[0].ID), ActionType: models.ActionInsert}))
	require.NoError(t, sync.HandleChange(ctx, models.DBChange{TableName: "orders", RecordID: int64(order.ID), ActionType: models.ActionDelete}))
	_, ok = sync.Order(order.ID)
	assert.False(t, ok)

	assert.Equal(t, []string{realtime.EventOrderCreated, realtime.EventOrderUpdated, realtime.EventOrderDeleted}, hub.names())
}

func TestBoardGroupsByStatus(t *testing.T) {
	sync, _, _, _ := newTestSync(t)
	ctx := context.Background()
	a, err := sync.CreateOrder(ctx, sampleInput())
	require.NoError(t, err)
	_, err = sync.CreateOrder(ctx, sampleInput())
	require.NoError(t, err)
	_, err = sync.Advance(ctx, a.ID)
	require.NoError(t, err)

	board := sync.Board()
	for _, s := range models.OrderStatuses {
		_, ok := board[s]
		assert.True(t, ok, "missing tab %s", s)
	}
	assert.Len(t, board[models.OrderStatusPlaced], 1)
	assert.Len(t, board[models.OrderStatusCooking], 1)
	assert.Empty(t, board[models.OrderStatusDelivered])

	want := sync.Orders()
	got := append(append([]OrderView{}, board[models.OrderStatusCooking]...), board[models.OrderStatusPlaced]...)
	if diff := cmp.Diff(want, got, cmpopts.SortSlices(func(x, y OrderView) bool { return x.ID < y.ID })); diff != "" {
		t.Errorf("board does not partition the order list (-want +got):\n%s", diff)
	}
}

// gatedStore holds the first item read of a reload until released.
type gatedStore struct {
	*GormOrderStore
	reached chan struct{}
	release chan struct{}
}

func (s *gatedStore) ListItems(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	select {
	case <-s.reached:
	default:
		close(s.reached)
		<-s.release
	}
	return s.GormOrderStore.ListItems(ctx, orderID)
}

func TestFetchAllKeepsWritesMadeDuringReload(t *testing.T) {
	store := &gatedStore{
		GormOrderStore: NewGormOrderStore(newTestDB(t)),
		reached:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	orders := NewOrderSync(store, nil, nil, time.UTC, quietLogger())
	ctx := context.Background()

	first, err := orders.CreateOrder(ctx, sampleInput())
	require.NoError(t, err)

	fetched := make(chan error, 1)
	go func() {
		_, err := orders.FetchAll(ctx)
		fetched <- err
	}()
	<-store.reached

	_, err = orders.UpdateStatus(ctx, first.ID, models.OrderStatusCooking)
	require.NoError(t, err)
	second, err := orders.CreateOrder(ctx, sampleInput())
	require.NoError(t, err)

	close(store.release)
	require.NoError(t, <-fetched)

	got, ok := orders.Order(first.ID)
	require.True(t, ok)
	assert.Equal(t, models.OrderStatusCooking, got.Status)
	assert.Equal(t, uint64(2), got.Version)
	_, ok = orders.Order(second.ID)
	assert.True(t, ok, "order created during the reload was dropped")

	// With nothing in flight a reload drops orders the store no longer has.
	orders.mu.Lock()
	orders.orders[999] = OrderView{Order: models.Order{ID: 999}}
	orders.mu.Unlock()
	_, err = orders.FetchAll(ctx)
	require.NoError(t, err)
	_, ok = orders.Order(999)
	assert.False(t, ok)
	assert.Len(t, orders.Orders(), 2)
}

func TestJournalInsertBroadcastsCreatedForLocalOrders(t *testing.T) {
	sync, store, _, hub := newTestSync(t)
	ctx := context.Background()

	_, err := sync.CreateOrder(ctx, sampleInput())
	require.NoError(t, err)

	cm := NewChangeMonitor(store.DB, quietLogger(), sync)
	assert.Equal(t, 2, cm.CheckChanges(ctx))
	assert.Equal(t, []string{realtime.EventOrderCreated, realtime.EventOrderUpdated}, hub.names())
}
