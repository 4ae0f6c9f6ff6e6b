package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zedbites/backoffice/models"
	"github.com/zedbites/backoffice/realtime"
	"github.com/zedbites/backoffice/utils"
	"golang.org/x/sync/errgroup"
)

const itemFetchConcurrency = 8

// OrderView is an order as shown on the order board.
type OrderView struct {
	models.Order
	DisplayPhone string              `json:"display_phone"`
	DisplayTime  string              `json:"display_time"`
	DisplayETA   string              `json:"display_eta,omitempty"`
	DisplayTotal string              `json:"display_total"`
	NextStatus   *models.OrderStatus `json:"next_status,omitempty"`
}

type OrderItemInput struct {
	Name     string  `json:"name" binding:"required"`
	Quantity int     `json:"quantity" binding:"required,gt=0"`
	Price    float64 `json:"price" binding:"gte=0"`
}

type CreateOrderInput struct {
	CustomerName        string           `json:"customer_name" binding:"required"`
	CustomerPhone       string           `json:"customer_phone"`
	CustomerAddress     string           `json:"customer_address"`
	EstimatedDeliveryAt *time.Time       `json:"estimated_delivery_at"`
	Items               []OrderItemInput `json:"items" binding:"required,min=1,dive"`
}

// OrderSync keeps a local view of every order in step with the store. Changes
// are applied per order and a view is only replaced by one with an equal or
// higher version, so a slow stale read can never overwrite newer state.
type OrderSync struct {
	store    OrderStore
	notifier Notifier
	hub      Broadcaster
	loc      *time.Location
	log      *logrus.Logger

	mu     sync.RWMutex
	orders map[uint]OrderView

	// While a FetchAll is in flight, local writes are stamped so the fetched
	// snapshot cannot undo them.
	seq      uint64
	fetching int
	touched  map[uint]uint64
	removed  map[uint]uint64
}

func NewOrderSync(store OrderStore, notifier Notifier, hub Broadcaster, loc *time.Location, log *logrus.Logger) *OrderSync {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderSync{
		store:    store,
		notifier: notifier,
		hub:      hub,
		loc:      loc,
		log:      log,
		orders:   make(map[uint]OrderView),
		touched:  make(map[uint]uint64),
		removed:  make(map[uint]uint64),
	}
}

// FetchAll reloads every order with its items. On failure the previous view
// is kept, a notification is raised and the stale list is returned with the error.
// Orders written locally while the reload runs keep their newer state.
func (s *OrderSync) FetchAll(ctx context.Context) ([]OrderView, error) {
	start := s.beginFetch()
	defer s.endFetch()

	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		return s.fetchFailed(ctx, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(itemFetchConcurrency)
	for i := range orders {
		i := i
		g.Go(func() error {
			items, err := s.store.ListItems(gctx, orders[i].ID)
			if err != nil {
				return err
			}
			orders[i].OrderItems = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return s.fetchFailed(ctx, err)
	}

	fresh := make(map[uint]OrderView, len(orders))
	for _, o := range orders {
		fresh[o.ID] = s.buildView(o)
	}

	s.mu.Lock()
	s.merge(fresh, start)
	s.mu.Unlock()

	s.log.WithField("orders", len(fresh)).Debug("order view resynced")
	return s.Orders(), nil
}

func (s *OrderSync) beginFetch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetching++
	return s.seq
}

func (s *OrderSync) endFetch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetching--
	if s.fetching == 0 {
		s.touched = make(map[uint]uint64)
		s.removed = make(map[uint]uint64)
	}
}

// merge folds a snapshot read since seq start into the view. Callers hold s.mu.
func (s *OrderSync) merge(fresh map[uint]OrderView, start uint64) {
	for id := range s.orders {
		if _, ok := fresh[id]; !ok && s.touched[id] <= start {
			delete(s.orders, id)
		}
	}
	for id, v := range fresh {
		if s.removed[id] > start {
			continue
		}
		if cur, ok := s.orders[id]; ok && cur.Version > v.Version {
			continue
		}
		s.orders[id] = v
	}
}

// stamp records a local write for in-flight fetches. Callers hold s.mu.
func (s *OrderSync) stamp(id uint, marks map[uint]uint64) {
	if s.fetching == 0 {
		return
	}
	s.seq++
	marks[id] = s.seq
}

func (s *OrderSync) fetchFailed(ctx context.Context, err error) ([]OrderView, error) {
	s.log.WithError(err).Error("failed to fetch orders")
	if s.notifier != nil {
		s.notifier.Notify(ctx, "order_sync", "Failed to load orders", err.Error())
	}
	return s.Orders(), err
}

// Resync is FetchAll without the result.
func (s *OrderSync) Resync(ctx context.Context) error {
	_, err := s.FetchAll(ctx)
	return err
}

// Orders returns the local view, newest first.
func (s *OrderSync) Orders() []OrderView {
	s.mu.RLock()
	list := make([]OrderView, 0, len(s.orders))
	for _, v := range s.orders {
		list = append(list, v)
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

// Board groups the local view by status tab. Every tab is present, possibly empty.
func (s *OrderSync) Board() map[models.OrderStatus][]OrderView {
	board := make(map[models.OrderStatus][]OrderView, len(models.OrderStatuses))
	for _, st := range models.OrderStatuses {
		board[st] = []OrderView{}
	}
	for _, v := range s.Orders() {
		board[v.Status] = append(board[v.Status], v)
	}
	return board
}

func (s *OrderSync) Order(id uint) (OrderView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.orders[id]
	return v, ok
}

func (s *OrderSync) CreateOrder(ctx context.Context, in CreateOrderInput) (*OrderView, error) {
	if strings.TrimSpace(in.CustomerName) == "" {
		return nil, fmt.Errorf("%w: customer name is required", ErrInvalidOrder)
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrInvalidOrder)
	}

	var totalCents int64
	items := make([]models.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		if strings.TrimSpace(it.Name) == "" {
			return nil, fmt.Errorf("%w: item name is required", ErrInvalidOrder)
		}
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for %q must be positive", ErrInvalidOrder, it.Name)
		}
		if it.Price < 0 {
			return nil, fmt.Errorf("%w: price for %q cannot be negative", ErrInvalidOrder, it.Name)
		}
		item := models.OrderItem{
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    models.FromCents(models.ToCents(it.Price)),
		}
		totalCents += item.SubtotalCents()
		items = append(items, item)
	}

	order := &models.Order{
		CustomerName:        strings.TrimSpace(in.CustomerName),
		CustomerPhone:       strings.TrimSpace(in.CustomerPhone),
		CustomerAddress:     strings.TrimSpace(in.CustomerAddress),
		TotalAmount:         models.FromCents(totalCents),
		Status:              models.OrderStatusPlaced,
		EstimatedDeliveryAt: in.EstimatedDeliveryAt,
		OrderItems:          items,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	view := s.apply(*order)
	s.log.WithFields(logrus.Fields{"order_id": order.ID, "total": order.TotalAmount}).Info("order created")
	return &view, nil
}

// GetOrder reads one order from the store and refreshes its local view.
func (s *OrderSync) GetOrder(ctx context.Context, id uint) (*OrderView, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	view := s.apply(*order)
	return &view, nil
}

func (s *OrderSync) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) (*OrderView, error) {
	order, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	view := s.apply(*order)
	s.log.WithFields(logrus.Fields{"order_id": id, "status": status}).Info("order status updated")
	return &view, nil
}

// Advance moves the order to the next status in the fulfilment sequence.
func (s *OrderSync) Advance(ctx context.Context, id uint) (*OrderView, error) {
	current, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	next, ok := current.Status.Next()
	if !ok {
		return nil, &TransitionError{OrderID: id, From: current.Status}
	}
	return s.UpdateStatus(ctx, id, next)
}

func (s *OrderSync) UpdateLocation(ctx context.Context, id uint, loc models.Location) (*OrderView, error) {
	order, err := s.store.UpdateLocation(ctx, id, loc)
	if err != nil {
		return nil, err
	}
	view := s.apply(*order)
	return &view, nil
}

// HandleChange applies one journal entry to the local view and relays it to
// realtime clients.
func (s *OrderSync) HandleChange(ctx context.Context, change models.DBChange) error {
	var orderID uint
	switch change.TableName {
	case "orders":
		orderID = uint(change.RecordID)
		if change.ActionType == models.ActionDelete {
			s.remove(orderID)
			return nil
		}
	case "order_items":
		id, err := s.store.OrderIDForItem(ctx, uint(change.RecordID))
		if errors.Is(err, ErrOrderNotFound) {
			// The item is gone so its order is unknown; fall back to a full reload.
			return s.Resync(ctx)
		}
		if err != nil {
			return err
		}
		orderID = id
	default:
		return nil
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if errors.Is(err, ErrOrderNotFound) {
		s.remove(orderID)
		return nil
	}
	if err != nil {
		return err
	}

	view := s.apply(*order)
	if s.hub != nil {
		event := realtime.EventOrderUpdated
		if change.TableName == "orders" && change.ActionType == models.ActionInsert {
			event = realtime.EventOrderCreated
		}
		s.hub.Broadcast(event, view)
	}
	return nil
}

func (s *OrderSync) apply(order models.Order) OrderView {
	view := s.buildView(order)

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.orders[order.ID]; ok && cur.Version > order.Version {
		return cur
	}
	s.orders[order.ID] = view
	s.stamp(order.ID, s.touched)
	return view
}

func (s *OrderSync) remove(id uint) {
	s.mu.Lock()
	_, ok := s.orders[id]
	delete(s.orders, id)
	s.stamp(id, s.removed)
	s.mu.Unlock()

	if ok && s.hub != nil {
		s.hub.Broadcast(realtime.EventOrderDeleted, map[string]uint{"id": id})
	}
}

func (s *OrderSync) buildView(o models.Order) OrderView {
	view := OrderView{
		Order:        o,
		DisplayPhone: utils.FormatPhone(o.CustomerPhone),
		DisplayTime:  utils.FormatTime(o.CreatedAt, s.loc),
		DisplayTotal: utils.FormatCurrency(o.TotalAmount),
	}
	if o.EstimatedDeliveryAt != nil {
		view.DisplayETA = utils.FormatTime(*o.EstimatedDeliveryAt, s.loc)
	}
	if next, ok := o.Status.Next(); ok {
		view.NextStatus = &next
	}
	return view
}
