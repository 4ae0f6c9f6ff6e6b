package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zedbites/backoffice/models"
	"golang.org/x/time/rate"
)

type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

var DefaultPositionOptions = PositionOptions{
	HighAccuracy: true,
	Timeout:      10 * time.Second,
	MaximumAge:   60 * time.Second,
}

type Position struct {
	Lat       float64   `json:"lat" binding:"required"`
	Lng       float64   `json:"lng" binding:"required"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// PositionSource is a continuous position watch, e.g. a driver's phone.
// Both channels stay open until ctx is cancelled.
type PositionSource interface {
	Watch(ctx context.Context, opts PositionOptions) (<-chan Position, <-chan error, error)
}

// DeliveryOrders is the subset of OrderSync a tracker drives.
type DeliveryOrders interface {
	GetOrder(ctx context.Context, id uint) (*OrderView, error)
	UpdateLocation(ctx context.Context, id uint, loc models.Location) (*OrderView, error)
	UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) (*OrderView, error)
}

// DeliveryTracker pushes the positions of one order's courier to the order
// store. It holds at most one active watch.
type DeliveryTracker struct {
	OrderID  uint
	Options  PositionOptions
	source   PositionSource
	orders   DeliveryOrders
	notifier Notifier
	limiter  *rate.Limiter
	log      *logrus.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDeliveryTracker builds a tracker. minInterval > 0 drops positions that
// arrive faster than one per interval.
func NewDeliveryTracker(orderID uint, source PositionSource, orders DeliveryOrders, notifier Notifier, minInterval time.Duration, log *logrus.Logger) *DeliveryTracker {
	t := &DeliveryTracker{
		OrderID:  orderID,
		Options:  DefaultPositionOptions,
		source:   source,
		orders:   orders,
		notifier: notifier,
		log:      log,
	}
	if minInterval > 0 {
		t.limiter = rate.NewLimiter(rate.Every(minInterval), 1)
	}
	return t
}

func (t *DeliveryTracker) IsTracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done != nil
}

// StartTracking registers the position watch. A second call while tracking is a no-op.
func (t *DeliveryTracker) StartTracking() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done != nil {
		return nil
	}
	if t.source == nil {
		t.report("Location unavailable", ErrNoPositionSource.Error())
		return ErrNoPositionSource
	}

	ctx, cancel := context.WithCancel(context.Background())
	positions, errs, err := t.source.Watch(ctx, t.Options)
	if err != nil {
		cancel()
		t.report("Location tracking failed", err.Error())
		return err
	}

	done := make(chan struct{})
	t.cancel = cancel
	t.done = done
	go t.run(ctx, done, positions, errs)

	t.log.WithField("order_id", t.OrderID).Info("delivery tracking started")
	return nil
}

// StopTracking cancels the watch and waits for the pump to exit. Safe to call repeatedly.
func (t *DeliveryTracker) StopTracking() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	t.log.WithField("order_id", t.OrderID).Info("delivery tracking stopped")
}

// MarkDelivered stops tracking and then moves the order to delivered.
func (t *DeliveryTracker) MarkDelivered(ctx context.Context) (*OrderView, error) {
	t.StopTracking()
	return t.orders.UpdateStatus(ctx, t.OrderID, models.OrderStatusDelivered)
}

func (t *DeliveryTracker) run(ctx context.Context, done chan struct{}, positions <-chan Position, errs <-chan error) {
	defer close(done)

	timeout := time.NewTimer(t.Options.Timeout)
	defer timeout.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case pos := <-positions:
			if !timeout.Stop() {
				select {
				case <-timeout.C:
				default:
				}
			}
			timeout.Reset(t.Options.Timeout)
			t.push(ctx, pos)

		case <-timeout.C:
			// Reported once; the next position re-arms the timer.
			t.report("Location timeout", "no position received from the delivery device")

		case err := <-errs:
			t.report("Location tracking failed", err.Error())
			t.abandon(done)
			return
		}
	}
}

func (t *DeliveryTracker) push(ctx context.Context, pos Position) {
	if t.Options.MaximumAge > 0 && !pos.Timestamp.IsZero() && time.Since(pos.Timestamp) > t.Options.MaximumAge {
		return
	}
	if t.limiter != nil && !t.limiter.Allow() {
		return
	}

	if _, err := t.orders.UpdateLocation(ctx, t.OrderID, models.Location{Lat: pos.Lat, Lng: pos.Lng}); err != nil {
		if ctx.Err() != nil {
			return
		}
		t.log.WithError(err).WithField("order_id", t.OrderID).Warn("failed to push location")
	}
}

// abandon resets the tracker to "not started" after a watch error, unless
// StopTracking already did so.
func (t *DeliveryTracker) abandon(done chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done == done {
		t.cancel()
		t.cancel, t.done = nil, nil
	}
}

func (t *DeliveryTracker) report(title, message string) {
	if t.notifier != nil {
		t.notifier.Notify(context.Background(), "delivery_tracker", title, message)
	}
}

// ChannelSource is a PositionSource fed by positions posted from the driver's device.
// A watch is released as soon as its context is cancelled.
type ChannelSource struct {
	mu        sync.Mutex
	watch     context.Context
	positions chan Position
	errs      chan error
}

func NewChannelSource() *ChannelSource {
	return &ChannelSource{}
}

func (s *ChannelSource) Watch(ctx context.Context, opts PositionOptions) (<-chan Position, <-chan error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active() {
		return nil, nil, ErrWatchAlreadyActive
	}

	positions := make(chan Position, 16)
	errs := make(chan error, 1)
	s.watch, s.positions, s.errs = ctx, positions, errs
	return positions, errs, nil
}

// active reports whether a watch is registered and not cancelled. Callers hold s.mu.
func (s *ChannelSource) active() bool {
	return s.watch != nil && s.watch.Err() == nil
}

// Push hands a position to the active watch without blocking.
func (s *ChannelSource) Push(pos Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return ErrTrackingNotStarted
	}
	select {
	case s.positions <- pos:
		return nil
	default:
		return ErrPositionBufferFull
	}
}

// Fail reports a device-side error (permission denied, unavailable) to the watch.
func (s *ChannelSource) Fail(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return ErrTrackingNotStarted
	}
	select {
	case s.errs <- err:
	default:
	}
	return nil
}

// TrackerRegistry owns one tracker per order in delivery.
type TrackerRegistry struct {
	orders      DeliveryOrders
	notifier    Notifier
	minInterval time.Duration
	log         *logrus.Logger

	mu       sync.Mutex
	trackers map[uint]*registeredTracker
}

type registeredTracker struct {
	tracker *DeliveryTracker
	source  *ChannelSource
}

func NewTrackerRegistry(orders DeliveryOrders, notifier Notifier, minInterval time.Duration, log *logrus.Logger) *TrackerRegistry {
	return &TrackerRegistry{
		orders:      orders,
		notifier:    notifier,
		minInterval: minInterval,
		log:         log,
		trackers:    make(map[uint]*registeredTracker),
	}
}

func (r *TrackerRegistry) lookup(orderID uint) (*registeredTracker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.trackers[orderID]
	return rt, ok
}

// Start begins tracking an order that is out for delivery.
func (r *TrackerRegistry) Start(ctx context.Context, orderID uint) error {
	order, err := r.orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != models.OrderStatusDispatched {
		return fmt.Errorf("%w: order %d is %s", ErrNotInDelivery, orderID, order.Status)
	}

	r.mu.Lock()
	rt, ok := r.trackers[orderID]
	if !ok {
		src := NewChannelSource()
		rt = &registeredTracker{
			tracker: NewDeliveryTracker(orderID, src, r.orders, r.notifier, r.minInterval, r.log),
			source:  src,
		}
		r.trackers[orderID] = rt
	}
	r.mu.Unlock()

	return rt.tracker.StartTracking()
}

func (r *TrackerRegistry) Push(orderID uint, pos Position) error {
	rt, ok := r.lookup(orderID)
	if !ok {
		return ErrTrackingNotStarted
	}
	return rt.source.Push(pos)
}

func (r *TrackerRegistry) Fail(orderID uint, err error) error {
	rt, ok := r.lookup(orderID)
	if !ok {
		return ErrTrackingNotStarted
	}
	return rt.source.Fail(err)
}

// Stop cancels the order's watch and forgets its tracker.
func (r *TrackerRegistry) Stop(orderID uint) {
	r.mu.Lock()
	rt, ok := r.trackers[orderID]
	delete(r.trackers, orderID)
	r.mu.Unlock()
	if ok {
		rt.tracker.StopTracking()
	}
}

func (r *TrackerRegistry) IsTracking(orderID uint) bool {
	rt, ok := r.lookup(orderID)
	return ok && rt.tracker.IsTracking()
}

// MarkDelivered stops tracking, advances the order and forgets its tracker.
// An order that was never tracked is moved to delivered directly.
func (r *TrackerRegistry) MarkDelivered(ctx context.Context, orderID uint) (*OrderView, error) {
	rt, ok := r.lookup(orderID)
	if !ok {
		return r.orders.UpdateStatus(ctx, orderID, models.OrderStatusDelivered)
	}
	view, err := rt.tracker.MarkDelivered(ctx)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	if r.trackers[orderID] == rt {
		delete(r.trackers, orderID)
	}
	r.mu.Unlock()
	return view, nil
}

// StopAll cancels every active watch, used on shutdown.
func (r *TrackerRegistry) StopAll() {
	r.mu.Lock()
	list := make([]*registeredTracker, 0, len(r.trackers))
	for _, rt := range r.trackers {
		list = append(list, rt)
	}
	r.mu.Unlock()

	for _, rt := range list {
		rt.tracker.StopTracking()
	}
}
