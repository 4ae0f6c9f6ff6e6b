package models

import "math"

type OrderStatus string

const (
	OrderStatusPlaced     OrderStatus = "placed"
	OrderStatusCooking    OrderStatus = "cooking"
	OrderStatusDispatched OrderStatus = "dispatched"
	OrderStatusDelivered  OrderStatus = "delivered"
)

// OrderStatuses lists every status in fulfilment order.
var OrderStatuses = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusCooking,
	OrderStatusDispatched,
	OrderStatusDelivered,
}

var allowedTransitions = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPlaced:     {OrderStatusCooking: true},
	OrderStatusCooking:    {OrderStatusDispatched: true},
	OrderStatusDispatched: {OrderStatusDelivered: true},
	OrderStatusDelivered:  {},
}

func (s OrderStatus) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return allowedTransitions[s][next]
}

// Next returns the single successor of s. ok is false for delivered and unknown statuses.
func (s OrderStatus) Next() (next OrderStatus, ok bool) {
	for candidate := range allowedTransitions[s] {
		return candidate, true
	}
	return "", false
}

func (s OrderStatus) IsTerminal() bool {
	_, ok := s.Next()
	return s.Valid() && !ok
}

// ToCents rounds a decimal amount to the smallest currency unit (ngwee).
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func FromCents(cents int64) float64 {
	return float64(cents) / 100
}
