package services

import (
	"errors"
	"fmt"

	"github.com/zedbites/backoffice/models"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidTransition  = errors.New("invalid order status transition")
	ErrUnknownStatus      = errors.New("unknown order status")
	ErrConcurrentUpdate   = errors.New("order was modified concurrently")
	ErrInvalidOrder       = errors.New("invalid order")
	ErrInvalidLocation    = errors.New("location out of range")
	ErrDuplicateRecipient = errors.New("recipient already registered for this report type")
	ErrRecipientNotFound  = errors.New("recipient not found")
	ErrInvalidRecipient   = errors.New("invalid recipient")
	ErrNoPositionSource   = errors.New("geolocation is not available for this device")
	ErrTrackingNotStarted = errors.New("tracking has not been started")
	ErrWatchAlreadyActive = errors.New("a position watch is already active")
	ErrPositionBufferFull = errors.New("position buffer full")
	ErrNotInDelivery      = errors.New("order is not out for delivery")
	ErrUnknownReportType  = errors.New("unknown report type")
	ErrRecipientQuery     = errors.New("failed to load recipients")
	ErrMetricsUnavailable = errors.New("failed to build metrics snapshot")
)

// TransitionError describes a rejected status change.
type TransitionError struct {
	OrderID uint
	From    models.OrderStatus
	To      models.OrderStatus
}

func (e *TransitionError) Error() string {
	if e.From.IsTerminal() {
		return fmt.Sprintf("order %d is already %s", e.OrderID, e.From)
	}
	return fmt.Sprintf("order %d cannot move from %s to %s", e.OrderID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
