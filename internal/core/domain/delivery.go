// internal/core/domain/delivery.go
package domain

import (
	"strings"
	"time"
)

// DeliveryType distinguishes walk-in sales from ones requiring fulfilment.
type DeliveryType string

const (
	DeliveryWalkIn   DeliveryType = "walk_in"
	DeliveryDelivery DeliveryType = "delivery"
)

// ParseDeliveryType normalizes an external type string into the enum.
// Unknown values are rejected rather than coerced to walk-in, which would
// silently strip the sale of its fulfilment state machine.
func ParseDeliveryType(raw string) (DeliveryType, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), "-", "_"))
	switch DeliveryType(norm) {
	case DeliveryWalkIn, DeliveryDelivery:
		return DeliveryType(norm), nil
	}
	return "", &ValidationError{Field: "delivery_type", Reason: "unknown value " + raw}
}

// Valid reports whether the type is a member of the enum.
func (t DeliveryType) Valid() bool {
	return t == DeliveryWalkIn || t == DeliveryDelivery
}

// DeliveryStatus is the closed delivery state enumeration. Mixed casings
// from upstream clients ("in-transit", "IN_TRANSIT") are normalized once at
// the boundary via ParseDeliveryStatus, never compared case-insensitively
// downstream.
type DeliveryStatus string

const (
	DeliveryPending        DeliveryStatus = "PENDING"
	DeliveryInTransit      DeliveryStatus = "IN_TRANSIT"
	DeliveryOutForDelivery DeliveryStatus = "OUT_FOR_DELIVERY"
	DeliveryDelivered      DeliveryStatus = "DELIVERED"
	DeliveryFailed         DeliveryStatus = "FAILED"
)

// ParseDeliveryStatus normalizes an external status string into the enum.
func ParseDeliveryStatus(raw string) (DeliveryStatus, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), "-", "_"))
	switch DeliveryStatus(norm) {
	case DeliveryPending, DeliveryInTransit, DeliveryOutForDelivery, DeliveryDelivered, DeliveryFailed:
		return DeliveryStatus(norm), nil
	}
	return "", &ValidationError{Field: "delivery_status", Reason: "unknown value " + raw}
}

// Terminal reports whether no further transition is allowed.
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryDelivered || s == DeliveryFailed
}

// Delivery is the optional fulfilment state attached to a sale. It is the
// only part of a sale that may mutate after creation.
type Delivery struct {
	Type        DeliveryType   `json:"type"`
	Status      DeliveryStatus `json:"status"`
	Address     string         `json:"address,omitempty"`
	DeliveredAt *time.Time     `json:"delivered_at,omitempty"`
}

// Transition advances the delivery state machine:
//
//	PENDING -> IN_TRANSIT | OUT_FOR_DELIVERY
//	IN_TRANSIT -> OUT_FOR_DELIVERY | DELIVERED
//	OUT_FOR_DELIVERY -> DELIVERED
//	any non-terminal -> FAILED
//
// DELIVERED and FAILED are terminal. DELIVERED stamps DeliveredAt.
func (d *Delivery) Transition(to DeliveryStatus, now time.Time) error {
	if d.Status.Terminal() {
		return ErrInvalidTransition
	}

	ok := false
	switch to {
	case DeliveryFailed:
		ok = true
	case DeliveryInTransit:
		ok = d.Status == DeliveryPending
	case DeliveryOutForDelivery:
		ok = d.Status == DeliveryPending || d.Status == DeliveryInTransit
	case DeliveryDelivered:
		ok = d.Status == DeliveryInTransit || d.Status == DeliveryOutForDelivery
	}
	if !ok {
		return ErrInvalidTransition
	}

	d.Status = to
	if to == DeliveryDelivered {
		at := now
		d.DeliveredAt = &at
	}
	return nil
}
