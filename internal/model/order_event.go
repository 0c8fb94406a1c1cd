package model

import (
	"fmt"
	"strings"
)

// OrderEvent is the closed set of order lifecycle signals that move coins.
// Carrier and storefront status strings are mapped onto it by
// ParseOrderEvent and nowhere else.
type OrderEvent string

const (
	OrderPlaced    OrderEvent = "PLACED"
	OrderPlacedCOD OrderEvent = "PLACED_COD"
	OrderInTransit OrderEvent = "IN_TRANSIT"
	OrderDelivered OrderEvent = "DELIVERED"
	OrderCancelled OrderEvent = "CANCELLED"
	OrderRTO       OrderEvent = "RTO"
	OrderRefunded  OrderEvent = "REFUNDED"
)

var orderEventAliases = map[string]OrderEvent{
	"PLACED":    OrderPlaced,
	"CONFIRMED": OrderPlaced,
	"PAID":      OrderPlaced,
	"PREPAID":   OrderPlaced,

	"PLACED_COD": OrderPlacedCOD,
	"COD":        OrderPlacedCOD,
	"COD_PLACED": OrderPlacedCOD,

	"IN_TRANSIT":       OrderInTransit,
	"SHIPPED":          OrderInTransit,
	"ON_THE_WAY":       OrderInTransit,
	"OUT_FOR_DELIVERY": OrderInTransit,
	"PICKED_UP":        OrderInTransit,
	"MANIFESTED":       OrderInTransit,
	"PENDING_PICKUP":   OrderInTransit,

	"DELIVERED": OrderDelivered,

	"CANCELLED": OrderCancelled,
	"CANCELED":  OrderCancelled,

	"RTO":              OrderRTO,
	"RTO_INITIATED":    OrderRTO,
	"RTO_IN_TRANSIT":   OrderRTO,
	"RTO_DELIVERED":    OrderRTO,
	"RETURN_TO_ORIGIN": OrderRTO,
	"RETURNED":         OrderRTO,

	"REFUNDED": OrderRefunded,
}

// ParseOrderEvent normalises a status string ("On the way", "rto-delivered",
// "SHIPPED") to an OrderEvent.
func ParseOrderEvent(raw string) (OrderEvent, error) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if ev, ok := orderEventAliases[key]; ok {
		return ev, nil
	}
	return "", fmt.Errorf("unknown order status %q", raw)
}

// Settlement returns the status a pending order credit moves to, if any.
func (e OrderEvent) Settlement() (EntryStatus, bool) {
	switch e {
	case OrderDelivered:
		return StatusCompleted, true
	case OrderCancelled, OrderRTO, OrderRefunded:
		return StatusVoid, true
	default:
		return "", false
	}
}

// Earns reports whether the event credits coins, and whether they start pending.
func (e OrderEvent) Earns() (earns bool, pending bool) {
	switch e {
	case OrderPlaced:
		return true, false
	case OrderPlacedCOD:
		return true, true
	default:
		return false, false
	}
}
