package models

import (
	"fmt"
	"strings"
)

// Basket is a derived, per-desk view of a miv's relevance.
type Basket string

const (
	// BasketNone means the miv belongs to no basket for the viewer, e.g. an
	// ACK seen by its own sender. It is still visible in the thread.
	BasketNone     Basket = ""
	BasketIn       Basket = "IN"
	BasketPending  Basket = "PENDING"
	BasketSent     Basket = "SENT"
	BasketArchived Basket = "ARCHIVED"
)

// Baskets lists every listable basket in display order.
var Baskets = []Basket{BasketIn, BasketPending, BasketSent, BasketArchived}

// ParseBasket parses a basket name case-insensitively.
func ParseBasket(value string) (Basket, error) {
	switch Basket(strings.ToUpper(strings.TrimSpace(value))) {
	case BasketIn:
		return BasketIn, nil
	case BasketPending:
		return BasketPending, nil
	case BasketSent:
		return BasketSent, nil
	case BasketArchived:
		return BasketArchived, nil
	default:
		return BasketNone, fmt.Errorf("%w: %q", ErrInvalidBasket, value)
	}
}

// Valid reports whether b is a listable basket.
func (b Basket) Valid() bool {
	switch b {
	case BasketIn, BasketPending, BasketSent, BasketArchived:
		return true
	}
	return false
}

func (b Basket) String() string {
	if b == BasketNone {
		return "-"
	}
	return string(b)
}
