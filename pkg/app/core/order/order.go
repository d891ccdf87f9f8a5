package order

import (
	"errors"
	"fmt"
	"strings"
)

type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

var ErrInvalidOrder = errors.New("invalid order")

// String returns "Buy" or "Sell"
func (s Side) String() string {
	switch s {
	case Buy:
		return "Buy"
	case Sell:
		return "Sell"
	default:
		return fmt.Sprintf("Side(%d)", int8(s))
	}
}

// Opposite returns the side an order crosses against
func (s Side) Opposite() Side {
	return -s
}

func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// ParseSide accepts "buy"/"sell" in any case
func ParseSide(v string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return 0, fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, v)
	}
}

// Order is an immutable client order. Qty is the original quantity and never
// changes after insertion.
type Order struct {
	ID         string
	SecurityID string
	Side       Side
	Qty        uint64
	User       string
	Company    string
}

// Validate checks the fields required to place the order in a ledger
func (o Order) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("%w: order id is required", ErrInvalidOrder)
	}
	if o.SecurityID == "" {
		return fmt.Errorf("%w: order %s: security id is required", ErrInvalidOrder, o.ID)
	}
	if o.Company == "" {
		return fmt.Errorf("%w: order %s: company is required", ErrInvalidOrder, o.ID)
	}
	if !o.Side.Valid() {
		return fmt.Errorf("%w: order %s: invalid side %d", ErrInvalidOrder, o.ID, int8(o.Side))
	}
	if o.Qty == 0 {
		return fmt.Errorf("%w: order %s: quantity must be positive", ErrInvalidOrder, o.ID)
	}
	return nil
}
