package cache

import (
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/ordercache/pkg/app/core/ledger"
	"github.com/uhyunpark/ordercache/pkg/app/core/order"
	"github.com/uhyunpark/ordercache/pkg/util"
)

// Operation names reported to the Observer
const (
	OpAdd          = "add"
	OpCancel       = "cancel"
	OpCancelUser   = "cancel_user"
	OpCancelMinQty = "cancel_min_qty"
)

// Reject reasons reported to the Observer
const (
	ReasonInvalid   = "invalid"
	ReasonDuplicate = "duplicate"
)

// Observer is notified after each mutation, while the cache write lock is
// held. Implementations must not call back into the cache.
type Observer interface {
	OrderAdded(o order.Order)
	OrderRejected(reason string)
	OrdersCancelled(security string, n int)
	SecurityUpdated(security string, matched uint64, open int)
	OperationObserved(op string, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) OrderAdded(order.Order)                  {}
func (nopObserver) OrderRejected(string)                    {}
func (nopObserver) OrdersCancelled(string, int)             {}
func (nopObserver) SecurityUpdated(string, uint64, int)     {}
func (nopObserver) OperationObserved(string, time.Duration) {}

type Option func(*Cache)

// WithLogger sets the logger. Defaults to zap.NewNop.
func WithLogger(log *zap.Logger) Option {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

func WithObserver(obs Observer) Option {
	return func(c *Cache) {
		if obs != nil {
			c.observer = obs
		}
	}
}

// WithStrategy selects greedy or optimal matching for every ledger
func WithStrategy(s ledger.Strategy) Option {
	return func(c *Cache) {
		c.strategy = s
	}
}

// WithInvariantChecks verifies the touched ledger after every mutation and
// panics on a violation.
func WithInvariantChecks(enabled bool) Option {
	return func(c *Cache) {
		c.verify = enabled
	}
}

func WithClock(clock util.Clock) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}
