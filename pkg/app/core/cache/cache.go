// Package cache is an in-memory order cache partitioned by security. For
// every security it maintains the quantity that can be crossed between buy
// and sell orders of different companies.
package cache

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/uhyunpark/ordercache/pkg/app/core/ledger"
	"github.com/uhyunpark/ordercache/pkg/app/core/order"
	"github.com/uhyunpark/ordercache/pkg/util"
)

var (
	ErrInvalidOrder   = order.ErrInvalidOrder
	ErrDuplicateOrder = ledger.ErrDuplicateOrder
)

// Cache serializes access to the store with a single RWMutex: mutations take
// the write lock, queries the read lock.
type Cache struct {
	mu    sync.RWMutex
	store *Store

	strategy ledger.Strategy
	verify   bool
	log      *zap.Logger
	observer Observer
	clock    util.Clock
}

func New(opts ...Option) *Cache {
	c := &Cache{
		strategy: ledger.Optimal,
		log:      zap.NewNop(),
		observer: nopObserver{},
		clock:    util.RealClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.store = NewStore(c.strategy)
	return c
}

func (c *Cache) Strategy() ledger.Strategy { return c.strategy }

// AddOrder validates o, crosses it against its security and rests it.
// Nothing is changed when an error is returned.
func (c *Cache) AddOrder(o order.Order) error {
	start := c.clock.Now()

	if err := o.Validate(); err != nil {
		c.mu.Lock()
		c.observer.OrderRejected(ReasonInvalid)
		c.mu.Unlock()
		c.log.Debug("order_rejected", zap.String("id", o.ID), zap.Error(err))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	l, err := c.store.Insert(o)
	if err != nil {
		reason := ReasonInvalid
		if errors.Is(err, ErrDuplicateOrder) {
			reason = ReasonDuplicate
		}
		c.observer.OrderRejected(reason)
		c.log.Debug("order_rejected", zap.String("id", o.ID), zap.Error(err))
		return err
	}

	c.observer.OrderAdded(o)
	c.afterMutation(l)
	c.log.Debug("order_added",
		zap.String("id", o.ID),
		zap.String("security", o.SecurityID),
		zap.Stringer("side", o.Side),
		zap.Uint64("qty", o.Qty),
		zap.Uint64("matched", l.Matched()),
	)
	c.observer.OperationObserved(OpAdd, c.clock.Since(start))
	return nil
}

// CancelOrder removes a single order. Unknown ids are ignored.
func (c *Cache) CancelOrder(id string) {
	start := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	o, l, ok := c.store.Remove(id)
	if ok {
		c.observer.OrdersCancelled(o.SecurityID, 1)
		c.afterMutation(l)
		c.log.Debug("order_cancelled",
			zap.String("id", id),
			zap.String("security", o.SecurityID),
			zap.Uint64("matched", l.Matched()),
		)
	}
	c.observer.OperationObserved(OpCancel, c.clock.Since(start))
}

// CancelOrdersForUser removes every order placed by user, in every security
func (c *Cache) CancelOrdersForUser(user string) {
	start := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, l := range c.store.Ledgers() {
		removed := c.store.RemoveWhere(l, func(o order.Order) bool { return o.User == user })
		if len(removed) == 0 {
			continue
		}
		total += len(removed)
		c.observer.OrdersCancelled(l.Security(), len(removed))
		c.afterMutation(l)
	}
	if total > 0 {
		c.log.Debug("user_orders_cancelled", zap.String("user", user), zap.Int("count", total))
	}
	c.observer.OperationObserved(OpCancelUser, c.clock.Since(start))
}

// CancelOrdersForSecIDWithMinimumQty removes the orders of a security whose
// original quantity is at least minQty
func (c *Cache) CancelOrdersForSecIDWithMinimumQty(securityID string, minQty uint64) {
	start := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := c.store.Ledger(securityID); ok {
		removed := c.store.RemoveWhere(l, func(o order.Order) bool { return o.Qty >= minQty })
		if len(removed) > 0 {
			c.observer.OrdersCancelled(securityID, len(removed))
			c.afterMutation(l)
			c.log.Debug("security_orders_cancelled",
				zap.String("security", securityID),
				zap.Uint64("min_qty", minQty),
				zap.Int("count", len(removed)),
			)
		}
	}
	c.observer.OperationObserved(OpCancelMinQty, c.clock.Since(start))
}

// MatchingSizeForSecurity returns the quantity currently crossed in a
// security, or 0 if it has never been seen
func (c *Cache) MatchingSizeForSecurity(securityID string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if l, ok := c.store.Ledger(securityID); ok {
		return l.Matched()
	}
	return 0
}

// AllOrders returns a snapshot of the resting orders: securities in
// first-seen order, and within each, buys then sells in arrival order
func (c *Cache) AllOrders() []order.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]order.Order, 0, c.store.Len())
	for _, l := range c.store.Ledgers() {
		out = l.AppendOrders(out)
	}
	return out
}

// Securities returns every security seen so far in first-seen order
func (c *Cache) Securities() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.Securities()
}

// Len returns the number of resting orders
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.Len()
}

func (c *Cache) SecurityStats(securityID string) (ledger.Stats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	l, ok := c.store.Ledger(securityID)
	if !ok {
		return ledger.Stats{}, false
	}
	return l.Stats(), true
}

// Verify checks the invariants of every ledger
func (c *Cache) Verify() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs []error
	for _, l := range c.store.Ledgers() {
		if err := l.Verify(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// afterMutation runs with the write lock held
func (c *Cache) afterMutation(l *ledger.Ledger) {
	if c.verify {
		if err := l.Verify(); err != nil {
			c.log.Error("invariant_violation", zap.String("security", l.Security()), zap.Error(err))
			panic(err)
		}
	}
	c.observer.SecurityUpdated(l.Security(), l.Matched(), l.Len())
}
