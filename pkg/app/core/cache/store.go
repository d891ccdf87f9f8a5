package cache

import (
	"fmt"

	"github.com/uhyunpark/ordercache/pkg/app/core/ledger"
	"github.com/uhyunpark/ordercache/pkg/app/core/order"
)

// Store owns one ledger per security plus a global order id index.
// Ledgers are created on the first order for a security and kept for the
// lifetime of the store. Store is not safe for concurrent use.
type Store struct {
	strategy ledger.Strategy

	ledgers    map[string]*ledger.Ledger // security -> ledger
	securities []string                  // first-seen order
	index      map[string]string         // order id -> security
}

// NewStore creates an empty store whose ledgers use strategy
func NewStore(strategy ledger.Strategy) *Store {
	return &Store{
		strategy: strategy,
		ledgers:  make(map[string]*ledger.Ledger),
		index:    make(map[string]string),
	}
}

// Ledger returns the ledger of a security, if any order was ever placed on it
func (s *Store) Ledger(security string) (*ledger.Ledger, bool) {
	l, ok := s.ledgers[security]
	return l, ok
}

func (s *Store) ledgerFor(security string) *ledger.Ledger {
	if l, ok := s.ledgers[security]; ok {
		return l
	}
	l := ledger.New(security, s.strategy)
	s.ledgers[security] = l
	s.securities = append(s.securities, security)
	return l
}

// Insert places a validated order in its security's ledger.
// Returns ErrDuplicateOrder if the id is resting anywhere in the store.
func (s *Store) Insert(o order.Order) (*ledger.Ledger, error) {
	if sec, exists := s.index[o.ID]; exists {
		return nil, fmt.Errorf("%w: %s already resting in %s", ErrDuplicateOrder, o.ID, sec)
	}
	l := s.ledgerFor(o.SecurityID)
	if err := l.Insert(o); err != nil {
		return nil, err
	}
	s.index[o.ID] = o.SecurityID
	return l, nil
}

// Remove cancels an order by id
func (s *Store) Remove(id string) (order.Order, *ledger.Ledger, bool) {
	sec, ok := s.index[id]
	if !ok {
		return order.Order{}, nil, false
	}
	l := s.ledgers[sec]
	o, ok := l.Remove(id)
	if !ok {
		panic(fmt.Errorf("%w: order %s indexed in %s but not resting there", ledger.ErrCorrupted, id, sec))
	}
	delete(s.index, id)
	return o, l, true
}

// RemoveWhere cancels every order of l accepted by pred
func (s *Store) RemoveWhere(l *ledger.Ledger, pred func(o order.Order) bool) []order.Order {
	removed := l.RemoveWhere(pred)
	for _, o := range removed {
		delete(s.index, o.ID)
	}
	return removed
}

// Ledgers returns every ledger in first-seen order
func (s *Store) Ledgers() []*ledger.Ledger {
	out := make([]*ledger.Ledger, 0, len(s.securities))
	for _, sec := range s.securities {
		out = append(out, s.ledgers[sec])
	}
	return out
}

// Securities returns a copy of the known securities in first-seen order
func (s *Store) Securities() []string {
	out := make([]string, len(s.securities))
	copy(out, s.securities)
	return out
}

// Len returns the number of resting orders
func (s *Store) Len() int {
	return len(s.index)
}
