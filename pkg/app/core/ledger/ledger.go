package ledger

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/uhyunpark/ordercache/pkg/app/core/order"
)

var (
	ErrDuplicateOrder = errors.New("duplicate order id")
	ErrWrongSecurity  = errors.New("order belongs to another security")
	ErrCorrupted      = errors.New("ledger corrupted")
)

// Strategy selects how a ledger keeps its matched quantity
type Strategy int

const (
	// Optimal runs the greedy pass and then augments until the matched
	// quantity equals Bound.
	Optimal Strategy = iota
	// Greedy only crosses orders in arrival order.
	Greedy
)

func (s Strategy) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Greedy:
		return "greedy"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy accepts "optimal" or "greedy"
func ParseStrategy(v string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "optimal", "":
		return Optimal, nil
	case "greedy":
		return Greedy, nil
	default:
		return 0, fmt.Errorf("unknown strategy %q", v)
	}
}

type pairKey struct {
	sell string
	buy  string
}

// Ledger keeps all resting orders of a single security and the quantity
// crossed between its buy and sell sides. A Ledger is not safe for
// concurrent use; the cache serializes access.
type Ledger struct {
	security string
	strategy Strategy

	buys  *book
	sells *book

	matches map[pairKey]uint64 // (sell, buy) -> crossed quantity
	matched uint64             // sum of matches

	seq uint64
}

func New(security string, strategy Strategy) *Ledger {
	return &Ledger{
		security: security,
		strategy: strategy,
		buys:     newBook(order.Buy),
		sells:    newBook(order.Sell),
		matches:  make(map[pairKey]uint64),
	}
}

func (l *Ledger) Security() string   { return l.security }
func (l *Ledger) Strategy() Strategy { return l.strategy }

// Matched returns the total quantity currently crossed in this security
func (l *Ledger) Matched() uint64 { return l.matched }

// Len returns the number of resting orders on both sides
func (l *Ledger) Len() int { return l.buys.len() + l.sells.len() }

func (l *Ledger) side(s order.Side) *book {
	if s == order.Buy {
		return l.buys
	}
	return l.sells
}

func (l *Ledger) lookup(id string) (*Record, bool) {
	if r, ok := l.buys.get(id); ok {
		return r, true
	}
	return l.sells.get(id)
}

// Contains reports whether the order rests in this ledger
func (l *Ledger) Contains(id string) bool {
	_, ok := l.lookup(id)
	return ok
}

// Remaining returns the uncrossed quantity of a resting order
func (l *Ledger) Remaining(id string) (uint64, bool) {
	r, ok := l.lookup(id)
	if !ok {
		return 0, false
	}
	return r.Remaining, true
}

// MatchAmount returns the quantity crossed between a sell and a buy order
func (l *Ledger) MatchAmount(sellID, buyID string) uint64 {
	return l.matches[pairKey{sell: sellID, buy: buyID}]
}

// Insert crosses o against the opposite side and rests it in the ledger
func (l *Ledger) Insert(o order.Order) error {
	if o.SecurityID != l.security {
		return fmt.Errorf("%w: order %s is for %s, ledger is %s", ErrWrongSecurity, o.ID, o.SecurityID, l.security)
	}
	if l.Contains(o.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateOrder, o.ID)
	}
	// Both sides together must fit in a uint64 so that every side, company
	// and Bound total below stays exact.
	if _, carry := bits.Add64(l.buys.qty+l.sells.qty, o.Qty, 0); carry != 0 {
		return fmt.Errorf("%w: order %s qty %d overflows resting quantity of %s", order.ErrInvalidOrder, o.ID, o.Qty, l.security)
	}

	l.seq++
	r := newRecord(o, l.seq)
	l.match(r)
	l.side(o.Side).insert(r)
	l.rebalance()
	return nil
}

// Remove cancels a single order and re-derives the matches it held.
// Returns false if the order is not in this ledger.
func (l *Ledger) Remove(id string) (order.Order, bool) {
	r, ok := l.lookup(id)
	if !ok {
		return order.Order{}, false
	}
	l.unmatch(r)
	l.side(r.Side).remove(r)
	l.refresh()
	return r.Order, true
}

// RemoveWhere cancels every order accepted by pred, buys first then sells,
// and refreshes matches once if anything was removed.
func (l *Ledger) RemoveWhere(pred func(o order.Order) bool) []order.Order {
	keep := func(r *Record) bool { return pred(r.Order) }
	victims := append(l.buys.collect(keep), l.sells.collect(keep)...)
	if len(victims) == 0 {
		return nil
	}

	removed := make([]order.Order, 0, len(victims))
	for _, r := range victims {
		l.unmatch(r)
		l.side(r.Side).remove(r)
		removed = append(removed, r.Order)
	}
	l.refresh()
	return removed
}

// Orders returns the resting orders, buys then sells, each in arrival order
func (l *Ledger) Orders() []order.Order {
	out := make([]order.Order, 0, l.Len())
	return l.appendOrders(out)
}

func (l *Ledger) appendOrders(out []order.Order) []order.Order {
	for _, b := range []*book{l.buys, l.sells} {
		b.ascend(func(r *Record) bool {
			out = append(out, r.Order)
			return true
		})
	}
	return out
}

// AppendOrders appends the resting orders to dst in the same order as Orders
func (l *Ledger) AppendOrders(dst []order.Order) []order.Order {
	return l.appendOrders(dst)
}

// Stats summarizes one security
type Stats struct {
	Security   string
	BuyOrders  int
	SellOrders int
	BuyQty     uint64 // original quantity resting on the buy side
	SellQty    uint64
	OpenBuy    uint64 // uncrossed buy quantity
	OpenSell   uint64
	Matched    uint64
	Bound      uint64
}

func (l *Ledger) Stats() Stats {
	st := Stats{
		Security:   l.security,
		BuyOrders:  l.buys.len(),
		SellOrders: l.sells.len(),
		BuyQty:     l.buys.qty,
		SellQty:    l.sells.qty,
		Matched:    l.matched,
		Bound:      l.Bound(),
	}
	l.buys.ascend(func(r *Record) bool {
		st.OpenBuy += r.Remaining
		return true
	})
	l.sells.ascend(func(r *Record) bool {
		st.OpenSell += r.Remaining
		return true
	})
	return st
}
