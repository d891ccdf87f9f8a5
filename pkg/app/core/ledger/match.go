package ledger

import (
	"fmt"

	"github.com/uhyunpark/ordercache/pkg/app/core/order"
)

func min(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func keyOf(a, b *Record) pairKey {
	if a.Side == order.Sell {
		return pairKey{sell: a.ID, buy: b.ID}
	}
	return pairKey{sell: b.ID, buy: a.ID}
}

// match crosses r against the open orders of the opposite side in arrival
// order, skipping orders of the same company, until r is exhausted.
func (l *Ledger) match(r *Record) {
	if r.Remaining == 0 {
		return
	}
	opp := l.side(r.Side.Opposite())
	var filled []*Record
	opp.open.Ascend(func(c *Record) bool {
		if c.Company == r.Company {
			return true
		}
		l.cross(r, c, min(r.Remaining, c.Remaining))
		if c.Remaining == 0 {
			filled = append(filled, c)
		}
		return r.Remaining > 0
	})
	for _, c := range filled {
		opp.open.Delete(c)
	}
	l.side(r.Side).touch(r)
}

// cross records qty crossed between a and b and consumes it from both
func (l *Ledger) cross(a, b *Record, qty uint64) {
	l.link(a, b, qty)
	a.Remaining -= qty
	b.Remaining -= qty
	l.matched += qty
}

// link adds qty to the (sell, buy) entry without touching Remaining
func (l *Ledger) link(a, b *Record, qty uint64) {
	l.matches[keyOf(a, b)] += qty
	a.matchedWith[b.ID] = struct{}{}
	b.matchedWith[a.ID] = struct{}{}
}

// unlink removes qty from the (sell, buy) entry without touching Remaining
func (l *Ledger) unlink(a, b *Record, qty uint64) {
	k := keyOf(a, b)
	cur, ok := l.matches[k]
	if !ok || cur < qty {
		panic(fmt.Errorf("%w: security %s: unlink %d from match %s/%s holding %d", ErrCorrupted, l.security, qty, k.sell, k.buy, cur))
	}
	if cur == qty {
		delete(l.matches, k)
		delete(a.matchedWith, b.ID)
		delete(b.matchedWith, a.ID)
		return
	}
	l.matches[k] = cur - qty
}

// unmatch reverses every match entry held by r and returns the quantity to
// its counterparties. Counterparties are not re-matched here.
func (l *Ledger) unmatch(r *Record) {
	opp := l.side(r.Side.Opposite())
	for id := range r.matchedWith {
		c, ok := opp.get(id)
		if !ok {
			panic(fmt.Errorf("%w: security %s: order %s matched with missing order %s", ErrCorrupted, l.security, r.ID, id))
		}
		k := keyOf(r, c)
		qty, ok := l.matches[k]
		if !ok {
			panic(fmt.Errorf("%w: security %s: no match entry %s/%s", ErrCorrupted, l.security, k.sell, k.buy))
		}
		delete(l.matches, k)
		delete(c.matchedWith, r.ID)
		c.Remaining += qty
		r.Remaining += qty
		l.matched -= qty
		opp.touch(c)
	}
	clear(r.matchedWith)
	l.side(r.Side).touch(r)
}

// refresh re-runs matching for every sell with quantity left, then
// rebalances. Called once after a cancellation.
func (l *Ledger) refresh() {
	for _, s := range l.sells.openRecords() {
		l.match(s)
	}
	l.rebalance()
}
