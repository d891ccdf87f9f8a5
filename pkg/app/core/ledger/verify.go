package ledger

import "fmt"

// Verify checks the ledger invariants and returns an error wrapping
// ErrCorrupted describing the first violation found.
func (l *Ledger) Verify() error {
	corrupt := func(format string, args ...any) error {
		return fmt.Errorf("%w: security %s: %s", ErrCorrupted, l.security, fmt.Sprintf(format, args...))
	}

	var sum uint64
	perOrder := make(map[string]uint64)
	pairs := make(map[string]int)
	for k, q := range l.matches {
		s, ok := l.sells.get(k.sell)
		if !ok {
			return corrupt("match %s/%s references missing sell", k.sell, k.buy)
		}
		b, ok := l.buys.get(k.buy)
		if !ok {
			return corrupt("match %s/%s references missing buy", k.sell, k.buy)
		}
		if q == 0 {
			return corrupt("match %s/%s holds zero quantity", k.sell, k.buy)
		}
		if s.Company == b.Company {
			return corrupt("match %s/%s crosses company %s with itself", k.sell, k.buy, s.Company)
		}
		if _, ok := s.matchedWith[b.ID]; !ok {
			return corrupt("sell %s does not reference buy %s", s.ID, b.ID)
		}
		if _, ok := b.matchedWith[s.ID]; !ok {
			return corrupt("buy %s does not reference sell %s", b.ID, s.ID)
		}
		sum += q
		perOrder[s.ID] += q
		perOrder[b.ID] += q
		pairs[s.ID]++
		pairs[b.ID]++
	}
	if sum != l.matched {
		return corrupt("matched %d but entries sum to %d", l.matched, sum)
	}

	for _, bk := range []*book{l.buys, l.sells} {
		if bk.bySeq.Len() != len(bk.byID) {
			return corrupt("%s index sizes differ: %d by seq, %d by id", bk.side, bk.bySeq.Len(), len(bk.byID))
		}
		var qty uint64
		open := 0
		companies := make(map[string]uint64)
		var err error
		bk.ascend(func(r *Record) bool {
			switch {
			case r.Side != bk.side:
				err = corrupt("order %s (%s) rests on the %s side", r.ID, r.Side, bk.side)
			case r.Remaining > r.Qty:
				err = corrupt("order %s remaining %d exceeds qty %d", r.ID, r.Remaining, r.Qty)
			case r.Qty-r.Remaining != perOrder[r.ID]:
				err = corrupt("order %s crossed %d but matches sum to %d", r.ID, r.Qty-r.Remaining, perOrder[r.ID])
			case len(r.matchedWith) != pairs[r.ID]:
				err = corrupt("order %s references %d counterparties, %d match entries", r.ID, len(r.matchedWith), pairs[r.ID])
			}
			if r.Remaining > 0 {
				open++
				if _, ok := bk.open.Get(r); !ok {
					err = corrupt("order %s has %d remaining but is not in the open index", r.ID, r.Remaining)
				}
			}
			qty += r.Qty
			companies[r.Company] += r.Qty
			return err == nil
		})
		if err != nil {
			return err
		}
		if open != bk.open.Len() {
			return corrupt("%s open index holds %d records, %d have quantity left", bk.side, bk.open.Len(), open)
		}
		if qty != bk.qty {
			return corrupt("%s quantity %d, tracked %d", bk.side, qty, bk.qty)
		}
		if len(companies) != len(bk.companyQty) {
			return corrupt("%s tracks %d companies, found %d", bk.side, len(bk.companyQty), len(companies))
		}
		for c, q := range companies {
			if bk.companyQty[c] != q {
				return corrupt("%s quantity for %s is %d, tracked %d", bk.side, c, q, bk.companyQty[c])
			}
		}
	}

	bound := l.Bound()
	if l.matched > bound {
		return corrupt("matched %d exceeds bound %d", l.matched, bound)
	}
	if l.strategy == Optimal && l.matched != bound {
		return corrupt("matched %d below bound %d", l.matched, bound)
	}
	return nil
}

// MustVerify panics if Verify fails
func (l *Ledger) MustVerify() {
	if err := l.Verify(); err != nil {
		panic(err)
	}
}
