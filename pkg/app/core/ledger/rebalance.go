package ledger

import (
	"fmt"
	"slices"
)

// Bound returns the largest quantity that can be crossed between the resting
// orders when no order may cross one of its own company:
//
//	min(ΣBuy, ΣSell, min over companies c of (ΣBuy - buy_c + ΣSell - sell_c))
//
// This is the minimum cut of the buy -> sell transport network.
func (l *Ledger) Bound() uint64 {
	bound := min(l.buys.qty, l.sells.qty)
	total := l.buys.qty + l.sells.qty
	for company, bq := range l.buys.companyQty {
		sq, ok := l.sells.companyQty[company]
		if !ok {
			continue
		}
		if v := total - bq - sq; v < bound {
			bound = v
		}
	}
	return bound
}

// rebalance augments the current matching until it reaches Bound. Greedy
// arrival-order matching can leave quantity stranded behind same-company
// pairs; each augmenting path moves existing matches to free it.
func (l *Ledger) rebalance() {
	if l.strategy != Optimal {
		return
	}
	target := l.Bound()
	for l.matched < target {
		if !l.augment() {
			panic(fmt.Errorf("%w: security %s: matched %d below bound %d with no augmenting path", ErrCorrupted, l.security, l.matched, target))
		}
	}
}

// augment finds one shortest path
//
//	sell(open) -> buy -> sell -> buy -> ... -> buy(open)
//
// where each sell->buy hop is between different companies and each buy->sell
// hop follows an existing match, then pushes the bottleneck along it.
// Companies are visited in name order and records in arrival order so the
// result is deterministic. Every buy is visited at most once.
func (l *Ledger) augment() bool {
	unseen := make(map[string][]*Record) // company -> buys not yet visited
	l.buys.ascend(func(b *Record) bool {
		unseen[b.Company] = append(unseen[b.Company], b)
		return true
	})
	companies := make([]string, 0, len(unseen))
	for c := range unseen {
		companies = append(companies, c)
	}
	slices.Sort(companies)

	parent := make(map[*Record]*Record)
	seenSell := make(map[*Record]bool)
	queue := l.sells.openRecords()
	for _, s := range queue {
		seenSell[s] = true
	}

	var end *Record
search:
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]

		for _, company := range companies {
			if company == s.Company {
				continue
			}
			buys := unseen[company]
			for _, b := range buys {
				parent[b] = s
				if b.Remaining > 0 {
					end = b
					break search
				}
				for _, next := range l.counterparties(b) {
					if !seenSell[next] {
						seenSell[next] = true
						parent[next] = b
						queue = append(queue, next)
					}
				}
			}
			unseen[company] = nil
		}
	}
	if end == nil {
		return false
	}

	// walk back from the open buy to the open sell that started the path
	path := []*Record{end}
	for r := end; ; {
		p, ok := parent[r]
		if !ok {
			break
		}
		path = append(path, p)
		r = p
	}
	// path = [buy_k, sell_k-1, buy_k-1, ..., buy_1, sell_0]
	start := path[len(path)-1]
	delta := min(start.Remaining, end.Remaining)
	for i := 1; i+1 < len(path); i += 2 {
		sell, buy := path[i], path[i+1]
		delta = min(delta, l.matches[keyOf(sell, buy)])
	}
	if delta == 0 {
		return false
	}

	for i := 0; i+1 < len(path); i += 2 {
		buy, sell := path[i], path[i+1]
		l.link(sell, buy, delta)
		if i+2 < len(path) {
			l.unlink(sell, path[i+2], delta)
		}
	}
	start.Remaining -= delta
	end.Remaining -= delta
	l.matched += delta
	l.sells.touch(start)
	l.buys.touch(end)
	return true
}

// counterparties returns the records r holds a match with, in arrival order
func (l *Ledger) counterparties(r *Record) []*Record {
	opp := l.side(r.Side.Opposite())
	out := make([]*Record, 0, len(r.matchedWith))
	for id := range r.matchedWith {
		if c, ok := opp.get(id); ok {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b *Record) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	return out
}
