package ledger

import (
	"github.com/google/btree"

	"github.com/uhyunpark/ordercache/pkg/app/core/order"
)

// Record is an order resting in a ledger together with its matching state
type Record struct {
	order.Order
	Remaining uint64 // quantity not yet crossed

	matchedWith map[string]struct{} // counterparty ids with a live match entry
	seq         uint64              // arrival sequence within the ledger
}

func newRecord(o order.Order, seq uint64) *Record {
	return &Record{
		Order:       o,
		Remaining:   o.Qty,
		matchedWith: make(map[string]struct{}),
		seq:         seq,
	}
}

// Matched returns the part of the order currently crossed
func (r *Record) Matched() uint64 {
	return r.Qty - r.Remaining
}

func lessFuncRecordSeq(a, b *Record) bool {
	return a.seq < b.seq
}

// book holds one side of a ledger.
// Records are indexed by id for O(1) cancellation and kept in arrival
// order for deterministic matching.
type book struct {
	side  order.Side
	byID  map[string]*Record
	bySeq *btree.BTreeG[*Record]
	open  *btree.BTreeG[*Record] // records with Remaining > 0

	// original Qty of resting orders, total and per company
	qty        uint64
	companyQty map[string]uint64
}

func newBook(side order.Side) *book {
	return &book{
		side:       side,
		byID:       make(map[string]*Record),
		bySeq:      btree.NewG(32, lessFuncRecordSeq),
		open:       btree.NewG(32, lessFuncRecordSeq),
		companyQty: make(map[string]uint64),
	}
}

func (b *book) get(id string) (*Record, bool) {
	r, ok := b.byID[id]
	return r, ok
}

func (b *book) insert(r *Record) {
	b.byID[r.ID] = r
	b.bySeq.ReplaceOrInsert(r)
	if r.Remaining > 0 {
		b.open.ReplaceOrInsert(r)
	}
	b.qty += r.Qty
	b.companyQty[r.Company] += r.Qty
}

func (b *book) remove(r *Record) {
	if _, ok := b.byID[r.ID]; !ok {
		return
	}
	delete(b.byID, r.ID)
	b.bySeq.Delete(r)
	b.open.Delete(r)
	b.qty -= r.Qty
	if left := b.companyQty[r.Company] - r.Qty; left == 0 {
		delete(b.companyQty, r.Company)
	} else {
		b.companyQty[r.Company] = left
	}
}

// touch syncs the open index with r.Remaining. Must not be called while
// iterating the open index of the same book.
func (b *book) touch(r *Record) {
	if cur, ok := b.byID[r.ID]; !ok || cur != r {
		return
	}
	if r.Remaining > 0 {
		b.open.ReplaceOrInsert(r)
	} else {
		b.open.Delete(r)
	}
}

// openRecords returns the records with quantity left, in arrival order
func (b *book) openRecords() []*Record {
	out := make([]*Record, 0, b.open.Len())
	b.open.Ascend(func(r *Record) bool {
		out = append(out, r)
		return true
	})
	return out
}

// ascend visits records in arrival order until fn returns false
func (b *book) ascend(fn func(r *Record) bool) {
	b.bySeq.Ascend(fn)
}

// collect returns the records accepted by keep, in arrival order
func (b *book) collect(keep func(r *Record) bool) []*Record {
	var out []*Record
	b.bySeq.Ascend(func(r *Record) bool {
		if keep(r) {
			out = append(out, r)
		}
		return true
	})
	return out
}

func (b *book) len() int {
	return len(b.byID)
}
