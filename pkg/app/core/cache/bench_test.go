package cache

import (
	"fmt"
	"testing"

	"github.com/uhyunpark/ordercache/pkg/app/core/ledger"
	"github.com/uhyunpark/ordercache/pkg/app/core/order"
)

// referenceBatch is the eight-order batch repeated by the load benchmark
func referenceBatch(next func() string) []order.Order {
	return []order.Order{
		ord(next(), "SecId1", "Buy", 1000, "User1", "CompanyA"),
		ord(next(), "SecId2", "Sell", 3000, "User2", "CompanyB"),
		ord(next(), "SecId1", "Sell", 500, "User3", "CompanyA"),
		ord(next(), "SecId2", "Buy", 600, "User4", "CompanyC"),
		ord(next(), "SecId2", "Buy", 100, "User5", "CompanyB"),
		ord(next(), "SecId3", "Buy", 1000, "User6", "CompanyD"),
		ord(next(), "SecId2", "Buy", 2000, "User7", "CompanyE"),
		ord(next(), "SecId2", "Sell", 5000, "User8", "CompanyE"),
	}
}

func idSeq() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("OrdId%d", n)
	}
}

func benchmarkAddOrder(b *testing.B, strategy ledger.Strategy) {
	c := New(WithStrategy(strategy))
	next := idSeq()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, o := range referenceBatch(next) {
			if err := c.AddOrder(o); err != nil {
				b.Fatal(err)
			}
		}
	}
}

// BenchmarkAddOrder measures one batch of eight inserts per iteration
func BenchmarkAddOrder(b *testing.B) {
	b.Run("optimal", func(b *testing.B) { benchmarkAddOrder(b, ledger.Optimal) })
	b.Run("greedy", func(b *testing.B) { benchmarkAddOrder(b, ledger.Greedy) })
}

func BenchmarkCancelOrder(b *testing.B) {
	c := New()
	next := idSeq()
	var batch []order.Order
	for i := 0; i < 1000; i++ {
		for _, o := range referenceBatch(next) {
			if err := c.AddOrder(o); err != nil {
				b.Fatal(err)
			}
			batch = append(batch, o)
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		o := batch[i%len(batch)]
		c.CancelOrder(o.ID)
		b.StopTimer()
		if err := c.AddOrder(o); err != nil {
			b.Fatal(err)
		}
		b.StartTimer()
	}
}

func BenchmarkMatchingSizeForSecurity(b *testing.B) {
	c := New()
	next := idSeq()
	for i := 0; i < 1000; i++ {
		for _, o := range referenceBatch(next) {
			if err := c.AddOrder(o); err != nil {
				b.Fatal(err)
			}
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.MatchingSizeForSecurity("SecId2")
	}
}
