package ledger

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/uhyunpark/ordercache/pkg/app/core/order"
)

// Arrival-order matching strands S2: B1 is taken by S1 and B2 is S2's own company.
func strandedOrders() []order.Order {
	return []order.Order{
		buy("B1", 10, "CompanyA"),
		buy("B2", 10, "CompanyB"),
		sell("S1", 10, "CompanyC"),
		sell("S2", 10, "CompanyB"),
	}
}

func TestGreedyStrandsQuantity(t *testing.T) {
	l := newTestLedger(t, Greedy, strandedOrders()...)
	assert.Equal(t, uint64(10), l.Matched())
	assert.Equal(t, uint64(20), l.Bound())
}

func TestRebalanceReachesBound(t *testing.T) {
	l := newTestLedger(t, Optimal, strandedOrders()...)

	assert.Equal(t, uint64(20), l.Matched())
	assert.Equal(t, uint64(10), l.MatchAmount("S1", "B2"))
	assert.Equal(t, uint64(10), l.MatchAmount("S2", "B1"))
	assert.Equal(t, uint64(0), l.MatchAmount("S1", "B1"))
}

func TestRebalanceAfterRemove(t *testing.T) {
	l := newTestLedger(t, Optimal,
		buy("B1", 10, "CompanyA"),
		buy("B2", 10, "CompanyB"),
		sell("S1", 10, "CompanyC"),
		sell("S2", 10, "CompanyB"),
		sell("S3", 10, "CompanyA"),
	)
	require.Equal(t, uint64(20), l.Matched())

	_, ok := l.Remove("S1")
	require.True(t, ok)
	require.NoError(t, l.Verify())

	// S2 (CompanyB) must take B1 and S3 (CompanyA) must take B2
	assert.Equal(t, uint64(20), l.Matched())
	assert.Equal(t, uint64(10), l.MatchAmount("S2", "B1"))
	assert.Equal(t, uint64(10), l.MatchAmount("S3", "B2"))
}

func TestBound(t *testing.T) {
	tests := []struct {
		name   string
		orders []order.Order
		want   uint64
	}{
		{"empty", nil, 0},
		{"one side", []order.Order{buy("B1", 10, "CompanyA")}, 0},
		{"single company", []order.Order{buy("B1", 10, "CompanyA"), sell("S1", 10, "CompanyA")}, 0},
		{"smaller side", []order.Order{buy("B1", 10, "CompanyA"), sell("S1", 4, "CompanyB")}, 4},
		{"dominant company", []order.Order{
			buy("B1", 100, "CompanyA"),
			buy("B2", 5, "CompanyB"),
			sell("S1", 100, "CompanyA"),
			sell("S2", 5, "CompanyC"),
		}, 10},
		{"stranded", strandedOrders(), 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t, Greedy, tt.orders...)
			assert.Equal(t, tt.want, l.Bound())
			assert.Equal(t, tt.want, maxFlow(tt.orders))
		})
	}
}

// maxFlow computes the crossable quantity with a plain augmenting-path
// search over an order-level adjacency matrix.
func maxFlow(orders []order.Order) uint64 {
	n := len(orders) + 2
	src, dst := n-2, n-1
	capacity := make([][]uint64, n)
	for i := range capacity {
		capacity[i] = make([]uint64, n)
	}
	const inf = ^uint64(0) >> 1
	for i, b := range orders {
		if b.Side != order.Buy {
			continue
		}
		capacity[src][i] = b.Qty
		for j, s := range orders {
			if s.Side == order.Sell && s.Company != b.Company {
				capacity[i][j] = inf
			}
		}
	}
	for j, s := range orders {
		if s.Side == order.Sell {
			capacity[j][dst] = s.Qty
		}
	}

	var flow uint64
	for {
		prev := make([]int, n)
		for i := range prev {
			prev[i] = -1
		}
		prev[src] = src
		queue := []int{src}
		for len(queue) > 0 && prev[dst] < 0 {
			u := queue[0]
			queue = queue[1:]
			for v := 0; v < n; v++ {
				if prev[v] < 0 && capacity[u][v] > 0 {
					prev[v] = u
					queue = append(queue, v)
				}
			}
		}
		if prev[dst] < 0 {
			return flow
		}
		push := inf
		for v := dst; v != src; v = prev[v] {
			push = min(push, capacity[prev[v]][v])
		}
		for v := dst; v != src; v = prev[v] {
			capacity[prev[v]][v] -= push
			capacity[v][prev[v]] += push
		}
		flow += push
	}
}

func drawOrder(t *rapid.T, id int) order.Order {
	side := order.Buy
	if rapid.Bool().Draw(t, "sell") {
		side = order.Sell
	}
	return order.Order{
		ID:         fmt.Sprintf("OrdId%d", id),
		SecurityID: "SecId1",
		Side:       side,
		Qty:        rapid.Uint64Range(1, 50).Draw(t, "qty"),
		User:       rapid.SampledFrom([]string{"User1", "User2", "User3"}).Draw(t, "user"),
		Company:    rapid.SampledFrom([]string{"CompanyA", "CompanyB", "CompanyC"}).Draw(t, "company"),
	}
}

func TestOptimalMatchesMaxFlow(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		l := New("SecId1", Optimal)
		var live []order.Order
		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if len(live) > 0 && rapid.IntRange(0, 3).Draw(t, "op") == 0 {
				idx := rapid.IntRange(0, len(live)-1).Draw(t, "victim")
				if _, ok := l.Remove(live[idx].ID); !ok {
					t.Fatalf("remove %s: not found", live[idx].ID)
				}
				live = append(live[:idx], live[idx+1:]...)
			} else {
				o := drawOrder(t, i)
				if err := l.Insert(o); err != nil {
					t.Fatalf("insert %s: %v", o.ID, err)
				}
				live = append(live, o)
			}
			if err := l.Verify(); err != nil {
				t.Fatalf("step %d: %v", i, err)
			}
			if got, want := l.Matched(), maxFlow(live); got != want {
				t.Fatalf("step %d: matched %d, max flow %d", i, got, want)
			}
		}
	})
}

func TestGreedyNeverExceedsBound(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		l := New("SecId1", Greedy)
		n := rapid.IntRange(1, 25).Draw(t, "orders")
		for i := 0; i < n; i++ {
			if err := l.Insert(drawOrder(t, i)); err != nil {
				t.Fatalf("insert: %v", err)
			}
		}
		if err := l.Verify(); err != nil {
			t.Fatal(err)
		}
	})
}
