package loadgen

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/ordercache/pkg/app/core/cache"
	"github.com/uhyunpark/ordercache/pkg/app/core/order"
	"github.com/uhyunpark/ordercache/pkg/util"
)

func TestReferenceGenerator(t *testing.T) {
	g := NewGenerator(DefaultConfig())

	first := g.GenerateOrder()
	assert.Equal(t, order.Order{ID: "OrdId1", SecurityID: "SecId1", Side: order.Buy, Qty: 1000, User: "User1", Company: "CompanyA"}, first)

	for i := 0; i < 7; i++ {
		g.GenerateOrder()
	}
	ninth := g.GenerateOrder()
	assert.Equal(t, "OrdId9", ninth.ID)
	assert.Equal(t, first.SecurityID, ninth.SecurityID, "batch repeats")
	assert.Equal(t, 9, g.Placed())
}

func TestRandomGeneratorIsSeeded(t *testing.T) {
	cfg := HighLoadConfig()
	a, b := NewGenerator(cfg), NewGenerator(cfg)
	for i := 0; i < 50; i++ {
		oa, ob := a.GenerateMix(), b.GenerateMix()
		require.Equal(t, oa, ob, "action %d", i)
		if oa.Kind == ActionAdd {
			require.NoError(t, oa.Order.Validate())
		}
	}
}

func TestGenerateCancelPicksLiveOrders(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	_, ok := g.GenerateCancel()
	assert.False(t, ok)

	placed := map[string]bool{}
	for i := 0; i < 5; i++ {
		placed[g.GenerateOrder().ID] = true
	}
	for i := 0; i < 5; i++ {
		id, ok := g.GenerateCancel()
		require.True(t, ok)
		assert.True(t, placed[id], "cancel of unknown id %s", id)
		delete(placed, id)
	}
	_, ok = g.GenerateCancel()
	assert.False(t, ok)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"zero iterations", func(c *Config) { c.Iterations = 0 }, true},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }, true},
		{"cancel percent", func(c *Config) { c.CancelPercent = 101 }, true},
		{"profile", func(c *Config) { c.Profile = "burst" }, true},
		{"random without users", func(c *Config) { c.Profile = ProfileRandom; c.Users = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunReference(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Iterations = 3
	c := cache.New(cache.WithInvariantChecks(true))
	clock := util.NewStepClock(time.Unix(0, 0), time.Second)

	rep, err := NewRunner(c, cfg, nil).WithClock(clock).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 24, rep.Orders)
	assert.Equal(t, 0, rep.Cancels)
	assert.Equal(t, time.Second, rep.Elapsed)
	assert.Equal(t, 24.0, rep.OrdersPerSec)
	assert.Equal(t, []string{"SecId1", "SecId2", "SecId3"}, rep.Securities)
	assert.Equal(t, map[string]uint64{"SecId1": 0, "SecId2": 3 * 2700, "SecId3": 0}, rep.Matching)

	var buf bytes.Buffer
	require.NoError(t, rep.Format(&buf))
	assert.Contains(t, buf.String(), "orders:    24")
	assert.Contains(t, buf.String(), "matched 8,100")
}

func TestRunRandomWithCancels(t *testing.T) {
	cfg := HighLoadConfig()
	cfg.Iterations = 5
	cfg.BatchSize = 40
	cfg.Securities = 3

	run := func() Report {
		c := cache.New(cache.WithInvariantChecks(true))
		rep, err := NewRunner(c, cfg, nil).Run(context.Background())
		require.NoError(t, err)
		require.NoError(t, c.Verify())
		assert.Equal(t, rep.Orders-rep.Cancels, c.Len())
		return rep
	}
	a, b := run(), run()
	assert.Equal(t, 200, a.Orders+a.Cancels)
	assert.Positive(t, a.Cancels)
	assert.Equal(t, a.Matching, b.Matching)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := cache.New()
	rep, err := NewRunner(c, DefaultConfig(), nil).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, rep.Orders)
	assert.Equal(t, 0, c.Len())
}

func TestRunRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Iterations = 0
	_, err := NewRunner(cache.New(), cfg, nil).Run(context.Background())
	assert.Error(t, err)
}
