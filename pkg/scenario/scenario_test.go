package scenario

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/ordercache/pkg/app/core/cache"
	"github.com/uhyunpark/ordercache/pkg/app/core/ledger"
)

func TestRunTestdata(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := Load(path)
			require.NoError(t, err)

			c := cache.New(cache.WithStrategy(s.StrategyOr(ledger.Optimal)), cache.WithInvariantChecks(true))
			res, err := Run(context.Background(), c, s)
			require.NoError(t, err)
			assert.Equal(t, len(s.Steps), res.Steps)
			for _, f := range res.Failures {
				t.Errorf("%s", f)
			}
		})
	}
}

func TestRunReportsFailures(t *testing.T) {
	s, err := Parse([]byte(`
name: failing
steps:
  - add: {id: B1, security: SecId1, side: Buy, qty: 100, user: User1, company: CompanyA}
  - add: {id: S1, security: SecId1, side: Sell, qty: 100, user: User2, company: CompanyA}
  - expect_matching: {security: SecId1, qty: 100}
  - add: {id: B1, security: SecId1, side: Buy, qty: 100, user: User1, company: CompanyA}
  - expect_orders: 2
`))
	require.NoError(t, err)

	res, err := Run(context.Background(), cache.New(), s)
	require.NoError(t, err)
	assert.False(t, res.Passed())
	require.Len(t, res.Failures, 2)
	assert.Equal(t, Failure{Step: 3, Kind: KindExpectMatching, Message: "SecId1 matching size 0, want 100"}, res.Failures[0])
	assert.Equal(t, 4, res.Failures[1].Step)
	assert.Equal(t, KindAdd, res.Failures[1].Kind)
	assert.Contains(t, res.Failures[1].Message, `"duplicate"`)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown step", `
steps:
  - place: {id: B1}
`},
		{"two actions", `
steps:
  - cancel: B1
    cancel_user: User1
`},
		{"empty step", `
steps:
  - {}
`},
		{"no steps", `name: nothing`},
		{"dangling expect_error", `
steps:
  - cancel: B1
  - expect_error: duplicate
`},
		{"unknown error class", `
steps:
  - add: {id: B1, security: SecId1, side: Buy, qty: 1, user: U, company: C}
  - expect_error: boom
`},
		{"unknown strategy", `
strategy: fifo
steps:
  - cancel: B1
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestStrategyOr(t *testing.T) {
	s := &Scenario{}
	assert.Equal(t, ledger.Greedy, s.StrategyOr(ledger.Greedy))
	s.Strategy = "optimal"
	assert.Equal(t, ledger.Optimal, s.StrategyOr(ledger.Greedy))
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "example1.yaml"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := cache.New()
	_, err = Run(ctx, c, s)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, c.Len())
}

func TestLoadNamesScenarioAfterFile(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "example2.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "example 2", s.Name)

	_, err = Load(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)
}

func TestStepKind(t *testing.T) {
	_, err := Step{}.Kind()
	require.EqualError(t, err, "empty step")

	_, err = Step{Cancel: "B1", CancelUser: "User1"}.Kind()
	require.EqualError(t, err, "step sets [cancel cancel_user], want exactly one")

	kind, err := Step{CancelUser: "User1"}.Kind()
	require.NoError(t, err)
	assert.Equal(t, KindCancelUser, kind)
}
