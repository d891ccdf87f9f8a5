package scenario

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/uhyunpark/ordercache/pkg/app/core/cache"
	"github.com/uhyunpark/ordercache/pkg/app/core/order"
)

// Failure is an expectation that did not hold
type Failure struct {
	Step    int // 1-based
	Kind    string
	Message string
}

func (f Failure) String() string {
	return fmt.Sprintf("step %d (%s): %s", f.Step, f.Kind, f.Message)
}

type Result struct {
	Name     string
	Steps    int
	Failures []Failure
}

func (r Result) Passed() bool {
	return len(r.Failures) == 0
}

func errorClass(err error) string {
	switch {
	case err == nil:
		return ErrorNone
	case errors.Is(err, cache.ErrDuplicateOrder):
		return ErrorDuplicate
	case errors.Is(err, cache.ErrInvalidOrder):
		return ErrorInvalid
	default:
		return err.Error()
	}
}

// Run applies the scenario to c and checks every expectation. Failed
// expectations are collected in the result; the returned error is only set
// when ctx is done.
func Run(ctx context.Context, c *cache.Cache, s *Scenario) (Result, error) {
	res := Result{Name: s.Name}
	fail := func(step int, kind, format string, args ...any) {
		res.Failures = append(res.Failures, Failure{Step: step, Kind: kind, Message: fmt.Sprintf(format, args...)})
	}

	for i := 0; i < len(s.Steps); i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		st := s.Steps[i]
		n := i + 1
		res.Steps++

		kind, err := st.Kind()
		if err != nil {
			return res, fmt.Errorf("step %d: %w", n, err)
		}

		switch kind {
		case KindAdd:
			err := c.AddOrder(st.Add.Order())
			want := ErrorNone
			if i+1 < len(s.Steps) && s.Steps[i+1].ExpectError != "" {
				i++
				res.Steps++
				n, kind = i+1, KindExpectError
				want = s.Steps[i].ExpectError
			}
			if got := errorClass(err); got != want {
				fail(n, kind, "add %s: got error %q, want %q", st.Add.ID, got, want)
			}

		case KindCancel:
			c.CancelOrder(st.Cancel)

		case KindCancelUser:
			c.CancelOrdersForUser(st.CancelUser)

		case KindCancelMinQty:
			c.CancelOrdersForSecIDWithMinimumQty(st.CancelMinQty.Security, st.CancelMinQty.MinQty)

		case KindExpectMatching:
			if got := c.MatchingSizeForSecurity(st.ExpectMatching.Security); got != st.ExpectMatching.Qty {
				fail(n, kind, "%s matching size %d, want %d", st.ExpectMatching.Security, got, st.ExpectMatching.Qty)
			}

		case KindExpectOrders:
			if got := len(c.AllOrders()); got != *st.ExpectOrders {
				fail(n, kind, "%d orders, want %d", got, *st.ExpectOrders)
			}

		case KindExpectOrderIDs:
			if got := orderIDs(c.AllOrders()); !slices.Equal(got, st.ExpectOrderIDs) {
				fail(n, kind, "orders %v, want %v", got, st.ExpectOrderIDs)
			}

		case KindExpectError:
			// consumed together with the preceding add
		}
	}
	return res, nil
}

func orderIDs(orders []order.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}
