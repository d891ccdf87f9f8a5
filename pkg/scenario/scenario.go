package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/uhyunpark/ordercache/pkg/app/core/ledger"
	"github.com/uhyunpark/ordercache/pkg/app/core/order"
)

// Step kinds
const (
	KindAdd            = "add"
	KindCancel         = "cancel"
	KindCancelUser     = "cancel_user"
	KindCancelMinQty   = "cancel_min_qty"
	KindExpectMatching = "expect_matching"
	KindExpectOrders   = "expect_orders"
	KindExpectOrderIDs = "expect_order_ids"
	KindExpectError    = "expect_error"
)

// Expected error classes for expect_error
const (
	ErrorNone      = "none"
	ErrorDuplicate = "duplicate"
	ErrorInvalid   = "invalid"
)

type OrderSpec struct {
	ID       string `yaml:"id"`
	Security string `yaml:"security"`
	Side     string `yaml:"side"`
	Qty      uint64 `yaml:"qty"`
	User     string `yaml:"user"`
	Company  string `yaml:"company"`
}

// Order converts the scripted fields. An unknown side is kept as the zero Side so that
// the cache rejects it as an invalid order.
func (s OrderSpec) Order() order.Order {
	side, _ := order.ParseSide(s.Side)
	return order.Order{
		ID:         s.ID,
		SecurityID: s.Security,
		Side:       side,
		Qty:        s.Qty,
		User:       s.User,
		Company:    s.Company,
	}
}

type MinQtySpec struct {
	Security string `yaml:"security"`
	MinQty   uint64 `yaml:"min_qty"`
}

type MatchingSpec struct {
	Security string `yaml:"security"`
	Qty      uint64 `yaml:"qty"`
}

// Step holds exactly one action or expectation
type Step struct {
	Add            *OrderSpec    `yaml:"add,omitempty"`
	Cancel         string        `yaml:"cancel,omitempty"`
	CancelUser     string        `yaml:"cancel_user,omitempty"`
	CancelMinQty   *MinQtySpec   `yaml:"cancel_min_qty,omitempty"`
	ExpectMatching *MatchingSpec `yaml:"expect_matching,omitempty"`
	ExpectOrders   *int          `yaml:"expect_orders,omitempty"`
	ExpectOrderIDs []string      `yaml:"expect_order_ids,omitempty"`
	ExpectError    string        `yaml:"expect_error,omitempty"`
}

// Kind returns the single kind set on the step
func (s Step) Kind() (string, error) {
	var kinds []string
	if s.Add != nil {
		kinds = append(kinds, KindAdd)
	}
	if s.Cancel != "" {
		kinds = append(kinds, KindCancel)
	}
	if s.CancelUser != "" {
		kinds = append(kinds, KindCancelUser)
	}
	if s.CancelMinQty != nil {
		kinds = append(kinds, KindCancelMinQty)
	}
	if s.ExpectMatching != nil {
		kinds = append(kinds, KindExpectMatching)
	}
	if s.ExpectOrders != nil {
		kinds = append(kinds, KindExpectOrders)
	}
	if s.ExpectOrderIDs != nil {
		kinds = append(kinds, KindExpectOrderIDs)
	}
	if s.ExpectError != "" {
		kinds = append(kinds, KindExpectError)
	}
	switch len(kinds) {
	case 0:
		return "", errors.New("empty step")
	case 1:
		return kinds[0], nil
	default:
		return "", fmt.Errorf("step sets %v, want exactly one", kinds)
	}
}

// Scenario is a scripted sequence of cache calls and expectations
type Scenario struct {
	Name     string `yaml:"name"`
	Strategy string `yaml:"strategy,omitempty"`
	Steps    []Step `yaml:"steps"`
}

// Parse decodes and validates a scenario. Unknown keys are rejected.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads a scenario file. The file name is used when the scenario has
// no name.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = filepath.Base(path)
	}
	return s, nil
}

func (s *Scenario) Validate() error {
	if _, err := ledger.ParseStrategy(s.Strategy); err != nil {
		return err
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", s.Name)
	}
	prev := ""
	for i, st := range s.Steps {
		kind, err := st.Kind()
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		if kind == KindExpectError {
			if prev != KindAdd {
				return fmt.Errorf("step %d: expect_error must follow an add", i+1)
			}
			switch st.ExpectError {
			case ErrorNone, ErrorDuplicate, ErrorInvalid:
			default:
				return fmt.Errorf("step %d: unknown error class %q", i+1, st.ExpectError)
			}
		}
		prev = kind
	}
	return nil
}

// StrategyOr returns the scenario strategy, or def when none is set
func (s *Scenario) StrategyOr(def ledger.Strategy) ledger.Strategy {
	if s.Strategy == "" {
		return def
	}
	strategy, err := ledger.ParseStrategy(s.Strategy)
	if err != nil {
		return def
	}
	return strategy
}
