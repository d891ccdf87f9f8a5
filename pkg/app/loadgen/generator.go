package loadgen

import (
	"fmt"
	"math/rand"

	"github.com/uhyunpark/ordercache/pkg/app/core/order"
)

// Profile selects how orders are generated
type Profile string

const (
	// ProfileReference repeats a fixed eight-order batch over three
	// securities and five companies
	ProfileReference Profile = "reference"
	// ProfileRandom draws every field from a seeded source
	ProfileRandom Profile = "random"
)

func ParseProfile(v string) (Profile, error) {
	switch p := Profile(v); p {
	case ProfileReference, ProfileRandom:
		return p, nil
	default:
		return "", fmt.Errorf("unknown load profile %q", v)
	}
}

type template struct {
	security string
	side     order.Side
	qty      uint64
	user     string
	company  string
}

var referenceBatch = []template{
	{"SecId1", order.Buy, 1000, "User1", "CompanyA"},
	{"SecId2", order.Sell, 3000, "User2", "CompanyB"},
	{"SecId1", order.Sell, 500, "User3", "CompanyA"},
	{"SecId2", order.Buy, 600, "User4", "CompanyC"},
	{"SecId2", order.Buy, 100, "User5", "CompanyB"},
	{"SecId3", order.Buy, 1000, "User6", "CompanyD"},
	{"SecId2", order.Buy, 2000, "User7", "CompanyE"},
	{"SecId2", order.Sell, 5000, "User8", "CompanyE"},
}

// ActionKind distinguishes generated inserts from cancels
type ActionKind int

const (
	ActionAdd ActionKind = iota
	ActionCancel
)

// Action is one generated cache call
type Action struct {
	Kind     ActionKind
	Order    order.Order // set for ActionAdd
	CancelID string      // set for ActionCancel
}

// Generator creates orders and cancels for load testing
type Generator struct {
	cfg        Config
	securities []string
	companies  []string
	users      []string

	orderID int      // counter for unique order ids
	live    []string // ids placed and not yet cancelled
	rng     *rand.Rand
}

// NewGenerator creates a generator; the same seed yields the same sequence
func NewGenerator(cfg Config) *Generator {
	names := func(prefix string, n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = fmt.Sprintf("%s%d", prefix, i+1)
		}
		return out
	}
	return &Generator{
		cfg:        cfg,
		securities: names("SecId", cfg.Securities),
		companies:  names("Company", cfg.Companies),
		users:      names("User", cfg.Users),
		rng:        rand.New(rand.NewSource(cfg.Seed)),
	}
}

func (g *Generator) nextID() string {
	g.orderID++
	return fmt.Sprintf("OrdId%d", g.orderID)
}

// GenerateOrder creates the next order for the configured profile
func (g *Generator) GenerateOrder() order.Order {
	var o order.Order
	if g.cfg.Profile == ProfileReference {
		t := referenceBatch[g.orderID%len(referenceBatch)]
		o = order.Order{
			ID:         g.nextID(),
			SecurityID: t.security,
			Side:       t.side,
			Qty:        t.qty,
			User:       t.user,
			Company:    t.company,
		}
	} else {
		side := order.Buy
		if g.rng.Intn(2) == 1 {
			side = order.Sell
		}
		o = order.Order{
			ID:         g.nextID(),
			SecurityID: g.securities[g.rng.Intn(len(g.securities))],
			Side:       side,
			Qty:        uint64(g.rng.Int63n(int64(g.cfg.MaxQty))) + 1,
			User:       g.users[g.rng.Intn(len(g.users))],
			Company:    g.companies[g.rng.Intn(len(g.companies))],
		}
	}
	g.live = append(g.live, o.ID)
	return o
}

// GenerateCancel picks a live order to cancel. Returns false when nothing
// has been placed yet.
func (g *Generator) GenerateCancel() (string, bool) {
	if len(g.live) == 0 {
		return "", false
	}
	i := g.rng.Intn(len(g.live))
	id := g.live[i]
	g.live[i] = g.live[len(g.live)-1]
	g.live = g.live[:len(g.live)-1]
	return id, true
}

// GenerateMix creates an insert or, with CancelPercent probability, a cancel
func (g *Generator) GenerateMix() Action {
	if g.cfg.CancelPercent > 0 && g.rng.Intn(100) < g.cfg.CancelPercent {
		if id, ok := g.GenerateCancel(); ok {
			return Action{Kind: ActionCancel, CancelID: id}
		}
	}
	return Action{Kind: ActionAdd, Order: g.GenerateOrder()}
}

// GenerateBatch creates count actions
func (g *Generator) GenerateBatch(count int) []Action {
	batch := make([]Action, count)
	for i := range batch {
		batch[i] = g.GenerateMix()
	}
	return batch
}

// Placed returns the number of orders generated so far
func (g *Generator) Placed() int {
	return g.orderID
}
