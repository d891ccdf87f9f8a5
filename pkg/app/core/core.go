// Package core re-exports the order cache building blocks so callers can
// depend on a single package
package core

import (
	"github.com/uhyunpark/ordercache/pkg/app/core/cache"
	"github.com/uhyunpark/ordercache/pkg/app/core/ledger"
	"github.com/uhyunpark/ordercache/pkg/app/core/order"
)

// From order package
type (
	Side  = order.Side
	Order = order.Order
)

const (
	Buy  = order.Buy
	Sell = order.Sell
)

// From ledger package
type (
	Strategy = ledger.Strategy
	Stats    = ledger.Stats
)

const (
	Optimal = ledger.Optimal
	Greedy  = ledger.Greedy
)

// From cache package
type (
	Cache    = cache.Cache
	Option   = cache.Option
	Observer = cache.Observer
)

var (
	ErrInvalidOrder   = cache.ErrInvalidOrder
	ErrDuplicateOrder = cache.ErrDuplicateOrder
)

func NewCache(opts ...cache.Option) *Cache {
	return cache.New(opts...)
}

func ParseSide(v string) (Side, error) {
	return order.ParseSide(v)
}

func ParseStrategy(v string) (Strategy, error) {
	return ledger.ParseStrategy(v)
}
