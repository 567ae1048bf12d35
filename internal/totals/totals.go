// Package totals folds priced cart lines into order totals.
package totals

import (
	"sync"

	"github.com/angelmondragon/quotecart/internal/cart"
	"github.com/angelmondragon/quotecart/internal/pricing"
	"github.com/shopspring/decimal"
)

// Totals is the order-level summary of a cart.
type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	TaxableTotal  decimal.Decimal `json:"taxable_total"`
	GSTTotal      decimal.Decimal `json:"gst_total"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	ItemCount     int             `json:"item_count"`
}

// Compute sums the already-rounded line breakdowns. An empty cart yields zeros.
func Compute(items []cart.Item) Totals {
	var t Totals
	for _, item := range items {
		b := item.Breakdown
		t.Subtotal = t.Subtotal.Add(b.Subtotal)
		t.DiscountTotal = t.DiscountTotal.Add(b.DiscountAmount)
		t.TaxableTotal = t.TaxableTotal.Add(b.TaxableAmount)
		t.GSTTotal = t.GSTTotal.Add(b.GSTAmount)
		t.GrandTotal = t.GrandTotal.Add(b.Total)
	}
	t.Subtotal = pricing.Round2(t.Subtotal)
	t.DiscountTotal = pricing.Round2(t.DiscountTotal)
	t.TaxableTotal = pricing.Round2(t.TaxableTotal)
	t.GSTTotal = pricing.Round2(t.GSTTotal)
	t.GrandTotal = pricing.Round2(t.GrandTotal)
	t.ItemCount = len(items)
	return t
}

// Aggregator keeps the totals of a store current. It recomputes synchronously on every
// store event, so Current never lags a completed mutation.
type Aggregator struct {
	store *cart.Store

	mu          sync.RWMutex
	current     Totals
	subscribers []func(Totals)
	unsubscribe func()
}

// NewAggregator subscribes to store and computes the initial totals.
func NewAggregator(store *cart.Store) *Aggregator {
	a := &Aggregator{store: store, current: Compute(store.All())}
	a.unsubscribe = store.Subscribe(func(cart.Event) { a.recompute() })
	return a
}

// Current returns the latest totals.
func (a *Aggregator) Current() Totals {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// OnChange registers fn to receive every recomputed snapshot.
func (a *Aggregator) OnChange(fn func(Totals)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subscribers = append(a.subscribers, fn)
}

// Close detaches the aggregator from its store.
func (a *Aggregator) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}

func (a *Aggregator) recompute() {
	next := Compute(a.store.All())

	a.mu.Lock()
	a.current = next
	subs := append([]func(Totals){}, a.subscribers...)
	a.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}
