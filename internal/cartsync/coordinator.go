// Package cartsync keeps the local cart store consistent with the server-held cart.
package cartsync

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/angelmondragon/quotecart/internal/cart"
	"github.com/angelmondragon/quotecart/internal/pricing"
	"github.com/angelmondragon/quotecart/pkg/enums"
	"github.com/angelmondragon/quotecart/pkg/logger"
	"github.com/angelmondragon/quotecart/pkg/metrics"
)

const (
	opAdd    = "add"
	opUpdate = "update"
	opRemove = "remove"
	opList   = "list"
	opClear  = "clear"
)

// Remote is the persisted-cart API. Implementations return *SyncError on failure.
type Remote interface {
	List(ctx context.Context) ([]cart.Item, error)
	Add(ctx context.Context, item cart.Item, force bool) (cart.Item, error)
	Update(ctx context.Context, id string, patch cart.Patch) (cart.Item, error)
	Remove(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithEvents routes sync outcomes to events.
func WithEvents(events Events) Option {
	return func(c *Coordinator) {
		if events != nil {
			c.events = events
		}
	}
}

// WithMetrics records request metrics.
func WithMetrics(m *metrics.SyncMetrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithLogger overrides the discard logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logg = l
		}
	}
}

// lane serializes updates for one item. While a request is in flight, later patches merge
// into pending and their callers wait in waiters for the round that carries them.
type lane struct {
	inflight bool
	pending  *cart.Patch
	waiters  []chan outcome
	done     chan struct{}
}

func newLane() *lane {
	return &lane{inflight: true, done: make(chan struct{})}
}

// addState tracks a line whose add is waiting on the server. Patches made meanwhile are
// merged into pending and sent as an update once the add confirms.
type addState struct {
	pending *cart.Patch
}

type outcome struct {
	item cart.Item
	err  error
}

// Coordinator persists store mutations through a Remote.
type Coordinator struct {
	store   *cart.Store
	remote  Remote
	events  Events
	metrics *metrics.SyncMetrics
	logg    *logger.Logger

	mu        sync.Mutex
	lanes     map[string]*lane
	adding    map[string]*addState
	removing  map[string]bool
	confirmed map[string]pricing.Input
}

// New builds a coordinator for store.
func New(store *cart.Store, remote Remote, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     store,
		remote:    remote,
		events:    EventFuncs{},
		logg:      logger.Nop(),
		lanes:     map[string]*lane{},
		adding:    map[string]*addState{},
		removing:  map[string]bool{},
		confirmed: map[string]pricing.Input{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// PersistAdd sends a local line to the server. A server-side duplicate is reported as a
// *SyncError of KindDuplicateRejected and left for the caller to resolve with ForceAdd.
// Patches made while the add is in flight are sent right after it confirms, and the
// returned item and error are those of that update.
func (c *Coordinator) PersistAdd(ctx context.Context, localID string) (cart.Item, error) {
	return c.add(ctx, localID, false)
}

// ForceAdd sends a local line with the duplicate override set.
func (c *Coordinator) ForceAdd(ctx context.Context, localID string) (cart.Item, error) {
	return c.add(ctx, localID, true)
}

func (c *Coordinator) add(ctx context.Context, localID string, force bool) (cart.Item, error) {
	ctx = c.logg.WithItemID(ctx, localID)
	item, ok := c.store.Get(localID)
	if !ok {
		return cart.Item{}, cart.ErrItemNotFound
	}
	c.mu.Lock()
	_, confirmed := c.confirmed[localID]
	_, busy := c.adding[localID]
	if confirmed || busy {
		// already on the server, or an add for this line is in flight
		c.mu.Unlock()
		return item, nil
	}
	c.adding[localID] = &addState{}
	c.mu.Unlock()

	if _, err := c.store.MarkState(localID, enums.SyncStateSyncing, ""); err != nil {
		c.endAdd(localID)
		return cart.Item{}, err
	}

	var server cart.Item
	serr := c.call(ctx, opAdd, localID, func(ctx context.Context) error {
		var err error
		server, err = c.remote.Add(ctx, item, force)
		return err
	})
	if serr != nil {
		// patches made while waiting are already in the store and go out with the next add
		c.endAdd(localID)
		if serr.Kind == KindDuplicateRejected {
			local, _ := c.store.MarkState(localID, enums.SyncStateLocal, serr.Error())
			c.events.DuplicateDetected(local, serr)
			return cart.Item{}, serr
		}
		_, _ = c.store.MarkState(localID, enums.SyncStateError, serr.Error())
		c.events.SyncFailed(localID, serr)
		return cart.Item{}, serr
	}

	confirmedItem, err := c.store.Confirm(localID, server)
	if err != nil {
		c.endAdd(localID)
		return cart.Item{}, err
	}

	c.mu.Lock()
	pending := c.adding[localID].pending
	delete(c.adding, localID)
	c.confirmed[confirmedItem.ID] = confirmedItem.Input
	var l *lane
	if pending != nil {
		l = newLane()
		c.lanes[confirmedItem.ID] = l
	}
	c.mu.Unlock()
	c.events.ItemSynced(confirmedItem)

	if pending == nil {
		return confirmedItem, nil
	}
	return c.sendHeld(ctx, confirmedItem, l, *pending)
}

// sendHeld re-applies the patches made while the add was in flight on top of the server
// copy and sends them through the line's update lane.
func (c *Coordinator) sendHeld(ctx context.Context, confirmed cart.Item, l *lane, patch cart.Patch) (cart.Item, error) {
	ctx = c.logg.WithItemID(ctx, confirmed.ID)
	if _, err := c.store.Update(confirmed.ID, patch.Apply(confirmed.Input)); err != nil {
		c.logg.Error(ctx, "cart.sync.reapply_failed", err)
	}
	_, _ = c.store.MarkState(confirmed.ID, enums.SyncStateSyncing, "")
	c.metrics.IncCoalesced()
	return c.drain(context.WithoutCancel(ctx), confirmed.ID, l, patch)
}

func (c *Coordinator) endAdd(localID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.adding, localID)
}

// PersistUpdate applies patch locally and sends it. At most one update per item is in
// flight; patches arriving meanwhile are merged and sent once it completes, and their
// callers receive the result of that later request. A line whose add is still in flight
// keeps the patch locally and sends it after the add confirms.
func (c *Coordinator) PersistUpdate(ctx context.Context, id string, patch cart.Patch) (cart.Item, error) {
	ctx = c.logg.WithItemID(ctx, id)
	if c.isRemoving(id) {
		return cart.Item{}, ErrRemovePending
	}
	current, ok := c.store.Get(id)
	if !ok {
		return cart.Item{}, cart.ErrItemNotFound
	}
	updated, err := c.store.Update(id, patch.Apply(current.Input))
	if err != nil {
		return cart.Item{}, err
	}

	c.mu.Lock()
	if _, ok := c.confirmed[id]; !ok {
		a := c.adding[id]
		if a != nil {
			merged := patch
			if a.pending != nil {
				merged = a.pending.Merge(patch)
			}
			a.pending = &merged
		}
		c.mu.Unlock()
		if a == nil {
			// never reached the server; the full line goes out with PersistAdd
			return updated, nil
		}
		c.logg.Debug(ctx, "cart.sync.update_held")
		return c.store.MarkState(id, enums.SyncStateSyncing, "")
	}
	if c.removing[id] {
		c.mu.Unlock()
		return cart.Item{}, ErrRemovePending
	}

	l := c.lanes[id]
	if l != nil && l.inflight {
		merged := patch
		if l.pending != nil {
			merged = l.pending.Merge(patch)
		}
		l.pending = &merged
		wait := make(chan outcome, 1)
		l.waiters = append(l.waiters, wait)
		c.mu.Unlock()
		_, _ = c.store.MarkState(id, enums.SyncStateSyncing, "")
		c.metrics.IncCoalesced()
		c.logg.Debug(ctx, "cart.sync.update_coalesced")

		select {
		case res := <-wait:
			return res.item, res.err
		case <-ctx.Done():
			return cart.Item{}, classify(opUpdate, id, ctx.Err())
		}
	}
	l = newLane()
	c.lanes[id] = l
	c.mu.Unlock()

	if _, err := c.store.MarkState(id, enums.SyncStateSyncing, ""); err != nil {
		c.releaseLane(id, l)
		return cart.Item{}, err
	}
	return c.drain(ctx, id, l, patch)
}

func (c *Coordinator) drain(ctx context.Context, id string, l *lane, patch cart.Patch) (cart.Item, error) {
	var (
		own          *outcome
		participants []chan outcome
	)
	for {
		var server cart.Item
		serr := c.call(ctx, opUpdate, id, func(ctx context.Context) error {
			var err error
			server, err = c.remote.Update(ctx, id, patch)
			return err
		})

		c.mu.Lock()
		next, nextWaiters := l.pending, l.waiters
		l.pending, l.waiters = nil, nil
		c.mu.Unlock()

		res := c.settleUpdate(ctx, id, next, server, serr)
		if own == nil {
			own = &res
		}
		for _, w := range participants {
			w <- res
		}

		if next == nil {
			c.mu.Lock()
			if l.pending == nil {
				l.inflight = false
				delete(c.lanes, id)
				close(l.done)
				c.mu.Unlock()
				return own.item, own.err
			}
			next, nextWaiters = l.pending, l.waiters
			l.pending, l.waiters = nil, nil
			c.mu.Unlock()
		}
		patch, participants = *next, nextWaiters
		// later rounds carry other callers' patches and outlive the first caller's context
		ctx = context.WithoutCancel(ctx)
	}
}

// settleUpdate folds one finished update into the store. While a newer patch is pending
// the server response is recorded as confirmed but the store keeps the newer local values.
func (c *Coordinator) settleUpdate(ctx context.Context, id string, next *cart.Patch, server cart.Item, serr *SyncError) outcome {
	if c.isRemoving(id) {
		// the line is on its way out; nothing to reconcile
		if serr != nil {
			return outcome{err: serr}
		}
		return outcome{item: server}
	}
	if serr == nil {
		c.setConfirmed(id, server.Input)
		if next != nil {
			return outcome{item: server}
		}
		confirmed, err := c.store.Confirm(id, server)
		if err != nil {
			return outcome{err: err}
		}
		if confirmed.ID != id {
			c.forget(id)
			c.setConfirmed(confirmed.ID, confirmed.Input)
		}
		c.events.ItemSynced(confirmed)
		return outcome{item: confirmed}
	}

	base, ok := c.confirmedInput(id)
	if !ok {
		current, _ := c.store.Get(id)
		base = current.Input
	}
	if next == nil {
		if _, err := c.store.Revert(id, base, serr.Error()); err != nil {
			c.logg.Error(ctx, "cart.sync.revert_failed", err)
		}
	} else {
		// the failed fields fall back; the pending patch is still sent
		if _, err := c.store.Update(id, next.Apply(base)); err != nil {
			c.logg.Error(ctx, "cart.sync.revert_failed", err)
		}
		_, _ = c.store.MarkState(id, enums.SyncStateSyncing, "")
	}
	c.events.SyncFailed(id, serr)
	return outcome{err: serr}
}

// PersistRemove deletes the line on the server and then from the store. Until the server
// confirms, the line stays visible in state syncing; on failure it stays in state error.
// An update already in flight is sent first; queued patches are dropped and their callers
// receive ErrRemovePending.
func (c *Coordinator) PersistRemove(ctx context.Context, id string) error {
	ctx = c.logg.WithItemID(ctx, id)
	if _, ok := c.store.Get(id); !ok {
		return nil
	}

	c.mu.Lock()
	if _, ok := c.confirmed[id]; !ok {
		c.mu.Unlock()
		c.store.Remove(id)
		return nil
	}
	if c.removing[id] {
		c.mu.Unlock()
		return ErrRemovePending
	}
	c.removing[id] = true
	var (
		done    chan struct{}
		dropped []chan outcome
	)
	if l := c.lanes[id]; l != nil {
		done = l.done
		dropped = l.waiters
		l.pending, l.waiters = nil, nil
	}
	c.mu.Unlock()
	defer c.endRemove(id)

	for _, w := range dropped {
		w <- outcome{err: ErrRemovePending}
	}
	if _, err := c.store.MarkState(id, enums.SyncStateSyncing, ""); err != nil {
		return err
	}
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			serr := classify(opRemove, id, ctx.Err())
			_, _ = c.store.MarkState(id, enums.SyncStateError, serr.Error())
			return serr
		}
	}

	serr := c.call(ctx, opRemove, id, func(ctx context.Context) error {
		return c.remote.Remove(ctx, id)
	})
	if serr != nil && !(serr.Kind == KindHTTP && serr.Status == http.StatusNotFound) {
		_, _ = c.store.MarkState(id, enums.SyncStateError, serr.Error())
		c.events.SyncFailed(id, serr)
		return serr
	}
	c.store.Remove(id)
	c.forget(id)
	return nil
}

func (c *Coordinator) endRemove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.removing, id)
}

func (c *Coordinator) releaseLane(id string, l *lane) {
	c.mu.Lock()
	defer c.mu.Unlock()
	waiters := l.waiters
	l.inflight, l.pending, l.waiters = false, nil, nil
	delete(c.lanes, id)
	close(l.done)
	for _, w := range waiters {
		w <- outcome{err: cart.ErrItemNotFound}
	}
}

// Reload replaces the local cart with the server list.
func (c *Coordinator) Reload(ctx context.Context) ([]cart.Item, error) {
	var items []cart.Item
	serr := c.call(ctx, opList, "", func(ctx context.Context) error {
		var err error
		items, err = c.remote.List(ctx)
		return err
	})
	if serr != nil {
		return nil, serr
	}

	c.mu.Lock()
	c.confirmed = make(map[string]pricing.Input, len(items))
	for _, item := range items {
		c.confirmed[item.ID] = item.Input
	}
	c.mu.Unlock()

	for i := range items {
		items[i].SyncState = enums.SyncStateSynced
	}
	c.store.Replace(items)
	return c.store.All(), nil
}

// Clear empties the server cart and then the store.
func (c *Coordinator) Clear(ctx context.Context) error {
	serr := c.call(ctx, opClear, "", func(ctx context.Context) error {
		return c.remote.Clear(ctx)
	})
	if serr != nil {
		return serr
	}
	c.mu.Lock()
	c.confirmed = map[string]pricing.Input{}
	c.mu.Unlock()
	c.store.Replace(nil)
	return nil
}

func (c *Coordinator) call(ctx context.Context, op, itemID string, fn func(context.Context) error) *SyncError {
	start := time.Now()
	err := fn(ctx)
	if err == nil {
		c.metrics.Observe(op, metrics.OutcomeSuccess, time.Since(start))
		return nil
	}

	serr := classify(op, itemID, err)
	result := metrics.OutcomeFailure
	if serr.Kind == KindDuplicateRejected {
		result = metrics.OutcomeDuplicate
		c.logg.Info(ctx, "cart.sync.duplicate_rejected")
	} else {
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
			"op":     op,
			"kind":   string(serr.Kind),
			"status": serr.Status,
			"error":  serr.Error(),
		}), "cart.sync.failed")
	}
	c.metrics.Observe(op, result, time.Since(start))
	return serr
}

func classify(op, itemID string, err error) *SyncError {
	var serr *SyncError
	switch {
	case errors.As(err, &serr):
		out := *serr
		if out.Op == "" {
			out.Op = op
		}
		if out.ItemID == "" {
			out.ItemID = itemID
		}
		return &out
	case errors.Is(err, context.DeadlineExceeded):
		return &SyncError{Kind: KindTimeout, Op: op, ItemID: itemID, Message: "request timed out", Err: err}
	default:
		return &SyncError{Kind: KindNetwork, Op: op, ItemID: itemID, Message: err.Error(), Err: err}
	}
}

func (c *Coordinator) isRemoving(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removing[id]
}

func (c *Coordinator) confirmedInput(id string) (pricing.Input, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	in, ok := c.confirmed[id]
	return in, ok
}

func (c *Coordinator) setConfirmed(id string, in pricing.Input) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirmed[id] = in
}

func (c *Coordinator) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.confirmed, id)
}
