// Package cart holds the ordered, in-memory cart and its duplicate rules.
package cart

import (
	"sync"
	"time"

	"github.com/angelmondragon/quotecart/internal/pricing"
	"github.com/angelmondragon/quotecart/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventKind names a store mutation.
type EventKind string

const (
	EventAdded        EventKind = "added"
	EventUpdated      EventKind = "updated"
	EventRemoved      EventKind = "removed"
	EventStateChanged EventKind = "state_changed"
	EventReset        EventKind = "reset"
)

// Event is delivered to listeners after a mutation has been applied.
type Event struct {
	Kind EventKind
	Item Item
	// PreviousID is set when a server confirmation replaced the local id.
	PreviousID string
}

// Listener observes store mutations. Listeners run synchronously on the mutating
// goroutine, after the store lock is released.
type Listener func(Event)

// AddOptions tunes Add.
type AddOptions struct {
	// Force skips the duplicate check.
	Force bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides local id generation.
func WithIDGenerator(next func() string) Option {
	return func(s *Store) {
		if next != nil {
			s.newID = next
		}
	}
}

// Store is the only mutable cart state. All mutation goes through its methods.
type Store struct {
	mu        sync.RWMutex
	items     []*Item
	listeners map[int]Listener
	nextSub   int

	now   func() time.Time
	newID func() string
}

// NewStore builds an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		listeners: map[int]Listener{},
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Add prices the draft and appends it. When a line with the same identity exists and
// opts.Force is false, the existing line is returned inside a *DuplicateError.
func (s *Store) Add(draft Draft, opts AddOptions) (Item, error) {
	in, breakdown, err := price(draft.Input)
	if err != nil {
		return Item{}, err
	}
	kind := draft.Type
	if kind == "" {
		kind = TypeFor(in.Variant.Kind)
	}

	s.mu.Lock()
	if !opts.Force {
		identity := IdentityOf(kind, in)
		if existing := s.findByIdentityLocked(identity, ""); existing != nil {
			dup := existing.clone()
			s.mu.Unlock()
			return Item{}, &DuplicateError{Existing: dup}
		}
	}
	item := &Item{
		ID:        s.newID(),
		Type:      kind,
		Input:     in,
		Breakdown: breakdown,
		CreatedAt: s.now().UTC(),
		SyncState: enums.SyncStateLocal,
	}
	s.items = append(s.items, item)
	out := item.clone()
	listeners := s.snapshotListenersLocked()
	s.mu.Unlock()

	notify(listeners, Event{Kind: EventAdded, Item: out})
	return out, nil
}

// Update re-prices the line with a new input, keeping its id. Changing the identity
// into one already held by another line yields a *DuplicateError.
func (s *Store) Update(id string, input pricing.Input) (Item, error) {
	return s.mutate(id, func(item *Item) error {
		in, breakdown, err := price(input)
		if err != nil {
			return err
		}
		next := IdentityOf(item.Type, in)
		if !next.Equal(item.Identity()) {
			if existing := s.findByIdentityLocked(next, item.ID); existing != nil {
				return &DuplicateError{Existing: existing.clone()}
			}
		}
		item.Input = in
		item.Breakdown = breakdown
		item.SyncState = enums.SyncStateLocal
		item.LastError = ""
		return nil
	}, EventUpdated)
}

// SetQuantity changes only the quantity and re-prices.
func (s *Store) SetQuantity(id string, qty int) (Item, error) {
	current, ok := s.Get(id)
	if !ok {
		return Item{}, notFound(id)
	}
	current.Input.Quantity = qty
	return s.Update(id, current.Input)
}

// SetDiscount changes only the discount percentage and re-prices.
func (s *Store) SetDiscount(id string, pct decimal.Decimal) (Item, error) {
	current, ok := s.Get(id)
	if !ok {
		return Item{}, notFound(id)
	}
	current.Input.DiscountPercent = pct
	return s.Update(id, current.Input)
}

// Remove deletes the line. Removing an unknown id is a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	removed := s.items[idx].clone()
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	listeners := s.snapshotListenersLocked()
	s.mu.Unlock()

	notify(listeners, Event{Kind: EventRemoved, Item: removed})
}

// Get returns a copy of the line with id.
func (s *Store) Get(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return Item{}, false
	}
	return s.items[idx].clone(), true
}

// Find returns copies of the lines matching pred, in insertion order.
func (s *Store) Find(pred func(Item) bool) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Item{}
	for _, item := range s.items {
		c := item.clone()
		if pred == nil || pred(c) {
			out = append(out, c)
		}
	}
	return out
}

// All returns copies of every line in insertion order.
func (s *Store) All() []Item {
	return s.Find(nil)
}

// Len returns the number of lines.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// MarkState records a sync state transition for the line.
func (s *Store) MarkState(id string, state enums.SyncState, lastError string) (Item, error) {
	return s.mutate(id, func(item *Item) error {
		item.SyncState = state
		item.LastError = lastError
		return nil
	}, EventStateChanged)
}

// Confirm replaces the local line with the server-canonical one. The server may assign
// a new id and normalize any priced field; its values win.
func (s *Store) Confirm(localID string, server Item) (Item, error) {
	s.mu.Lock()
	idx := s.indexLocked(localID)
	if idx < 0 {
		s.mu.Unlock()
		return Item{}, notFound(localID)
	}
	confirmed := server.clone()
	if confirmed.Type == "" {
		confirmed.Type = s.items[idx].Type
	}
	if confirmed.CreatedAt.IsZero() {
		confirmed.CreatedAt = s.items[idx].CreatedAt
	}
	confirmed.SyncState = enums.SyncStateSynced
	confirmed.LastError = ""
	s.items[idx] = &confirmed
	out := confirmed.clone()
	listeners := s.snapshotListenersLocked()
	s.mu.Unlock()

	notify(listeners, Event{Kind: EventUpdated, Item: out, PreviousID: localID})
	return out, nil
}

// Revert re-prices the line with a previously confirmed input and flags it as failed.
func (s *Store) Revert(id string, input pricing.Input, cause string) (Item, error) {
	return s.mutate(id, func(item *Item) error {
		in, breakdown, err := price(input)
		if err != nil {
			return err
		}
		item.Input = in
		item.Breakdown = breakdown
		item.SyncState = enums.SyncStateError
		item.LastError = cause
		return nil
	}, EventUpdated)
}

// Replace swaps the whole cart for items, e.g. after reloading from the server.
func (s *Store) Replace(items []Item) {
	s.mu.Lock()
	next := make([]*Item, 0, len(items))
	for _, item := range items {
		c := item.clone()
		if c.SyncState == "" {
			c.SyncState = enums.SyncStateSynced
		}
		next = append(next, &c)
	}
	s.items = next
	listeners := s.snapshotListenersLocked()
	s.mu.Unlock()

	notify(listeners, Event{Kind: EventReset})
}

func (s *Store) mutate(id string, fn func(*Item) error, kind EventKind) (Item, error) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return Item{}, notFound(id)
	}
	working := s.items[idx].clone()
	if err := fn(&working); err != nil {
		s.mu.Unlock()
		return Item{}, err
	}
	s.items[idx] = &working
	out := working.clone()
	listeners := s.snapshotListenersLocked()
	s.mu.Unlock()

	notify(listeners, Event{Kind: kind, Item: out})
	return out, nil
}

func (s *Store) indexLocked(id string) int {
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) findByIdentityLocked(identity Identity, skipID string) *Item {
	for _, item := range s.items {
		if item.ID == skipID {
			continue
		}
		if item.Identity().Equal(identity) {
			return item
		}
	}
	return nil
}

func (s *Store) snapshotListenersLocked() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for i := 0; i < s.nextSub; i++ {
		if l, ok := s.listeners[i]; ok {
			out = append(out, l)
		}
	}
	return out
}

func notify(listeners []Listener, ev Event) {
	for _, l := range listeners {
		l(ev)
	}
}

func price(input pricing.Input) (pricing.Input, pricing.Breakdown, error) {
	in, err := input.Normalize()
	if err != nil {
		return pricing.Input{}, pricing.Breakdown{}, err
	}
	in = cloneInput(in)
	breakdown, err := pricing.Price(in)
	if err != nil {
		return pricing.Input{}, pricing.Breakdown{}, err
	}
	return in, breakdown, nil
}
