// Package savedcart is the server-held cart the sync coordinator persists to. The server
// re-prices every line and its values are authoritative.
package savedcart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/quotecart/internal/cart"
	"github.com/angelmondragon/quotecart/internal/pricing"
	"github.com/angelmondragon/quotecart/internal/totals"
	"github.com/angelmondragon/quotecart/pkg/db"
	"github.com/angelmondragon/quotecart/pkg/db/models"
	"github.com/angelmondragon/quotecart/pkg/enums"
	pkgerrors "github.com/angelmondragon/quotecart/pkg/errors"
	"github.com/angelmondragon/quotecart/pkg/logger"
	"github.com/angelmondragon/quotecart/pkg/redis"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

var errOwnerRequired = errors.New("cart owner is required")

// GSTDefaults are the rates applied when a client does not choose one.
type GSTDefaults struct {
	Blanket decimal.Decimal
	MPack   decimal.Decimal
}

// DefaultGSTDefaults mirrors the rates of the pricing package.
func DefaultGSTDefaults() GSTDefaults {
	return GSTDefaults{Blanket: decimal.NewFromInt(18), MPack: decimal.NewFromInt(12)}
}

// For returns the default rate for t.
func (g GSTDefaults) For(t enums.ProductType) decimal.Decimal {
	if t == enums.ProductTypeBlanket {
		return g.Blanket
	}
	return g.MPack
}

// Option configures the service.
type Option func(*service)

// WithCache enables the read-through cart cache.
func WithCache(cache redis.CartCache, ttl time.Duration) Option {
	return func(s *service) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithLogger sets the service logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *service) {
		if l != nil {
			s.logg = l
		}
	}
}

// WithGSTDefaults overrides the default GST rates.
func WithGSTDefaults(g GSTDefaults) Option {
	return func(s *service) { s.gst = g }
}

// WithIDGenerator overrides line id generation.
func WithIDGenerator(next func() string) Option {
	return func(s *service) {
		if next != nil {
			s.newID = next
		}
	}
}

type service struct {
	repo     Repository
	tx       txRunner
	cache    redis.CartCache
	cacheTTL time.Duration
	logg     *logger.Logger
	gst      GSTDefaults
	newID    func() string
	sfg      singleflight.Group
}

// NewService wires the saved cart service.
func NewService(repo Repository, tx txRunner, opts ...Option) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("saved cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	s := &service{
		repo:  repo,
		tx:    tx,
		logg:  logger.Nop(),
		gst:   DefaultGSTDefaults(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *service) Get(ctx context.Context, ownerID string) (*Cart, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	v, err, _ := s.sfg.Do(ownerID, func() (any, error) {
		if cached, ok := s.readCache(ctx, ownerID); ok {
			return cached, nil
		}

		lines, err := s.repo.List(ctx, ownerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		out := buildCart(ownerID, lines)
		s.writeCache(ctx, ownerID, out)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	shared := v.(*Cart)
	out := *shared
	out.Items = append([]cart.Item(nil), shared.Items...)
	return &out, nil
}

func (s *service) Count(ctx context.Context, ownerID string) (int, error) {
	if err := requireOwner(ownerID); err != nil {
		return 0, err
	}
	count, err := s.repo.Count(ctx, ownerID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count cart items")
	}
	return int(count), nil
}

func (s *service) Add(ctx context.Context, ownerID string, draft cart.Draft, opts AddOptions) (cart.Item, error) {
	if err := requireOwner(ownerID); err != nil {
		return cart.Item{}, err
	}
	productType := draft.Type
	if productType == "" {
		productType = cart.TypeFor(draft.Input.Variant.Kind)
	}
	if !productType.IsValid() {
		return cart.Item{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid product type").WithDetails(map[string]string{"type": "must be blanket or mpack"})
	}
	input := draft.Input
	if opts.DefaultGST {
		input.GSTPercent = s.gst.For(productType)
	}
	input, breakdown, err := price(input)
	if err != nil {
		return cart.Item{}, err
	}
	identityKey := cart.IdentityOf(productType, input).Key()

	var created models.CartLine
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if !opts.Force {
			existing, err := repo.FindByIdentity(ctx, ownerID, identityKey)
			switch {
			case err == nil:
				return duplicateError(toItem(*existing))
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check duplicate cart item")
			}
		}

		position, err := repo.NextPosition(ctx, ownerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "allocate cart position")
		}
		created = models.CartLine{
			ID:          s.newID(),
			OwnerID:     ownerID,
			Position:    position,
			ProductType: productType,
			IdentityKey: identityKey,
			Input:       input,
			Breakdown:   breakdown,
		}
		if err := repo.Create(ctx, &created); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart item already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart item")
		}
		return nil
	})
	if err != nil {
		return cart.Item{}, err
	}

	s.invalidate(ctx, ownerID)
	return toItem(created), nil
}

func (s *service) Update(ctx context.Context, ownerID, id string, patch cart.Patch) (cart.Item, error) {
	if err := requireOwner(ownerID); err != nil {
		return cart.Item{}, err
	}
	if patch.IsEmpty() {
		return cart.Item{}, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}

	var updated models.CartLine
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		line, err := repo.Find(ctx, ownerID, id)
		if err != nil {
			return lookupError(id, err)
		}
		input, breakdown, err := price(patch.Apply(line.Input))
		if err != nil {
			return err
		}
		line.Input = input
		line.Breakdown = breakdown
		if err := repo.Save(ctx, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
		}
		updated = *line
		return nil
	})
	if err != nil {
		return cart.Item{}, err
	}

	s.invalidate(ctx, ownerID)
	return toItem(updated), nil
}

func (s *service) Remove(ctx context.Context, ownerID, id string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	removed, err := s.repo.Delete(ctx, ownerID, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	if !removed {
		return lookupError(id, gorm.ErrRecordNotFound)
	}
	s.invalidate(ctx, ownerID)
	return nil
}

func (s *service) Clear(ctx context.Context, ownerID string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if _, err := s.repo.DeleteAll(ctx, ownerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	s.invalidate(ctx, ownerID)
	return nil
}

func (s *service) readCache(ctx context.Context, ownerID string) (*Cart, bool) {
	if s.cache == nil {
		return nil, false
	}
	payload, err := s.cache.GetCart(ctx, ownerID)
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart.cache.read_failed")
		}
		return nil, false
	}
	var out Cart
	if err := json.Unmarshal(payload, &out); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart.cache.decode_failed")
		return nil, false
	}
	return &out, true
}

func (s *service) writeCache(ctx context.Context, ownerID string, c *Cart) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(c)
	if err != nil {
		s.logg.Error(ctx, "cart.cache.encode_failed", err)
		return
	}
	if err := s.cache.SetCart(ctx, ownerID, payload, s.cacheTTL); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart.cache.write_failed")
	}
}

func (s *service) invalidate(ctx context.Context, ownerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCart(ctx, ownerID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart.cache.invalidate_failed")
	}
}

func buildCart(ownerID string, lines []models.CartLine) *Cart {
	items := make([]cart.Item, 0, len(lines))
	for _, line := range lines {
		items = append(items, toItem(line))
	}
	return &Cart{OwnerID: ownerID, Items: items, Totals: totals.Compute(items)}
}

func toItem(line models.CartLine) cart.Item {
	return cart.Item{
		ID:        line.ID,
		Type:      line.ProductType,
		Input:     line.Input,
		Breakdown: line.Breakdown,
		CreatedAt: line.CreatedAt.UTC(),
		SyncState: enums.SyncStateSynced,
	}
}

func price(input pricing.Input) (pricing.Input, pricing.Breakdown, error) {
	normalized, err := input.Normalize()
	if err != nil {
		return pricing.Input{}, pricing.Breakdown{}, err
	}
	breakdown, err := pricing.Price(normalized)
	if err != nil {
		return pricing.Input{}, pricing.Breakdown{}, err
	}
	return normalized, breakdown, nil
}

func duplicateError(existing cart.Item) error {
	return pkgerrors.Wrap(pkgerrors.CodeDuplicate, &cart.DuplicateError{Existing: existing}, "").
		WithDetails(map[string]any{
			"is_duplicate": true,
			"duplicate_id": existing.ID,
		})
}

func lookupError(id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, cart.ErrItemNotFound, fmt.Sprintf("cart item %s not found", id))
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, errOwnerRequired, "cart owner is required")
	}
	return nil
}
