package savedcart

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/angelmondragon/quotecart/internal/cart"
	"github.com/angelmondragon/quotecart/internal/catalog"
	"github.com/angelmondragon/quotecart/internal/pricing"
	"github.com/angelmondragon/quotecart/pkg/config"
	"github.com/angelmondragon/quotecart/pkg/db"
	"github.com/angelmondragon/quotecart/pkg/db/models"
	"github.com/angelmondragon/quotecart/pkg/enums"
	pkgerrors "github.com/angelmondragon/quotecart/pkg/errors"
	"github.com/angelmondragon/quotecart/pkg/migrate"
	"github.com/angelmondragon/quotecart/pkg/redis"
	"github.com/angelmondragon/quotecart/pkg/units"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const owner = "owner-1"

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func blanketDraft() cart.Draft {
	return cart.Draft{
		Type: enums.ProductTypeBlanket,
		Input: pricing.Input{
			Variant:   catalog.AreaPriced("bl-1", "Conti Air", d("500")),
			Machine:   "Heidelberg SM 74",
			Thickness: "1.95",
			Dimensions: &pricing.Dimensions{
				Length: units.Measurement{Value: d("1000"), Unit: units.Millimeter},
				Width:  units.Measurement{Value: d("2000"), Unit: units.Millimeter},
			},
			Surcharge:       catalog.AreaSurcharge("bar", d("50")),
			Quantity:        2,
			DiscountPercent: d("10"),
			GSTPercent:      d("18"),
		},
	}
}

func mpackDraft() cart.Draft {
	return cart.Draft{
		Input: pricing.Input{
			Variant:  catalog.UnitPriced("mp-1", "MPack", "100", "500x700", d("250")),
			Machine:  "Komori",
			Quantity: 10,
		},
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrate.RunEmbedded(context.Background(), sqlDB, config.DriverSQLite, "up"))
	return conn
}

type countingRepo struct {
	Repository
	lists atomic.Int32
}

func (r *countingRepo) List(ctx context.Context, ownerID string) ([]models.CartLine, error) {
	r.lists.Add(1)
	return r.Repository.List(ctx, ownerID)
}

func (r *countingRepo) WithTx(tx *gorm.DB) Repository {
	return r.Repository.WithTx(tx)
}

type fixture struct {
	svc  Service
	repo *countingRepo
	mr   *miniredis.Miniredis
}

func setupService(t *testing.T) fixture {
	t.Helper()
	conn := setupTestDB(t)
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })

	seq := 0
	repo := &countingRepo{Repository: NewRepository(conn)}
	svc, err := NewService(repo, db.NewFromGorm(conn),
		WithCache(redis.NewFromClient(raw), time.Minute),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("line-%d", seq)
		}),
	)
	require.NoError(t, err)
	return fixture{svc: svc, repo: repo, mr: mr}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil)
	require.Error(t, err)
}

func TestAddAndGet(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	item, err := f.svc.Add(ctx, owner, blanketDraft(), AddOptions{})
	require.NoError(t, err)
	assert.Equal(t, "line-1", item.ID)
	assert.Equal(t, enums.SyncStateSynced, item.SyncState)
	assert.True(t, item.Breakdown.Total.Equal(d("2336.40")))

	got, err := f.svc.Get(ctx, owner)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "line-1", got.Items[0].ID)
	assert.True(t, got.Items[0].Input.Dimensions.Length.Value.Equal(d("1000")))
	assert.True(t, got.Totals.GrandTotal.Equal(d("2336.40")))
	assert.True(t, f.mr.Exists("qc:cart:"+owner))
}

func TestGetServesFromCacheUntilMutation(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, owner)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.repo.lists.Load())

	_, err = f.svc.Add(ctx, owner, mpackDraft(), AddOptions{DefaultGST: true})
	require.NoError(t, err)
	assert.False(t, f.mr.Exists("qc:cart:"+owner))

	got, err := f.svc.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.repo.lists.Load())
	require.Len(t, got.Items, 1)
}

func TestAddDuplicateNeedsForce(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	first, err := f.svc.Add(ctx, owner, blanketDraft(), AddOptions{})
	require.NoError(t, err)

	again := blanketDraft()
	again.Input.Quantity = 5
	_, err = f.svc.Add(ctx, owner, again, AddOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, cart.ErrDuplicateFound)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDuplicate, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, details["is_duplicate"])
	assert.Equal(t, first.ID, details["duplicate_id"])

	_, err = f.svc.Add(ctx, owner, again, AddOptions{Force: true})
	require.NoError(t, err)

	count, err := f.svc.Count(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDuplicatesAreScopedToOwner(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	_, err := f.svc.Add(ctx, owner, blanketDraft(), AddOptions{})
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, "owner-2", blanketDraft(), AddOptions{})
	require.NoError(t, err)
}

func TestAddAppliesDefaultGST(t *testing.T) {
	f := setupService(t)

	item, err := f.svc.Add(context.Background(), owner, mpackDraft(), AddOptions{DefaultGST: true})
	require.NoError(t, err)
	assert.Equal(t, enums.ProductTypeMPack, item.Type)
	assert.True(t, item.Input.GSTPercent.Equal(d("12")))
	assert.True(t, item.Breakdown.Total.Equal(d("2800.00")))
}

func TestAddRejectsInvalidInput(t *testing.T) {
	f := setupService(t)
	draft := blanketDraft()
	draft.Input.Dimensions.Length.Unit = "furlong"

	_, err := f.svc.Add(context.Background(), owner, draft, AddOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, units.ErrInvalidUnit)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestUpdateReprices(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	item, err := f.svc.Add(ctx, owner, blanketDraft(), AddOptions{})
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, owner, item.ID, cart.QuantityPatch(4))
	require.NoError(t, err)
	assert.Equal(t, item.ID, updated.ID)
	assert.Equal(t, 4, updated.Input.Quantity)
	assert.True(t, updated.Breakdown.Total.Equal(d("4672.80")))

	got, err := f.svc.Get(ctx, owner)
	require.NoError(t, err)
	assert.True(t, got.Totals.GrandTotal.Equal(d("4672.80")))
}

func TestUpdateErrors(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	_, err := f.svc.Update(ctx, owner, "missing", cart.QuantityPatch(2))
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	assert.ErrorIs(t, err, cart.ErrItemNotFound)

	item, err := f.svc.Add(ctx, owner, blanketDraft(), AddOptions{})
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, owner, item.ID, cart.Patch{})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = f.svc.Update(ctx, "owner-2", item.ID, cart.QuantityPatch(2))
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestRemoveAndClear(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	a, err := f.svc.Add(ctx, owner, blanketDraft(), AddOptions{})
	require.NoError(t, err)
	b, err := f.svc.Add(ctx, owner, mpackDraft(), AddOptions{DefaultGST: true})
	require.NoError(t, err)
	c, err := f.svc.Add(ctx, owner, blanketDraft(), AddOptions{Force: true})
	require.NoError(t, err)

	require.NoError(t, f.svc.Remove(ctx, owner, b.ID))
	err = f.svc.Remove(ctx, owner, b.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	got, err := f.svc.Get(ctx, owner)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, []string{a.ID, c.ID}, []string{got.Items[0].ID, got.Items[1].ID})

	require.NoError(t, f.svc.Clear(ctx, owner))
	count, err := f.svc.Count(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestOwnerRequired(t *testing.T) {
	f := setupService(t)
	_, err := f.svc.Get(context.Background(), " ")
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestGSTDefaultsFor(t *testing.T) {
	g := DefaultGSTDefaults()
	assert.True(t, g.For(enums.ProductTypeBlanket).Equal(d("18")))
	assert.True(t, g.For(enums.ProductTypeMPack).Equal(d("12")))
}
