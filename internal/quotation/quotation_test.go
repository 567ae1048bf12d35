package quotation

import (
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/quotecart/internal/cart"
	"github.com/angelmondragon/quotecart/internal/pricing"
	"github.com/angelmondragon/quotecart/internal/totals"
	pkgerrors "github.com/angelmondragon/quotecart/pkg/errors"
)

var issued = time.Date(2026, time.March, 4, 9, 5, 7, 0, time.UTC)

func sampleItems() []cart.Item {
	return []cart.Item{
		{ID: "line-1", Breakdown: pricing.Breakdown{Total: decimal.RequireFromString("2800")}},
		{ID: "line-2", Breakdown: pricing.Breakdown{Total: decimal.RequireFromString("1200")}},
	}
}

func TestBuildSnapshotsCart(t *testing.T) {
	items := sampleItems()
	sums := totals.Compute(items)

	q, err := Build(Company{Name: " Acme Print ", Email: "buyer@acme.test"}, items, sums, issued)
	require.NoError(t, err)

	assert.Equal(t, "Acme Print", q.Company.Name)
	assert.Equal(t, "buyer@acme.test", q.Company.Email)
	assert.Equal(t, "04-03-2026", q.Date)
	assert.Equal(t, "09:05:07", q.Time)
	assert.Regexp(t, regexp.MustCompile(`^QUO-20260304-[0-9A-F]{8}$`), q.ID)
	assert.True(t, q.Totals.GrandTotal.Equal(decimal.RequireFromString("4000")))
	require.Len(t, q.Items, 2)

	items[0].ID = "mutated"
	assert.Equal(t, "line-1", q.Items[0].ID, "quotation must not alias the caller's slice")
}

func TestBuildDefaultsCompanyName(t *testing.T) {
	items := sampleItems()
	q, err := Build(Company{}, items, totals.Compute(items), issued)
	require.NoError(t, err)
	assert.Equal(t, DefaultCompanyName, q.Company.Name)
}

func TestBuildRejectsEmptyCart(t *testing.T) {
	_, err := Build(Company{Name: "Acme"}, nil, totals.Totals{}, issued)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}
