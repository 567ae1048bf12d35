// Package quotation attaches display metadata to a priced cart. It never changes prices.
package quotation

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/quotecart/internal/cart"
	"github.com/angelmondragon/quotecart/internal/totals"
	pkgerrors "github.com/angelmondragon/quotecart/pkg/errors"
)

const (
	// DefaultCompanyName is shown when the customer company is unknown.
	DefaultCompanyName = "Your Company"

	idPrefix   = "QUO"
	dateLayout = "02-01-2006"
	timeLayout = "15:04:05"
)

// Company is the customer the quotation is addressed to.
type Company struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Quotation is a dated snapshot of a cart.
type Quotation struct {
	ID       string        `json:"id"`
	Company  Company       `json:"company"`
	Date     string        `json:"date"`
	Time     string        `json:"time"`
	IssuedAt time.Time     `json:"issued_at"`
	Items    []cart.Item   `json:"items"`
	Totals   totals.Totals `json:"totals"`
}

var newSuffix = func() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Build snapshots items and their totals for company at now. An empty cart cannot be quoted.
func Build(company Company, items []cart.Item, sums totals.Totals, now time.Time) (Quotation, error) {
	if len(items) == 0 {
		return Quotation{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	company.Name = strings.TrimSpace(company.Name)
	company.Email = strings.TrimSpace(company.Email)
	if company.Name == "" {
		company.Name = DefaultCompanyName
	}

	snapshot := make([]cart.Item, len(items))
	copy(snapshot, items)

	return Quotation{
		ID:       idPrefix + "-" + now.UTC().Format("20060102") + "-" + newSuffix(),
		Company:  company,
		Date:     now.Format(dateLayout),
		Time:     now.Format(timeLayout),
		IssuedAt: now,
		Items:    snapshot,
		Totals:   sums,
	}, nil
}
