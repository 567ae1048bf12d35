package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// Source yields catalog data. Implementations are read-only.
type Source interface {
	Blankets(ctx context.Context) ([]Variant, error)
	Surcharges(ctx context.Context) ([]Surcharge, error)
	DiscountOptions(ctx context.Context) ([]decimal.Decimal, error)
}

var defaultDiscounts = []decimal.Decimal{
	decimal.NewFromInt(20),
	decimal.NewFromInt(15),
	decimal.NewFromInt(10),
	decimal.NewFromInt(5),
}

// FileSource reads catalog JSON documents from a directory:
//
//	blankets.json  [{"id","name","ratePerSqMt"|"base_rate"}]
//	bar.json       [{"label","rate"}]
//	discount.json  {"discounts": ["5.00", 10, ...]}
type FileSource struct {
	root fs.FS
}

// NewFileSource builds a source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{root: os.DirFS(dir)}
}

// NewFSSource builds a source over an arbitrary filesystem.
func NewFSSource(root fs.FS) *FileSource {
	return &FileSource{root: root}
}

type blanketRecord struct {
	ID          json.RawMessage  `json:"id"`
	Name        string           `json:"name"`
	RatePerSqMt *decimal.Decimal `json:"ratePerSqMt"`
	BaseRate    *decimal.Decimal `json:"base_rate"`
}

type barRecord struct {
	Label string          `json:"label"`
	Rate  decimal.Decimal `json:"rate"`
}

// Blankets returns every blanket variant, rejecting the file when any record is unusable.
func (s *FileSource) Blankets(ctx context.Context) ([]Variant, error) {
	var records []blanketRecord
	if err := s.decode("blankets.json", &records); err != nil {
		return nil, err
	}

	variants := make([]Variant, 0, len(records))
	var errs error
	for _, rec := range records {
		rate := decimal.Zero
		switch {
		case rec.RatePerSqMt != nil:
			rate = *rec.RatePerSqMt
		case rec.BaseRate != nil:
			rate = *rec.BaseRate
		}
		variant := AreaPriced(normalizeID(rec.ID), rec.Name, rate)
		if err := variant.Validate(); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		variants = append(variants, variant)
	}
	if errs != nil {
		return nil, fmt.Errorf("blankets.json: %w", errs)
	}
	return variants, nil
}

// Surcharges returns the barring options as per-area surcharges.
func (s *FileSource) Surcharges(ctx context.Context) ([]Surcharge, error) {
	var records []barRecord
	if err := s.decode("bar.json", &records); err != nil {
		return nil, err
	}
	out := make([]Surcharge, 0, len(records))
	for _, rec := range records {
		out = append(out, *AreaSurcharge(rec.Label, rec.Rate))
	}
	return out, nil
}

// DiscountOptions returns discount percentages sorted descending. A missing file yields
// the storefront's fallback list.
func (s *FileSource) DiscountOptions(ctx context.Context) ([]decimal.Decimal, error) {
	var doc struct {
		Discounts []decimal.Decimal `json:"discounts"`
	}
	if err := s.decode("discount.json", &doc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return append([]decimal.Decimal(nil), defaultDiscounts...), nil
		}
		return nil, err
	}
	out := make([]decimal.Decimal, 0, len(doc.Discounts))
	for _, d := range doc.Discounts {
		if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GreaterThan(out[j]) })
	return out, nil
}

func (s *FileSource) decode(name string, dest any) error {
	raw, err := fs.ReadFile(s.root, filepath.ToSlash(name))
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// ids show up as both numbers and strings in the catalog files
func normalizeID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
