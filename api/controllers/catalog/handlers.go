package catalog

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/quotecart/api/responses"
	catalogsvc "github.com/angelmondragon/quotecart/internal/catalog"
	pkgerrors "github.com/angelmondragon/quotecart/pkg/errors"
	"github.com/angelmondragon/quotecart/pkg/logger"
)

// BlanketList returns the area-priced blanket variants.
func BlanketList(src catalogsvc.Source, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if src == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}
		variants, err := src.Blankets(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load blankets"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"blankets": variants})
	}
}

// SurchargeList returns the barring surcharge options.
func SurchargeList(src catalogsvc.Source, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if src == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}
		surcharges, err := src.Surcharges(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load surcharges"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"surcharges": surcharges})
	}
}

// DiscountList returns the selectable discount percentages, highest first.
func DiscountList(src catalogsvc.Source, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if src == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}
		discounts, err := src.DiscountOptions(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discounts"))
			return
		}
		if discounts == nil {
			discounts = []decimal.Decimal{}
		}
		responses.WriteSuccess(w, map[string]any{"discounts": discounts})
	}
}
