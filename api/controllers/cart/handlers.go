package cart

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	cartdto "github.com/angelmondragon/quotecart/api/controllers/cart/dto"
	"github.com/angelmondragon/quotecart/api/middleware"
	"github.com/angelmondragon/quotecart/api/responses"
	"github.com/angelmondragon/quotecart/api/validators"
	cartdomain "github.com/angelmondragon/quotecart/internal/cart"
	"github.com/angelmondragon/quotecart/internal/quotation"
	"github.com/angelmondragon/quotecart/internal/savedcart"
	"github.com/angelmondragon/quotecart/pkg/enums"
	pkgerrors "github.com/angelmondragon/quotecart/pkg/errors"
	"github.com/angelmondragon/quotecart/pkg/logger"
)

const maxCompanyFieldLength = 200

// CartFetch returns the owner's saved cart with totals.
func CartFetch(svc savedcart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := requireOwner(w, r, svc, logg)
		if !ok {
			return
		}

		saved, err := svc.Get(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, saved)
	}
}

// CartCount returns the number of saved lines.
func CartCount(svc savedcart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := requireOwner(w, r, svc, logg)
		if !ok {
			return
		}

		count, err := svc.Count(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cartdto.CountResponse{Count: count})
	}
}

// CartAddItem saves a new line. An identical configuration is rejected with 409 unless force_add is set.
func CartAddItem(svc savedcart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := requireOwner(w, r, svc, logg)
		if !ok {
			return
		}

		var payload cartdto.AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		draft := cartdomain.Draft{Type: enums.ProductType(payload.Type), Input: payload.Input}
		item, err := svc.Add(r.Context(), ownerID, draft, savedcart.AddOptions{
			Force:      payload.ForceAdd,
			DefaultGST: payload.UseDefaultGST,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// CartUpdateItem applies a partial update to a saved line; the server re-prices it.
func CartUpdateItem(svc savedcart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := requireOwner(w, r, svc, logg)
		if !ok {
			return
		}
		itemID, err := itemIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var patch cartdomain.Patch
		if err := validators.DecodeJSONBody(r, &patch); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithItemID(ctx, itemID)
		}
		item, err := svc.Update(ctx, ownerID, itemID, patch)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

// CartRemoveItem deletes a saved line.
func CartRemoveItem(svc savedcart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := requireOwner(w, r, svc, logg)
		if !ok {
			return
		}
		itemID, err := itemIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Remove(r.Context(), ownerID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cartdto.RemoveResponse{ID: itemID, Removed: true})
	}
}

// CartClear deletes every saved line of the owner.
func CartClear(svc savedcart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := requireOwner(w, r, svc, logg)
		if !ok {
			return
		}

		if err := svc.Clear(r.Context(), ownerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cartdto.ClearResponse{Cleared: true})
	}
}

// CartQuotation snapshots the saved cart as a quotation for the company named in the query.
func CartQuotation(svc savedcart.Service, now func() time.Time, logg *logger.Logger) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := requireOwner(w, r, svc, logg)
		if !ok {
			return
		}

		saved, err := svc.Get(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		company := quotation.Company{
			Name:  validators.SanitizeString(query.Get("company_name"), maxCompanyFieldLength),
			Email: validators.SanitizeString(query.Get("company_email"), maxCompanyFieldLength),
		}
		quote, err := quotation.Build(company, saved.Items, saved.Totals, now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, quote)
	}
}

func requireOwner(w http.ResponseWriter, r *http.Request, svc savedcart.Service, logg *logger.Logger) (string, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
		return "", false
	}
	ownerID := middleware.OwnerIDFromContext(r.Context())
	if ownerID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "cart owner missing"))
		return "", false
	}
	return ownerID, true
}

func itemIDParam(r *http.Request) (string, error) {
	itemID := strings.TrimSpace(chi.URLParam(r, "itemId"))
	if itemID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "item id is required").WithDetails(map[string]string{"itemId": "is required"})
	}
	return itemID, nil
}
