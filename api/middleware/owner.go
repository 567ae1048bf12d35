package middleware

import (
	"net/http"

	"github.com/angelmondragon/quotecart/api/responses"
	"github.com/angelmondragon/quotecart/api/validators"
	pkgerrors "github.com/angelmondragon/quotecart/pkg/errors"
	"github.com/angelmondragon/quotecart/pkg/logger"
)

// OwnerHeader identifies whose cart a request operates on.
const OwnerHeader = "X-Cart-Owner"

const maxOwnerIDLength = 128

// Owner resolves the cart owner from OwnerHeader and rejects requests without one.
func Owner(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ownerID := validators.SanitizeString(r.Header.Get(OwnerHeader), maxOwnerIDLength)
			if ownerID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "cart owner missing"))
				return
			}

			ctx := WithOwnerID(r.Context(), ownerID)
			if logg != nil {
				ctx = logg.WithOwnerID(ctx, ownerID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
