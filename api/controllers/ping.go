package controllers

import (
	"net/http"

	"github.com/angelmondragon/quotecart/api/middleware"
	"github.com/angelmondragon/quotecart/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func CartPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "cart", "status": "ok"}
		if owner := middleware.OwnerIDFromContext(r.Context()); owner != "" {
			payload["owner_id"] = owner
		}
		responses.WriteSuccess(w, payload)
	}
}
