package middlewares

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Owner guards owner-scoped routes: a valid bearer token whose claims carry
// a user id. The id lands in the request context for handlers to pick up.
func Owner(tokenSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(oauth.Authorize(tokenSecret, nil), owner).Handler(next)
	}
}

func owner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(oauth.ClaimsContext).(map[string]string)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		userID, err := strconv.Atoi(claims["user_id"])
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the authenticated owner's id, or 0 outside Owner-guarded
// routes.
func UserID(r *http.Request) int {
	id, _ := r.Context().Value(userIDKey).(int)
	return id
}
