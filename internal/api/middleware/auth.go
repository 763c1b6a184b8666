package middleware

import (
	"context"
	"errors"
	"net/http"

	"trustpay/internal/common"
	"trustpay/internal/common/security"
	"trustpay/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const identityCtxKey contextKey = "identity"

// Authenticator is the access guard behind every owner-scoped route.
// A missing token is 401; a token that fails signature or expiry checks
// is 403. On success the decoded identity is placed in the context for
// handlers to pass explicitly into the services.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context()) // Extracts token from Authorization header

		if err != nil {
			if errors.Is(err, jwtauth.ErrNoTokenFound) {
				common.RespondWithError(w, http.StatusUnauthorized, common.ErrUnauthenticated.Error())
			} else {
				common.RespondWithError(w, http.StatusForbidden, common.ErrForbidden.Error())
			}
			return
		}
		if token == nil {
			common.RespondWithError(w, http.StatusUnauthorized, common.ErrUnauthenticated.Error())
			return
		}

		identity, err := security.IdentityFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusForbidden, "Invalid token claims: "+err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), identityCtxKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SellerOnly gates the accept/reject routes.
func SellerOnly(next http.Handler) http.Handler {
	return requireRole(model.RoleSeller, next)
}

// BuyerOnly gates the create/cancel/release routes.
func BuyerOnly(next http.Handler) http.Handler {
	return requireRole(model.RoleBuyer, next)
}

func requireRole(role model.Role, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok || identity.Role != role {
			common.RespondWithError(w, http.StatusForbidden, string(role)+" access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFromContext returns the identity attached by Authenticator.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey).(model.Identity)
	return identity, ok
}
