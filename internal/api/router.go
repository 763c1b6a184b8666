package api

import (
	"net/http"
	"time"

	"trustpay/internal/api/handler"
	"trustpay/internal/app/service"
	"trustpay/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	tokens *security.TokenService,
	authService *service.AuthService,
	escrowService *service.EscrowService,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifies an Authorization: Bearer token when present and puts the
	// claims in the request context; the access guard middleware decides
	// per route group whether one is required.
	r.Use(jwtauth.Verifier(tokens.Auth()))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	authHandler := handler.NewAuthHandler(authService)
	authHandler.RegisterRoutes(r)

	escrowHandler := handler.NewEscrowHandler(escrowService)
	escrowHandler.RegisterRoutes(r)

	return r
}
