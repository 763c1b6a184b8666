package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trustpay/internal/api"
	"trustpay/internal/app/service"
	"trustpay/internal/common/security"
	"trustpay/internal/domain/repository"
	"trustpay/internal/platform/cache"
	"trustpay/internal/platform/config"
	"trustpay/internal/platform/database"
)

func main() {
	cfg := config.Load()
	log.Println("Configuration loaded.")

	tokens := security.NewTokenService(cfg.JWTKey, cfg.JWTExp)

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected.")

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatalf("Migrations: %v", err)
	}
	log.Println("Migrations applied.")

	redisClient, err := cache.Open(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected.")

	userRepo := repository.NewPgUserRepository(db)
	escrowRepo := repository.NewPgEscrowRepository(db)

	authService := service.NewAuthService(userRepo, tokens)
	escrowService := service.NewEscrowService(escrowRepo, redisClient, cfg.EscrowListCacheTTL)

	router := api.NewRouter(tokens, authService, escrowService)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
		}
	}()

	<-stop

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped gracefully.")
}
