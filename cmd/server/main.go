package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expensebook/internal/auth"
	"expensebook/internal/config"
	"expensebook/internal/handlers"
	"expensebook/internal/logger"
	"expensebook/internal/storage"

	"github.com/rs/zerolog/log"
)

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := storage.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to open database")
	}
	defer db.Close()

	if err := seedAdmin(db, cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to seed admin user")
	}

	h := handlers.NewHandlers(db, cfg.TemplateDir, cfg.SecureCookie, cfg.SessionTTL)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: h.Routes(cfg.StaticDir),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	log.Info().Int("port", cfg.ServerPort).Str("db", cfg.DatabasePath).Msg("server listening")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

// seedAdmin creates the configured admin account when it does not exist yet.
// Used by deployments and the e2e harness to bootstrap a first login.
func seedAdmin(db *storage.DB, cfg *config.Config) error {
	if cfg.AdminUser == "" || cfg.AdminPassword == "" {
		return nil
	}

	if _, err := db.GetUserByUsername(cfg.AdminUser); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	email := cfg.AdminEmail
	if email == "" {
		email = cfg.AdminUser + "@localhost"
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	user, err := db.CreateUser(cfg.AdminUser, email, hash)
	if err != nil {
		return err
	}
	log.Info().Str("username", user.Username).Msg("seeded admin user")
	return nil
}
