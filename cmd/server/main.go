package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"restopos/backend/internal/config"
	"restopos/backend/internal/httpapi"
	"restopos/backend/internal/service"
	"restopos/backend/internal/session"
	"restopos/backend/internal/store"
	"restopos/backend/internal/store/memory"
	pgstore "restopos/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	location, err := cfg.Location()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	switch {
	case cfg.DatabaseURL != "":
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Println("repository: postgres")
	case cfg.DataDir != "":
		snap, err := memory.Open(cfg.DataDir)
		if err != nil {
			log.Fatalf("data directory %s unusable: %v", cfg.DataDir, err)
		}
		repo = snap
		log.Printf("repository: in-memory with snapshots in %s", cfg.DataDir)
	default:
		repo = memory.NewSeeded()
		log.Println("repository: in-memory")
	}

	var sessions session.Store = session.NewMemoryStore()
	if cfg.RedisAddr != "" {
		redisStore := session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisStore.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), keeping sessions in memory", err)
			_ = redisStore.Close()
		} else {
			sessions = redisStore
			closers = append(closers, redisStore.Close)
			log.Println("sessions: redis")
		}
	} else {
		log.Println("sessions: in-memory")
	}

	svc := service.New(repo, sessions, service.Options{Location: location, TokenTTL: cfg.TokenTTL()})
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.TokenTTL(), repo)
	api := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigin:  cfg.AllowedOrigin,
		LoginPerMinute: cfg.LoginRatePerMinute,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("POS backend listening on %s (reports in %s)", cfg.Address(), location)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.SeedPIN != "" {
		if err := validatePINStrength(cfg.SeedPIN); err != nil {
			return fmt.Errorf("SEED_DEFAULT_PIN is too weak: %w", err)
		}
	}
	return nil
}

// validatePINStrength rejects PINs that are not 4 to 6 digits, all the same
// digit, sequential (ascending or descending), or from a known-weak list.
func validatePINStrength(pin string) error {
	if len(pin) < 4 || len(pin) > 6 {
		return fmt.Errorf("PIN must be 4 to 6 digits")
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return fmt.Errorf("PIN must be 4 to 6 digits")
		}
	}

	known := map[string]bool{
		"1212": true, "6969": true, "2580": true,
		"121212": true, "112233": true, "123123": true,
	}
	if known[pin] {
		return fmt.Errorf("common PIN not allowed")
	}

	allSame := true
	for i := 1; i < len(pin); i++ {
		if pin[i] != pin[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("all-same-digit PIN not allowed")
	}

	ascending, descending := true, true
	for i := 1; i < len(pin); i++ {
		diff := int(pin[i]) - int(pin[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	if ascending || descending {
		return fmt.Errorf("sequential PIN not allowed")
	}

	return nil
}
