package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"membership-payments/internal/config"
	"membership-payments/internal/domain"
	"membership-payments/internal/domain/model"
	"membership-payments/internal/infra/api"
	pg "membership-payments/internal/infra/db/postgres"
	"membership-payments/internal/infra/logging"
)

// seed creates a few payer profiles and prints a bearer token for each,
// enough to drive a sandbox checkout end to end.
func main() {
	// ---- Config ----
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatalf("database.url is empty; the in-memory store is seeded by the app itself in -dev")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg.Database.MaxConns = 4
	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	profiles := pg.NewProfileRepo(pool)
	auth := api.NewAuthenticator(cfg.Auth.JWTSecret, logger)

	seed := []struct {
		ID    string
		Email string
	}{
		{"payer-alice", "alice@example.com"},
		{"payer-bob", "bob@example.com"},
		{"payer-carol", "carol@example.com"},
	}

	for _, s := range seed {
		existing, err := profiles.FindByID(ctx, nil, s.ID)
		switch {
		case err == nil:
			fmt.Printf("present: %s (status=%s)\n", existing.ID, existing.MembershipStatus)
		case errors.Is(err, domain.ErrProfileNotFound):
			p, err := model.NewProfile(s.ID, s.Email)
			if err != nil {
				log.Fatalf("profile %q: %v", s.ID, err)
			}
			if err := profiles.Save(ctx, nil, p); err != nil {
				log.Fatalf("save profile %q: %v", s.ID, err)
			}
			fmt.Printf("seeded: %s <%s>\n", p.ID, p.Email)
		default:
			log.Fatalf("find profile %q: %v", s.ID, err)
		}

		tok, err := auth.Mint(s.ID, "", 24*time.Hour)
		if err != nil {
			log.Fatalf("mint token: %v", err)
		}
		fmt.Printf("  token: %s\n", tok)
	}

	fmt.Println("✅ Seeding complete.")
}
