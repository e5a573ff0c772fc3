// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev user (dev@example.com) already exists.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"user-auth-service/internal/config"
	"user-auth-service/internal/db"
	"user-auth-service/internal/security"
	userdomain "user-auth-service/internal/user/domain"
	userrepo "user-auth-service/internal/user/repository"
)

const (
	devUserID    = "dev-user-001"
	devUsername  = "dev_user"
	devUserEmail = "dev@example.com"
	devMobile    = "+14155550100"
	devPassword  = "Dev1!pass"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	ctx := context.Background()

	existing, err := users.GetByIdentifier(ctx, devUserEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev@example.com exists). Skipping.")
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	if err := users.Create(ctx, &userdomain.User{
		ID:           devUserID,
		Username:     devUsername,
		Email:        devUserEmail,
		MobileNumber: devMobile,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}); err != nil {
		log.Fatalf("create dev user: %v", err)
	}

	log.Printf("Seeded dev user %s (password %s)", devUserEmail, devPassword)
}
