// seed creates the superuser role and an initial superuser account from
// SEED_LOGIN, SEED_EMAIL, and SEED_PASSWORD. Idempotent: it skips whatever
// already exists.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"auth-service/internal/config"
	"auth-service/internal/db"
	roledomain "auth-service/internal/role/domain"
	rolerepo "auth-service/internal/role/repository"
	"auth-service/internal/security"
	userdomain "auth-service/internal/user/domain"
	userrepo "auth-service/internal/user/repository"
)

const superuserRole = "superuser"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	login := os.Getenv("SEED_LOGIN")
	email := os.Getenv("SEED_EMAIL")
	password := os.Getenv("SEED_PASSWORD")
	if login == "" || email == "" || password == "" {
		log.Fatal("SEED_LOGIN, SEED_EMAIL, and SEED_PASSWORD must be set")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	roles := rolerepo.NewPostgresRepository(conn)
	users := userrepo.NewPostgresRepository(conn)

	role, err := roles.GetByName(ctx, superuserRole)
	if err != nil {
		log.Fatalf("role lookup: %v", err)
	}
	if role == nil {
		role = &roledomain.Role{ID: uuid.New().String(), Name: superuserRole}
		if err := roles.Create(ctx, role); err != nil {
			log.Fatalf("create role: %v", err)
		}
		log.Printf("created role %q", superuserRole)
	}

	u, err := users.GetByLogin(ctx, login)
	if err != nil {
		log.Fatalf("user lookup: %v", err)
	}
	if u == nil {
		hasher := security.NewHasher(cfg.BcryptCost)
		hash, err := hasher.Hash([]byte(password))
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		u = &userdomain.User{
			ID:           uuid.New().String(),
			Login:        login,
			Email:        email,
			PasswordHash: hash,
			IsActive:     true,
			CreatedAt:    time.Now().UTC(),
		}
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create user: %v", err)
		}
		log.Printf("created superuser %q", login)
	} else {
		log.Printf("superuser %q already exists", login)
	}

	if err := roles.AssignToUser(ctx, u.ID, role.ID); err != nil {
		log.Fatalf("assign role: %v", err)
	}
	log.Println("Seed completed successfully.")
}
