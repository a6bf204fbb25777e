package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"auth-service/internal/audit"
	auditrepo "auth-service/internal/audit/repository"
	"auth-service/internal/auth/handler"
	"auth-service/internal/auth/service"
	"auth-service/internal/config"
	"auth-service/internal/db"
	"auth-service/internal/revocation"
	rolerepo "auth-service/internal/role/repository"
	"auth-service/internal/security"
	sessionrepo "auth-service/internal/session/repository"
	"auth-service/internal/telemetry/otel"
	"auth-service/internal/token"
	userrepo "auth-service/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "auth-service", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	auditLogger := audit.NewLogger(
		auditrepo.NewPostgresRepository(conn),
		clientIP,
		otel.NewAuditEmitter(providers.LoggerProvider),
	)

	svc := service.NewAuthService(
		userrepo.NewPostgresRepository(conn),
		rolerepo.NewPostgresRepository(conn),
		sessionrepo.NewPostgresRepository(conn),
		revocation.NewRedisStore(redisClient),
		token.NewCodec(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL(), cfg.RefreshTTL()),
		security.NewHasher(cfg.BcryptCost),
		auditLogger,
	)

	mux := http.NewServeMux()
	handler.New(svc, cfg.RefreshCookieName, cfg.RefreshTTL(), nil).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.WithTelemetry(handler.WithClientIP(mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}

// clientIP reads the request IP that the handler stored on the context.
func clientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(handler.ClientIPKey).(string); ok && ip != "" {
		return ip
	}
	return "unknown"
}
