package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-web-api/internal/repository"
	"github.com/noah-isme/sma-web-api/internal/service"
	"github.com/noah-isme/sma-web-api/pkg/cache"
	"github.com/noah-isme/sma-web-api/pkg/config"
	"github.com/noah-isme/sma-web-api/pkg/database"
	"github.com/noah-isme/sma-web-api/pkg/logger"
)

const usage = `usage: migrate <command>

commands:
  up                   apply all pending migrations
  down                 roll back the most recent migration
  status               print migration state
  grant-admin <email>  give an existing account the admin role`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("connect database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch cmd := os.Args[1]; cmd {
	case "up":
		err = database.Migrate(ctx, db)
	case "down":
		err = database.Rollback(ctx, db)
	case "status":
		err = database.Status(ctx, db)
	case "grant-admin":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		err = grantAdmin(ctx, cfg, db, logr, os.Args[2])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		logr.Fatal("migrate command failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
	logr.Info("migrate command finished", zap.String("command", os.Args[1]))
}

// grantAdmin promotes an account and notifies running servers so their role
// cache drops the stale entry.
func grantAdmin(ctx context.Context, cfg *config.Config, db *sqlx.DB, logr *zap.Logger, email string) error {
	repo := repository.NewUserRepository(db)
	user, err := repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return fmt.Errorf("find user %s: %w", email, err)
	}

	var client *redis.Client
	if cfg.Redis.Enabled {
		if client, err = cache.NewRedis(cfg.Redis); err != nil {
			logr.Warn("redis unavailable, running servers keep cached roles until expiry", zap.Error(err))
			client = nil
		} else {
			defer client.Close()
		}
	}
	sessions := service.NewSessionProvider(nil, repo, client, cfg.Session.RoleChannel, cfg.Session.RoleCacheTTL, logr)
	return service.NewUserService(repo, sessions, logr).GrantAdmin(ctx, user.ID, "")
}
