package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/hikepal/internal/pkg/config"
	"github.com/samirrijal/hikepal/internal/pkg/logging"
)

// Applied in order by "up". Every file is idempotent.
var upFiles = []string{
	"001_init_extensions.sql",
	"002_trails.sql",
	"003_seed_dragons_back.sql",
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}
	logging.SetupFromEnv()

	cfg, err := config.Load("hikepal-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	dir := os.Getenv("HIKEPAL_MIGRATIONS_DIR")
	if dir == "" {
		dir = "migrations"
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	switch os.Args[1] {
	case "up":
		run(ctx, pool, dir, upFiles)
		slog.Info("all migrations applied")
	case "down":
		run(ctx, pool, dir, []string{"down.sql"})
		slog.Info("trail catalog dropped")
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

func run(ctx context.Context, pool *pgxpool.Pool, dir string, files []string) {
	for _, f := range files {
		path := filepath.Join(dir, f)
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("read %s: %v", path, err)
		}

		if _, err := pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", path, err)
		}

		slog.Info("migration applied", "file", f)
	}
}
