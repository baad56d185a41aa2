package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/Sketles/Takopi-sub003/internal/infra"
)

// AppContext holds what a database-backed command needs.
type AppContext struct {
	Config *infra.Config
	Pool   *pgxpool.Pool
	SQL    *infra.SQLRunner
	Logger zerolog.Logger
}

func loadEnv(envFile string) {
	if envFile == "" {
		return
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}
}

// NewAppContext loads envFile, then connects to the database.
func NewAppContext(ctx context.Context, envFile string) (*AppContext, error) {
	loadEnv(envFile)
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &AppContext{
		Config: cfg,
		Pool:   pool,
		SQL:    infra.NewSQLRunner(pool, logger),
		Logger: logger,
	}, nil
}

func (ac *AppContext) Close() {
	if ac.Pool != nil {
		ac.Pool.Close()
	}
}
