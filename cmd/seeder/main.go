// Command seeder populates the workspace catalog from a YAML fixture.
// It is intended for local development, not as part of the main server.
//
// Flags:
//
//	--fixture        path to the fixture YAML file
//	--installation   installation whose settings the fixture writes
//	--dry-run        validate the fixture without writing to DB
//	--seeder-config  path to seeder YAML config file
//	--token-ttl      when > 0, print a host token for the installation
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heartmarshall/sketch2code/internal/adapter/postgres"
	"github.com/heartmarshall/sketch2code/internal/adapter/postgres/globalconfig"
	"github.com/heartmarshall/sketch2code/internal/adapter/postgres/workspace"
	"github.com/heartmarshall/sketch2code/internal/app"
	"github.com/heartmarshall/sketch2code/internal/app/seeder"
	"github.com/heartmarshall/sketch2code/internal/auth"
	"github.com/heartmarshall/sketch2code/internal/config"
	"github.com/heartmarshall/sketch2code/internal/service/settings"
	"github.com/heartmarshall/sketch2code/migrations"
)

const runTimeout = 5 * time.Minute

type flags struct {
	fixture      string
	installation string
	dryRun       bool
	configPath   string
	tokenTTL     time.Duration
}

func main() {
	var f flags
	flag.StringVar(&f.fixture, "fixture", "", "path to the fixture YAML file")
	flag.StringVar(&f.installation, "installation", "", "installation whose settings the fixture writes")
	flag.BoolVar(&f.dryRun, "dry-run", false, "validate the fixture without writing to DB")
	flag.StringVar(&f.configPath, "seeder-config", "", "path to seeder YAML config file")
	flag.DurationVar(&f.tokenTTL, "token-ttl", 0, "when > 0, print a host token for the installation")
	flag.Parse()

	appCfg, err := config.Load()
	if err != nil {
		log.Fatalf("load app config: %v", err)
	}
	logger := app.NewLogger(appCfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	res, err := run(ctx, logger, appCfg, f)
	if err != nil {
		logger.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("seeding completed",
		slog.Int("tables", res.Tables),
		slog.Int("records", res.Records),
		slog.Int("settings", res.Settings),
	)

	if f.tokenTTL > 0 {
		tokens := auth.NewHostTokens(appCfg.Host.TokenSecret, appCfg.Host.TokenIssuer)
		token, err := tokens.Issue(res.InstallationID, f.tokenTTL)
		if err != nil {
			logger.Error("issue host token", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Println(token)
	}
}

func run(ctx context.Context, logger *slog.Logger, appCfg *config.Config, f flags) (seeder.Result, error) {
	cfg, err := seederConfig(f)
	if err != nil {
		return seeder.Result{}, err
	}

	fx, err := seeder.LoadFixture(cfg.FixturePath)
	if err != nil {
		return seeder.Result{}, err
	}

	pool, err := postgres.NewPool(ctx, appCfg.Database, logger)
	if err != nil {
		return seeder.Result{}, fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if appCfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, pool, migrations.FS, logger); err != nil {
			return seeder.Result{}, fmt.Errorf("migrate: %w", err)
		}
	}

	txm := postgres.NewTxManager(pool)
	repo := workspace.New(pool, txm)
	settingsSvc := settings.NewService(logger, globalconfig.New(pool), repo, settings.Endpoints{
		APIURL:  appCfg.Sketch2Code.APIURL,
		BlobURL: appCfg.Sketch2Code.BlobURL,
	})

	return seeder.NewPipeline(logger, repo, settingsSvc, txm, *cfg).Run(ctx, fx)
}

// seederConfig loads the seeder config and applies flag overrides.
func seederConfig(f flags) (*seeder.Config, error) {
	cfg, err := seeder.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.fixture != "" {
		cfg.FixturePath = f.fixture
	}
	if f.installation != "" {
		cfg.InstallationID = f.installation
	}
	if f.dryRun {
		cfg.DryRun = true
	}
	if cfg.FixturePath == "" {
		return nil, errors.New("fixture path is required")
	}
	return cfg, nil
}
