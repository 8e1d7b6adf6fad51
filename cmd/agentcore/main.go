// Command agentcore is the runtime's entrypoint: serve opens storage,
// starts the storage, health-reporting and config-watching components, logs
// a readiness line and waits for a shutdown signal (it creates no schema and
// serves no HTTP/gRPC front end), migrate creates the on-disk SQLite schema
// for turns/assets/text, and seed inserts a throwaway conversation for
// smoke-testing a fresh deployment.
//
// There is no CLI framework anywhere in the retrieved corpus, so this
// binary dispatches subcommands with the standard library's flag package
// rather than importing one.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	assetsqlite "github.com/lookatitude/agentcore/assetstore/sqlite"
	"github.com/lookatitude/agentcore/config"
	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/ids"
	"github.com/lookatitude/agentcore/o11y"
	"github.com/lookatitude/agentcore/textstore"
	"github.com/lookatitude/agentcore/turnstore"
	turnsqlite "github.com/lookatitude/agentcore/turnstore/sqlite"

	_ "github.com/lookatitude/agentcore/llm/providers/anthropic"
	_ "github.com/lookatitude/agentcore/llm/providers/bedrock"
	_ "github.com/lookatitude/agentcore/llm/providers/ollama"
	_ "github.com/lookatitude/agentcore/llm/providers/openai"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadRootConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "agentcore: load config:", err)
		os.Exit(1)
	}
	log := o11y.NewLogger(o11y.WithJSON())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cmdErr error
	switch os.Args[1] {
	case "serve":
		cmdErr = runServe(ctx, cfg, log, os.Args[2:])
	case "migrate":
		cmdErr = runMigrate(ctx, cfg, log, os.Args[2:])
	case "seed":
		cmdErr = runSeed(ctx, cfg, log, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if cmdErr != nil {
		fmt.Fprintln(os.Stderr, "agentcore:", cmdErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: agentcore <serve|migrate|seed> [flags]")
}

// storagePaths resolves the SQLite database path and blob root under the
// configured storage root (defaulting to ./data if unset).
func storagePaths(cfg *config.RootConfig) (dbPath, blobRoot string) {
	root := cfg.StorageRoot
	if root == "" {
		root = "./data"
	}
	return filepath.Join(root, "agentcore.db"), filepath.Join(root, "blobs")
}

// openStorage opens the shared SQLite database and ensures its parent
// directory exists.
func openStorage(cfg *config.RootConfig) (*sql.DB, error) {
	dbPath, _ := storagePaths(cfg)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	return db, nil
}

func runMigrate(ctx context.Context, cfg *config.RootConfig, log *o11y.Logger, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	fs.Parse(args)

	db, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	text, err := textstore.New(textstore.Config{DB: db})
	if err != nil {
		return fmt.Errorf("init text store: %w", err)
	}
	if err := text.EnsureTable(ctx); err != nil {
		return fmt.Errorf("migrate text store: %w", err)
	}

	turns := turnsqlite.New(db, text)
	if err := turns.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("migrate turn store: %w", err)
	}

	assets := assetsqlite.New(db)
	if err := assets.EnsureTable(ctx); err != nil {
		return fmt.Errorf("migrate asset store: %w", err)
	}

	log.Info(ctx, "schema migrated", "db", func() string { p, _ := storagePaths(cfg); return p }())
	return nil
}

func runServe(ctx context.Context, cfg *config.RootConfig, log *o11y.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.Parse(args)

	db, err := openStorage(cfg)
	if err != nil {
		return err
	}
	// Ownership of closing db passes to storageLifecycle once it is
	// registered with app below; until then this func must close it itself.
	closeDB := true
	defer func() {
		if closeDB {
			db.Close()
		}
	}()

	text, err := textstore.New(textstore.Config{DB: db})
	if err != nil {
		return fmt.Errorf("init text store: %w", err)
	}
	turns := turnsqlite.New(db, text)
	var _ turnstore.Store = turns

	blobRoot := func() string { _, b := storagePaths(cfg); return b }()
	if err := os.MkdirAll(blobRoot, 0o755); err != nil {
		return fmt.Errorf("create blob root: %w", err)
	}

	health := o11y.NewHealthRegistry()
	storage := &storageLifecycle{db: db}
	health.Register("storage", o11y.HealthCheckerFunc(func(ctx context.Context) o11y.HealthResult {
		status := o11y.Healthy
		msg := "connected"
		if err := db.PingContext(ctx); err != nil {
			status = o11y.Unhealthy
			msg = err.Error()
		}
		return o11y.HealthResult{Status: status, Message: msg}
	}))

	app := core.NewApp()
	app.Register(storage)
	app.Register(newHealthReporter(health, 30*time.Second, log))
	if cfg.ConfigFileUsed != "" {
		app.Register(newConfigReloader(cfg.ConfigFileUsed, 5*time.Second, log))
	}
	closeDB = false // app owns db from here: storageLifecycle.Stop closes it

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("start components: %w", err)
	}

	log.Info(ctx, "agentcore ready", "default_provider", cfg.DefaultProvider, "lock_backend", cfg.Lock.Backend)
	<-ctx.Done()
	log.Info(ctx, "agentcore shutting down")
	return app.Shutdown(context.Background())
}

func runSeed(ctx context.Context, cfg *config.RootConfig, log *o11y.Logger, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	conv := fs.String("conversation", "smoke-test", "conversation id to seed")
	tenant := fs.String("tenant", "", "tenant id to scope this seed under, for multi-tenant deployments")
	fs.Parse(args)

	db, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	text, err := textstore.New(textstore.Config{DB: db})
	if err != nil {
		return fmt.Errorf("init text store: %w", err)
	}
	turns := turnsqlite.New(db, text)

	ctx = core.WithSessionID(ctx, *conv)
	if *tenant != "" {
		ctx = core.WithTenant(ctx, core.TenantID(*tenant))
	}

	turn, _, _, err := turns.AddUserTurn(ctx, ids.ConversationID(*conv), "hello from agentcore seed")
	if err != nil {
		return fmt.Errorf("seed turn: %w", err)
	}

	log.Info(ctx, "seeded conversation", "conversation_id", *conv, "turn_id", turn.ID)
	return nil
}
