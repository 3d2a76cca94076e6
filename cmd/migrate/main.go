package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

const usage = `usage: migrate -cmd <command> [flags]

commands:
  up        apply pending migrations
  down      roll back the latest migration
  status    list migrations and their state
  version   move to -version (YYYYMMDDHHMMSS)
  seed      insert the sample catalog (idempotent)
  create    write a new migration named -name into -dir
  validate  check migration names and goose annotations
`

func main() {
	cmd := flag.String("cmd", "up", "migration command")
	dir := flag.String("dir", "", "migrations directory (default: migrations built into the binary; create uses "+migrate.DefaultDir+")")
	name := flag.String("name", "", "migration name for create")
	version := flag.String("version", "", "target version for -cmd=version")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	// Offline commands never touch config or the database.
	switch *cmd {
	case "create":
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, *name)
		exitOn(err, "create migration")
		fmt.Println("created migration:", path)
		return
	case "validate":
		n, err := migrate.Validate(migrate.Source(*dir))
		exitOn(err, "validate migrations")
		fmt.Printf("%d migrations valid\n", n)
		return
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	exitOn(err, "load config")

	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"cmd": *cmd, "dir": *dir})

	if err := run(ctx, logg, cfg, *cmd, *dir, *version); err != nil {
		logg.Error(ctx, "migrate.failed", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, logg *logger.Logger, cfg *config.Config, cmd, dir, version string) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer dbClient.Close()

	if cmd == "seed" {
		inserted, err := migrate.SeedCatalog(ctx, dbClient.DB())
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "inserted", inserted), "migrate.seeded")
		return nil
	}

	sqlDB, err := dbClient.SQL()
	if err != nil {
		return err
	}
	runner, err := migrate.NewRunner(sqlDB, migrate.Source(dir))
	if err != nil {
		return err
	}

	switch cmd {
	case "up":
		applied, err := runner.Up(ctx)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "applied", applied), "migrate.up")
	case "down":
		rolledBack, err := runner.Down(ctx)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "version", rolledBack), "migrate.down")
	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tFILE")
		for _, st := range statuses {
			applied := "-"
			if !st.AppliedAt.IsZero() {
				applied = st.AppliedAt.UTC().Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", st.Source.Version, st.State, applied, st.Source.Path)
		}
		return w.Flush()
	case "version":
		if version == "" {
			return fmt.Errorf("missing -version")
		}
		if err := runner.MigrateTo(ctx, version); err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "version", version), "migrate.version")
	default:
		return fmt.Errorf("unknown -cmd value %q", cmd)
	}
	return nil
}

func exitOn(err error, action string) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", action, err)
	os.Exit(1)
}
