package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/config"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/db"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/env"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/logger"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/migrate"
)


func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_, _ = env.LoadDotenv()

	cmd := flag.String("cmd", "up", "migration command: "+usage())
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory (default: migrations built into the binary)")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate work on the source tree and need neither config nor a database.
	sourceDir := *dir
	if sourceDir == migrate.DefaultDir {
		sourceDir = migrate.SourceDir
	}
	switch *cmd {
	case "create":
		if *name == "" {
			fail("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(sourceDir, *name)
		if err != nil {
			fail("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(sourceDir); err != nil {
			fail("migration validation failed: %v", err)
		}
		if err := migrate.ValidateEmbedded(); err != nil {
			fail("embedded migrations are stale or invalid: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	if !slices.Contains(migrate.Commands, *cmd) && *cmd != "version" {
		fail("unknown -cmd value %q (want %s)", *cmd, usage())
	}

	cfg, err := config.Load()
	requireResource(logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	if cfg.App.IsProd() && (*cmd == "down" || *cmd == "redo") {
		fail("refusing to run %q against prod", *cmd)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(logg, "sql database", err)

	migrator, err := migrate.New(sqlDB, *dir, os.Stdout)
	requireResource(logg, "migrations", err)

	logg.Info(ctx, "migrate.start")
	if *cmd == "version" {
		err = migrator.To(ctx, *version)
	} else {
		err = migrator.Run(ctx, *cmd)
	}
	if err != nil {
		logg.Error(ctx, "migrate.failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migrate.complete")
}

func usage() string {
	names := append([]string{"create", "validate", "version"}, migrate.Commands...)
	slices.Sort(names)
	return strings.Join(names, "|")
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
