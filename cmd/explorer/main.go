// Command explorer serves the read-only facts explorer API.
//
// Usage:
//
//	explorer [serve]   run the HTTP server (default)
//	explorer migrate   apply database migrations and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/R3E-Network/explorer_api/internal/app/runtime"
	"github.com/R3E-Network/explorer_api/internal/config"
	"github.com/R3E-Network/explorer_api/internal/platform/database"
	"github.com/R3E-Network/explorer_api/internal/platform/migrations"
)

func main() {
	configFile := flag.String("config", "", "Path to a YAML config file (overrides "+config.FileEnv+")")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [serve|migrate]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *configFile != "" {
		if err := os.Setenv(config.FileEnv, *configFile); err != nil {
			log.Fatalf("set config file: %v", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	command := "serve"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "serve":
		err = serve(ctx, cfg)
	case "migrate":
		err = migrate(ctx, cfg)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", command, err)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	application, err := runtime.NewApplication(ctx, cfg)
	if err != nil {
		return err
	}
	runErr := application.Run(ctx)
	if err := application.Shutdown(context.Background()); err != nil {
		log.Printf("shutdown: %v", err)
	}
	return runErr
}

func migrate(ctx context.Context, cfg *config.Config) error {
	if cfg.Store == config.StoreMemory {
		return fmt.Errorf("the memory store has no schema to migrate")
	}
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Up(db); err != nil {
		return err
	}
	version, dirty, err := migrations.Version(db)
	if err != nil {
		return err
	}
	log.Printf("schema at version %d (dirty=%t)", version, dirty)
	return nil
}
