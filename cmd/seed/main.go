package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"medcenter/internal/config"
	"medcenter/internal/database"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		catalogPath = flag.String("catalog", "configs/catalog.yaml", "path to catalog.yaml")
		dbPath      = flag.String("db", "./data/medcenter.db", "path to sqlite db")
	)
	flag.Parse()

	c, err := config.LoadCatalog(*catalogPath)
	if err != nil {
		return err
	}
	if len(c.Departments)+len(c.Doctors)+len(c.Tests)+len(c.FirstAid) == 0 {
		return fmt.Errorf("catalog %s is empty", *catalogPath)
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.ImportCatalog(ctx, c); err != nil {
		return fmt.Errorf("import catalog: %w", err)
	}

	fmt.Printf("done: departments=%d doctors=%d tests=%d packages=%d first_aid=%d\n",
		len(c.Departments), len(c.Doctors), len(c.Tests), len(c.Packages), len(c.FirstAid))
	return nil
}
