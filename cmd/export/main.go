package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"medcenter/internal/config"
	"medcenter/internal/database"
	"medcenter/internal/export"
	"medcenter/internal/logging"
	"medcenter/internal/models"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	today := time.Now().Format(models.DateLayout)
	var (
		configPath = flag.String("config", "configs/config.yaml", "path to config.yaml")
		from       = flag.String("from", today, "first day, YYYY-MM-DD")
		days       = flag.Int("days", 7, "number of days to export")
		outDir     = flag.String("out", "", "output directory, exports.path by default")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	start, err := time.Parse(models.DateLayout, *from)
	if err != nil {
		return fmt.Errorf("invalid -from: %w", err)
	}
	if *days < 1 {
		return fmt.Errorf("-days must be positive")
	}
	end := start.AddDate(0, 0, *days-1)

	dir := *outDir
	if dir == "" {
		dir = cfg.Exports.Path
	}
	if dir == "" {
		dir = "exports"
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	list, err := db.GetAppointmentsByDateRange(ctx, start, end)
	if err != nil {
		return fmt.Errorf("load appointments: %w", err)
	}
	doctors, err := db.GetActiveDoctors(ctx)
	if err != nil {
		return fmt.Errorf("load doctors: %w", err)
	}

	path, err := export.SaveToDir(dir, start, end, doctors, list)
	if err != nil {
		return err
	}

	logger.Info().Str("path", path).Int("appointments", len(list)).Msg("export written")
	return nil
}
