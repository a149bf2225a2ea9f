package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"spellpanel/internal/config"
	"spellpanel/internal/infrastructure"
	"spellpanel/internal/panel"
)

func main() {
	inputFile := flag.String("input", "", "spell CSV file to aggregate (defaults to configured input file)")
	outputDir := flag.String("out", "", "output directory for panel tables (defaults to configured reports dir)")
	horizonYear := flag.Int("horizon", 0, "latest calendar year considered for expansion (0 uses config)")
	chunkSize := flag.Int("chunk-size", 0, "spells per processing batch (0 uses config)")
	minCellSize := flag.Int("min-cell", 0, "minimum employer-year cell size for diversity output (0 uses config)")
	workers := flag.Int("workers", 0, "aggregation shards (0 uses config)")
	skipBad := flag.Bool("skip-bad-records", false, "skip spells with malformed numeric fields instead of aborting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	// Flags override configured values
	if *inputFile == "" {
		*inputFile = cfg.Paths.InputFile
	}
	if *outputDir == "" {
		*outputDir = cfg.Paths.ReportsDir
	}
	driverCfg := panel.Config{
		HorizonYear:          cfg.Aggregation.HorizonYear,
		ChunkSize:            cfg.Aggregation.ChunkSize,
		MinDiversityCellSize: cfg.Aggregation.MinDiversityCellSize,
		DecimalPrecision:     cfg.Aggregation.DecimalPrecision,
		Workers:              cfg.Aggregation.Workers,
		ContinueOnDataError:  *skipBad,
	}
	if *horizonYear > 0 {
		driverCfg.HorizonYear = *horizonYear
	}
	if *chunkSize > 0 {
		driverCfg.ChunkSize = *chunkSize
	}
	if *minCellSize > 0 {
		driverCfg.MinDiversityCellSize = *minCellSize
	}
	if *workers > 0 {
		driverCfg.Workers = *workers
	}

	ctx := infrastructure.EnsureTraceID(context.Background())

	if _, err := os.Stat(*inputFile); os.IsNotExist(err) {
		logger.ErrorContext(ctx, "Spell CSV file not found",
			"path", *inputFile,
			"hint", "Run the cleaning stage first to generate spell data")
		os.Exit(1)
	}

	source, err := panel.OpenCSVSource(*inputFile, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to open spell CSV file", "error", err)
		os.Exit(1)
	}
	defer source.Close()

	driver, err := panel.NewDriver(driverCfg, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create aggregation driver", "error", err)
		os.Exit(1)
	}

	logger.InfoContext(ctx, "Aggregating spell panels", "input", *inputFile)
	result, err := driver.Run(ctx, source)
	if err != nil {
		logger.ErrorContext(ctx, "Aggregation failed", "error", err)
		os.Exit(1)
	}

	// Save results with timestamp
	timestamp := time.Now().Format("20060102")
	reportDir := filepath.Join(*outputDir, "panels", timestamp)

	logger.InfoContext(ctx, "Saving panel tables", "dir", reportDir)
	if err := panel.SaveToCSV(result, reportDir, driverCfg.DecimalPrecision); err != nil {
		logger.ErrorContext(ctx, "Failed to save panel tables", "error", err)
		os.Exit(1)
	}

	workbookPath := filepath.Join(reportDir, "spell_panels.xlsx")
	if err := panel.SaveWorkbook(result, workbookPath, driverCfg.DecimalPrecision); err != nil {
		logger.ErrorContext(ctx, "Failed to save panel workbook", "error", err)
		os.Exit(1)
	}

	summaryPath := filepath.Join(reportDir, "panel_summary.txt")
	if err := panel.SaveSummaryReport(result, summaryPath); err != nil {
		logger.ErrorContext(ctx, "Failed to save summary report", "error", err)
		os.Exit(1)
	}

	logger.InfoContext(ctx, "Panel report completed", "dir", reportDir)
}
