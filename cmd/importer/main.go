package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/nba-stats/internal/app"
	"github.com/riskibarqy/nba-stats/internal/config"
	"github.com/riskibarqy/nba-stats/internal/infrastructure/repository/sqlite"
	"github.com/riskibarqy/nba-stats/internal/platform/logging"
	"github.com/riskibarqy/nba-stats/internal/usecase"
)

// Exit codes: 1 for bad input, 2 for usage, 3 for runtime failures.
const (
	exitInput   = 1
	exitUsage   = 2
	exitRuntime = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func run(args []string, stdin io.Reader, stdout io.Writer) int {
	flags := flag.NewFlagSet("importer", flag.ContinueOnError)
	file := flags.String("file", "-", "CSV file to import, - for stdin")
	workers := flags.Int("workers", 0, "parallel player writers, 0 picks a default")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return exitUsage
	}
	logger := logging.NewJSON(cfg.LogLevel).Named("importer")
	defer func() { _ = logger.Sync() }()

	in := stdin
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			logger.Error("open import file", "file", *file, "error", err)
			return exitInput
		}
		defer f.Close()
		in = f
	}

	db, err := app.OpenDB(cfg, logger)
	if err != nil {
		logger.Error("open database", "path", cfg.DBPath, "error", err)
		return exitRuntime
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	players := usecase.NewPlayerService(sqlite.NewPlayerRepository(db), sqlite.NewSeasonRepository(db))
	result, err := usecase.NewImportService(players, logger).ImportCSV(ctx, in, *workers)
	if err != nil {
		logger.Error("import failed", "file", *file, "error", err)
		if usecase.IsImportInputError(err) {
			return exitInput
		}
		return exitRuntime
	}

	out, err := sonic.ConfigStd.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("encode import result", "error", err)
		return exitRuntime
	}
	fmt.Fprintln(stdout, string(out))

	if result.Failed > 0 {
		return exitInput
	}
	return 0
}
