package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/wadjakorntonsri/shortlink/pkg/adapters/repository"
	"github.com/wadjakorntonsri/shortlink/pkg/config"
	"github.com/wadjakorntonsri/shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink/pkg/logging"
	"github.com/wadjakorntonsri/shortlink/pkg/ports"
)

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importFile := importCmd.String("file", "", "JSON file to import")

	if len(os.Args) < 2 {
		fmt.Println("expected 'export' or 'import' subcommands")
		os.Exit(1)
	}

	cfg := config.Load()
	logger := logging.New(cfg.IsProduction(), cfg.LogLevel, os.Stderr)
	ctx := context.Background()

	repo, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		err = doExport(ctx, repo, os.Stdout)
	case "import":
		importCmd.Parse(os.Args[2:])
		if *importFile == "" {
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		var file *os.File
		file, err = os.Open(*importFile)
		if err != nil {
			break
		}
		defer file.Close()

		var report importReport
		report, err = doImport(ctx, repo, file, logger)
		logger.Info("import finished", "imported", report.Imported, "skipped", report.Skipped, "failed", report.Failed)
	default:
		fmt.Println("expected 'export' or 'import' subcommands")
		os.Exit(1)
	}

	if err != nil {
		logger.Error(os.Args[1]+" failed", "error", err)
		repo.Close()
		os.Exit(1)
	}
}

// doExport writes every stored link, expired ones included, as a JSON array.
func doExport(ctx context.Context, repo ports.LinkRepository, w io.Writer) error {
	links, err := repo.Dump(ctx)
	if err != nil {
		return err
	}
	if links == nil {
		links = []domain.Link{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(links)
}

type importReport struct {
	Imported int
	Skipped  int
	Failed   int
}

// doImport inserts links from r and never overwrites: codes already present are skipped.
func doImport(ctx context.Context, repo ports.LinkRepository, r io.Reader, logger *slog.Logger) (importReport, error) {
	var report importReport

	var links []domain.Link
	if err := json.NewDecoder(r).Decode(&links); err != nil {
		return report, fmt.Errorf("decode: %w", err)
	}

	for i := range links {
		l := &links[i]
		if l.ShortCode == "" || l.OriginalURL == "" {
			logger.Warn("skipping incomplete record", "index", i)
			report.Failed++
			continue
		}

		err := repo.Insert(ctx, l)
		switch {
		case errors.Is(err, domain.ErrCodeAlreadyExists):
			logger.Info("skipping existing code", "short_code", l.ShortCode)
			report.Skipped++
		case err != nil:
			logger.Error("failed to import", "short_code", l.ShortCode, "error", err)
			report.Failed++
		default:
			report.Imported++
		}
	}
	return report, nil
}
