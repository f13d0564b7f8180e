package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"pricescan/pkg/config"
	"pricescan/pkg/ocr"
	"pricescan/pkg/store"
	"pricescan/process/batch"
	"pricescan/process/history"
)

var (
	cfg        *config.Config
	recognizer *ocr.Recognizer
	cache      *store.BoltStore // nil unless --cache is set
	db         *gorm.DB         // nil unless --db-dsn is set
	jwtSecret  []byte

	// scanMu serializes rescans and artifact rewrites from the review API.
	scanMu sync.Mutex
)

func main() {
	// Auto-load ./.env if present before reading vars
	config.LoadDotEnv(".env")

	cmd, args := "", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "":
		err = runBatch(args)
	case "serve":
		err = runServe(args)
	case "migrate":
		// Runs AutoMigrate then exits. Useful for CI or manual DB setup.
		err = runMigrate(args)
	case "history":
		err = runHistory(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want serve, migrate or history)\n", cmd)
		os.Exit(2)
	}

	var uerr *config.UsageError
	switch {
	case err == nil:
	case errors.As(err, &uerr):
		fmt.Fprintln(os.Stderr, uerr.Usage)
		if errors.Is(err, config.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	default:
		log.Fatalf("pricescan: %v", err)
	}
}

// setup parses the configuration and builds the shared recognizer and the
// optional cache and history connections. The returned func releases them.
func setup(name string, args []string) (func(), error) {
	c, err := config.Parse(name, args)
	if err != nil {
		return nil, err
	}
	cfg = c
	engine := ocr.NewTesseractEngine(ocr.SplitLanguages(c.Languages)...)
	recognizer = ocr.NewRecognizer(engine, uint8(c.Threshold))
	if c.Verbose {
		log.Printf("OCR langs=%s threshold=%d max_dim=%d settings=%s",
			strings.Join(engine.Languages(), "+"), c.Threshold, c.MaxDimension, recognizer.Fingerprint())
	}

	if p := c.CacheFile(); p != "" {
		if cache, err = store.Open(p); err != nil {
			return nil, err
		}
	}
	if c.DatabaseDSN != "" {
		if err := initDB(c.DatabaseDSN); err != nil {
			closeAll()
			return nil, err
		}
	}
	return closeAll, nil
}

func closeAll() {
	if cache != nil {
		if err := cache.Close(); err != nil {
			log.Printf("close cache: %v", err)
		}
		cache = nil
	}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		db = nil
	}
}

// batchOptions maps the current configuration onto a batch run.
func batchOptions(out io.Writer) batch.Options {
	opts := batch.Options{
		InputDir:     cfg.InputDir(),
		LogoName:     cfg.LogoName,
		JSONPath:     cfg.JSONPath(),
		JSPath:       cfg.JSPath(),
		XLSXPath:     cfg.XLSXPath(),
		MaxDimension: cfg.MaxDimension,
		Recognizer:   recognizer,
		Out:          out,
		Verbose:      cfg.Verbose,
	}
	if cache != nil {
		opts.Cache = cache
	}
	return opts
}

// recordRun stores rep in the history database when one is configured.
// Failures are logged; the artifacts are already written at this point.
func recordRun(rep *batch.Report, started time.Time) {
	if db == nil || rep == nil {
		return
	}
	run, err := history.Record(db, rep, cfg.InputDir(), started)
	if err != nil {
		log.Printf("history: %v", err)
		return
	}
	if cfg.Verbose {
		log.Printf("history run=%s files=%d detected=%d", run.ID, run.Files, run.Detected)
	}
}

func runBatch(args []string) error {
	cleanup, err := setup("pricescan", args)
	if err != nil {
		return err
	}
	defer cleanup()

	started := time.Now()
	rep, err := batch.Run(batchOptions(os.Stdout))
	if errors.Is(err, batch.ErrMissingInputDir) {
		// already reported to the user; nothing was written
		return nil
	}
	if err != nil {
		return err
	}
	recordRun(rep, started)

	if !cfg.Watch {
		return nil
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return batch.Watch(ctx, batchOptions(os.Stdout), func(rep *batch.Report, err error) {
		if err == nil {
			recordRun(rep, time.Now())
		}
	})
}

func runServe(args []string) error {
	cleanup, err := setup("pricescan serve", args)
	if err != nil {
		return err
	}
	defer cleanup()

	secret := cfg.Server.JWTSecret
	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	if secret == "" {
		secret = "dev-insecure-secret-change" // development fallback
		log.Printf("warning: no jwt secret configured, using development fallback")
	}
	jwtSecret = []byte(secret)

	r := gin.Default()
	setupRoutes(r)
	log.Printf("review API listening on %s", cfg.Server.Addr)
	return r.Run(cfg.Server.Addr)
}

func runMigrate(args []string) error {
	c, err := config.Parse("pricescan migrate", args)
	if err != nil {
		return err
	}
	gdb, err := history.Open(c.DatabaseDSN)
	if err != nil {
		return err
	}
	if err := history.Migrate(gdb); err != nil {
		return err
	}
	fmt.Println("migration completed")
	return nil
}

func runHistory(args []string) error {
	cleanup, err := setup("pricescan history", args)
	if err != nil {
		return err
	}
	defer cleanup()
	if db == nil {
		return history.ErrNoDSN
	}
	return history.PrintReport(os.Stdout, db, 10, true)
}
