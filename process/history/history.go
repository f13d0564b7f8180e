// Package history keeps an optional Postgres record of batch runs.
package history

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"pricescan/models"
	"pricescan/process/batch"
)

// ErrNoDSN is returned by Open when no connection string is configured.
var ErrNoDSN = errors.New("database DSN is not set")

// Open connects to Postgres.
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, ErrNoDSN
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return gdb, nil
}

// Migrate creates or updates the history tables. Each model is migrated on
// its own so one failure does not block the others; the first error is
// returned after all have been attempted.
func Migrate(gdb *gorm.DB) error {
	var first error
	for _, m := range []any{&models.ScanRun{}, &models.PriceResult{}, &models.PriceEdit{}} {
		if err := gdb.AutoMigrate(m); err != nil {
			log.Printf("migration warning (%T): %v", m, err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Record stores rep as a new ScanRun with one PriceResult per file.
func Record(gdb *gorm.DB, rep *batch.Report, inputDir string, started time.Time) (*models.ScanRun, error) {
	run := &models.ScanRun{
		ID:         uuid.NewString(),
		CreatedAt:  started,
		FinishedAt: time.Now(),
		InputDir:   inputDir,
		Files:      len(rep.Results),
		Detected:   rep.DetectedCount(),
	}
	for _, r := range rep.Results {
		pr := models.PriceResult{
			FileName: r.Name,
			Price:    r.Price,
			Strategy: r.Strategy,
			RawText:  r.Text,
			Cached:   r.Cached,
		}
		if r.Err != nil {
			pr.Failed = true
			pr.FailedReason = truncate(r.Err.Error(), 255)
		}
		run.Results = append(run.Results, pr)
	}
	err := gdb.Transaction(func(tx *gorm.DB) error {
		return tx.Create(run).Error
	})
	if err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

// RecordEdit stores a manual price correction.
func RecordEdit(gdb *gorm.DB, fileName, oldPrice, newPrice, reviewer string) error {
	e := models.PriceEdit{FileName: fileName, OldPrice: oldPrice, NewPrice: newPrice, Reviewer: reviewer}
	if err := gdb.Create(&e).Error; err != nil {
		return fmt.Errorf("record edit: %w", err)
	}
	return nil
}

// Recent returns the latest runs, newest first, without their results.
func Recent(gdb *gorm.DB, limit int) ([]models.ScanRun, error) {
	var runs []models.ScanRun
	if err := gdb.Order("created_at desc").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// PrintReport writes a summary of the latest runs to w. With list set, the
// per-file results of the newest run are printed too.
func PrintReport(w io.Writer, gdb *gorm.DB, limit int, list bool) error {
	runs, err := Recent(gdb, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No scan runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "run=%s at=%s dir=%s files=%d detected=%d\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), r.InputDir, r.Files, r.Detected)
	}
	if !list {
		return nil
	}
	var rows []models.PriceResult
	if err := gdb.Where("run_id = ?", runs[0].ID).Order("id").Find(&rows).Error; err != nil {
		return fmt.Errorf("fetch results: %w", err)
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s|%s|%s|%t\n", r.FileName, r.Price, r.Strategy, r.Failed)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
