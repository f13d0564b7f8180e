package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"pricescan/pkg/config"
	"pricescan/pkg/ocr"
	"pricescan/process/batch"
)

// Re-reads the files saved_prices.json lists without a price.
func main() {
	config.LoadDotEnv(".env")
	cfg, err := config.Parse("retry_missing", os.Args[1:])
	if err != nil {
		var uerr *config.UsageError
		if errors.As(err, &uerr) {
			fmt.Fprintln(os.Stderr, uerr.Usage)
		}
		if errors.Is(err, config.ErrHelp) {
			return
		}
		log.Fatalf("config: %v", err)
	}
	rec := ocr.NewRecognizer(ocr.NewTesseractEngine(ocr.SplitLanguages(cfg.Languages)...), uint8(cfg.Threshold))
	_, err = batch.RetryMissing(batch.Options{
		InputDir:     cfg.InputDir(),
		JSONPath:     cfg.JSONPath(),
		JSPath:       cfg.JSPath(),
		MaxDimension: cfg.MaxDimension,
		Recognizer:   rec,
		Verbose:      cfg.Verbose,
	})
	if err != nil {
		log.Fatalf("retry: %v", err)
	}
}
