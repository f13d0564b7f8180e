package batch

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"pricescan/pkg/ocr"
	"pricescan/pkg/store"
)

// ErrMissingInputDir is returned when the image folder does not exist. Nothing
// is written in that case.
var ErrMissingInputDir = errors.New("input directory not found")

// Cache remembers OCR details between runs. *store.BoltStore implements it.
type Cache interface {
	Get(name string) (*store.Detail, error)
	Put(name string, d store.Detail) error
	Delete(name string) error
	All() (map[string]store.Detail, error)
}

// Options configures one batch run.
type Options struct {
	InputDir     string
	LogoName     string
	JSONPath     string
	JSPath       string
	XLSXPath     string // optional
	MaxDimension int
	Recognizer   *ocr.Recognizer
	Cache        Cache     // optional
	Out          io.Writer // progress lines, defaults to os.Stdout
	Verbose      bool
}

func (o Options) out() io.Writer {
	if o.Out == nil {
		return os.Stdout
	}
	return o.Out
}

// settings fingerprints everything that changes what OCR returns for the same
// file; cached details computed under other settings are not reused.
func (o Options) settings() string {
	return fmt.Sprintf("%s-%d", o.Recognizer.Fingerprint(), o.MaxDimension)
}

func (o Options) logV(format string, args ...any) {
	if o.Verbose {
		log.Printf(format, args...)
	}
}

// FileResult is the outcome for one image. Err marks a file that could not be
// processed; its Price is always "".
type FileResult struct {
	Name     string
	Price    string
	Text     string
	Strategy string
	Cached   bool
	Err      error
}

// Detected reports whether a price was found.
func (r FileResult) Detected() bool { return r.Price != "" }

// Report is the result of a completed run.
type Report struct {
	Results  []FileResult      // in processing order
	Prices   map[string]string // file name -> price ("" = not detected)
	Details  map[string]string // file name -> raw OCR text
	JSONPath string
	JSPath   string
	XLSXPath string
}

// DetectedCount returns how many files got a price.
func (r *Report) DetectedCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Detected() {
			n++
		}
	}
	return n
}

// Run scans every image in opts.InputDir, extracts a price from each one and
// writes the JSON map and the localStorage script. Per-file failures are
// recorded as "not detected"; only a missing input folder or an output write
// error fails the run.
func Run(opts Options) (*Report, error) {
	out := opts.out()
	if fi, err := os.Stat(opts.InputDir); err != nil || !fi.IsDir() {
		fmt.Fprintf(out, "Image folder %q not found. Make sure you run from the project folder.\n", opts.InputDir)
		return nil, fmt.Errorf("%w: %s", ErrMissingInputDir, opts.InputDir)
	}
	files, err := ListImageFiles(opts.InputDir, opts.LogoName)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	settings := opts.settings()
	results := make([]FileResult, 0, len(files))
	for _, name := range files {
		fmt.Fprintln(out, "Processing", name)
		res := opts.processFile(name, settings)
		if res.Detected() {
			fmt.Fprintln(out, "  -> detected:", res.Price)
		} else {
			fmt.Fprintln(out, "  -> not detected")
		}
		results = append(results, res)
	}

	if opts.Cache != nil {
		opts.pruneCache(files)
	}

	rep := reduce(results)
	if err := WriteArtifacts(rep.Prices, opts.JSONPath, opts.JSPath); err != nil {
		return nil, err
	}
	rep.JSONPath, rep.JSPath = opts.JSONPath, opts.JSPath
	if opts.XLSXPath != "" {
		if err := WriteXLSX(results, opts.XLSXPath); err != nil {
			return nil, err
		}
		rep.XLSXPath = opts.XLSXPath
	}

	fmt.Fprintln(out, "\nResults saved to:")
	fmt.Fprintln(out, " -", rep.JSONPath)
	fmt.Fprintln(out, " -", rep.JSPath)
	if rep.XLSXPath != "" {
		fmt.Fprintln(out, " -", rep.XLSXPath)
	}
	fmt.Fprintln(out, "\nReview the prices in the site's \"Edit prices\" modal and correct any mistakes.")
	return rep, nil
}

// ListImageFiles returns the regular files in dir in name order, skipping
// logoName (case-insensitive). Symlinks to regular files are included.
func ListImageFiles(dir, logoName string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if logoName != "" && strings.EqualFold(e.Name(), logoName) {
			continue
		}
		fi, err := os.Stat(filepath.Join(dir, e.Name()))
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}

// processFile never fails the batch: errors and panics from decoding or OCR
// are folded into the result.
func (o Options) processFile(name, settings string) (res FileResult) {
	res.Name = name
	path := filepath.Join(o.InputDir, name)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ocr panic %s: %v", name, r)
			res = FileResult{Name: name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	var hash string
	if o.Cache != nil {
		h, err := store.HashFile(path)
		if err != nil {
			log.Printf("hash %s: %v", name, err)
		} else {
			hash = h
			if d, err := o.Cache.Get(name); err != nil {
				log.Printf("cache read %s: %v", name, err)
			} else if d != nil && d.Hash == hash && (d.Settings == settings || d.Strategy == store.StrategyManual) {
				o.logV("cache hit %s price=%q", name, d.Price)
				return FileResult{Name: name, Price: d.Price, Text: d.Text, Strategy: d.Strategy, Cached: true}
			}
		}
	}

	a, err := ocr.ScanFile(path, o.Recognizer, o.MaxDimension)
	if err != nil {
		log.Printf("ocr error %s: %v", name, err)
		res.Err = err
		return res
	}
	res.Price, res.Text, res.Strategy = a.Price, a.Text, a.Strategy
	o.logV("OCR %s pass=%s price=%q snippet=%q", name, a.Strategy, a.Price, ocr.Snippet(a.Text, 140))

	if o.Cache != nil && hash != "" {
		if err := o.Cache.Put(name, store.Detail{Hash: hash, Settings: settings, Price: a.Price, Text: a.Text, Strategy: a.Strategy}); err != nil {
			log.Printf("cache write %s: %v", name, err)
		}
	}
	return res
}

// pruneCache drops cached details for files no longer in the image folder.
func (o Options) pruneCache(files []string) {
	all, err := o.Cache.All()
	if err != nil {
		log.Printf("cache list: %v", err)
		return
	}
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f] = true
	}
	for name := range all {
		if present[name] {
			continue
		}
		if err := o.Cache.Delete(name); err != nil {
			log.Printf("cache delete %s: %v", name, err)
			continue
		}
		o.logV("cache pruned %s", name)
	}
}

func reduce(results []FileResult) *Report {
	rep := &Report{
		Results: results,
		Prices:  make(map[string]string, len(results)),
		Details: make(map[string]string, len(results)),
	}
	for _, r := range results {
		rep.Prices[r.Name] = r.Price
		rep.Details[r.Name] = r.Text
	}
	return rep
}
