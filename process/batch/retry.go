package batch

import (
	"fmt"
	"log"
	"maps"
	"path/filepath"
	"slices"

	"github.com/disintegration/imaging"

	"pricescan/pkg/ocr"
)

// RetryMissing re-reads every file saved without a price, this time from a
// sharpened, contrast-boosted copy, and rewrites both artifacts when at least
// one price is recovered. It returns the recovered prices.
func RetryMissing(opts Options) (map[string]string, error) {
	out := opts.out()
	prices, err := LoadPrices(opts.JSONPath)
	if err != nil {
		return nil, err
	}
	recovered := map[string]string{}
	for _, name := range slices.Sorted(maps.Keys(prices)) {
		if prices[name] != "" {
			continue
		}
		fmt.Fprintln(out, "Retrying", name)
		price, err := opts.retryFile(name)
		if err != nil {
			log.Printf("retry %s: %v", name, err)
			continue
		}
		if price == "" {
			fmt.Fprintln(out, "  -> still not detected")
			continue
		}
		fmt.Fprintln(out, "  -> detected:", price)
		prices[name] = price
		recovered[name] = price
	}
	if len(recovered) == 0 {
		return recovered, nil
	}
	if err := WriteArtifacts(prices, opts.JSONPath, opts.JSPath); err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "\nRecovered %d price(s); results saved to %s and %s\n", len(recovered), opts.JSONPath, opts.JSPath)
	return recovered, nil
}

func (o Options) retryFile(name string) (string, error) {
	img, err := ocr.LoadImage(filepath.Join(o.InputDir, name))
	if err != nil {
		return "", err
	}
	proc := imaging.Sharpen(img, 2.0)
	proc = imaging.AdjustContrast(proc, 30)
	a, err := o.Recognizer.Recognize(ocr.Preprocess(proc, o.MaxDimension))
	if err != nil {
		return "", err
	}
	o.logV("retry %s pass=%s price=%q", name, a.Strategy, a.Price)
	return a.Price, nil
}
