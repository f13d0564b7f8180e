package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"pricescan/pkg/ocr"
)

func main() {
	f := flag.String("file", "", "image file to OCR")
	langs := flag.String("langs", ocr.DefaultLanguages, "tesseract languages for text passes")
	maxDim := flag.Int("max-dim", ocr.DefaultMaxDimension, "largest image side handed to OCR")
	threshold := flag.Int("threshold", ocr.DefaultThreshold, "binarization threshold (0-255)")
	flag.Parse()
	if *f == "" {
		log.Fatalf("-file required")
	}
	th, err := ocr.ParseThreshold(*threshold)
	if err != nil {
		log.Fatalf("-threshold: %v", err)
	}
	engine := ocr.NewTesseractEngine(ocr.SplitLanguages(*langs)...)
	log.Printf("OCR langs=%s threshold=%d max_dim=%d", strings.Join(engine.Languages(), "+"), th, *maxDim)
	rec := ocr.NewRecognizer(engine, th)
	attempts, err := ocr.DebugScanFile(*f, rec, *maxDim)
	if err != nil {
		log.Fatalf("ocr error: %v", err)
	}
	final := ""
	for _, a := range attempts {
		fmt.Printf("pass=%s price=%q\n%s\n---\n", a.Strategy, a.Price, a.Text)
		if final == "" && a.Price != "" {
			final = a.Price
		}
	}
	fmt.Printf("final price=%q\n", final)
}
