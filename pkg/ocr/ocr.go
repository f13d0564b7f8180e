package ocr

import (
	"fmt"
	"log"
)

// ScanFile loads the image at path, preprocesses it and runs the recognizer.
// A file without a recognizable price returns an Attempt with an empty Price
// and a nil error; errors are reserved for unreadable files and engine
// failures.
func ScanFile(path string, rec *Recognizer, maxDim int) (Attempt, error) {
	img, err := LoadImage(path)
	if err != nil {
		return Attempt{}, err
	}
	gray := Preprocess(img, maxDim)
	a, err := rec.Recognize(gray)
	if err != nil {
		return Attempt{}, fmt.Errorf("recognize: %w", err)
	}
	return a, nil
}

// DebugScanFile runs every strategy on path and logs what each one read.
func DebugScanFile(path string, rec *Recognizer, maxDim int) ([]Attempt, error) {
	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	gray := Preprocess(img, maxDim)
	log.Printf("OCR preprocessed %s size=%dx%d", path, gray.Bounds().Dx(), gray.Bounds().Dy())
	attempts, err := rec.RecognizeAll(gray)
	for _, a := range attempts {
		log.Printf("OCR pass=%s price=%q snippet=%q", a.Strategy, a.Price, snippet(normalizeOCRText(a.Text), 160))
	}
	return attempts, err
}
