package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"pricescan/pkg/ocr"

	"github.com/disintegration/imaging"
)

func main() {
	in := flag.String("file", "", "image file to preprocess")
	outDir := flag.String("out", ".", "directory receiving the debug PNGs")
	maxDim := flag.Int("max-dim", ocr.DefaultMaxDimension, "largest image side handed to OCR")
	threshold := flag.Int("threshold", ocr.DefaultThreshold, "binarization threshold (0-255)")
	flag.Parse()
	if *in == "" {
		log.Fatalf("-file required")
	}
	th, err := ocr.ParseThreshold(*threshold)
	if err != nil {
		log.Fatalf("-threshold: %v", err)
	}
	img, err := ocr.LoadImage(*in)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	base := strings.TrimSuffix(filepath.Base(*in), filepath.Ext(*in))
	gray := ocr.Preprocess(img, *maxDim)
	grayPath := filepath.Join(*outDir, base+".preproc.png")
	if err := imaging.Save(gray, grayPath); err != nil {
		log.Fatalf("save preprocessed: %v", err)
	}
	bin := ocr.Binarize(gray, th)
	binPath := filepath.Join(*outDir, base+".binarized.png")
	if err := imaging.Save(bin, binPath); err != nil {
		log.Fatalf("save binarized: %v", err)
	}
	fmt.Printf("size=%dx%d\n - %s\n - %s\n", gray.Bounds().Dx(), gray.Bounds().Dy(), grayPath, binPath)
}
