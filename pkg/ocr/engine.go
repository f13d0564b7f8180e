package ocr

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// Mode selects how the engine reads an image.
type Mode int

const (
	// ModeText is general recognition with the configured languages.
	ModeText Mode = iota
	// ModeDigits reads a uniform block restricted to digits, '-' and '.'.
	ModeDigits
)

func (m Mode) String() string {
	switch m {
	case ModeText:
		return "text"
	case ModeDigits:
		return "digits"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Engine turns pixels into text. Implementations return "" (not an error)
// when nothing could be read.
type Engine interface {
	Recognize(img image.Image, mode Mode) (string, error)
}

// DefaultLanguages is the bilingual dictionary used for text mode.
const DefaultLanguages = "spa+eng"

// whitelist of tesseract's bundled "digits" config
const digitsWhitelist = "0123456789-."

// TesseractEngine implements Engine with gosseract. A fresh client is created
// and closed for every call.
type TesseractEngine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewTesseractEngine constructs a Tesseract-backed engine for the given
// languages (e.g. "spa", "eng"). No languages means DefaultLanguages.
func NewTesseractEngine(langs ...string) *TesseractEngine {
	if len(langs) == 0 {
		langs = SplitLanguages(DefaultLanguages)
	}
	return &TesseractEngine{languages: langs, clientFactory: gosseract.NewClient}
}

// Languages reports the text-mode languages.
func (e *TesseractEngine) Languages() []string {
	return append([]string(nil), e.languages...)
}

// Recognize encodes img as PNG and runs Tesseract over it.
func (e *TesseractEngine) Recognize(img image.Image, mode Mode) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}

	client := e.clientFactory()
	defer client.Close()

	switch mode {
	case ModeDigits:
		if err := client.SetLanguage("eng"); err != nil {
			return "", fmt.Errorf("set language: %w", err)
		}
		if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
			return "", fmt.Errorf("set psm: %w", err)
		}
		if err := client.SetWhitelist(digitsWhitelist); err != nil {
			return "", fmt.Errorf("set whitelist: %w", err)
		}
	default:
		if err := client.SetLanguage(e.languages...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract %s: %w", mode, err)
	}
	return text, nil
}

// SplitLanguages splits a tesseract language list like "spa+eng".
func SplitLanguages(langs string) []string {
	return strings.FieldsFunc(langs, func(r rune) bool { return r == '+' || r == ',' || r == ' ' })
}
