package ocr

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"strings"
)

// Strategy is one recognition pass: an optional image transform plus an
// engine mode.
type Strategy struct {
	Name    string
	Mode    Mode
	Prepare func(*image.NRGBA) image.Image
}

func (s Strategy) prepare(img *image.NRGBA) image.Image {
	if s.Prepare == nil {
		return img
	}
	return s.Prepare(img)
}

// DefaultStrategies returns the escalation used for product photos:
// plain text, text on a binarized copy, then digits only.
func DefaultStrategies(threshold uint8) []Strategy {
	return []Strategy{
		{Name: "plain", Mode: ModeText},
		{Name: "binarized", Mode: ModeText, Prepare: func(img *image.NRGBA) image.Image {
			return Binarize(img, threshold)
		}},
		{Name: "digits", Mode: ModeDigits},
	}
}

// Attempt is the outcome of one strategy.
type Attempt struct {
	Strategy string
	Text     string
	Price    string
}

// Recognizer runs its strategies in order against an Engine.
type Recognizer struct {
	Engine     Engine
	Strategies []Strategy
	Threshold  uint8 // binarization threshold baked into Strategies
}

// NewRecognizer returns a Recognizer using DefaultStrategies.
func NewRecognizer(engine Engine, threshold uint8) *Recognizer {
	return &Recognizer{Engine: engine, Strategies: DefaultStrategies(threshold), Threshold: threshold}
}

// Fingerprint is a short digest of the settings that influence recognition:
// threshold, strategy order and, when the engine reports them, its languages.
func (r *Recognizer) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "threshold=%d", r.Threshold)
	for _, s := range r.Strategies {
		fmt.Fprintf(&b, ";%s/%s", s.Name, s.Mode)
	}
	if l, ok := r.Engine.(interface{ Languages() []string }); ok {
		fmt.Fprintf(&b, ";langs=%s", strings.Join(l.Languages(), "+"))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}

// Recognize stops at the first strategy whose text yields a price. If none
// does, the first strategy's text is returned with an empty price and no
// strategy name. An engine error aborts the remaining strategies.
func (r *Recognizer) Recognize(img *image.NRGBA) (Attempt, error) {
	var first Attempt
	for i, s := range r.Strategies {
		a, err := r.run(s, img)
		if err != nil {
			return Attempt{}, err
		}
		if a.Price != "" {
			return a, nil
		}
		if i == 0 {
			first = Attempt{Text: a.Text}
		}
	}
	return first, nil
}

// RecognizeAll runs every strategy without stopping early. Used by the debug
// tools.
func (r *Recognizer) RecognizeAll(img *image.NRGBA) ([]Attempt, error) {
	out := make([]Attempt, 0, len(r.Strategies))
	for _, s := range r.Strategies {
		a, err := r.run(s, img)
		if err != nil {
			return out, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *Recognizer) run(s Strategy, img *image.NRGBA) (Attempt, error) {
	text, err := r.Engine.Recognize(s.prepare(img), s.Mode)
	if err != nil {
		return Attempt{}, fmt.Errorf("%s pass: %w", s.Name, err)
	}
	return Attempt{Strategy: s.Name, Text: text, Price: ExtractPrice(text)}, nil
}
