package ocr

import "testing"

func TestExtractPriceKeepsCurrencyToken(t *testing.T) {
	if got := ExtractPrice("Oferta\n$240\nhoy"); got != "$240" {
		t.Fatalf("expected $240 got %q", got)
	}
}

func TestExtractPriceEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t \n", "sin precio"} {
		if got := ExtractPrice(in); got != "" {
			t.Fatalf("expected empty for %q got %q", in, got)
		}
	}
}

func TestExtractPriceLeftMostWins(t *testing.T) {
	got := ExtractPrice("antes 99 ahora €1.50 o $2,00")
	if got != "99" {
		t.Fatalf("expected left-most token 99 got %q", got)
	}
	got = ExtractPrice("£5 luego $12.99")
	if got != "£5" {
		t.Fatalf("expected £5 got %q", got)
	}
}

func TestExtractPriceStripsWhitespace(t *testing.T) {
	if got := ExtractPrice("Precio: ₡ 450"); got != "₡450" {
		t.Fatalf("expected ₡450 got %q", got)
	}
	if got := ExtractPrice("total  \n 75"); got != "75" {
		t.Fatalf("expected 75 got %q", got)
	}
}

func TestExtractPriceKeepsSeparatorStyle(t *testing.T) {
	if got := ExtractPrice("$12,50"); got != "$12,50" {
		t.Fatalf("expected $12,50 got %q", got)
	}
	if got := ExtractPrice("240.50"); got != "240.50" {
		t.Fatalf("expected 240.50 got %q", got)
	}
}

func TestExtractPriceShortDigitBound(t *testing.T) {
	// the 1-3 digit bound splits grouped thousands; first short match wins
	if got := ExtractPrice("Precio: $1.200,50 oferta"); got != "$1.20" {
		t.Fatalf("expected $1.20 got %q", got)
	}
	if got := ExtractPrice("12345"); got != "123" {
		t.Fatalf("expected 123 got %q", got)
	}
}

func TestBareDigitToken(t *testing.T) {
	if got := bareDigitToken("ref 240.50 x"); got != "$240.50" {
		t.Fatalf("expected $240.50 got %q", got)
	}
	if got := bareDigitToken("7"); got != "" {
		t.Fatalf("expected no bare digit match got %q", got)
	}
}
