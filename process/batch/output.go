package batch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/xuri/excelize/v2"
)

// StorageKey is the localStorage slot the generated script fills.
const StorageKey = "savedPrices"

// MarshalPrices renders the price map as two-space indented JSON. Non-ASCII
// and HTML characters are kept literal; there is no trailing newline.
func MarshalPrices(prices map[string]string) ([]byte, error) {
	return encodePrices(prices, "  ")
}

// RenderScript returns the script that seeds localStorage with prices and logs
// a confirmation mentioning scriptName.
func RenderScript(prices map[string]string, scriptName string) ([]byte, error) {
	compact, err := encodePrices(prices, "")
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "localStorage.setItem('%s', JSON.stringify(%s));\n", StorageKey, compact)
	fmt.Fprintf(&b, "console.log('%s loaded from %s');\n", StorageKey, scriptName)
	return b.Bytes(), nil
}

func encodePrices(prices map[string]string, indent string) ([]byte, error) {
	if prices == nil {
		prices = map[string]string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(prices); err != nil {
		return nil, fmt.Errorf("encode prices: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// WriteArtifacts writes the JSON map to jsonPath and the localStorage script to
// jsPath, replacing both.
func WriteArtifacts(prices map[string]string, jsonPath, jsPath string) error {
	data, err := MarshalPrices(prices)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(jsonPath, data); err != nil {
		return fmt.Errorf("write %s: %w", jsonPath, err)
	}
	script, err := RenderScript(prices, filepath.Base(jsPath))
	if err != nil {
		return err
	}
	if err := writeFileAtomic(jsPath, script); err != nil {
		return fmt.Errorf("write %s: %w", jsPath, err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file next to path and renames it into
// place, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

const pricesSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": {"type": "string"}
}`

var compilePricesSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("saved_prices.schema.json", strings.NewReader(pricesSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("saved_prices.schema.json")
})

// LoadPrices reads a saved_prices.json file, typically after manual edits, and
// checks it is a flat object of strings.
func LoadPrices(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	schema, err := compilePricesSchema()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("%s does not match schema: %w", filepath.Base(path), err)
	}
	prices := map[string]string{}
	if err := json.Unmarshal(data, &prices); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return prices, nil
}

// WriteXLSX exports the per-file results to a spreadsheet for offline review.
func WriteXLSX(results []FileResult, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Prices"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	var firstErr error
	write := func(col, row int, v any) {
		if firstErr != nil {
			return
		}
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err == nil {
			err = f.SetCellValue(sheet, cell, v)
		}
		if err != nil {
			firstErr = fmt.Errorf("write cell %d,%d: %w", col, row, err)
		}
	}
	for i, h := range []string{"File", "Price", "Detected", "Pass", "Error"} {
		write(i+1, 1, h)
	}
	for i, r := range results {
		row := i + 2
		write(1, row, r.Name)
		write(2, row, r.Price)
		write(3, row, r.Detected())
		write(4, row, r.Strategy)
		if r.Err != nil {
			write(5, row, r.Err.Error())
		}
	}
	if firstErr != nil {
		return firstErr
	}
	if err := f.SetColWidth(sheet, "A", "A", 32); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(sheet, "E", "E", 48); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save xlsx: %w", err)
	}
	return nil
}
