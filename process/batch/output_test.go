package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dop251/goja"
	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"
)

// runScript executes a generated script with a minimal localStorage and
// console, returning the stored items and the logged lines.
func runScript(src []byte) (map[string]string, []string) {
	vm := goja.New()
	items := map[string]string{}
	var logs []string

	storage := vm.NewObject()
	Expect(storage.Set("setItem", func(call goja.FunctionCall) goja.Value {
		items[call.Argument(0).String()] = call.Argument(1).String()
		return goja.Undefined()
	})).To(Succeed())
	Expect(vm.Set("localStorage", storage)).To(Succeed())

	console := vm.NewObject()
	Expect(console.Set("log", func(call goja.FunctionCall) goja.Value {
		logs = append(logs, call.Argument(0).String())
		return goja.Undefined()
	})).To(Succeed())
	Expect(vm.Set("console", console)).To(Succeed())

	_, err := vm.RunString(string(src))
	Expect(err).NotTo(HaveOccurred())
	return items, logs
}

var _ = ginkgo.Describe("MarshalPrices", func() {
	ginkgo.It("indents with two spaces and keeps symbols literal", func() {
		data, err := MarshalPrices(map[string]string{"b.png": "", "a.png": "€15"})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("{\n  \"a.png\": \"€15\",\n  \"b.png\": \"\"\n}"))
	})

	ginkgo.It("does not escape HTML characters", func() {
		data, err := MarshalPrices(map[string]string{"<tag>&.png": "$1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"<tag>&.png"`))
	})
})

var _ = ginkgo.Describe("RenderScript", func() {
	prices := map[string]string{"camisa.png": "$240", "blanco.png": "", "it's.png": "¥5"}

	ginkgo.It("seeds localStorage with the same map", func() {
		src, err := RenderScript(prices, "saved_prices.js")
		Expect(err).NotTo(HaveOccurred())

		items, logs := runScript(src)
		Expect(items).To(HaveKey(StorageKey))
		var got map[string]string
		Expect(json.Unmarshal([]byte(items[StorageKey]), &got)).To(Succeed())
		Expect(got).To(Equal(prices))
		Expect(logs).To(Equal([]string{"savedPrices loaded from saved_prices.js"}))
	})

	ginkgo.It("embeds compact JSON", func() {
		src, err := RenderScript(map[string]string{"a.png": "$1"}, "x.js")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(src)).To(HavePrefix(`localStorage.setItem('savedPrices', JSON.stringify({"a.png":"$1"}));`))
	})
})

var _ = ginkgo.Describe("LoadPrices", func() {
	var path string

	ginkgo.BeforeEach(func() {
		path = filepath.Join(ginkgo.GinkgoT().TempDir(), "saved_prices.json")
	})

	ginkgo.It("reads a hand-edited file", func() {
		Expect(os.WriteFile(path, []byte(`{"a.png": "$10", "b.png": ""}`), 0o644)).To(Succeed())
		prices, err := LoadPrices(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(prices).To(Equal(map[string]string{"a.png": "$10", "b.png": ""}))
	})

	ginkgo.It("rejects non-string values", func() {
		Expect(os.WriteFile(path, []byte(`{"a.png": 10}`), 0o644)).To(Succeed())
		_, err := LoadPrices(path)
		Expect(err).To(MatchError(ContainSubstring("does not match schema")))
	})

	ginkgo.It("rejects a top-level array", func() {
		Expect(os.WriteFile(path, []byte(`["$10"]`), 0o644)).To(Succeed())
		_, err := LoadPrices(path)
		Expect(err).To(HaveOccurred())
	})

	ginkgo.It("round-trips what WriteArtifacts produced", func() {
		js := filepath.Join(filepath.Dir(path), "saved_prices.js")
		want := map[string]string{"x.png": "£3.50"}
		Expect(WriteArtifacts(want, path, js)).To(Succeed())
		got, err := LoadPrices(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(want))
	})
})

var _ = ginkgo.Describe("WriteArtifacts", func() {
	var dir, jsonPath, jsPath string

	ginkgo.BeforeEach(func() {
		dir = ginkgo.GinkgoT().TempDir()
		jsonPath = filepath.Join(dir, "saved_prices.json")
		jsPath = filepath.Join(dir, "saved_prices.js")
	})

	ginkgo.It("leaves no temporary files behind", func() {
		Expect(WriteArtifacts(map[string]string{"a.png": "$1"}, jsonPath, jsPath)).To(Succeed())
		Expect(WriteArtifacts(map[string]string{"a.png": "$2"}, jsonPath, jsPath)).To(Succeed())
		entries, err := os.ReadDir(dir)
		Expect(err).NotTo(HaveOccurred())
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		Expect(names).To(ConsistOf("saved_prices.js", "saved_prices.json"))
		info, err := os.Stat(jsonPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o644)))
	})

	ginkgo.It("never exposes a partially written file to readers", func() {
		small := map[string]string{"a.png": "$1"}
		large := map[string]string{}
		for i := 0; i < 500; i++ {
			large[fmt.Sprintf("producto-%03d.png", i)] = "$99"
		}
		Expect(WriteArtifacts(small, jsonPath, jsPath)).To(Succeed())

		done := make(chan struct{})
		go func() {
			defer ginkgo.GinkgoRecover()
			defer close(done)
			for i := 0; i < 50; i++ {
				m := small
				if i%2 == 0 {
					m = large
				}
				Expect(WriteArtifacts(m, jsonPath, jsPath)).To(Succeed())
			}
		}()
		for {
			select {
			case <-done:
				return
			default:
			}
			_, err := LoadPrices(jsonPath)
			Expect(err).NotTo(HaveOccurred())
		}
	})

	ginkgo.It("reports a missing output directory", func() {
		err := WriteArtifacts(map[string]string{}, filepath.Join(dir, "nope", "x.json"), jsPath)
		Expect(err).To(HaveOccurred())
	})
})

var _ = ginkgo.Describe("WriteXLSX", func() {
	ginkgo.It("reports a save failure", func() {
		err := WriteXLSX([]FileResult{{Name: "a.png", Price: "$1"}}, filepath.Join(ginkgo.GinkgoT().TempDir(), "missing", "prices.xlsx"))
		Expect(err).To(HaveOccurred())
	})

	ginkgo.It("writes one row per result", func() {
		path := filepath.Join(ginkgo.GinkgoT().TempDir(), "prices.xlsx")
		results := []FileResult{
			{Name: "a.png", Price: "$1", Strategy: "plain"},
			{Name: "b.png", Err: errors.New("decode image: unexpected EOF")},
		}
		Expect(WriteXLSX(results, path)).To(Succeed())

		f, err := excelize.OpenFile(path)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()
		rows, err := f.GetRows("Prices")
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(3))
		Expect(rows[0]).To(Equal([]string{"File", "Price", "Detected", "Pass", "Error"}))
		Expect(rows[1][0:2]).To(Equal([]string{"a.png", "$1"}))
		Expect(rows[2][4]).To(Equal("decode image: unexpected EOF"))
	})
})
