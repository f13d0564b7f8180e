package batch

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pricescan/pkg/ocr"
)

var _ = ginkgo.Describe("RetryMissing", func() {
	var (
		engine *widthEngine
		opts   Options
	)

	ginkgo.BeforeEach(func() {
		root := ginkgo.GinkgoT().TempDir()
		imgDir := filepath.Join(root, "imagenes")
		Expect(os.Mkdir(imgDir, 0o755)).To(Succeed())
		writePNG(imgDir, "camisa.png", 40)
		writePNG(imgDir, "borrosa.png", 50)

		engine = &widthEngine{texts: map[int]string{40: "Camisa $240"}}
		opts = Options{
			InputDir:     imgDir,
			JSONPath:     filepath.Join(root, "saved_prices.json"),
			JSPath:       filepath.Join(root, "saved_prices.js"),
			MaxDimension: ocr.DefaultMaxDimension,
			Recognizer:   ocr.NewRecognizer(engine, ocr.DefaultThreshold),
			Out:          &bytes.Buffer{},
		}
		_, err := Run(opts)
		Expect(err).NotTo(HaveOccurred())
	})

	ginkgo.It("fills in prices found on the second look", func() {
		engine.mu.Lock()
		engine.texts[50] = "Oferta ¢ 350"
		engine.mu.Unlock()

		recovered, err := RetryMissing(opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(recovered).To(Equal(map[string]string{"borrosa.png": "¢350"}))

		prices, err := LoadPrices(opts.JSONPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(prices).To(Equal(map[string]string{"camisa.png": "$240", "borrosa.png": "¢350"}))
	})

	ginkgo.It("leaves the artifacts alone when nothing is recovered", func() {
		before, _ := os.ReadFile(opts.JSONPath)
		info, _ := os.Stat(opts.JSONPath)

		recovered, err := RetryMissing(opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(recovered).To(BeEmpty())

		after, _ := os.ReadFile(opts.JSONPath)
		infoAfter, _ := os.Stat(opts.JSONPath)
		Expect(after).To(Equal(before))
		Expect(infoAfter.ModTime()).To(Equal(info.ModTime()))
	})

	ginkgo.It("fails when there is no saved run", func() {
		Expect(os.Remove(opts.JSONPath)).To(Succeed())
		_, err := RetryMissing(opts)
		Expect(err).To(HaveOccurred())
	})
})
