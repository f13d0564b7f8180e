package batch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pricescan/pkg/ocr"
)

var _ = ginkgo.Describe("Watch", func() {
	ginkgo.It("rescans after a new image lands", func() {
		root := ginkgo.GinkgoT().TempDir()
		imgDir := filepath.Join(root, "imagenes")
		Expect(os.Mkdir(imgDir, 0o755)).To(Succeed())

		engine := &widthEngine{texts: map[int]string{40: "Oferta $99"}}
		opts := Options{
			InputDir:     imgDir,
			LogoName:     "logo.png",
			JSONPath:     filepath.Join(root, "saved_prices.json"),
			JSPath:       filepath.Join(root, "saved_prices.js"),
			MaxDimension: ocr.DefaultMaxDimension,
			Recognizer:   ocr.NewRecognizer(engine, ocr.DefaultThreshold),
			Out:          &bytes.Buffer{},
		}

		reports := make(chan *Report, 4)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- Watch(ctx, opts, func(r *Report, err error) {
				if err == nil {
					reports <- r
				}
			})
		}()
		ginkgo.DeferCleanup(func() {
			cancel()
			Eventually(done, 2*time.Second).Should(Receive(BeNil()))
		})

		// give the watcher time to register before writing
		time.Sleep(100 * time.Millisecond)
		writePNG(imgDir, "nuevo.png", 40)

		var rep *Report
		Eventually(reports, 5*time.Second).Should(Receive(&rep))
		Expect(rep.Prices).To(HaveKeyWithValue("nuevo.png", "$99"))
	})
})

var _ = ginkgo.Describe("relevantEvent", func() {
	ginkgo.DescribeTable("filters events",
		func(name string, op fsnotify.Op, want bool) {
			Expect(relevantEvent(fsnotify.Event{Name: name, Op: op}, "logo.png")).To(Equal(want))
		},
		ginkgo.Entry("create", "/x/a.png", fsnotify.Create, true),
		ginkgo.Entry("remove", "/x/a.png", fsnotify.Remove, true),
		ginkgo.Entry("chmod only", "/x/a.png", fsnotify.Chmod, false),
		ginkgo.Entry("logo", "/x/Logo.PNG", fsnotify.Write, false),
		ginkgo.Entry("hidden temp file", "/x/.a.png.swp", fsnotify.Write, false),
	)
})
