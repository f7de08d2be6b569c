package ingest

import (
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PreviewStore", func() {
	var store *PreviewStore

	BeforeEach(func() {
		var err error
		store, err = NewPreviewStore(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Acquire", func() {
		It("writes the preview to scratch storage", func() {
			handle, err := store.Acquire([]byte("image bytes"))
			Expect(err).NotTo(HaveOccurred())
			Expect(handle.ID()).NotTo(BeEmpty())

			data, err := os.ReadFile(handle.Path())
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("image bytes"))
		})
	})

	Describe("Release", func() {
		It("removes the stored preview", func() {
			handle, err := store.Acquire([]byte("image bytes"))
			Expect(err).NotTo(HaveOccurred())

			handle.Release()
			_, statErr := os.Stat(handle.Path())
			Expect(os.IsNotExist(statErr)).To(BeTrue())
		})

		It("is idempotent: a second release is a no-op", func() {
			handle, err := store.Acquire([]byte("image bytes"))
			Expect(err).NotTo(HaveOccurred())

			handle.Release()
			Expect(func() { handle.Release() }).NotTo(Panic())
		})
	})
})
