package ingest_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/leadforgeco/leadforge/pkg/ingest"
)

var _ = Describe("Chunker", func() {
	Describe("NewChunker", func() {
		It("falls back to defaults for zero values", func() {
			c, err := ingest.NewChunker(0, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Size()).To(Equal(ingest.DefaultChunkSize))
			Expect(c.Overlap()).To(Equal(ingest.DefaultChunkOverlap))
		})

		It("rejects an overlap at or above the size", func() {
			_, err := ingest.NewChunker(100, 100)
			Expect(err).To(HaveOccurred())

			_, err = ingest.NewChunker(100, 150)
			Expect(err).To(HaveOccurred())
		})

		It("rejects negative values", func() {
			_, err := ingest.NewChunker(-1, 10)
			Expect(err).To(HaveOccurred())

			_, err = ingest.NewChunker(100, -1)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Split", func() {
		It("returns nothing for empty text", func() {
			c, _ := ingest.NewChunker(100, 20)
			Expect(c.Split("")).To(BeEmpty())
		})

		It("keeps short text as a single chunk", func() {
			c, _ := ingest.NewChunker(100, 20)
			chunks := c.Split("a short note about a promising lead.")
			Expect(chunks).To(HaveLen(1))
			Expect(chunks[0]).To(Equal("a short note about a promising lead."))
		})

		It("bounds every chunk by the window size", func() {
			c, _ := ingest.NewChunker(50, 10)
			text := strings.Repeat("abcde ", 100)

			for _, chunk := range c.Split(text) {
				Expect(len(chunk)).To(BeNumerically("<=", 50))
			}
		})

		It("covers the full text across chunks", func() {
			c, _ := ingest.NewChunker(40, 10)
			text := "one two three four five six seven eight nine ten eleven twelve thirteen fourteen"

			chunks := c.Split(text)
			Expect(chunks).NotTo(BeEmpty())

			// Every word must appear in at least one chunk.
			joined := strings.Join(chunks, " ")
			for _, word := range strings.Fields(text) {
				Expect(joined).To(ContainSubstring(word))
			}

			// Last chunk must carry the tail of the text.
			Expect(chunks[len(chunks)-1]).To(HaveSuffix("fourteen"))
		})

		It("prefers to break on a sentence terminator near the window edge", func() {
			c, _ := ingest.NewChunker(60, 10)
			text := "The first finding was promising. The second finding needs follow up work before anyone calls it real."

			chunks := c.Split(text)
			Expect(len(chunks)).To(BeNumerically(">=", 2))
			Expect(chunks[0]).To(HaveSuffix("promising."))
		})

		It("splits mid-window when no terminator is close enough", func() {
			c, _ := ingest.NewChunker(30, 5)
			text := strings.Repeat("x", 90)

			chunks := c.Split(text)
			Expect(len(chunks)).To(BeNumerically(">=", 3))
			for _, chunk := range chunks {
				Expect(len(chunk)).To(BeNumerically("<=", 30))
			}
		})

		It("overlaps adjacent chunks", func() {
			c, _ := ingest.NewChunker(30, 10)
			text := strings.Repeat("z", 100)

			chunks := c.Split(text)
			Expect(len(chunks)).To(BeNumerically(">=", 2))

			// With uniform text, each successive window re-reads the
			// overlap region, so total characters exceed the input.
			total := 0
			for _, chunk := range chunks {
				total += len(chunk)
			}
			Expect(total).To(BeNumerically(">", len(text)))
		})

		It("always terminates on pathological terminator placement", func() {
			// A terminator right after each window start would stall a
			// naive implementation.
			c, _ := ingest.NewChunker(20, 15)
			text := strings.Repeat(".", 200)

			chunks := c.Split(text)
			Expect(chunks).NotTo(BeEmpty())
		})
	})
})

var _ = Describe("Normalize", func() {
	It("collapses whitespace runs to single spaces", func() {
		Expect(ingest.Normalize("a\t b\n\nc   d")).To(Equal("a b c d"))
	})

	It("strips characters outside the allow-list", func() {
		Expect(ingest.Normalize("lead™ ← name® [x]")).To(Equal("lead name x"))
	})

	It("keeps basic punctuation", func() {
		in := `cost: 5% (est.), "per-unit" + R&D/ops!`
		Expect(ingest.Normalize(in)).To(Equal(in))
	})

	It("trims surrounding whitespace", func() {
		Expect(ingest.Normalize("  padded  ")).To(Equal("padded"))
	})

	It("returns empty for whitespace-only input", func() {
		Expect(ingest.Normalize(" \n\t ")).To(Equal(""))
	})
})
