package vector_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/leadforgeco/leadforge/pkg/vector"
	"github.com/leadforgeco/leadforge/pkg/vector/inmemory"
)

// scoreDriver wraps the in-memory driver and overrides Query scores, to
// exercise the index's score clamping.
type scoreDriver struct {
	*inmemory.Driver
	scores []float64
}

func (d *scoreDriver) Query(ctx context.Context, embedding []float32, topK int, filter map[string]string) ([]vector.SearchResult, error) {
	results, err := d.Driver.Query(ctx, embedding, topK, filter)
	if err != nil {
		return nil, err
	}
	for i := range results {
		if i < len(d.scores) {
			results[i].Score = d.scores[i]
		}
	}
	return results, nil
}

func testRecords() []vector.Record {
	return []vector.Record{
		{
			ID:        "chunk-a",
			Content:   "solid state battery research",
			Metadata:  map[string]string{"type": "paper", "title": "Batteries"},
			Embedding: []float32{1, 0, 0},
		},
		{
			ID:        "chunk-b",
			Content:   "lithium recycling startup",
			Metadata:  map[string]string{"type": "lead", "title": "Recyclers"},
			Embedding: []float32{0.9, 0.1, 0},
		},
		{
			ID:        "chunk-c",
			Content:   "unrelated web finding",
			Metadata:  map[string]string{"type": "search"},
			Embedding: []float32{0, 0, 1},
		},
	}
}

var _ = Describe("Index", func() {
	var (
		ctx    context.Context
		logger *zap.Logger
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger = zap.NewNop()
	})

	newIndex := func(driver vector.Driver, maxConns int, idle time.Duration) *vector.Index {
		index, err := vector.NewIndex(vector.IndexConfig{
			Factory:     func() (vector.Driver, error) { return driver, nil },
			MaxConns:    maxConns,
			IdleTimeout: idle,
		}, logger)
		Expect(err).NotTo(HaveOccurred())
		return index
	}

	Describe("NewIndex", func() {
		It("requires a factory", func() {
			_, err := vector.NewIndex(vector.IndexConfig{}, logger)
			Expect(err).To(HaveOccurred())
		})

		It("opens no handles until first use", func() {
			index := newIndex(inmemory.NewDriver(), 5, time.Minute)
			Expect(index.PoolSize()).To(Equal(0))
		})
	})

	Describe("Upsert and Get", func() {
		It("stores records and retrieves them by id", func() {
			index := newIndex(inmemory.NewDriver(), 5, time.Minute)
			Expect(index.Upsert(ctx, testRecords())).To(BeTrue())

			record, ok := index.Get(ctx, "chunk-a")
			Expect(ok).To(BeTrue())
			Expect(record.Content).To(Equal("solid state battery research"))
			Expect(record.Metadata["type"]).To(Equal("paper"))
		})

		It("overwrites a record with the same id", func() {
			driver := inmemory.NewDriver()
			index := newIndex(driver, 5, time.Minute)
			Expect(index.Upsert(ctx, testRecords())).To(BeTrue())

			updated := testRecords()[0]
			updated.Content = "revised content"
			Expect(index.Upsert(ctx, []vector.Record{updated})).To(BeTrue())

			record, ok := index.Get(ctx, "chunk-a")
			Expect(ok).To(BeTrue())
			Expect(record.Content).To(Equal("revised content"))

			count, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(3))
		})

		It("reports a missing id without an error", func() {
			index := newIndex(inmemory.NewDriver(), 5, time.Minute)
			record, ok := index.Get(ctx, "no-such-chunk")
			Expect(ok).To(BeFalse())
			Expect(record).To(BeNil())
		})

		It("returns false when the store fails", func() {
			driver := inmemory.NewDriver()
			driver.FailWith = errors.New("disk full")
			index := newIndex(driver, 5, time.Minute)
			Expect(index.Upsert(ctx, testRecords())).To(BeFalse())
		})
	})

	Describe("Search", func() {
		It("ranks results by descending similarity starting at 1", func() {
			index := newIndex(inmemory.NewDriver(), 5, time.Minute)
			index.Upsert(ctx, testRecords())

			results := index.Search(ctx, []float32{1, 0, 0}, 10, nil)
			Expect(len(results)).To(Equal(3))
			Expect(results[0].ID).To(Equal("chunk-a"))
			Expect(results[0].Rank).To(Equal(1))
			Expect(results[1].Rank).To(Equal(2))
			Expect(results[0].Score).To(BeNumerically(">=", results[1].Score))
			Expect(results[1].Score).To(BeNumerically(">=", results[2].Score))
		})

		It("truncates to topK", func() {
			index := newIndex(inmemory.NewDriver(), 5, time.Minute)
			index.Upsert(ctx, testRecords())

			results := index.Search(ctx, []float32{1, 0, 0}, 2, nil)
			Expect(results).To(HaveLen(2))
		})

		It("applies the metadata filter before ranking", func() {
			index := newIndex(inmemory.NewDriver(), 5, time.Minute)
			index.Upsert(ctx, testRecords())

			results := index.Search(ctx, []float32{1, 0, 0}, 10, map[string]string{"type": "lead"})
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("chunk-b"))
			Expect(results[0].Rank).To(Equal(1))
		})

		It("clamps scores into [0, 1]", func() {
			driver := &scoreDriver{Driver: inmemory.NewDriver(), scores: []float64{1.5, -0.2, 0.4}}
			driver.Upsert(ctx, testRecords())
			index := newIndex(driver, 5, time.Minute)

			results := index.Search(ctx, []float32{1, 0, 0}, 10, nil)
			Expect(results).To(HaveLen(3))
			for _, r := range results {
				Expect(r.Score).To(BeNumerically(">=", 0))
				Expect(r.Score).To(BeNumerically("<=", 1))
			}
		})

		It("returns an empty result on store failure", func() {
			driver := inmemory.NewDriver()
			driver.FailWith = errors.New("connection reset")
			index := newIndex(driver, 5, time.Minute)
			Expect(index.Search(ctx, []float32{1, 0, 0}, 10, nil)).To(BeEmpty())
		})
	})

	Describe("Delete and Clear", func() {
		It("removes a single record", func() {
			index := newIndex(inmemory.NewDriver(), 5, time.Minute)
			index.Upsert(ctx, testRecords())

			Expect(index.Delete(ctx, "chunk-b")).To(BeTrue())
			_, ok := index.Get(ctx, "chunk-b")
			Expect(ok).To(BeFalse())
		})

		It("clears the whole collection", func() {
			driver := inmemory.NewDriver()
			index := newIndex(driver, 5, time.Minute)
			index.Upsert(ctx, testRecords())

			Expect(index.Clear(ctx)).To(BeTrue())
			count, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(0))
		})

		It("clear succeeds on an empty collection", func() {
			index := newIndex(inmemory.NewDriver(), 5, time.Minute)
			Expect(index.Clear(ctx)).To(BeTrue())
		})
	})

	Describe("Stats", func() {
		It("reports count, kind histogram and dimensions", func() {
			index := newIndex(inmemory.NewDriver(), 5, time.Minute)
			index.Upsert(ctx, testRecords())

			stats := index.Stats(ctx)
			Expect(stats.Status).To(Equal("healthy"))
			Expect(stats.Count).To(Equal(3))
			Expect(stats.Dimensions).To(Equal(3))
			Expect(stats.TypeHistogram).To(HaveKeyWithValue("paper", 1))
			Expect(stats.TypeHistogram).To(HaveKeyWithValue("lead", 1))
			Expect(stats.TypeHistogram).To(HaveKeyWithValue("search", 1))
		})

		It("reports an error status on store failure", func() {
			driver := inmemory.NewDriver()
			driver.FailWith = errors.New("gone")
			index := newIndex(driver, 5, time.Minute)

			stats := index.Stats(ctx)
			Expect(stats.Status).To(Equal("error"))
			Expect(stats.Count).To(Equal(0))
		})
	})

	Describe("Backup", func() {
		It("writes a snapshot with parallel arrays", func() {
			index := newIndex(inmemory.NewDriver(), 5, time.Minute)
			index.Upsert(ctx, testRecords())

			path := filepath.Join(GinkgoT().TempDir(), "snapshot.json")
			Expect(index.Backup(ctx, path)).To(BeTrue())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())

			var snapshot vector.Snapshot
			Expect(json.Unmarshal(data, &snapshot)).To(Succeed())
			Expect(snapshot.IDs).To(HaveLen(3))
			Expect(snapshot.Documents).To(HaveLen(3))
			Expect(snapshot.Metadatas).To(HaveLen(3))
			Expect(snapshot.Embeddings).To(HaveLen(3))
			Expect(snapshot.CreatedAt).NotTo(BeZero())
		})
	})

	Describe("connection pool", func() {
		It("reuses a healthy handle across operations", func() {
			opened := 0
			index, err := vector.NewIndex(vector.IndexConfig{
				Factory: func() (vector.Driver, error) {
					opened++
					return inmemory.NewDriver(), nil
				},
				MaxConns:    5,
				IdleTimeout: time.Minute,
			}, logger)
			Expect(err).NotTo(HaveOccurred())

			index.Upsert(ctx, testRecords())
			index.Search(ctx, []float32{1, 0, 0}, 5, nil)
			index.Stats(ctx)

			Expect(opened).To(Equal(1))
			Expect(index.PoolSize()).To(Equal(1))
		})

		It("opens a fresh handle when the current one turns unhealthy", func() {
			bad := inmemory.NewDriver()
			bad.FailWith = errors.New("broken pipe")
			good := inmemory.NewDriver()

			drivers := []vector.Driver{bad, good}
			index, err := vector.NewIndex(vector.IndexConfig{
				Factory: func() (vector.Driver, error) {
					d := drivers[0]
					drivers = drivers[1:]
					return d, nil
				},
				MaxConns:    2,
				IdleTimeout: time.Minute,
			}, logger)
			Expect(err).NotTo(HaveOccurred())

			Expect(index.Upsert(ctx, testRecords())).To(BeFalse())
			Expect(index.Upsert(ctx, testRecords())).To(BeTrue())
			Expect(index.PoolSize()).To(Equal(2))

			count, cerr := good.Count(ctx)
			Expect(cerr).NotTo(HaveOccurred())
			Expect(count).To(Equal(3))
		})

		It("revalidates the least-recently-used handle when the pool is full", func() {
			stale := inmemory.NewDriver()
			index, err := vector.NewIndex(vector.IndexConfig{
				Factory:     func() (vector.Driver, error) { return stale, nil },
				MaxConns:    1,
				IdleTimeout: time.Millisecond,
			}, logger)
			Expect(err).NotTo(HaveOccurred())

			index.Upsert(ctx, testRecords())
			time.Sleep(5 * time.Millisecond)

			// Pool is full and the only handle is expired, so acquire
			// must ping it before reuse.
			index.Upsert(ctx, testRecords())
			Expect(stale.Pings).To(BeNumerically(">=", 1))
			Expect(index.PoolSize()).To(Equal(1))
		})

		It("replaces an unhealthy handle that fails its health check", func() {
			dead := inmemory.NewDriver()
			replacement := inmemory.NewDriver()
			opened := 0

			index, err := vector.NewIndex(vector.IndexConfig{
				Factory: func() (vector.Driver, error) {
					opened++
					if opened == 1 {
						return dead, nil
					}
					return replacement, nil
				},
				MaxConns:    1,
				IdleTimeout: time.Minute,
			}, logger)
			Expect(err).NotTo(HaveOccurred())

			index.Upsert(ctx, testRecords())
			dead.FailWith = errors.New("server went away")

			Expect(index.Upsert(ctx, testRecords())).To(BeFalse())
			dead.FailWith = errors.New("still down")

			Expect(index.Upsert(ctx, testRecords())).To(BeTrue())
			Expect(opened).To(Equal(2))
			Expect(index.PoolSize()).To(Equal(1))

			count, cerr := replacement.Count(ctx)
			Expect(cerr).NotTo(HaveOccurred())
			Expect(count).To(Equal(3))
		})

		It("serves concurrent searches from a shared handle", func() {
			opened := 0
			index, err := vector.NewIndex(vector.IndexConfig{
				Factory: func() (vector.Driver, error) {
					opened++
					return inmemory.NewDriver(), nil
				},
				MaxConns:    5,
				IdleTimeout: time.Minute,
			}, logger)
			Expect(err).NotTo(HaveOccurred())

			index.Upsert(ctx, testRecords())

			// Handles are not checked out exclusively, so every caller may
			// land on the same driver at once.
			var wg sync.WaitGroup
			hits := make([]int, 8)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					hits[i] = len(index.Search(ctx, []float32{1, 0, 0}, 5, nil))
				}(i)
			}
			wg.Wait()

			for _, h := range hits {
				Expect(h).To(Equal(3))
			}
			Expect(opened).To(Equal(1))
		})
	})
})
