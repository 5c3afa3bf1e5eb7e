package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultMaxConns    = 5
	defaultIdleTimeout = 5 * time.Minute

	// statsSampleSize bounds the peek sample used for the type histogram.
	statsSampleSize = 100
)

// DriverFactory opens a fresh persistence-layer handle.
type DriverFactory func() (Driver, error)

// IndexConfig holds configuration for the pooled Index.
type IndexConfig struct {
	// Factory opens new driver handles. Required.
	Factory DriverFactory

	// MaxConns caps the number of live handles (defaults to 5).
	MaxConns int

	// IdleTimeout marks a handle expired once it has sat idle this long
	// (defaults to 5 minutes).
	IdleTimeout time.Duration
}

// Index is the vector index store. It owns a small pool of driver handles
// and converts driver failures into boolean/empty results so a store error
// never aborts a batch of unrelated work.
type Index struct {
	factory     DriverFactory
	maxConns    int
	idleTimeout time.Duration
	logger      *zap.Logger

	// mu guards pool membership and handle selection only; handle use
	// proceeds without it once acquired.
	mu    sync.Mutex
	conns []*pooledConn
}

type pooledConn struct {
	driver   Driver
	lastUsed time.Time
	healthy  bool
}

// NewIndex creates a pooled vector index. Handles are opened lazily on
// first use, not here.
func NewIndex(c IndexConfig, logger *zap.Logger) (*Index, error) {
	if c.Factory == nil {
		return nil, fmt.Errorf("driver factory is required")
	}

	maxConns := c.MaxConns
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}

	idleTimeout := c.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleTimeout
	}

	return &Index{
		factory:     c.Factory,
		maxConns:    maxConns,
		idleTimeout: idleTimeout,
		logger:      logger,
	}, nil
}

// acquire selects a driver handle under the pool mutex:
// (a) a healthy, non-expired handle; (b) a freshly opened handle if the
// pool has room; (c) the least-recently-used handle, revalidated with a
// health check and replaced if unhealthy. Handles are not checked out
// exclusively; concurrent callers may share one, which is why Driver
// requires concurrency-safe implementations.
func (x *Index) acquire(ctx context.Context) (Driver, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	now := time.Now()

	var fresh *pooledConn
	for _, c := range x.conns {
		if !c.healthy || now.Sub(c.lastUsed) > x.idleTimeout {
			continue
		}
		if fresh == nil || c.lastUsed.After(fresh.lastUsed) {
			fresh = c
		}
	}
	if fresh != nil {
		fresh.lastUsed = now
		return fresh.driver, nil
	}

	if len(x.conns) < x.maxConns {
		driver, err := x.factory()
		if err != nil {
			return nil, fmt.Errorf("%w: opening handle: %v", ErrConnection, err)
		}
		x.conns = append(x.conns, &pooledConn{driver: driver, lastUsed: now, healthy: true})
		x.logger.Debug("opened vector store handle",
			zap.Int("pool_size", len(x.conns)),
		)
		return driver, nil
	}

	lru := x.conns[0]
	for _, c := range x.conns[1:] {
		if c.lastUsed.Before(lru.lastUsed) {
			lru = c
		}
	}

	if err := lru.driver.Ping(ctx); err != nil {
		x.logger.Warn("replacing unhealthy vector store handle", zap.Error(err))
		_ = lru.driver.Close()

		driver, ferr := x.factory()
		if ferr != nil {
			lru.healthy = false
			return nil, fmt.Errorf("%w: reopening handle: %v", ErrConnection, ferr)
		}
		lru.driver = driver
	}

	lru.lastUsed = now
	lru.healthy = true
	return lru.driver, nil
}

// markUnhealthy flags the handle so the next acquire revalidates or
// replaces it.
func (x *Index) markUnhealthy(d Driver) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, c := range x.conns {
		if c.driver == d {
			c.healthy = false
			return
		}
	}
}

// Upsert inserts or overwrites records by id. Returns false on store
// failure; the error is logged, never raised.
func (x *Index) Upsert(ctx context.Context, records []Record) bool {
	if len(records) == 0 {
		return true
	}

	driver, err := x.acquire(ctx)
	if err != nil {
		x.logger.Error("upsert: acquiring handle", zap.Error(err))
		return false
	}

	if err := driver.Upsert(ctx, records); err != nil {
		x.markUnhealthy(driver)
		x.logger.Error("upsert failed",
			zap.Int("count", len(records)),
			zap.Error(err),
		)
		return false
	}

	return true
}

// Search returns the topK most similar records, ranked 1..k by descending
// similarity, with scores clamped into [0, 1]. The metadata filter is
// applied before ranking. Store failure yields an empty slice.
func (x *Index) Search(ctx context.Context, embedding []float32, topK int, filter map[string]string) []SearchResult {
	if topK <= 0 {
		topK = 10
	}

	driver, err := x.acquire(ctx)
	if err != nil {
		x.logger.Error("search: acquiring handle", zap.Error(err))
		return nil
	}

	results, err := driver.Query(ctx, embedding, topK, filter)
	if err != nil {
		x.markUnhealthy(driver)
		x.logger.Error("search failed", zap.Error(err))
		return nil
	}

	filtered := results[:0]
	for _, r := range results {
		if !matchesFilter(r.Metadata, filter) {
			continue
		}
		if r.Score < 0 {
			r.Score = 0
		}
		if r.Score > 1 {
			r.Score = 1
		}
		filtered = append(filtered, r)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})

	if len(filtered) > topK {
		filtered = filtered[:topK]
	}
	for i := range filtered {
		filtered[i].Rank = i + 1
	}

	return filtered
}

// matchesFilter reports whether metadata contains every filter pair.
func matchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// Get retrieves a single record by id. The second return is false when the
// record is missing or the store fails.
func (x *Index) Get(ctx context.Context, id string) (*Record, bool) {
	driver, err := x.acquire(ctx)
	if err != nil {
		x.logger.Error("get: acquiring handle", zap.Error(err))
		return nil, false
	}

	records, err := driver.Get(ctx, []string{id})
	if err != nil {
		x.markUnhealthy(driver)
		x.logger.Error("get failed", zap.String("id", id), zap.Error(err))
		return nil, false
	}

	if len(records) == 0 {
		return nil, false
	}

	return &records[0], true
}

// Delete removes a record by id. Returns false on store failure.
func (x *Index) Delete(ctx context.Context, id string) bool {
	driver, err := x.acquire(ctx)
	if err != nil {
		x.logger.Error("delete: acquiring handle", zap.Error(err))
		return false
	}

	if err := driver.Delete(ctx, []string{id}); err != nil {
		x.markUnhealthy(driver)
		x.logger.Error("delete failed", zap.String("id", id), zap.Error(err))
		return false
	}

	return true
}

// Clear removes every record from the collection.
func (x *Index) Clear(ctx context.Context) bool {
	driver, err := x.acquire(ctx)
	if err != nil {
		x.logger.Error("clear: acquiring handle", zap.Error(err))
		return false
	}

	records, err := driver.Peek(ctx, 0)
	if err != nil {
		x.markUnhealthy(driver)
		x.logger.Error("clear: listing records", zap.Error(err))
		return false
	}

	if len(records) == 0 {
		return true
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}

	if err := driver.Delete(ctx, ids); err != nil {
		x.markUnhealthy(driver)
		x.logger.Error("clear failed", zap.Error(err))
		return false
	}

	x.logger.Info("cleared vector index", zap.Int("removed", len(ids)))
	return true
}

// Stats reports the record count, a type-tag histogram over a peek sample,
// the embedding dimensionality, and a status string.
func (x *Index) Stats(ctx context.Context) Stats {
	stats := Stats{
		TypeHistogram: map[string]int{},
		Status:        "healthy",
	}

	driver, err := x.acquire(ctx)
	if err != nil {
		x.logger.Error("stats: acquiring handle", zap.Error(err))
		stats.Status = "error"
		return stats
	}

	count, err := driver.Count(ctx)
	if err != nil {
		x.markUnhealthy(driver)
		x.logger.Error("stats: counting records", zap.Error(err))
		stats.Status = "error"
		return stats
	}
	stats.Count = count

	sample, err := driver.Peek(ctx, statsSampleSize)
	if err != nil {
		x.logger.Warn("stats: peeking sample", zap.Error(err))
		return stats
	}

	for _, r := range sample {
		if t := r.Metadata["type"]; t != "" {
			stats.TypeHistogram[t]++
		}
		if stats.Dimensions == 0 && len(r.Embedding) > 0 {
			stats.Dimensions = len(r.Embedding)
		}
	}

	return stats
}

// Backup exports the full collection to a single JSON snapshot file.
// Offline/manual operation, not part of the request path.
func (x *Index) Backup(ctx context.Context, path string) bool {
	driver, err := x.acquire(ctx)
	if err != nil {
		x.logger.Error("backup: acquiring handle", zap.Error(err))
		return false
	}

	records, err := driver.Peek(ctx, 0)
	if err != nil {
		x.markUnhealthy(driver)
		x.logger.Error("backup: exporting records", zap.Error(err))
		return false
	}

	snapshot := Snapshot{
		IDs:        make([]string, len(records)),
		Documents:  make([]string, len(records)),
		Metadatas:  make([]map[string]string, len(records)),
		Embeddings: make([][]float32, len(records)),
		CreatedAt:  time.Now().UTC(),
	}
	for i, r := range records {
		snapshot.IDs[i] = r.ID
		snapshot.Documents[i] = r.Content
		snapshot.Metadatas[i] = r.Metadata
		snapshot.Embeddings[i] = r.Embedding
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		x.logger.Error("backup: encoding snapshot", zap.Error(err))
		return false
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		x.logger.Error("backup: writing snapshot", zap.String("path", path), zap.Error(err))
		return false
	}

	x.logger.Info("vector index backed up",
		zap.String("path", path),
		zap.Int("records", len(records)),
	)
	return true
}

// Close closes every pooled handle.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	var firstErr error
	for _, c := range x.conns {
		if err := c.driver.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	x.conns = nil
	return firstErr
}

// PoolSize returns the number of live handles. Exposed for tests and stats.
func (x *Index) PoolSize() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.conns)
}
