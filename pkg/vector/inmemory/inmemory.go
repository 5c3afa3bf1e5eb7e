// Package inmemory provides a map-backed vector.Driver for tests and
// ephemeral single-process use. Records live only as long as the driver.
package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/leadforgeco/leadforge/pkg/embeddings"
	"github.com/leadforgeco/leadforge/pkg/vector"
)

// Driver is an in-memory vector.Driver backed by a map.
type Driver struct {
	mu      sync.RWMutex
	records map[string]vector.Record
	order   []string

	// FailWith, when set, is returned by every operation. Used to
	// exercise failure handling in callers.
	FailWith error

	// Pings counts Ping calls.
	Pings int
}

var _ vector.Driver = (*Driver)(nil)

func NewDriver() *Driver {
	return &Driver{
		records: make(map[string]vector.Record),
	}
}

func (d *Driver) Upsert(_ context.Context, records []vector.Record) error {
	if d.FailWith != nil {
		return d.FailWith
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, r := range records {
		if _, exists := d.records[r.ID]; !exists {
			d.order = append(d.order, r.ID)
		}
		d.records[r.ID] = r
	}
	return nil
}

func (d *Driver) Query(_ context.Context, embedding []float32, topK int, filter map[string]string) ([]vector.SearchResult, error) {
	if d.FailWith != nil {
		return nil, d.FailWith
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var results []vector.SearchResult
	for _, id := range d.order {
		r := d.records[id]
		if len(r.Embedding) == 0 || !matches(r.Metadata, filter) {
			continue
		}
		results = append(results, vector.SearchResult{
			Record: r,
			Score:  embeddings.CosineSimilarity(embedding, r.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

func (d *Driver) Get(_ context.Context, ids []string) ([]vector.Record, error) {
	if d.FailWith != nil {
		return nil, d.FailWith
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	records := make([]vector.Record, 0, len(ids))
	for _, id := range ids {
		if r, ok := d.records[id]; ok {
			records = append(records, r)
		}
	}
	return records, nil
}

func (d *Driver) Delete(_ context.Context, ids []string) error {
	if d.FailWith != nil {
		return d.FailWith
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range ids {
		if _, ok := d.records[id]; !ok {
			continue
		}
		delete(d.records, id)
		for i, existing := range d.order {
			if existing == id {
				d.order = append(d.order[:i], d.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (d *Driver) Count(_ context.Context) (int, error) {
	if d.FailWith != nil {
		return 0, d.FailWith
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records), nil
}

func (d *Driver) Peek(_ context.Context, limit int) ([]vector.Record, error) {
	if d.FailWith != nil {
		return nil, d.FailWith
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	n := len(d.order)
	if limit > 0 && limit < n {
		n = limit
	}

	records := make([]vector.Record, 0, n)
	for _, id := range d.order[:n] {
		records = append(records, d.records[id])
	}
	return records, nil
}

func (d *Driver) Ping(_ context.Context) error {
	d.mu.Lock()
	d.Pings++
	d.mu.Unlock()
	return d.FailWith
}

func (d *Driver) Close() error {
	return nil
}

func matches(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}
