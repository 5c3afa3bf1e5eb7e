// Package qdrant provides a Qdrant vector database driver implementation
// over the official gRPC client.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/leadforgeco/leadforge/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for lead-discovery chunks.
	DefaultCollectionName = "leadforge"

	// DefaultPort is Qdrant's default gRPC port.
	DefaultPort = 6334

	// maxScrollLimit bounds a full-collection scroll (Peek with no limit).
	maxScrollLimit = 100_000
)

// Driver implements vector.Driver using Qdrant's gRPC API.
type Driver struct {
	client     *qdrant.Client
	collection string
	logger     *zap.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Host is the Qdrant server host (e.g., "localhost").
	Host string

	// Port is the gRPC port. Defaults to DefaultPort if zero.
	Port int

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewDriver creates a new Qdrant vector driver and ensures the collection
// exists with a cosine-distance vector config.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}

	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}

	port := c.Port
	if port == 0 {
		port = DefaultPort
	}

	collection := c.CollectionName
	if collection == "" {
		collection = DefaultCollectionName
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: c.Host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant: %v", vector.ErrConnection, err)
	}

	ctx := context.Background()
	exists, err := client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("%w: checking collection: %v", vector.ErrConnection, err)
	}

	if !exists {
		err = client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(c.Dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return nil, fmt.Errorf("creating collection %q: %w", collection, err)
		}
	}

	logger.Info("connected to Qdrant",
		zap.String("host", c.Host),
		zap.Int("port", port),
		zap.String("collection", collection),
		zap.Uint("dimensions", c.Dimensions),
	)

	return &Driver{
		client:     client,
		collection: collection,
		logger:     logger,
	}, nil
}

// pointID derives a deterministic Qdrant UUID from a chunk id, keeping
// upserts idempotent (Qdrant point ids must be UUIDs or integers).
func pointID(chunkID string) *qdrant.PointId {
	return qdrant.NewID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String())
}

// Upsert stores records, overwriting existing chunk ids.
func (d *Driver) Upsert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, rec := range records {
		metadata := make(map[string]any, len(rec.Metadata))
		for k, v := range rec.Metadata {
			metadata[k] = v
		}

		points = append(points, &qdrant.PointStruct{
			Id:      pointID(rec.ID),
			Vectors: qdrant.NewVectors(rec.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"chunk_id": rec.ID,
				"content":  rec.Content,
				"metadata": metadata,
			}),
		})
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	d.logger.Debug("upserted records into qdrant",
		zap.Int("count", len(records)),
	)

	return nil
}

// Query finds the topK most similar records to the given embedding.
// Qdrant reports cosine similarity directly; scores are clamped by the Index.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int, filter map[string]string) ([]vector.SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}

	req := &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	}

	if len(filter) > 0 {
		conditions := make([]*qdrant.Condition, 0, len(filter))
		for k, v := range filter {
			conditions = append(conditions, qdrant.NewMatch("metadata."+k, v))
		}
		req.Filter = &qdrant.Filter{Must: conditions}
	}

	points, err := d.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	results := make([]vector.SearchResult, 0, len(points))
	for _, p := range points {
		rec := recordFromPayload(p.GetPayload())
		results = append(results, vector.SearchResult{
			Record: rec,
			Score:  float64(p.GetScore()),
		})
	}

	d.logger.Debug("queried qdrant",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// Get retrieves records by their chunk IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}

	points, err := d.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: d.collection,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting points: %w", err)
	}

	records := make([]vector.Record, 0, len(points))
	for _, p := range points {
		rec := recordFromPayload(p.GetPayload())
		rec.Embedding = p.GetVectors().GetVector().GetData()
		records = append(records, rec)
	}

	return records, nil
}

// Peek returns up to limit records; limit <= 0 scrolls the full collection
// (bounded by maxScrollLimit).
func (d *Driver) Peek(ctx context.Context, limit int) ([]vector.Record, error) {
	if limit <= 0 || limit > maxScrollLimit {
		limit = maxScrollLimit
	}

	points, err := d.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: d.collection,
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("scrolling points: %w", err)
	}

	records := make([]vector.Record, 0, len(points))
	for _, p := range points {
		rec := recordFromPayload(p.GetPayload())
		rec.Embedding = p.GetVectors().GetVector().GetData()
		records = append(records, rec)
	}

	return records, nil
}

// Delete removes records by their chunk IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}

	_, err := d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}

	d.logger.Debug("deleted records from qdrant",
		zap.Int("count", len(ids)),
	)

	return nil
}

// Count returns the number of stored records.
func (d *Driver) Count(ctx context.Context) (int, error) {
	count, err := d.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: d.collection,
	})
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return int(count), nil
}

// Ping checks that the Qdrant server is reachable.
func (d *Driver) Ping(ctx context.Context) error {
	if _, err := d.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	return nil
}

// Close releases the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

// recordFromPayload rebuilds a vector.Record from a Qdrant payload.
func recordFromPayload(payload map[string]*qdrant.Value) vector.Record {
	rec := vector.Record{
		ID:       payload["chunk_id"].GetStringValue(),
		Content:  payload["content"].GetStringValue(),
		Metadata: map[string]string{},
	}

	for k, v := range payload["metadata"].GetStructValue().GetFields() {
		rec.Metadata[k] = v.GetStringValue()
	}

	return rec
}

// Ensure Driver implements vector.Driver
var _ vector.Driver = (*Driver)(nil)
