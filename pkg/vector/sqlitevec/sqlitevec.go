// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/leadforgeco/leadforge/pkg/vector"
)

// Driver implements vector.Driver using SQLite with sqlite-vec.
type Driver struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if c.Dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	// Chunk table. vec0 virtual tables use integer rowids, so the string
	// chunk ids map through this table; metadata is stored as a JSON blob.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			chunk_id TEXT NOT NULL UNIQUE,
			content TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}'
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunks table: %w", err)
	}

	// vec0 virtual table for vector storage and KNN queries.
	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS chunk_embeddings USING vec0(embedding float[%d])`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger.Info("sqlite-vec vector driver initialized",
		zap.String("db_path", c.DBPath),
		zap.Uint("dimensions", c.Dimensions),
		zap.String("vec_version", vecVersion),
	)

	return &Driver{
		db:     db,
		logger: logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

func marshalMetadata(m map[string]string) (string, error) {
	if m == nil {
		m = map[string]string{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalMetadata(s string) map[string]string {
	m := map[string]string{}
	if s != "" {
		_ = json.Unmarshal([]byte(s), &m)
	}
	return m
}

// Upsert stores records with their embeddings. A record with an existing
// chunk id overwrites its prior content, metadata and embedding. A record
// without an embedding is still stored; only the vec0 row is skipped.
func (d *Driver) Upsert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		meta, err := marshalMetadata(rec.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for chunk %s: %w", rec.ID, err)
		}

		var rowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM chunks WHERE chunk_id = ?`, rec.ID,
		).Scan(&rowID)

		switch err {
		case nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE chunks SET content = ?, metadata = ? WHERE rowid = ?`,
				rec.Content, meta, rowID,
			); err != nil {
				return fmt.Errorf("updating chunk %s: %w", rec.ID, err)
			}

			// vec0 does not support UPDATE, replace via DELETE + INSERT
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM chunk_embeddings WHERE rowid = ?`, rowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for chunk %s: %w", rec.ID, err)
			}
		case sql.ErrNoRows:
			result, err := tx.ExecContext(ctx,
				`INSERT INTO chunks(chunk_id, content, metadata) VALUES (?, ?, ?)`,
				rec.ID, rec.Content, meta,
			)
			if err != nil {
				return fmt.Errorf("inserting chunk %s: %w", rec.ID, err)
			}

			rowID, err = result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for chunk %s: %w", rec.ID, err)
			}
		default:
			return fmt.Errorf("checking for existing chunk %s: %w", rec.ID, err)
		}

		if len(rec.Embedding) > 0 {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO chunk_embeddings(rowid, embedding) VALUES (?, ?)`,
				rowID, serializeFloat32(rec.Embedding),
			); err != nil {
				return fmt.Errorf("inserting embedding for chunk %s: %w", rec.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("upserted records into sqlite-vec",
		zap.Int("count", len(records)),
	)

	return nil
}

// Query finds the topK most similar records to the given embedding.
// Metadata filtering happens after the KNN fetch, so the KNN limit is
// widened when a filter is present.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int, filter map[string]string) ([]vector.SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}

	knnLimit := topK
	if len(filter) > 0 {
		knnLimit = topK * 4
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT
			c.chunk_id,
			c.content,
			c.metadata,
			ce.distance
		FROM chunk_embeddings ce
		INNER JOIN chunks c ON c.rowid = ce.rowid
		WHERE ce.embedding MATCH ?
			AND ce.k = ?
		ORDER BY ce.distance
	`, serializeFloat32(embedding), knnLimit)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.SearchResult
	for rows.Next() {
		var chunkID, content, meta string
		var distance float64
		if err := rows.Scan(&chunkID, &content, &meta, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		metadata := unmarshalMetadata(meta)
		if !matches(metadata, filter) {
			continue
		}

		results = append(results, vector.SearchResult{
			Record: vector.Record{
				ID:       chunkID,
				Content:  content,
				Metadata: metadata,
			},
			// Convert distance to similarity: lower distance = higher similarity
			Score: 1.0 / (1.0 + distance),
		})

		if len(results) == topK {
			break
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec",
		zap.Int("results", len(results)),
	)

	return results, nil
}

func matches(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// Get retrieves records by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT c.chunk_id, c.content, c.metadata, c.rowid
		FROM chunks c
		WHERE c.chunk_id IN (%s)
	`, strings.Join(placeholders, ","))

	return d.collect(ctx, query, args...)
}

// Peek returns up to limit records; limit <= 0 returns everything.
func (d *Driver) Peek(ctx context.Context, limit int) ([]vector.Record, error) {
	query := `SELECT chunk_id, content, metadata, rowid FROM chunks ORDER BY rowid`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return d.collect(ctx, query, args...)
}

// collect runs a chunk-table query, then loads embeddings in a second pass
// so the rows cursor is closed before issuing further queries (SQLite uses
// a single connection).
func (d *Driver) collect(ctx context.Context, query string, args ...any) ([]vector.Record, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	type chunkRow struct {
		chunkID string
		content string
		meta    string
		rowID   int64
	}
	var chunkRows []chunkRow

	for rows.Next() {
		var cr chunkRow
		if err := rows.Scan(&cr.chunkID, &cr.content, &cr.meta, &cr.rowID); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunkRows = append(chunkRows, cr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	rows.Close()

	records := make([]vector.Record, 0, len(chunkRows))
	for _, cr := range chunkRows {
		rec := vector.Record{
			ID:       cr.chunkID,
			Content:  cr.content,
			Metadata: unmarshalMetadata(cr.meta),
		}

		var embBlob []byte
		err := d.db.QueryRowContext(ctx,
			`SELECT embedding FROM chunk_embeddings WHERE rowid = ?`, cr.rowID,
		).Scan(&embBlob)
		if err == nil && len(embBlob) > 0 {
			rec.Embedding, _ = deserializeFloat32(embBlob)
		}

		records = append(records, rec)
	}

	return records, nil
}

// Delete removes records by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	inClause := strings.Join(placeholders, ",")

	// Resolve rowids first so the vec0 rows can be removed too
	query := fmt.Sprintf(
		`SELECT rowid FROM chunks WHERE chunk_id IN (%s)`, inClause,
	)
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying rowids for deletion: %w", err)
	}

	var rowIDs []int64
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning rowid: %w", err)
		}
		rowIDs = append(rowIDs, rowID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rowids: %w", err)
	}

	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM chunk_embeddings WHERE rowid = ?`, rowID,
		); err != nil {
			return fmt.Errorf("deleting embedding rowid %d: %w", rowID, err)
		}
	}

	deleteQuery := fmt.Sprintf(
		`DELETE FROM chunks WHERE chunk_id IN (%s)`, inClause,
	)
	if _, err := tx.ExecContext(ctx, deleteQuery, args...); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("deleted records from sqlite-vec",
		zap.Int("count", len(ids)),
	)

	return nil
}

// Count returns the number of stored records.
func (d *Driver) Count(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// Ping checks that the underlying database handle is healthy.
func (d *Driver) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

// Ensure Driver implements vector.Driver
var _ vector.Driver = (*Driver)(nil)
