package gorm

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// VectorStore caches article title embeddings in the vec0 virtual table,
// keyed by article id (rowid). Titles are immutable, so a cached vector
// never goes stale; the table is a cache, not authoritative state.
type VectorStore struct {
	rawDB *sql.DB
	dims  int
}

// NewVectorStore creates a new vector store.
func NewVectorStore(store *Store, dims int) *VectorStore {
	return &VectorStore{rawDB: store.GetRawDB(), dims: dims}
}

// Get returns the cached embeddings for the given article ids. Missing
// entries are simply absent from the result map.
func (s *VectorStore) Get(ctx context.Context, ids []int64) (map[int64][]float32, error) {
	if len(ids) == 0 {
		return map[int64][]float32{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(
		"SELECT rowid, embedding FROM article_vectors WHERE rowid IN (%s)",
		strings.Join(placeholders, ","))

	rows, err := s.rawDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	result := make(map[int64][]float32, len(ids))
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		vec, err := deserializeFloat32(blob)
		if err != nil {
			// A mis-sized blob means the dims changed; treat as a miss.
			continue
		}
		if len(vec) == s.dims {
			result[id] = vec
		}
	}
	return result, rows.Err()
}

// Put stores an embedding for an article id, replacing any existing entry.
func (s *VectorStore) Put(ctx context.Context, id int64, embedding []float32) error {
	if len(embedding) != s.dims {
		return fmt.Errorf("embedding has %d dims, table expects %d", len(embedding), s.dims)
	}

	serialized, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return fmt.Errorf("serialize embedding: %w", err)
	}

	// vec0 does not reliably support INSERT OR REPLACE; use DELETE + INSERT.
	tx, err := s.rawDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM article_vectors WHERE rowid = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO article_vectors(rowid, embedding) VALUES (?, ?)", id, serialized); err != nil {
		return err
	}
	return tx.Commit()
}

// deserializeFloat32 decodes a vec0 blob of little-endian float32 values.
func deserializeFloat32(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vec[i] = math.Float32frombits(bits)
	}
	return vec, nil
}
