package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrIndexMismatch is returned when an index is written or read with an
// embedding model or dimension different from the one it was built with.
var ErrIndexMismatch = errors.New("index metadata mismatch")

// SetMetadata upserts a key-value pair in the index_metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO index_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM index_metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// IndexInfo describes how the stored chunk embeddings were produced.
type IndexInfo struct {
	EmbeddingModel string
	Dimension      int
	BuiltAt        time.Time
}

// SetIndexInfo stores all IndexInfo fields as metadata rows.
func (s *Store) SetIndexInfo(info IndexInfo) error {
	pairs := []struct{ k, v string }{
		{"embedding_model", info.EmbeddingModel},
		{"dimension", strconv.Itoa(info.Dimension)},
		{"built_at", info.BuiltAt.UTC().Format(time.RFC3339)},
	}
	for _, p := range pairs {
		if err := s.SetMetadata(p.k, p.v); err != nil {
			return err
		}
	}
	return nil
}

// GetIndexInfo reads IndexInfo from metadata. A store that was never
// indexed returns the zero value.
func (s *Store) GetIndexInfo() (IndexInfo, error) {
	var info IndexInfo
	var err error

	if info.EmbeddingModel, err = s.GetMetadata("embedding_model"); err != nil {
		return info, err
	}
	dim, err := s.GetMetadata("dimension")
	if err != nil {
		return info, err
	}
	if dim != "" {
		if info.Dimension, err = strconv.Atoi(dim); err != nil {
			return info, fmt.Errorf("parse dimension: %w", err)
		}
	}
	built, err := s.GetMetadata("built_at")
	if err != nil {
		return info, err
	}
	if built != "" {
		if info.BuiltAt, err = time.Parse(time.RFC3339, built); err != nil {
			return info, fmt.Errorf("parse built_at: %w", err)
		}
	}
	return info, nil
}

// CheckIndexInfo verifies that embeddings from the given model and
// dimension are compatible with the stored index. An empty index accepts
// anything. A zero dimension skips the dimension check.
func (s *Store) CheckIndexInfo(embeddingModel string, dimension int) error {
	info, err := s.GetIndexInfo()
	if err != nil {
		return err
	}
	if info.EmbeddingModel == "" {
		return nil
	}
	if info.EmbeddingModel != embeddingModel {
		return fmt.Errorf("%w: index built with %q, configured model is %q",
			ErrIndexMismatch, info.EmbeddingModel, embeddingModel)
	}
	if dimension > 0 && info.Dimension > 0 && info.Dimension != dimension {
		return fmt.Errorf("%w: index dimension %d, embeddings have %d",
			ErrIndexMismatch, info.Dimension, dimension)
	}
	return nil
}
