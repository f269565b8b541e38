// Package types defines data structures and types used throughout the system
// These types are shared across different service modules to ensure data consistency
package types

import "encoding/json"

// ChunkMetadata carries the structural provenance of a DocumentChunk.
// Fields are optional; a chunk produced outside ingestion (e.g. a synthetic
// test fixture) may leave all of them at their zero value.
type ChunkMetadata struct {
	SourceKind    string   `json:"source_kind,omitempty"`
	DocumentID    string   `json:"document_id,omitempty"`
	PageNumber    int      `json:"page_number,omitempty"`
	ChunkNumber   int      `json:"chunk_number,omitempty"`
	StartOffset   int      `json:"start_offset,omitempty"`
	EndOffset     int      `json:"end_offset,omitempty"`
	ParentChunkID string   `json:"parent_chunk_id,omitempty"`
	ChildChunkIDs []string `json:"child_chunk_ids,omitempty"`
	Level         int      `json:"level,omitempty"`
}

// DocumentChunk is a bounded text segment of a document, optionally embedded.
// Invariant: ID is unique within a collection; when Embedding is non-empty
// its length equals the collection's configured VectorDimension.
type DocumentChunk struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`

	// VectorDimension is the collection-configured dimension this chunk's
	// embedding (if present) was produced against; carried alongside the
	// embedding so a VectorStore adapter can validate without a collection
	// round-trip.
	VectorDimension int `json:"vector_dimension,omitempty"`
	// VectorDBName is the vector-store-specific handle (index/collection
	// name) this chunk is stored under. Opaque to the core; the concrete
	// VectorStore adapter (internal/application/repository/retriever) interprets it.
	VectorDBName string `json:"vector_db_name,omitempty"`

	Metadata ChunkMetadata `json:"metadata"`
}

// ScoredChunk wraps a DocumentChunk with a relevance score. The
// score-consistency invariant (wrapper score == chunk-level score) is
// enforced structurally: NewScoredChunk is the only constructor, and the
// score has no exported setter. Every reranker/retriever strategy must
// build ScoredChunk values through it.
type ScoredChunk struct {
	Chunk DocumentChunk `json:"chunk"`
	score float64
}

// NewScoredChunk builds a ScoredChunk, setting the wrapper score and the
// chunk's own score view atomically. There is deliberately no way to set
// one without the other.
func NewScoredChunk(chunk DocumentChunk, score float64) ScoredChunk {
	return ScoredChunk{Chunk: chunk, score: score}
}

// Score returns the chunk's relevance score.
func (s ScoredChunk) Score() float64 {
	return s.score
}

// WithScore returns a copy of s with a new score, re-validating the
// invariant through NewScoredChunk rather than mutating in place.
func (s ScoredChunk) WithScore(score float64) ScoredChunk {
	return NewScoredChunk(s.Chunk, score)
}

type scoredChunkWire struct {
	Chunk DocumentChunk `json:"chunk"`
	Score float64       `json:"score"`
}

// MarshalJSON flattens ScoredChunk to {chunk, score} without exposing an
// independently settable field.
func (s ScoredChunk) MarshalJSON() ([]byte, error) {
	return json.Marshal(scoredChunkWire{Chunk: s.Chunk, Score: s.score})
}

// UnmarshalJSON restores a ScoredChunk from {chunk, score}, routing back
// through NewScoredChunk so the invariant holds for wire-decoded values too.
func (s *ScoredChunk) UnmarshalJSON(data []byte) error {
	var w scoredChunkWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = NewScoredChunk(w.Chunk, w.Score)
	return nil
}
