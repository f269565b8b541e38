package postgres

import (
	"strconv"
	"time"

	"github.com/fenwick-ai/ragengine/internal/common"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/pgvector/pgvector-go"
)

// pgVector is the database model backing a single indexed chunk.
type pgVector struct {
	ID           uint                `json:"id" gorm:"primarykey"`
	CreatedAt    time.Time           `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time           `json:"updated_at" gorm:"column:updated_at"`
	CollectionID string              `json:"collection_id" gorm:"column:collection_id;not null;index"`
	DocumentID   string              `json:"document_id" gorm:"column:document_id"`
	ChunkID      string              `json:"chunk_id" gorm:"column:chunk_id;index"`
	Content      string              `json:"content" gorm:"column:content;not null"`
	Dimension    int                 `json:"dimension" gorm:"column:dimension;not null"`
	Embedding    pgvector.HalfVector `json:"embedding" gorm:"column:embedding;not null"`
}

// pgVectorWithScore extends pgVector with a similarity score column.
type pgVectorWithScore struct {
	ID           uint                `json:"id" gorm:"primarykey"`
	CreatedAt    time.Time           `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time           `json:"updated_at" gorm:"column:updated_at"`
	CollectionID string              `json:"collection_id" gorm:"column:collection_id"`
	DocumentID   string              `json:"document_id" gorm:"column:document_id"`
	ChunkID      string              `json:"chunk_id" gorm:"column:chunk_id"`
	Content      string              `json:"content" gorm:"column:content;not null"`
	Dimension    int                 `json:"dimension" gorm:"column:dimension;not null"`
	Embedding    pgvector.HalfVector `json:"embedding" gorm:"column:embedding;not null"`
	Score        float64             `json:"score" gorm:"column:score"`
}

func (pgVectorWithScore) TableName() string {
	return "chunk_embeddings"
}

func (pgVector) TableName() string {
	return "chunk_embeddings"
}

// toDBVectorEmbedding converts IndexInfo to the pgVector database model.
func toDBVectorEmbedding(indexInfo *types.IndexInfo, additionalParams map[string]any) *pgVector {
	row := &pgVector{
		CollectionID: indexInfo.CollectionID,
		DocumentID:   indexInfo.DocumentID,
		ChunkID:      indexInfo.ChunkID,
		Content:      common.CleanInvalidUTF8(indexInfo.Content),
	}
	if additionalParams != nil {
		if embeddingMap, ok := additionalParams["embedding"].(map[string][]float32); ok {
			row.Embedding = pgvector.NewHalfVector(embeddingMap[indexInfo.ID])
			row.Dimension = len(row.Embedding.Slice())
		}
	}
	return row
}

// fromDBVectorEmbeddingWithScore converts pgVectorWithScore to the IndexWithScore domain model.
func fromDBVectorEmbeddingWithScore(row *pgVectorWithScore, matchType types.MatchType) *types.IndexWithScore {
	return &types.IndexWithScore{
		ID:           strconv.FormatInt(int64(row.ID), 10),
		CollectionID: row.CollectionID,
		DocumentID:   row.DocumentID,
		ChunkID:      row.ChunkID,
		Content:      row.Content,
		Score:        row.Score,
		MatchType:    matchType,
	}
}
