package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// File is the document-metadata record the DocumentStore capability reads:
// display name, page count, and chunk count for one ingested document
// within a Collection. The engine never touches the underlying blob;
// this row is the only thing it needs to
// turn a chunk's DocumentID into something a user recognizes.
type File struct {
	ID           string `json:"id" gorm:"type:varchar(36);primaryKey"`
	CollectionID string `json:"collection_id" gorm:"index"`
	DisplayName  string `json:"display_name"`
	PageCount    int    `json:"page_count"`
	ChunkCount   int    `json:"chunk_count"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

func (f *File) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return nil
}
