package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CollectionStatus is the lifecycle state of a Collection's ingestion.
type CollectionStatus string

const (
	CollectionStatusCreated    CollectionStatus = "created"
	CollectionStatusProcessing CollectionStatus = "processing"
	CollectionStatusCompleted  CollectionStatus = "completed"
	CollectionStatusError      CollectionStatus = "error"
)

// Collection is a named, access-controlled group of document chunks backing
// one or more pipelines. The engine never materializes documents into a
// Collection itself; it only searches an already-ingested one.
type Collection struct {
	ID          string `json:"id" gorm:"type:varchar(36);primaryKey"`
	DisplayName string `json:"display_name"`
	IsPrivate   bool   `json:"is_private"`

	// VectorDBName is the concrete vector-store collection/index handle this
	// Collection resolves to; opaque outside internal/application/repository/retriever.
	VectorDBName string `json:"vector_db_name"`

	Status CollectionStatus `json:"status"`

	OwnerUserID      string      `json:"owner_user_id"`
	AuthorizedUserIDs StringArray `json:"authorized_user_ids" gorm:"type:json"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

func (c *Collection) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// CanAccess reports whether userID may search this Collection: owners and
// authorized users always can; anyone can when the collection isn't private.
func (c *Collection) CanAccess(userID string) bool {
	if !c.IsPrivate {
		return true
	}
	if userID == c.OwnerUserID {
		return true
	}
	for _, id := range c.AuthorizedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
