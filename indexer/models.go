package indexer

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventRecord stores one committed event.
type EventRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Fingerprint string    `gorm:"size:64;uniqueIndex"`
	Sequence    uint64    `gorm:"index:idx_event_order,priority:1"`
	Position    int       `gorm:"index:idx_event_order,priority:2"`
	Type        string    `gorm:"size:64;index"`
	Attributes  string    `gorm:"type:text"`
	Timestamp   time.Time `gorm:"index"`
	CreatedAt   time.Time
}

// EventParticipant links an event to every account named in its attributes.
type EventParticipant struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID uuid.UUID `gorm:"type:uuid;index"`
	Account string    `gorm:"size:64;index"`
	Role    string    `gorm:"size:32"`
}

// AutoMigrate creates or updates the indexer tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&EventRecord{}, &EventParticipant{})
}
