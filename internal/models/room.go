package models

import (
	"time"

	"github.com/lib/pq"
)

// RoomRecord is the archived trace of a pairing in PostgreSQL. It is an
// audit trail only; live room state is owned by the hub and never read back
// from the database during matching.
type RoomRecord struct {
	// RoomID is the unique identifier of the room (UUID).
	RoomID string `gorm:"primaryKey"`
	// User1ID and User2ID are the anonymous IDs of the two members.
	User1ID string
	User2ID string
	// SharedInterests are the interests the pairing was based on. Empty for
	// fallback matches.
	SharedInterests pq.StringArray `gorm:"type:text[]"`
	// IsActive indicates whether the room is still open.
	IsActive bool
	// StartedAt is when the room was created.
	StartedAt time.Time
	// EndedAt is when the room was closed.
	EndedAt time.Time
	// EndReason records how the room ended ("ended" or "partner_disconnected").
	EndReason string
}
