// Package storage archives pairings to PostgreSQL. The archive is an audit
// trail only: the hub owns all live matching state and never reads rooms
// back from the database to make decisions.
package storage

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"chatmitra/backend/internal/models"
)

// Archive records room lifecycle events. Implementations must tolerate
// being called concurrently.
type Archive interface {
	// SaveRoom records a newly created room.
	SaveRoom(record *models.RoomRecord) error
	// CloseRoom marks a room ended with the given reason.
	CloseRoom(roomID, reason string) error
	// ActiveRoomIDs lists rooms never marked closed, e.g. after a crash.
	ActiveRoomIDs() ([]string, error)
}

// Service is the gorm-backed Archive.
type Service struct {
	DB *gorm.DB
}

// NewService creates the Archive and runs its migration.
func NewService(db *gorm.DB) (*Service, error) {
	if err := db.AutoMigrate(&models.RoomRecord{}); err != nil {
		return nil, fmt.Errorf("migrate room records: %w", err)
	}
	return &Service{DB: db}, nil
}

func (s *Service) SaveRoom(record *models.RoomRecord) error {
	if err := s.DB.Save(record).Error; err != nil {
		return fmt.Errorf("save room %s: %w", record.RoomID, err)
	}
	return nil
}

func (s *Service) CloseRoom(roomID, reason string) error {
	err := s.DB.Model(&models.RoomRecord{}).
		Where("room_id = ?", roomID).
		Updates(map[string]interface{}{
			"is_active":  false,
			"ended_at":   time.Now(),
			"end_reason": reason,
		}).Error
	if err != nil {
		return fmt.Errorf("close room %s: %w", roomID, err)
	}
	return nil
}

func (s *Service) ActiveRoomIDs() ([]string, error) {
	var roomIDs []string
	err := s.DB.Model(&models.RoomRecord{}).
		Where("is_active = ?", true).
		Pluck("room_id", &roomIDs).Error
	if err != nil {
		return nil, fmt.Errorf("list active rooms: %w", err)
	}
	return roomIDs, nil
}

// Noop is the Archive used when no database is configured.
type Noop struct{}

func (Noop) SaveRoom(*models.RoomRecord) error { return nil }
func (Noop) CloseRoom(string, string) error    { return nil }
func (Noop) ActiveRoomIDs() ([]string, error)  { return nil, nil }
