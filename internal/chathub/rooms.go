package chathub

import (
	"time"

	"github.com/google/uuid"
)

// Room is an active 1-on-1 conversation between exactly two participants.
type Room struct {
	ID              string
	Members         [2]string
	SharedInterests []string
	CreatedAt       time.Time
}

// Other returns the peer of the given member. ok is false when the given
// participant is not a member of the room.
func (r *Room) Other(anonID string) (string, bool) {
	switch anonID {
	case r.Members[0]:
		return r.Members[1], true
	case r.Members[1]:
		return r.Members[0], true
	}
	return "", false
}

// RoomRegistry tracks active rooms and their membership. Like the Waitlist
// it is owned by the hub's run loop and does no locking of its own.
type RoomRegistry struct {
	rooms    map[string]*Room
	memberOf map[string]string
}

// NewRoomRegistry creates an empty RoomRegistry.
func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms:    make(map[string]*Room),
		memberOf: make(map[string]string),
	}
}

// Create makes a room for the two participants. It re-validates membership
// even though the hub checks upstream: if either participant is already in a
// room it fails with ErrAlreadyInRoom and creates nothing.
func (rr *RoomRegistry) Create(a, b string, shared []string) (*Room, error) {
	if _, ok := rr.memberOf[a]; ok {
		return nil, ErrAlreadyInRoom
	}
	if _, ok := rr.memberOf[b]; ok {
		return nil, ErrAlreadyInRoom
	}

	room := &Room{
		ID:              uuid.New().String(),
		Members:         [2]string{a, b},
		SharedInterests: shared,
		CreatedAt:       time.Now(),
	}
	rr.rooms[room.ID] = room
	rr.memberOf[a] = room.ID
	rr.memberOf[b] = room.ID
	return room, nil
}

// Lookup returns the room with the given ID.
func (rr *RoomRegistry) Lookup(roomID string) (*Room, bool) {
	room, ok := rr.rooms[roomID]
	return room, ok
}

// RoomOf returns the ID of the room containing the participant. Used on
// disconnect and leave, where the caller has no explicit room ID.
func (rr *RoomRegistry) RoomOf(anonID string) (string, bool) {
	roomID, ok := rr.memberOf[anonID]
	return roomID, ok
}

// Destroy deletes the room and both membership entries, returning the
// removed room so the caller can notify its members.
func (rr *RoomRegistry) Destroy(roomID string) (*Room, bool) {
	room, ok := rr.rooms[roomID]
	if !ok {
		return nil, false
	}
	delete(rr.rooms, roomID)
	delete(rr.memberOf, room.Members[0])
	delete(rr.memberOf, room.Members[1])
	return room, true
}

// Len returns the number of active rooms.
func (rr *RoomRegistry) Len() int {
	return len(rr.rooms)
}
