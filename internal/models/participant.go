package models

import "time"

// State describes where a participant currently is in the matching
// lifecycle. A connected participant is always in exactly one state.
type State int

const (
	// StateIdle means connected with a known profile, neither queued nor chatting.
	StateIdle State = iota
	// StateWaiting means the participant sits in the waitlist.
	StateWaiting
	// StatePaired means the participant is a member of an active room.
	StatePaired
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StatePaired:
		return "paired"
	}
	return "unknown"
}

// Profile is the self-asserted identity a participant submits when joining
// the waitlist. There is no verification of any field.
type Profile struct {
	DisplayName string   `json:"displayName"`
	Gender      string   `json:"gender"`
	Interests   []string `json:"interests"`
}

// Normalize fills in defaults for missing profile fields so downstream code
// never has to deal with empty names.
func (p *Profile) Normalize() {
	if p.DisplayName == "" {
		p.DisplayName = "Anonymous"
	}
	if p.Gender == "" {
		p.Gender = "Unknown"
	}
}

// PartnerInfo is the public slice of a profile shared with a matched
// partner. The raw interest set is deliberately absent; only the computed
// shared interests are ever revealed.
type PartnerInfo struct {
	DisplayName string `json:"displayName"`
	Gender      string `json:"gender"`
}

// Participant is a connected user as tracked by the hub.
type Participant struct {
	AnonID        string
	SessionID     string
	Profile       Profile
	State         State
	JoinedAt      time.Time
	LastMessageAt time.Time
}
