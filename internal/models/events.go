package models

import "encoding/json"

// Envelope is the JSON frame exchanged over the WebSocket. Payload stays
// raw until the event type is known.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound event types (client -> server).
const (
	EventJoinWaitlist   = "join_waitlist"
	EventRestoreSession = "restore_session"
	EventSendMessage    = "send_message"
	EventTyping         = "typing"
	EventSkipChat       = "skip_chat"
	EventLeaveChat      = "leave_chat"
)

// Outbound event types (server -> client).
const (
	EventWaiting             = "waiting"
	EventMatchFound          = "match_found"
	EventReceiveMessage      = "receive_message"
	EventUserTyping          = "user_typing"
	EventChatEnded           = "chat_ended"
	EventPartnerDisconnected = "partner_disconnected"
	EventSessionRestored     = "session_restored"
	EventNoSession           = "no_session"
	EventUserCount           = "user_count"
	EventError               = "error"
)

// JoinPayload carries a join_waitlist request. SessionID is optional; when
// present the profile is persisted for later restoration.
type JoinPayload struct {
	Interests []string `json:"interests"`
	Profile   Profile  `json:"profile"`
	SessionID string   `json:"sessionId,omitempty"`
}

// RestorePayload carries a restore_session request.
type RestorePayload struct {
	SessionID string `json:"sessionId"`
}

// MessagePayload carries a send_message request.
type MessagePayload struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

// RoomPayload references a room for typing, skip_chat and leave_chat.
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

// MatchFoundPayload notifies a participant of a successful pairing.
type MatchFoundPayload struct {
	RoomID          string      `json:"roomId"`
	Partner         PartnerInfo `json:"partner"`
	SharedInterests []string    `json:"sharedInterests"`
}

// ReceivePayload delivers a relayed chat message.
type ReceivePayload struct {
	Text string `json:"text"`
}

// UserCountPayload broadcasts the number of live connections.
type UserCountPayload struct {
	Count int `json:"count"`
}

// ErrorPayload reports a recoverable client-visible failure.
type ErrorPayload struct {
	Reason string `json:"reason"`
}

// NewEnvelope marshals payload into an Envelope of the given type. A nil
// payload produces an envelope with no payload field.
func NewEnvelope(eventType string, payload any) Envelope {
	env := Envelope{Type: eventType}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err == nil {
			env.Payload = data
		}
	}
	return env
}
