package chathub

import (
	"time"

	"chatmitra/backend/internal/models"
)

// The relay forwards chat traffic between the two members of a room. Its
// errors classify why a frame was dropped; the dispatcher discards them, so
// an unknown room, a sender outside the room, or a throttled sender produce
// no client-visible reaction. That keeps malformed and adversarial input
// inert.

// relayMessage forwards text to the sender's peer, subject to throttling.
// The message is never echoed back to the sender.
func (h *Hub) relayMessage(p *participant, roomID, text string) error {
	if text == "" {
		return nil
	}
	room, ok := h.rooms.Lookup(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	otherID, ok := room.Other(p.AnonID)
	if !ok {
		return ErrNotInRoom
	}
	if !h.acceptMessage(p) {
		return ErrThrottled
	}
	if other, ok := h.participants[otherID]; ok {
		h.send(other, models.NewEnvelope(models.EventReceiveMessage, models.ReceivePayload{Text: text}))
	}
	return nil
}

// relayTyping forwards a typing indicator to the peer. Not throttled: the
// indicator is advisory and the receiving side expires it on its own.
func (h *Hub) relayTyping(p *participant, roomID string) error {
	room, ok := h.rooms.Lookup(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	otherID, ok := room.Other(p.AnonID)
	if !ok {
		return ErrNotInRoom
	}
	if other, ok := h.participants[otherID]; ok {
		h.send(other, models.NewEnvelope(models.EventUserTyping, nil))
	}
	return nil
}

// acceptMessage applies the flood-control rule: a message is accepted only
// if the throttle interval has elapsed since the sender's last accepted
// message. Check and timestamp update run on the hub loop, so they are
// atomic per sender.
func (h *Hub) acceptMessage(p *participant) bool {
	now := time.Now()
	if now.Sub(p.LastMessageAt) < h.opts.ThrottleInterval {
		return false
	}
	p.LastMessageAt = now
	return true
}
