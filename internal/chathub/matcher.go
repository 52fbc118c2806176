package chathub

import (
	"log"
	"time"

	"github.com/samber/lo"

	"chatmitra/backend/internal/models"
)

// The matcher runs entirely on the hub loop. Every entry point below is
// invoked from Run, which is what makes the scan-then-dequeue pairing
// sequence atomic: no two join requests can ever claim the same partner.

// startSearch tries to pair the participant by shared interests, and
// otherwise enqueues them with a fallback timer.
func (h *Hub) startSearch(p *participant) {
	if match, ok := h.waitlist.FindInterestMatch(p.AnonID, p.Profile.Interests, h.interestsOf); ok {
		h.pair(p.AnonID, match)
		return
	}

	if err := h.waitlist.Enqueue(p.AnonID); err != nil {
		// Cannot happen after the dedup in handleJoin, but an enqueue
		// failure must not leave the participant in a half state.
		log.Printf("chathub: enqueue %s: %v", p.AnonID, err)
		return
	}
	p.State = models.StateWaiting
	p.JoinedAt = time.Now()
	h.send(p, models.NewEnvelope(models.EventWaiting, nil))

	anonID := p.AnonID
	h.schedule(h.opts.FallbackDelay, func() {
		h.fallbackMatch(anonID)
	})
}

// fallbackMatch pairs a still-waiting participant with the oldest other
// waiter. The Waiting-membership check doubles as timer cancellation: a
// participant who was matched, left or disconnected in the meantime makes
// this a silent no-op.
func (h *Hub) fallbackMatch(anonID string) {
	p, ok := h.participants[anonID]
	if !ok || p.State != models.StateWaiting || !h.waitlist.Contains(anonID) {
		return
	}

	if other, ok := h.waitlist.Any(anonID); ok {
		h.pair(anonID, other)
	}
	// Nobody else is waiting: stay queued. The next join will find us.
}

// pair creates a room for the two participants and notifies both. Shared
// interests are the intersection of the two sets in the first participant's
// insertion order; empty for fallback pairs.
func (h *Hub) pair(a, b string) {
	pa, ok := h.participants[a]
	if !ok {
		return
	}
	pb, ok := h.participants[b]
	if !ok {
		return
	}

	shared := lo.Intersect(pa.Profile.Interests, pb.Profile.Interests)
	if shared == nil {
		shared = []string{}
	}

	h.waitlist.Dequeue(a)
	h.waitlist.Dequeue(b)

	room, err := h.rooms.Create(a, b, shared)
	if err != nil {
		log.Printf("chathub: create room for %s and %s: %v", a, b, err)
		return
	}

	pa.State = models.StatePaired
	pb.State = models.StatePaired
	pa.roomID = room.ID
	pb.roomID = room.ID

	// Each side learns the other's public profile and the shared interests,
	// never the partner's full interest set.
	h.send(pa, models.NewEnvelope(models.EventMatchFound, models.MatchFoundPayload{
		RoomID:          room.ID,
		Partner:         models.PartnerInfo{DisplayName: pb.Profile.DisplayName, Gender: pb.Profile.Gender},
		SharedInterests: shared,
	}))
	h.send(pb, models.NewEnvelope(models.EventMatchFound, models.MatchFoundPayload{
		RoomID:          room.ID,
		Partner:         models.PartnerInfo{DisplayName: pa.Profile.DisplayName, Gender: pa.Profile.Gender},
		SharedInterests: shared,
	}))

	record := &models.RoomRecord{
		RoomID:          room.ID,
		User1ID:         a,
		User2ID:         b,
		SharedInterests: shared,
		IsActive:        true,
		StartedAt:       room.CreatedAt,
	}
	go func() {
		if err := h.archive.SaveRoom(record); err != nil {
			log.Printf("chathub: archive room %s: %v", room.ID, err)
		}
	}()

	log.Printf("chathub: match %s <-> %s (shared: %v)", a, b, shared)
}

// interestsOf resolves a queued participant's interests for the waitlist
// scan.
func (h *Hub) interestsOf(anonID string) []string {
	if p, ok := h.participants[anonID]; ok {
		return p.Profile.Interests
	}
	return nil
}
