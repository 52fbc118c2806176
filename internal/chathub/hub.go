// Package chathub implements the matchmaking and session-lifecycle core:
// the waitlist, the pairing algorithm, the active-room registry and the
// per-room message relay. All matching state is owned by a single run-loop
// goroutine; everything outside the package talks to it through channels.
package chathub

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"chatmitra/backend/internal/models"
	"chatmitra/backend/internal/session"
	"chatmitra/backend/internal/storage"
)

const (
	endReasonEnded        = "ended"
	endReasonDisconnected = "partner_disconnected"
)

// Options carries the matching knobs. Zero values fall back to the defaults
// used in production.
type Options struct {
	// FallbackDelay is how long a participant waits for an interest match
	// before being paired with anyone available.
	FallbackDelay time.Duration
	// ThrottleInterval is the minimum spacing between accepted chat
	// messages from one sender.
	ThrottleInterval time.Duration
}

func (o *Options) applyDefaults() {
	if o.FallbackDelay <= 0 {
		o.FallbackDelay = 5 * time.Second
	}
	if o.ThrottleInterval <= 0 {
		o.ThrottleInterval = 400 * time.Millisecond
	}
}

// participant is a connected user as tracked by the hub. Only the run loop
// touches these fields.
type participant struct {
	models.Participant
	client Client
	roomID string
}

// InboundEvent is one decoded frame from a client, tagged with the
// connection it arrived on.
type InboundEvent struct {
	AnonID   string
	Envelope models.Envelope
}

// Stats is a point-in-time snapshot of hub state, served on /stats.
type Stats struct {
	Connected   int `json:"connected"`
	Waiting     int `json:"waiting"`
	ActiveRooms int `json:"activeRooms"`
}

// Hub is the lifecycle controller. Its Run loop is the single serialization
// point for the participant registry, the waitlist and the room registry:
// the pairing algorithm does read-then-write sequences that are only safe
// because no other goroutine ever mutates this state.
type Hub struct {
	opts     Options
	sessions session.Store
	archive  storage.Archive

	participants map[string]*participant
	waitlist     *Waitlist
	rooms        *RoomRegistry

	// RegisterCh and UnregisterCh carry connection lifecycle signals from
	// the transport layer; EventCh carries decoded client frames.
	RegisterCh   chan Client
	UnregisterCh chan Client
	EventCh      chan InboundEvent

	// taskCh re-enters the run loop for deferred work: fallback timers and
	// stats snapshots.
	taskCh chan func()
	done   chan struct{}
}

// NewHub creates a Hub. Call Run to start processing.
func NewHub(sessions session.Store, archive storage.Archive, opts Options) *Hub {
	opts.applyDefaults()
	if archive == nil {
		archive = storage.Noop{}
	}
	return &Hub{
		opts:         opts,
		sessions:     sessions,
		archive:      archive,
		participants: make(map[string]*participant),
		waitlist:     NewWaitlist(),
		rooms:        NewRoomRegistry(),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		EventCh:      make(chan InboundEvent),
		taskCh:       make(chan func(), 64),
		done:         make(chan struct{}),
	}
}

// Run processes events until ctx is cancelled. All state mutation happens
// on this goroutine.
func (h *Hub) Run(ctx context.Context) {
	log.Println("chathub: hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			log.Println("chathub: hub stopped")
			return
		case client := <-h.RegisterCh:
			h.register(client)
		case client := <-h.UnregisterCh:
			h.unregister(client)
		case ev := <-h.EventCh:
			h.dispatch(ev)
		case task := <-h.taskCh:
			task()
		}
	}
}

// schedule runs fn on the hub loop after the delay. The callback posts into
// taskCh rather than touching state directly, so a timer firing late still
// executes under the same serialization point as everything else.
func (h *Hub) schedule(delay time.Duration, fn func()) {
	time.AfterFunc(delay, func() {
		select {
		case h.taskCh <- fn:
		case <-h.done:
		}
	})
}

// Snapshot returns current counts. Safe to call from any goroutine.
func (h *Hub) Snapshot() Stats {
	reply := make(chan Stats, 1)
	select {
	case h.taskCh <- func() {
		reply <- Stats{
			Connected:   len(h.participants),
			Waiting:     h.waitlist.Len(),
			ActiveRooms: h.rooms.Len(),
		}
	}:
		return <-reply
	case <-h.done:
		return Stats{}
	}
}

func (h *Hub) register(client Client) {
	anonID := client.GetAnonID()
	if prev, ok := h.participants[anonID]; ok {
		// A second connection with the same token replaces the first.
		h.cleanupParticipant(prev)
		prev.client.Close()
	}

	p := &participant{client: client}
	p.AnonID = anonID
	p.Profile.Normalize()
	h.participants[anonID] = p
	log.Printf("chathub: connect %s", anonID)
	h.broadcastUserCount()
}

func (h *Hub) unregister(client Client) {
	anonID := client.GetAnonID()
	p, ok := h.participants[anonID]
	if !ok || p.client != client {
		// Stale unregister from a connection already replaced.
		return
	}

	h.cleanupParticipant(p)
	delete(h.participants, anonID)
	p.client.Close()
	log.Printf("chathub: disconnect %s", anonID)
	h.broadcastUserCount()
}

// cleanupParticipant removes the participant from the waitlist and tears
// down their room, notifying the partner. The pending fallback timer, if
// any, dies on its membership guard.
func (h *Hub) cleanupParticipant(p *participant) {
	h.waitlist.Dequeue(p.AnonID)
	if roomID, ok := h.rooms.RoomOf(p.AnonID); ok {
		h.destroyRoom(roomID, endReasonDisconnected, p.AnonID)
	}
	p.State = models.StateIdle
}

func (h *Hub) dispatch(ev InboundEvent) {
	p, ok := h.participants[ev.AnonID]
	if !ok {
		return
	}

	switch ev.Envelope.Type {
	case models.EventJoinWaitlist:
		var payload models.JoinPayload
		if err := json.Unmarshal(ev.Envelope.Payload, &payload); err != nil {
			log.Printf("chathub: bad join payload from %s: %v", p.AnonID, err)
			h.send(p, models.NewEnvelope(models.EventError, models.ErrorPayload{Reason: "join_failed"}))
			return
		}
		h.handleJoin(p, payload)
	case models.EventRestoreSession:
		var payload models.RestorePayload
		if err := json.Unmarshal(ev.Envelope.Payload, &payload); err != nil || payload.SessionID == "" {
			h.send(p, models.NewEnvelope(models.EventNoSession, nil))
			return
		}
		h.handleRestore(p, payload.SessionID)
	case models.EventSendMessage:
		var payload models.MessagePayload
		if err := json.Unmarshal(ev.Envelope.Payload, &payload); err != nil {
			return
		}
		// Relay failures are deliberate silent drops.
		_ = h.relayMessage(p, payload.RoomID, payload.Text)
	case models.EventTyping:
		var payload models.RoomPayload
		if err := json.Unmarshal(ev.Envelope.Payload, &payload); err != nil {
			return
		}
		_ = h.relayTyping(p, payload.RoomID)
	case models.EventSkipChat:
		var payload models.RoomPayload
		if err := json.Unmarshal(ev.Envelope.Payload, &payload); err != nil {
			return
		}
		h.handleSkip(p, payload.RoomID)
	case models.EventLeaveChat:
		var payload models.RoomPayload
		if err := json.Unmarshal(ev.Envelope.Payload, &payload); err != nil {
			return
		}
		h.handleLeave(p, payload.RoomID)
	default:
		log.Printf("chathub: unknown event %q from %s", ev.Envelope.Type, p.AnonID)
	}
}

// handleJoin applies a join_waitlist request: adopt the submitted profile,
// persist the session if asked, clear any prior waitlist or room presence,
// then run the matcher.
func (h *Hub) handleJoin(p *participant, payload models.JoinPayload) {
	payload.Profile.Normalize()
	p.Profile = models.Profile{
		DisplayName: payload.Profile.DisplayName,
		Gender:      payload.Profile.Gender,
		Interests:   payload.Interests,
	}

	if payload.SessionID != "" {
		p.SessionID = payload.SessionID
		if err := h.sessions.Save(context.Background(), payload.SessionID, p.Profile); err != nil {
			log.Printf("chathub: save session %s: %v", payload.SessionID, err)
		}
	}

	// Defensive dedup: a re-join clears whatever state the participant was
	// in. The peer of an abandoned room sees a normal chat_ended.
	h.waitlist.Dequeue(p.AnonID)
	if roomID, ok := h.rooms.RoomOf(p.AnonID); ok {
		h.destroyRoom(roomID, endReasonEnded, "")
	}

	h.startSearch(p)
}

func (h *Hub) handleRestore(p *participant, sessionID string) {
	profile, err := h.sessions.Load(context.Background(), sessionID)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			log.Printf("chathub: load session %s: %v", sessionID, err)
		}
		h.send(p, models.NewEnvelope(models.EventNoSession, nil))
		return
	}

	p.SessionID = sessionID
	p.Profile = profile
	p.Profile.Normalize()
	h.send(p, models.NewEnvelope(models.EventSessionRestored, p.Profile))
	log.Printf("chathub: restored session for %s", p.AnonID)
}

// handleSkip ends the current room and immediately puts the requester back
// into the matcher. The departing peer stays idle until they rejoin.
func (h *Hub) handleSkip(p *participant, roomID string) {
	if current, ok := h.rooms.RoomOf(p.AnonID); !ok || current != roomID {
		return
	}
	h.destroyRoom(roomID, endReasonEnded, "")
	h.startSearch(p)
}

func (h *Hub) handleLeave(p *participant, roomID string) {
	if current, ok := h.rooms.RoomOf(p.AnonID); !ok || current != roomID {
		return
	}
	h.destroyRoom(roomID, endReasonEnded, "")
}

// destroyRoom deletes the room and notifies its members. Members other than
// skipNotify receive chat_ended for an explicit end, partner_disconnected
// when the peer vanished. skipNotify names a participant whose connection is
// already gone; pass "" to notify both members.
func (h *Hub) destroyRoom(roomID, reason, skipNotify string) {
	room, ok := h.rooms.Destroy(roomID)
	if !ok {
		return
	}

	event := models.EventChatEnded
	if reason == endReasonDisconnected {
		event = models.EventPartnerDisconnected
	}

	for _, member := range room.Members {
		mp, ok := h.participants[member]
		if !ok {
			continue
		}
		mp.roomID = ""
		if mp.State == models.StatePaired {
			mp.State = models.StateIdle
		}
		if member != skipNotify {
			h.send(mp, models.NewEnvelope(event, nil))
		}
	}

	go func() {
		if err := h.archive.CloseRoom(roomID, reason); err != nil {
			log.Printf("chathub: archive close room %s: %v", roomID, err)
		}
	}()
}

// send delivers an event to one participant without blocking the run loop.
// A client whose send buffer is full misses the event; the write pump and
// ping cycle will tear the connection down if it is truly stuck.
func (h *Hub) send(p *participant, env models.Envelope) {
	select {
	case p.client.GetSendChannel() <- env:
	default:
		log.Printf("chathub: dropping %s event for slow client %s", env.Type, p.AnonID)
	}
}

func (h *Hub) broadcastUserCount() {
	env := models.NewEnvelope(models.EventUserCount, models.UserCountPayload{Count: len(h.participants)})
	for _, p := range h.participants {
		h.send(p, env)
	}
}
