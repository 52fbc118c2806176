package chathub_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"chatmitra/backend/internal/chathub"
	"chatmitra/backend/internal/models"
	"chatmitra/backend/internal/storage"
)

func TestInterestMatchImmediate(t *testing.T) {
	f := newTestHub(t, chathub.Options{}, storage.Noop{})

	x := connect(f, "x")
	y := connect(f, "y")

	join(f, x, "X", []string{"Food", "Art"}, "")
	expectEvent(t, x, models.EventWaiting)

	join(f, y, "Y", []string{"Art"}, "")

	mx := decodePayload[models.MatchFoundPayload](t, expectEvent(t, x, models.EventMatchFound))
	my := decodePayload[models.MatchFoundPayload](t, expectEvent(t, y, models.EventMatchFound))

	assert.Equal(t, []string{"Art"}, mx.SharedInterests)
	assert.Equal(t, []string{"Art"}, my.SharedInterests)
	assert.Equal(t, "Y", mx.Partner.DisplayName)
	assert.Equal(t, "X", my.Partner.DisplayName)
	assert.Equal(t, mx.RoomID, my.RoomID)

	stats := f.hub.Snapshot()
	assert.Equal(t, 0, stats.Waiting)
	assert.Equal(t, 1, stats.ActiveRooms)
}

func TestPairingSymmetry(t *testing.T) {
	f := newTestHub(t, chathub.Options{}, storage.Noop{})

	x := connect(f, "x")
	y := connect(f, "y")

	join(f, x, "X", []string{"Food", "Art", "Music"}, "")
	expectEvent(t, x, models.EventWaiting)
	join(f, y, "Y", []string{"Music", "Art"}, "")

	mx := decodePayload[models.MatchFoundPayload](t, expectEvent(t, x, models.EventMatchFound))
	my := decodePayload[models.MatchFoundPayload](t, expectEvent(t, y, models.EventMatchFound))

	// Shared interests follow the joiner's insertion order and are
	// identical on both sides.
	assert.Equal(t, []string{"Music", "Art"}, my.SharedInterests)
	assert.Equal(t, mx.SharedInterests, my.SharedInterests)
}

func TestMatchUsesDefaultProfile(t *testing.T) {
	f := newTestHub(t, chathub.Options{}, storage.Noop{})

	x := connect(f, "x")
	y := connect(f, "y")

	join(f, x, "", []string{"Art"}, "")
	expectEvent(t, x, models.EventWaiting)
	join(f, y, "Y", []string{"Art"}, "")

	my := decodePayload[models.MatchFoundPayload](t, expectEvent(t, y, models.EventMatchFound))
	assert.Equal(t, "Anonymous", my.Partner.DisplayName)
	assert.Equal(t, "Unknown", my.Partner.Gender)
}

func TestFirstInterestMatchWinsOverBestOverlap(t *testing.T) {
	f := newTestHub(t, chathub.Options{}, storage.Noop{})

	w1 := connect(f, "w1")
	w2 := connect(f, "w2")
	j := connect(f, "j")

	join(f, w1, "W1", []string{"go"}, "")
	expectEvent(t, w1, models.EventWaiting)
	join(f, w2, "W2", []string{"go", "jazz", "chess"}, "")
	expectEvent(t, w2, models.EventWaiting)

	join(f, j, "J", []string{"go", "jazz", "chess"}, "")

	mj := decodePayload[models.MatchFoundPayload](t, expectEvent(t, j, models.EventMatchFound))
	assert.Equal(t, "W1", mj.Partner.DisplayName)
	expectNoEvent(t, w2, models.EventMatchFound, 100*time.Millisecond)
}

func TestFallbackPairsOldestWaiterFirst(t *testing.T) {
	f := newTestHub(t, chathub.Options{FallbackDelay: 60 * time.Millisecond}, storage.Noop{})

	a := connect(f, "a")
	b := connect(f, "b")
	c := connect(f, "c")

	// Pairwise disjoint interests, joined in order a, b, c.
	join(f, a, "A", []string{"one"}, "")
	expectEvent(t, a, models.EventWaiting)
	join(f, b, "B", []string{"two"}, "")
	expectEvent(t, b, models.EventWaiting)
	join(f, c, "C", []string{"three"}, "")
	expectEvent(t, c, models.EventWaiting)

	// A's fallback fires first and must pick B, the oldest other waiter.
	ma := decodePayload[models.MatchFoundPayload](t, expectEvent(t, a, models.EventMatchFound))
	assert.Equal(t, "B", ma.Partner.DisplayName)
	assert.Empty(t, ma.SharedInterests)

	// C has no one left and stays queued.
	expectNoEvent(t, c, models.EventMatchFound, 150*time.Millisecond)
	assert.Equal(t, 1, f.hub.Snapshot().Waiting)
}

func TestFallbackAloneStaysQueued(t *testing.T) {
	f := newTestHub(t, chathub.Options{FallbackDelay: 30 * time.Millisecond}, storage.Noop{})

	a := connect(f, "a")
	join(f, a, "A", []string{"one"}, "")
	expectEvent(t, a, models.EventWaiting)

	expectNoEvent(t, a, models.EventMatchFound, 120*time.Millisecond)
	assert.Equal(t, 1, f.hub.Snapshot().Waiting)
}

func TestNoDoublePairing(t *testing.T) {
	f := newTestHub(t, chathub.Options{FallbackDelay: 50 * time.Millisecond}, storage.Noop{})

	const n = 6
	clients := make([]*mockClient, n)
	for i := range clients {
		id := fmt.Sprintf("p%d", i)
		clients[i] = connect(f, id)
		// Pairwise disjoint interests force every pairing through fallback.
		join(f, clients[i], id, []string{fmt.Sprintf("interest-%d", i)}, "")
	}

	// Every participant ends up in exactly one room, and rooms pair off
	// exactly two participants each.
	roomMembers := make(map[string][]string)
	for i, c := range clients {
		m := decodePayload[models.MatchFoundPayload](t, expectEvent(t, c, models.EventMatchFound))
		roomMembers[m.RoomID] = append(roomMembers[m.RoomID], fmt.Sprintf("p%d", i))
	}

	assert.Len(t, roomMembers, n/2)
	for roomID, members := range roomMembers {
		assert.Len(t, members, 2, "room %s", roomID)
		assert.NotEqual(t, members[0], members[1], "room %s", roomID)
	}

	stats := f.hub.Snapshot()
	assert.Equal(t, n/2, stats.ActiveRooms)
	assert.Equal(t, 0, stats.Waiting)

	// Nobody receives a second match.
	for _, c := range clients {
		expectNoEvent(t, c, models.EventMatchFound, 100*time.Millisecond)
	}
}

func TestRejoinWhilePairedEndsRoom(t *testing.T) {
	f := newTestHub(t, chathub.Options{}, storage.Noop{})

	a := connect(f, "a")
	b := connect(f, "b")

	join(f, a, "A", []string{"go"}, "")
	expectEvent(t, a, models.EventWaiting)
	join(f, b, "B", []string{"go"}, "")
	expectEvent(t, a, models.EventMatchFound)
	expectEvent(t, b, models.EventMatchFound)

	// A joins again without leaving first: the stale room is torn down and
	// both sides see chat_ended before A re-enters the waitlist.
	join(f, a, "A", []string{"go"}, "")
	expectEvent(t, b, models.EventChatEnded)
	expectEvent(t, a, models.EventWaiting)

	stats := f.hub.Snapshot()
	assert.Equal(t, 0, stats.ActiveRooms)
	assert.Equal(t, 1, stats.Waiting)
}

func TestPairingIsArchived(t *testing.T) {
	archive := new(MockArchive)
	archive.On("SaveRoom", mock.AnythingOfType("*models.RoomRecord")).Return(nil)
	archive.On("CloseRoom", mock.AnythingOfType("string"), "ended").Return(nil)

	f := newTestHub(t, chathub.Options{}, archive)

	a := connect(f, "a")
	b := connect(f, "b")

	join(f, a, "A", []string{"go"}, "")
	expectEvent(t, a, models.EventWaiting)
	join(f, b, "B", []string{"go"}, "")
	m := decodePayload[models.MatchFoundPayload](t, expectEvent(t, a, models.EventMatchFound))
	expectEvent(t, b, models.EventMatchFound)

	sendEvent(f, a, models.EventLeaveChat, models.RoomPayload{RoomID: m.RoomID})
	expectEvent(t, b, models.EventChatEnded)

	// Archive writes are asynchronous.
	time.Sleep(100 * time.Millisecond)

	archive.AssertCalled(t, "SaveRoom", mock.AnythingOfType("*models.RoomRecord"))
	archive.AssertCalled(t, "CloseRoom", m.RoomID, "ended")
}
