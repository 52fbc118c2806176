package chathub

import (
	"time"

	"github.com/samber/lo"
)

type waitEntry struct {
	anonID   string
	joinedAt time.Time
}

// Waitlist is the ordered set of participants seeking a match, oldest first.
// It is not safe for concurrent use; the hub's run loop is its only caller.
type Waitlist struct {
	entries []waitEntry
	present map[string]struct{}
}

// NewWaitlist creates an empty Waitlist.
func NewWaitlist() *Waitlist {
	return &Waitlist{present: make(map[string]struct{})}
}

// Enqueue appends the participant with the current timestamp. It fails with
// ErrAlreadyWaiting if the participant is already queued.
func (w *Waitlist) Enqueue(anonID string) error {
	if _, ok := w.present[anonID]; ok {
		return ErrAlreadyWaiting
	}
	w.entries = append(w.entries, waitEntry{anonID: anonID, joinedAt: time.Now()})
	w.present[anonID] = struct{}{}
	return nil
}

// Dequeue removes the participant. Removing an absent participant is a no-op.
func (w *Waitlist) Dequeue(anonID string) {
	if _, ok := w.present[anonID]; !ok {
		return
	}
	delete(w.present, anonID)
	for i, e := range w.entries {
		if e.anonID == anonID {
			w.entries = append(w.entries[:i], w.entries[i+1:]...)
			return
		}
	}
}

// Contains reports whether the participant is queued.
func (w *Waitlist) Contains(anonID string) bool {
	_, ok := w.present[anonID]
	return ok
}

// Len returns the number of queued participants.
func (w *Waitlist) Len() int {
	return len(w.entries)
}

// FindInterestMatch scans the waitlist in insertion order, skipping the
// requester, and returns the first entry whose interests intersect with the
// given set. First-match, not best-overlap: the scan order is the observable
// pairing order. interestsOf resolves a queued participant's interests.
func (w *Waitlist) FindInterestMatch(anonID string, interests []string, interestsOf func(string) []string) (string, bool) {
	for _, e := range w.entries {
		if e.anonID == anonID {
			continue
		}
		if len(lo.Intersect(interests, interestsOf(e.anonID))) > 0 {
			return e.anonID, true
		}
	}
	return "", false
}

// Any returns the oldest waiting participant other than the excluded one.
// Used for fallback pairing after the interest-match window expires.
func (w *Waitlist) Any(excluding string) (string, bool) {
	for _, e := range w.entries {
		if e.anonID != excluding {
			return e.anonID, true
		}
	}
	return "", false
}
