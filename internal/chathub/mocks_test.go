package chathub_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatmitra/backend/internal/chathub"
	"chatmitra/backend/internal/models"
	"chatmitra/backend/internal/session"
	"chatmitra/backend/internal/storage"
)

// mockClient is a test double for the chathub.Client interface. Its send
// channel is buffered so the hub never blocks on it in tests.
type mockClient struct {
	anonID    string
	send      chan models.Envelope
	closeOnce sync.Once
}

func newMockClient(id string) *mockClient {
	return &mockClient{
		anonID: id,
		send:   make(chan models.Envelope, 64),
	}
}

func (c *mockClient) GetAnonID() string                      { return c.anonID }
func (c *mockClient) GetSendChannel() chan<- models.Envelope { return c.send }
func (c *mockClient) Run()                                   {}
func (c *mockClient) Close()                                 { c.closeOnce.Do(func() { close(c.send) }) }

// expectEvent reads from the client until an event of the wanted type
// arrives, skipping unrelated traffic such as user_count broadcasts.
func expectEvent(t *testing.T, c *mockClient, eventType string) models.Envelope {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case env, ok := <-c.send:
			if !ok {
				t.Fatalf("client %s closed while waiting for %q", c.anonID, eventType)
			}
			if env.Type == eventType {
				return env
			}
		case <-deadline:
			t.Fatalf("client %s did not receive %q in time", c.anonID, eventType)
		}
	}
}

// expectNoEvent asserts that no event of the given type arrives within the
// window.
func expectNoEvent(t *testing.T, c *mockClient, eventType string, window time.Duration) {
	t.Helper()
	deadline := time.After(window)
	for {
		select {
		case env, ok := <-c.send:
			if !ok {
				return
			}
			if env.Type == eventType {
				t.Fatalf("client %s unexpectedly received %q", c.anonID, eventType)
			}
		case <-deadline:
			return
		}
	}
}

func decodePayload[T any](t *testing.T, env models.Envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Payload, &out))
	return out
}

// MockArchive is a testify mock of the storage.Archive interface.
type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) SaveRoom(record *models.RoomRecord) error {
	args := m.Called(record)
	return args.Error(0)
}

func (m *MockArchive) CloseRoom(roomID, reason string) error {
	args := m.Called(roomID, reason)
	return args.Error(0)
}

func (m *MockArchive) ActiveRoomIDs() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type hubFixture struct {
	hub      *chathub.Hub
	sessions *session.MemoryStore
}

// newTestHub starts a hub with test-friendly defaults: an effectively
// disabled fallback timer and a tiny throttle window. Tests that exercise
// those behaviors pass their own values.
func newTestHub(t *testing.T, opts chathub.Options, archive storage.Archive) hubFixture {
	t.Helper()
	if opts.FallbackDelay == 0 {
		opts.FallbackDelay = time.Hour
	}
	if opts.ThrottleInterval == 0 {
		opts.ThrottleInterval = time.Millisecond
	}

	sessions := session.NewMemoryStore(time.Hour)
	hub := chathub.NewHub(sessions, archive, opts)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	return hubFixture{hub: hub, sessions: sessions}
}

// connect registers a new mock client with the hub.
func connect(f hubFixture, id string) *mockClient {
	c := newMockClient(id)
	f.hub.RegisterCh <- c
	return c
}

func sendEvent(f hubFixture, c *mockClient, eventType string, payload any) {
	f.hub.EventCh <- chathub.InboundEvent{
		AnonID:   c.anonID,
		Envelope: models.NewEnvelope(eventType, payload),
	}
}

// join issues a join_waitlist request for the client.
func join(f hubFixture, c *mockClient, name string, interests []string, sessionID string) {
	sendEvent(f, c, models.EventJoinWaitlist, models.JoinPayload{
		Interests: interests,
		Profile:   models.Profile{DisplayName: name},
		SessionID: sessionID,
	})
}
