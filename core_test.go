/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	Room    string
	Token   string // set for directed delivery only
	Event   string
	Payload any
}

// eventRecorder captures published events for assertions, standing in for
// the websocket broadcaster.
type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) Publish(roomCode, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, recordedEvent{Room: roomCode, Event: event, Payload: payload})
}

func (r *eventRecorder) PublishTo(roomCode, token, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, recordedEvent{Room: roomCode, Token: token, Event: event, Payload: payload})
}

func (r *eventRecorder) PublishAll(event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, recordedEvent{Event: event, Payload: payload})
}

func (r *eventRecorder) named(event string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []recordedEvent
	for _, e := range r.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (r *eventRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = nil
}

func testConfig() *Config {
	return &Config{
		maxMessageLen: 500,
		sessionLength: time.Hour,
		port:          8080,
	}
}

func testCore(t *testing.T) (*Core, *eventRecorder) {
	t.Helper()

	catalog, err := loadCatalog(defaultRoleSets)
	require.NoError(t, err)

	rec := &eventRecorder{}

	return newCore(testConfig(), catalog, rec), rec
}

// seedPlayer mints an identity with a display name.
func seedPlayer(t *testing.T, c *Core, name string) string {
	t.Helper()

	p := c.getOrCreatePlayer("")
	_, opErr := c.updatePlayer(p.Token, PlayerPatch{Name: &name})
	require.Nil(t, opErr)

	return p.Token
}

// seedRoom creates a room with a host and n additional members, returning
// the room code, host token, and member tokens in join order.
func seedRoom(t *testing.T, c *Core, n int) (string, string, []string) {
	t.Helper()

	host := seedPlayer(t, c, "host")
	room, opErr := c.createRoom(host)
	require.Nil(t, opErr)

	members := make([]string, 0, n)
	for i := 0; i < n; i++ {
		token := seedPlayer(t, c, "player"+string(rune('1'+i)))
		_, opErr := c.joinRoom(token, room.Code)
		require.Nil(t, opErr)
		members = append(members, token)
	}

	return room.Code, host, members
}

// selectRoles pulls count roles from the room's active set and stores them
// as the host's selection.
func selectRoles(t *testing.T, c *Core, host string, count int) []RoleDef {
	t.Helper()

	room, opErr := c.memberRoom(host)
	require.Nil(t, opErr)

	set, ok := c.catalog.set(room.RoleSetID)
	require.True(t, ok)
	require.GreaterOrEqual(t, len(set.Roles), count)

	roles := append([]RoleDef(nil), set.Roles[:count]...)
	require.Nil(t, c.setSelectedRoles(host, roles))

	return roles
}
