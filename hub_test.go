/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(b *Broadcaster) *Client {
	c := &Client{
		send: make(chan Event, 16),
	}
	b.register(c)
	return c
}

func drain(c *Client) []Event {
	var out []Event
	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return out
			}
			out = append(out, event)
		default:
			return out
		}
	}
}

func TestPublishReachesSubscribersOnly(t *testing.T) {
	b := newBroadcaster()

	inRoom := testClient(b)
	b.subscribe(inRoom, "ABCD")

	elsewhere := testClient(b)
	b.subscribe(elsewhere, "WXYZ")

	unsubscribed := testClient(b)

	b.Publish("ABCD", "playerJoined", nil)

	events := drain(inRoom)
	require.Len(t, events, 1)
	assert.Equal(t, "playerJoined", events[0].Event)

	assert.Empty(t, drain(elsewhere))
	assert.Empty(t, drain(unsubscribed))
}

func TestSubscribeReplacesPriorRoom(t *testing.T) {
	b := newBroadcaster()

	c := testClient(b)
	b.subscribe(c, "ABCD")
	b.subscribe(c, "wxyz")

	b.Publish("ABCD", "stale", nil)
	assert.Empty(t, drain(c))

	b.Publish("WXYZ", "fresh", nil)
	events := drain(c)
	require.Len(t, events, 1)
	assert.Equal(t, "fresh", events[0].Event, "room codes are normalized on subscribe")
}

func TestPublishToFiltersByIdentity(t *testing.T) {
	b := newBroadcaster()

	alice := testClient(b)
	b.authenticate(alice, "token-alice")
	b.subscribe(alice, "ABCD")

	aliceAgain := testClient(b) // second tab, same identity
	b.authenticate(aliceAgain, "token-alice")
	b.subscribe(aliceAgain, "ABCD")

	bob := testClient(b)
	b.authenticate(bob, "token-bob")
	b.subscribe(bob, "ABCD")

	b.PublishTo("ABCD", "token-alice", "chatMessage", nil)

	assert.Len(t, drain(alice), 1)
	assert.Len(t, drain(aliceAgain), 1)
	assert.Empty(t, drain(bob), "directed delivery never reaches other identities")
}

func TestPublishAll(t *testing.T) {
	b := newBroadcaster()

	subscribed := testClient(b)
	b.subscribe(subscribed, "ABCD")

	idle := testClient(b)

	b.PublishAll("reloadRequired", nil)

	assert.Len(t, drain(subscribed), 1)
	assert.Len(t, drain(idle), 1)
}

func TestSlowClientDropped(t *testing.T) {
	b := newBroadcaster()

	c := testClient(b)
	b.subscribe(c, "ABCD")

	for i := 0; i < cap(c.send); i++ {
		b.Publish("ABCD", "filler", nil)
	}

	// buffer is full; the next publish drops the client instead of blocking
	b.Publish("ABCD", "overflow", nil)

	_, open := <-c.send
	assert.True(t, open) // buffered events still readable
	drain(c)
	_, open = <-c.send
	assert.False(t, open, "send channel is closed once dropped")

	b.Publish("ABCD", "after", nil)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	b := newBroadcaster()

	c := testClient(b)
	b.subscribe(c, "ABCD")

	b.unregister(c)
	b.unregister(c)

	b.Publish("ABCD", "ghost", nil)
}
