/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func effectiveOrder(t *testing.T, core *Core, token string) []string {
	t.Helper()

	room, opErr := core.memberRoom(token)
	require.Nil(t, opErr)

	room.mu.Lock()
	defer room.mu.Unlock()

	return room.effectiveOrderLocked()
}

func TestEffectiveOrderDefaultsToJoinOrder(t *testing.T) {
	core, _ := testCore(t)

	_, host, members := seedRoom(t, core, 3)

	assert.Equal(t, append([]string{host}, members...), effectiveOrder(t, core, host))
}

func TestReorderPlayers(t *testing.T) {
	core, rec := testCore(t)

	_, host, members := seedRoom(t, core, 2)
	rec.reset()

	proposed := []string{members[1], host, members[0]}
	require.Nil(t, core.reorderPlayers(host, proposed))

	assert.Equal(t, proposed, effectiveOrder(t, core, host))

	changes := rec.named("playerOrderChanged")
	require.Len(t, changes, 1)
	payload, ok := changes[0].Payload.(orderEvent)
	require.True(t, ok)
	assert.Equal(t, proposed, payload.Order)
}

func TestReorderDropsStaleEntries(t *testing.T) {
	core, _ := testCore(t)

	_, host, members := seedRoom(t, core, 2)

	require.Nil(t, core.reorderPlayers(host, []string{
		members[1], "ghost", members[0], host, members[1],
	}))

	assert.Equal(t, []string{members[1], members[0], host}, effectiveOrder(t, core, host))
}

func TestEffectiveOrderAppendsNewcomers(t *testing.T) {
	core, _ := testCore(t)

	code, host, members := seedRoom(t, core, 2)
	require.Nil(t, core.reorderPlayers(host, []string{members[1], members[0], host}))

	late := seedPlayer(t, core, "dave")
	_, opErr := core.joinRoom(late, code)
	require.Nil(t, opErr)

	assert.Equal(t, []string{members[1], members[0], host, late}, effectiveOrder(t, core, host))
}

func TestEffectiveOrderDropsDeparted(t *testing.T) {
	core, _ := testCore(t)

	_, host, members := seedRoom(t, core, 3)
	require.Nil(t, core.reorderPlayers(host, []string{members[2], members[0], members[1], host}))

	require.Nil(t, core.leaveRoom(members[0]))

	assert.Equal(t, []string{members[2], members[1], host}, effectiveOrder(t, core, host))
}

func TestReorderHostOnly(t *testing.T) {
	core, _ := testCore(t)

	_, _, members := seedRoom(t, core, 2)

	opErr := core.reorderPlayers(members[0], []string{members[1], members[0]})
	require.NotNil(t, opErr)
	assert.Equal(t, ErrForbidden, opErr.Code)
}

func TestSwapPlayers(t *testing.T) {
	core, _ := testCore(t)

	_, host, members := seedRoom(t, core, 2)

	require.Nil(t, core.swapPlayers(host, host, members[1]))

	assert.Equal(t, []string{members[1], members[0], host}, effectiveOrder(t, core, host))
}

func TestSwapUnknownPlayer(t *testing.T) {
	core, _ := testCore(t)

	_, host, members := seedRoom(t, core, 1)

	opErr := core.swapPlayers(host, members[0], "ghost")
	require.NotNil(t, opErr)
	assert.Equal(t, ErrPlayerNotInRoom, opErr.Code)
}
