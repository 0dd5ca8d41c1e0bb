/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoom(t *testing.T) {
	core, _ := testCore(t)

	host := seedPlayer(t, core, "alice")

	room, opErr := core.createRoom(host)
	require.Nil(t, opErr)

	assert.Len(t, room.Code, roomCodeLength)
	for _, r := range room.Code {
		assert.Contains(t, roomCodeAlphabet, string(r))
	}
	assert.Equal(t, host, room.HostToken)
	assert.Equal(t, []string{host}, room.Members)
	assert.Equal(t, core.catalog.defaultID, room.RoleSetID)
	assert.False(t, room.Assigned)
}

func TestCreateRoomUnknownToken(t *testing.T) {
	core, _ := testCore(t)

	_, opErr := core.createRoom("nope")
	require.NotNil(t, opErr)
	assert.Equal(t, ErrInvalidSession, opErr.Code)
}

func TestCreateRoomLeavesPrevious(t *testing.T) {
	core, _ := testCore(t)

	host := seedPlayer(t, core, "alice")
	first, opErr := core.createRoom(host)
	require.Nil(t, opErr)

	second, opErr := core.createRoom(host)
	require.Nil(t, opErr)
	require.NotEqual(t, first.Code, second.Code)

	// sole member left, so the first room is gone
	_, opErr = core.joinRoom(seedPlayer(t, core, "bob"), first.Code)
	require.NotNil(t, opErr)
	assert.Equal(t, ErrRoomNotFound, opErr.Code)
}

func TestJoinRoom(t *testing.T) {
	core, rec := testCore(t)

	code, host, members := seedRoom(t, core, 2)

	room, opErr := core.memberRoom(host)
	require.Nil(t, opErr)
	assert.Equal(t, append([]string{host}, members...), room.Members)

	joins := rec.named("playerJoined")
	require.Len(t, joins, 2)
	assert.Equal(t, code, joins[0].Room)
}

func TestJoinRoomNormalizesCode(t *testing.T) {
	core, _ := testCore(t)

	code, _, _ := seedRoom(t, core, 0)

	token := seedPlayer(t, core, "bob")
	room, opErr := core.joinRoom(token, " "+strings.ToLower(code)+" ")
	require.Nil(t, opErr)
	assert.Equal(t, code, room.Code)
}

func TestJoinRoomIdempotent(t *testing.T) {
	core, rec := testCore(t)

	code, _, members := seedRoom(t, core, 1)
	rec.reset()

	room, opErr := core.joinRoom(members[0], code)
	require.Nil(t, opErr)
	assert.Len(t, room.Members, 2)
	assert.Empty(t, rec.named("playerJoined"))
}

func TestJoinUnknownRoom(t *testing.T) {
	core, _ := testCore(t)

	token := seedPlayer(t, core, "bob")
	_, opErr := core.joinRoom(token, "ZZZZ")
	require.NotNil(t, opErr)
	assert.Equal(t, ErrRoomNotFound, opErr.Code)
}

func TestLeaveRoomTransfersHost(t *testing.T) {
	core, rec := testCore(t)

	code, host, members := seedRoom(t, core, 2)
	rec.reset()

	require.Nil(t, core.leaveRoom(host))

	room, opErr := core.memberRoom(members[0])
	require.Nil(t, opErr)
	assert.Equal(t, members[0], room.HostToken, "earliest remaining member becomes host")

	changes := rec.named("hostChanged")
	require.Len(t, changes, 1)
	assert.Equal(t, code, changes[0].Room)
	view, ok := changes[0].Payload.(PlayerView)
	require.True(t, ok)
	assert.Equal(t, members[0], view.ID)

	require.Len(t, rec.named("playerLeft"), 1)
}

func TestLeaveRoomLastMemberDeletesRoom(t *testing.T) {
	core, _ := testCore(t)

	code, host, _ := seedRoom(t, core, 0)

	require.Nil(t, core.leaveRoom(host))

	token := seedPlayer(t, core, "bob")
	_, opErr := core.joinRoom(token, code)
	require.NotNil(t, opErr)
	assert.Equal(t, ErrRoomNotFound, opErr.Code)
}

func TestLeaveRoomClearsAssignment(t *testing.T) {
	core, _ := testCore(t)

	_, host, members := seedRoom(t, core, 2)
	selectRoles(t, core, host, 2)
	require.Nil(t, core.assignRoles(host))

	role, opErr := core.myRole(members[0])
	require.Nil(t, opErr)
	require.NotNil(t, role)

	require.Nil(t, core.leaveRoom(members[0]))
	_, opErr = core.joinRoom(members[0], mustRoomCode(t, core, host))
	require.Nil(t, opErr)

	role, opErr = core.myRole(members[0])
	require.Nil(t, opErr)
	assert.Nil(t, role, "rejoining does not restore a cleared role")
}

func mustRoomCode(t *testing.T, core *Core, token string) string {
	t.Helper()

	room, opErr := core.memberRoom(token)
	require.Nil(t, opErr)
	return room.Code
}

func TestSetRoleSet(t *testing.T) {
	core, rec := testCore(t)

	_, host, _ := seedRoom(t, core, 1)
	selectRoles(t, core, host, 1)
	rec.reset()

	require.Nil(t, core.setRoleSet(host, "midnight"))

	room, opErr := core.memberRoom(host)
	require.Nil(t, opErr)
	assert.Equal(t, "midnight", room.RoleSetID)
	assert.Empty(t, room.Selected, "switching sets clears the selection")

	require.Len(t, rec.named("roleSetChanged"), 1)
	selections := rec.named("selectedRolesChanged")
	require.Len(t, selections, 1)
	payload, ok := selections[0].Payload.(selectionEvent)
	require.True(t, ok)
	assert.Empty(t, payload.Roles)
}

func TestSetRoleSetErrors(t *testing.T) {
	core, _ := testCore(t)

	_, host, members := seedRoom(t, core, 1)

	opErr := core.setRoleSet(members[0], "classic")
	require.NotNil(t, opErr)
	assert.Equal(t, ErrForbidden, opErr.Code)

	opErr = core.setRoleSet(host, "nonsense")
	require.NotNil(t, opErr)
	assert.Equal(t, ErrInvalidRoleSet, opErr.Code)
}

func TestSetSelectedRolesFiltersForgedEntries(t *testing.T) {
	core, _ := testCore(t)

	_, host, _ := seedRoom(t, core, 1)

	set, ok := core.catalog.set("classic")
	require.True(t, ok)

	genuine := set.Roles[0]
	forged := RoleDef{Name: "Emperor", Description: "made up", Category: CategoryDemon}
	staleCategory := RoleDef{Name: genuine.Name, Category: CategoryDemon}

	require.Nil(t, core.setSelectedRoles(host, []RoleDef{genuine, forged, staleCategory}))

	room, opErr := core.memberRoom(host)
	require.Nil(t, opErr)
	require.Len(t, room.Selected, 1)
	assert.Equal(t, genuine, room.Selected[0])
}

func TestRoomViewSeatingOrderAndOverlays(t *testing.T) {
	core, _ := testCore(t)

	_, host, members := seedRoom(t, core, 2)
	require.Nil(t, core.setDead(host, members[1], true))

	room, opErr := core.memberRoom(host)
	require.Nil(t, opErr)

	view := core.roomView(room)
	require.Len(t, view.Players, 3)
	assert.Equal(t, host, view.Players[0].ID)
	assert.True(t, view.Players[0].IsHost)
	assert.Equal(t, []string{members[1]}, view.Dead)
	assert.Empty(t, view.Drunk)
}

func TestRoomCodesUnique(t *testing.T) {
	core, _ := testCore(t)

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		token := seedPlayer(t, core, "host")
		room, opErr := core.createRoom(token)
		require.Nil(t, opErr)

		_, dup := seen[room.Code]
		require.False(t, dup, "room code %s issued twice", room.Code)
		seen[room.Code] = struct{}{}
	}
}
