/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// I and O are omitted from codes; too easy to misread on a phone
	// across a table.
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	roomCodeLength   = 4
)

// Room is one live session. Everything hanging off a room (membership,
// seating, selection, assignment, overlays, chat) is guarded by its own
// mutex and dies with the room, so nothing can be orphaned.
type Room struct {
	mu sync.Mutex

	Code      string
	HostToken string
	Members   []string // insertion order, not seating order
	CreatedAt time.Time

	RoleSetID string
	Selected  []RoleDef
	Assigned  bool

	assignments map[string]RoleDef
	seating     []string
	dead        map[string]struct{}
	drunk       map[string]struct{}
	messages    []ChatMessage
}

// Core is the single authoritative in-memory state: every player and room in
// the process. No globals; tests get a fresh Core each. The registry mutex
// guards the two maps and all Player fields; each room guards its own
// internals, and the registry lock is always taken first.
type Core struct {
	cfg     *Config
	catalog *RoleCatalog
	notify  Notifier

	mu      sync.RWMutex
	players map[string]*Player
	rooms   map[string]*Room

	msgSeq atomic.Int64
}

func newCore(cfg *Config, catalog *RoleCatalog, notify Notifier) *Core {
	return &Core{
		cfg:     cfg,
		catalog: catalog,
		notify:  notify,
		players: make(map[string]*Player),
		rooms:   make(map[string]*Room),
	}
}

// newRoomCodeLocked samples codes until one misses every live room.
// Caller holds c.mu.
func (c *Core) newRoomCodeLocked() string {
	for {
		buf := make([]byte, roomCodeLength)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}

		out := make([]byte, roomCodeLength)
		for i := range out {
			out[i] = roomCodeAlphabet[int(buf[i])%len(roomCodeAlphabet)]
		}
		code := string(out)

		if _, exists := c.rooms[code]; !exists {
			return code
		}
	}
}

func normalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// createRoom opens a new room hosted by token. A player already in a room
// leaves it first, with the usual leave semantics.
func (c *Core) createRoom(token string) (*Room, *OpError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.players[token]
	if !ok {
		return nil, failf(ErrInvalidSession, "unknown session token")
	}

	if p.RoomCode != "" {
		c.leaveLocked(p)
	}

	room := &Room{
		Code:        c.newRoomCodeLocked(),
		HostToken:   token,
		Members:     []string{token},
		CreatedAt:   time.Now(),
		RoleSetID:   c.catalog.defaultID,
		assignments: make(map[string]RoleDef),
		dead:        make(map[string]struct{}),
		drunk:       make(map[string]struct{}),
	}

	c.rooms[room.Code] = room
	p.RoomCode = room.Code

	return room, nil
}

// joinRoom adds token to the room behind code. Joining a room you are
// already in is a no-op; joining from another room leaves that one first.
func (c *Core) joinRoom(token, code string) (*Room, *OpError) {
	code = normalizeRoomCode(code)

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.players[token]
	if !ok {
		return nil, failf(ErrInvalidSession, "unknown session token")
	}

	room, ok := c.rooms[code]
	if !ok {
		return nil, failf(ErrRoomNotFound, "no room with code %s", code)
	}

	if p.RoomCode == code {
		return room, nil
	}

	if p.RoomCode != "" {
		c.leaveLocked(p)
	}

	room.mu.Lock()
	present := false
	for _, m := range room.Members {
		if m == token {
			present = true
			break
		}
	}
	if !present {
		room.Members = append(room.Members, token)
	}
	room.mu.Unlock()

	p.RoomCode = code

	c.notify.Publish(code, "playerJoined", c.viewLocked(p))

	return room, nil
}

// leaveRoom removes token from its current room, if any.
func (c *Core) leaveRoom(token string) *OpError {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.players[token]
	if !ok {
		return failf(ErrInvalidSession, "unknown session token")
	}

	c.leaveLocked(p)

	return nil
}

// leaveLocked removes p from its room, transferring host to the earliest
// remaining member or deleting the room (and every side table with it) when
// p was the last one out. Caller holds c.mu.
func (c *Core) leaveLocked(p *Player) {
	code := p.RoomCode
	if code == "" {
		return
	}
	p.RoomCode = ""

	room, ok := c.rooms[code]
	if !ok {
		return
	}

	room.mu.Lock()

	dst := room.Members[:0]
	for _, m := range room.Members {
		if m != p.Token {
			dst = append(dst, m)
		}
	}
	room.Members = dst

	delete(room.assignments, p.Token)
	delete(room.dead, p.Token)
	delete(room.drunk, p.Token)

	if len(room.Members) == 0 {
		room.mu.Unlock()
		delete(c.rooms, code)
		return
	}

	wasHost := room.HostToken == p.Token
	if wasHost {
		room.HostToken = room.Members[0]
	}
	newHost := room.HostToken

	room.mu.Unlock()

	if wasHost {
		if hp, ok := c.players[newHost]; ok {
			c.notify.Publish(code, "hostChanged", c.viewLocked(hp))
		}
	}

	c.notify.Publish(code, "playerLeft", PlayerView{
		ID:     p.Token,
		Name:   p.Name,
		Avatar: p.Avatar,
	})
}

// memberRoom resolves token to the room it currently occupies.
func (c *Core) memberRoom(token string) (*Room, *OpError) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.players[token]
	if !ok {
		return nil, failf(ErrInvalidSession, "unknown session token")
	}
	if p.RoomCode == "" {
		return nil, failf(ErrPlayerNotInRoom, "you are not in a room")
	}

	room, ok := c.rooms[p.RoomCode]
	if !ok {
		return nil, failf(ErrRoomNotFound, "no room with code %s", p.RoomCode)
	}

	return room, nil
}

// hostRoom is memberRoom plus the host check shared by every privileged
// operation.
func (c *Core) hostRoom(token string) (*Room, *OpError) {
	room, opErr := c.memberRoom(token)
	if opErr != nil {
		return nil, opErr
	}

	room.mu.Lock()
	isHost := room.HostToken == token
	room.mu.Unlock()

	if !isHost {
		return nil, failf(ErrForbidden, "only the host may do that")
	}

	return room, nil
}

// setRoleSet switches the room's active role set and clears the previous
// selection, since it no longer refers to anything.
func (c *Core) setRoleSet(hostToken, setID string) *OpError {
	room, opErr := c.hostRoom(hostToken)
	if opErr != nil {
		return opErr
	}

	set, ok := c.catalog.set(setID)
	if !ok {
		return failf(ErrInvalidRoleSet, "unknown role set %q", setID)
	}

	room.mu.Lock()
	room.RoleSetID = set.ID
	room.Selected = nil
	code := room.Code
	room.mu.Unlock()

	c.notify.Publish(code, "roleSetChanged", roleSetEvent{
		SetID: set.ID,
		Name:  set.Name,
		Roles: set.Roles,
	})
	c.notify.Publish(code, "selectedRolesChanged", selectionEvent{Roles: []RoleDef{}})

	return nil
}

// setSelectedRoles stores the host's curated role list. Entries that do not
// name a role in the active set are dropped rather than rejected, so a stale
// or hand-crafted client cannot smuggle roles into a room.
func (c *Core) setSelectedRoles(hostToken string, roles []RoleDef) *OpError {
	room, opErr := c.hostRoom(hostToken)
	if opErr != nil {
		return opErr
	}

	room.mu.Lock()

	set, ok := c.catalog.set(room.RoleSetID)
	if !ok {
		room.mu.Unlock()
		return failf(ErrInvalidRoleSet, "unknown role set %q", room.RoleSetID)
	}

	filtered := make([]RoleDef, 0, len(roles))
	for _, role := range roles {
		if canonical, ok := set.find(role.Name, role.Category); ok {
			filtered = append(filtered, canonical)
		}
	}

	room.Selected = filtered
	code := room.Code
	room.mu.Unlock()

	c.notify.Publish(code, "selectedRolesChanged", selectionEvent{Roles: filtered})

	return nil
}

// RoomView is the pull-style snapshot clients use to (re)sync after connect
// or reconnect, instead of relying on events they may have missed.
type RoomView struct {
	Code      string       `json:"code"`
	Host      string       `json:"host"`
	Players   []PlayerView `json:"players"` // seating order
	RoleSetID string       `json:"roleSet"`
	Selected  []RoleDef    `json:"selectedRoles"`
	Assigned  bool         `json:"rolesAssigned"`
	Dead      []string     `json:"dead"`
	Drunk     []string     `json:"drunk"`
	CreatedAt time.Time    `json:"createdAt"`
}

func (c *Core) roomView(room *Room) RoomView {
	c.mu.RLock()
	defer c.mu.RUnlock()

	room.mu.Lock()
	defer room.mu.Unlock()

	view := RoomView{
		Code:      room.Code,
		Host:      room.HostToken,
		RoleSetID: room.RoleSetID,
		Selected:  append([]RoleDef(nil), room.Selected...),
		Assigned:  room.Assigned,
		Dead:      make([]string, 0, len(room.dead)),
		Drunk:     make([]string, 0, len(room.drunk)),
		CreatedAt: room.CreatedAt,
	}

	for _, token := range room.effectiveOrderLocked() {
		p, ok := c.players[token]
		if !ok {
			continue
		}
		view.Players = append(view.Players, PlayerView{
			ID:     p.Token,
			Name:   p.Name,
			Avatar: p.Avatar,
			IsHost: room.HostToken == p.Token,
		})
	}

	for _, token := range room.Members {
		if _, ok := room.dead[token]; ok {
			view.Dead = append(view.Dead, token)
		}
		if _, ok := room.drunk[token]; ok {
			view.Drunk = append(view.Drunk, token)
		}
	}

	return view
}

type roleSetEvent struct {
	SetID string    `json:"setId"`
	Name  string    `json:"name"`
	Roles []RoleDef `json:"roles"`
}

type selectionEvent struct {
	Roles []RoleDef `json:"roles"`
}
