/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// avatarCatalog holds the candidate symbols handed to players who have not
// picked one. One grapheme each.
var avatarCatalog = []string{
	"🦉", "🦊", "🐍", "🦝", "🐸", "🦁", "🐙", "🦋",
	"🐺", "🦇", "🐗", "🦢", "🐢", "🦔", "🐀", "🐈",
	"🌙", "🌿", "🍄", "🕯️", "⚗️", "🗝️", "🪓", "🔔",
}

// Player holds the data we store server-side for one identity. Token doubles
// as the public identity other members see; it carries no verifiable claims.
type Player struct {
	Token    string `json:"id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	RoomCode string `json:"room,omitempty"`

	limiter *rate.Limiter
}

// PlayerView is the snapshot of a player broadcast to a room.
type PlayerView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	IsHost bool   `json:"isHost"`
}

func randomAvatar() string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(avatarCatalog))))
	if err != nil {
		return avatarCatalog[0]
	}
	return avatarCatalog[n.Int64()]
}

func newToken() string {
	return uuid.NewString()
}

// getOrCreatePlayer resolves a token to its record, minting a fresh record
// (and, for an empty token, a fresh token) on first contact. Records live
// until process exit.
func (c *Core) getOrCreatePlayer(token string) *Player {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token != "" {
		if p, ok := c.players[token]; ok {
			return p
		}
	} else {
		token = newToken()
	}

	p := &Player{
		Token:   token,
		Avatar:  randomAvatar(),
		limiter: rate.NewLimiter(chatRateLimit, chatRateBurst),
	}
	c.players[token] = p

	return p
}

// player resolves a known token, without creating.
func (c *Core) player(token string) (*Player, *OpError) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.players[token]
	if !ok {
		return nil, failf(ErrInvalidSession, "unknown session token")
	}
	return p, nil
}

// PlayerPatch carries the mutable profile fields. Nil means leave unchanged.
type PlayerPatch struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

// updatePlayer applies a profile patch. If the player is currently in a room,
// the room is told via a playerUpdated event.
func (c *Core) updatePlayer(token string, patch PlayerPatch) (*Player, *OpError) {
	c.mu.Lock()

	p, ok := c.players[token]
	if !ok {
		c.mu.Unlock()
		return nil, failf(ErrInvalidSession, "unknown session token")
	}

	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Avatar != nil && *patch.Avatar != "" {
		p.Avatar = *patch.Avatar
	}

	roomCode := p.RoomCode
	view := c.viewLocked(p)
	c.mu.Unlock()

	if roomCode != "" {
		c.notify.Publish(roomCode, "playerUpdated", view)
	}

	return p, nil
}

// viewLocked snapshots a player for the wire. Host status is derived from the
// room record on every call, never cached on the player. Caller holds c.mu.
func (c *Core) viewLocked(p *Player) PlayerView {
	isHost := false
	if p.RoomCode != "" {
		if room, ok := c.rooms[p.RoomCode]; ok {
			isHost = room.HostToken == p.Token
		}
	}

	return PlayerView{
		ID:     p.Token,
		Name:   p.Name,
		Avatar: p.Avatar,
		IsHost: isHost,
	}
}

func (c *Core) view(p *Player) PlayerView {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.viewLocked(p)
}
