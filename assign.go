/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"math/big"
)

// shuffleRoles permutes defs in place with an unbiased Fisher-Yates draw
// from crypto/rand.
func shuffleRoles(defs []RoleDef) {
	for i := len(defs) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			continue
		}
		j := n.Int64()
		defs[i], defs[j] = defs[j], defs[i]
	}
}

// assignRoles deals the selected roles to the non-host members, one each.
// The host never receives a role. Counts must match exactly; a mismatch
// rejects the whole operation and leaves any prior assignment untouched.
func (c *Core) assignRoles(hostToken string) *OpError {
	room, opErr := c.hostRoom(hostToken)
	if opErr != nil {
		return opErr
	}

	room.mu.Lock()

	nonHost := make([]string, 0, len(room.Members))
	for _, m := range room.Members {
		if m != room.HostToken {
			nonHost = append(nonHost, m)
		}
	}

	if len(room.Selected) == 0 {
		room.mu.Unlock()
		return failf(ErrCountMismatch, "no roles selected")
	}
	if len(nonHost) != len(room.Selected) {
		room.mu.Unlock()
		return failf(ErrCountMismatch, "player count (%d) does not match role count (%d)",
			len(nonHost), len(room.Selected))
	}

	dealt := append([]RoleDef(nil), room.Selected...)
	shuffleRoles(dealt)

	room.assignments = make(map[string]RoleDef, len(nonHost))
	for i, token := range nonHost {
		room.assignments[token] = dealt[i]
	}
	room.Assigned = true

	code := room.Code
	room.mu.Unlock()

	// Content-free on purpose: each client pulls its own secret, the
	// transport never carries the full mapping to everyone.
	c.notify.Publish(code, "rolesDistributed", nil)

	return nil
}

// resetAssignment ends the current epoch: roles, overlays, and chat all
// clear together, and the room is back to its pre-deal state.
func (c *Core) resetAssignment(hostToken string) *OpError {
	room, opErr := c.hostRoom(hostToken)
	if opErr != nil {
		return opErr
	}

	room.mu.Lock()
	room.assignments = make(map[string]RoleDef)
	room.dead = make(map[string]struct{})
	room.drunk = make(map[string]struct{})
	room.messages = nil
	room.Assigned = false
	code := room.Code
	room.mu.Unlock()

	c.notify.Publish(code, "rolesReset", nil)

	return nil
}

// myRole returns the caller's own assignment, or nil before the deal.
func (c *Core) myRole(token string) (*RoleDef, *OpError) {
	room, opErr := c.memberRoom(token)
	if opErr != nil {
		return nil, opErr
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	role, ok := room.assignments[token]
	if !ok {
		return nil, nil
	}

	return &role, nil
}

// GrimoireEntry is one row of the host's consolidated view.
type GrimoireEntry struct {
	Player PlayerView `json:"player"`
	Role   *RoleDef   `json:"role"`
	Dead   bool       `json:"dead"`
	Drunk  bool       `json:"drunk"`
}

// grimoire returns every non-host member in seating order with their
// assigned role and overlay state. Host only.
func (c *Core) grimoire(hostToken string) ([]GrimoireEntry, *OpError) {
	room, opErr := c.hostRoom(hostToken)
	if opErr != nil {
		return nil, opErr
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	room.mu.Lock()
	defer room.mu.Unlock()

	entries := make([]GrimoireEntry, 0, len(room.Members))

	for _, token := range room.effectiveOrderLocked() {
		if token == room.HostToken {
			continue
		}

		p, ok := c.players[token]
		if !ok {
			continue
		}

		entry := GrimoireEntry{
			Player: PlayerView{
				ID:     p.Token,
				Name:   p.Name,
				Avatar: p.Avatar,
			},
		}

		if role, ok := room.assignments[token]; ok {
			entry.Role = &role
		}
		_, entry.Dead = room.dead[token]
		_, entry.Drunk = room.drunk[token]

		entries = append(entries, entry)
	}

	return entries, nil
}
