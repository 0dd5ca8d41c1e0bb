/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

// Seating order is tracked separately from membership and reconciled lazily:
// the stored order never has to be fresh, because every read rebuilds it
// against live membership.

// effectiveOrderLocked returns the stored order with departed members
// dropped and newcomers appended in membership order. Caller holds room.mu.
func (r *Room) effectiveOrderLocked() []string {
	members := make(map[string]struct{}, len(r.Members))
	for _, m := range r.Members {
		members[m] = struct{}{}
	}

	order := make([]string, 0, len(r.Members))
	seen := make(map[string]struct{}, len(r.Members))

	for _, token := range r.seating {
		if _, ok := members[token]; !ok {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		order = append(order, token)
		seen[token] = struct{}{}
	}

	for _, token := range r.Members {
		if _, ok := seen[token]; !ok {
			order = append(order, token)
		}
	}

	return order
}

// reorderPlayers stores a host-proposed seating order. Entries that are not
// current members are dropped, so a stale proposal cannot seat ghosts.
func (c *Core) reorderPlayers(hostToken string, proposed []string) *OpError {
	room, opErr := c.hostRoom(hostToken)
	if opErr != nil {
		return opErr
	}

	room.mu.Lock()

	members := make(map[string]struct{}, len(room.Members))
	for _, m := range room.Members {
		members[m] = struct{}{}
	}

	order := make([]string, 0, len(proposed))
	seen := make(map[string]struct{}, len(proposed))
	for _, token := range proposed {
		if _, ok := members[token]; !ok {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		order = append(order, token)
		seen[token] = struct{}{}
	}

	room.seating = order
	effective := room.effectiveOrderLocked()
	code := room.Code
	room.mu.Unlock()

	c.notify.Publish(code, "playerOrderChanged", orderEvent{Order: effective})

	return nil
}

// swapPlayers exchanges two seats, expressed as a reorder of the effective
// order so the same filtering applies.
func (c *Core) swapPlayers(hostToken, idA, idB string) *OpError {
	room, opErr := c.hostRoom(hostToken)
	if opErr != nil {
		return opErr
	}

	room.mu.Lock()
	order := room.effectiveOrderLocked()
	room.mu.Unlock()

	posA, posB := -1, -1
	for i, token := range order {
		switch token {
		case idA:
			posA = i
		case idB:
			posB = i
		}
	}
	if posA == -1 || posB == -1 {
		return failf(ErrPlayerNotInRoom, "both players must be in the room")
	}

	order[posA], order[posB] = order[posB], order[posA]

	return c.reorderPlayers(hostToken, order)
}

type orderEvent struct {
	Order []string `json:"order"`
}
