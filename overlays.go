/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

// Dead and drunk are tracked as per-room sets, orthogonal to role
// assignment. Events carry the target identity and nothing else, so no role
// content ever rides along.

type targetEvent struct {
	ID string `json:"id"`
}

func (c *Core) setDead(hostToken, targetID string, dead bool) *OpError {
	event := "playerRevived"
	if dead {
		event = "playerKilled"
	}
	return c.setOverlay(hostToken, targetID, dead, event, func(r *Room) map[string]struct{} {
		return r.dead
	})
}

func (c *Core) setDrunk(hostToken, targetID string, drunk bool) *OpError {
	event := "playerUnmarkedDrunk"
	if drunk {
		event = "playerMarkedDrunk"
	}
	return c.setOverlay(hostToken, targetID, drunk, event, func(r *Room) map[string]struct{} {
		return r.drunk
	})
}

func (c *Core) setOverlay(hostToken, targetID string, on bool, event string, pick func(*Room) map[string]struct{}) *OpError {
	room, opErr := c.hostRoom(hostToken)
	if opErr != nil {
		return opErr
	}

	room.mu.Lock()

	member := false
	for _, m := range room.Members {
		if m == targetID {
			member = true
			break
		}
	}
	if !member {
		room.mu.Unlock()
		return failf(ErrPlayerNotInRoom, "that player is not in this room")
	}

	set := pick(room)
	if on {
		set[targetID] = struct{}{}
	} else {
		delete(set, targetID)
	}

	code := room.Code
	room.mu.Unlock()

	c.notify.Publish(code, event, targetEvent{ID: targetID})

	return nil
}
