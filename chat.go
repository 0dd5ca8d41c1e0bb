/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	chatRateLimit rate.Limit = 2 // messages per second, sustained
	chatRateBurst            = 5
)

// ChatMessage is one append-only log entry. Sender name and avatar are
// snapshotted at send time; later profile edits do not rewrite history.
type ChatMessage struct {
	ID         int64     `json:"id"`
	From       string    `json:"from"`
	FromName   string    `json:"fromName"`
	FromAvatar string    `json:"fromAvatar"`
	FromHost   bool      `json:"fromHost"`
	To         string    `json:"to,omitempty"` // empty = broadcast
	Content    string    `json:"content"`
	Ephemeral  bool      `json:"ephemeral,omitempty"`
	SentAt     time.Time `json:"sentAt"`
}

// visibleTo reports whether viewer may see this message: broadcasts always,
// directed messages only at either endpoint.
func (m ChatMessage) visibleTo(viewer string) bool {
	return m.To == "" || m.From == viewer || m.To == viewer
}

// sendMessage validates and appends a chat message, then delivers it.
// Non-hosts may only message the host; the host may message any member or,
// with no recipient, the whole room. Directed messages are delivered to the
// two endpoints only, never sprayed room-wide for clients to filter.
func (c *Core) sendMessage(token, content, recipientID string, ephemeral bool) (*ChatMessage, *OpError) {
	c.mu.RLock()
	p, ok := c.players[token]
	if !ok {
		c.mu.RUnlock()
		return nil, failf(ErrInvalidSession, "unknown session token")
	}
	if p.RoomCode == "" {
		c.mu.RUnlock()
		return nil, failf(ErrForbidden, "you are not in a room")
	}
	room, ok := c.rooms[p.RoomCode]
	if !ok {
		c.mu.RUnlock()
		return nil, failf(ErrForbidden, "you are not in a room")
	}
	name, avatar, limiter := p.Name, p.Avatar, p.limiter
	c.mu.RUnlock()

	if !limiter.Allow() {
		return nil, failf(ErrInvalidContent, "sending messages too quickly")
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, failf(ErrInvalidContent, "message is empty")
	}
	if len(content) > c.cfg.maxMessageLen {
		return nil, failf(ErrInvalidContent, "message exceeds %d bytes", c.cfg.maxMessageLen)
	}

	room.mu.Lock()

	isHost := room.HostToken == token

	if !isHost && recipientID != room.HostToken {
		room.mu.Unlock()
		return nil, failf(ErrForbidden, "players may only message the host")
	}

	if isHost && recipientID != "" {
		member := false
		for _, m := range room.Members {
			if m == recipientID {
				member = true
				break
			}
		}
		if !member {
			room.mu.Unlock()
			return nil, failf(ErrInvalidRecipient, "that player is not in this room")
		}
	}

	msg := ChatMessage{
		ID:         c.msgSeq.Add(1),
		From:       token,
		FromName:   name,
		FromAvatar: avatar,
		FromHost:   isHost,
		To:         recipientID,
		Content:    content,
		Ephemeral:  ephemeral,
		SentAt:     time.Now(),
	}

	room.messages = append(room.messages, msg)
	code := room.Code
	room.mu.Unlock()

	if msg.To == "" {
		c.notify.Publish(code, "chatMessage", msg)
	} else {
		c.notify.PublishTo(code, msg.From, "chatMessage", msg)
		if msg.To != msg.From {
			c.notify.PublishTo(code, msg.To, "chatMessage", msg)
		}
	}

	return &msg, nil
}

// chatHistory returns the messages token is allowed to see, in send order.
func (c *Core) chatHistory(token string) ([]ChatMessage, *OpError) {
	c.mu.RLock()
	p, ok := c.players[token]
	if !ok {
		c.mu.RUnlock()
		return nil, failf(ErrInvalidSession, "unknown session token")
	}
	if p.RoomCode == "" {
		c.mu.RUnlock()
		return nil, failf(ErrForbidden, "you are not in a room")
	}
	room, ok := c.rooms[p.RoomCode]
	c.mu.RUnlock()
	if !ok {
		return nil, failf(ErrForbidden, "you are not in a room")
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	out := make([]ChatMessage, 0, len(room.messages))
	for _, msg := range room.messages {
		if msg.visibleTo(token) {
			out = append(out, msg)
		}
	}

	return out, nil
}
