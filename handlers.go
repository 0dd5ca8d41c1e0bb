/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const sessionCookieName = "grimsheet_id"

// requestToken pulls the caller's identity token from the session cookie,
// falling back to a bearer header for non-browser clients.
func requestToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return token
	}

	return ""
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	securityHeaders(cfg, w)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOpError(cfg *Config, w http.ResponseWriter, opErr *OpError) {
	writeJSON(cfg, w, opErr.httpStatus(), opErr)
}

// decodeBody rejects anything that is not a JSON body of the expected
// shape.
func decodeBody(w http.ResponseWriter, r *http.Request, cfg *Config, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeOpError(cfg, w, failf(ErrInvalidContent, "malformed request body"))
		return false
	}
	return true
}

type sessionResponse struct {
	Player PlayerView `json:"player"`
	Room   *RoomView  `json:"room"`
}

// serveSession gets or creates the caller's identity, refreshing the cookie
// either way, and returns the current-room snapshot so a reconnecting
// client can resync in one request.
func serveSession(cfg *Config, core *Core) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		p := core.getOrCreatePlayer(requestToken(r))

		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    p.Token,
			Path:     "/",
			MaxAge:   int(cfg.sessionLength.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   cfg.scheme() == "https",
		})

		resp := sessionResponse{Player: core.view(p)}
		if room, opErr := core.memberRoom(p.Token); opErr == nil {
			view := core.roomView(room)
			resp.Room = &view
		}

		writeJSON(cfg, w, http.StatusOK, resp)

		logf(cfg, "API: Session for %s in %s",
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveUpdatePlayer(cfg *Config, core *Core) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var patch PlayerPatch
		if !decodeBody(w, r, cfg, &patch) {
			return
		}

		p, opErr := core.updatePlayer(requestToken(r), patch)
		if opErr != nil {
			writeOpError(cfg, w, opErr)
			return
		}

		writeJSON(cfg, w, http.StatusOK, core.view(p))
	}
}

func serveCreateRoom(cfg *Config, core *Core) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		room, opErr := core.createRoom(requestToken(r))
		if opErr != nil {
			writeOpError(cfg, w, opErr)
			return
		}

		logf(cfg, "ROOMS: %s created by %s", room.Code, realIP(r))

		writeJSON(cfg, w, http.StatusCreated, core.roomView(room))
	}
}

func serveJoinRoom(cfg *Config, core *Core) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room, opErr := core.joinRoom(requestToken(r), ps.ByName("code"))
		if opErr != nil {
			writeOpError(cfg, w, opErr)
			return
		}

		logf(cfg, "ROOMS: %s joined from %s", room.Code, realIP(r))

		writeJSON(cfg, w, http.StatusOK, core.roomView(room))
	}
}

func serveLeaveRoom(cfg *Config, core *Core) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if opErr := core.leaveRoom(requestToken(r)); opErr != nil {
			writeOpError(cfg, w, opErr)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func serveCurrentRoom(cfg *Config, core *Core) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		room, opErr := core.memberRoom(requestToken(r))
		if opErr != nil {
			writeOpError(cfg, w, opErr)
			return
		}

		writeJSON(cfg, w, http.StatusOK, core.roomView(room))
	}
}

type roleSetListing struct {
	Default string     `json:"default"`
	Sets    []*RoleSet `json:"sets"`
}

func serveRoleSets(cfg *Config, core *Core) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(cfg, w, http.StatusOK, roleSetListing{
			Default: core.catalog.defaultID,
			Sets:    core.catalog.list(),
		})
	}
}

func serveSetRoleSet(cfg *Config, core *Core) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body struct {
			SetID string `json:"setId"`
		}
		if !decodeBody(w, r, cfg, &body) {
			return
		}

		if opErr := core.setRoleSet(requestToken(r), body.SetID); opErr != nil {
			writeOpError(cfg, w, opErr)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func serveSetSelection(cfg *Config, core *Core) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body struct {
			Roles []RoleDef `json:"roles"`
		}
		if !decodeBody(w, r, cfg, &body) {
			return
		}

		if opErr := core.setSelectedRoles(requestToken(r), body.Roles); opErr != nil {
			writeOpError(cfg, w, opErr)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func serveAssign(cfg *Config, core *Core) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if opErr := core.assignRoles(requestToken(r)); opErr != nil {
			writeOpError(cfg, w, opErr)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func serveReset(cfg *Config, core *Core) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if opErr := core.resetAssignment(requestToken(r)); opErr != nil {
			writeOpError(cfg, w, opErr)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func serveMyRole(cfg *Config, core *Core) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		role, opErr := core.myRole(requestToken(r))
		if opErr != nil {
			writeOpError(cfg, w, opErr)
			return
		}

		writeJSON(cfg, w, http.StatusOK, map[string]*RoleDef{"role": role})
	}
}

func serveGrimoire(cfg *Config, core *Core) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		entries, opErr := core.grimoire(requestToken(r))
		if opErr != nil {
			writeOpError(cfg, w, opErr)
			return
		}

		writeJSON(cfg, w, http.StatusOK, entries)
	}
}

func serveReorder(cfg *Config, core *Core) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body struct {
			Order []string `json:"order"`
		}
		if !decodeBody(w, r, cfg, &body) {
			return
		}

		if opErr := core.reorderPlayers(requestToken(r), body.Order); opErr != nil {
			writeOpError(cfg, w, opErr)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func serveSwap(cfg *Config, core *Core) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body struct {
			A string `json:"a"`
			B string `json:"b"`
		}
		if !decodeBody(w, r, cfg, &body) {
			return
		}

		if opErr := core.swapPlayers(requestToken(r), body.A, body.B); opErr != nil {
			writeOpError(cfg, w, opErr)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func serveDead(cfg *Config, core *Core) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body struct {
			ID   string `json:"id"`
			Dead bool   `json:"dead"`
		}
		if !decodeBody(w, r, cfg, &body) {
			return
		}

		if opErr := core.setDead(requestToken(r), body.ID, body.Dead); opErr != nil {
			writeOpError(cfg, w, opErr)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func serveDrunk(cfg *Config, core *Core) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body struct {
			ID    string `json:"id"`
			Drunk bool   `json:"drunk"`
		}
		if !decodeBody(w, r, cfg, &body) {
			return
		}

		if opErr := core.setDrunk(requestToken(r), body.ID, body.Drunk); opErr != nil {
			writeOpError(cfg, w, opErr)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func serveSendMessage(cfg *Config, core *Core) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body struct {
			Content   string `json:"content"`
			To        string `json:"to"`
			Ephemeral bool   `json:"ephemeral"`
		}
		if !decodeBody(w, r, cfg, &body) {
			return
		}

		msg, opErr := core.sendMessage(requestToken(r), body.Content, body.To, body.Ephemeral)
		if opErr != nil {
			writeOpError(cfg, w, opErr)
			return
		}

		writeJSON(cfg, w, http.StatusCreated, msg)
	}
}

func serveChatHistory(cfg *Config, core *Core) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		messages, opErr := core.chatHistory(requestToken(r))
		if opErr != nil {
			writeOpError(cfg, w, opErr)
			return
		}

		writeJSON(cfg, w, http.StatusOK, messages)
	}
}

// serveRoomQR renders a QR code for a room's join URL, for passing a phone
// around the table.
func serveRoomQR(cfg *Config, core *Core, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		code := normalizeRoomCode(ps.ByName("code"))

		core.mu.RLock()
		_, exists := core.rooms[code]
		core.mu.RUnlock()

		if !exists {
			writeOpError(cfg, w, failf(ErrRoomNotFound, "no room with code %s", code))
			return
		}

		scheme := cfg.scheme()
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + cfg.prefix + "/join/" + code

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)

		written, err := w.Write(png)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: QR code for %s (%s) to %s in %s",
			code,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}
