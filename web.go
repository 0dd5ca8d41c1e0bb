/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second
)

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func serveVersion(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("grimsheet v" + releaseVersion + "\n"))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Version page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func registerAPI(cfg *Config, core *Core, broadcaster *Broadcaster, errs chan<- error, mux *httprouter.Router) {
	prefix := cfg.prefix

	mux.GET(prefix+"/api/session", serveSession(cfg, core))
	mux.PATCH(prefix+"/api/me", serveUpdatePlayer(cfg, core))
	mux.GET(prefix+"/api/me/role", serveMyRole(cfg, core))

	mux.POST(prefix+"/api/rooms", serveCreateRoom(cfg, core))
	mux.POST(prefix+"/api/rooms/leave", serveLeaveRoom(cfg, core))
	mux.GET(prefix+"/api/rooms/current", serveCurrentRoom(cfg, core))
	mux.POST(prefix+"/api/join/:code", serveJoinRoom(cfg, core))

	mux.GET(prefix+"/api/rolesets", serveRoleSets(cfg, core))
	mux.PUT(prefix+"/api/rooms/roleset", serveSetRoleSet(cfg, core))
	mux.PUT(prefix+"/api/rooms/selection", serveSetSelection(cfg, core))
	mux.POST(prefix+"/api/rooms/assign", serveAssign(cfg, core))
	mux.POST(prefix+"/api/rooms/reset", serveReset(cfg, core))
	mux.GET(prefix+"/api/rooms/grimoire", serveGrimoire(cfg, core))

	mux.PUT(prefix+"/api/rooms/order", serveReorder(cfg, core))
	mux.POST(prefix+"/api/rooms/swap", serveSwap(cfg, core))
	mux.POST(prefix+"/api/rooms/dead", serveDead(cfg, core))
	mux.POST(prefix+"/api/rooms/drunk", serveDrunk(cfg, core))

	mux.POST(prefix+"/api/chat", serveSendMessage(cfg, core))
	mux.GET(prefix+"/api/chat", serveChatHistory(cfg, core))

	mux.GET(prefix+"/ws", serveWS(cfg, broadcaster))

	mux.GET(prefix+"/room/:code/qr", serveRoomQR(cfg, core, errs))
	mux.GET(prefix+"/join/:code", serveJoinPage(cfg))
}

func ServePage(ctx context.Context, cfg *Config, args []string) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	logf(cfg, "START: grimsheet v%s", releaseVersion)

	catalog, err := catalogFromConfig(cfg)
	if err != nil {
		return err
	}

	broadcaster := newBroadcaster()
	core := newCore(cfg, catalog, broadcaster)

	mux := httprouter.New()

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           mux,
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusInternalServerError)

		io.WriteString(w, newPage("Server Error", "An error has occurred. Please try again."))
	}

	errs := make(chan error, 64)

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	mux.GET(cfg.prefix+"/", serveHomePage(cfg))

	mux.GET(cfg.prefix+"/favicons/*favicon", serveFavicons(cfg, errs))

	mux.GET(cfg.prefix+"/favicon.svg", serveFavicons(cfg, errs))

	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg, errs))

	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg, errs))

	mux.GET(cfg.prefix+"/version", serveVersion(cfg, errs))

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	registerAPI(cfg, core, broadcaster, errs, mux)

	go func() {
		var err error
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			logf(cfg, "SERVE: Listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			logf(cfg, "SERVE: Listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("%s | ERROR: %v\n", time.Now().Format(logDate), err)
		}
	}()

	<-ctx.Done()

	// Tell connected clients to reload before the transport goes away.
	broadcaster.PublishAll("reloadRequired", nil)
	broadcaster.closeAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	return nil
}
