// Package evtgrp maintains the group of handlers for live event access.
package evtgrp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/greenledger/greenledger/business/web/errs"
	"github.com/greenledger/greenledger/foundation/events"
	"github.com/greenledger/greenledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of event endpoints.
type Handlers struct {
	Log *zap.SugaredLogger
	WS  websocket.Upgrader
	Bus *events.Bus
}

// command is the frame a websocket client sends to manage its session.
type command struct {
	Action string   `json:"action"`
	Room   string   `json:"room,omitempty"`
	Types  []string `json:"types,omitempty"`
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Bus.Connect(v.TraceID)
	defer h.Bus.Disconnect(v.TraceID)

	// Read client frames on the side. Every frame counts as activity;
	// well-formed ones manage the session's rooms and interest set.
	readErr := make(chan error, 1)
	go func() {
		for {
			var cmd command
			if err := c.ReadJSON(&cmd); err != nil {
				readErr <- err
				return
			}
			h.Bus.Touch(v.TraceID)
			h.apply(v.TraceID, cmd)
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt, wd := <-ch:
			if !wd {
				return nil
			}

			// A failed write means the client is gone. End this session
			// only; the connection is hijacked so the error middleware
			// could not respond on it anyway.
			if err := c.WriteJSON(evt); err != nil {
				h.Log.Infow("events", "status", "client write failed", "session", v.TraceID, "ERROR", err)
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}

		case <-readErr:
			return nil
		}
	}
}

// apply executes one session command.
func (h Handlers) apply(sessionID string, cmd command) {
	switch cmd.Action {
	case "join":
		if cmd.Room != "" {
			h.Bus.JoinRoom(sessionID, cmd.Room)
		}
	case "leave":
		if cmd.Room != "" {
			h.Bus.LeaveRoom(sessionID, cmd.Room)
		}
	case "subscribe":
		h.Bus.Subscribe(sessionID, cmd.Types...)
	case "unsubscribe":
		h.Bus.Unsubscribe(sessionID)
	default:
		h.Log.Infow("events", "status", "unknown command", "session", sessionID, "action", cmd.Action)
	}
}

// Stats returns the live dispatch and connection statistics.
func (h Handlers) Stats(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Bus.LiveStatistics(), http.StatusOK)
}

// History returns recently dispatched events, optionally filtered with
// the type query parameter and bounded with limit.
func (h Handlers) History(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	eventType := r.URL.Query().Get("type")

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return errs.NewTrusted(errors.New("limit must be a positive integer"), http.StatusBadRequest)
		}
		limit = n
	}

	history := h.Bus.EventHistory(eventType, limit)

	resp := struct {
		Events []events.Event `json:"events"`
		Count  int            `json:"count"`
	}{
		Events: history,
		Count:  len(history),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Subscribe narrows a connected session's deliveries to a set of event
// types without requiring a websocket frame.
func (h Handlers) Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req struct {
		SessionID string   `json:"session_id"`
		Types     []string `json:"event_types"`
	}
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}
	if req.SessionID == "" {
		return errs.NewTrusted(errors.New("missing session_id"), http.StatusBadRequest)
	}

	h.Bus.Subscribe(req.SessionID, req.Types...)

	resp := struct {
		Message string   `json:"message"`
		Types   []string `json:"event_types"`
	}{
		Message: "subscription updated",
		Types:   req.Types,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
