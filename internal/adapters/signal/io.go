package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/core"
)

const writeWait = 5 * time.Second

func (h *Hub) writePump(ctx context.Context, c *WsSignalConn) {
	ping := time.NewTicker(h.pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (h *Hub) readPump(ctx context.Context, cancel context.CancelFunc, room core.RoomService, ms core.MemberSession) {
	c := ms.Signal().(*WsSignalConn)
	identity := ms.Meta().Identity
	defer func() {
		cancel()
		c.Close()
		h.leave(room, ms)
		log.Info().Str("module", "signal").Str("room", room.Name()).Str("identity", identity).Msg("data channel closed")
	}()

	pongWait := h.pingPeriod * 10 / 9
	c.conn.SetReadLimit(h.readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("identity", identity).Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		h.handleFrame(room, ms, data)
	}
}

func (h *Hub) handleFrame(room core.RoomService, ms core.MemberSession, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		sendJSON(ms.Signal(), map[string]any{"type": "error", "error": "bad_payload"})
		return
	}

	switch env.Type {
	case "ping":
		sendJSON(ms.Signal(), map[string]any{"type": "pong"})
	case "whoami":
		h.handleWhoAmI(room, ms)
	default:
		h.relay(room, ms, env.Type, data)
	}
}

func (h *Hub) relay(room core.RoomService, ms core.MemberSession, typ string, data []byte) {
	p := ms.Meta()
	if !ms.Grant().CanPublishData {
		sendJSON(ms.Signal(), map[string]any{"type": "error", "error": "publish_data_denied"})
		return
	}
	if !h.Limiter.Allow(p.Identity) {
		log.Warn().Str("module", "signal").Str("identity", p.Identity).Str("type", typ).Msg("relay rate limited")
		sendJSON(ms.Signal(), map[string]any{"type": "error", "error": "rate_limited"})
		return
	}
	h.publish(room, p.Identity, core.Frame(data))
}

func (h *Hub) handleWhoAmI(room core.RoomService, ms core.MemberSession) {
	p := ms.Meta()
	g := ms.Grant()
	sendJSON(ms.Signal(), map[string]any{
		"type":       "whoami",
		"identity":   p.Identity,
		"name":       p.Name,
		"role":       p.Role,
		"room":       room.Name(),
		"canPublish": g.CanPublish,
	})
}

func sendJSON(c core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (h *Hub) broadcastJSON(room core.RoomService, from string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("broadcast marshal")
		return
	}
	h.publish(room, from, b)
}
