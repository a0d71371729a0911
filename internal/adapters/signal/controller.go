package signal

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type memberEvent struct {
	Type   string         `json:"type"`
	Member core.MemberDTO `json:"member"`
}

type roomState struct {
	Type    string           `json:"type"`
	Room    string           `json:"room"`
	Members []core.MemberDTO `json:"members"`
	Count   int              `json:"count"`
}

// HandleData upgrades an authenticated participant onto its room's data
// channel. The token is the one connection-details issued.
func (h *Hub) HandleData(c *gin.Context) {
	claims, err := h.verify(c.Query("access_token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	room, ok := h.Rooms.Get(claims.Room)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrRoomNotFound.Error()})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	conn := newConn(ws, h.queue)
	p := domain.Participant{Identity: claims.Identity, Name: claims.Name, Role: claims.Role}
	ms := core.NewMemberSession(p, domain.Grant{
		CanPublish:           claims.CanPublish,
		CanPublishData:       claims.CanPublishData,
		CanSubscribe:         true,
		CanUpdateOwnMetadata: true,
		RoomAdmin:            claims.RoomAdmin,
	}, conn)

	old, replaced := room.Member(p.Identity)
	room.AddMember(ms)
	if replaced {
		old.Signal().Close()
	}
	log.Info().Str("module", "signal").Str("room", room.Name()).Str("identity", p.Identity).Str("role", string(p.Role)).Msg("data channel open")

	ctx, cancel := context.WithCancel(context.Background())
	go h.writePump(ctx, conn)
	go h.readPump(ctx, cancel, room, ms)

	sendJSON(conn, roomState{
		Type:    "room_state",
		Room:    room.Name(),
		Members: room.MembersSnapshot(),
		Count:   room.MemberCount(),
	})
	h.broadcastJSON(room, p.Identity, memberEvent{Type: "member_joined", Member: dto(p)})
}

// ListRooms reports the live rooms of the local transport.
func (h *Hub) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.Rooms.List()})
}

func (h *Hub) leave(room core.RoomService, ms core.MemberSession) {
	p := ms.Meta()
	removed := room.RemoveMember(p.Identity, ms)
	h.forget(ms)
	if !removed {
		// replaced by a newer connection of the same identity
		return
	}
	h.broadcastJSON(room, p.Identity, memberEvent{Type: "member_left", Member: dto(p)})
}

func dto(p domain.Participant) core.MemberDTO {
	return core.MemberDTO{Identity: p.Identity, Name: p.Name, Role: p.Role}
}
