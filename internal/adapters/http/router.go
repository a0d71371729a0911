package http

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/adapters/signal"
	"github.com/dkeye/Classroom/internal/app/orch"
	"github.com/dkeye/Classroom/internal/config"
)

const clientTokenCookie = "ct"

// ClientTokenMiddleware pins a browser to a stable random id. The join
// handler stores it next to the session so reconnects land on the same
// identity bucket in logs.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(clientTokenCookie)
		if token == "" {
			token = uuid.NewString()
			c.SetCookie(clientTokenCookie, token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// SetupRouter mounts the API under /api. hub is nil unless the local
// transport is in use.
func SetupRouter(cfg *config.Config, o *orch.Orchestrator, hub *signal.Hub) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions("ClassroomSessions", store))
	r.Use(ClientTokenMiddleware())

	h := &Handlers{Orch: o}
	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	api.GET("/connection-details", h.ConnectionDetails)
	api.GET("/languages", h.Languages)

	api.POST("/rooms", h.CreateRoom)
	api.GET("/rooms/:room", h.GetRoom)
	api.PATCH("/rooms/:room/settings", h.UpdateSettings)

	api.POST("/permissions/grant-or-revoke", h.GrantOrRevoke)

	api.POST("/requests", h.ClaimRequest)
	api.POST("/requests/approve", h.ApproveRequest)
	api.POST("/requests/resolve", h.ResolveRequest)

	api.POST("/transcripts", h.SaveTranscription)
	api.POST("/translations", h.SaveTranslation)
	api.GET("/sessions/:id/transcripts", h.ListSegments)

	if hub != nil {
		api.GET("/rtc/data", hub.HandleData)
		api.GET("/rtc/rooms", hub.ListRooms)
	}

	log.Info().Str("module", "adapters.http").Bool("local_transport", hub != nil).Msg("router setup")
	return r
}
