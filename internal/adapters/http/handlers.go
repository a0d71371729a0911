// Package http is the gin surface of the coordination service.
package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/app/orch"
	"github.com/dkeye/Classroom/internal/domain"
)

const orgHeader = "X-Org-ID"

type Handlers struct {
	Orch *orch.Orchestrator
}

// orgScope prefers the authenticated caller's org over the query parameter.
func orgScope(c *gin.Context) string {
	if org := strings.TrimSpace(c.GetHeader(orgHeader)); org != "" {
		return org
	}
	return strings.TrimSpace(c.Query("org"))
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) Languages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"languages": domain.SupportedLanguages()})
}

func (h *Handlers) ConnectionDetails(c *gin.Context) {
	classroom, _ := strconv.ParseBool(c.DefaultQuery("classroom", "false"))
	req := orch.JoinRequest{
		RoomCode:        c.Query("roomName"),
		ParticipantName: c.Query("participantName"),
		Classroom:       classroom,
		Role:            c.Query("role"),
		Language:        c.Query("language"),
		Region:          c.Query("region"),
		Org:             orgScope(c),
		PIN:             c.Query("pin"),
	}
	if req.RoomCode == "" || req.ParticipantName == "" {
		writeError(c, domain.ErrMissingField, http.StatusBadRequest)
		return
	}
	details, err := h.Orch.Join(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}

	s := sessions.Default(c)
	s.Set("room", details.RoomName)
	s.Set("identity", details.Identity)
	s.Set("client", c.GetString("client_token"))
	if err := s.Save(); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("save affinity session")
	}
	c.JSON(http.StatusOK, details)
}

func (h *Handlers) CreateRoom(c *gin.Context) {
	var req orch.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if req.OrgID == "" {
		req.OrgID = c.GetHeader(orgHeader)
	}
	s, err := h.Orch.CreateSession(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *Handlers) GetRoom(c *gin.Context) {
	s, err := h.Orch.LookupSession(c.Request.Context(), c.Param("room"), orgScope(c))
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, s)
}

// UpdateSettings addresses the session by id; the shared :room segment is a
// room code only for GetRoom.
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var req struct {
		Language     *string `json:"language"`
		PIN          *string `json:"pin"`
		TeacherToken string  `json:"teacherToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	s, err := h.Orch.UpdateSettings(c.Request.Context(), domain.SessionID(c.Param("room")), req.TeacherToken,
		domain.SettingsUpdate{Language: req.Language, PIN: req.PIN})
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handlers) GrantOrRevoke(c *gin.Context) {
	var req orch.PermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if err := h.Orch.SetPermission(c.Request.Context(), req); err != nil {
		writeError(c, err, http.StatusBadGateway)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"action":            req.Action,
		"targetParticipant": req.TargetIdentity,
	})
}

func (h *Handlers) bindSlot(c *gin.Context) (orch.RequestSlot, bool) {
	var req orch.RequestSlot
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return req, false
	}
	return req, true
}

func (h *Handlers) ClaimRequest(c *gin.Context) {
	req, ok := h.bindSlot(c)
	if !ok {
		return
	}
	if err := h.Orch.ClaimRequest(c.Request.Context(), req); err != nil {
		writeError(c, err, http.StatusServiceUnavailable)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"requestId": req.RequestID})
}

func (h *Handlers) ApproveRequest(c *gin.Context) {
	req, ok := h.bindSlot(c)
	if !ok {
		return
	}
	if err := h.Orch.ApproveRequest(c.Request.Context(), req); err != nil {
		writeError(c, err, http.StatusBadGateway)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requestId": req.RequestID, "status": domain.StatusApproved})
}

func (h *Handlers) ResolveRequest(c *gin.Context) {
	req, ok := h.bindSlot(c)
	if !ok {
		return
	}
	if err := h.Orch.ResolveRequest(c.Request.Context(), req); err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requestId": req.RequestID, "status": req.Status})
}

func (h *Handlers) SaveTranscription(c *gin.Context) {
	h.saveSegment(c, domain.SourceTranscription)
}

func (h *Handlers) SaveTranslation(c *gin.Context) {
	h.saveSegment(c, domain.SourceTranslation)
}

func (h *Handlers) saveSegment(c *gin.Context, source domain.SourceKind) {
	var req orch.SegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	stored, err := h.Orch.SaveSegment(c.Request.Context(), source, req)
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	status := http.StatusCreated
	if !stored {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"stored": stored})
}

func (h *Handlers) ListSegments(c *gin.Context) {
	source := domain.SourceKind(c.Query("source"))
	switch source {
	case "", domain.SourceTranscription, domain.SourceTranslation:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "source must be transcription or translation"})
		return
	}
	segs, err := h.Orch.Segments(c.Request.Context(), domain.SessionID(c.Param("id")), source)
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"segments": segs})
}
