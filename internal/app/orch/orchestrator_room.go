package orch

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/domain"
)

type CreateSessionRequest struct {
	RoomCode    string `json:"roomCode"`
	RoomType    string `json:"roomType"`
	TeacherName string `json:"teacherName"`
	Language    string `json:"language"`
	Description string `json:"description"`
	OrgID       string `json:"orgId"`
	PIN         string `json:"pin"`
}

// CreateSession registers a room code. The code is unique within the org;
// the media room itself is created lazily on first join.
func (o *Orchestrator) CreateSession(ctx context.Context, req CreateSessionRequest) (*domain.Session, error) {
	code := strings.TrimSpace(req.RoomCode)
	if err := domain.ValidateRoomCode(code); err != nil {
		return nil, err
	}
	kind, err := domain.ParseSessionKind(req.RoomType)
	if err != nil {
		return nil, err
	}
	lang := strings.ToLower(strings.TrimSpace(req.Language))
	if lang == "" {
		lang = domain.DefaultLanguage
	}
	if !domain.IsSupportedLanguage(lang) {
		return nil, fmt.Errorf("%q: %w", lang, domain.ErrUnsupportedLang)
	}
	if _, err := o.Credentials.SelectConfigured(lang); err != nil {
		return nil, err
	}

	s := &domain.Session{
		ID:          domain.NewSessionID(),
		RoomCode:    domain.RoomCode(code),
		OrgID:       domain.OrgID(strings.TrimSpace(req.OrgID)),
		Kind:        kind,
		Language:    lang,
		PIN:         strings.TrimSpace(req.PIN),
		TeacherName: strings.TrimSpace(req.TeacherName),
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   o.Clock.Now().UTC(),
	}
	if err := o.Sessions.CreateSession(ctx, s); err != nil {
		return nil, err
	}
	log.Info().Str("module", "app.orch").Str("session", string(s.ID)).Str("code", code).Str("org", string(s.OrgID)).Str("kind", string(kind)).Msg("session created")
	return s, nil
}

// LookupSession resolves a registered code. Unlike Join it does not fall
// back to an ad-hoc session.
func (o *Orchestrator) LookupSession(ctx context.Context, code, org string) (*domain.Session, error) {
	if err := domain.ValidateRoomCode(code); err != nil {
		return nil, err
	}
	return o.Sessions.SessionByCode(ctx, domain.RoomCode(code), domain.OrgID(org))
}

// UpdateSettings changes language and PIN. Only an admin of the session's
// media room may do it.
func (o *Orchestrator) UpdateSettings(ctx context.Context, id domain.SessionID, teacherToken string, upd domain.SettingsUpdate) (*domain.Session, error) {
	if _, err := o.Sessions.SessionByID(ctx, id); err != nil {
		return nil, err
	}
	_, transport, err := o.verifyAdmin(teacherToken, string(id))
	if err != nil {
		return nil, err
	}
	if upd.Language != nil {
		lang := strings.ToLower(strings.TrimSpace(*upd.Language))
		if !domain.IsSupportedLanguage(lang) {
			return nil, fmt.Errorf("%q: %w", lang, domain.ErrUnsupportedLang)
		}
		upd.Language = &lang
	}
	if upd.PIN != nil {
		pin := strings.TrimSpace(*upd.PIN)
		upd.PIN = &pin
	}
	s, err := o.Sessions.UpdateSettings(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "app.orch").Str("session", string(id)).Msg("settings updated")
	if upd.Language != nil {
		o.announceLanguage(ctx, transport, id, s.Language)
	}
	return s, nil
}

// announceLanguage moves live caption routing to the new speaking language.
// The stored setting already changed, so a failed broadcast is only logged.
func (o *Orchestrator) announceLanguage(ctx context.Context, transport core.MediaTransport, id domain.SessionID, lang string) {
	msg, err := domain.NewEnvelope(domain.MsgSettingsChanged, domain.SettingsChanged{Language: lang})
	if err == nil {
		err = transport.SendData(ctx, string(id), msg)
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "app.orch").Str("session", string(id)).Msg("settings broadcast failed")
	}
}
