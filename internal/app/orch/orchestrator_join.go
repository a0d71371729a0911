package orch

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/app/resolver"
	"github.com/dkeye/Classroom/internal/domain"
)

// JoinRequest carries the connection-details query.
type JoinRequest struct {
	RoomCode        string
	ParticipantName string
	Classroom       bool
	Role            string
	Language        string
	Region          string
	Org             string
	PIN             string
}

type ConnectionDetails struct {
	ServerURL        string `json:"serverUrl"`
	RoomName         string `json:"roomName"`
	ParticipantToken string `json:"participantToken"`
	ParticipantName  string `json:"participantName"`
	Identity         string `json:"participantIdentity"`
	RoomType         string `json:"roomType"`
	// SpeakingLanguage is the language captions are produced from.
	SpeakingLanguage string `json:"speakingLanguage"`
}

// Join resolves the room code, makes sure the media room exists and issues a
// role scoped token. The returned room name is the durable session id.
// Codes outside the registered pattern can only name instant rooms.
func (o *Orchestrator) Join(ctx context.Context, req JoinRequest) (ConnectionDetails, error) {
	registrable := domain.ValidateRoomCode(req.RoomCode) == nil
	if !registrable {
		if err := domain.ValidateAdHocCode(req.RoomCode); err != nil {
			return ConnectionDetails{}, err
		}
	}
	identity, err := domain.NewIdentity(req.ParticipantName)
	if err != nil {
		return ConnectionDetails{}, err
	}
	role := domain.ParseRole(req.Role)

	res := resolver.Resolution{SessionID: domain.SessionID(req.RoomCode)}
	if registrable {
		res, err = o.Resolver.Resolve(ctx, domain.RoomCode(req.RoomCode), domain.OrgID(req.Org))
		if err != nil {
			return ConnectionDetails{}, err
		}
	}
	sess := res.Session
	if !res.Found {
		kind := domain.KindMeeting
		if req.Classroom {
			kind = domain.KindClassroom
		}
		sess = domain.AdHocSession(domain.RoomCode(req.RoomCode), kind, domain.DefaultLanguage)
	}
	if sess.HasPIN() && !role.IsTeacher() && req.PIN != sess.PIN {
		return ConnectionDetails{}, domain.ErrInvalidPIN
	}

	// The teacher always speaks the session language; changing it goes
	// through UpdateSettings so every listener routes captions the same way.
	lang := strings.ToLower(strings.TrimSpace(req.Language))
	if role.IsTeacher() || lang == "" || !domain.IsSupportedLanguage(lang) {
		lang = sess.Language
	}
	creds, err := o.Credentials.SelectConfigured(sess.Language)
	if err != nil {
		return ConnectionDetails{}, err
	}
	if err := o.Resolver.EnsureMediaRoom(ctx, o.Transports.Transport(creds), res.SessionID); err != nil {
		return ConnectionDetails{}, err
	}

	p := domain.Participant{
		Identity: identity,
		Name:     strings.TrimSpace(req.ParticipantName),
		Role:     role,
		Language: lang,
	}
	if res.Found {
		o.Resolver.RecordParticipation(ctx, res.SessionID, p, o.Clock.Now())
	}
	tok, err := o.Issuer.Issue(ctx, p, sess, creds)
	if err != nil {
		return ConnectionDetails{}, fmt.Errorf("issue token: %w", err)
	}

	log.Info().Str("module", "app.orch").
		Str("room", string(res.SessionID)).
		Str("identity", identity).
		Str("role", string(role)).
		Str("backend", creds.Name).
		Bool("registered", res.Found).
		Msg("join")
	return ConnectionDetails{
		ServerURL:        creds.URLFor(req.Region),
		RoomName:         string(res.SessionID),
		ParticipantToken: tok.JWT,
		ParticipantName:  p.Name,
		Identity:         identity,
		RoomType:         string(sess.Kind),
		SpeakingLanguage: sess.Language,
	}, nil
}
