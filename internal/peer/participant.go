package peer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/app/capture"
	"github.com/dkeye/Classroom/internal/app/orch"
	"github.com/dkeye/Classroom/internal/app/permissions"
	"github.com/dkeye/Classroom/internal/app/requests"
	"github.com/dkeye/Classroom/internal/clock"
	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/domain"
)

// Event is reported for every message the participant consumed.
type Event struct {
	Type   string
	Notice *permissions.Notice
}

type Options struct {
	Clock   clock.Clock
	OnEvent func(Event)
}

// Participant is one joined connection.
type Participant struct {
	Details  orch.ConnectionDetails
	Self     domain.Participant
	Board    *requests.Board
	Requests *requests.Engine
	Inbox    *permissions.Inbox
	Captions *capture.Router

	api     *API
	onEvent func(Event)
	logger  zerolog.Logger

	mu         sync.Mutex
	conn       *Conn
	speaking   string
	canPublish bool
	members    map[string]core.MemberDTO
}

// Join fetches connection details and opens the data channel.
func Join(ctx context.Context, api *API, req orch.JoinRequest, opts Options) (*Participant, error) {
	details, err := api.Join(ctx, req)
	if err != nil {
		return nil, err
	}
	speaking := details.SpeakingLanguage
	if speaking == "" {
		speaking = domain.DefaultLanguage
	}
	conn, err := Dial(ctx, api.DataURL(details.ParticipantToken))
	if err != nil {
		return nil, err
	}

	role := domain.ParseRole(req.Role)
	lang := req.Language
	if role.IsTeacher() {
		lang = speaking
	}
	self := domain.Participant{Identity: details.Identity, Name: details.ParticipantName, Role: role, Language: lang}
	sl := &slots{api: api, room: details.RoomName, token: details.ParticipantToken, teacher: role.IsTeacher()}

	engineOpts := []requests.EngineOption{}
	if opts.Clock != nil {
		engineOpts = append(engineOpts, requests.WithClock(opts.Clock))
	}
	if role.IsTeacher() {
		engineOpts = append(engineOpts, requests.WithApprover(sl))
	} else {
		engineOpts = append(engineOpts, requests.WithClaimer(sl))
	}
	board := requests.NewBoard()
	kind, err := domain.ParseSessionKind(details.RoomType)
	if err != nil {
		kind = domain.KindMeeting
	}

	p := &Participant{
		Details:  details,
		Self:     self,
		Board:    board,
		Inbox:    permissions.NewInbox(details.Identity, opts.Clock),
		Captions: capture.NewRouter(domain.SessionID(details.RoomName), req.Language, segmentSink{api: api}, opts.Clock),
		api:      api,
		conn:     conn,
		speaking: speaking,
		onEvent:  opts.OnEvent,
		logger: log.With().Str("module", "peer").
			Str("room", details.RoomName).
			Str("identity", details.Identity).Logger(),
		members:    make(map[string]core.MemberDTO),
		canPublish: domain.GrantFor(kind, role, 0).CanPublish,
	}
	p.Requests = requests.NewEngine(self, board, p, engineOpts...)
	p.logger.Info().Str("role", string(role)).Str("room_type", details.RoomType).Msg("joined")
	return p, nil
}

// Run consumes the data channel until it closes or ctx is done. A channel
// replaced by Reconnect is followed onto its successor.
func (p *Participant) Run(ctx context.Context) error {
	for {
		c := p.current()
		err := c.Run(ctx, func(data []byte) { p.handle(ctx, data) })
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil
		}
		if p.current() == c {
			return err
		}
	}
}

// Reconnect opens a fresh data channel with the same token and drops the
// state the old one built up. The server replaces the old member with the
// new one and replays the room roster.
func (p *Participant) Reconnect(ctx context.Context) error {
	conn, err := Dial(ctx, p.api.DataURL(p.Details.ParticipantToken))
	if err != nil {
		return err
	}
	p.mu.Lock()
	old := p.conn
	p.conn = conn
	p.members = make(map[string]core.MemberDTO)
	p.mu.Unlock()
	_ = old.Close()

	p.Board.Reset()
	p.Inbox.Reset()
	p.Captions.Reset()
	p.logger.Info().Msg("reconnected")
	return nil
}

func (p *Participant) Close() error { return p.current().Close() }

// Publish sends on whichever data channel is current.
func (p *Participant) Publish(ctx context.Context, data []byte) error {
	return p.current().Publish(ctx, data)
}

func (p *Participant) current() *Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn
}

// SpeakingLanguage is the language captions are transcribed from.
func (p *Participant) SpeakingLanguage() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speaking
}

// SetCaptionLanguage switches the translation a student persists from now on.
func (p *Participant) SetCaptionLanguage(lang string) error {
	if !domain.IsSupportedLanguage(lang) {
		return fmt.Errorf("%q: %w", lang, domain.ErrUnsupportedLang)
	}
	p.Captions.SetCaptionLanguage(lang)
	p.logger.Info().Str("language", lang).Msg("caption language changed")
	return nil
}

// SetSessionLanguage changes what the teacher speaks for the whole session.
// Every connection, this one included, follows the settings_changed
// broadcast.
func (p *Participant) SetSessionLanguage(ctx context.Context, lang string) error {
	s, err := p.api.UpdateSettings(ctx, domain.SessionID(p.Details.RoomName), p.Details.ParticipantToken, domain.SettingsUpdate{Language: &lang})
	if err != nil {
		return err
	}
	p.setSpeaking(s.Language)
	return nil
}

func (p *Participant) setSpeaking(lang string) {
	p.mu.Lock()
	p.speaking = lang
	p.mu.Unlock()
	p.logger.Info().Str("language", lang).Msg("speaking language changed")
}

// Grant and Revoke change a student's publish rights. Teacher only.
func (p *Participant) Grant(ctx context.Context, identity string) error {
	return p.setPermission(ctx, identity, domain.ActionGrant)
}

func (p *Participant) Revoke(ctx context.Context, identity string) error {
	return p.setPermission(ctx, identity, domain.ActionRevoke)
}

func (p *Participant) setPermission(ctx context.Context, identity string, a domain.PermissionAction) error {
	return p.api.SetPermission(ctx, orch.PermissionRequest{
		RoomName:       p.Details.RoomName,
		TargetIdentity: identity,
		Action:         string(a),
		TeacherToken:   p.Details.ParticipantToken,
	})
}

// PublishTranscription relays a caption batch the way the transcription
// agent does on a media server.
func (p *Participant) PublishTranscription(ctx context.Context, speaker string, segs []domain.Segment) error {
	msg, err := domain.NewEnvelope(domain.MsgTranscription, domain.TranscriptionBatch{ParticipantIdentity: speaker, Segments: segs})
	if err != nil {
		return err
	}
	return p.Publish(ctx, msg)
}

func (p *Participant) CanPublish() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.canPublish
}

// Members is the last known room roster, excluding the local participant.
func (p *Participant) Members() []core.MemberDTO {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.MemberDTO, 0, len(p.members))
	for _, m := range p.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

type memberFrame struct {
	Member  core.MemberDTO   `json:"member"`
	Members []core.MemberDTO `json:"members"`
}

type permissionsFrame struct {
	CanPublish bool `json:"canPublish"`
}

func (p *Participant) handle(ctx context.Context, data []byte) {
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		p.logger.Warn().Err(err).Msg("undecodable message")
		return
	}
	ev := Event{Type: env.Type}

	switch env.Type {
	case domain.MsgStudentRequest, domain.MsgRequestUpdate, domain.MsgRequestDisplay:
		if err := p.Board.Handle(env); err != nil {
			p.logger.Warn().Err(err).Str("type", env.Type).Msg("request message dropped")
			return
		}
	case domain.MsgPermissionUpdate:
		if n, ok := p.Inbox.Handle(env); ok {
			ev.Notice = &n
		}
	case domain.MsgTranscription:
		var b domain.TranscriptionBatch
		if err := json.Unmarshal(env.Payload, &b); err != nil {
			p.logger.Warn().Err(err).Msg("transcription dropped")
			return
		}
		for i := range b.Segments {
			if b.Segments[i].ParticipantIdentity == "" {
				b.Segments[i].ParticipantIdentity = b.ParticipantIdentity
			}
		}
		if n := p.Captions.OnSegments(ctx, p.Self.Role, p.SpeakingLanguage(), b.Segments); n > 0 {
			p.logger.Debug().Int("persisted", n).Msg("captions")
		}
	case domain.MsgPermissionsChanged:
		var st permissionsFrame
		if err := json.Unmarshal(env.Payload, &st); err == nil {
			p.mu.Lock()
			p.canPublish = st.CanPublish
			p.mu.Unlock()
			p.logger.Info().Bool("can_publish", st.CanPublish).Msg("permissions changed")
		}
	case domain.MsgSettingsChanged:
		var st domain.SettingsChanged
		if err := json.Unmarshal(env.Payload, &st); err != nil || !domain.IsSupportedLanguage(st.Language) {
			p.logger.Warn().Str("type", env.Type).Msg("settings message dropped")
			return
		}
		p.setSpeaking(st.Language)
	case "room_state", "member_joined", "member_left":
		p.roster(env.Type, data)
	case "error":
		p.logger.Warn().RawJSON("frame", data).Msg("server error")
	}

	if p.onEvent != nil {
		p.onEvent(ev)
	}
}

func (p *Participant) roster(typ string, data []byte) {
	var f memberFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	switch typ {
	case "room_state":
		p.members = make(map[string]core.MemberDTO, len(f.Members))
		for _, m := range f.Members {
			if m.Identity != p.Self.Identity {
				p.members[m.Identity] = m
			}
		}
	case "member_joined":
		p.members[f.Member.Identity] = f.Member
	case "member_left":
		delete(p.members, f.Member.Identity)
	}
}
