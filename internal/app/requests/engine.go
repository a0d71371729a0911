package requests

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/clock"
	"github.com/dkeye/Classroom/internal/domain"
)

// Publisher puts a message on the room broadcast channel.
type Publisher interface {
	Publish(ctx context.Context, data []byte) error
}

// Claimer holds the server side pending slot of a student.
type Claimer interface {
	Claim(ctx context.Context, r domain.Request) error
	Release(ctx context.Context, r domain.Request) error
}

// Approver is the teacher's authenticated path into the server. Approve
// grants publish rights to the requester; Resolve frees its pending slot.
type Approver interface {
	Approve(ctx context.Context, r domain.Request) error
	Resolve(ctx context.Context, r domain.Request, st domain.RequestStatus) error
}

// Engine carries out one participant's request actions.
type Engine struct {
	self     domain.Participant
	board    *Board
	pub      Publisher
	claimer  Claimer
	approver Approver
	clock    clock.Clock
	logger   zerolog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

type EngineOption func(*Engine)

func WithClaimer(c Claimer) EngineOption   { return func(e *Engine) { e.claimer = c } }
func WithApprover(a Approver) EngineOption { return func(e *Engine) { e.approver = a } }
func WithClock(c clock.Clock) EngineOption { return func(e *Engine) { e.clock = c } }

func NewEngine(self domain.Participant, board *Board, pub Publisher, opts ...EngineOption) *Engine {
	e := &Engine{
		self:     self,
		board:    board,
		pub:      pub,
		clock:    clock.Real(),
		logger:   log.With().Str("module", "app.requests").Str("identity", self.Identity).Logger(),
		inflight: make(map[string]struct{}),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Board() *Board { return e.board }

// Submit raises a hand. A student has at most one pending request.
func (e *Engine) Submit(ctx context.Context, typ domain.RequestType, question string) (domain.Request, error) {
	if e.self.Role.IsTeacher() {
		return domain.Request{}, domain.ErrForbidden
	}
	question = strings.TrimSpace(question)
	switch typ {
	case domain.RequestVoice:
	case domain.RequestText:
		if question == "" {
			return domain.Request{}, fmt.Errorf("question: %w", domain.ErrMissingField)
		}
	default:
		return domain.Request{}, fmt.Errorf("request type %q: %w", typ, domain.ErrMissingField)
	}
	if _, busy := e.board.PendingFor(e.self.Identity); busy {
		return domain.Request{}, domain.ErrRequestPending
	}

	r := domain.NewRequest(e.self.Identity, e.self.Name, typ, question, e.clock.Now())
	if e.claimer != nil {
		if err := e.claimer.Claim(ctx, r); err != nil {
			return domain.Request{}, fmt.Errorf("claim pending slot: %w", err)
		}
	}
	e.board.AddRequest(r)

	msg, err := domain.NewEnvelope(domain.MsgStudentRequest, r)
	if err == nil {
		err = e.pub.Publish(ctx, msg)
	}
	if err != nil {
		e.board.forget(r.ID)
		if e.claimer != nil {
			if rerr := e.claimer.Release(ctx, r); rerr != nil {
				e.logger.Warn().Err(rerr).Str("request", r.ID).Msg("release pending slot")
			}
		}
		return domain.Request{}, fmt.Errorf("publish student_request: %w", err)
	}
	e.logger.Info().Str("request", r.ID).Str("type", string(typ)).Msg("request submitted")
	return r, nil
}

// Approve lets a voice requester speak.
func (e *Engine) Approve(ctx context.Context, id string) error {
	r, done, err := e.begin(id, domain.StatusApproved)
	if err != nil {
		return err
	}
	defer done()

	e.board.ApplyUpdate(id, domain.StatusApproved)
	if e.approver != nil {
		if err := e.approver.Approve(ctx, r); err != nil {
			e.board.restore(r)
			return fmt.Errorf("approve %s: %w", id, err)
		}
	}
	return e.publishUpdate(ctx, id, domain.StatusApproved)
}

func (e *Engine) Decline(ctx context.Context, id string) error {
	return e.resolve(ctx, id, domain.StatusDeclined)
}

func (e *Engine) MarkAnswered(ctx context.Context, id string) error {
	return e.resolve(ctx, id, domain.StatusAnswered)
}

func (e *Engine) resolve(ctx context.Context, id string, st domain.RequestStatus) error {
	r, done, err := e.begin(id, st)
	if err != nil {
		return err
	}
	defer done()

	e.board.ApplyUpdate(id, st)
	if err := e.publishUpdate(ctx, id, st); err != nil {
		return err
	}
	if e.approver != nil {
		if err := e.approver.Resolve(ctx, r, st); err != nil {
			e.logger.Warn().Err(err).Str("request", id).Msg("release pending slot")
		}
	}
	return nil
}

// Display shows or hides a text question for the whole room.
func (e *Engine) Display(ctx context.Context, id string, show bool) error {
	if !e.self.Role.IsTeacher() {
		return domain.ErrForbidden
	}
	r, ok := e.board.Get(id)
	if !ok {
		return domain.ErrRequestNotFound
	}
	if r.Type != domain.RequestText {
		return domain.ErrInvalidTransition
	}
	if show && r.Status != domain.StatusDisplayed && !domain.CanTransition(r.Type, r.Status, domain.StatusDisplayed) {
		return domain.ErrInvalidTransition
	}
	done, err := e.enter(id)
	if err != nil {
		return err
	}
	defer done()

	d := domain.RequestDisplay{RequestID: id, Question: r.Question, StudentName: r.RequesterName, Display: show}
	e.board.ApplyDisplay(d)
	msg, err := domain.NewEnvelope(domain.MsgRequestDisplay, d)
	if err == nil {
		err = e.pub.Publish(ctx, msg)
	}
	if err != nil {
		e.logger.Warn().Err(err).Str("request", id).Msg("request_display broadcast failed")
	}
	// A displayed question no longer counts as pending, so its author may
	// ask again.
	if show && r.Status == domain.StatusPending && e.approver != nil {
		if err := e.approver.Resolve(ctx, r, domain.StatusDisplayed); err != nil {
			e.logger.Warn().Err(err).Str("request", id).Msg("release pending slot")
		}
	}
	return nil
}

// begin validates a teacher decision and marks the request in flight.
func (e *Engine) begin(id string, to domain.RequestStatus) (domain.Request, func(), error) {
	if !e.self.Role.IsTeacher() {
		return domain.Request{}, nil, domain.ErrForbidden
	}
	r, ok := e.board.Get(id)
	if !ok {
		return domain.Request{}, nil, domain.ErrRequestNotFound
	}
	if !domain.CanTransition(r.Type, r.Status, to) {
		return domain.Request{}, nil, fmt.Errorf("%s -> %s: %w", r.Status, to, domain.ErrInvalidTransition)
	}
	done, err := e.enter(id)
	if err != nil {
		return domain.Request{}, nil, err
	}
	return r, done, nil
}

func (e *Engine) enter(id string) (func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[id]; busy {
		return nil, domain.ErrRequestInFlight
	}
	e.inflight[id] = struct{}{}
	return func() {
		e.mu.Lock()
		delete(e.inflight, id)
		e.mu.Unlock()
	}, nil
}

// Broadcast loss is not surfaced; a lost update leaves peers stale until
// the next decision on the same request.
func (e *Engine) publishUpdate(ctx context.Context, id string, st domain.RequestStatus) error {
	msg, err := domain.NewEnvelope(domain.MsgRequestUpdate, domain.RequestUpdate{RequestID: id, Status: st})
	if err != nil {
		return err
	}
	if err := e.pub.Publish(ctx, msg); err != nil {
		e.logger.Warn().Err(err).Str("request", id).Str("status", string(st)).Msg("request_update broadcast failed")
		return nil
	}
	e.logger.Info().Str("request", id).Str("status", string(st)).Msg("request updated")
	return nil
}
