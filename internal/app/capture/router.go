// Package capture decides which live caption segments a connection persists.
package capture

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/clock"
	"github.com/dkeye/Classroom/internal/domain"
)

// Sink persists one segment. Source tells transcription from translation.
type Sink interface {
	Persist(ctx context.Context, seg domain.Segment) error
}

type dedupKey struct {
	segmentID string
	language  string
}

// Router is per connection. Its dedup cache only spans the connection; the
// store's unique key is what makes persistence exactly-once.
type Router struct {
	session         domain.SessionID
	captionLanguage string
	sink            Sink
	clock           clock.Clock
	logger          zerolog.Logger

	mu        sync.Mutex
	startedAt time.Time
	seen      map[dedupKey]struct{}
}

// NewRouter binds a connection to the durable session id returned by the
// join. captionLanguage is the student's chosen language and is ignored for
// teachers.
func NewRouter(session domain.SessionID, captionLanguage string, sink Sink, c clock.Clock) *Router {
	if c == nil {
		c = clock.Real()
	}
	return &Router{
		session:         session,
		captionLanguage: captionLanguage,
		sink:            sink,
		clock:           c,
		logger:          log.With().Str("module", "app.capture").Str("session", string(session)).Logger(),
		startedAt:       c.Now(),
		seen:            make(map[dedupKey]struct{}),
	}
}

// Reset forgets the dedup history; called on reconnect. Timestamps keep
// counting from the first join so a session's transcript stays ordered.
func (r *Router) Reset() {
	r.mu.Lock()
	r.seen = make(map[dedupKey]struct{})
	r.mu.Unlock()
}

// SetCaptionLanguage switches the language a student persists translations
// for. Segments already persisted are kept.
func (r *Router) SetCaptionLanguage(lang string) {
	r.mu.Lock()
	r.captionLanguage = lang
	r.mu.Unlock()
}

// OnSegments persists the final segments this role is responsible for and
// returns how many were handed to the sink. Failures are logged only.
func (r *Router) OnSegments(ctx context.Context, role domain.Role, speakingLanguage string, segs []domain.Segment) int {
	n := 0
	for _, s := range segs {
		src, ok := r.route(role, speakingLanguage, s)
		if !ok {
			continue
		}
		k := dedupKey{segmentID: s.SegmentID, language: s.Language}
		if !r.claim(k) {
			continue
		}
		s.SessionID = r.session
		s.Source = src
		s.TimestampMs = r.elapsedMs()
		if err := r.sink.Persist(ctx, s); err != nil {
			r.unclaim(k)
			r.logger.Warn().Err(err).Str("segment", s.SegmentID).Str("language", s.Language).Msg("persist segment failed")
			continue
		}
		n++
	}
	return n
}

func (r *Router) route(role domain.Role, speakingLanguage string, s domain.Segment) (domain.SourceKind, bool) {
	if !s.Final || s.SegmentID == "" {
		return "", false
	}
	if role.IsTeacher() {
		return domain.SourceTranscription, s.Language == speakingLanguage
	}
	r.mu.Lock()
	caption := r.captionLanguage
	r.mu.Unlock()
	if caption == "" || caption == speakingLanguage {
		return "", false
	}
	return domain.SourceTranslation, s.Language == caption
}

func (r *Router) claim(k dedupKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.seen[k]; dup {
		return false
	}
	r.seen[k] = struct{}{}
	return true
}

func (r *Router) unclaim(k dedupKey) {
	r.mu.Lock()
	delete(r.seen, k)
	r.mu.Unlock()
}

func (r *Router) elapsedMs() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clock.Now().Sub(r.startedAt).Milliseconds()
}
