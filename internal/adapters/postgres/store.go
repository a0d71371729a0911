// Package postgres implements the durable stores on top of pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Classroom/internal/domain"
)

// DB is the subset of *pgxpool.Pool the stores use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolation = "23505"

type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Connect opens and pings a pool.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Info().Str("module", "adapters.postgres").Msg("connected")
	return pool, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

const sessionColumns = `id, room_code, org_id, kind, language, pin, teacher_name, description, created_at`

func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, query,
		string(sess.ID),
		string(sess.RoomCode),
		nullable(string(sess.OrgID)),
		string(sess.Kind),
		sess.Language,
		sess.PIN,
		sess.TeacherName,
		sess.Description,
		sess.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrRoomCodeTaken
	}
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		sess     domain.Session
		id, code string
		org      *string
		kind     string
	)
	err := row.Scan(
		&id,
		&code,
		&org,
		&kind,
		&sess.Language,
		&sess.PIN,
		&sess.TeacherName,
		&sess.Description,
		&sess.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	sess.ID = domain.SessionID(id)
	sess.RoomCode = domain.RoomCode(code)
	if org != nil {
		sess.OrgID = domain.OrgID(*org)
	}
	sess.Kind = domain.SessionKind(kind)
	return &sess, nil
}

func (s *Store) SessionByID(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	sess, err := scanSession(s.db.QueryRow(ctx, query, string(id)))
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, fmt.Errorf("get session by id: %w", err)
	}
	return sess, err
}

func (s *Store) SessionByCode(ctx context.Context, code domain.RoomCode, org domain.OrgID) (*domain.Session, error) {
	var row pgx.Row
	if org != "" {
		query := `SELECT ` + sessionColumns + ` FROM sessions WHERE room_code = $1 AND org_id = $2`
		row = s.db.QueryRow(ctx, query, string(code), string(org))
	} else {
		query := `SELECT ` + sessionColumns + ` FROM sessions WHERE room_code = $1 ORDER BY created_at LIMIT 1`
		row = s.db.QueryRow(ctx, query, string(code))
	}
	sess, err := scanSession(row)
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, fmt.Errorf("get session by code: %w", err)
	}
	return sess, err
}

func (s *Store) UpdateSettings(ctx context.Context, id domain.SessionID, upd domain.SettingsUpdate) (*domain.Session, error) {
	query := `
		UPDATE sessions
		SET language = coalesce($2, language),
		    pin = coalesce($3, pin)
		WHERE id = $1
		RETURNING ` + sessionColumns
	sess, err := scanSession(s.db.QueryRow(ctx, query, string(id), upd.Language, upd.PIN))
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, fmt.Errorf("update session settings: %w", err)
	}
	return sess, err
}

func (s *Store) RecordParticipation(ctx context.Context, p domain.Participation) error {
	query := `
		INSERT INTO participations (session_id, identity, name, role, joined_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.Exec(ctx, query, string(p.SessionID), p.Identity, p.Name, string(p.Role), p.JoinedAt)
	if err != nil {
		return fmt.Errorf("record participation: %w", err)
	}
	return nil
}

// SaveSegment inserts at most one row per segment key.
func (s *Store) SaveSegment(ctx context.Context, seg domain.Segment) (bool, error) {
	query := `
		INSERT INTO transcript_segments
			(session_id, segment_id, language, source_kind, text, participant_identity, participant_name, timestamp_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id, segment_id, language, source_kind) DO NOTHING
	`
	tag, err := s.db.Exec(ctx, query,
		string(seg.SessionID),
		seg.SegmentID,
		seg.Language,
		string(seg.Source),
		seg.Text,
		seg.ParticipantIdentity,
		seg.ParticipantName,
		seg.TimestampMs,
	)
	if err != nil {
		return false, fmt.Errorf("save segment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) Segments(ctx context.Context, id domain.SessionID, source domain.SourceKind) ([]domain.StoredSegment, error) {
	query := `
		SELECT session_id, segment_id, language, source_kind, text, participant_identity, participant_name, timestamp_ms, created_at
		FROM transcript_segments
		WHERE session_id = $1 AND ($2 = '' OR source_kind = $2)
		ORDER BY timestamp_ms, id
	`
	rows, err := s.db.Query(ctx, query, string(id), string(source))
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	out := []domain.StoredSegment{}
	for rows.Next() {
		var (
			seg     domain.StoredSegment
			session string
			src     string
		)
		if err := rows.Scan(
			&session,
			&seg.SegmentID,
			&seg.Language,
			&src,
			&seg.Text,
			&seg.ParticipantIdentity,
			&seg.ParticipantName,
			&seg.TimestampMs,
			&seg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		seg.SessionID = domain.SessionID(session)
		seg.Source = domain.SourceKind(src)
		seg.Final = true
		out = append(out, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	return out, nil
}
