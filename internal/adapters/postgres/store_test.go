package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/dkeye/Classroom/internal/domain"
)

func newMock(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		mock.Close()
	})
	return NewStore(mock), mock
}

var sessionCols = []string{"id", "room_code", "org_id", "kind", "language", "pin", "teacher_name", "description", "created_at"}

func TestCreateSessionDuplicate(t *testing.T) {
	st, mock := newMock(t)
	sess := &domain.Session{ID: "s-1", RoomCode: "MATH101", OrgID: "org-1", Kind: domain.KindClassroom, Language: "en", CreatedAt: time.Now()}

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs("s-1", "MATH101", pgxmock.AnyArg(), "classroom", "en", "", "", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs("s-1", "MATH101", pgxmock.AnyArg(), "classroom", "en", "", "", "", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	if err := st.CreateSession(context.Background(), sess); err != nil {
		t.Fatal(err)
	}
	if err := st.CreateSession(context.Background(), sess); !errors.Is(err, domain.ErrRoomCodeTaken) {
		t.Fatalf("err = %v, want ErrRoomCodeTaken", err)
	}
}

func TestSessionByCodeScoped(t *testing.T) {
	st, mock := newMock(t)
	org := "org-1"
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery("FROM sessions WHERE room_code = \\$1 AND org_id = \\$2").
		WithArgs("MATH101", "org-1").
		WillReturnRows(mock.NewRows(sessionCols).AddRow("s-1", "MATH101", &org, "speech", "ar", "", "Ms T", "", created))

	sess, err := st.SessionByCode(context.Background(), "MATH101", "org-1")
	if err != nil {
		t.Fatal(err)
	}
	if sess.ID != "s-1" || sess.OrgID != "org-1" || sess.Kind != domain.KindSpeech || !sess.CreatedAt.Equal(created) {
		t.Errorf("session = %+v", sess)
	}
}

func TestSessionByCodeMiss(t *testing.T) {
	st, mock := newMock(t)
	mock.ExpectQuery("ORDER BY created_at LIMIT 1").
		WithArgs("MATH101").
		WillReturnError(pgx.ErrNoRows)

	if _, err := st.SessionByCode(context.Background(), "MATH101", ""); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestSaveSegmentOnConflict(t *testing.T) {
	st, mock := newMock(t)
	seg := domain.Segment{SessionID: "s-1", SegmentID: "seg-42", Language: "en", Source: domain.SourceTranscription, Text: "hi"}
	args := []any{"s-1", "seg-42", "en", "transcription", "hi", "", "", int64(0)}

	mock.ExpectExec("ON CONFLICT \\(session_id, segment_id, language, source_kind\\) DO NOTHING").
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("ON CONFLICT").
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	if ok, err := st.SaveSegment(context.Background(), seg); err != nil || !ok {
		t.Fatalf("first save = %v, %v", ok, err)
	}
	if ok, err := st.SaveSegment(context.Background(), seg); err != nil || ok {
		t.Fatalf("duplicate save = %v, %v, want false nil", ok, err)
	}
}

func TestUpdateSettings(t *testing.T) {
	st, mock := newMock(t)
	lang := "es"
	mock.ExpectQuery("UPDATE sessions").
		WithArgs("s-1", &lang, pgxmock.AnyArg()).
		WillReturnRows(mock.NewRows(sessionCols).AddRow("s-1", "MATH101", nil, "classroom", "es", "9999", "", "", time.Now()))

	sess, err := st.UpdateSettings(context.Background(), "s-1", domain.SettingsUpdate{Language: &lang})
	if err != nil {
		t.Fatal(err)
	}
	if sess.Language != "es" || sess.PIN != "9999" || sess.OrgID != "" {
		t.Errorf("session = %+v", sess)
	}
}

func TestSegmentsList(t *testing.T) {
	st, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery("FROM transcript_segments").
		WithArgs("s-1", "translation").
		WillReturnRows(mock.NewRows([]string{"session_id", "segment_id", "language", "source_kind", "text", "participant_identity", "participant_name", "timestamp_ms", "created_at"}).
			AddRow("s-1", "seg-1", "es", "translation", "hola", "t__1", "T", int64(1200), now).
			AddRow("s-1", "seg-2", "es", "translation", "adios", "t__1", "T", int64(2400), now))

	segs, err := st.Segments(context.Background(), "s-1", domain.SourceTranslation)
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != 2 || segs[1].Text != "adios" || segs[0].Source != domain.SourceTranslation {
		t.Errorf("segments = %+v", segs)
	}
}
