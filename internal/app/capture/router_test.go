package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/Classroom/internal/adapters/memory"
	"github.com/dkeye/Classroom/internal/clock"
	"github.com/dkeye/Classroom/internal/domain"
)

type storeSink struct {
	store *memory.Store
	fail  error
	calls int
}

func (s *storeSink) Persist(ctx context.Context, seg domain.Segment) error {
	s.calls++
	if s.fail != nil {
		return s.fail
	}
	_, err := s.store.SaveSegment(ctx, seg)
	return err
}

func seg(id, lang string, final bool) domain.Segment {
	return domain.Segment{SegmentID: id, Language: lang, Text: "hello", Final: final, ParticipantIdentity: "t__1"}
}

func TestTeacherPersistsSpeakingLanguageOnce(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()
	sink := &storeSink{store: st}
	r := NewRouter("sess-1", "", sink, nil)

	batch := []domain.Segment{seg("seg-42", "en", true), seg("seg-42", "en", true)}
	r.OnSegments(ctx, domain.RoleTeacher, "en", batch)
	r.OnSegments(ctx, domain.RoleTeacher, "en", batch)

	rows, _ := st.Segments(ctx, "sess-1", domain.SourceTranscription)
	if len(rows) != 1 || rows[0].SegmentID != "seg-42" || rows[0].Language != "en" {
		t.Fatalf("rows = %+v, want one seg-42/en", rows)
	}
	if sink.calls != 1 {
		t.Errorf("sink calls = %d, want 1", sink.calls)
	}
}

func TestRouting(t *testing.T) {
	tests := []struct {
		name     string
		role     domain.Role
		caption  string
		speaking string
		segs     []domain.Segment
		want     int
		source   domain.SourceKind
	}{
		{"interim never persisted", domain.RoleTeacher, "", "en", []domain.Segment{seg("a", "en", false)}, 0, ""},
		{"teacher skips translations", domain.RoleTeacher, "", "en", []domain.Segment{seg("a", "es", true)}, 0, ""},
		{"student persists its caption language", domain.RoleStudent, "es", "en", []domain.Segment{seg("a", "es", true), seg("a", "en", true), seg("b", "fr", true)}, 1, domain.SourceTranslation},
		{"student with speaking language persists nothing", domain.RoleStudent, "en", "en", []domain.Segment{seg("a", "en", true)}, 0, ""},
		{"speaker is a student", domain.RoleStudentSpeaker, "de", "en", []domain.Segment{seg("a", "de", true)}, 1, domain.SourceTranslation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := memory.NewStore()
			r := NewRouter("sess-1", tt.caption, &storeSink{store: st}, nil)
			if got := r.OnSegments(context.Background(), tt.role, tt.speaking, tt.segs); got != tt.want {
				t.Errorf("persisted = %d, want %d", got, tt.want)
			}
			if tt.want > 0 {
				rows, _ := st.Segments(context.Background(), "sess-1", tt.source)
				if len(rows) != tt.want {
					t.Errorf("rows with source %s = %d, want %d", tt.source, len(rows), tt.want)
				}
			}
		})
	}
}

func TestFailedPersistCanRetry(t *testing.T) {
	ctx := context.Background()
	sink := &storeSink{store: memory.NewStore(), fail: errors.New("503")}
	r := NewRouter("sess-1", "", sink, nil)

	if n := r.OnSegments(ctx, domain.RoleTeacher, "en", []domain.Segment{seg("seg-1", "en", true)}); n != 0 {
		t.Fatalf("persisted = %d during outage", n)
	}
	sink.fail = nil
	if n := r.OnSegments(ctx, domain.RoleTeacher, "en", []domain.Segment{seg("seg-1", "en", true)}); n != 1 {
		t.Errorf("retry persisted = %d, want 1", n)
	}
}

func TestTimestampsAreRelativeToSessionStart(t *testing.T) {
	fc := clock.Fake(time.Unix(1000, 0))
	st := memory.NewStore()
	r := NewRouter("sess-1", "", &storeSink{store: st}, fc)
	fc.Advance(1500 * time.Millisecond)
	r.OnSegments(context.Background(), domain.RoleTeacher, "en", []domain.Segment{seg("a", "en", true)})

	rows, _ := st.Segments(context.Background(), "sess-1", "")
	if len(rows) != 1 || rows[0].TimestampMs != 1500 {
		t.Fatalf("rows = %+v, want timestamp 1500", rows)
	}

	r.Reset()
	if n := r.OnSegments(context.Background(), domain.RoleTeacher, "en", []domain.Segment{seg("a", "en", true)}); n != 1 {
		t.Errorf("after reset persisted = %d, want 1 (store dedups)", n)
	}
	rows, _ = st.Segments(context.Background(), "sess-1", "")
	if len(rows) != 1 {
		t.Errorf("rows after reconnect = %d, want 1", len(rows))
	}

	fc.Advance(time.Second)
	r.OnSegments(context.Background(), domain.RoleTeacher, "en", []domain.Segment{seg("b", "en", true)})
	rows, _ = st.Segments(context.Background(), "sess-1", "")
	if len(rows) != 2 || rows[1].TimestampMs != 2500 {
		t.Errorf("rows = %+v, want second timestamp 2500 from the first join", rows)
	}
}

func TestCaptionLanguageChange(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()
	r := NewRouter("sess-1", "es", &storeSink{store: st}, nil)

	r.OnSegments(ctx, domain.RoleStudent, "en", []domain.Segment{seg("a", "es", true), seg("a", "fr", true)})
	r.SetCaptionLanguage("fr")
	r.OnSegments(ctx, domain.RoleStudent, "en", []domain.Segment{seg("b", "es", true), seg("b", "fr", true)})
	r.SetCaptionLanguage("en")
	if n := r.OnSegments(ctx, domain.RoleStudent, "en", []domain.Segment{seg("c", "en", true)}); n != 0 {
		t.Errorf("caption in speaking language persisted %d", n)
	}

	rows, _ := st.Segments(ctx, "sess-1", domain.SourceTranslation)
	if len(rows) != 2 || rows[0].Language == rows[1].Language {
		t.Fatalf("rows = %+v, want one es and one fr translation", rows)
	}
	for _, row := range rows {
		want := map[string]string{"a": "es", "b": "fr"}[row.SegmentID]
		if row.Language != want {
			t.Errorf("segment %s persisted in %s, want %s", row.SegmentID, row.Language, want)
		}
	}
}
