package resolver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dkeye/Classroom/internal/adapters/memory"
	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/domain"
)

type fakeTransport struct {
	mu        sync.Mutex
	rooms     map[string]time.Duration
	creates   atomic.Int32
	createErr error
	gate      chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{rooms: make(map[string]time.Duration)}
}

func (f *fakeTransport) RoomExists(_ context.Context, room string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rooms[room]
	return ok, nil
}

func (f *fakeTransport) CreateRoom(_ context.Context, room string, emptyTimeout time.Duration) error {
	if f.gate != nil {
		<-f.gate
	}
	f.creates.Add(1)
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rooms[room]; ok {
		return core.ErrRoomExists
	}
	f.rooms[room] = emptyTimeout
	return nil
}

func (f *fakeTransport) UpdatePermission(context.Context, string, string, domain.Grant) error {
	return nil
}

func (f *fakeTransport) SendData(context.Context, string, []byte) error { return nil }

func TestResolveFallsBackToAdHoc(t *testing.T) {
	r := New(memory.NewStore(), nil, 0)
	res, err := r.Resolve(context.Background(), "MATH101", "org-unknown")
	if err != nil {
		t.Fatal(err)
	}
	if res.Found || res.SessionID != "MATH101" {
		t.Errorf("res = %+v, want ad-hoc MATH101", res)
	}
}

func TestResolveScopedByOrg(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()
	a := &domain.Session{ID: "s-a", RoomCode: "MATH101", OrgID: "org-a", Kind: domain.KindClassroom}
	b := &domain.Session{ID: "s-b", RoomCode: "MATH101", OrgID: "org-b", Kind: domain.KindClassroom, CreatedAt: time.Now().Add(time.Hour)}
	for _, s := range []*domain.Session{a, b} {
		if err := st.CreateSession(ctx, s); err != nil {
			t.Fatal(err)
		}
	}
	r := New(st, st, 0)

	res, _ := r.Resolve(ctx, "MATH101", "org-b")
	if !res.Found || res.SessionID != "s-b" {
		t.Errorf("scoped = %+v, want s-b", res)
	}
	res, _ = r.Resolve(ctx, "MATH101", "")
	if !res.Found || res.SessionID != "s-a" {
		t.Errorf("unscoped = %+v, want oldest s-a", res)
	}
}

func TestEnsureMediaRoomConcurrent(t *testing.T) {
	ft := newFakeTransport()
	ft.gate = make(chan struct{})
	r := New(memory.NewStore(), nil, time.Hour)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- r.EnsureMediaRoom(context.Background(), ft, "sess-1")
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(ft.gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("EnsureMediaRoom: %v", err)
		}
	}
	if got := len(ft.rooms); got != 1 {
		t.Errorf("rooms = %d, want 1", got)
	}
	if ft.rooms["sess-1"] != time.Hour {
		t.Errorf("empty timeout = %v, want 1h", ft.rooms["sess-1"])
	}
}

func TestEnsureMediaRoomSwallowsRace(t *testing.T) {
	ft := newFakeTransport()
	ft.createErr = core.ErrRoomExists
	r := New(memory.NewStore(), nil, 0)
	if err := r.EnsureMediaRoom(context.Background(), ft, "sess-1"); err != nil {
		t.Fatalf("err = %v, want nil", err)
	}

	ft.createErr = errors.New("boom")
	if err := r.EnsureMediaRoom(context.Background(), ft, "sess-2"); err == nil {
		t.Fatal("want create failure to surface")
	}
}

func TestEnsureMediaRoomSkipsExisting(t *testing.T) {
	ft := newFakeTransport()
	ft.rooms["sess-1"] = time.Minute
	r := New(memory.NewStore(), nil, 0)
	if err := r.EnsureMediaRoom(context.Background(), ft, "sess-1"); err != nil {
		t.Fatal(err)
	}
	if ft.creates.Load() != 0 {
		t.Errorf("creates = %d, want 0", ft.creates.Load())
	}
}

type failingParticipations struct{ calls int }

func (f *failingParticipations) RecordParticipation(context.Context, domain.Participation) error {
	f.calls++
	return errors.New("db down")
}

func TestRecordParticipationIsBestEffort(t *testing.T) {
	fp := &failingParticipations{}
	r := New(memory.NewStore(), fp, 0)
	r.RecordParticipation(context.Background(), "s", domain.Participant{Identity: "a"}, time.Now())
	if fp.calls != 1 {
		t.Errorf("calls = %d, want 1", fp.calls)
	}
}
