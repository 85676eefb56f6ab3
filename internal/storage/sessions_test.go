package storage

import (
	"errors"
	"testing"
)

func TestSessionLifecycle(t *testing.T) {
	s := openTestStore(t)

	if err := s.CreateSession(Session{ID: "s1", Request: "todo app", Model: "llama3.1", Simple: true, Budget: 3}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	got, err := s.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.State != "AWAITING_RESPONSE" || !got.Simple || got.Budget != 3 {
		t.Errorf("session = %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	got.State = "APPROVED"
	got.Turns = 2
	got.DocumentID = "d1"
	if err := s.FinishSession(got); err != nil {
		t.Fatalf("FinishSession: %v", err)
	}
	got, err = s.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.State != "APPROVED" || got.Turns != 2 || got.DocumentID != "d1" {
		t.Errorf("finished session = %+v", got)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetSession("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := s.FinishSession(Session{ID: "nope", State: "APPROVED"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("FinishSession err = %v, want ErrNotFound", err)
	}
}

func TestTranscript(t *testing.T) {
	s := openTestStore(t)
	if err := s.CreateSession(Session{ID: "s1", Request: "todo app"}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	entries := [][2]string{{"system", "contract"}, {"user", "todo app"}, {"assistant", "Which stack?"}, {"user", "React"}}
	for _, e := range entries {
		if err := s.AppendEntry("s1", e[0], e[1]); err != nil {
			t.Fatalf("AppendEntry: %v", err)
		}
	}

	got, err := s.Transcript("s1")
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	for i, e := range got {
		if e.Seq != i+1 || e.Role != entries[i][0] || e.Text != entries[i][1] {
			t.Errorf("entry %d = %+v", i, e)
		}
	}

	if err := s.AppendEntry("missing", "user", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AppendEntry(missing) err = %v, want ErrNotFound", err)
	}
}

func TestListSessions(t *testing.T) {
	s := openTestStore(t)
	for _, id := range []string{"a", "b", "c"} {
		if err := s.CreateSession(Session{ID: id, Request: id}); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
	}

	got, err := s.ListSessions(2)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d sessions, want 2", len(got))
	}
	if got[0].ID != "c" || got[1].ID != "b" {
		t.Errorf("order = %s, %s; want newest first", got[0].ID, got[1].ID)
	}
}
