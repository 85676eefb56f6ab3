package storage

import (
	"errors"
	"testing"
	"time"
)

const typeGen = "generate_project"

func mustEnqueue(t *testing.T, s *Store, j Job) {
	t.Helper()
	if j.PayloadJSON == "" {
		j.PayloadJSON = `{}`
	}
	if err := s.EnqueueJob(j); err != nil {
		t.Fatalf("EnqueueJob(%s): %v", j.ID, err)
	}
}

func mustClaim(t *testing.T, s *Store, types ...string) *Job {
	t.Helper()
	j, err := s.ClaimNextJob(types)
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	return j
}

func TestEnqueueJob_Defaults(t *testing.T) {
	s := openTestStore(t)
	mustEnqueue(t, s, Job{ID: "j1", Type: typeGen, PayloadJSON: `{"run_id":"r1"}`})

	j, err := s.GetJob("j1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if j.Status != JobPending || j.Attempts != 0 || j.MaxAttempts != defaultMaxAttempts {
		t.Errorf("job = %+v", j)
	}
	if j.PayloadJSON != `{"run_id":"r1"}` {
		t.Errorf("payload = %q", j.PayloadJSON)
	}
	if time.Since(j.RunAfter) > time.Minute {
		t.Errorf("run_after = %v, want about now", j.RunAfter)
	}
	if _, err := s.GetJob("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJob(missing) err = %v, want ErrNotFound", err)
	}
}

func TestClaimNextJob(t *testing.T) {
	s := openTestStore(t)

	if j := mustClaim(t, s, typeGen); j != nil {
		t.Fatalf("claimed %+v from empty queue", j)
	}
	if j := mustClaim(t, s); j != nil {
		t.Fatalf("claimed %+v with no types", j)
	}

	mustEnqueue(t, s, Job{ID: "later", Type: typeGen, RunAfter: time.Now().Add(time.Hour)})
	mustEnqueue(t, s, Job{ID: "other", Type: "cleanup"})
	mustEnqueue(t, s, Job{ID: "first", Type: typeGen, RunAfter: time.Now().Add(-2 * time.Minute)})
	mustEnqueue(t, s, Job{ID: "second", Type: typeGen, RunAfter: time.Now().Add(-time.Minute)})

	var got []string
	for {
		j := mustClaim(t, s, typeGen)
		if j == nil {
			break
		}
		if j.Status != JobRunning {
			t.Errorf("claimed %s with status %q", j.ID, j.Status)
		}
		got = append(got, j.ID)
	}
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("claim order = %v, want [first second]", got)
	}

	if j := mustClaim(t, s, "cleanup", typeGen); j == nil || j.ID != "other" {
		t.Errorf("multi-type claim = %+v", j)
	}
}

func TestCompleteJob(t *testing.T) {
	s := openTestStore(t)
	mustEnqueue(t, s, Job{ID: "j1", Type: typeGen})
	mustClaim(t, s, typeGen)

	if err := s.CompleteJob("j1"); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
	if j, _ := s.GetJob("j1"); j.Status != JobCompleted {
		t.Errorf("status = %q", j.Status)
	}
	if err := s.CompleteJob("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("CompleteJob(missing) err = %v", err)
	}
}

func TestFailJob(t *testing.T) {
	s := openTestStore(t)
	mustEnqueue(t, s, Job{ID: "j1", Type: typeGen, MaxAttempts: 2})
	mustClaim(t, s, typeGen)

	before := time.Now().UTC().Truncate(time.Second)
	if err := s.FailJob("j1", "model unavailable"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}
	j, _ := s.GetJob("j1")
	if j.Status != JobPending || j.Attempts != 1 || j.LastError != "model unavailable" {
		t.Errorf("after first failure: %+v", j)
	}
	if !j.RunAfter.After(before) {
		t.Errorf("run_after %v not pushed past %v", j.RunAfter, before)
	}
	if c := mustClaim(t, s, typeGen); c != nil {
		t.Errorf("claimed %s during backoff", c.ID)
	}

	if err := s.FailJob("j1", "still down"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}
	j, _ = s.GetJob("j1")
	if j.Status != JobFailed || j.Attempts != 2 || j.LastError != "still down" {
		t.Errorf("after last attempt: %+v", j)
	}

	if err := s.FailJob("missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FailJob(missing) err = %v", err)
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{8, 256 * time.Second},
		{9, maxRetryDelay},
		{64, maxRetryDelay},
	}
	for _, tt := range tests {
		if got := retryDelay(tt.attempts); got != tt.want {
			t.Errorf("retryDelay(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

func TestRequeueInterrupted(t *testing.T) {
	s := openTestStore(t)
	mustEnqueue(t, s, Job{ID: "a", Type: typeGen})
	mustEnqueue(t, s, Job{ID: "b", Type: typeGen})
	mustClaim(t, s, typeGen)

	n, err := s.RequeueInterrupted()
	if err != nil {
		t.Fatalf("RequeueInterrupted: %v", err)
	}
	if n != 1 {
		t.Errorf("requeued %d, want 1", n)
	}
	for _, id := range []string{"a", "b"} {
		if j, _ := s.GetJob(id); j.Status != JobPending {
			t.Errorf("%s status = %q", id, j.Status)
		}
	}
}
