package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewInvalidTimezone(t *testing.T) {
	if _, err := New("Mars/Olympus_Mons", nil, 0); err == nil {
		t.Error("New() with an unknown zone should fail")
	}
}

func TestAddJob(t *testing.T) {
	s, err := New("America/Los_Angeles", nil, time.Minute)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	noop := func(context.Context) error { return nil }

	if err := s.AddJob("bad", "not a spec", noop); err == nil {
		t.Error("AddJob() with an invalid spec should fail")
	}

	if !s.Next("bad").IsZero() {
		t.Error("Next() of an unscheduled job should be zero")
	}

	if err := s.AddJob("daily", "0 6 * * *", noop); err != nil {
		t.Fatalf("AddJob() error = %v", err)
	}

	s.Start()
	defer s.Stop()

	// entries get their next time once the scheduler runs
	deadline := time.Now().Add(2 * time.Second)
	for s.Next("daily").IsZero() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	next := s.Next("daily")
	if next.IsZero() {
		t.Fatal("Next() is zero after Start()")
	}

	if local := next.In(s.loc); local.Hour() != 6 || local.Minute() != 0 {
		t.Errorf("Next() = %v, want 06:00 local", local)
	}
}

func TestRunNowAppliesTimeout(t *testing.T) {
	s, err := New("UTC", nil, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = s.RunNow(context.Background(), "slow", func(ctx context.Context) error {
		<-ctx.Done()

		return ctx.Err()
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("RunNow() error = %v, want deadline exceeded", err)
	}
}

func TestStopCancelsRunningJob(t *testing.T) {
	s, err := New("UTC", nil, 0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	started := make(chan struct{}, 1)

	err = s.AddJob("blocking", "@every 1s", func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}

		<-ctx.Done()

		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("AddJob() error = %v", err)
	}

	s.Start()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job never started")
	}

	select {
	case <-s.Stop().Done():
	case <-time.After(3 * time.Second):
		t.Fatal("job still running after Stop()")
	}
}
