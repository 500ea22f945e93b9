package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestScheduler_RegisterTask_DuplicateID(t *testing.T) {
	s, err := New(zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Stop()

	task := TaskConfig{
		ID:   "refresh",
		Name: "Refresh",
		Cron: "0 * * * *",
		Func: func(_ context.Context) error { return nil },
	}
	if err := s.RegisterTask(task); err != nil {
		t.Fatalf("RegisterTask() error = %v", err)
	}
	if err := s.RegisterTask(task); err == nil {
		t.Error("RegisterTask() should reject a duplicate id")
	}
}

func TestScheduler_RegisterTask_InvalidCron(t *testing.T) {
	s, err := New(zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Stop()

	err = s.RegisterTask(TaskConfig{
		ID:   "broken",
		Name: "Broken",
		Cron: "not a cron expression",
		Func: func(_ context.Context) error { return nil },
	})
	if err == nil {
		t.Error("RegisterTask() should reject an invalid cron expression")
	}
}

func TestScheduler_RunOnStart(t *testing.T) {
	s, err := New(zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var runs atomic.Int32
	done := make(chan struct{})
	err = s.RegisterTask(TaskConfig{
		ID:   "refresh",
		Name: "Refresh",
		Cron: "0 * * * *",
		Func: func(_ context.Context) error {
			if runs.Add(1) == 1 {
				close(done)
			}
			return nil
		},
		RunOnStart: true,
	})
	if err != nil {
		t.Fatalf("RegisterTask() error = %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("task did not run on start")
	}
}
