package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vantagefund/wallet-engine/pkg/logger"
)

type fakeJob struct {
	name string
	runs int
	err  error
}

func (f *fakeJob) Name() string { return f.name }

func (f *fakeJob) Run(ctx context.Context) error {
	f.runs++
	return f.err
}

type fakeLock struct {
	locked   bool
	acquires int
	releases int
}

func (f *fakeLock) Acquire(ctx context.Context) (bool, error) {
	f.acquires++
	return !f.locked, nil
}

func (f *fakeLock) Release(ctx context.Context) error {
	f.releases++
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
}

func TestRegistryOrdering(t *testing.T) {
	first := &fakeJob{name: "first"}
	second := &fakeJob{name: "second"}
	registry := NewRegistry(first, nil, second)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].Name() != "first" || jobs[1].Name() != "second" {
		t.Fatal("jobs should run in registration order")
	}
}

func TestRunCycleRunsAllJobs(t *testing.T) {
	good := &fakeJob{name: "good"}
	bad := &fakeJob{name: "bad", err: errors.New("boom")}
	after := &fakeJob{name: "after"}
	lock := &fakeLock{}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(good, bad, after),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if good.runs != 1 || bad.runs != 1 || after.runs != 1 {
		t.Fatalf("every job should run once despite failures: %d %d %d", good.runs, bad.runs, after.runs)
	}
	if lock.acquires != 1 || lock.releases != 1 {
		t.Fatalf("lock should be acquired and released once: %d %d", lock.acquires, lock.releases)
	}
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &fakeJob{name: "job"}
	lock := &fakeLock{locked: true}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatal("jobs must not run while another instance holds the lock")
	}
	if lock.releases != 0 {
		t.Fatal("a lock we did not acquire must not be released")
	}
}
