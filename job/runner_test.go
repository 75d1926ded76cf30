package job

import (
	"context"
	"errors"
	"testing"

	"github.com/quadra-commerce/hybridrec/core"
)

func TestRunner_TracksSuccessAndFailure(t *testing.T) {
	r := NewRunner(nil)

	okID := r.Start("build-ok", func(ctx context.Context) error { return nil })
	failID := r.Start("build-fail", func(ctx context.Context) error { return errors.New("boom") })
	r.Wait()

	ok, err := r.Status(okID)
	if err != nil {
		t.Fatal(err)
	}
	if ok.State != RunStateSucceeded {
		t.Errorf("want succeeded, got %s", ok.State)
	}
	if ok.FinishedAt.Before(ok.StartedAt) {
		t.Error("finish time must not precede start time")
	}

	failed, err := r.Status(failID)
	if err != nil {
		t.Fatal(err)
	}
	if failed.State != RunStateFailed {
		t.Errorf("want failed, got %s", failed.State)
	}
	if failed.Error != "boom" {
		t.Errorf("failure reason must be recorded, got %q", failed.Error)
	}

	if got := len(r.List()); got != 2 {
		t.Errorf("want 2 runs listed, got %d", got)
	}
}

func TestRunner_UnknownRunID(t *testing.T) {
	r := NewRunner(nil)
	if _, err := r.Status("no-such-run"); !core.IsNotFound(err) {
		t.Fatalf("unknown run id must be NOT_FOUND, got %v", err)
	}
}
