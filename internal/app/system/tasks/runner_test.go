package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRunnerRunsAndStops(t *testing.T) {
	var runs atomic.Int64
	r := NewRunner(zap.NewNop(), Job{
		Name:     "counter",
		Interval: 5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	r.Start()
	time.Sleep(40 * time.Millisecond)
	r.Stop()

	got := runs.Load()
	if got == 0 {
		t.Fatal("job never ran")
	}
	time.Sleep(20 * time.Millisecond)
	if runs.Load() != got {
		t.Error("job kept running after Stop")
	}
}

func TestRunnerSurvivesFailingJob(t *testing.T) {
	var runs atomic.Int64
	r := NewRunner(zap.NewNop(), Job{
		Name:     "flaky",
		Interval: 5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return errors.New("boom")
		},
	})

	r.Start()
	time.Sleep(30 * time.Millisecond)
	r.Stop()

	if runs.Load() < 2 {
		t.Fatalf("failing job should keep being scheduled, ran %d times", runs.Load())
	}
}
