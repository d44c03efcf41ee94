package workers

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/docpilot/docpilot/internal/common"
)

func TestPool_ProcessesAllJobs(t *testing.T) {
	pool := NewPool(3, common.GetLogger())
	pool.Start()

	var processed int64
	for i := 0; i < 20; i++ {
		err := pool.Submit(func(ctx context.Context) error {
			atomic.AddInt64(&processed, 1)
			return nil
		})
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	pool.Wait()

	if processed != 20 {
		t.Errorf("expected 20 jobs processed, got %d", processed)
	}
	if len(pool.Errors()) != 0 {
		t.Errorf("expected no errors, got %d", len(pool.Errors()))
	}
}

func TestPool_CollectsErrors(t *testing.T) {
	pool := NewPool(2, common.GetLogger())
	pool.Start()

	for i := 0; i < 5; i++ {
		i := i
		_ = pool.Submit(func(ctx context.Context) error {
			if i%2 == 0 {
				return fmt.Errorf("job %d failed", i)
			}
			return nil
		})
	}

	pool.Wait()

	if len(pool.Errors()) != 3 {
		t.Errorf("expected 3 errors, got %d", len(pool.Errors()))
	}
}

func TestPool_SubmitAfterShutdownFails(t *testing.T) {
	pool := NewPool(1, common.GetLogger())
	pool.Start()
	pool.Shutdown()

	if err := pool.Submit(func(ctx context.Context) error { return nil }); err == nil {
		t.Error("expected submit to fail after shutdown")
	}
}
