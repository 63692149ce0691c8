package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_RunsTasks(t *testing.T) {
	p := NewPool(3)

	var count int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		err := p.Submit(context.Background(), func(ctx context.Context) {
			defer wg.Done()
			atomic.AddInt32(&count, 1)
		})
		if err != nil {
			t.Fatalf("Unexpected submit error: %v", err)
		}
	}
	wg.Wait()
	p.Close()

	if count != 10 {
		t.Errorf("Expected 10 tasks to run, got %d", count)
	}
}

func TestPool_Concurrency(t *testing.T) {
	p := NewPool(0)
	defer p.Close()

	if p.Concurrency != 1 {
		t.Errorf("Expected concurrency to be clamped to 1, got %d", p.Concurrency)
	}
}

func TestPool_SubmitAfterClose(t *testing.T) {
	p := NewPool(1)
	p.Close()

	err := p.Submit(context.Background(), func(ctx context.Context) {})
	if err != ErrPoolClosed {
		t.Errorf("Expected ErrPoolClosed, got %v", err)
	}

	// closing twice is fine
	p.Close()
}

func TestPool_SubmitDoesNotBlockWhenBusy(t *testing.T) {
	p := NewPool(1)

	release := make(chan struct{})
	started := make(chan struct{})
	if err := p.Submit(context.Background(), func(ctx context.Context) {
		close(started)
		<-release
	}); err != nil {
		t.Fatalf("Unexpected submit error: %v", err)
	}
	<-started

	var ran int32
	submitted := make(chan error, 1)
	go func() {
		submitted <- p.Submit(context.Background(), func(ctx context.Context) {
			atomic.StoreInt32(&ran, 1)
		})
	}()

	select {
	case err := <-submitted:
		if err != nil {
			t.Fatalf("Unexpected submit error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected Submit to return while the only worker is busy")
	}

	if p.Pending() != 1 {
		t.Errorf("Expected 1 pending task, got %d", p.Pending())
	}

	close(release)
	p.Close()

	if atomic.LoadInt32(&ran) != 1 {
		t.Errorf("Expected Close to drain the queued task")
	}
}

func TestPool_RecoversPanic(t *testing.T) {
	p := NewPool(1)

	done := make(chan struct{})
	_ = p.Submit(context.Background(), func(ctx context.Context) {
		panic("boom")
	})
	_ = p.Submit(context.Background(), func(ctx context.Context) {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected the pool to keep running after a panic")
	}
	p.Close()
}

func TestPool_CloseWaitsForRunningTasks(t *testing.T) {
	p := NewPool(1)

	var finished int32
	started := make(chan struct{})
	_ = p.Submit(context.Background(), func(ctx context.Context) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		atomic.StoreInt32(&finished, 1)
	})
	<-started
	p.Close()

	if atomic.LoadInt32(&finished) != 1 {
		t.Errorf("Expected Close to wait for the running task")
	}
}
