package redis

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLocalLeaseSerializesSameThread(t *testing.T) {
	lease := NewLocalThreadLease()
	ctx := context.Background()

	release1, err := lease.Acquire(ctx, "acme", "t1")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	second := make(chan struct{})
	go func() {
		r, err := lease.Acquire(ctx, "acme", "t1")
		if err != nil {
			t.Errorf("second acquire: %v", err)
			close(second)
			return
		}
		r()
		close(second)
	}()

	select {
	case <-second:
		t.Fatal("second holder acquired while the first held the lease")
	case <-time.After(50 * time.Millisecond):
	}

	release1()
	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("second holder never acquired after release")
	}
}

func TestLocalLeaseIndependentThreads(t *testing.T) {
	lease := NewLocalThreadLease()
	ctx := context.Background()

	r1, err := lease.Acquire(ctx, "acme", "t1")
	if err != nil {
		t.Fatalf("acquire t1: %v", err)
	}
	defer r1()

	// Different thread and different tenant with the same thread id must not
	// contend.
	done := make(chan struct{})
	go func() {
		r2, err := lease.Acquire(ctx, "acme", "t2")
		if err == nil {
			r2()
		}
		r3, err := lease.Acquire(ctx, "globex", "t1")
		if err == nil {
			r3()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unrelated threads blocked on each other")
	}
}

func TestLocalLeaseReleaseIdempotent(t *testing.T) {
	lease := NewLocalThreadLease()
	release, err := lease.Acquire(context.Background(), "acme", "t1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()
	release() // second call must be a no-op, not an unlock panic

	again, err := lease.Acquire(context.Background(), "acme", "t1")
	if err != nil {
		t.Fatalf("re-acquire: %v", err)
	}
	again()
}

func TestLocalLeaseEvictsIdleEntries(t *testing.T) {
	lease := NewLocalThreadLease().(*localThreadLease)
	ctx := context.Background()

	for _, threadID := range []string{"t1", "t2", "t3"} {
		release, err := lease.Acquire(ctx, "acme", threadID)
		if err != nil {
			t.Fatalf("acquire %s: %v", threadID, err)
		}
		release()
	}

	// A waiter keeps the entry alive until it releases too.
	r1, err := lease.Acquire(ctx, "acme", "t1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	done := make(chan struct{})
	go func() {
		r2, err := lease.Acquire(ctx, "acme", "t1")
		if err == nil {
			r2()
		}
		close(done)
	}()
	r1()
	<-done

	lease.mu.Lock()
	n := len(lease.locks)
	lease.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected empty lock map after all releases, got %d entries", n)
	}
}

func TestLocalLeaseAcquireHonorsContext(t *testing.T) {
	lease := NewLocalThreadLease()
	release, err := lease.Acquire(context.Background(), "acme", "t1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := lease.Acquire(ctx, "acme", "t1"); err == nil {
		t.Fatal("expected context deadline to abort the wait")
	}

	// The abandoned waiter must not poison the lease for the next caller.
	release()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r, err := lease.Acquire(context.Background(), "acme", "t1")
		if err != nil {
			t.Errorf("re-acquire after abandoned wait: %v", err)
			return
		}
		r()
	}()
	wg.Wait()
}
