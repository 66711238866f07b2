package queue

import (
	"context"
	"io"
	"testing"
	"time"
)

func TestMemoryQueue_EnqueueDequeueInOrder(t *testing.T) {
	q := NewMemoryQueue[string](2)
	t.Cleanup(func() { _ = q.Close() })

	if got := q.Enqueue("a"); got != EnqueueAccepted {
		t.Fatalf("expected enqueue accepted, got %s", got)
	}
	if got := q.Enqueue("b"); got != EnqueueAccepted {
		t.Fatalf("expected enqueue accepted, got %s", got)
	}
	if q.Len() != 2 || q.Cap() != 2 {
		t.Fatalf("expected len 2 cap 2, got len %d cap %d", q.Len(), q.Cap())
	}

	for _, want := range []string{"a", "b"} {
		got, err := q.Dequeue(context.Background())
		if err != nil {
			t.Fatalf("dequeue failed: %v", err)
		}
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}

func TestMemoryQueue_FullQueueDrops(t *testing.T) {
	q := NewMemoryQueue[int](1)
	t.Cleanup(func() { _ = q.Close() })

	if got := q.Enqueue(1); got != EnqueueAccepted {
		t.Fatalf("expected enqueue accepted, got %s", got)
	}
	if got := q.Enqueue(2); got != EnqueueDropped {
		t.Fatalf("expected enqueue dropped, got %s", got)
	}
}

func TestMemoryQueue_CloseReturnsEOFWhenDrained(t *testing.T) {
	q := NewMemoryQueue[int](1)
	if got := q.Enqueue(7); got != EnqueueAccepted {
		t.Fatalf("expected enqueue accepted, got %s", got)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if got := q.Enqueue(8); got != EnqueueClosed {
		t.Fatalf("expected enqueue closed, got %s", got)
	}

	item, err := q.Dequeue(context.Background())
	if err != nil || item != 7 {
		t.Fatalf("expected queued item before EOF, got %d, %v", item, err)
	}
	if _, err := q.Dequeue(context.Background()); err != io.EOF {
		t.Fatalf("expected io.EOF on empty closed queue, got %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close must be a no-op, got %v", err)
	}
}

func TestMemoryQueue_DequeueHonorsContext(t *testing.T) {
	q := NewMemoryQueue[int](1)
	t.Cleanup(func() { _ = q.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := q.Dequeue(ctx); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestMemoryQueue_Drain(t *testing.T) {
	q := NewMemoryQueue[int](3)
	q.Enqueue(1)
	q.Enqueue(2)
	_ = q.Close()

	got := q.Drain()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected drain result %v", got)
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue after drain, got %d", q.Len())
	}
}
