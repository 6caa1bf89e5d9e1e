package containers

import (
	"errors"
	"testing"
)

func TestRingQueueFIFO(t *testing.T) {
	rq := NewRingQueue[int](3)
	if _, err := rq.Dequeue(); !errors.Is(err, ErrQueueEmpty) {
		t.Fatalf("Dequeue on empty: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if err := rq.Enqueue(i); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	if err := rq.Enqueue(4); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Enqueue on full: %v", err)
	}
	if v, _ := rq.Peek(); v != 1 {
		t.Fatalf("Peek() = %d", v)
	}
	for want := 1; want <= 2; want++ {
		v, err := rq.Dequeue()
		if err != nil || v != want {
			t.Fatalf("Dequeue() = %d, %v; want %d", v, err, want)
		}
	}
	// wrap around
	rq.Enqueue(4)
	rq.Enqueue(5)
	var got []int
	for !rq.IsEmpty() {
		v, _ := rq.Dequeue()
		got = append(got, v)
	}
	if len(got) != 3 || got[0] != 3 || got[1] != 4 || got[2] != 5 {
		t.Fatalf("drained %v", got)
	}
}

func TestRingQueueRemove(t *testing.T) {
	rq := NewRingQueue[string](4)
	rq.Enqueue("x")
	rq.Dequeue()
	for _, s := range []string{"a", "b", "c", "d"} {
		rq.Enqueue(s)
	}
	if !rq.Remove(func(s string) bool { return s == "b" }) {
		t.Fatal("b not removed")
	}
	if rq.Remove(func(s string) bool { return s == "z" }) {
		t.Fatal("removed a missing element")
	}
	if rq.Len() != 3 || rq.Cap() != 4 {
		t.Fatalf("Len=%d Cap=%d", rq.Len(), rq.Cap())
	}
	rq.Enqueue("e")
	var got []string
	for !rq.IsEmpty() {
		v, _ := rq.Dequeue()
		got = append(got, v)
	}
	want := []string{"a", "c", "d", "e"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("drained %v, want %v", got, want)
		}
	}
}
