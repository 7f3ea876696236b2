package store

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestMemoryStore_SingleDelivery(t *testing.T) {
	s := NewMemoryStore(1024*1024, 0, 0)
	ctx := context.Background()
	data := []byte("hello-cipher")

	id, err := s.Put(ctx, data)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if id == "" {
		t.Fatal("Put returned empty id")
	}

	// First Take - should succeed
	got, err := s.Take(ctx, id)
	if err != nil {
		t.Fatalf("First Take failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Got %s, want %s", got, data)
	}

	// Second Take - must be indistinguishable from a never-issued id
	_, err = s.Take(ctx, id)
	if err != ErrNotFound {
		t.Errorf("Second Take expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_UnknownID(t *testing.T) {
	s := NewMemoryStore(1024*1024, 0, 0)
	ctx := context.Background()

	if _, err := s.Take(ctx, "not-a-real-id"); err != ErrNotFound {
		t.Errorf("Take on unknown id expected ErrNotFound, got %v", err)
	}

	// No side effects on failure
	if st := s.Stats(); st.Retrieved != 0 || st.MemoryUsed != 0 {
		t.Errorf("failed Take mutated state: %+v", st)
	}
}

func TestMemoryStore_EmptyPayloadRejected(t *testing.T) {
	s := NewMemoryStore(1024*1024, 0, 0)
	ctx := context.Background()

	if _, err := s.Put(ctx, nil); err != ErrEmptyPayload {
		t.Errorf("Put(nil) expected ErrEmptyPayload, got %v", err)
	}
	if _, err := s.Put(ctx, []byte{}); err != ErrEmptyPayload {
		t.Errorf("Put(empty) expected ErrEmptyPayload, got %v", err)
	}
	if st := s.Stats(); st.Created != 0 || st.MemoryUsed != 0 {
		t.Errorf("failed Put mutated state: %+v", st)
	}
}

func TestMemoryStore_TooLarge(t *testing.T) {
	s := NewMemoryStore(1024, 16, 0)
	ctx := context.Background()

	if _, err := s.Put(ctx, make([]byte, 17)); err != ErrTooLarge {
		t.Errorf("Put over per-secret cap expected ErrTooLarge, got %v", err)
	}

	s2 := NewMemoryStore(8, 0, 0)
	if _, err := s2.Put(ctx, make([]byte, 9)); err != ErrTooLarge {
		t.Errorf("Put over memory limit expected ErrTooLarge, got %v", err)
	}
}

func TestMemoryStore_NoCrossTalk(t *testing.T) {
	s := NewMemoryStore(1024*1024, 0, 0)
	ctx := context.Background()

	idA, err := s.Put(ctx, []byte("a"))
	if err != nil {
		t.Fatalf("Put(a) failed: %v", err)
	}
	idB, err := s.Put(ctx, []byte("b"))
	if err != nil {
		t.Fatalf("Put(b) failed: %v", err)
	}
	if idA == idB {
		t.Fatalf("Put returned duplicate ids: %s", idA)
	}

	// Retrieve in reverse order of storage
	gotB, err := s.Take(ctx, idB)
	if err != nil || string(gotB) != "b" {
		t.Errorf("Take(idB) = %q, %v; want b", gotB, err)
	}
	gotA, err := s.Take(ctx, idA)
	if err != nil || string(gotA) != "a" {
		t.Errorf("Take(idA) = %q, %v; want a", gotA, err)
	}

	if _, err := s.Take(ctx, idA); err != ErrNotFound {
		t.Errorf("re-Take(idA) expected ErrNotFound, got %v", err)
	}
	if _, err := s.Take(ctx, idB); err != ErrNotFound {
		t.Errorf("re-Take(idB) expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_Concurrency(t *testing.T) {
	s := NewMemoryStore(10*1024*1024, 0, 0)
	ctx := context.Background()

	id, err := s.Put(ctx, []byte("secret"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	results := make(chan bool, 100)
	concurrency := 50

	for i := 0; i < concurrency; i++ {
		go func() {
			_, err := s.Take(ctx, id)
			results <- (err == nil)
		}()
	}

	successCount := 0
	for i := 0; i < concurrency; i++ {
		if success := <-results; success {
			successCount++
		}
	}

	if successCount != 1 {
		t.Errorf("Expected exactly 1 successful retrieval, got %d", successCount)
	}
}

func TestMemoryStore_Eviction(t *testing.T) {
	// 20-byte budget forces the first secret out when the second arrives:
	// both payloads are 13 bytes.
	s := NewMemoryStore(20, 0, 0)
	ctx := context.Background()

	id1, err := s.Put(ctx, []byte("secret-data-1"))
	if err != nil {
		t.Fatalf("Put 1 failed: %v", err)
	}
	id2, err := s.Put(ctx, []byte("secret-data-2"))
	if err != nil {
		t.Fatalf("Put 2 failed: %v", err)
	}

	if _, err := s.Take(ctx, id1); err != ErrNotFound {
		t.Errorf("evicted secret expected ErrNotFound, got %v", err)
	}

	got, err := s.Take(ctx, id2)
	if err != nil || string(got) != "secret-data-2" {
		t.Errorf("Take(id2) = %q, %v", got, err)
	}

	if st := s.Stats(); st.Evicted != 1 {
		t.Errorf("expected 1 eviction, got %+v", st)
	}
}

func TestMemoryStore_TTLPrune(t *testing.T) {
	s := NewMemoryStore(1024*1024, 0, time.Minute)
	ctx := context.Background()

	id, err := s.Put(ctx, []byte("stale"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Prune as if two minutes have passed
	s.prune(time.Now().Add(2 * time.Minute))

	if _, err := s.Take(ctx, id); err != ErrNotFound {
		t.Errorf("expired secret expected ErrNotFound, got %v", err)
	}
	if st := s.Stats(); st.Expired != 1 || st.MemoryUsed != 0 {
		t.Errorf("prune did not account: %+v", st)
	}
}

func TestMemoryStore_LazyExpiry(t *testing.T) {
	s := NewMemoryStore(1024*1024, 0, time.Nanosecond)
	ctx := context.Background()

	id, err := s.Put(ctx, []byte("short-lived"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	// No sweep has run; Take itself must refuse the expired secret.
	if _, err := s.Take(ctx, id); err != ErrNotFound {
		t.Errorf("expired secret expected ErrNotFound from Take, got %v", err)
	}
	if st := s.Stats(); st.Expired != 1 {
		t.Errorf("lazy expiry not counted: %+v", st)
	}
}

func TestMemoryStore_IDCollisionRegenerated(t *testing.T) {
	s := NewMemoryStore(1024, 0, 0)
	ctx := context.Background()

	// Force the generator to repeat an id once
	ids := []string{"dup", "dup", "fresh"}
	i := 0
	s.genID = func() string {
		id := ids[i]
		i++
		return id
	}

	id1, err := s.Put(ctx, []byte("first"))
	if err != nil {
		t.Fatalf("Put 1 failed: %v", err)
	}
	id2, err := s.Put(ctx, []byte("second"))
	if err != nil {
		t.Fatalf("Put 2 failed: %v", err)
	}
	if id1 != "dup" || id2 != "fresh" {
		t.Fatalf("expected dup/fresh, got %s/%s", id1, id2)
	}

	// Both secrets intact, no orphaned accounting
	if st := s.Stats(); st.MemoryUsed != int64(len("first")+len("second")) {
		t.Errorf("memory accounting off: %+v", st)
	}
	got1, err := s.Take(ctx, id1)
	if err != nil || string(got1) != "first" {
		t.Errorf("Take(id1) = %q, %v", got1, err)
	}
	got2, err := s.Take(ctx, id2)
	if err != nil || string(got2) != "second" {
		t.Errorf("Take(id2) = %q, %v", got2, err)
	}
}

func TestMemoryStore_Stats(t *testing.T) {
	s := NewMemoryStore(1024, 0, 0)
	ctx := context.Background()

	id, _ := s.Put(ctx, []byte("abcd"))
	st := s.Stats()
	if st.MemoryUsed != 4 || st.MemoryLimit != 1024 || st.Created != 1 {
		t.Errorf("after Put: %+v", st)
	}

	_, _ = s.Take(ctx, id)
	st = s.Stats()
	if st.MemoryUsed != 0 || st.Retrieved != 1 {
		t.Errorf("after Take: %+v", st)
	}
}
