package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestStore_SetAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Set(ctx, "generatedStories", `["a"]`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := s.Get(ctx, "generatedStories")
	if err != nil || !ok {
		t.Fatalf("Get() = %q, %v, %v", got, ok, err)
	}
	if got != `["a"]` {
		t.Errorf("Get() = %q", got)
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := New()

	got, ok, err := s.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok || got != "" {
		t.Errorf("Get() = %q, %v; want empty, false", got, ok)
	}
}

func TestStore_Overwrite(t *testing.T) {
	s := New()
	ctx := context.Background()

	_ = s.Set(ctx, "k", "first")
	_ = s.Set(ctx, "k", "second")

	got, _, _ := s.Get(ctx, "k")
	if got != "second" {
		t.Errorf("Get() = %q, want second", got)
	}
}

func TestStore_Concurrent(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n)
			_ = s.Set(ctx, key, "v")
			s.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		if _, ok, _ := s.Get(ctx, fmt.Sprintf("key-%d", i)); !ok {
			t.Errorf("key-%d missing", i)
		}
	}
}
