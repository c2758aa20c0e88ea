package embedding

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingProvider struct {
	calls  int
	result []float32
	err    error
}

func (p *countingProvider) Generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

func TestCachedProviderMemoizes(t *testing.T) {
	inner := &countingProvider{result: []float32{1, 2, 3}}
	cached := NewCachedProvider(inner, time.Minute)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		got, err := cached.Generate(ctx, "same text", TaskTypeDocument)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("embedding = %v", got)
		}
	}

	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1 (cache should absorb repeats)", inner.calls)
	}
}

func TestCachedProviderKeyIncludesTaskType(t *testing.T) {
	inner := &countingProvider{result: []float32{1}}
	cached := NewCachedProvider(inner, time.Minute)

	ctx := context.Background()
	if _, err := cached.Generate(ctx, "same text", TaskTypeDocument); err != nil {
		t.Fatal(err)
	}
	if _, err := cached.Generate(ctx, "same text", TaskTypeQuery); err != nil {
		t.Fatal(err)
	}

	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2 (task types must not share entries)", inner.calls)
	}
}

func TestCachedProviderDoesNotCacheErrors(t *testing.T) {
	inner := &countingProvider{err: errors.New("upstream down")}
	cached := NewCachedProvider(inner, time.Minute)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := cached.Generate(ctx, "text", TaskTypeQuery); err == nil {
			t.Fatal("expected error")
		}
	}

	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2 (failures must retry upstream)", inner.calls)
	}
}
