package ai

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestMockClient_ConcurrentGenerate(t *testing.T) {
	client := NewMockClient()
	ctx := context.Background()

	const workers = 8
	const callsPerWorker = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < callsPerWorker; j++ {
				reply, err := client.Generate(ctx, fmt.Sprintf("message %d-%d", worker, j))
				if err != nil {
					t.Errorf("generate: %v", err)
				}
				if reply != "Mock answer" {
					t.Errorf("unexpected reply %q", reply)
				}
			}
		}(i)
	}
	wg.Wait()

	if got := len(client.Calls()); got != workers*callsPerWorker {
		t.Fatalf("expected %d recorded calls, got %d", workers*callsPerWorker, got)
	}
}

func TestMockClient_CallsReturnsCopy(t *testing.T) {
	client := NewMockClient()
	if _, err := client.Generate(context.Background(), "hello"); err != nil {
		t.Fatalf("generate: %v", err)
	}

	calls := client.Calls()
	calls[0] = "mutated"

	if got := client.Calls()[0]; got != "hello" {
		t.Fatalf("expected internal call log untouched, got %q", got)
	}
}
