package jobs

import (
	"context"
	"testing"
)

// TestRegistryCancelFiresContext verifies cancel lookup and signalling.
func TestRegistryCancelFiresContext(t *testing.T) {
	reg := NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	reg.Add("job-1", cancel)

	if !reg.Cancel("job-1") {
		t.Fatal("cancel should find the registered job")
	}
	select {
	case <-ctx.Done():
	default:
		t.Fatal("context was not cancelled")
	}

	if !reg.Cancel("job-1") {
		t.Fatal("repeated cancel should still report the job as known")
	}
}

// TestRegistryCancelUnknownJob verifies the miss path.
func TestRegistryCancelUnknownJob(t *testing.T) {
	reg := NewRegistry()
	if reg.Cancel("missing") {
		t.Fatal("cancel of unknown job must report false")
	}
}

// TestRegistryRemoveClearsEntry verifies terminal-state cleanup.
func TestRegistryRemoveClearsEntry(t *testing.T) {
	reg := NewRegistry()
	_, cancel := context.WithCancel(context.Background())
	reg.Add("job-1", cancel)

	reg.Remove("job-1")
	if reg.Len() != 0 {
		t.Fatalf("len = %d, want 0", reg.Len())
	}
	if reg.Cancel("job-1") {
		t.Fatal("removed job must no longer be cancellable")
	}
}

// TestRegistryCancelAll verifies shutdown behavior.
func TestRegistryCancelAll(t *testing.T) {
	reg := NewRegistry()
	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	reg.Add("job-1", cancel1)
	reg.Add("job-2", cancel2)

	reg.CancelAll()
	for _, ctx := range []context.Context{ctx1, ctx2} {
		select {
		case <-ctx.Done():
		default:
			t.Fatal("context survived CancelAll")
		}
	}
	if reg.Len() != 0 {
		t.Fatalf("len = %d, want 0", reg.Len())
	}
}
