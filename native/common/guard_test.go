package common

import (
	"errors"
	"testing"
)

func TestGuard(t *testing.T) {
	if err := Guard(nil, ModuleStream); err != nil {
		t.Fatalf("nil view should not pause: %v", err)
	}
	pauses := NewPauses(" Stream ")
	if err := Guard(pauses, ModuleStream); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(pauses, ModuleCrowdfund); err != nil {
		t.Fatalf("crowdfund should run: %v", err)
	}
	pauses.Set(ModuleStream, false)
	if err := Guard(pauses, ModuleStream); err != nil {
		t.Fatalf("resumed module still paused: %v", err)
	}
}
