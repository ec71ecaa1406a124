package common

import (
	"errors"
	"testing"
)

func TestGuard(t *testing.T) {
	if err := Guard(nil, "asset"); err != nil {
		t.Fatalf("nil view should not block: %v", err)
	}
	pauses := StaticPauses{"asset": true}
	if err := Guard(pauses, "asset"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected paused, got %v", err)
	}
	if err := Guard(pauses, "oracle"); err != nil {
		t.Fatalf("oracle should be open: %v", err)
	}
}
