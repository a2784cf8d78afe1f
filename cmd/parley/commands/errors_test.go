package commands

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"parley/internal/domain"
)

func TestFriendlyAddsRoomKeyGuidance(t *testing.T) {
	err := friendly(fmt.Errorf("send: %w", domain.ErrMissingRoomKey))
	if err == nil {
		t.Fatal("friendly swallowed the error")
	}
	if !errors.Is(err, domain.ErrMissingRoomKey) {
		t.Fatalf("rewrap lost the sentinel: %v", err)
	}
	if !strings.Contains(err.Error(), "re-share the key") {
		t.Fatalf("no guidance in %q", err)
	}
}

func TestFriendlyLeavesOtherErrorsAlone(t *testing.T) {
	if err := friendly(nil); err != nil {
		t.Fatalf("friendly(nil) = %v", err)
	}
	plain := errors.New("relay down")
	if err := friendly(plain); err != plain {
		t.Fatalf("friendly rewrapped an unrelated error: %v", err)
	}
}
