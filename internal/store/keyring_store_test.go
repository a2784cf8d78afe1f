package store_test

import (
	"testing"

	"parley/internal/store"

	"parley/internal/domain"
)

func TestKeyring_SaveLoadDelete(t *testing.T) {
	ks := store.NewKeyringFileStore(t.TempDir())

	key := domain.RoomKey{7, 7, 7}
	if err := ks.SaveRoomKey("conv-1", key); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := ks.LoadRoomKey("conv-1")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got != key {
		t.Fatal("loaded key mismatch")
	}

	if _, ok, _ := ks.LoadRoomKey("conv-2"); ok {
		t.Fatal("unexpected key for unknown conversation")
	}

	if err := ks.DeleteRoomKey("conv-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := ks.LoadRoomKey("conv-1"); ok {
		t.Fatal("key survived delete")
	}
}

func TestKeyring_Reset(t *testing.T) {
	ks := store.NewKeyringFileStore(t.TempDir())

	_ = ks.SaveRoomKey("a", domain.RoomKey{1})
	_ = ks.SaveRoomKey("b", domain.RoomKey{2})

	if err := ks.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, ok, _ := ks.LoadRoomKey("a"); ok {
		t.Fatal("key survived reset")
	}
	// Reset on an empty keyring is fine.
	if err := ks.Reset(); err != nil {
		t.Fatalf("second reset: %v", err)
	}
}
