package store_test

import (
	"errors"
	"testing"

	"parley/internal/domain"
	"parley/internal/store"
)

func TestIdentity_SaveLoad_OK(t *testing.T) {
	home := t.TempDir()
	pass := "pass"

	var ids domain.IdentityStore = store.NewIdentityFileStore(home)

	id := domain.Identity{
		DeviceID: "dev-1",
		XPub:     domain.X25519Public{1},
		XPriv:    domain.X25519Private{2},
		EdPub:    domain.Ed25519Public{3},
		EdPriv:   domain.Ed25519Private{4},
	}

	if err := ids.SaveIdentity(pass, id); err != nil {
		t.Fatalf("save identity: %v", err)
	}

	got, err := ids.LoadIdentity(pass)
	if err != nil {
		t.Fatalf("load identity: %v", err)
	}
	if got.DeviceID != id.DeviceID || got.XPub != id.XPub || got.EdPub != id.EdPub {
		t.Fatalf("mismatch after load")
	}
}

func TestIdentity_WrongPassphrase_Fails(t *testing.T) {
	home := t.TempDir()
	var ids domain.IdentityStore = store.NewIdentityFileStore(home)

	id := domain.Identity{XPub: domain.X25519Public{1}, XPriv: domain.X25519Private{2}}

	if err := ids.SaveIdentity("correct", id); err != nil {
		t.Fatalf("save identity: %v", err)
	}
	if _, err := ids.LoadIdentity("wrong"); err == nil {
		t.Fatal("expected error with wrong passphrase")
	}
}

func TestIdentity_Missing_IsNotFound(t *testing.T) {
	var ids domain.IdentityStore = store.NewIdentityFileStore(t.TempDir())

	_, err := ids.LoadIdentity("whatever")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
