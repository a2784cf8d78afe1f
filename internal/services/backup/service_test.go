package backup_test

import (
	"context"
	"errors"
	"testing"

	"parley/internal/domain"
	"parley/internal/services/backup"
	"parley/internal/services/identity"
	"parley/internal/services/vault"
	"parley/internal/store"
)

const goodPassphrase = "horse-battery-staple-9000!"

type fixture struct {
	ids   *identity.Service
	vault *vault.Service
	svc   *backup.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	home := t.TempDir()
	ids := identity.New(store.NewIdentityFileStore(home))
	if _, err := ids.EnsureIdentity("local-pass"); err != nil {
		t.Fatalf("ensure identity: %v", err)
	}
	v := vault.New(ids, store.NewKeyringFileStore(home))
	return fixture{ids: ids, vault: v, svc: backup.New(ids, v, "local-pass")}
}

func TestBackup_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newFixture(t)
	exported, err := src.ids.Identity()
	if err != nil {
		t.Fatalf("identity: %v", err)
	}

	blob, err := src.svc.Export(ctx, goodPassphrase)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	// Restore onto a different device.
	dst := newFixture(t)
	if err := dst.svc.Import(ctx, goodPassphrase, blob); err != nil {
		t.Fatalf("import: %v", err)
	}
	restored, err := dst.ids.Identity()
	if err != nil {
		t.Fatalf("identity after import: %v", err)
	}
	if restored.XPub != exported.XPub || restored.DeviceID != exported.DeviceID {
		t.Fatal("restored identity does not match exported one")
	}
}

func TestImport_WrongPassphrase(t *testing.T) {
	ctx := context.Background()
	src := newFixture(t)
	blob, err := src.svc.Export(ctx, goodPassphrase)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := newFixture(t)
	before, _ := dst.ids.Identity()

	err = dst.svc.Import(ctx, "not the passphrase at all", blob)
	if !errors.Is(err, domain.ErrBackupInvalid) {
		t.Fatalf("err = %v, want ErrBackupInvalid", err)
	}
	after, _ := dst.ids.Identity()
	if after.XPub != before.XPub {
		t.Fatal("failed import must not touch the active identity")
	}
}

func TestImport_CorruptBlob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, raw := range [][]byte{
		nil,
		[]byte("not json"),
		[]byte(`{"v":99}`),
		// KDF parameters the blob cannot legitimately carry; argon2
		// would panic if these reached it.
		[]byte(`{"v":1,"salt":"c2FsdHNhbHRzYWx0c2E=","argon_time":0,"argon_memory":65536,"argon_threads":1,"nonce":"AAAAAAAAAAAAAAAA","cipher":"AAAA"}`),
		[]byte(`{"v":1,"salt":"c2FsdHNhbHRzYWx0c2E=","argon_time":3,"argon_memory":65536,"argon_threads":0,"nonce":"AAAAAAAAAAAAAAAA","cipher":"AAAA"}`),
		[]byte(`{"v":1,"salt":"c2FsdHNhbHRzYWx0c2E=","argon_time":3,"argon_memory":2,"argon_threads":4,"nonce":"AAAAAAAAAAAAAAAA","cipher":"AAAA"}`),
	} {
		if err := f.svc.Import(ctx, goodPassphrase, raw); !errors.Is(err, domain.ErrBackupInvalid) {
			t.Fatalf("Import(%q) err = %v, want ErrBackupInvalid", raw, err)
		}
	}

	blob, _ := f.svc.Export(ctx, goodPassphrase)
	blob[len(blob)/2] ^= 0xff
	err := f.svc.Import(ctx, goodPassphrase, blob)
	if !errors.Is(err, domain.ErrBackupInvalid) && err == nil {
		t.Fatalf("tampered blob imported cleanly")
	}
}

func TestExport_WeakPassphraseRejected(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Export(context.Background(), "abc"); err == nil {
		t.Fatal("expected weak passphrase to be rejected")
	}
}

func TestImport_ResetsVault(t *testing.T) {
	ctx := context.Background()
	src := newFixture(t)
	blob, err := src.svc.Export(ctx, goodPassphrase)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := newFixture(t)
	if err := dst.vault.Put("conv-1", domain.RoomKey{1}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := dst.svc.Import(ctx, goodPassphrase, blob); err != nil {
		t.Fatalf("import: %v", err)
	}
	if dst.vault.HasKey("conv-1") {
		t.Fatal("vault must be reset after identity import")
	}
}

func TestImport_CancelledBeforeCommit(t *testing.T) {
	src := newFixture(t)
	blob, err := src.svc.Export(context.Background(), goodPassphrase)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := newFixture(t)
	before, _ := dst.ids.Identity()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := dst.svc.Import(ctx, goodPassphrase, blob); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	after, _ := dst.ids.Identity()
	if after.XPub != before.XPub {
		t.Fatal("cancelled import must not replace the identity")
	}
}
