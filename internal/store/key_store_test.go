// internal/store/key_store_test.go
package store_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"securemail/internal/domain"
	"securemail/internal/store"
)

func keyStorages(t *testing.T) map[string]domain.KeyStorage {
	t.Helper()
	dir := t.TempDir()
	bolt, err := store.OpenBoltKeyStorage(filepath.Join(dir, "keys.db"))
	if err != nil {
		t.Fatalf("open bolt: %v", err)
	}
	t.Cleanup(func() { _ = bolt.Close() })
	return map[string]domain.KeyStorage{
		"file": store.NewFileKeyStorage(filepath.Join(dir, "keys")),
		"bolt": bolt,
	}
}

func TestKeyStorage_SaveLoad(t *testing.T) {
	for name, ks := range keyStorages(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := ks.LoadPublicKey("alice"); err != nil || ok {
				t.Fatalf("load before save: ok=%v err=%v", ok, err)
			}

			if err := ks.SavePublicKey("alice", []byte("first")); err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := ks.SavePublicKey("alice", []byte("second")); err != nil {
				t.Fatalf("resave: %v", err)
			}

			got, ok, err := ks.LoadPublicKey("alice")
			if err != nil || !ok {
				t.Fatalf("load: ok=%v err=%v", ok, err)
			}
			if !bytes.Equal(got, []byte("second")) {
				t.Fatalf("last write should win, got %q", got)
			}

			if err := ks.SavePublicKey("../bob", []byte("x")); err == nil {
				t.Fatal("expected invalid username to be refused")
			}
		})
	}
}

func TestFileKeyStorage_Layout(t *testing.T) {
	dir := t.TempDir()
	ks := store.NewFileKeyStorage(dir)

	if err := ks.SavePublicKey("alice", []byte("pem")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "alice_public.pem")); err != nil {
		t.Fatalf("key file not where expected: %v", err)
	}

	// An empty key file counts as no key.
	if err := os.WriteFile(filepath.Join(dir, "bob_public.pem"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := ks.LoadPublicKey("bob"); err != nil || ok {
		t.Fatalf("empty file: ok=%v err=%v", ok, err)
	}
}

func TestBoltKeyStorage_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.db")

	ks, err := store.OpenBoltKeyStorage(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := ks.SavePublicKey("alice", []byte("pem")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := ks.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	ks, err = store.OpenBoltKeyStorage(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer ks.Close()
	if got, ok, _ := ks.LoadPublicKey("alice"); !ok || string(got) != "pem" {
		t.Fatalf("key lost across reopen: %q", got)
	}
}
