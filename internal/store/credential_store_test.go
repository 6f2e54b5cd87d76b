// internal/store/credential_store_test.go
package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"securemail/internal/domain"
	"securemail/internal/store"
)

func writeCredentials(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "user_pass.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write credentials: %v", err)
	}
	return path
}

func TestCredentials_Verify(t *testing.T) {
	path := writeCredentials(t, `{"alice": "p1", "bob": "p2"}`)

	var creds domain.CredentialStore
	creds, err := store.LoadCredentialFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	cases := []struct {
		user, pass string
		want       bool
	}{
		{"alice", "p1", true},
		{"bob", "p2", true},
		{"alice", "p2", false},
		{"alice", "p1 ", false},
		{"carol", "p1", false},
		{"", "", false},
	}
	for _, c := range cases {
		got := creds.Verify(domain.Credentials{Username: domain.Username(c.user), Password: c.pass})
		if got != c.want {
			t.Errorf("Verify(%q, %q) = %v, want %v", c.user, c.pass, got, c.want)
		}
	}
	if !creds.Exists("alice") || creds.Exists("carol") {
		t.Fatal("Exists disagrees with the file")
	}
}

func TestCredentials_MissingFile_Fails(t *testing.T) {
	if _, err := store.LoadCredentialFile(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing credentials file")
	}
	if _, err := store.LoadCredentialFile(writeCredentials(t, "not json")); err == nil {
		t.Fatal("expected error for malformed credentials file")
	}
}

func TestCredentials_Put(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_pass.json")

	f, err := store.OpenCredentialFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := f.Put("alice", "p1"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := f.Put("../evil", "x"); err == nil {
		t.Fatal("expected invalid username to be refused")
	}

	reloaded, err := store.LoadCredentialFile(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.Verify(domain.Credentials{Username: "alice", Password: "p1"}) {
		t.Fatal("credentials not persisted")
	}
	if got := reloaded.Usernames(); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("Usernames = %v", got)
	}
}
