// Package store provides file-based persistence for the mail server.
//
// It contains concrete implementations of the domain storage interfaces.
// Writes go through a temp file and a rename so a reader never sees a
// partially written file. All methods are safe for concurrent use.
//
// The package includes:
//   - The credential file (CredentialFile)
//   - Pinned public keys on disk (FileKeyStorage) or in bbolt (BoltKeyStorage)
//   - Per-user mailboxes (MailboxFileStore)
package store
