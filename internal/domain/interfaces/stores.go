package interfaces

import domaintypes "securemail/internal/domain/types"

// CredentialStore answers whether a username/password pair is registered.
// It is loaded once at startup and never modified.
type CredentialStore interface {
	Verify(creds domaintypes.Credentials) bool
	Exists(username domaintypes.Username) bool
}

// KeyStorage persists raw public key material per user.
type KeyStorage interface {
	// LoadPublicKey returns ok=false when no key has been saved for username.
	LoadPublicKey(username domaintypes.Username) (raw []byte, ok bool, err error)
	SavePublicKey(username domaintypes.Username, raw []byte) error
	Close() error
}

// MailboxProvisioner creates a user's mailbox ahead of any delivery.
type MailboxProvisioner interface {
	Ensure(username domaintypes.Username) error
}

// MailboxStore keeps one record per (sender, title) in each recipient's
// mailbox.
type MailboxStore interface {
	MailboxProvisioner

	// Append stores mail for recipient, replacing any record with the same
	// sender and title.
	Append(recipient domaintypes.Username, mail domaintypes.Mail) error

	// List returns the mailbox newest first by the recorded timestamp.
	List(username domaintypes.Username) ([]domaintypes.InboxEntry, error)

	// Fetch returns the record at 1-based index, ordering the mailbox newest
	// first by file modification time. ok is false when index is out of range.
	Fetch(username domaintypes.Username, index int) (record []byte, ok bool, err error)
}
