package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"gopkg.in/op/go-logging.v1"

	"securemail/internal/domain"
	"securemail/internal/protocol/record"
)

const mailSuffix = ".txt"

// MailboxFileStore keeps each user's mail in a directory named after the
// user under root. A record is stored under FileName(sender, title), so a
// second mail with the same sender and title replaces the first.
type MailboxFileStore struct {
	root string
	log  *logging.Logger

	mu sync.RWMutex
}

// NewMailboxFileStore returns a MailboxFileStore rooted at root. Records that
// cannot be decoded while listing are reported to log and skipped.
func NewMailboxFileStore(root string, log *logging.Logger) *MailboxFileStore {
	return &MailboxFileStore{root: root, log: log}
}

// Dir is the mailbox directory of username.
func (s *MailboxFileStore) Dir(username domain.Username) string {
	return filepath.Join(s.root, username.String())
}

// Ensure creates the mailbox directory of username.
func (s *MailboxFileStore) Ensure(username domain.Username) error {
	if err := username.Validate(); err != nil {
		return err
	}
	return os.MkdirAll(s.Dir(username), 0o700)
}

// Append stores mail in the mailbox of recipient.
func (s *MailboxFileStore) Append(recipient domain.Username, mail domain.Mail) error {
	if err := recipient.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.Dir(recipient), 0o700); err != nil {
		return err
	}
	path := filepath.Join(s.Dir(recipient), FileName(mail.From, mail.Title))
	return replaceFile(path, record.Encode(&mail), 0o600)
}

// List returns the mailbox of username ordered newest first by the
// timestamp recorded in each file. A missing mailbox is empty.
func (s *MailboxFileStore) List(username domain.Username) ([]domain.InboxEntry, error) {
	if err := username.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	paths, err := s.records(username)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.InboxEntry, 0, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		e, err := record.DecodeHeader(b)
		if err != nil {
			if s.log != nil {
				s.log.Warningf("Skipping %s: %v", p, err)
			}
			continue
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
	return entries, nil
}

// Fetch returns the record at the 1-based index, with the mailbox ordered
// newest first by file modification time. This is not necessarily the order
// List reports. Unlike List, Fetch counts records it cannot decode, so an
// index taken from a listing can name a different record when the mailbox
// holds malformed files. ok is false when index is out of range.
func (s *MailboxFileStore) Fetch(username domain.Username, index int) ([]byte, bool, error) {
	if err := username.Validate(); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	paths, err := s.records(username)
	if err != nil {
		return nil, false, err
	}
	if index < 1 || index > len(paths) {
		return nil, false, nil
	}

	mtimes := make(map[string]time.Time, len(paths))
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, false, err
		}
		mtimes[p] = fi.ModTime()
	}
	sort.SliceStable(paths, func(i, j int) bool {
		return mtimes[paths[i]].After(mtimes[paths[j]])
	})

	b, err := os.ReadFile(paths[index-1])
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// records lists the record files of username in name order.
func (s *MailboxFileStore) records(username domain.Username) ([]string, error) {
	ents, err := os.ReadDir(s.Dir(username))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: mailbox %s: %w", username, err)
	}
	var out []string
	for _, e := range ents {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), mailSuffix) && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, filepath.Join(s.Dir(username), e.Name()))
		}
	}
	return out, nil
}

// FileName is the name of the record for mail from sender with title.
//
// Both parts are escaped so that the name stays in the mailbox and the
// '_' joining them is the only unescaped one: distinct (sender, title) pairs
// never share a name. Names longer than maxFileName bytes keep a prefix and
// end in '~' and a hash of the pair; '~' is escaped elsewhere.
func FileName(sender domain.Username, title string) string {
	name := escapeName(sender.String(), true) + "_" + escapeName(title, false)
	if len(name)+len(mailSuffix) <= maxFileName {
		return name + mailSuffix
	}

	sum := sha256.Sum256([]byte(sender.String() + "\x00" + title))
	tag := "~" + hex.EncodeToString(sum[:hashBytes])
	cut := maxFileName - len(mailSuffix) - len(tag)
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut] + tag + mailSuffix
}

const (
	// maxFileName stays below the common 255 byte NAME_MAX.
	maxFileName = 200
	hashBytes   = 8
)

// escapeName percent-encodes the bytes that are separators in record names
// or unsafe in paths. A leading '.' is escaped in senders so the record is
// not hidden.
func escapeName(s string, leadingDot bool) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '%', c == '_', c == '~', c == '/', c == '\\', c == 0,
			leadingDot && i == 0 && c == '.':
			fmt.Fprintf(&b, "%%%02X", c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Compile-time assertion that MailboxFileStore implements domain.MailboxStore.
var _ domain.MailboxStore = (*MailboxFileStore)(nil)
