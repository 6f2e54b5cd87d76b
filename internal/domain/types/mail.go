package types

import (
	"time"
	"unicode/utf8"
)

const (
	// MaxTitleLength is the maximum title length in characters.
	MaxTitleLength = 100

	// MaxContentLength is the maximum content length in characters.
	MaxContentLength = 1000000

	// TimestampLayout renders ReceivedAt so that lexical order matches
	// chronological order.
	TimestampLayout = "2006-01-02 15:04:05.000000"
)

// Mail is one message as submitted by a sender. It is stored once per
// recipient; the copies share nothing after that.
type Mail struct {
	From       Username
	To         []Username
	Title      string
	Content    string
	ReceivedAt time.Time
}

// ContentLength is the number of characters in Content.
func (m *Mail) ContentLength() int { return utf8.RuneCountInString(m.Content) }

// Timestamp returns ReceivedAt in its stored textual form.
func (m *Mail) Timestamp() string { return m.ReceivedAt.Format(TimestampLayout) }

// InboxEntry is one row of an inbox listing.
type InboxEntry struct {
	Sender    Username
	Timestamp string
	Title     string
}
