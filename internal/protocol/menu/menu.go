// Package menu holds the texts the server sends after the handshake and the
// inbox listing format. Clients match the prompts and markers literally.
package menu

import (
	"strconv"
	"strings"

	"securemail/internal/domain"
)

// Text is sent before every menu selection.
const Text = "\n\n" +
	"Select the operation:\n" +
	"1) Create and send an email\n" +
	"2) Display the inbox list\n" +
	"3) Display the email contents\n" +
	"4) Terminate the connection\n" +
	"choice: "

const (
	// PromptSendMail asks for a submission.
	PromptSendMail = "Send the email."

	// PromptEmailIndex asks for a 1-based index into the mailbox.
	PromptEmailIndex = "the server request email index"

	// InvalidEmailIndex replaces the record when the index does not resolve.
	InvalidEmailIndex = "Invalid email index"

	// InboxHeader is the first line of an inbox listing.
	InboxHeader = "Index From DateTime Title"

	// ListingAck is what a client returns after displaying a listing. The
	// server does not check it.
	ListingAck = "OK"
)

// FormatInbox renders entries as numbered rows under InboxHeader.
func FormatInbox(entries []domain.InboxEntry) string {
	rows := make([]string, len(entries))
	for i, e := range entries {
		rows[i] = strconv.Itoa(i+1) + " " + e.Sender.String() + " " + e.Timestamp + " " + e.Title
	}
	return InboxHeader + "\n" + strings.Join(rows, "\n")
}

// IsInvalidIndex reports whether a reply to PromptEmailIndex is the
// failure marker rather than a record.
func IsInvalidIndex(reply string) bool {
	return strings.HasPrefix(reply, "Invalid")
}
