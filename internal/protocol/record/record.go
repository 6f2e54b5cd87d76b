package record

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"securemail/internal/domain"
)

// Line prefixes, in the order they appear in a stored record. A submission
// has the same lines without the timestamp.
const (
	PrefixFrom          = "From: "
	PrefixTo            = "To: "
	PrefixTimestamp     = "Time and Date: "
	PrefixTitle         = "Title: "
	PrefixContentLength = "Content Length: "
	ContentMarker       = "Content:"

	// RecipientSeparator joins the names on the To line.
	RecipientSeparator = ";"
)

var (
	// ErrMalformed is returned when a line is missing or out of place.
	ErrMalformed = errors.New("record: malformed")

	submissionLayout = []string{PrefixFrom, PrefixTo, PrefixTitle, PrefixContentLength}
	recordLayout     = []string{PrefixFrom, PrefixTo, PrefixTimestamp, PrefixTitle, PrefixContentLength}
)

// Submission is a decoded client submission. ContentLength is the value the
// client declared, which the server does not trust.
type Submission struct {
	From          string
	To            []string
	Title         string
	ContentLength int
	Content       string
}

// EncodeSubmission renders m in the layout a client sends.
func EncodeSubmission(m *domain.Mail) []byte {
	var sb strings.Builder
	sb.WriteString(PrefixFrom + m.From.String() + "\n")
	sb.WriteString(PrefixTo + joinRecipients(m.To) + "\n")
	sb.WriteString(PrefixTitle + m.Title + "\n")
	sb.WriteString(PrefixContentLength + strconv.Itoa(m.ContentLength()) + "\n")
	sb.WriteString(ContentMarker + "\n")
	sb.WriteString(m.Content)
	return []byte(sb.String())
}

// DecodeSubmission parses a client submission. Recipients are split on the
// separator and trimmed; empty names are dropped.
func DecodeSubmission(msg []byte) (*Submission, error) {
	fields, content, err := split(string(msg), submissionLayout)
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(fields[3]))
	if err != nil {
		return nil, fmt.Errorf("%w: content length %q", ErrMalformed, fields[3])
	}
	return &Submission{
		From:          fields[0],
		To:            splitRecipients(fields[1]),
		Title:         fields[2],
		ContentLength: n,
		Content:       content,
	}, nil
}

// Encode renders m as a stored record. The content length line is computed
// from the content.
func Encode(m *domain.Mail) []byte {
	var sb strings.Builder
	sb.WriteString(PrefixFrom + m.From.String() + "\n")
	sb.WriteString(PrefixTo + joinRecipients(m.To) + "\n")
	sb.WriteString(PrefixTimestamp + m.Timestamp() + "\n")
	sb.WriteString(PrefixTitle + m.Title + "\n")
	sb.WriteString(PrefixContentLength + strconv.Itoa(m.ContentLength()) + "\n")
	sb.WriteString(ContentMarker + "\n")
	sb.WriteString(m.Content)
	return []byte(sb.String())
}

// DecodeHeader reads the listing fields of a stored record. The timestamp is
// kept in its textual form.
func DecodeHeader(rec []byte) (domain.InboxEntry, error) {
	fields, _, err := split(string(rec), recordLayout)
	if err != nil {
		return domain.InboxEntry{}, err
	}
	return domain.InboxEntry{
		Sender:    domain.Username(fields[0]),
		Timestamp: fields[2],
		Title:     fields[3],
	}, nil
}

// Decode parses a whole stored record.
func Decode(rec []byte) (*domain.Mail, error) {
	fields, content, err := split(string(rec), recordLayout)
	if err != nil {
		return nil, err
	}
	at, err := time.ParseInLocation(domain.TimestampLayout, fields[2], time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp %q", ErrMalformed, fields[2])
	}
	m := &domain.Mail{
		From:       domain.Username(fields[0]),
		Title:      fields[3],
		Content:    content,
		ReceivedAt: at,
	}
	for _, r := range splitRecipients(fields[1]) {
		m.To = append(m.To, domain.Username(r))
	}
	return m, nil
}

// split checks that the message starts with one line per prefix in layout
// followed by the content marker line, and returns the line values and
// everything after the marker.
func split(msg string, layout []string) ([]string, string, error) {
	lines := strings.SplitN(msg, "\n", len(layout)+2)
	if len(lines) < len(layout)+1 {
		return nil, "", fmt.Errorf("%w: %d header lines, want %d", ErrMalformed, len(lines), len(layout)+1)
	}
	fields := make([]string, len(layout))
	for i, prefix := range layout {
		v, ok := strings.CutPrefix(lines[i], prefix)
		if !ok {
			return nil, "", fmt.Errorf("%w: line %d does not start with %q", ErrMalformed, i+1, prefix)
		}
		fields[i] = v
	}
	if strings.TrimRight(lines[len(layout)], "\r") != ContentMarker {
		return nil, "", fmt.Errorf("%w: missing %q line", ErrMalformed, ContentMarker)
	}
	var content string
	if len(lines) == len(layout)+2 {
		content = lines[len(layout)+1]
	}
	return fields, content, nil
}

func splitRecipients(s string) []string {
	var out []string
	for _, r := range strings.Split(s, RecipientSeparator) {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func joinRecipients(to []domain.Username) string {
	names := make([]string, len(to))
	for i, u := range to {
		names[i] = u.String()
	}
	return strings.Join(names, RecipientSeparator)
}
