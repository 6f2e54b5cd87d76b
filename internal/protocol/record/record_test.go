package record

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"securemail/internal/domain"
)

func TestSubmissionLayout(t *testing.T) {
	require := require.New(t)

	m := &domain.Mail{
		From:    "alice",
		To:      []domain.Username{"bob", "carol"},
		Title:   "Hi",
		Content: "hello",
	}
	require.Equal("From: alice\nTo: bob;carol\nTitle: Hi\nContent Length: 5\nContent:\nhello",
		string(EncodeSubmission(m)))
}

func TestDecodeSubmission(t *testing.T) {
	require := require.New(t)

	msg := "From: alice\nTo:  bob ; carol;;\nTitle: a: b\nContent Length: 12\nContent:\nline one\nline two"
	s, err := DecodeSubmission([]byte(msg))
	require.NoError(err)
	require.Equal("alice", s.From)
	require.Equal([]string{"bob", "carol"}, s.To)
	require.Equal("a: b", s.Title)
	require.Equal(12, s.ContentLength)
	require.Equal("line one\nline two", s.Content)

	s, err = DecodeSubmission([]byte("From: alice\nTo: bob\nTitle: empty\nContent Length: 0\nContent:"))
	require.NoError(err)
	require.Empty(s.Content)
}

func TestDecodeSubmissionRejectsLayout(t *testing.T) {
	for name, msg := range map[string]string{
		"short":          "From: alice\nTo: bob",
		"reordered":      "To: bob\nFrom: alice\nTitle: x\nContent Length: 1\nContent:\nx",
		"no marker":      "From: alice\nTo: bob\nTitle: x\nContent Length: 1\nx\ny",
		"bad length":     "From: alice\nTo: bob\nTitle: x\nContent Length: one\nContent:\nx",
		"missing prefix": "From alice\nTo: bob\nTitle: x\nContent Length: 1\nContent:\nx",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSubmission([]byte(msg))
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestRecordRoundTrip(t *testing.T) {
	require := require.New(t)

	at := time.Date(2024, 11, 23, 9, 30, 1, 123456000, time.Local)
	m := &domain.Mail{
		From:       "alice",
		To:         []domain.Username{"bob"},
		Title:      "Hi",
		Content:    "héllo\n\nbye",
		ReceivedAt: at,
	}
	rec := Encode(m)
	require.True(strings.HasPrefix(string(rec),
		"From: alice\nTo: bob\nTime and Date: 2024-11-23 09:30:01.123456\nTitle: Hi\nContent Length: 10\nContent:\n"))

	hdr, err := DecodeHeader(rec)
	require.NoError(err)
	require.Equal(domain.InboxEntry{Sender: "alice", Timestamp: "2024-11-23 09:30:01.123456", Title: "Hi"}, hdr)

	got, err := Decode(rec)
	require.NoError(err)
	require.Equal(m.From, got.From)
	require.Equal(m.To, got.To)
	require.Equal(m.Title, got.Title)
	require.Equal(m.Content, got.Content)
	require.True(at.Equal(got.ReceivedAt))
}

func TestDecodeHeaderRejectsSubmission(t *testing.T) {
	_, err := DecodeHeader([]byte("From: alice\nTo: bob\nTitle: Hi\nContent Length: 5\nContent:\nhello"))
	require.ErrorIs(t, err, ErrMalformed)
}
