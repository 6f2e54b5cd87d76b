package server_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"securemail/internal/client"
	"securemail/internal/domain"
	"securemail/internal/protocol/challenge"
	"securemail/internal/protocol/handshake"
	"securemail/internal/protocol/menu"
	"securemail/internal/server"
	"securemail/internal/server/servertest"
)

func TestSendAndRead(t *testing.T) {
	require := require.New(t)
	h := servertest.Start(t)

	alice := h.Dial(t, "alice")
	require.NoError(alice.SendMail([]domain.Username{"bob"}, "Hi", "hello"))
	require.NoError(alice.Quit())

	bob := h.Dial(t, "bob")
	listing, err := bob.Inbox()
	require.NoError(err)
	require.Equal(menu.InboxHeader+"\n1 alice 2024-11-23 10:00:00.000000 Hi", listing)

	rec, ok, err := bob.ReadEmail("1")
	require.NoError(err)
	require.True(ok)
	require.Equal("From: alice\nTo: bob\nTime and Date: 2024-11-23 10:00:00.000000\n"+
		"Title: Hi\nContent Length: 5\nContent:\nhello", rec)

	for _, idx := range []string{"0", "2", "-1", "one", ""} {
		rec, ok, err = bob.ReadEmail(idx)
		require.NoError(err, idx)
		require.False(ok, idx)
		require.Equal(menu.InvalidEmailIndex, rec)
	}
	require.NoError(bob.Quit())
}

func TestFirstContactPinsKey(t *testing.T) {
	require := require.New(t)
	h := servertest.Start(t)

	c := h.Dial(t, "carol")
	require.True(c.Session().NewClient)
	require.NoError(c.Quit())

	c = h.Dial(t, "carol")
	require.False(c.Session().NewClient)
	require.NoError(c.Quit())

	require.Contains(h.Log.String(), "Pinned key for carol: SHA256:")
}

func TestRejectedLogin(t *testing.T) {
	h := servertest.Start(t)

	for _, creds := range []struct {
		user domain.Username
		pass string
	}{
		{"alice", "wrong"},
		{"mallory", "p1"},
	} {
		_, err := client.Dial(context.Background(), h.ClientConfig(t, creds.user, creds.pass))
		require.ErrorIs(t, err, handshake.ErrRejected)

		want := fmt.Sprintf("The received client information: %s is invalid (Connection Terminated).", creds.user)
		servertest.Eventually(t, func() bool { return strings.Contains(h.Log.String(), want) }, want)
	}
}

func TestSameTitleOverwrites(t *testing.T) {
	require := require.New(t)
	h := servertest.Start(t)

	alice := h.Dial(t, "alice")
	require.NoError(alice.SendMail([]domain.Username{"bob"}, "Hi", "first"))
	require.NoError(alice.SendMail([]domain.Username{"bob"}, "Hi", "second"))
	require.NoError(alice.Quit())

	entries, err := h.Mailboxes.List("bob")
	require.NoError(err)
	require.Len(entries, 1)

	bob := h.Dial(t, "bob")
	rec, ok, err := bob.ReadEmail("1")
	require.NoError(err)
	require.True(ok)
	require.True(strings.HasSuffix(rec, "Content:\nsecond"))
}

func TestMultipleRecipients(t *testing.T) {
	require := require.New(t)
	h := servertest.Start(t)

	alice := h.Dial(t, "alice")
	require.NoError(alice.SendMail([]domain.Username{"bob", "carol", "../escape"}, "All", "x"))
	require.NoError(alice.Quit())

	for _, u := range []domain.Username{"bob", "carol"} {
		entries, err := h.Mailboxes.List(u)
		require.NoError(err)
		require.Len(entries, 1, u)
		require.Equal(domain.Username("alice"), entries[0].Sender)
	}
	servertest.Eventually(t, func() bool {
		return strings.Contains(h.Log.String(), "Skipping recipient from alice")
	}, "unsafe recipient should be logged")
}

func TestInboxNewestFirst(t *testing.T) {
	require := require.New(t)
	h := servertest.Start(t)

	alice := h.Dial(t, "alice")
	for _, title := range []string{"one", "two", "three"} {
		require.NoError(alice.SendMail([]domain.Username{"bob"}, title, title))
	}
	require.NoError(alice.Quit())

	bob := h.Dial(t, "bob")
	listing, err := bob.Inbox()
	require.NoError(err)
	require.Equal(menu.InboxHeader+"\n"+
		"1 alice 2024-11-23 10:00:02.000000 three\n"+
		"2 alice 2024-11-23 10:00:01.000000 two\n"+
		"3 alice 2024-11-23 10:00:00.000000 one", listing)
}

func TestServerUsesAuthenticatedSender(t *testing.T) {
	require := require.New(t)
	h := servertest.Start(t)

	raw := h.DialRaw(t, "alice")
	_, err := raw.Responder.Receive() // menu
	require.NoError(err)
	require.NoError(raw.Responder.SendString(domain.ChoiceSendMail.Token()))
	prompt, err := raw.Responder.ReceiveString()
	require.NoError(err)
	require.Equal(menu.PromptSendMail, prompt)
	require.NoError(raw.Responder.SendString(
		"From: mallory\nTo: bob\nTitle: Spoof\nContent Length: 99\nContent:\nbody"))

	// The server carries on with the menu.
	m, err := raw.Responder.ReceiveString()
	require.NoError(err)
	require.Equal(strings.TrimRight(menu.Text, " "), m)

	entries, err := h.Mailboxes.List("bob")
	require.NoError(err)
	require.Len(entries, 1)
	require.Equal(domain.Username("alice"), entries[0].Sender)

	rec, ok, err := h.Mailboxes.Fetch("bob", 1)
	require.NoError(err)
	require.True(ok)
	require.Contains(string(rec), "Content Length: 4\n")
}

func TestOversizedTitleIsDropped(t *testing.T) {
	require := require.New(t)
	h := servertest.Start(t)

	raw := h.DialRaw(t, "alice")
	_, err := raw.Responder.Receive()
	require.NoError(err)
	require.NoError(raw.Responder.SendString("1"))
	_, err = raw.Responder.Receive()
	require.NoError(err)
	require.NoError(raw.Responder.SendString(
		"From: alice\nTo: bob\nTitle: " + strings.Repeat("t", domain.MaxTitleLength+1) +
			"\nContent Length: 1\nContent:\nx"))

	_, err = raw.Responder.ReceiveString()
	require.NoError(err, "session continues after a dropped mail")

	entries, err := h.Mailboxes.List("bob")
	require.NoError(err)
	require.Empty(entries)
}

func TestInvalidChoiceTerminates(t *testing.T) {
	h := servertest.Start(t)

	raw := h.DialRaw(t, "alice")
	_, err := raw.Responder.Receive()
	require.NoError(t, err)
	require.NoError(t, raw.Responder.SendString("9"))

	_, err = raw.Responder.Receive()
	require.Error(t, err, "the server closes the connection")
	servertest.Eventually(t, func() bool { return h.Server.Connections() == 0 }, "worker should exit")
}

func TestChallengeExhaustionDropsOnlyThatConnection(t *testing.T) {
	require := require.New(t)
	h := servertest.Start(t)

	// bob is in the middle of a session while alice misbehaves.
	bob := h.Dial(t, "bob")
	_, err := bob.Menu()
	require.NoError(err)

	raw := h.DialRaw(t, "alice")
	_, err = raw.Responder.Receive() // menu
	require.NoError(err)
	for i := 0; i < challenge.DefaultRetries; i++ {
		require.NoError(raw.Frames.WriteFrame(raw.Cipher.Seal([]byte("....-1" + domain.ChoiceViewInbox.Token()))))
	}

	_, err = raw.Frames.ReadFrame()
	require.Error(err, "the server drops the connection")
	servertest.Eventually(t, func() bool {
		return strings.Contains(h.Log.String(), "Dropping alice")
	}, "exhaustion should be logged")

	listing, err := bob.Inbox()
	require.NoError(err)
	require.Equal(menu.InboxHeader+"\n", listing)
	require.NoError(bob.Quit())
}

func TestReplayedFrameIsIgnored(t *testing.T) {
	require := require.New(t)
	h := servertest.Start(t)

	raw := h.DialRaw(t, "alice")
	_, err := raw.Responder.Receive()
	require.NoError(err)

	// Select the inbox.
	require.NoError(raw.Responder.SendString("2"))
	listing, err := raw.Responder.ReceiveString()
	require.NoError(err)
	require.Contains(listing, menu.InboxHeader)

	// A stale answer followed by the genuine ack.
	require.NoError(raw.Frames.WriteFrame(raw.Cipher.Seal([]byte("....-1OK"))))
	require.NoError(raw.Responder.SendString(menu.ListingAck))

	m, err := raw.Responder.ReceiveString()
	require.NoError(err)
	require.Contains(m, "Select the operation:")
}

type panickyMailbox struct {
	domain.MailboxStore
}

func (panickyMailbox) List(domain.Username) ([]domain.InboxEntry, error) {
	panic("boom")
}

func TestWorkerPanicIsContained(t *testing.T) {
	require := require.New(t)
	h := servertest.Start(t, func(cfg *server.Config) {
		cfg.Mailboxes = panickyMailbox{cfg.Mailboxes}
	})

	bob := h.Dial(t, "bob")
	_, err := bob.Inbox()
	require.Error(err)
	servertest.Eventually(t, func() bool {
		return strings.Contains(h.Log.String(), "Worker panic: boom")
	}, "panic should be logged")

	alice := h.Dial(t, "alice")
	require.NoError(alice.SendMail([]domain.Username{"bob"}, "still", "up"))
	require.NoError(alice.Quit())
}

func TestConcurrentSessions(t *testing.T) {
	h := servertest.Start(t)

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for _, u := range []domain.Username{"alice", "bob", "carol"} {
		c := h.Dial(t, u)
		wg.Add(1)
		go func(u domain.Username, c *client.Client) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				if err := c.SendMail([]domain.Username{"alice"}, fmt.Sprintf("%s-%d", u, i), "x"); err != nil {
					errs <- err
					return
				}
			}
			errs <- c.Quit()
		}(u, c)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	entries, err := h.Mailboxes.List("alice")
	require.NoError(t, err)
	require.Len(t, entries, 15)
}

func TestShutdownClosesConnections(t *testing.T) {
	require := require.New(t)
	h := servertest.Start(t)

	c := h.Dial(t, "alice")
	_, err := c.Menu()
	require.NoError(err)
	require.Equal(1, h.Server.Connections())

	done := make(chan struct{})
	go func() {
		h.Server.Shutdown()
		h.Server.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not finish")
	}
	require.Zero(h.Server.Connections())

	_, err = c.Inbox()
	require.Error(err)
}
