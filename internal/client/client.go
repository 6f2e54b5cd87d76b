package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"unicode/utf8"

	"securemail/internal/domain"
	"securemail/internal/protocol/challenge"
	"securemail/internal/protocol/handshake"
	"securemail/internal/protocol/menu"
	"securemail/internal/protocol/record"
	"securemail/internal/wire"
)

var (
	// ErrTitleTooLong is returned before anything is sent.
	ErrTitleTooLong = fmt.Errorf("title exceeds maximum length of %d characters", domain.MaxTitleLength)

	// ErrContentTooLong is returned before anything is sent.
	ErrContentTooLong = fmt.Errorf("content exceeds maximum length of %d characters", domain.MaxContentLength)

	// ErrNoRecipients is returned when a mail names nobody.
	ErrNoRecipients = errors.New("no recipients")
)

// Config describes the user and the server to connect to.
type Config struct {
	Address     string
	ServerKey   domain.Encrypter
	PrivateKey  handshake.Decrypter
	PublicPEM   []byte
	Credentials domain.Credentials

	// MaxFrameSize bounds a single frame. Zero selects the default.
	MaxFrameSize int
}

// Client is one established session. It is not safe for concurrent use.
type Client struct {
	conn    net.Conn
	session *handshake.Session
	ch      *challenge.Responder

	menu    string
	hasMenu bool
}

// Dial connects to cfg.Address and completes the handshake.
func Dial(ctx context.Context, cfg *Config) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.Address)
	if err != nil {
		return nil, err
	}
	c, err := newClient(conn, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

func newClient(conn net.Conn, cfg *Config) (*Client, error) {
	wc := wire.NewConn(conn, cfg.MaxFrameSize)
	sess, err := handshake.Dial(wc, cfg.ServerKey, cfg.PrivateKey, cfg.PublicPEM, cfg.Credentials)
	if err != nil {
		return nil, err
	}
	cipher, err := sess.Cipher()
	if err != nil {
		return nil, err
	}
	c := &Client{conn: conn, session: sess, ch: challenge.NewResponder(wc, cipher)}

	// The first challenge carries no payload.
	if _, err := c.ch.Receive(); err != nil {
		return nil, err
	}
	return c, nil
}

// Session returns the handshake outcome.
func (c *Client) Session() *handshake.Session { return c.session }

// Menu returns the menu text the server is waiting on.
func (c *Client) Menu() (string, error) {
	if !c.hasMenu {
		m, err := c.ch.ReceiveString()
		if err != nil {
			return "", err
		}
		c.menu, c.hasMenu = m, true
	}
	return c.menu, nil
}

func (c *Client) choose(choice domain.Choice) error {
	if _, err := c.Menu(); err != nil {
		return err
	}
	c.hasMenu = false
	return c.ch.SendString(choice.Token())
}

// SendMail submits a mail. The limits are checked before anything is sent.
func (c *Client) SendMail(to []domain.Username, title, content string) error {
	if len(to) == 0 {
		return ErrNoRecipients
	}
	if utf8.RuneCountInString(title) > domain.MaxTitleLength {
		return ErrTitleTooLong
	}
	m := &domain.Mail{From: c.session.Username, To: to, Title: title, Content: content}
	if m.ContentLength() > domain.MaxContentLength {
		return ErrContentTooLong
	}

	if err := c.choose(domain.ChoiceSendMail); err != nil {
		return err
	}
	if _, err := c.ch.Receive(); err != nil {
		return err
	}
	return c.ch.Send(record.EncodeSubmission(m))
}

// Inbox returns the server's formatted listing.
func (c *Client) Inbox() (string, error) {
	if err := c.choose(domain.ChoiceViewInbox); err != nil {
		return "", err
	}
	listing, err := c.ch.ReceiveString()
	if err != nil {
		return "", err
	}
	return listing, c.ch.SendString(menu.ListingAck)
}

// ReadEmail fetches a record by its 1-based index, given as typed. ok is
// false when the server could not resolve it.
func (c *Client) ReadEmail(index string) (rec string, ok bool, err error) {
	if err := c.choose(domain.ChoiceViewEmail); err != nil {
		return "", false, err
	}
	if _, err := c.ch.Receive(); err != nil {
		return "", false, err
	}
	if err := c.ch.SendString(index); err != nil {
		return "", false, err
	}
	reply, err := c.ch.ReceiveString()
	if err != nil {
		return "", false, err
	}
	if menu.IsInvalidIndex(reply) {
		return reply, false, nil
	}
	return reply, true, nil
}

// Quit ends the session and closes the connection.
func (c *Client) Quit() error {
	err := c.choose(domain.ChoiceTerminate)
	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close drops the connection without telling the server.
func (c *Client) Close() error { return c.conn.Close() }
