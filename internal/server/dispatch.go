package server

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/op/go-logging.v1"

	"securemail/internal/domain"
	"securemail/internal/instrument"
	"securemail/internal/protocol/challenge"
	"securemail/internal/protocol/menu"
	"securemail/internal/protocol/record"
)

// dispatcher runs the menu loop of one established session. Any error it
// returns ends the connection.
type dispatcher struct {
	ch        *challenge.Channel
	user      domain.Username
	mailboxes domain.MailboxStore
	log       *logging.Logger
	now       func() time.Time
}

func (d *dispatcher) run() error {
	// The first challenge carries no payload.
	if err := d.ch.SendString(""); err != nil {
		return err
	}

	for {
		if err := d.ch.SendString(menu.Text); err != nil {
			return err
		}
		token, err := d.ch.ReceiveString()
		if err != nil {
			return err
		}

		choice := domain.ParseChoice(token)
		instrument.Operation(choice)
		switch choice {
		case domain.ChoiceSendMail:
			err = d.sendMail()
		case domain.ChoiceViewInbox:
			err = d.viewInbox()
		case domain.ChoiceViewEmail:
			err = d.viewEmail()
		default:
			// Anything but a known token ends the session, like "4".
			d.log.Noticef("Terminating connection with %s", d.user)
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (d *dispatcher) sendMail() error {
	if err := d.ch.SendString(menu.PromptSendMail); err != nil {
		return err
	}
	msg, err := d.ch.Receive()
	if err != nil {
		return err
	}

	sub, err := record.DecodeSubmission(msg)
	if err != nil {
		d.log.Warningf("Dropping submission from %s: %v", d.user, err)
		return nil
	}
	if n := utf8.RuneCountInString(sub.Title); n > domain.MaxTitleLength {
		d.log.Warningf("Dropping mail from %s: title has %d characters", d.user, n)
		return nil
	}
	mail := domain.Mail{
		From:       d.user,
		Title:      sub.Title,
		Content:    sub.Content,
		ReceivedAt: d.now(),
	}
	if n := mail.ContentLength(); n > domain.MaxContentLength {
		d.log.Warningf("Dropping mail from %s: content has %d characters", d.user, n)
		return nil
	}
	if sub.From != d.user.String() {
		d.log.Warningf("Submission from %s claims to be from %q", d.user, sub.From)
	}
	if sub.ContentLength != mail.ContentLength() {
		d.log.Debugf("Declared content length %d, actual %d", sub.ContentLength, mail.ContentLength())
	}

	for _, r := range sub.To {
		u := domain.Username(r)
		if err := u.Validate(); err != nil {
			d.log.Warningf("Skipping recipient from %s: %v", d.user, err)
			continue
		}
		mail.To = append(mail.To, u)
	}

	var delivered []string
	for _, u := range mail.To {
		if err := d.mailboxes.Append(u, mail); err != nil {
			d.log.Errorf("Storing mail from %s for %s: %v", d.user, u, err)
			continue
		}
		instrument.MailStored()
		delivered = append(delivered, u.String())
	}
	d.log.Noticef("An email from %s is sent to %s has a content length of %d",
		d.user, strings.Join(delivered, ";"), mail.ContentLength())
	return nil
}

func (d *dispatcher) viewInbox() error {
	entries, err := d.mailboxes.List(d.user)
	if err != nil {
		return err
	}
	if err := d.ch.SendString(menu.FormatInbox(entries)); err != nil {
		return err
	}
	// The client acknowledges once it has displayed the listing.
	_, err = d.ch.Receive()
	return err
}

func (d *dispatcher) viewEmail() error {
	if err := d.ch.SendString(menu.PromptEmailIndex); err != nil {
		return err
	}
	reply, err := d.ch.ReceiveString()
	if err != nil {
		return err
	}

	index, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil {
		d.log.Debugf("Bad email index from %s: %q", d.user, reply)
		return d.ch.SendString(menu.InvalidEmailIndex)
	}
	rec, ok, err := d.mailboxes.Fetch(d.user, index)
	if err != nil {
		return err
	}
	if !ok {
		return d.ch.SendString(menu.InvalidEmailIndex)
	}
	return d.ch.Send(rec)
}
