package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"securemail/internal/domain"
)

// Prompt drives a Client from line-oriented user input.
type Prompt struct {
	Client *Client
	In     io.Reader
	Out    io.Writer

	// FilesDir is where mail contents are loaded from.
	FilesDir string
}

// Run shows the menu and performs operations until the user terminates or
// input ends.
func (p *Prompt) Run() error {
	in := bufio.NewReader(p.In)
	for {
		m, err := p.Client.Menu()
		if err != nil {
			return err
		}
		fmt.Fprint(p.Out, m+" ")

		line, err := readLine(in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return p.Client.Quit()
			}
			return err
		}

		line = strings.TrimSpace(line)
		switch domain.ParseChoice(line) {
		case domain.ChoiceSendMail:
			err = p.sendMail(in)
		case domain.ChoiceViewInbox:
			err = p.viewInbox()
		case domain.ChoiceViewEmail:
			err = p.viewEmail(in)
		case domain.ChoiceTerminate:
			if err := p.Client.Quit(); err != nil {
				return err
			}
			fmt.Fprintln(p.Out, "The connection is terminated with the server.")
			return nil
		default:
			fmt.Fprintf(p.Out, "Invalid choice %q\n", line)
		}
		if err != nil {
			return err
		}
	}
}

func (p *Prompt) sendMail(in *bufio.Reader) error {
	dests, err := p.ask(in, "Enter destinations (separated by ;): ")
	if err != nil {
		return err
	}
	title, err := p.ask(in, "Enter title: ")
	if err != nil {
		return err
	}
	load, err := p.ask(in, "Would you like to load contents from a file?(Y/N) ")
	if err != nil {
		return err
	}

	var content string
	if strings.EqualFold(load, "y") {
		name, err := p.ask(in, "Enter filename: ")
		if err != nil {
			return err
		}
		b, err := os.ReadFile(filepath.Join(p.FilesDir, name))
		if err != nil {
			fmt.Fprintf(p.Out, "Error: File %s not found in files directory\n", name)
			return nil
		}
		content = string(b)
	} else if content, err = p.ask(in, "Enter message contents: "); err != nil {
		return err
	}

	var to []domain.Username
	for _, d := range strings.Split(dests, ";") {
		if d = strings.TrimSpace(d); d != "" {
			to = append(to, domain.Username(d))
		}
	}

	switch err := p.Client.SendMail(to, title, content); {
	case errors.Is(err, ErrTitleTooLong), errors.Is(err, ErrContentTooLong), errors.Is(err, ErrNoRecipients):
		fmt.Fprintf(p.Out, "Error: %v\n", err)
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintln(p.Out, "The message is sent to the server.")
	return nil
}

func (p *Prompt) viewInbox() error {
	listing, err := p.Client.Inbox()
	if err != nil {
		return err
	}
	fmt.Fprintln(p.Out, listing)
	return nil
}

func (p *Prompt) viewEmail(in *bufio.Reader) error {
	index, err := p.ask(in, "Enter the email index you wish to view: ")
	if err != nil {
		return err
	}
	rec, ok, err := p.Client.ReadEmail(index)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(p.Out, "\nError: %s\n", rec)
		return nil
	}
	fmt.Fprintln(p.Out, rec)
	return nil
}

func (p *Prompt) ask(in *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(p.Out, prompt)
	return readLine(in)
}

// readLine returns the next line without its terminator. A final line
// without a newline is returned before io.EOF.
func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
