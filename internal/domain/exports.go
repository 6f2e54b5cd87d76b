package domain

import (
	interfaces "securemail/internal/domain/interfaces"
	types "securemail/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Username    = types.Username
	Fingerprint = types.Fingerprint
	Credentials = types.Credentials
	Mail        = types.Mail
	InboxEntry  = types.InboxEntry
	Choice      = types.Choice
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	CredentialStore    = interfaces.CredentialStore
	KeyStorage         = interfaces.KeyStorage
	MailboxProvisioner = interfaces.MailboxProvisioner
	MailboxStore       = interfaces.MailboxStore
	Encrypter          = interfaces.Encrypter
	KeyRegistry        = interfaces.KeyRegistry
)

const (
	ChoiceInvalid   = types.ChoiceInvalid
	ChoiceSendMail  = types.ChoiceSendMail
	ChoiceViewInbox = types.ChoiceViewInbox
	ChoiceViewEmail = types.ChoiceViewEmail
	ChoiceTerminate = types.ChoiceTerminate

	MaxTitleLength   = types.MaxTitleLength
	MaxContentLength = types.MaxContentLength
	TimestampLayout  = types.TimestampLayout
)

var (
	// ParseChoice maps a menu token to a Choice.
	ParseChoice = types.ParseChoice

	ErrInvalidUsername = types.ErrInvalidUsername
)
