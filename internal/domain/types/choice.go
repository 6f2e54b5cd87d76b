package types

// Choice is a menu selection sent by the client after each menu frame.
type Choice int

const (
	ChoiceInvalid Choice = iota
	ChoiceSendMail
	ChoiceViewInbox
	ChoiceViewEmail
	ChoiceTerminate
)

// ParseChoice maps a menu token to a Choice. Unknown tokens yield
// ChoiceInvalid, which the server treats like ChoiceTerminate.
func ParseChoice(token string) Choice {
	switch token {
	case "1":
		return ChoiceSendMail
	case "2":
		return ChoiceViewInbox
	case "3":
		return ChoiceViewEmail
	case "4":
		return ChoiceTerminate
	default:
		return ChoiceInvalid
	}
}

// Token returns the wire token for c, or "" for ChoiceInvalid.
func (c Choice) Token() string {
	switch c {
	case ChoiceSendMail:
		return "1"
	case ChoiceViewInbox:
		return "2"
	case ChoiceViewEmail:
		return "3"
	case ChoiceTerminate:
		return "4"
	default:
		return ""
	}
}

func (c Choice) String() string {
	switch c {
	case ChoiceSendMail:
		return "send-mail"
	case ChoiceViewInbox:
		return "view-inbox"
	case ChoiceViewEmail:
		return "view-email"
	case ChoiceTerminate:
		return "terminate"
	default:
		return "invalid"
	}
}
