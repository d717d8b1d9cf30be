package user

import "strconv"

const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
	MinPasswordLength = 8
	MaxPasswordLength = 32
)

// Message is the closed set of registration validation outcomes.
type Message int

const (
	UsernameRequired Message = iota + 1
	UsernameTooShort
	UsernameTooLong
	EmailRequired
	EmailWrongFormat
	PasswordRequired
	PasswordTooShort
	PasswordTooLong
)

func (m Message) String() string {
	switch m {
	case UsernameRequired:
		return "Username is required"
	case UsernameTooShort:
		return "Username must have at least " + strconv.Itoa(MinUsernameLength) + " characters"
	case UsernameTooLong:
		return "Username must have at most " + strconv.Itoa(MaxUsernameLength) + " characters"
	case EmailRequired:
		return "Email is required"
	case EmailWrongFormat:
		return "Email is wrong"
	case PasswordRequired:
		return "Password is required"
	case PasswordTooShort:
		return "Password must have at least " + strconv.Itoa(MinPasswordLength) + " characters"
	case PasswordTooLong:
		return "Password must have at most " + strconv.Itoa(MaxPasswordLength) + " characters"
	default:
		return "Message(" + strconv.Itoa(int(m)) + ")"
	}
}

// Field reports which payload key a message belongs to.
func (m Message) Field() string {
	switch m {
	case UsernameRequired, UsernameTooShort, UsernameTooLong:
		return FieldUsername
	case EmailRequired, EmailWrongFormat:
		return FieldEmail
	case PasswordRequired, PasswordTooShort, PasswordTooLong:
		return FieldPassword
	default:
		return ""
	}
}

func (m Message) IsValid() bool {
	return m >= UsernameRequired && m <= PasswordTooLong
}
