package user

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	FieldUsername = "username"
	FieldEmail    = "email"
	FieldPassword = "password"
)

// RegisterRequest is the signup body as it arrives. A nil field means the key
// was absent from the JSON object.
type RegisterRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// UnmarshalJSON matches keys exactly. encoding/json folds case on struct
// fields, which would let {"USERNAME": ...} count as a username.
func (r *RegisterRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = RegisterRequest{}

	for key, dst := range map[string]**string{
		FieldUsername: &r.Username,
		FieldEmail:    &r.Email,
		FieldPassword: &r.Password,
	} {
		v, ok := raw[key]
		if !ok {
			continue
		}

		if err := json.Unmarshal(v, dst); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				typeErr.Field = key
				typeErr.Struct = "RegisterRequest"
			}
			return err
		}
	}

	return nil
}

// RegisterPayload is a signup body that passed ValidateRegistration.
// Password is still plaintext; hashing is the caller's job.
type RegisterPayload struct {
	Username string
	Email    string
	Password string
}

type Issue struct {
	Field   string  `json:"field"`
	Kind    Message `json:"-"`
	Message string  `json:"message"`
}

// ValidationError carries every failed field of a registration, in check
// order, at most one issue per field.
type ValidationError struct {
	issues []Issue
}

func (e *ValidationError) Issues() []Issue {
	out := make([]Issue, len(e.issues))
	copy(out, e.issues)
	return out
}

func (e *ValidationError) Messages() []Message {
	out := make([]Message, 0, len(e.issues))
	for _, is := range e.issues {
		out = append(out, is.Kind)
	}
	return out
}

// Error joins the messages with ". " in check order.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.issues))
	for _, is := range e.issues {
		parts = append(parts, is.Message)
	}
	return strings.Join(parts, ". ")
}

func (e *ValidationError) add(m Message) {
	e.issues = append(e.issues, Issue{Field: m.Field(), Kind: m, Message: m.String()})
}

var emailRule = validator.New()

// ValidateRegistration checks username, email and password in that order and
// reports all failures at once. It has no side effects.
func ValidateRegistration(req RegisterRequest) (RegisterPayload, error) {
	var out RegisterPayload
	verr := &ValidationError{}

	if m, ok := checkUsername(req.Username); !ok {
		verr.add(m)
	} else {
		out.Username = strings.TrimSpace(*req.Username)
	}

	if m, ok := checkEmail(req.Email); !ok {
		verr.add(m)
	} else {
		out.Email = NormalizeEmail(*req.Email)
	}

	if m, ok := checkPassword(req.Password); !ok {
		verr.add(m)
	} else {
		out.Password = *req.Password
	}

	if len(verr.issues) > 0 {
		return RegisterPayload{}, verr
	}

	return out, nil
}

func checkUsername(v *string) (Message, bool) {
	if v == nil {
		return UsernameRequired, false
	}

	s := strings.TrimSpace(*v)
	n := utf8.RuneCountInString(s)

	switch {
	case n == 0:
		return UsernameRequired, false
	case n < MinUsernameLength:
		return UsernameTooShort, false
	case n > MaxUsernameLength:
		return UsernameTooLong, false
	}

	return 0, true
}

func checkEmail(v *string) (Message, bool) {
	if v == nil {
		return EmailRequired, false
	}

	s := strings.TrimSpace(*v)
	if s == "" {
		return EmailRequired, false
	}

	if err := emailRule.Var(s, "email"); err != nil {
		return EmailWrongFormat, false
	}

	return 0, true
}

func checkPassword(v *string) (Message, bool) {
	if v == nil || *v == "" {
		return PasswordRequired, false
	}

	n := utf8.RuneCountInString(*v)

	switch {
	case n < MinPasswordLength:
		return PasswordTooShort, false
	case n > MaxPasswordLength:
		return PasswordTooLong, false
	}

	return 0, true
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
