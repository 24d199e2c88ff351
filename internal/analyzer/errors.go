package analyzer

import (
	"errors"
	"fmt"
)

// ErrInvalidMessage is wrapped by every InputError.
var ErrInvalidMessage = errors.New("analyzer: invalid message")

// InputError reports a structurally invalid message in the input list.
type InputError struct {
	Index  int
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("analyzer: message %d: %s", e.Index, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidMessage
}

// Validate checks that every message carries a known role.
// Empty content is allowed.
func Validate(messages []Message) error {
	for i, m := range messages {
		switch m.Role {
		case RoleUser, RoleAssistant:
		case "":
			return &InputError{Index: i, Reason: "missing role"}
		default:
			return &InputError{Index: i, Reason: fmt.Sprintf("unknown role %q", m.Role)}
		}
	}
	return nil
}
