package resolver

import (
	"fmt"
	"sort"
	"strings"
)

// AuthenticationError is returned by write operations performed without a
// resolved principal.  It is surfaced to the caller verbatim and never
// retried.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string { return e.Reason }

func notAuthenticated() error {
	return &AuthenticationError{Reason: "not authenticated"}
}

// UserInputError reports a validation, uniqueness or lookup failure.  It
// carries the offending arguments for client diagnostics.
type UserInputError struct {
	Reason      string
	InvalidArgs map[string]interface{}
}

func (e *UserInputError) Error() string {
	if len(e.InvalidArgs) == 0 {
		return e.Reason
	}
	keys := make([]string, 0, len(e.InvalidArgs))
	for k := range e.InvalidArgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, e.InvalidArgs[k]))
	}
	return fmt.Sprintf("%s (invalid args: %s)", e.Reason, strings.Join(parts, ", "))
}

func userInput(err error, args map[string]interface{}) error {
	return &UserInputError{Reason: err.Error(), InvalidArgs: args}
}
