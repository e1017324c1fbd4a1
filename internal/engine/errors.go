package engine

import (
	"errors"
	"strings"
)

var (
	// ErrTurnInProgress is returned when a second turn is started for a
	// thread that already has one in flight.
	ErrTurnInProgress = errors.New("engine: a turn is already in progress for this thread")

	// ErrEmptyQuery rejects turns with no query text.
	ErrEmptyQuery = errors.New("engine: empty query")
)

// errorRewrites maps known upstream error substrings to user-safe guidance.
// Raw provider errors about conversation shape are meaningless to callers.
var errorRewrites = []struct {
	substring string
	message   string
}{
	{
		substring: "single turn requests end with a user role",
		message:   "There was an issue with the conversation format. Please try starting a new conversation.",
	},
	{
		substring: "Invalid argument provided",
		message:   "The AI service encountered an error. Please try rephrasing your question or start a new conversation.",
	},
}

// rewriteError converts an internal error into the message exposed on the
// stream. Unrecognized errors pass through verbatim.
func rewriteError(err error) string {
	msg := err.Error()
	for _, rw := range errorRewrites {
		if strings.Contains(msg, rw.substring) {
			return rw.message
		}
	}
	return msg
}
