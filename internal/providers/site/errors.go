package site

import (
	"errors"
	"fmt"
)

var ErrBotChallenge = errors.New("bot challenge")

// FetchError is returned for any page that could not be loaded. Status is 0
// when no response was received.
type FetchError struct {
	URL    string
	Status int
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	msg := "fetch " + e.URL + ": " + e.Reason
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Err != nil && !errors.Is(e.Err, ErrBotChallenge) {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

func statusReason(code int) string {
	switch {
	case code == 401:
		return "unauthorized"
	case code == 403:
		return "forbidden"
	case code == 404:
		return "not found"
	case code >= 500:
		return "server error"
	default:
		return "unexpected status"
	}
}
