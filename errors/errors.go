// Package errors provides a status-carrying error type so HTTP handlers can
// map the service error taxonomy (validation, not-found, conflict, throttled,
// channel-recently-deleted, unexpected) to a response in one place.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Error represents a universal error type between the services.
type Error struct {
	Status     int
	RetryAfter int // seconds; only written for 429/503 responses
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Message string `json:"message"`
	}{
		Message: e.Err.Error(),
	})
}

// E builds an Error from its arguments: a string or error becomes the wrapped
// cause, an int becomes the HTTP status. Defaults to 500.
func E(args ...any) *Error {
	ret := &Error{
		Status: http.StatusInternalServerError,
	}

	for _, arg := range args {
		switch arg := arg.(type) {
		case string:
			ret.Err = errors.New(arg)
		case error:
			ret.Err = arg
		case int:
			ret.Status = arg
		}
	}

	return ret
}

// StatusOf returns the HTTP status carried by err, or 500 when err carries none.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// Write renders err as an HTTP response, logging nothing; callers own logging.
func Write(w http.ResponseWriter, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = E(err)
	}

	if e.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(e.RetryAfter))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)

	body, marshalErr := json.Marshal(e)
	if marshalErr != nil {
		return
	}
	w.Write(body)
}

// Is, As and New re-export the standard library so callers need one import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func New(text string) error { return errors.New(text) }
