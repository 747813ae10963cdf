package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Registration-time errors; fatal at startup.
	ErrDuplicateCommand = errors.New("command already registered")
	ErrNoFallback       = errors.New("no fallback handler registered")
	ErrInvalidArgument  = errors.New("invalid argument")

	// Response construction errors; contained by the dispatcher.
	ErrInvalidButtonSpec = errors.New("invalid button spec")
	ErrInvalidResponse   = errors.New("invalid response template")
	ErrHandler           = errors.New("command handler failed")

	// ErrTransport marks recoverable network / platform failures.
	ErrTransport = errors.New("transport error")
)

// RetryAfterError is a transport failure carrying the platform's
// requested wait (Telegram 429 "retry_after").
type RetryAfterError struct {
	After time.Duration
	Err   error
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s: %v", e.After, e.Err)
}

func (e *RetryAfterError) Unwrap() error { return e.Err }
