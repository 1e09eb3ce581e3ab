package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnavailable       = errors.New("recommendation service unavailable")
	ErrUnauthorized      = errors.New("not authorized")
	ErrRateLimited       = errors.New("rate limited")
	ErrMalformedResponse = errors.New("malformed response")
)

// Kind classifies a backend failure
type Kind int

const (
	KindUnavailable Kind = iota
	KindUnauthorized
	KindRateLimited
	KindMalformed
)

func (k Kind) sentinel() error {
	switch k {
	case KindUnauthorized:
		return ErrUnauthorized
	case KindRateLimited:
		return ErrRateLimited
	case KindMalformed:
		return ErrMalformedResponse
	default:
		return ErrUnavailable
	}
}

func (k Kind) String() string { return k.sentinel().Error() }

// Error is returned by every Client call that fails. It matches its Kind's
// sentinel with errors.Is.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Body != "" {
		b.WriteString(": ")
		b.WriteString(e.Body)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is matches the sentinel of e.Kind, so errors.Is(err, ErrRateLimited) works
func (e *Error) Is(target error) bool { return target == e.Kind.sentinel() }

func (e *Error) Unwrap() error { return e.Err }

// classify maps a non-2xx response to a Kind. The service reports upstream
// quota and credential failures as 500s, so the body is inspected too.
func classify(status int, body string) Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthorized
	case http.StatusTooManyRequests:
		return KindRateLimited
	}
	upper := strings.ToUpper(body)
	switch {
	case strings.Contains(upper, "RESOURCE_EXHAUSTED"), strings.Contains(upper, "QUOTA"):
		return KindRateLimited
	case strings.Contains(upper, "UNAUTHENTICATED"):
		return KindUnauthorized
	}
	return KindUnavailable
}
