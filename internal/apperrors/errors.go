package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindTransport Kind = "transport"
	KindRateLimit Kind = "rate_limit"
	KindAPI       Kind = "api"
	KindParse     Kind = "parse"
	KindGeneric   Kind = "generic"
)

type Error struct {
	Kind Kind
	// Code is the remote status for KindAPI (HTTP status or envelope code).
	Code int
	// SafeMessage is intended for user-facing output and logs.
	SafeMessage string
	// Cause keeps the original internal error for troubleshooting.
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := strings.TrimSpace(e.SafeMessage)
	if msg == "" {
		msg = defaultSafeMessage(e.Kind)
	}
	if e.Kind == KindAPI && e.Code != 0 {
		msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func defaultSafeMessage(kind Kind) string {
	switch kind {
	case KindTransport:
		return "Network error while contacting the translation endpoint"
	case KindRateLimit:
		return "Rate limiter unavailable"
	case KindAPI:
		return "Translation endpoint reported a failure"
	case KindParse:
		return "Unrecognized response from the translation endpoint"
	default:
		return "Translation failed"
	}
}

func New(kind Kind, safeMessage string, cause error) error {
	return &Error{
		Kind:        kind,
		SafeMessage: strings.TrimSpace(safeMessage),
		Cause:       cause,
	}
}

func Transport(err error) error {
	return New(KindTransport, "", err)
}

func RateLimit(err error) error {
	return New(KindRateLimit, "", err)
}

// API reports a failure signalled by the remote service itself.
func API(code int, safeMessage string, cause error) error {
	return &Error{
		Kind:        KindAPI,
		Code:        code,
		SafeMessage: strings.TrimSpace(safeMessage),
		Cause:       cause,
	}
}

func Parse(err error) error {
	return New(KindParse, "", err)
}

func Generic(err error) error {
	return New(KindGeneric, "", err)
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}

// CodeOf returns the remote status code carried by an API error.
func CodeOf(err error) (int, bool) {
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindAPI {
		return 0, false
	}
	return e.Code, true
}

// PublicMessage returns the safe message of the outermost classified error,
// without the internal cause chain.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		msg := strings.TrimSpace(e.SafeMessage)
		if msg == "" {
			msg = defaultSafeMessage(e.Kind)
		}
		if e.Kind == KindAPI && e.Code != 0 {
			msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
		}
		return msg
	}
	return err.Error()
}

func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	// RateLimit only comes from a closed limiter, retrying cannot help.
	return e.Kind == KindTransport || e.Kind == KindAPI || e.Kind == KindParse
}

func IsRateLimit(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == KindRateLimit
}
