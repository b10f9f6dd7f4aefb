package apierr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure surfaced to the caller of the studio core.
type Kind string

const (
	KindCredentialMissing       Kind = "credential_missing"
	KindPremiumCapabilityDenied Kind = "premium_capability_denied"
	KindEmptyResult             Kind = "empty_result"
	KindRemoteJobFailed         Kind = "remote_job_failed"
	KindNotFound                Kind = "not_found"
	KindStorageUnavailable      Kind = "storage_unavailable"
	KindTimeout                 Kind = "timeout"
	KindInvalidRequest          Kind = "invalid_request"
	KindTransport               Kind = "transport"
)

// Sentinels for errors.Is; every *Error of the same Kind matches its sentinel.
var (
	ErrCredentialMissing       = &Error{Kind: KindCredentialMissing}
	ErrPremiumCapabilityDenied = &Error{Kind: KindPremiumCapabilityDenied}
	ErrEmptyResult             = &Error{Kind: KindEmptyResult}
	ErrRemoteJobFailed         = &Error{Kind: KindRemoteJobFailed}
	ErrNotFound                = &Error{Kind: KindNotFound}
	ErrStorageUnavailable      = &Error{Kind: KindStorageUnavailable}
	ErrTimeout                 = &Error{Kind: KindTimeout}
	ErrInvalidRequest          = &Error{Kind: KindInvalidRequest}
	ErrTransport               = &Error{Kind: KindTransport}
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	case e.Kind != "":
		return string(e.Kind)
	default:
		return "studio error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

func New(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of the outermost *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage renders err for display. Kinds get distinct wording so that a refused
// generation never reads like a network failure.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindCredentialMissing:
		return "An API key is required. Select a key to continue."
	case KindPremiumCapabilityDenied:
		return "This feature needs a paid API key. Select one to continue."
	case KindEmptyResult:
		return "The model returned no media. It may have refused the request under its content policy, or returned text only."
	case KindRemoteJobFailed:
		return "Generation failed: " + remoteMessage(err)
	case KindNotFound:
		return "The item no longer exists."
	case KindStorageUnavailable:
		return "Failed to save to gallery. Storage might be full or unavailable."
	case KindTimeout:
		return "Generation is taking too long. Try again later."
	case KindInvalidRequest:
		return "Invalid request: " + remoteMessage(err)
	case KindTransport:
		return "Could not reach the generation service. Check your connection and try again."
	default:
		return err.Error()
	}
}

func remoteMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
