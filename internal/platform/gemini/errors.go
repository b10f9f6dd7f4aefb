package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/yungbote/creator-studio/internal/platform/apierr"
)

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("download failed (%d): %s", e.StatusCode, truncate(e.Body, 200))
}

// classify maps transport and API failures onto studio error kinds. Context errors
// are returned unchanged so callers can tell cancellation apart.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ae genai.APIError
	if errors.As(err, &ae) {
		return classifyStatus(op, ae.Code, ae.Message, err)
	}
	var pae *genai.APIError
	if errors.As(err, &pae) && pae != nil {
		return classifyStatus(op, pae.Code, pae.Message, err)
	}
	var he *httpStatusError
	if errors.As(err, &he) {
		return classifyStatus(op, he.StatusCode, truncate(he.Body, 200), err)
	}
	return apierr.New(apierr.KindTransport, op, err)
}

func classifyStatus(op string, code int, msg string, err error) error {
	switch code {
	case http.StatusBadRequest:
		if msg == "" {
			msg = op + ": bad request"
		}
		return apierr.New(apierr.KindInvalidRequest, msg, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return apierr.New(apierr.KindCredentialMissing, op+": API key rejected", err)
	default:
		return apierr.New(apierr.KindTransport, op, err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
