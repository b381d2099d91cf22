// Package net provides networking utilities for CoomerDL: failure
// classification and canonical host grouping for rate limiting.
package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"syscall"

	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
)

// HTTPStatusError reports a non-2xx HTTP response.
type HTTPStatusError struct {
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status: %s", e.Status)
}

// ParseError reports an unexpected page or API response structure, with
// enough context to diagnose which site and URL produced it.
type ParseError struct {
	Site string
	URL  string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse content at %q: %s", e.Site, e.URL, e.Msg)
}

// ErrAuthRequired marks a failure caused by missing or rejected credentials.
var ErrAuthRequired = errors.New("authentication required")

// ErrMalformedURL marks input that could not be parsed as a usable URL.
var ErrMalformedURL = errors.New("malformed URL")

// Classify maps an error to its kind for retry decisions and history records.
//
// Connection timeouts, resets, HTTP 429 and 5xx are transient. Other 4xx,
// malformed URLs, and authentication failures are permanent. Unrecognized
// errors classify as transient, matching how generic request failures behave
// in practice.
func Classify(err error) consts.ErrorKind {
	if err == nil {
		return consts.ErrKindNone
	}

	if errors.Is(err, context.Canceled) {
		return consts.ErrKindCancelled
	}

	if errors.Is(err, ErrAuthRequired) || errors.Is(err, ErrMalformedURL) {
		return consts.ErrKindPermanent
	}

	// A missing external binary will not appear between attempts.
	if errors.Is(err, exec.ErrNotFound) {
		return consts.ErrKindPermanent
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return consts.ErrKindParse
	}

	var httpErr *HTTPStatusError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusTooManyRequests:
			return consts.ErrKindTransient
		case httpErr.StatusCode >= 500:
			return consts.ErrKindTransient
		case httpErr.StatusCode == http.StatusUnauthorized,
			httpErr.StatusCode == http.StatusForbidden:
			return consts.ErrKindPermanent
		case httpErr.StatusCode >= 400:
			return consts.ErrKindPermanent
		}
		return consts.ErrKindTransient
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return consts.ErrKindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return consts.ErrKindTransient
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return consts.ErrKindTransient
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return consts.ErrKindTransient
	}

	return consts.ErrKindTransient
}
