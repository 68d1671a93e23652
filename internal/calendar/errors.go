package calendar

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"google.golang.org/api/googleapi"
)

// ScopeError reports a provider rejection caused by the stored OAuth
// grant lacking a required permission. Retrying with the same token is
// pointless; the user has to re-consent.
type ScopeError struct {
	Status  int
	Message string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("insufficient oauth scope (status %d): %s", e.Status, e.Message)
}

// ProviderError reports any other non-2xx provider response
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (status %d): %s", e.Status, e.Message)
}

// TransportError reports a network-level failure (timeout, DNS,
// connection reset) before a provider response was obtained. Safe to
// retry with backoff at the orchestrator layer.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("provider transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// scope-insufficiency markers observed on Google 403 responses
var scopeReasons = map[string]bool{
	"insufficientPermissions":         true,
	"insufficientScopes":              true,
	"ACCESS_TOKEN_SCOPE_INSUFFICIENT": true,
}

// translateError maps a raw provider client error into the gateway's
// typed failure taxonomy. Nil passes through.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if isScopeError(gerr) {
			return &ScopeError{Status: gerr.Code, Message: gerr.Message}
		}
		return &ProviderError{Status: gerr.Code, Message: gerr.Message}
	}

	var uerr *url.Error
	if errors.As(err, &uerr) {
		return &TransportError{Err: err}
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return &TransportError{Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Err: err}
	}

	return err
}

func isScopeError(gerr *googleapi.Error) bool {
	if gerr.Code != 403 {
		return false
	}
	for _, item := range gerr.Errors {
		if scopeReasons[item.Reason] {
			return true
		}
	}
	// some scope rejections carry the marker only in the message body
	return strings.Contains(strings.ToLower(gerr.Message), "insufficient")
}
