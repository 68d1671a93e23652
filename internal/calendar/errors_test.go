package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestTranslateError_Nil(t *testing.T) {
	assert.NoError(t, translateError(nil))
}

func TestTranslateError_ScopeRejection(t *testing.T) {
	tests := []struct {
		name string
		gerr *googleapi.Error
	}{
		{
			name: "insufficientPermissions reason",
			gerr: &googleapi.Error{
				Code:    403,
				Message: "Request had insufficient authentication scopes.",
				Errors:  []googleapi.ErrorItem{{Reason: "insufficientPermissions"}},
			},
		},
		{
			name: "insufficientScopes reason",
			gerr: &googleapi.Error{
				Code:   403,
				Errors: []googleapi.ErrorItem{{Reason: "insufficientScopes"}},
			},
		},
		{
			name: "ACCESS_TOKEN_SCOPE_INSUFFICIENT reason",
			gerr: &googleapi.Error{
				Code:   403,
				Errors: []googleapi.ErrorItem{{Reason: "ACCESS_TOKEN_SCOPE_INSUFFICIENT"}},
			},
		},
		{
			name: "marker only in message body",
			gerr: &googleapi.Error{
				Code:    403,
				Message: "Insufficient Permission: Request had insufficient authentication scopes.",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := translateError(tc.gerr)
			var serr *ScopeError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, 403, serr.Status)
		})
	}
}

func TestTranslateError_Plain403IsProviderError(t *testing.T) {
	// a 403 without a scope marker is a normal provider rejection, for
	// example a rate-limit denial
	err := translateError(&googleapi.Error{
		Code:    403,
		Message: "Rate Limit Exceeded",
		Errors:  []googleapi.ErrorItem{{Reason: "rateLimitExceeded"}},
	})

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 403, perr.Status)
}

func TestTranslateError_ProviderError(t *testing.T) {
	for _, status := range []int{401, 404, 409, 500, 503} {
		t.Run(fmt.Sprintf("status %d", status), func(t *testing.T) {
			err := translateError(&googleapi.Error{Code: status, Message: "boom"})
			var perr *ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, status, perr.Status)
			assert.Equal(t, "boom", perr.Message)
		})
	}
}

func TestTranslateError_TransportFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "url error",
			err: &url.Error{
				Op:  "Get",
				URL: "https://www.googleapis.com/calendar/v3/users/me/calendarList",
				Err: errors.New("connection refused"),
			},
		},
		{
			name: "deadline exceeded",
			err:  context.DeadlineExceeded,
		},
		{
			name: "wrapped deadline exceeded",
			err:  fmt.Errorf("calling provider: %w", context.DeadlineExceeded),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := translateError(tc.err)
			var terr *TransportError
			require.ErrorAs(t, err, &terr)
			assert.ErrorIs(t, terr, tc.err)
		})
	}
}

func TestTranslateError_UnknownErrorPassesThrough(t *testing.T) {
	sentinel := errors.New("something else entirely")
	assert.Same(t, sentinel, translateError(sentinel))
}
