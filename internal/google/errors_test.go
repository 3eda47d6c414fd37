package google

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"unauthorized", &googleapi.Error{Code: http.StatusUnauthorized}, ErrUnauthorized},
		{"forbidden", &googleapi.Error{Code: http.StatusForbidden}, ErrForbidden},
		{"not found", &googleapi.Error{Code: http.StatusNotFound}, ErrNotFound},
		{"rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapError(tt.err)
			assert.ErrorIs(t, wrapped, tt.target)

			var gerr *googleapi.Error
			assert.True(t, errors.As(wrapped, &gerr), "original error must stay in the chain")
		})
	}

	assert.NoError(t, WrapError(nil))

	plain := errors.New("dial tcp: refused")
	assert.Equal(t, plain, WrapError(plain))

	server := &googleapi.Error{Code: http.StatusInternalServerError}
	assert.Equal(t, error(server), WrapError(server))
}

func TestIsUnauthorized(t *testing.T) {
	assert.True(t, IsUnauthorized(ErrUnauthorized))
	assert.True(t, IsUnauthorized(&googleapi.Error{Code: http.StatusUnauthorized}))
	assert.False(t, IsUnauthorized(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, IsUnauthorized(errors.New("other")))
}
