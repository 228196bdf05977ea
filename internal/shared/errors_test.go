package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHelpersWrapExactlyOneKind(t *testing.T) {
	kinds := []error{ErrNotFound, ErrAlreadyExists, ErrInvalidState, ErrUnauthorized, ErrLocked, ErrForbidden, ErrBadRequest}
	cases := []struct {
		name string
		err  error
		kind error
	}{
		{"not found", NotFoundf("register: %d", 7), ErrNotFound},
		{"already exists", AlreadyExistsf("register: already open for outlet %d", 1), ErrAlreadyExists},
		{"invalid state", InvalidStatef("register: %d already closed", 7), ErrInvalidState},
		{"unauthorized", Unauthorizedf("security: pin mismatch, %d attempts remaining", 4), ErrUnauthorized},
		{"bad request", BadRequestf("creditors: amount must be positive"), ErrBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tc.err, tc.kind)
			for _, kind := range kinds {
				if kind == tc.kind {
					continue
				}
				require.NotErrorIs(t, tc.err, kind)
			}
		})
	}
}
