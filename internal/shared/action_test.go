package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	for _, raw := range []string{"create", "read", "update", "delete"} {
		action, err := ParseAction(raw)
		require.NoError(t, err)
		assert.Equal(t, Action(raw), action)
	}
}

func TestParseActionRejectsUnknownValues(t *testing.T) {
	for _, raw := range []string{"", "approve", "READ", "read "} {
		_, err := ParseAction(raw)
		require.Error(t, err, "raw=%q", raw)
		assert.True(t, IsValidation(err))
	}
}

func TestUserSafeMessageHidesInternalErrors(t *testing.T) {
	assert.Equal(t, "internal error", UserSafeMessage(&ResolutionError{Err: assert.AnError}))
	assert.Equal(t, "user 7 not found", UserSafeMessage(&NotFoundError{Entity: "user", ID: 7}))
}
