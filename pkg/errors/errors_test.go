package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCloneKeepsCodeAndMatchesKind(t *testing.T) {
	err := Clone(ErrLocked, "week is closed")
	require.Equal(t, "week is closed", err.Message)
	require.Equal(t, http.StatusLocked, err.Status)
	require.True(t, stdErrors.Is(err, ErrLocked))
	require.False(t, stdErrors.Is(err, ErrInvalidTransition))
}

func TestWithDetailsDoesNotMutateSource(t *testing.T) {
	deadline := time.Date(2025, 12, 2, 17, 0, 0, 0, time.UTC)
	err := WithDetails(ErrLocked, "", map[string]interface{}{"deadline": deadline})
	require.Equal(t, deadline, err.Details["deadline"])
	require.Nil(t, ErrLocked.Details)
}

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	err := FromError(fmt.Errorf("boom"))
	require.Equal(t, ErrInternal.Code, err.Code)

	wrapped := fmt.Errorf("ctx: %w", Clone(ErrConflict, "stale"))
	require.Equal(t, ErrConflict.Code, FromError(wrapped).Code)
	require.True(t, HasCode(wrapped, ErrConflict.Code))
}
