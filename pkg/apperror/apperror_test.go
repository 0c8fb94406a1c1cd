package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsMatchesByKind(t *testing.T) {
	err := New(KindInsufficientStock, "only %d units left", 3)

	require.True(t, errors.Is(err, ErrInsufficientStock))
	require.False(t, errors.Is(err, ErrInsufficientBalance))
	require.Equal(t, "only 3 units left", err.Error())

	wrapped := fmt.Errorf("stock out: %w", err)
	require.True(t, errors.Is(wrapped, ErrInsufficientStock))
	require.Equal(t, KindInsufficientStock, KindOf(wrapped))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		Validation("bad"):                     400,
		NotFound("missing"):                   404,
		New(KindAlreadyResolved, "done"):      409,
		New(KindInsufficientBalance, "empty"): 409,
		New(KindAuthorization, "nope"):        403,
		errors.New("boom"):                    500,
	}
	for err, want := range cases {
		require.Equal(t, want, HTTPStatus(err), err.Error())
	}
}
