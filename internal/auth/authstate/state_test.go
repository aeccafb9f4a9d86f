package authstate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromContextMissingProvider(t *testing.T) {
	_, err := FromContext(context.Background())
	require.ErrorIs(t, err, ErrNoAuthContext)
}

func TestFromContextRoundTrip(t *testing.T) {
	ctx := WithState(context.Background(), SignedIn{UserID: "u-1", SessionID: "s-1"})

	s, err := FromContext(ctx)
	require.NoError(t, err)
	require.True(t, IsSignedIn(s))
	require.Equal(t, SignedIn{UserID: "u-1", SessionID: "s-1"}, s)

	ctx = WithState(ctx, SignedOut{})
	s, err = FromContext(ctx)
	require.NoError(t, err)
	require.False(t, IsSignedIn(s))
}

func TestWithNilStateIsMissing(t *testing.T) {
	_, err := FromContext(WithState(context.Background(), nil))
	require.ErrorIs(t, err, ErrNoAuthContext)
}
