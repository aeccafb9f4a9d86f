package utils

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomStringLength(t *testing.T) {
	s, err := RandomString(32)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(s)
	require.NoError(t, err)
	require.Len(t, raw, 32)
}
