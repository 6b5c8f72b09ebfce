package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("academy-1", "academy-1/charges_academy-1_2025-03.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	subject, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "academy-1", subject)
	require.Equal(t, "academy-1/charges_academy-1_2025-03.csv", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return issued }
	token, _, err := signer.Generate("academy-1", "statement.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	subject, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "academy-1", subject)
	require.Equal(t, "statement.csv", path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("academy-1", "statement.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "academy-2"
	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	require.Error(t, err)

	_, _, _, err = NewSignedURLSigner("other", time.Hour).Parse(token, false)
	require.Error(t, err)

	_, _, _, err = signer.Parse("garbage", false)
	require.Error(t, err)
}

func TestSignedURLSignerValidatesInput(t *testing.T) {
	_, _, err := NewSignedURLSigner("secret", time.Hour).Generate("", "statement.csv")
	require.Error(t, err)
	_, _, err = NewSignedURLSigner("secret", time.Hour).Generate("a.b", "statement.csv")
	require.Error(t, err)
	_, _, err = NewSignedURLSigner("", time.Hour).Generate("academy-1", "statement.csv")
	require.Error(t, err)
}
