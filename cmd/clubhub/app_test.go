package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewServerApp(t *testing.T) {
	// Checks that fail before any database connection is attempted

	t.Run("unknown environment", func(t *testing.T) {
		c := NewConfig()
		c.Environment = "staging"
		c.SecretKey = "secret"

		_, err := NewServerApp(t.Context(), c)

		require.Error(t, err)
		require.Contains(t, err.Error(), "logger")
	})

	t.Run("empty secret key", func(t *testing.T) {
		c := NewConfig()

		_, err := NewServerApp(t.Context(), c)

		require.Error(t, err)
		require.Contains(t, err.Error(), "secret key")
	})
}
