package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvFile(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		err := loadEnvFile(filepath.Join(t.TempDir(), "does-not-exist.env"))
		assert.NoError(t, err)
	})

	t.Run("empty path is ignored", func(t *testing.T) {
		assert.NoError(t, loadEnvFile(""))
	})

	t.Run("variables are exported", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.env")
		require.NoError(t, os.WriteFile(path, []byte("PANTOGNOSTIS_TEST_ENV_VALUE=from-file\n"), 0o600))
		t.Cleanup(func() { _ = os.Unsetenv("PANTOGNOSTIS_TEST_ENV_VALUE") })

		require.NoError(t, loadEnvFile(path))
		assert.Equal(t, "from-file", os.Getenv("PANTOGNOSTIS_TEST_ENV_VALUE"))
	})

	t.Run("environment wins over file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.env")
		require.NoError(t, os.WriteFile(path, []byte("PANTOGNOSTIS_TEST_ENV_PRESET=from-file\n"), 0o600))
		t.Setenv("PANTOGNOSTIS_TEST_ENV_PRESET", "from-env")

		require.NoError(t, loadEnvFile(path))
		assert.Equal(t, "from-env", os.Getenv("PANTOGNOSTIS_TEST_ENV_PRESET"))
	})
}
