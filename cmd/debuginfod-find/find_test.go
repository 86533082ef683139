package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/debugtools/debuginfod/pkg/debuginfod"
)

func Test_ResolveBuildID(t *testing.T) {
	t.Run("hex build ID", func(t *testing.T) {
		id, err := resolveBuildID("18B9A9A8C523E5CFE5B5D946D605D09242F09798")
		require.NoError(t, err)
		require.Equal(t, "18b9a9a8c523e5cfe5b5d946d605d09242f09798", id.String())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := resolveBuildID(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "neither a hex build ID nor a readable ELF binary")
	})

	t.Run("not an ELF binary", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "text")
		require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
		_, err := resolveBuildID(path)
		require.Error(t, err)
	})
}

func Test_ServerURLs(t *testing.T) {
	t.Run("override", func(t *testing.T) {
		t.Setenv(debuginfod.URLsEnv, "https://original.example.org/")
		cfg.urls = "https://override.example.org/"
		defer func() { cfg.urls = "" }()

		restore := serverURLs()
		require.Equal(t, "https://override.example.org/", os.Getenv(debuginfod.URLsEnv))
		restore()
		require.Equal(t, "https://original.example.org/", os.Getenv(debuginfod.URLsEnv))
	})

	t.Run("default when unset", func(t *testing.T) {
		t.Setenv(debuginfod.URLsEnv, "placeholder")
		os.Unsetenv(debuginfod.URLsEnv)

		restore := serverURLs()
		require.Equal(t, debuginfod.DefaultURLs, os.Getenv(debuginfod.URLsEnv))
		restore()
		_, set := os.LookupEnv(debuginfod.URLsEnv)
		require.False(t, set)
	})
}
