package app_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/featgen/app"
)

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/demo\n"), 0644))
	nested := filepath.Join(root, "src", "ml")
	require.NoError(t, os.MkdirAll(nested, 0755))

	assert.Equal(t, root, app.FindProjectRoot(nested))
	assert.Equal(t, root, app.FindProjectRoot(root))
}

func TestFindProjectRootFallsBackToStart(t *testing.T) {
	start := filepath.Join(t.TempDir(), "no", "module", "here")
	require.NoError(t, os.MkdirAll(start, 0755))

	// A go.mod above the temp dir would win; only assert when there is none.
	got := app.FindProjectRoot(start)
	if _, err := os.Stat(filepath.Join(got, "go.mod")); err != nil {
		assert.Equal(t, start, got)
	}
}
