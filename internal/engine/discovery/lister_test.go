package discovery

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("# "+f+"\n"), 0o644))
	}
}

func TestLister_ListsSortedSourcesAndDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"zeta.star",
		"alpha.STAR",
		"notes.md",
		"game/weapon.star",
		"assets/readme.txt",
		".git/config",
		"cl_hud_test.star",
	)

	l, err := NewLister(Options{
		Extensions:   []string{"star"},
		ExcludeDirs:  []string{".git", "node_*"},
		ExcludeFiles: []string{"*_test.star"},
	})
	require.NoError(t, err)

	files, dirs, err := l.List(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha.STAR", "zeta.star"}, files)
	assert.Equal(t, []string{"assets", "game"}, dirs)
}

func TestLister_NoExtensionsAcceptsEverything(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.star", "b.lua")

	l, err := NewLister(Options{})
	require.NoError(t, err)
	files, dirs, err := l.List(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.star", "b.lua"}, files)
	assert.Empty(t, dirs)
}

func TestLister_MissingDirectory(t *testing.T) {
	l, err := NewLister(Options{})
	require.NoError(t, err)

	_, _, err = l.List(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestNewLister_InvalidPattern(t *testing.T) {
	_, err := NewLister(Options{ExcludeDirs: []string{"[unclosed"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exclude dir")
}
