// Package discovery enumerates source files and package directories on disk.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

type Options struct {
	// Extensions selects source files, e.g. ".star". Empty accepts every
	// regular file.
	Extensions   []string
	ExcludeDirs  []string
	ExcludeFiles []string
}

// Lister lists one directory level at a time in lexical order.
type Lister struct {
	extensions map[string]bool
	dirGlobs   []glob.Glob
	fileGlobs  []glob.Glob
}

func NewLister(opts Options) (*Lister, error) {
	dirGlobs, err := compileGlobs(opts.ExcludeDirs, "exclude dir")
	if err != nil {
		return nil, err
	}
	fileGlobs, err := compileGlobs(opts.ExcludeFiles, "exclude file")
	if err != nil {
		return nil, err
	}
	exts := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[strings.ToLower(ext)] = true
	}
	return &Lister{extensions: exts, dirGlobs: dirGlobs, fileGlobs: fileGlobs}, nil
}

func compileGlobs(patterns []string, label string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", label, p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// List returns the source files and subdirectories directly inside dir.
// A missing dir yields an error wrapping fs.ErrNotExist.
func (l *Lister) List(dir string) ([]string, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var files, dirs []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			if !l.ExcludesDir(name) {
				dirs = append(dirs, name)
			}
			continue
		}
		if !e.Type().IsRegular() {
			continue
		}
		if l.Accepts(name) {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	sort.Strings(dirs)
	return files, dirs, nil
}

// ExcludesDir reports whether a directory base name matches an exclude pattern.
func (l *Lister) ExcludesDir(name string) bool {
	for _, g := range l.dirGlobs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Accepts reports whether a file base name is a source file.
func (l *Lister) Accepts(name string) bool {
	if len(l.extensions) > 0 && !l.extensions[strings.ToLower(filepath.Ext(name))] {
		return false
	}
	for _, g := range l.fileGlobs {
		if g.Match(name) {
			return false
		}
	}
	return true
}
