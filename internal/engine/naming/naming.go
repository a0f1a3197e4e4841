// Package naming maps file names and dotted locations onto package and
// member names.
package naming

import (
	"path/filepath"
	"strings"
	"unicode"

	"strata/internal/core/errors"
)

// Wildcard is the last location segment meaning "every public member".
const Wildcard = "*"

// DefaultRealmPrefixes are the client-only, server-only and shared prefixes.
var DefaultRealmPrefixes = []string{"cl_", "sv_", "sh_"}

// Namer turns file-name segments into member names.
type Namer struct {
	prefixes []string
}

// NewNamer builds a Namer stripping the given realm prefixes. A nil slice
// selects DefaultRealmPrefixes.
func NewNamer(prefixes []string) *Namer {
	if prefixes == nil {
		prefixes = DefaultRealmPrefixes
	}
	cleaned := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		cleaned = append(cleaned, p)
	}
	return &Namer{prefixes: cleaned}
}

var defaultNamer = NewNamer(nil)

// ToMemberName converts a snake_case segment into a PascalCase member name
// using the default realm prefixes.
func ToMemberName(segment string) (string, error) {
	return defaultNamer.ToMemberName(segment)
}

func (n *Namer) ToMemberName(segment string) (string, error) {
	if segment == "" {
		return "", errors.New(errors.CodeInvalidArgument, "member name segment must not be empty")
	}
	for _, p := range n.prefixes {
		if strings.HasPrefix(segment, p) {
			segment = segment[len(p):]
			break
		}
	}

	var b strings.Builder
	b.Grow(len(segment))
	upper := true
	for _, r := range segment {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "", errors.Newf(errors.CodeInvalidArgument, "segment %q has no name after prefix stripping", segment)
	}
	return b.String(), nil
}

// FileObjectName strips the extension from a file name and converts the rest.
func (n *Namer) FileObjectName(fileName string) (string, error) {
	base := filepath.Base(fileName)
	return n.ToMemberName(strings.TrimSuffix(base, filepath.Ext(base)))
}

// SplitLocation splits a dotted location on its final dot.
func SplitLocation(location string) (prefix, last string) {
	idx := strings.LastIndex(location, ".")
	if idx < 0 {
		return "", location
	}
	return location[:idx], location[idx+1:]
}

// IsWildcard reports whether the segment is the wildcard marker.
func IsWildcard(segment string) bool {
	return segment == Wildcard
}

// JoinLocation joins a package name and a member, treating "" as the root
// package.
func JoinLocation(pkg, member string) string {
	if pkg == "" {
		return member
	}
	return pkg + "." + member
}

// PackageName derives the dotted package name of dir relative to baseDir.
// The base directory itself is the root package "".
func PackageName(baseDir, dir string) string {
	rel, err := filepath.Rel(baseDir, dir)
	if err != nil || rel == "." {
		return ""
	}
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", ".")
}

// PackageDir is the inverse of PackageName.
func PackageDir(baseDir, pkg string) string {
	if pkg == "" {
		return baseDir
	}
	return filepath.Join(baseDir, filepath.FromSlash(strings.ReplaceAll(pkg, ".", "/")))
}
