package internal

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

const IgnoreFilename = ".fnhistignore"

// IgnoreMatcher excludes repository paths from file scans. Paths are
// slash separated and relative to the repository root.
type IgnoreMatcher struct {
	patterns []gitignore.Pattern
}

func NewIgnoreMatcher(scope Scope) (*IgnoreMatcher, error) {
	f, err := os.Open(scope.IgnorePath())
	if os.IsNotExist(err) {
		return &IgnoreMatcher{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseIgnore(f)
}

func ParseIgnore(r io.Reader) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{}
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.patterns = append(m.patterns, gitignore.ParsePattern(line, nil))
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// Match reports whether path, or any directory containing it, is excluded.
func (m *IgnoreMatcher) Match(path string) bool {
	if m == nil || len(m.patterns) == 0 {
		return false
	}
	parts := strings.Split(cleanPath(path), "/")
	for i := 1; i <= len(parts); i++ {
		if m.match(parts[:i], i < len(parts)) {
			return true
		}
	}
	return false
}

// match applies the patterns in order so later negations win.
func (m *IgnoreMatcher) match(parts []string, isDir bool) bool {
	excluded := false
	for _, p := range m.patterns {
		switch p.Match(parts, isDir) {
		case gitignore.Exclude:
			excluded = true
		case gitignore.Include:
			excluded = false
		}
	}
	return excluded
}

func (m *IgnoreMatcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.patterns)
}
