package languages

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrParseFailure        = errors.New("parse failure")
)

type Language string

const (
	All    Language = "all"
	Rust   Language = "rust"
	Python Language = "python"
	Ruby   Language = "ruby"
	Go     Language = "go"
	C      Language = "c"
	UMPL   Language = "umpl"
)

var extensions = map[Language][]string{
	Rust:   {".rs"},
	Python: {".py", ".pyw"},
	Ruby:   {".rb"},
	Go:     {".go"},
	C:      {".c", ".h"},
	UMPL:   {".umpl"},
}

// Known returns every concrete language in a stable order.
func Known() []Language {
	langs := make([]Language, 0, len(extensions))
	for l := range extensions {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}

// FromString parses a language name or common alias.
func FromString(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "*":
		return All, nil
	case "rust", "rs":
		return Rust, nil
	case "python", "py":
		return Python, nil
	case "ruby", "rb":
		return Ruby, nil
	case "go", "golang":
		return Go, nil
	case "c", "h":
		return C, nil
	case "umpl":
		return UMPL, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s)
}

func (l Language) String() string {
	return string(l)
}

func (l Language) Extensions() []string {
	return extensions[l]
}

// Matches reports whether a file path belongs to the language.
// All matches any path with a known extension.
func (l Language) Matches(p string) bool {
	detected, ok := Detect(p)
	if !ok {
		return false
	}
	return l == All || l == detected
}

// Detect infers a language from a file extension.
func Detect(p string) (Language, bool) {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return "", false
	}
	for lang, exts := range extensions {
		for _, e := range exts {
			if e == ext {
				return lang, true
			}
		}
	}
	return "", false
}
