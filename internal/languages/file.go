package languages

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// File is the parsed view of one source file at one commit.
type File struct {
	Path      string     `json:"path"`
	Language  Language   `json:"language"`
	Text      string     `json:"-"`
	Functions []Function `json:"functions"`
}

// Find returns every definition with the given name in source order.
func (f *File) Find(name string) []Function {
	var out []Function
	for _, fn := range f.Functions {
		if fn.Name == name {
			out = append(out, fn)
		}
	}
	return out
}

// TopLevel returns definitions that are not nested inside another function.
func (f *File) TopLevel() []Function {
	var out []Function
	for _, fn := range f.Functions {
		if len(fn.EnclosingFunctions()) == 0 {
			out = append(out, fn)
		}
	}
	return out
}

type extractor func(src []byte) ([]Function, error)

var extractors = map[Language]extractor{
	Rust:   extractRust,
	Python: extractPython,
	Ruby:   extractRuby,
	Go:     extractGo,
	C:      extractC,
	UMPL:   extractUMPL,
}

// Parse extracts function definitions from text. When lang is All the
// language is detected from the path extension.
func Parse(path string, text []byte, lang Language) (file *File, err error) {
	if lang == All || lang == "" {
		detected, ok := Detect(path)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, path)
		}
		lang = detected
	}

	extract, ok := extractors[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}

	if !utf8.Valid(text) || bytes.IndexByte(text, 0) >= 0 {
		return nil, fmt.Errorf("%w: %s is not text", ErrParseFailure, path)
	}

	defer func() {
		if r := recover(); r != nil {
			file = nil
			err = fmt.Errorf("%w: %s: %v", ErrParseFailure, path, r)
		}
	}()

	fns, err := extract(text)
	if err != nil {
		return nil, err
	}
	assignOrdinals(fns)

	return &File{
		Path:      path,
		Language:  lang,
		Text:      string(text),
		Functions: fns,
	}, nil
}

// assignOrdinals numbers repeated keys within one file. The first
// definition keeps ordinal 0, later ones count from 2.
func assignOrdinals(fns []Function) {
	seen := make(map[Key]int)
	for i := range fns {
		k := fns[i].Key()
		seen[k]++
		if n := seen[k]; n > 1 {
			fns[i].Ordinal = n
		}
	}
}

// Reparse parses a definition's recorded body on its own and returns the
// definition found there, carrying over the parent chain of fn.
func Reparse(fn *Function) (*Function, error) {
	src := dedent(fn.Body)
	file, err := Parse("", []byte(src), fn.Lang)
	if err != nil {
		return nil, err
	}
	for _, got := range file.Functions {
		if got.Name != fn.Name {
			continue
		}
		got.Parents = append([]Parent(nil), fn.Parents...)
		got.Ordinal = fn.Ordinal
		return &got, nil
	}
	return nil, fmt.Errorf("%w: %s not found in its own body", ErrParseFailure, fn.Name)
}

// Numbered renders the body with 1-based source line numbers.
func (f *Function) Numbered() string {
	var b strings.Builder
	writeLined(&b, f.Span.StartLine, f.Body, digits(f.Span.EndLine))
	return b.String()
}

// Context renders the body framed by the header and footer lines of its
// enclosing parents.
func (f *Function) Context() string {
	last := f.Span.EndLine
	for _, p := range f.Parents {
		last = max(last, p.Span.EndLine)
	}
	width := digits(last)

	var b strings.Builder
	for _, p := range f.Parents {
		if p.Top == "" {
			continue
		}
		writeLined(&b, p.Span.StartLine, p.Top, width)
		b.WriteString("...\n")
	}
	writeLined(&b, f.Span.StartLine, f.Body, width)
	for i := len(f.Parents) - 1; i >= 0; i-- {
		p := f.Parents[i]
		if p.Bottom == "" {
			continue
		}
		b.WriteString("...\n")
		writeLined(&b, p.Span.EndLine, p.Bottom, width)
	}
	return b.String()
}

func writeLined(b *strings.Builder, start int, text string, width int) {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		fmt.Fprintf(b, "%*d: %s\n", width, start+i, line)
	}
}

func digits(n int) int {
	return len(strconv.Itoa(n))
}

func dedent(s string) string {
	lines := strings.Split(s, "\n")
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent <= 0 {
		return s
	}
	for i, line := range lines {
		if len(line) >= indent {
			lines[i] = line[indent:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(lines, "\n")
}

// Registry restricts parsing to a configured set of languages.
type Registry struct {
	enabled map[Language]bool
}

// NewRegistry enables the given languages, or every known one when none
// are given.
func NewRegistry(langs ...Language) *Registry {
	if len(langs) == 0 {
		langs = Known()
	}
	r := &Registry{enabled: make(map[Language]bool, len(langs))}
	for _, l := range langs {
		if _, ok := extractors[l]; ok {
			r.enabled[l] = true
		}
	}
	return r
}

func (r *Registry) Supports(lang Language) bool {
	return r.enabled[lang]
}

func (r *Registry) Languages() []Language {
	out := make([]Language, 0, len(r.enabled))
	for l := range r.enabled {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Resolve picks the concrete language for path. An explicit lang must be
// enabled; All detects from the extension.
func (r *Registry) Resolve(path string, lang Language) (Language, error) {
	if lang == All || lang == "" {
		detected, ok := Detect(path)
		if !ok || !r.enabled[detected] {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, path)
		}
		return detected, nil
	}
	if !r.enabled[lang] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	return lang, nil
}

// Accepts reports whether path would be parsed under lang.
func (r *Registry) Accepts(path string, lang Language) bool {
	detected, ok := Detect(path)
	if !ok || !r.enabled[detected] {
		return false
	}
	return lang == All || lang == "" || lang == detected
}

func (r *Registry) Parse(path string, text []byte, lang Language) (*File, error) {
	resolved, err := r.Resolve(path, lang)
	if err != nil {
		return nil, err
	}
	return Parse(path, text, resolved)
}
