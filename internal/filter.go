package internal

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/4thel00z/fnhist/internal/languages"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Result is the outcome of evaluating a filter against a partially known
// subject.
type Result int8

const (
	Undecided Result = iota
	Match
	NoMatch
)

func (r Result) String() string {
	switch r {
	case Match:
		return "match"
	case NoMatch:
		return "no-match"
	default:
		return "undecided"
	}
}

// Subject is filled in as the resolver descends from commit to file to
// function. Unset levels make the filters that need them Undecided.
type Subject struct {
	Commit   *Commit
	Path     string
	Language languages.Language
	Function *languages.Function
}

// Filter is a closed set of immutable predicates. Only this package can
// add variants.
type Filter interface {
	Eval(s Subject) Result
	String() string
	sealed()
}

func decide(ok bool) Result {
	if ok {
		return Match
	}
	return NoMatch
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

type AuthorFilter struct{ Name string }

func (f AuthorFilter) Eval(s Subject) Result {
	if s.Commit == nil {
		return Undecided
	}
	return decide(containsFold(s.Commit.Author, f.Name))
}

func (f AuthorFilter) String() string { return "author:" + f.Name }
func (AuthorFilter) sealed()          {}

type AuthorEmailFilter struct{ Email string }

func (f AuthorEmailFilter) Eval(s Subject) Result {
	if s.Commit == nil {
		return Undecided
	}
	return decide(containsFold(s.Commit.Email, f.Email))
}

func (f AuthorEmailFilter) String() string { return "email:" + f.Email }
func (AuthorEmailFilter) sealed()          {}

type MessageFilter struct{ Text string }

func (f MessageFilter) Eval(s Subject) Result {
	if s.Commit == nil {
		return Undecided
	}
	return decide(containsFold(s.Commit.Message, f.Text))
}

func (f MessageFilter) String() string { return "message:" + f.Text }
func (MessageFilter) sealed()          {}

// CommitHashFilter matches a full hash or any unambiguous prefix of it.
type CommitHashFilter struct{ Hash string }

func (f CommitHashFilter) Eval(s Subject) Result {
	if s.Commit == nil {
		return Undecided
	}
	return decide(f.Hash != "" && strings.HasPrefix(s.Commit.Hash, strings.ToLower(f.Hash)))
}

func (f CommitHashFilter) String() string { return "hash:" + f.Hash }
func (CommitHashFilter) sealed()          {}

// DateRangeFilter is inclusive at both ends. A zero bound is open.
type DateRangeFilter struct {
	Since time.Time
	Until time.Time
}

func (f DateRangeFilter) Eval(s Subject) Result {
	if s.Commit == nil {
		return Undecided
	}
	ts := s.Commit.Timestamp
	if !f.Since.IsZero() && ts.Before(f.Since) {
		return NoMatch
	}
	if !f.Until.IsZero() && ts.After(f.Until) {
		return NoMatch
	}
	return Match
}

func (f DateRangeFilter) String() string {
	var parts []string
	if !f.Since.IsZero() {
		parts = append(parts, "since:"+f.Since.Format(time.RFC3339))
	}
	if !f.Until.IsZero() {
		parts = append(parts, "until:"+f.Until.Format(time.RFC3339))
	}
	if len(parts) == 0 {
		return "true"
	}
	return strings.Join(parts, " & ")
}

func (DateRangeFilter) sealed() {}

// PathGlobFilter uses gitignore pattern syntax against the repository path.
type PathGlobFilter struct {
	Pattern string
	pattern gitignore.Pattern
}

func PathGlob(pattern string) PathGlobFilter {
	return PathGlobFilter{Pattern: pattern, pattern: gitignore.ParsePattern(pattern, nil)}
}

func (f PathGlobFilter) Eval(s Subject) Result {
	if s.Path == "" {
		return Undecided
	}
	p := f.pattern
	if p == nil {
		p = gitignore.ParsePattern(f.Pattern, nil)
	}
	parts := strings.Split(cleanPath(s.Path), "/")
	for i := 1; i <= len(parts); i++ {
		if p.Match(parts[:i], i < len(parts)) == gitignore.Exclude {
			return Match
		}
	}
	return NoMatch
}

func (f PathGlobFilter) String() string { return "path:" + f.Pattern }
func (PathGlobFilter) sealed()          {}

type DirectoryFilter struct{ Dir string }

func (f DirectoryFilter) Eval(s Subject) Result {
	if s.Path == "" {
		return Undecided
	}
	return decide(inDirectory(s.Path, f.Dir))
}

func (f DirectoryFilter) String() string { return "dir:" + f.Dir }
func (DirectoryFilter) sealed()          {}

func inDirectory(p, dir string) bool {
	dir = strings.TrimSuffix(cleanPath(dir), "/")
	if dir == "" || dir == "." {
		return true
	}
	return strings.HasPrefix(cleanPath(p), dir+"/")
}

type FileLanguageFilter struct{ Language languages.Language }

func (f FileLanguageFilter) Eval(s Subject) Result {
	if f.Language == languages.All {
		return Match
	}
	switch {
	case s.Function != nil:
		return decide(s.Function.Lang == f.Language)
	case s.Language != "" && s.Language != languages.All:
		return decide(s.Language == f.Language)
	case s.Path != "":
		return decide(f.Language.Matches(s.Path))
	}
	return Undecided
}

func (f FileLanguageFilter) String() string { return "lang:" + string(f.Language) }
func (FileLanguageFilter) sealed()          {}

// FunctionNameFilter matches names with shell glob syntax.
type FunctionNameFilter struct{ Name string }

func (f FunctionNameFilter) Eval(s Subject) Result {
	if s.Function == nil {
		return Undecided
	}
	if ok, err := path.Match(f.Name, s.Function.Name); err == nil && ok {
		return Match
	}
	return decide(s.Function.Name == f.Name)
}

func (f FunctionNameFilter) String() string { return "name:" + f.Name }
func (FunctionNameFilter) sealed()          {}

// ParentFilter matches when any enclosing parent has the given name or
// segment, e.g. "Stack" or "Display for Stack".
type ParentFilter struct{ Name string }

func (f ParentFilter) Eval(s Subject) Result {
	if s.Function == nil {
		return Undecided
	}
	for _, p := range s.Function.Parents {
		if p.Name == f.Name || p.Segment() == f.Name {
			return Match
		}
	}
	return decide(s.Function.ParentPath() == f.Name)
}

func (f ParentFilter) String() string { return "parent:" + f.Name }
func (ParentFilter) sealed()          {}

// InLinesFilter matches functions lying entirely within [Start, End].
type InLinesFilter struct {
	Start int
	End   int
}

func (f InLinesFilter) Eval(s Subject) Result {
	if s.Function == nil {
		return Undecided
	}
	span := s.Function.Span
	return decide(span.StartLine >= f.Start && span.EndLine <= f.End)
}

func (f InLinesFilter) String() string { return fmt.Sprintf("lines:%d-%d", f.Start, f.End) }
func (InLinesFilter) sealed()          {}

// LanguageFilter lifts a per-language attribute filter. Before a function
// is known it never prunes; a function of another language never matches.
type LanguageFilter struct{ Inner languages.Filter }

func (f LanguageFilter) Eval(s Subject) Result {
	if s.Function == nil {
		return Undecided
	}
	if s.Function.Lang != f.Inner.Language() {
		return NoMatch
	}
	return decide(f.Inner.Matches(s.Function))
}

func (f LanguageFilter) Supports(lang languages.Language) bool {
	return lang == f.Inner.Language()
}

func (f LanguageFilter) String() string { return f.Inner.String() }
func (LanguageFilter) sealed()          {}

type TrueFilter struct{}

func (TrueFilter) Eval(Subject) Result { return Match }
func (TrueFilter) String() string      { return "true" }
func (TrueFilter) sealed()             {}

type FalseFilter struct{}

func (FalseFilter) Eval(Subject) Result { return NoMatch }
func (FalseFilter) String() string      { return "false" }
func (FalseFilter) sealed()             {}

func True() Filter  { return TrueFilter{} }
func False() Filter { return FalseFilter{} }

type AndFilter struct{ Children []Filter }

// Eval short-circuits on the first NoMatch.
func (f AndFilter) Eval(s Subject) Result {
	result := Match
	for _, c := range f.Children {
		switch c.Eval(s) {
		case NoMatch:
			return NoMatch
		case Undecided:
			result = Undecided
		}
	}
	return result
}

func (f AndFilter) String() string { return joinFilters(f.Children, " & ") }
func (AndFilter) sealed()          {}

type OrFilter struct{ Children []Filter }

// Eval short-circuits on the first Match.
func (f OrFilter) Eval(s Subject) Result {
	result := NoMatch
	for _, c := range f.Children {
		switch c.Eval(s) {
		case Match:
			return Match
		case Undecided:
			result = Undecided
		}
	}
	return result
}

func (f OrFilter) String() string { return "(" + joinFilters(f.Children, " | ") + ")" }
func (OrFilter) sealed()          {}

// NotFilter inverts its child. A negated language filter still never
// matches a function of another language.
type NotFilter struct{ Inner Filter }

func (f NotFilter) Eval(s Subject) Result {
	if lf, ok := f.Inner.(LanguageFilter); ok && s.Function != nil && !lf.Supports(s.Function.Lang) {
		return NoMatch
	}
	switch f.Inner.Eval(s) {
	case Match:
		return NoMatch
	case NoMatch:
		return Match
	}
	return Undecided
}

func (f NotFilter) String() string { return "!" + f.Inner.String() }
func (NotFilter) sealed()          {}

func joinFilters(fs []Filter, sep string) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.String()
	}
	return strings.Join(parts, sep)
}

// And conjoins filters. True children are dropped and nested conjunctions
// flattened, so And(f, True()) is f itself.
func And(fs ...Filter) Filter {
	var children []Filter
	for _, f := range fs {
		switch v := f.(type) {
		case nil, TrueFilter:
		case FalseFilter:
			return False()
		case AndFilter:
			children = append(children, v.Children...)
		default:
			children = append(children, f)
		}
	}
	switch len(children) {
	case 0:
		return True()
	case 1:
		return children[0]
	}
	return AndFilter{Children: children}
}

// Or disjoins filters. False children are dropped, so Or(f, False()) is f.
func Or(fs ...Filter) Filter {
	var children []Filter
	for _, f := range fs {
		switch v := f.(type) {
		case nil, FalseFilter:
		case TrueFilter:
			return True()
		case OrFilter:
			children = append(children, v.Children...)
		default:
			children = append(children, f)
		}
	}
	switch len(children) {
	case 0:
		return False()
	case 1:
		return children[0]
	}
	return OrFilter{Children: children}
}

func Not(f Filter) Filter {
	switch v := f.(type) {
	case nil, TrueFilter:
		return False()
	case FalseFilter:
		return True()
	case NotFilter:
		return v.Inner
	}
	return NotFilter{Inner: f}
}

// Languages returns the languages named by language filters inside f.
func Languages(f Filter) []languages.Language {
	seen := map[languages.Language]bool{}
	var out []languages.Language
	var walk func(Filter)
	walk = func(f Filter) {
		switch v := f.(type) {
		case LanguageFilter:
			lang := v.Inner.Language()
			if !seen[lang] {
				seen[lang] = true
				out = append(out, lang)
			}
		case AndFilter:
			for _, c := range v.Children {
				walk(c)
			}
		case OrFilter:
			for _, c := range v.Children {
				walk(c)
			}
		case NotFilter:
			walk(v.Inner)
		}
	}
	walk(f)
	return out
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

func parseDate(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, layout == "2006-01-02", nil
		}
	}
	return time.Time{}, false, fmt.Errorf("%w: unrecognised date %q", ErrInvalidCommand, s)
}

// ParseFilter builds a filter from a textual expression such as
// "author:alice", "since:2024-01-01", "python:decorator=cache" or
// "!message:wip".
func ParseFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	switch strings.ToLower(expr) {
	case "", "true", "none":
		return True(), nil
	case "false":
		return False(), nil
	}
	if rest, ok := strings.CutPrefix(expr, "!"); ok {
		inner, err := ParseFilter(rest)
		if err != nil {
			return nil, err
		}
		return Not(inner), nil
	}

	key, value, ok := strings.Cut(expr, ":")
	if !ok {
		return nil, fmt.Errorf("%w: filter %q has no kind (want kind:value)", ErrInvalidCommand, expr)
	}
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)

	if lang, err := languages.FromString(key); err == nil && lang != languages.All && !isFilterKind(key) {
		inner, err := languages.ParseFilter(lang, value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
		return LanguageFilter{Inner: inner}, nil
	}

	if value == "" {
		return nil, fmt.Errorf("%w: filter %q has an empty value", ErrInvalidCommand, expr)
	}

	switch key {
	case "author":
		return AuthorFilter{Name: value}, nil
	case "email":
		return AuthorEmailFilter{Email: value}, nil
	case "message", "msg":
		return MessageFilter{Text: value}, nil
	case "hash", "commit":
		return CommitHashFilter{Hash: value}, nil
	case "since":
		t, _, err := parseDate(value)
		if err != nil {
			return nil, err
		}
		return DateRangeFilter{Since: t}, nil
	case "until":
		t, day, err := parseDate(value)
		if err != nil {
			return nil, err
		}
		if day {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return DateRangeFilter{Until: t}, nil
	case "date":
		t, day, err := parseDate(value)
		if err != nil {
			return nil, err
		}
		if day {
			return DateRangeFilter{Since: t, Until: t.Add(24*time.Hour - time.Nanosecond)}, nil
		}
		return DateRangeFilter{Since: t, Until: t}, nil
	case "path":
		return PathGlob(value), nil
	case "dir", "directory":
		return DirectoryFilter{Dir: value}, nil
	case "lang", "language":
		lang, err := languages.FromString(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
		return FileLanguageFilter{Language: lang}, nil
	case "name", "function":
		return FunctionNameFilter{Name: value}, nil
	case "parent", "class":
		return ParentFilter{Name: value}, nil
	case "lines":
		return parseLines(value)
	}
	return nil, fmt.Errorf("%w: unknown filter kind %q", ErrInvalidCommand, key)
}

// ParseFilters conjoins several expressions.
func ParseFilters(exprs []string) (Filter, error) {
	fs := make([]Filter, 0, len(exprs))
	for _, e := range exprs {
		f, err := ParseFilter(e)
		if err != nil {
			return nil, err
		}
		fs = append(fs, f)
	}
	return And(fs...), nil
}

func isFilterKind(key string) bool {
	switch key {
	case "author", "email", "message", "msg", "hash", "commit", "since", "until", "date",
		"path", "dir", "directory", "lang", "language", "name", "function", "parent", "class", "lines":
		return true
	}
	return false
}

// parseLines accepts "10-40" and "start: 10 end: 40".
func parseLines(value string) (Filter, error) {
	var start, end string
	if a, b, ok := strings.Cut(value, "-"); ok && !strings.Contains(value, "start") {
		start, end = a, b
	} else {
		fields := strings.Fields(strings.NewReplacer(":", " ", ",", " ").Replace(value))
		for i := 0; i+1 < len(fields); i += 2 {
			switch strings.ToLower(fields[i]) {
			case "start":
				start = fields[i+1]
			case "end":
				end = fields[i+1]
			}
		}
	}

	s, err := strconv.Atoi(strings.TrimSpace(start))
	if err != nil {
		return nil, fmt.Errorf("%w: lines start %q", ErrInvalidCommand, start)
	}
	e, err := strconv.Atoi(strings.TrimSpace(end))
	if err != nil {
		return nil, fmt.Errorf("%w: lines end %q", ErrInvalidCommand, end)
	}
	if s < 1 || e < s {
		return nil, fmt.Errorf("%w: invalid line range %d-%d", ErrInvalidCommand, s, e)
	}
	return InLinesFilter{Start: s, End: e}, nil
}
