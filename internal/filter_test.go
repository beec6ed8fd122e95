package internal

import (
	"testing"
	"time"

	"github.com/4thel00z/fnhist/internal/languages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCommit() *Commit {
	return &Commit{
		Hash:      "3f2a9c0d1e2b3c4d5e6f708192a3b4c5d6e7f809",
		Author:    "Alice Liddell",
		Email:     "alice@example.com",
		Timestamp: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
		Message:   "Refactor parser\n\nSplit tokens from nodes.",
	}
}

func pythonMethod() *languages.Function {
	return &languages.Function{
		Name: "push",
		Lang: languages.Python,
		Parents: []languages.Parent{
			{Kind: languages.ParentClass, Name: "Stack"},
		},
		Span:   languages.Span{StartLine: 12, EndLine: 18},
		Python: &languages.PythonInfo{Decorators: []string{"cache"}},
	}
}

func TestCommitFilters(t *testing.T) {
	c := testCommit()
	s := Subject{Commit: c}

	tests := []struct {
		name   string
		filter Filter
		want   Result
	}{
		{"author substring", AuthorFilter{Name: "alice"}, Match},
		{"author miss", AuthorFilter{Name: "bob"}, NoMatch},
		{"email", AuthorEmailFilter{Email: "@example.com"}, Match},
		{"message", MessageFilter{Text: "split tokens"}, Match},
		{"hash prefix", CommitHashFilter{Hash: "3F2A9"}, Match},
		{"hash miss", CommitHashFilter{Hash: "abc"}, NoMatch},
		{"since", DateRangeFilter{Since: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}, Match},
		{"until", DateRangeFilter{Until: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}, NoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Eval(s))
			assert.Equal(t, Undecided, tt.filter.Eval(Subject{}))
		})
	}
}

func TestFileFilters(t *testing.T) {
	s := Subject{Commit: testCommit(), Path: "src/parser/lexer.py"}

	assert.Equal(t, Match, PathGlob("src/**/*.py").Eval(s))
	assert.Equal(t, Match, PathGlob("*.py").Eval(s))
	assert.Equal(t, NoMatch, PathGlob("*.rs").Eval(s))
	assert.Equal(t, Match, PathGlob("parser/").Eval(s))
	assert.Equal(t, Match, DirectoryFilter{Dir: "src/parser"}.Eval(s))
	assert.Equal(t, NoMatch, DirectoryFilter{Dir: "src/pars"}.Eval(s))
	assert.Equal(t, Match, FileLanguageFilter{Language: languages.Python}.Eval(s))
	assert.Equal(t, NoMatch, FileLanguageFilter{Language: languages.Rust}.Eval(s))

	assert.Equal(t, Undecided, PathGlob("*.py").Eval(Subject{Commit: testCommit()}))
}

func TestFunctionFilters(t *testing.T) {
	fn := pythonMethod()
	s := Subject{Path: "stack.py", Language: languages.Python, Function: fn}

	assert.Equal(t, Match, FunctionNameFilter{Name: "push"}.Eval(s))
	assert.Equal(t, Match, FunctionNameFilter{Name: "pu*"}.Eval(s))
	assert.Equal(t, NoMatch, FunctionNameFilter{Name: "pop"}.Eval(s))
	assert.Equal(t, Match, ParentFilter{Name: "Stack"}.Eval(s))
	assert.Equal(t, NoMatch, ParentFilter{Name: "Queue"}.Eval(s))
	assert.Equal(t, Match, InLinesFilter{Start: 10, End: 20}.Eval(s))
	assert.Equal(t, NoMatch, InLinesFilter{Start: 13, End: 20}.Eval(s))

	fileOnly := Subject{Path: "stack.py", Language: languages.Python}
	assert.Equal(t, Undecided, FunctionNameFilter{Name: "push"}.Eval(fileOnly))
	assert.Equal(t, Undecided, InLinesFilter{Start: 1, End: 2}.Eval(fileOnly))
}

func TestLanguageFilterAsymmetry(t *testing.T) {
	decorated := LanguageFilter{Inner: languages.PythonFilter{Attr: languages.PythonDecorator, Value: "cache"}}
	rustOnly := LanguageFilter{Inner: languages.RustFilter{Attr: languages.RustVisibility, Value: "pub"}}

	// At file level a language filter must never eliminate the file.
	rustFile := Subject{Path: "src/lib.rs", Language: languages.Rust}
	assert.Equal(t, Undecided, decorated.Eval(rustFile))

	fn := pythonMethod()
	assert.Equal(t, Match, decorated.Eval(Subject{Function: fn}))
	assert.Equal(t, NoMatch, rustOnly.Eval(Subject{Function: fn}))
	assert.True(t, rustOnly.Supports(languages.Rust))
	assert.False(t, rustOnly.Supports(languages.Python))

	notRust := Not(rustOnly)
	assert.Equal(t, NoMatch, notRust.Eval(Subject{Function: fn}))
	assert.Equal(t, Undecided, notRust.Eval(Subject{Path: "a.py", Language: languages.Python}))
	assert.Equal(t, NoMatch, Not(decorated).Eval(Subject{Function: fn}))
	assert.Equal(t, Match, Not(decorated).Eval(Subject{Function: &languages.Function{Name: "plain", Lang: languages.Python}}))
}

func TestCombinatorIdentities(t *testing.T) {
	leaves := []Filter{
		AuthorFilter{Name: "alice"},
		PathGlob("src/**"),
		LanguageFilter{Inner: languages.GoFilter{Attr: languages.GoReceiver, Value: "Server"}},
		And(AuthorFilter{Name: "a"}, MessageFilter{Text: "b"}),
		Or(AuthorFilter{Name: "a"}, MessageFilter{Text: "b"}),
		Not(MessageFilter{Text: "wip"}),
		True(),
		False(),
	}

	for _, f := range leaves {
		t.Run(f.String(), func(t *testing.T) {
			assert.Equal(t, f, And(f, True()))
			assert.Equal(t, f, And(True(), f))
			assert.Equal(t, f, Or(f, False()))
			assert.Equal(t, f, Or(False(), f))
		})
	}

	assert.Equal(t, False(), And(AuthorFilter{Name: "a"}, False()))
	assert.Equal(t, True(), Or(AuthorFilter{Name: "a"}, True()))
	assert.Equal(t, True(), And())
	assert.Equal(t, False(), Or())
	assert.Equal(t, AuthorFilter{Name: "a"}, Not(Not(AuthorFilter{Name: "a"})))
}

func TestCombinatorFlatten(t *testing.T) {
	a, b, c := AuthorFilter{Name: "a"}, MessageFilter{Text: "b"}, CommitHashFilter{Hash: "c"}
	assert.Equal(t, AndFilter{Children: []Filter{a, b, c}}, And(And(a, b), c))
	assert.Equal(t, OrFilter{Children: []Filter{a, b, c}}, Or(a, Or(b, c)))
}

func TestKleeneEvaluation(t *testing.T) {
	commitOnly := Subject{Commit: testCommit()}
	author := AuthorFilter{Name: "alice"}
	other := AuthorFilter{Name: "bob"}
	name := FunctionNameFilter{Name: "push"}

	assert.Equal(t, Undecided, And(author, name).Eval(commitOnly))
	assert.Equal(t, NoMatch, And(other, name).Eval(commitOnly))
	assert.Equal(t, Match, Or(author, name).Eval(commitOnly))
	assert.Equal(t, Undecided, Or(other, name).Eval(commitOnly))
	assert.Equal(t, Undecided, Not(name).Eval(commitOnly))
	assert.Equal(t, NoMatch, Not(author).Eval(commitOnly))
}

func TestAndShortCircuits(t *testing.T) {
	calls := 0
	probe := probeFilter{calls: &calls}

	And(neverMatches(), probe).Eval(Subject{Commit: testCommit()})
	assert.Equal(t, 0, calls)

	Or(AuthorFilter{Name: "alice"}, probe).Eval(Subject{Commit: testCommit()})
	assert.Equal(t, 0, calls)

	And(AuthorFilter{Name: "alice"}, probe).Eval(Subject{Commit: testCommit()})
	assert.Equal(t, 1, calls)
}

// neverMatches is a non-constant filter that never matches, so And keeps it.
func neverMatches() Filter { return AuthorFilter{Name: "nobody-at-all"} }

type probeFilter struct{ calls *int }

func (p probeFilter) Eval(Subject) Result { *p.calls++; return Match }
func (p probeFilter) String() string      { return "probe" }
func (probeFilter) sealed()               {}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		expr string
		want Filter
	}{
		{"author:alice", AuthorFilter{Name: "alice"}},
		{"email:alice@example.com", AuthorEmailFilter{Email: "alice@example.com"}},
		{"message:fix bug", MessageFilter{Text: "fix bug"}},
		{"hash:abc123", CommitHashFilter{Hash: "abc123"}},
		{"dir:src/core", DirectoryFilter{Dir: "src/core"}},
		{"lang:rust", FileLanguageFilter{Language: languages.Rust}},
		{"name:parse_*", FunctionNameFilter{Name: "parse_*"}},
		{"parent:Stack", ParentFilter{Name: "Stack"}},
		{"lines:10-40", InLinesFilter{Start: 10, End: 40}},
		{"lines:start: 5 end: 9", InLinesFilter{Start: 5, End: 9}},
		{"python:decorator=cache", LanguageFilter{Inner: languages.PythonFilter{Attr: languages.PythonDecorator, Value: "cache"}}},
		{"!message:wip", NotFilter{Inner: MessageFilter{Text: "wip"}}},
		{"", True()},
		{"false", False()},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ParseFilter(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFilterDates(t *testing.T) {
	f, err := ParseFilter("since:2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, DateRangeFilter{Since: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}, f)

	f, err = ParseFilter("until:2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, Match, f.Eval(Subject{Commit: testCommit()}))

	f, err = ParseFilter("date:2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, Match, f.Eval(Subject{Commit: testCommit()}))

	f, err = ParseFilter("date:2024-03-16")
	require.NoError(t, err)
	assert.Equal(t, NoMatch, f.Eval(Subject{Commit: testCommit()}))
}

func TestParseFilterErrors(t *testing.T) {
	for _, expr := range []string{
		"nonsense",
		"colour:red",
		"author:",
		"since:yesterday-ish",
		"lines:9-3",
		"lines:a-b",
		"python:teleport=yes",
		"lang:cobol",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseFilter(expr)
			require.Error(t, err)
			assert.Equal(t, ErrInvalidCommand, ReasonOf(err))
		})
	}
}

func TestParseFilters(t *testing.T) {
	f, err := ParseFilters([]string{"author:alice", "path:*.py"})
	require.NoError(t, err)
	assert.Equal(t, AndFilter{Children: []Filter{AuthorFilter{Name: "alice"}, PathGlob("*.py")}}, f)

	f, err = ParseFilters(nil)
	require.NoError(t, err)
	assert.Equal(t, True(), f)
}

func TestFilterLanguages(t *testing.T) {
	f := And(
		AuthorFilter{Name: "a"},
		Or(
			LanguageFilter{Inner: languages.RustFilter{Attr: languages.RustAsync}},
			Not(LanguageFilter{Inner: languages.PythonFilter{Attr: languages.PythonAsync}}),
		),
	)
	assert.Equal(t, []languages.Language{languages.Rust, languages.Python}, Languages(f))
}
