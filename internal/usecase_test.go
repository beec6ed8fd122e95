package internal

import (
	"context"
	"strings"
	"testing"

	"github.com/4thel00z/fnhist/internal/languages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stackPy = `class Stack:
    def push(self, item):
        self.items.append(item)

    def pop(self):
        return self.items.pop()


def helper():
    return Stack()
`

func newTestUseCases(repo HistoryRepository, ignore *IgnoreMatcher) *UseCases {
	registry := languages.NewRegistry()
	return NewUseCases(repo, registry, ignore, NewResolver(repo, registry, ignore, DiscardLogger()))
}

func TestListFunctions(t *testing.T) {
	fx := newFixture(t)
	fx.write("stack.py", stackPy)
	fx.commit("add stack")
	uc := newTestUseCases(fx.open(), nil)
	ctx := context.Background()

	fns, err := uc.ListFunctions.Execute(ctx, ListFunctionsInput{Path: "stack.py"})
	require.NoError(t, err)
	var names []string
	for _, fn := range fns {
		names = append(names, fn.Name)
	}
	assert.Equal(t, []string{"push", "pop", "helper"}, names)

	fns, err = uc.ListFunctions.Execute(ctx, ListFunctionsInput{Path: "stack.py", Filter: ParentFilter{Name: "Stack"}})
	require.NoError(t, err)
	assert.Len(t, fns, 2)

	_, err = uc.ListFunctions.Execute(ctx, ListFunctionsInput{Path: "gone.py"})
	assert.Equal(t, ErrFileNotFound, ReasonOf(err))

	_, err = uc.ListFunctions.Execute(ctx, ListFunctionsInput{Path: "README.md"})
	assert.Equal(t, ErrUnsupportedLanguage, ReasonOf(err))

	_, err = uc.ListFunctions.Execute(ctx, ListFunctionsInput{})
	assert.Equal(t, ErrInvalidCommand, ReasonOf(err))
}

func TestListFilesHonoursTargetAndIgnore(t *testing.T) {
	fx := newFixture(t)
	fx.write("src/a.py", "def a():\n    pass\n")
	fx.write("src/b.rb", "def b\nend\n")
	fx.write("vendor/c.py", "def c():\n    pass\n")
	fx.write("notes.txt", "hello")
	fx.commit("init")

	ignore, err := ParseIgnore(strings.NewReader("vendor/\n"))
	require.NoError(t, err)
	uc := newTestUseCases(fx.open(), ignore)
	ctx := context.Background()

	files, err := uc.ListFiles.Execute(ctx, ListFilesInput{})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.py", "src/b.rb"}, files)

	files, err = uc.ListFiles.Execute(ctx, ListFilesInput{Language: languages.Ruby})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/b.rb"}, files)

	files, err = uc.ListFiles.Execute(ctx, ListFilesInput{Filter: PathGlob("*.py")})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.py"}, files)

	files, err = uc.ListFiles.Execute(ctx, ListFilesInput{Target: InDirectory("vendor")})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestListCommitsFilters(t *testing.T) {
	fx := newFixture(t)
	fx.write("a.py", "x = 1\n")
	first := fx.commitAs("Alice", "alice@example.com", "init")
	fx.write("a.py", "x = 2\n")
	fx.commitAs("Bob", "bob@example.com", "bump")
	fx.write("a.py", "x = 3\n")
	third := fx.commitAs("Alice", "alice@example.com", "bump again")
	uc := newTestUseCases(fx.open(), nil)
	ctx := context.Background()

	out, err := uc.ListCommits.Execute(ctx, ListCommitsInput{Filter: AuthorFilter{Name: "alice"}}, nil)
	require.NoError(t, err)
	require.Len(t, out.Commits, 2)
	assert.Equal(t, first, out.Commits[0].Hash)
	assert.Equal(t, third, out.Commits[1].Hash)
	assert.Equal(t, 3, out.Scanned)
	assert.False(t, out.Truncated)

	out, err = uc.ListCommits.Execute(ctx, ListCommitsInput{Direction: NewestFirst, Limit: 1}, nil)
	require.NoError(t, err)
	require.Len(t, out.Commits, 1)
	assert.Equal(t, third, out.Commits[0].Hash)
	assert.True(t, out.Truncated)

	// The limit bounds scanned commits: Bob's commit uses up the second slot.
	out, err = uc.ListCommits.Execute(ctx, ListCommitsInput{Filter: AuthorFilter{Name: "alice"}, Limit: 2}, nil)
	require.NoError(t, err)
	require.Len(t, out.Commits, 1)
	assert.Equal(t, first, out.Commits[0].Hash)
	assert.Equal(t, 2, out.Scanned)
	assert.True(t, out.Truncated)

	out, err = uc.ListCommits.Execute(ctx, ListCommitsInput{Limit: 3}, nil)
	require.NoError(t, err)
	assert.Len(t, out.Commits, 3)
	assert.False(t, out.Truncated)

	// Function-level filters cannot decide on a commit and keep it.
	out, err = uc.ListCommits.Execute(ctx, ListCommitsInput{Filter: FunctionNameFilter{Name: "x"}}, nil)
	require.NoError(t, err)
	assert.Len(t, out.Commits, 3)

	_, err = uc.ListCommits.Execute(ctx, ListCommitsInput{Limit: -1}, nil)
	assert.Equal(t, ErrInvalidCommand, ReasonOf(err))
}

func TestHandleDispatch(t *testing.T) {
	fx, c := threeCommitFixture(t)
	uc := newTestUseCases(fx.open(), nil)
	ctx := context.Background()

	_, err := uc.Handle(ctx, Command{Kind: UpdateFilter, Filter: True()}, nil)
	assert.Equal(t, ErrInvalidCommand, ReasonOf(err), "update-filter before any search")

	res, err := uc.Handle(ctx, Command{Kind: SearchHistory, Function: "parse", Target: AbsoluteFile("a.py")}, nil)
	require.NoError(t, err)
	require.NotNil(t, res.History)
	assert.Equal(t, 2, res.History.Len())

	res, err = uc.Handle(ctx, Command{Kind: UpdateFilter, Filter: MessageFilter{Text: "lower-case"}}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.History.Len())
	assert.Equal(t, c[2], res.History.Tracks[0].Entries[0].Commit.Hash)

	// Filters are applied to the search result, not to the last filtered view.
	res, err = uc.Handle(ctx, Command{Kind: UpdateFilter, Filter: MessageFilter{Text: "add parse"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, c[0], res.History.Tracks[0].Entries[0].Commit.Hash)

	_, err = uc.Handle(ctx, Command{Kind: UpdateFilter, Filter: False()}, nil)
	assert.Equal(t, ErrFunctionNotFound, ReasonOf(err))

	res, err = uc.Handle(ctx, Command{Kind: ListFunctions, Target: AbsoluteFile("b.py")}, nil)
	require.NoError(t, err)
	require.Len(t, res.Functions, 1)
	assert.Equal(t, "other", res.Functions[0].Name)

	_, err = uc.Handle(ctx, Command{Kind: ListFunctions, Target: InDirectory("src")}, nil)
	assert.Equal(t, ErrInvalidCommand, ReasonOf(err))

	res, err = uc.Handle(ctx, Command{Kind: ListFiles}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py", "b.py"}, res.Files)

	res, err = uc.Handle(ctx, Command{Kind: ListCommits, Ref: "HEAD~1"}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Commits, 2)

	_, err = uc.Handle(ctx, Command{Kind: "compile"}, nil)
	assert.Equal(t, ErrInvalidCommand, ReasonOf(err))
}

func TestHandleThroughWorker(t *testing.T) {
	fx, c := threeCommitFixture(t)
	w := NewWorker(newTestUseCases(fx.open(), nil), 4, nil)
	defer w.Close()

	id, err := w.Submit(Command{Kind: SearchHistory, Function: "parse", Direction: NewestFirst})
	require.NoError(t, err)

	results := resultsOf(until(t, w, id, StateDone))
	require.Len(t, results, 1)
	require.NotNil(t, results[0].History)
	assert.Equal(t, []string{c[2], c[1]}, entryHashes(results[0].History.Tracks[0]))
}
