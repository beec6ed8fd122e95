package internal

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture builds a real on-disk repository one commit at a time.
type fixture struct {
	t    *testing.T
	dir  string
	repo *git.Repository
	when time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return &fixture{
		t:    t,
		dir:  dir,
		repo: repo,
		when: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) write(path, content string) {
	f.t.Helper()
	full := filepath.Join(f.dir, filepath.FromSlash(path))
	require.NoError(f.t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(f.t, os.WriteFile(full, []byte(content), 0644))

	wt, err := f.repo.Worktree()
	require.NoError(f.t, err)
	_, err = wt.Add(path)
	require.NoError(f.t, err)
}

func (f *fixture) remove(path string) {
	f.t.Helper()
	wt, err := f.repo.Worktree()
	require.NoError(f.t, err)
	_, err = wt.Remove(path)
	require.NoError(f.t, err)
}

func (f *fixture) commit(msg string) string {
	f.t.Helper()
	return f.commitAs("Alice", "alice@example.com", msg)
}

func (f *fixture) commitAs(name, email, msg string) string {
	f.t.Helper()
	f.when = f.when.Add(time.Hour)
	return f.commitWith(msg, &git.CommitOptions{
		Author: &object.Signature{Name: name, Email: email, When: f.when},
	})
}

func (f *fixture) commitWith(msg string, opts *git.CommitOptions) string {
	f.t.Helper()
	if opts.Committer == nil {
		opts.Committer = opts.Author
	}
	opts.AllowEmptyCommits = true
	wt, err := f.repo.Worktree()
	require.NoError(f.t, err)
	hash, err := wt.Commit(msg, opts)
	require.NoError(f.t, err)
	return hash.String()
}

func (f *fixture) open() *GitRepository {
	f.t.Helper()
	repo, err := OpenRepository(f.dir)
	require.NoError(f.t, err)
	return repo
}

func collect(t *testing.T, seq *CommitSequence) []*Commit {
	t.Helper()
	var out []*Commit
	for {
		c, err := seq.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, c)
	}
}

func TestOpenRepositoryFromSubdir(t *testing.T) {
	fx := newFixture(t)
	fx.write("src/pkg/a.py", "x = 1\n")
	fx.commit("init")

	repo, err := OpenRepository(filepath.Join(fx.dir, "src", "pkg"))
	require.NoError(t, err)
	assert.Equal(t, fx.dir, repo.Root())
}

func TestOpenRepositoryNotARepo(t *testing.T) {
	_, err := OpenRepository(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ErrRepositoryOpen, ReasonOf(err))
}

func TestCommitsOrder(t *testing.T) {
	fx := newFixture(t)
	var hashes []string
	for _, msg := range []string{"one", "two", "three"} {
		fx.write("a.txt", msg)
		hashes = append(hashes, fx.commit(msg))
	}
	repo := fx.open()
	ctx := context.Background()

	seq, err := repo.Commits(ctx, "", OldestFirst)
	require.NoError(t, err)
	assert.Equal(t, 3, seq.Len())
	commits := collect(t, seq)
	require.Len(t, commits, 3)
	for i, c := range commits {
		assert.Equal(t, hashes[i], c.Hash)
		assert.Equal(t, i, c.Position)
	}
	assert.Equal(t, "Alice", commits[0].Author)
	assert.Equal(t, "one", commits[0].Message)

	seq, err = repo.Commits(ctx, "", NewestFirst)
	require.NoError(t, err)
	commits = collect(t, seq)
	require.Len(t, commits, 3)
	assert.Equal(t, hashes[2], commits[0].Hash)
	assert.Equal(t, 2, commits[0].Position)

	seq.Reset()
	again := collect(t, seq)
	assert.Equal(t, commits, again)
}

func TestCommitsTopologicalNotWallClock(t *testing.T) {
	fx := newFixture(t)
	fx.write("a.txt", "base")
	base := fx.commit("base")

	// A rebased commit can carry a timestamp older than its parent.
	fx.write("a.txt", "child")
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	child := fx.commitWith("child", &git.CommitOptions{
		Author: &object.Signature{Name: "Bob", Email: "bob@example.com", When: old},
	})

	seq, err := fx.open().Commits(context.Background(), "", OldestFirst)
	require.NoError(t, err)
	commits := collect(t, seq)
	require.Len(t, commits, 2)
	assert.Equal(t, base, commits[0].Hash)
	assert.Equal(t, child, commits[1].Hash)
}

func TestCommitsMergeParentsFirst(t *testing.T) {
	fx := newFixture(t)
	fx.write("a.txt", "root")
	root := fx.commit("root")

	fx.write("a.txt", "main")
	main := fx.commit("main")

	wt, err := fx.repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(root), Force: true}))
	fx.write("b.txt", "side")
	side := fx.commit("side")

	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Branch: plumbing.Master, Force: true}))
	fx.write("b.txt", "side")
	fx.when = fx.when.Add(time.Hour)
	merge := fx.commitWith("merge", &git.CommitOptions{
		Author:  &object.Signature{Name: "Alice", Email: "alice@example.com", When: fx.when},
		Parents: []plumbing.Hash{plumbing.NewHash(main), plumbing.NewHash(side)},
	})

	seq, err := fx.open().Commits(context.Background(), "", OldestFirst)
	require.NoError(t, err)
	commits := collect(t, seq)
	require.Len(t, commits, 4)

	pos := map[string]int{}
	for _, c := range commits {
		pos[c.Hash] = c.Position
	}
	assert.Equal(t, 0, pos[root])
	assert.Equal(t, 3, pos[merge])
	// main and side are both ready after root; main is older.
	assert.Less(t, pos[main], pos[side])
	assert.Len(t, commits[3].Parents, 2)
}

func TestCommitsUnbornHead(t *testing.T) {
	fx := newFixture(t)
	seq, err := fx.open().Commits(context.Background(), "", OldestFirst)
	require.NoError(t, err)
	assert.Equal(t, 0, seq.Len())
	_, err = seq.Next()
	assert.Equal(t, io.EOF, err)
}

func TestCommitsBadRef(t *testing.T) {
	fx := newFixture(t)
	fx.write("a.txt", "x")
	fx.commit("x")

	_, err := fx.open().Commits(context.Background(), "no-such-branch", OldestFirst)
	require.Error(t, err)
	assert.Equal(t, ErrInvalidCommand, ReasonOf(err))
}

func TestCommitsCancelled(t *testing.T) {
	fx := newFixture(t)
	fx.write("a.txt", "x")
	fx.commit("x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fx.open().Commits(ctx, "", OldestFirst)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCommitAt(t *testing.T) {
	fx := newFixture(t)
	fx.write("a.txt", "x")
	first := fx.commit("first\n\nbody")
	fx.write("a.txt", "y")
	fx.commit("second")

	c, err := fx.open().CommitAt(context.Background(), "HEAD~1")
	require.NoError(t, err)
	assert.Equal(t, first, c.Hash)
	assert.Equal(t, "first", c.Subject())
	assert.Equal(t, first[:7], c.ShortHash())
}

func TestReadFileAndListFiles(t *testing.T) {
	fx := newFixture(t)
	fx.write("src/b.py", "b = 2\n")
	fx.write("a.py", "a = 1\n")
	fx.commit("init")
	repo := fx.open()
	ctx := context.Background()

	head, err := repo.CommitAt(ctx, "")
	require.NoError(t, err)

	data, err := repo.ReadFile(ctx, head, "./src/b.py")
	require.NoError(t, err)
	assert.Equal(t, "b = 2\n", string(data))

	_, err = repo.ReadFile(ctx, head, "missing.py")
	assert.ErrorIs(t, err, ErrFileNotFound)
	_, err = repo.ReadFile(ctx, head, "nodir/missing.py")
	assert.ErrorIs(t, err, ErrFileNotFound)

	files, err := repo.ListFiles(ctx, head)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py", "src/b.py"}, files)
}
