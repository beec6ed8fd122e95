package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/emirpasic/gods/queues/priorityqueue"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// GitRepository gives read-only access to a local repository. It never
// touches the worktree, index or refs.
type GitRepository struct {
	repo     *git.Repository
	rootPath string
}

// OpenRepository opens the repository containing path.
func OpenRepository(path string) (*GitRepository, error) {
	root, err := NewScopeResolver().FindRepository(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRepositoryOpen, path, err)
	}

	repo, err := openStorage(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRepositoryOpen, root, err)
	}

	return &GitRepository{repo: repo, rootPath: root}, nil
}

func openStorage(root string) (*git.Repository, error) {
	dotGit := filepath.Join(root, git.GitDirName)
	info, err := os.Stat(dotGit)
	switch {
	case err == nil && info.IsDir():
		storage := filesystem.NewStorage(osfs.New(dotGit), cache.NewObjectLRUDefault())
		return git.Open(storage, osfs.New(root))
	case err == nil:
		// .git file pointing elsewhere (linked worktree or submodule)
		return git.PlainOpenWithOptions(root, &git.PlainOpenOptions{EnableDotGitCommonDir: true})
	default:
		storage := filesystem.NewStorage(osfs.New(root), cache.NewObjectLRUDefault())
		return git.Open(storage, nil)
	}
}

func (r *GitRepository) Root() string {
	return r.rootPath
}

// Commits enumerates every commit reachable from ref in topological order.
// An empty ref means HEAD; an unborn HEAD yields an empty sequence.
func (r *GitRepository) Commits(ctx context.Context, ref string, dir Direction) (*CommitSequence, error) {
	start, err := r.resolve(ref)
	if errors.Is(err, plumbing.ErrReferenceNotFound) && ref == "" {
		return &CommitSequence{repo: r.repo}, nil
	}
	if err != nil {
		return nil, err
	}

	iter, err := r.repo.Log(&git.LogOptions{From: start})
	if err != nil {
		return nil, fmt.Errorf("%w: get log: %v", ErrRepositoryAccess, err)
	}
	defer iter.Close()

	var nodes []*commitNode
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		nodes = append(nodes, &commitNode{
			hash:    c.Hash,
			parents: c.ParentHashes,
			when:    c.Committer.When.Unix(),
		})
		return nil
	})
	if err != nil && err != io.EOF {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: walk log: %v", ErrRepositoryAccess, err)
	}

	order := topoOrder(nodes)
	if dir == NewestFirst {
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}
	return &CommitSequence{repo: r.repo, order: order}, nil
}

// CommitAt resolves ref to a single commit. Its Position is not computed.
func (r *GitRepository) CommitAt(ctx context.Context, ref string) (*Commit, error) {
	hash, err := r.resolve(ref)
	if err != nil {
		return nil, err
	}
	c, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("%w: get commit: %v", ErrRepositoryAccess, err)
	}
	return toCommit(c, -1), nil
}

func (r *GitRepository) resolve(ref string) (plumbing.Hash, error) {
	if ref == "" {
		head, err := r.repo.Head()
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("get HEAD: %w", err)
		}
		return head.Hash(), nil
	}
	resolved, err := r.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: resolve ref %q: %v", ErrInvalidCommand, ref, err)
	}
	return *resolved, nil
}

// ReadFile returns the content of path as of commit.
func (r *GitRepository) ReadFile(ctx context.Context, commit *Commit, path string) ([]byte, error) {
	tree, err := r.tree(commit)
	if err != nil {
		return nil, err
	}

	f, err := tree.File(cleanPath(path))
	if errors.Is(err, object.ErrFileNotFound) || errors.Is(err, object.ErrDirectoryNotFound) || errors.Is(err, object.ErrEntryNotFound) {
		return nil, fmt.Errorf("%w: %s at %s", ErrFileNotFound, path, commit.ShortHash())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrRepositoryAccess, path, err)
	}

	content, err := f.Contents()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrRepositoryAccess, path, err)
	}
	return []byte(content), nil
}

// ListFiles returns every file path in the tree of commit, sorted.
func (r *GitRepository) ListFiles(ctx context.Context, commit *Commit) ([]string, error) {
	tree, err := r.tree(commit)
	if err != nil {
		return nil, err
	}

	var files []string
	err = tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		files = append(files, f.Name)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: list files: %v", ErrRepositoryAccess, err)
	}

	sort.Strings(files)
	return files, nil
}

func (r *GitRepository) tree(commit *Commit) (*object.Tree, error) {
	c, err := r.repo.CommitObject(plumbing.NewHash(commit.Hash))
	if err != nil {
		return nil, fmt.Errorf("%w: get commit %s: %v", ErrRepositoryAccess, commit.ShortHash(), err)
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("%w: get tree: %v", ErrRepositoryAccess, err)
	}
	return tree, nil
}

// CommitSequence is a lazy, finite sequence of commits. Metadata is loaded
// on demand; it can only be restarted from the beginning.
type CommitSequence struct {
	repo  *git.Repository
	order []*commitNode
	next  int
}

// Next returns the next commit or io.EOF.
func (s *CommitSequence) Next() (*Commit, error) {
	if s.next >= len(s.order) {
		return nil, io.EOF
	}
	node := s.order[s.next]
	s.next++

	c, err := s.repo.CommitObject(node.hash)
	if err != nil {
		return nil, fmt.Errorf("%w: get commit %s: %v", ErrRepositoryAccess, node.hash, err)
	}
	return toCommit(c, node.position), nil
}

func (s *CommitSequence) Reset() {
	s.next = 0
}

func (s *CommitSequence) Len() int {
	return len(s.order)
}

func (s *CommitSequence) Remaining() int {
	return len(s.order) - s.next
}

type commitNode struct {
	hash     plumbing.Hash
	parents  []plumbing.Hash
	when     int64
	position int
}

// topoOrder sorts nodes parents-first. Among commits that are ready at
// the same time the older committer time wins, then the smaller hash.
func topoOrder(nodes []*commitNode) []*commitNode {
	byHash := make(map[plumbing.Hash]*commitNode, len(nodes))
	for _, n := range nodes {
		byHash[n.hash] = n
	}

	pending := make(map[plumbing.Hash]int, len(nodes))
	children := make(map[plumbing.Hash][]*commitNode, len(nodes))
	for _, n := range nodes {
		for _, p := range n.parents {
			if _, ok := byHash[p]; !ok {
				continue
			}
			pending[n.hash]++
			children[p] = append(children[p], n)
		}
	}

	ready := priorityqueue.NewWith(func(a, b interface{}) int {
		x, y := a.(*commitNode), b.(*commitNode)
		switch {
		case x.when < y.when:
			return -1
		case x.when > y.when:
			return 1
		}
		return strings.Compare(x.hash.String(), y.hash.String())
	})
	for _, n := range nodes {
		if pending[n.hash] == 0 {
			ready.Enqueue(n)
		}
	}

	order := make([]*commitNode, 0, len(nodes))
	for !ready.Empty() {
		v, _ := ready.Dequeue()
		n := v.(*commitNode)
		n.position = len(order)
		order = append(order, n)
		for _, child := range children[n.hash] {
			pending[child.hash]--
			if pending[child.hash] == 0 {
				ready.Enqueue(child)
			}
		}
	}
	return order
}

func toCommit(c *object.Commit, position int) *Commit {
	var parents []string
	for _, p := range c.ParentHashes {
		parents = append(parents, p.String())
	}

	return &Commit{
		Hash:      c.Hash.String(),
		Message:   strings.TrimSpace(c.Message),
		Author:    c.Author.Name,
		Email:     c.Author.Email,
		Timestamp: c.Author.When,
		Parents:   parents,
		Position:  position,
	}
}

func cleanPath(p string) string {
	p = filepath.ToSlash(p)
	return strings.TrimPrefix(strings.TrimPrefix(p, "./"), "/")
}
