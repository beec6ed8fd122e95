package internal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/4thel00z/fnhist/internal/languages"
)

type Direction string

const (
	OldestFirst Direction = "oldest-first"
	NewestFirst Direction = "newest-first"
	Both        Direction = "both"
)

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "oldest-first", "oldest", "forward", "asc":
		return OldestFirst, nil
	case "newest-first", "newest", "backward", "desc":
		return NewestFirst, nil
	case "both":
		return Both, nil
	}
	return "", fmt.Errorf("%w: unknown direction %q", ErrInvalidCommand, s)
}

// Commit is immutable commit metadata. Position is the topological index
// of the commit: 0 for the oldest commit reachable from the queried ref.
type Commit struct {
	Hash      string    `json:"hash"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Parents   []string  `json:"parents,omitempty"`
	Position  int       `json:"position"`
}

func (c Commit) ShortHash() string {
	if len(c.Hash) > 7 {
		return c.Hash[:7]
	}
	return c.Hash
}

// Subject returns the first line of the message.
func (c Commit) Subject() string {
	subject, _, _ := strings.Cut(c.Message, "\n")
	return subject
}

// CommitInfo pairs a commit with the file examined at it.
type CommitInfo struct {
	Commit   Commit             `json:"commit"`
	Path     string             `json:"path"`
	Language languages.Language `json:"language"`
}

// HistoryRepository is the read-only view of a repository the resolver needs.
type HistoryRepository interface {
	Commits(ctx context.Context, ref string, dir Direction) (*CommitSequence, error)
	CommitAt(ctx context.Context, ref string) (*Commit, error)
	ReadFile(ctx context.Context, commit *Commit, path string) ([]byte, error)
	ListFiles(ctx context.Context, commit *Commit) ([]string, error)
}
