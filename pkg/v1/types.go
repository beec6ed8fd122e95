package v1

import (
	"time"

	"github.com/4thel00z/fnhist/internal"
	"github.com/4thel00z/fnhist/internal/languages"
)

// Commit is the metadata of one commit.
type Commit struct {
	Hash      string    `json:"hash"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Function is one parsed definition.
type Function struct {
	Name      string `json:"name"`
	Language  string `json:"language"`
	Key       string `json:"key"`
	Parent    string `json:"parent,omitempty"`
	Signature string `json:"signature"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Body      string `json:"body"`
}

// Entry is one version of a function.
type Entry struct {
	Commit   Commit   `json:"commit"`
	Path     string   `json:"path"`
	Function Function `json:"function"`
}

// Track is the lineage of one function identity in one file.
type Track struct {
	Key     string  `json:"key"`
	Path    string  `json:"path"`
	Entries []Entry `json:"entries"`
}

// History is the answer to a history query.
type History struct {
	Name      string  `json:"name"`
	Direction string  `json:"direction"`
	Tracks    []Track `json:"tracks"`
	Truncated bool    `json:"truncated"`
	Scanned   int     `json:"scanned"`
	Gaps      int     `json:"gaps"`
}

func toCommit(c internal.Commit) Commit {
	return Commit{
		Hash:      c.Hash,
		Author:    c.Author,
		Email:     c.Email,
		Message:   c.Message,
		Timestamp: c.Timestamp,
	}
}

func toFunction(fn languages.Function) Function {
	return Function{
		Name:      fn.Name,
		Language:  string(fn.Lang),
		Key:       fn.Key().String(),
		Parent:    fn.ParentPath(),
		Signature: fn.Signature(),
		StartLine: fn.Span.StartLine,
		EndLine:   fn.Span.EndLine,
		Body:      fn.Body,
	}
}

func toHistory(h *internal.FunctionHistory) *History {
	out := &History{
		Name:      h.Name,
		Direction: string(h.Direction),
		Truncated: h.Truncated,
		Scanned:   h.Scanned,
		Gaps:      len(h.Gaps),
		Tracks:    make([]Track, 0, len(h.Tracks)),
	}
	for _, t := range h.Tracks {
		track := Track{Key: t.Key.String(), Path: t.Path, Entries: make([]Entry, 0, len(t.Entries))}
		for _, e := range t.Entries {
			track.Entries = append(track.Entries, Entry{
				Commit:   toCommit(e.Commit),
				Path:     e.Path,
				Function: toFunction(e.Function),
			})
		}
		out.Tracks = append(out.Tracks, track)
	}
	return out
}
