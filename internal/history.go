package internal

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/4thel00z/fnhist/internal/languages"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Entry is one version of a function: the commit where this body was seen
// and the definition parsed there.
type Entry struct {
	Commit   Commit             `json:"commit"`
	Path     string             `json:"path"`
	Function languages.Function `json:"function"`
}

func (e Entry) Info() CommitInfo {
	return CommitInfo{Commit: e.Commit, Path: e.Path, Language: e.Function.Lang}
}

// Track is the lineage of one identity key in one file.
type Track struct {
	Key     languages.Key `json:"key"`
	Path    string        `json:"path"`
	Entries []Entry       `json:"entries"`
}

func (t *Track) ID() string {
	return t.Path + "\x00" + t.Key.String()
}

func (t *Track) Latest() (Entry, bool) {
	if len(t.Entries) == 0 {
		return Entry{}, false
	}
	return t.Entries[len(t.Entries)-1], true
}

// Diff renders a line diff between entry i-1 and entry i. For i == 0 the
// whole body is shown as added.
func (t *Track) Diff(i int) (string, error) {
	if i < 0 || i >= len(t.Entries) {
		return "", fmt.Errorf("%w: entry %d out of range (0..%d)", ErrInvalidCommand, i, len(t.Entries)-1)
	}
	var before string
	if i > 0 {
		before = t.Entries[i-1].Function.Body
	}
	return LineDiff(before, t.Entries[i].Function.Body), nil
}

// LineDiff produces a unified style body without hunk headers.
func LineDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out.WriteString(prefix)
			out.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				out.WriteString("\n")
			}
		}
	}
	return out.String()
}

// Gap records a visited commit that contributed no entry. It is
// informational and never turns the query into a failure.
type Gap struct {
	Commit Commit      `json:"commit"`
	Path   string      `json:"path,omitempty"`
	Reason ErrorReason `json:"reason"`
}

// FunctionHistory is the result of one query. Entries in every track are
// ordered in Direction; Both is reported oldest first.
type FunctionHistory struct {
	Name      string             `json:"name"`
	Language  languages.Language `json:"language"`
	Direction Direction          `json:"direction"`
	Tracks    []Track            `json:"tracks"`
	Gaps      []Gap              `json:"gaps,omitempty"`
	Truncated bool               `json:"truncated"`
	Scanned   int                `json:"scanned"`
}

func (h *FunctionHistory) Len() int {
	n := 0
	for _, t := range h.Tracks {
		n += len(t.Entries)
	}
	return n
}

// Track returns the track whose key renders as key, e.g. "python:Stack.push".
func (h *FunctionHistory) Track(key string) (*Track, bool) {
	for i := range h.Tracks {
		if h.Tracks[i].Key.String() == key {
			return &h.Tracks[i], true
		}
	}
	return nil, false
}

// Filter returns a new history keeping the entries f does not reject.
// Tracks left empty are dropped; a history left empty is ErrFunctionNotFound.
func (h *FunctionHistory) Filter(f Filter) (*FunctionHistory, error) {
	if f == nil {
		f = True()
	}
	out := &FunctionHistory{
		Name:      h.Name,
		Language:  h.Language,
		Direction: h.Direction,
		Gaps:      h.Gaps,
		Truncated: h.Truncated,
		Scanned:   h.Scanned,
	}
	for _, t := range h.Tracks {
		kept := Track{Key: t.Key, Path: t.Path}
		for _, e := range t.Entries {
			commit, fn := e.Commit, e.Function
			s := Subject{Commit: &commit, Path: e.Path, Language: fn.Lang, Function: &fn}
			if f.Eval(s) != NoMatch {
				kept.Entries = append(kept.Entries, e)
			}
		}
		if len(kept.Entries) > 0 {
			out.Tracks = append(out.Tracks, kept)
		}
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("%w: no entries of %s match %s", ErrFunctionNotFound, h.Name, f)
	}
	return out, nil
}

// Metadata summarises a history.
type Metadata struct {
	Name      string    `json:"name"`
	Tracks    int       `json:"tracks"`
	Entries   int       `json:"entries"`
	Commits   int       `json:"commits"`
	Files     []string  `json:"files"`
	Authors   []string  `json:"authors"`
	First     time.Time `json:"first"`
	Last      time.Time `json:"last"`
	Scanned   int       `json:"scanned"`
	Gaps      int       `json:"gaps"`
	Truncated bool      `json:"truncated"`
}

func (h *FunctionHistory) Metadata() Metadata {
	m := Metadata{
		Name:      h.Name,
		Tracks:    len(h.Tracks),
		Entries:   h.Len(),
		Scanned:   h.Scanned,
		Gaps:      len(h.Gaps),
		Truncated: h.Truncated,
	}

	commits := map[string]bool{}
	files := map[string]bool{}
	authors := map[string]bool{}
	for _, t := range h.Tracks {
		files[t.Path] = true
		for _, e := range t.Entries {
			commits[e.Commit.Hash] = true
			authors[e.Commit.Author] = true
			ts := e.Commit.Timestamp
			if m.First.IsZero() || ts.Before(m.First) {
				m.First = ts
			}
			if ts.After(m.Last) {
				m.Last = ts
			}
		}
	}
	m.Commits = len(commits)
	m.Files = sortedKeys(files)
	m.Authors = sortedKeys(authors)
	return m
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// mergeHistories combines an oldest-first and a newest-first run. Entries
// are unioned per track by commit hash, ordered by position and collapsed
// again since each run keeps a different end of an unchanged span. The caller
// sets Scanned since only it knows which commits both runs visited.
func mergeHistories(forward, backward *FunctionHistory, keepDuplicates bool) *FunctionHistory {
	out := &FunctionHistory{
		Name:      forward.Name,
		Language:  forward.Language,
		Direction: Both,
		Truncated: forward.Truncated || backward.Truncated,
	}

	index := map[string]int{}
	seen := map[string]map[string]bool{}
	add := func(t Track) {
		i, ok := index[t.ID()]
		if !ok {
			i = len(out.Tracks)
			index[t.ID()] = i
			seen[t.ID()] = map[string]bool{}
			out.Tracks = append(out.Tracks, Track{Key: t.Key, Path: t.Path})
		}
		for _, e := range t.Entries {
			if seen[t.ID()][e.Commit.Hash] {
				continue
			}
			seen[t.ID()][e.Commit.Hash] = true
			out.Tracks[i].Entries = append(out.Tracks[i].Entries, e)
		}
	}
	for _, t := range forward.Tracks {
		add(t)
	}
	for _, t := range backward.Tracks {
		add(t)
	}
	for i := range out.Tracks {
		entries := out.Tracks[i].Entries
		sort.SliceStable(entries, func(a, b int) bool {
			return entries[a].Commit.Position < entries[b].Commit.Position
		})
		if !keepDuplicates {
			out.Tracks[i].Entries = collapse(entries)
		}
	}

	gaps := map[string]bool{}
	for _, g := range append(append([]Gap{}, forward.Gaps...), backward.Gaps...) {
		k := g.Commit.Hash + "\x00" + g.Path
		if gaps[k] {
			continue
		}
		gaps[k] = true
		out.Gaps = append(out.Gaps, g)
	}
	sort.SliceStable(out.Gaps, func(a, b int) bool {
		return out.Gaps[a].Commit.Position < out.Gaps[b].Commit.Position
	})
	return out
}

// collapse drops entries whose body equals the previous entry's body.
func collapse(entries []Entry) []Entry {
	out := entries[:0]
	for i, e := range entries {
		if i > 0 && e.Function.Body == out[len(out)-1].Function.Body {
			continue
		}
		out = append(out, e)
	}
	return out
}
