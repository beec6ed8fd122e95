package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/4thel00z/fnhist/internal"
	"github.com/4thel00z/fnhist/internal/languages"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02 15:04"

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type historyView struct {
	bodies bool
	diffs  bool
	meta   bool
}

func printHistory(w io.Writer, h *internal.FunctionHistory, view historyView) {
	if len(h.Tracks) == 0 {
		fmt.Fprintf(w, "No versions of %s in the scanned commits.\n", h.Name)
	}
	for ti := range h.Tracks {
		t := &h.Tracks[ti]
		if ti > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s  %s  (%d versions)\n", t.Key, t.Path, len(t.Entries))
		for i, e := range t.Entries {
			fmt.Fprintf(w, "  %s  %s  %-16s %s\n",
				e.Commit.ShortHash(), e.Commit.Timestamp.Format(dateLayout), e.Commit.Author, e.Commit.Subject())
			switch {
			case view.diffs:
				diff, _ := t.Diff(i)
				writeIndented(w, diff)
			case view.bodies:
				writeIndented(w, e.Function.Context())
			}
		}
	}
	if h.Truncated {
		fmt.Fprintf(w, "\n(stopped after %d commits; raise --limit to see more)\n", h.Scanned)
	}
	if view.meta {
		printMetadata(w, h.Metadata())
	}
}

func printMetadata(w io.Writer, m internal.Metadata) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Tracks:   %d\n", m.Tracks)
	fmt.Fprintf(w, "Versions: %d across %d commits\n", m.Entries, m.Commits)
	fmt.Fprintf(w, "Files:    %s\n", strings.Join(m.Files, ", "))
	fmt.Fprintf(w, "Authors:  %s\n", strings.Join(m.Authors, ", "))
	if !m.First.IsZero() {
		fmt.Fprintf(w, "Span:     %s .. %s\n", m.First.Format(dateLayout), m.Last.Format(dateLayout))
	}
	fmt.Fprintf(w, "Scanned:  %d commits, %d gaps\n", m.Scanned, m.Gaps)
}

func printFunctions(w io.Writer, fns []languages.Function) {
	for i := range fns {
		fn := &fns[i]
		fmt.Fprintf(w, "%5d-%-5d %s\n", fn.Span.StartLine, fn.Span.EndLine, fn.Signature())
	}
}

func printCommits(w io.Writer, commits []internal.Commit, oneline bool) {
	for _, c := range commits {
		if oneline {
			fmt.Fprintf(w, "%s %s\n", c.ShortHash(), c.Subject())
			continue
		}
		fmt.Fprintf(w, "commit %s\n", c.Hash)
		fmt.Fprintf(w, "Author: %s <%s>\n", c.Author, c.Email)
		fmt.Fprintf(w, "Date:   %s\n\n", c.Timestamp.Format("Mon Jan 2 15:04:05 2006 -0700"))
		fmt.Fprintf(w, "    %s\n\n", c.Subject())
	}
}

func writeIndented(w io.Writer, text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(w, "      %s\n", line)
	}
}

// progressPrinter reports scan progress on stderr.
func progressPrinter(cmd *cobra.Command, enabled bool) func(internal.Status) {
	if !enabled {
		return nil
	}
	w := cmd.ErrOrStderr()
	return func(s internal.Status) {
		if s.State == internal.StateRunning && s.Total > 0 {
			fmt.Fprintf(w, "scanned %d/%d commits\n", s.Scanned, s.Total)
		}
	}
}
