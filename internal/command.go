package internal

import (
	"fmt"
	"strings"

	"github.com/4thel00z/fnhist/internal/languages"
)

type CommandKind string

const (
	SearchHistory CommandKind = "search-history"
	ListFunctions CommandKind = "list-functions"
	ListFiles     CommandKind = "list-files"
	UpdateFilter  CommandKind = "update-filter"
	ListCommits   CommandKind = "list-commits"
)

func (k CommandKind) valid() bool {
	switch k {
	case SearchHistory, ListFunctions, ListFiles, UpdateFilter, ListCommits:
		return true
	}
	return false
}

// Priority decides what happens to work already in the worker when a
// command is submitted.
type Priority string

const (
	// PrioritySerial waits behind running and queued commands.
	PrioritySerial Priority = "serial"
	// PriorityInteractive cancels the running command and drops the queue.
	PriorityInteractive Priority = "interactive"
)

func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "serial":
		return PrioritySerial, nil
	case "interactive", "preempt":
		return PriorityInteractive, nil
	}
	return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidCommand, s)
}

// Command is one unit of work for the worker. Which fields matter depends
// on Kind:
//
//	search-history  Function, Target, Language, Parent, Filter, Direction, Limit, Ref
//	list-functions  Target (absolute), Language, Filter, Ref
//	list-files      Target, Language, Filter, Ref
//	list-commits    Filter, Direction, Limit, Ref
//	update-filter   History (or the last search result), Filter
type Command struct {
	ID             string             `json:"id"`
	Kind           CommandKind        `json:"kind"`
	Priority       Priority           `json:"priority,omitempty"`
	Function       string             `json:"function,omitempty"`
	Target         FileTarget         `json:"target"`
	Language       languages.Language `json:"language,omitempty"`
	Parent         string             `json:"parent,omitempty"`
	Filter         Filter             `json:"-"`
	Direction      Direction          `json:"direction,omitempty"`
	Limit          int                `json:"limit,omitempty"`
	Ref            string             `json:"ref,omitempty"`
	KeepDuplicates bool               `json:"keep_duplicates,omitempty"`
	History        *FunctionHistory   `json:"-"`
}

// Query builds the resolver query of a search-history command.
func (c Command) Query() Query {
	return Query{
		Name:           c.Function,
		Target:         c.Target,
		Language:       c.Language,
		Parent:         c.Parent,
		Filter:         c.Filter,
		Direction:      c.Direction,
		Limit:          c.Limit,
		Ref:            c.Ref,
		KeepDuplicates: c.KeepDuplicates,
	}
}

// CommandResult is the single terminal answer to a command that was not
// cancelled. Exactly one of the payload fields is set on success.
type CommandResult struct {
	ID        string               `json:"id"`
	Kind      CommandKind          `json:"kind"`
	History   *FunctionHistory     `json:"history,omitempty"`
	Files     []string             `json:"files,omitempty"`
	Functions []languages.Function `json:"functions,omitempty"`
	Commits   []Commit             `json:"commits,omitempty"`
	Truncated bool                 `json:"truncated,omitempty"`
	Reason    ErrorReason          `json:"reason,omitempty"`
	Message   string               `json:"error,omitempty"`
	Err       error                `json:"-"`
}

func (r *CommandResult) Failed() bool {
	return r.Err != nil
}

func failedResult(cmd Command, err error) *CommandResult {
	return &CommandResult{
		ID:      cmd.ID,
		Kind:    cmd.Kind,
		Reason:  ReasonOf(err),
		Message: err.Error(),
		Err:     err,
	}
}

type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateDone      State = "done"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Terminal reports whether no further events follow for the command.
func (s State) Terminal() bool {
	return s == StateDone || s == StateCancelled || s == StateFailed
}

type Status struct {
	ID      string      `json:"id,omitempty"`
	Kind    CommandKind `json:"kind,omitempty"`
	State   State       `json:"state"`
	Scanned int         `json:"scanned,omitempty"`
	Total   int         `json:"total,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Event is one item of worker output: either a status change or a result.
type Event struct {
	Status *Status        `json:"status,omitempty"`
	Result *CommandResult `json:"result,omitempty"`
}
