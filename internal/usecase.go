package internal

import (
	"context"
	"fmt"
	"io"

	"github.com/4thel00z/fnhist/internal/languages"
)

// Use case input DTOs

type ListFunctionsInput struct {
	Path     string
	Ref      string
	Language languages.Language
	Filter   Filter
}

type ListFilesInput struct {
	Target   FileTarget
	Ref      string
	Language languages.Language
	Filter   Filter
}

type ListCommitsInput struct {
	Ref       string
	Direction Direction
	Filter    Filter
	Limit     int
}

type ListCommitsOutput struct {
	Commits   []Commit
	Scanned   int
	Truncated bool
}

type UpdateFilterInput struct {
	History *FunctionHistory
	Filter  Filter
}

// Use cases

type SearchHistoryUseCase struct {
	resolver *Resolver
}

func NewSearchHistoryUseCase(resolver *Resolver) *SearchHistoryUseCase {
	return &SearchHistoryUseCase{resolver: resolver}
}

func (uc *SearchHistoryUseCase) Execute(ctx context.Context, q Query, progress ProgressFunc) (*FunctionHistory, error) {
	return uc.resolver.Resolve(ctx, q, progress)
}

type ListFunctionsUseCase struct {
	repo     HistoryRepository
	registry *languages.Registry
}

func NewListFunctionsUseCase(repo HistoryRepository, registry *languages.Registry) *ListFunctionsUseCase {
	return &ListFunctionsUseCase{repo: repo, registry: registry}
}

// Execute parses one file at one commit and returns the definitions the
// filter does not reject, in source order.
func (uc *ListFunctionsUseCase) Execute(ctx context.Context, input ListFunctionsInput) ([]languages.Function, error) {
	path := cleanPath(input.Path)
	if path == "" {
		return nil, fmt.Errorf("%w: list-functions needs a file path", ErrInvalidCommand)
	}
	lang, err := uc.registry.Resolve(path, input.Language)
	if err != nil {
		return nil, err
	}
	filter := input.Filter
	if filter == nil {
		filter = True()
	}

	commit, err := uc.repo.CommitAt(ctx, input.Ref)
	if err != nil {
		return nil, err
	}
	data, err := uc.repo.ReadFile(ctx, commit, path)
	if err != nil {
		return nil, err
	}
	file, err := uc.registry.Parse(path, data, lang)
	if err != nil {
		return nil, err
	}

	out := []languages.Function{}
	for i := range file.Functions {
		fn := file.Functions[i]
		s := Subject{Commit: commit, Path: path, Language: lang, Function: &fn}
		if filter.Eval(s) == NoMatch {
			continue
		}
		out = append(out, fn)
	}
	return out, nil
}

type ListFilesUseCase struct {
	repo     HistoryRepository
	registry *languages.Registry
	ignore   *IgnoreMatcher
}

func NewListFilesUseCase(repo HistoryRepository, registry *languages.Registry, ignore *IgnoreMatcher) *ListFilesUseCase {
	return &ListFilesUseCase{repo: repo, registry: registry, ignore: ignore}
}

// Execute lists the parseable files at a commit that the target selects.
func (uc *ListFilesUseCase) Execute(ctx context.Context, input ListFilesInput) ([]string, error) {
	target := input.Target
	if target.Kind == "" {
		target.Kind = TargetAny
	}
	if err := target.validate(); err != nil {
		return nil, err
	}
	lang := input.Language
	if lang == "" {
		lang = languages.All
	}
	if lang != languages.All && !uc.registry.Supports(lang) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	filter := input.Filter
	if filter == nil {
		filter = True()
	}

	commit, err := uc.repo.CommitAt(ctx, input.Ref)
	if err != nil {
		return nil, err
	}
	files, err := uc.repo.ListFiles(ctx, commit)
	if err != nil {
		return nil, err
	}

	out := []string{}
	for _, f := range files {
		if !target.Matches(f) || !uc.registry.Accepts(f, lang) || uc.ignore.Match(f) {
			continue
		}
		detected, _ := languages.Detect(f)
		if filter.Eval(Subject{Commit: commit, Path: f, Language: detected}) == NoMatch {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

type ListCommitsUseCase struct {
	repo HistoryRepository
}

func NewListCommitsUseCase(repo HistoryRepository) *ListCommitsUseCase {
	return &ListCommitsUseCase{repo: repo}
}

// Execute walks the commits of a ref and keeps those the commit-level part
// of the filter accepts. Limit bounds the commits scanned, not the ones kept.
// Both is listed oldest first.
func (uc *ListCommitsUseCase) Execute(ctx context.Context, input ListCommitsInput, progress ProgressFunc) (*ListCommitsOutput, error) {
	if input.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidCommand)
	}
	dir, err := ParseDirection(string(input.Direction))
	if err != nil {
		return nil, err
	}
	if dir == Both {
		dir = OldestFirst
	}
	filter := input.Filter
	if filter == nil {
		filter = True()
	}

	seq, err := uc.repo.Commits(ctx, input.Ref, dir)
	if err != nil {
		return nil, err
	}

	out := &ListCommitsOutput{Commits: []Commit{}}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if input.Limit > 0 && out.Scanned >= input.Limit {
			out.Truncated = seq.Remaining() > 0
			break
		}
		c, err := seq.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		out.Scanned++
		if progress != nil {
			progress(Progress{Scanned: out.Scanned, Total: seq.Len(), Commit: c.Hash, Entries: len(out.Commits)})
		}
		if filter.Eval(Subject{Commit: c}) == NoMatch {
			continue
		}
		out.Commits = append(out.Commits, *c)
	}
	return out, nil
}

type UpdateFilterUseCase struct{}

func NewUpdateFilterUseCase() *UpdateFilterUseCase {
	return &UpdateFilterUseCase{}
}

func (uc *UpdateFilterUseCase) Execute(input UpdateFilterInput) (*FunctionHistory, error) {
	if input.History == nil {
		return nil, fmt.Errorf("%w: no history to filter", ErrInvalidCommand)
	}
	return input.History.Filter(input.Filter)
}

// UseCases groups the command handlers of one session and dispatches
// worker commands to them.
type UseCases struct {
	SearchHistory *SearchHistoryUseCase
	ListFunctions *ListFunctionsUseCase
	ListFiles     *ListFilesUseCase
	ListCommits   *ListCommitsUseCase
	UpdateFilter  *UpdateFilterUseCase

	// last is the most recent search result. Only the worker goroutine
	// touches it.
	last *FunctionHistory
}

func NewUseCases(repo HistoryRepository, registry *languages.Registry, ignore *IgnoreMatcher, resolver *Resolver) *UseCases {
	return &UseCases{
		SearchHistory: NewSearchHistoryUseCase(resolver),
		ListFunctions: NewListFunctionsUseCase(repo, registry),
		ListFiles:     NewListFilesUseCase(repo, registry, ignore),
		ListCommits:   NewListCommitsUseCase(repo),
		UpdateFilter:  NewUpdateFilterUseCase(),
	}
}

func (uc *UseCases) Handle(ctx context.Context, cmd Command, progress ProgressFunc) (*CommandResult, error) {
	switch cmd.Kind {
	case SearchHistory:
		h, err := uc.SearchHistory.Execute(ctx, cmd.Query(), progress)
		if err != nil {
			return nil, err
		}
		uc.last = h
		return &CommandResult{History: h, Truncated: h.Truncated}, nil

	case ListFunctions:
		if cmd.Target.Kind != TargetAbsolute && cmd.Target.Kind != "" {
			return nil, fmt.Errorf("%w: list-functions needs an absolute file target", ErrInvalidCommand)
		}
		fns, err := uc.ListFunctions.Execute(ctx, ListFunctionsInput{
			Path: cmd.Target.Path, Ref: cmd.Ref, Language: cmd.Language, Filter: cmd.Filter,
		})
		if err != nil {
			return nil, err
		}
		return &CommandResult{Functions: fns}, nil

	case ListFiles:
		files, err := uc.ListFiles.Execute(ctx, ListFilesInput{
			Target: cmd.Target, Ref: cmd.Ref, Language: cmd.Language, Filter: cmd.Filter,
		})
		if err != nil {
			return nil, err
		}
		return &CommandResult{Files: files}, nil

	case ListCommits:
		out, err := uc.ListCommits.Execute(ctx, ListCommitsInput{
			Ref: cmd.Ref, Direction: cmd.Direction, Filter: cmd.Filter, Limit: cmd.Limit,
		}, progress)
		if err != nil {
			return nil, err
		}
		return &CommandResult{Commits: out.Commits, Truncated: out.Truncated}, nil

	case UpdateFilter:
		history := cmd.History
		if history == nil {
			history = uc.last
		}
		h, err := uc.UpdateFilter.Execute(UpdateFilterInput{History: history, Filter: cmd.Filter})
		if err != nil {
			return nil, err
		}
		return &CommandResult{History: h}, nil
	}
	return nil, fmt.Errorf("%w: unknown command kind %q", ErrInvalidCommand, cmd.Kind)
}
