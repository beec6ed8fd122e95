package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/4thel00z/fnhist/internal/languages"
	"github.com/sirupsen/logrus"
)

type FileTargetKind string

const (
	TargetAbsolute  FileTargetKind = "absolute"
	TargetRelative  FileTargetKind = "relative"
	TargetDirectory FileTargetKind = "directory"
	TargetAny       FileTargetKind = "any"
)

// FileTarget selects the files searched at each commit. Absolute names one
// path from the repository root, Relative matches any path ending in Path,
// Directory matches every file below Path and Any matches all files.
type FileTarget struct {
	Kind FileTargetKind `json:"kind"`
	Path string         `json:"path,omitempty"`
}

func AbsoluteFile(path string) FileTarget { return FileTarget{Kind: TargetAbsolute, Path: cleanPath(path)} }
func RelativeFile(path string) FileTarget { return FileTarget{Kind: TargetRelative, Path: cleanPath(path)} }
func InDirectory(path string) FileTarget  { return FileTarget{Kind: TargetDirectory, Path: cleanPath(path)} }
func AnyFile() FileTarget                 { return FileTarget{Kind: TargetAny} }

func ParseFileTarget(kind, path string) (FileTarget, error) {
	switch FileTargetKind(strings.ToLower(kind)) {
	case TargetAbsolute, "abs", "file":
		return AbsoluteFile(path), nil
	case TargetRelative, "rel":
		return RelativeFile(path), nil
	case TargetDirectory, "dir":
		return InDirectory(path), nil
	case TargetAny, "", "none":
		if path != "" {
			return AbsoluteFile(path), nil
		}
		return AnyFile(), nil
	}
	return FileTarget{}, fmt.Errorf("%w: unknown file target %q", ErrInvalidCommand, kind)
}

func (t FileTarget) Matches(path string) bool {
	path = cleanPath(path)
	switch t.Kind {
	case TargetAbsolute:
		return path == t.Path
	case TargetRelative:
		return path == t.Path || strings.HasSuffix(path, "/"+t.Path)
	case TargetDirectory:
		return inDirectory(path, t.Path)
	}
	return true
}

func (t FileTarget) validate() error {
	switch t.Kind {
	case TargetAbsolute, TargetRelative, TargetDirectory:
		if t.Path == "" {
			return fmt.Errorf("%w: %s target needs a path", ErrInvalidCommand, t.Kind)
		}
	case TargetAny, "":
	default:
		return fmt.Errorf("%w: unknown file target %q", ErrInvalidCommand, t.Kind)
	}
	return nil
}

func (t FileTarget) String() string {
	if t.Kind == TargetAny || t.Kind == "" {
		return "any file"
	}
	return fmt.Sprintf("%s %s", t.Kind, t.Path)
}

// Query describes one function-history search.
type Query struct {
	Name           string             `json:"name"`
	Target         FileTarget         `json:"target"`
	Language       languages.Language `json:"language,omitempty"`
	Parent         string             `json:"parent,omitempty"`
	Filter         Filter             `json:"-"`
	Direction      Direction          `json:"direction,omitempty"`
	Limit          int                `json:"limit,omitempty"`
	Ref            string             `json:"ref,omitempty"`
	KeepDuplicates bool               `json:"keep_duplicates,omitempty"`
}

type Progress struct {
	Scanned int    `json:"scanned"`
	Total   int    `json:"total"`
	Commit  string `json:"commit"`
	Entries int    `json:"entries"`
}

type ProgressFunc func(Progress)

// Resolver reconstructs function histories. It holds no per-query state,
// so one Resolver can serve queries one after another.
type Resolver struct {
	repo     HistoryRepository
	registry *languages.Registry
	ignore   *IgnoreMatcher
	logger   *logrus.Logger
}

func NewResolver(repo HistoryRepository, registry *languages.Registry, ignore *IgnoreMatcher, logger *logrus.Logger) *Resolver {
	if registry == nil {
		registry = languages.NewRegistry()
	}
	if logger == nil {
		logger = DiscardLogger()
	}
	return &Resolver{repo: repo, registry: registry, ignore: ignore, logger: logger}
}

// Validate normalises q and rejects it before any repository work.
func (r *Resolver) Validate(q *Query) error {
	q.Name = strings.TrimSpace(q.Name)
	if q.Name == "" {
		return fmt.Errorf("%w: function name is empty", ErrInvalidCommand)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", ErrInvalidCommand)
	}
	if q.Direction == "" {
		q.Direction = OldestFirst
	}
	if _, err := ParseDirection(string(q.Direction)); err != nil {
		return err
	}
	if q.Target.Kind == "" {
		q.Target.Kind = TargetAny
	}
	if err := q.Target.validate(); err != nil {
		return err
	}
	if q.Filter == nil {
		q.Filter = True()
	}

	if q.Language == "" {
		q.Language = languages.All
	}
	if q.Language != languages.All && !r.registry.Supports(q.Language) {
		return fmt.Errorf("%w: %s", ErrUnsupportedLanguage, q.Language)
	}
	if q.Target.Kind == TargetAbsolute {
		if _, err := r.registry.Resolve(q.Target.Path, q.Language); err != nil {
			return fmt.Errorf("%w: %s", ErrUnsupportedLanguage, q.Target.Path)
		}
	}
	for _, lang := range Languages(q.Filter) {
		if !r.registry.Supports(lang) {
			return fmt.Errorf("%w: filter on %s", ErrUnsupportedLanguage, lang)
		}
	}
	return nil
}

// Resolve walks the commits reachable from q.Ref and returns the history
// of q.Name. Cancellation is checked between commits.
func (r *Resolver) Resolve(ctx context.Context, q Query, progress ProgressFunc) (*FunctionHistory, error) {
	if err := r.Validate(&q); err != nil {
		return nil, err
	}
	log := r.logger.WithFields(logrus.Fields{"function": q.Name, "target": q.Target.String(), "direction": q.Direction})
	log.Debug("resolving history")

	visited := map[string]bool{}
	var (
		h     *FunctionHistory
		stats runStats
		err   error
	)
	if q.Direction == Both {
		forward, fs, ferr := r.run(ctx, q, OldestFirst, progress, visited)
		if ferr != nil {
			return nil, ferr
		}
		backward, bs, berr := r.run(ctx, q, NewestFirst, progress, visited)
		if berr != nil {
			return nil, berr
		}
		h = mergeHistories(forward, backward, q.KeepDuplicates)
		stats = runStats{reads: fs.reads + bs.reads, found: fs.found || bs.found, total: fs.total}
		// Each half may stop at the limit while the other covers the rest.
		h.Truncated = len(visited) < stats.total
	} else {
		h, stats, err = r.run(ctx, q, q.Direction, progress, visited)
		if err != nil {
			return nil, err
		}
	}
	h.Scanned = len(visited)

	log.WithFields(logrus.Fields{"scanned": h.Scanned, "entries": h.Len(), "tracks": len(h.Tracks)}).Debug("resolved history")

	if q.Target.Kind == TargetAbsolute && stats.reads > 0 && !stats.found && !h.Truncated {
		return nil, fmt.Errorf("%w: %s was never present", ErrFileNotFound, q.Target.Path)
	}
	if h.Len() == 0 {
		if h.Truncated {
			return h, nil
		}
		return nil, fmt.Errorf("%w: %s in %s", ErrFunctionNotFound, q.Name, q.Target)
	}
	return h, nil
}

type runStats struct {
	reads int
	found bool
	total int
}

func (r *Resolver) run(ctx context.Context, q Query, dir Direction, progress ProgressFunc, visited map[string]bool) (*FunctionHistory, runStats, error) {
	var stats runStats

	seq, err := r.repo.Commits(ctx, q.Ref, dir)
	if err != nil {
		return nil, stats, err
	}
	stats.total = seq.Len()

	h := &FunctionHistory{Name: q.Name, Language: q.Language, Direction: dir}
	tracks := map[string]int{}
	scanned := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		if q.Limit > 0 && scanned >= q.Limit {
			h.Truncated = seq.Remaining() > 0
			break
		}

		commit, err := seq.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, err
		}
		scanned++
		visited[commit.Hash] = true
		if progress != nil {
			progress(Progress{Scanned: scanned, Total: seq.Len(), Commit: commit.Hash, Entries: h.Len()})
		}

		if q.Filter.Eval(Subject{Commit: commit}) == NoMatch {
			continue
		}

		paths, err := r.candidates(ctx, commit, q)
		if err != nil {
			if ctx.Err() != nil {
				return nil, stats, ctx.Err()
			}
			h.Gaps = append(h.Gaps, Gap{Commit: *commit, Reason: ReasonOf(err)})
			continue
		}

		for _, path := range paths {
			r.visit(ctx, q, commit, path, h, tracks, &stats)
		}
	}

	h.Scanned = scanned
	return h, stats, nil
}

// candidates lists the paths examined at commit. An absolute target is read
// directly; other targets list the tree and skip ignored paths.
func (r *Resolver) candidates(ctx context.Context, commit *Commit, q Query) ([]string, error) {
	if q.Target.Kind == TargetAbsolute {
		return []string{q.Target.Path}, nil
	}

	files, err := r.repo.ListFiles(ctx, commit)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, f := range files {
		if !q.Target.Matches(f) || !r.registry.Accepts(f, q.Language) || r.ignore.Match(f) {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *Resolver) visit(ctx context.Context, q Query, commit *Commit, path string, h *FunctionHistory, tracks map[string]int, stats *runStats) {
	absolute := q.Target.Kind == TargetAbsolute
	log := r.logger.WithFields(logrus.Fields{"commit": commit.ShortHash(), "path": path})

	lang, err := r.registry.Resolve(path, q.Language)
	if err != nil {
		return
	}
	if q.Filter.Eval(Subject{Commit: commit, Path: path, Language: lang}) == NoMatch {
		return
	}

	stats.reads++
	data, err := r.repo.ReadFile(ctx, commit, path)
	if errors.Is(err, ErrFileNotFound) {
		if absolute {
			h.Gaps = append(h.Gaps, Gap{Commit: *commit, Path: path, Reason: ErrFileNotFound})
		}
		return
	}
	if err != nil {
		log.WithError(err).Debug("read failed")
		h.Gaps = append(h.Gaps, Gap{Commit: *commit, Path: path, Reason: ReasonOf(err)})
		return
	}
	stats.found = true

	file, err := languages.Parse(path, data, lang)
	if err != nil {
		log.WithError(err).Debug("parse failed")
		h.Gaps = append(h.Gaps, Gap{Commit: *commit, Path: path, Reason: ErrParseFailure})
		return
	}

	matches := r.match(file, q, commit)
	if len(matches) == 0 {
		if absolute {
			h.Gaps = append(h.Gaps, Gap{Commit: *commit, Path: path, Reason: ErrFunctionNotFound})
		}
		return
	}

	for _, fn := range matches {
		record(h, tracks, commit, path, fn, q.KeepDuplicates)
	}
}

// match finds the definitions of q.Name in file. With a parent given, exact
// parent paths win over suffix matches such as "Inner" for "Outer.Inner".
func (r *Resolver) match(file *languages.File, q Query, commit *Commit) []languages.Function {
	named := file.Find(q.Name)

	if q.Parent != "" {
		var exact, partial []languages.Function
		for _, fn := range named {
			switch {
			case fn.ParentPath() == q.Parent:
				exact = append(exact, fn)
			case parentSuffix(fn, q.Parent):
				partial = append(partial, fn)
			}
		}
		named = exact
		if len(named) == 0 {
			named = partial
		}
	}

	var out []languages.Function
	for _, fn := range named {
		s := Subject{Commit: commit, Path: file.Path, Language: file.Language, Function: &fn}
		if q.Filter.Eval(s) == NoMatch {
			continue
		}
		out = append(out, fn)
	}
	return out
}

func parentSuffix(fn languages.Function, parent string) bool {
	for i := range fn.Parents {
		if fn.Parents[i].Name == parent {
			return true
		}
		tail := languages.Function{Lang: fn.Lang, Parents: fn.Parents[i:]}
		if tail.ParentPath() == parent {
			return true
		}
	}
	return false
}

// record appends fn to its track unless its body equals the track's last
// surviving entry.
func record(h *FunctionHistory, tracks map[string]int, commit *Commit, path string, fn languages.Function, keepDuplicates bool) {
	t := Track{Key: fn.Key(), Path: path}
	i, ok := tracks[t.ID()]
	if !ok {
		i = len(h.Tracks)
		tracks[t.ID()] = i
		h.Tracks = append(h.Tracks, t)
	}

	track := &h.Tracks[i]
	if last, ok := track.Latest(); ok && !keepDuplicates && last.Function.Body == fn.Body {
		return
	}
	track.Entries = append(track.Entries, Entry{Commit: *commit, Path: path, Function: fn})
}
