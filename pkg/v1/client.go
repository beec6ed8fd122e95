package v1

import (
	"context"
	"fmt"

	"github.com/4thel00z/fnhist/internal"
	"github.com/4thel00z/fnhist/internal/languages"
)

// Client provides programmatic access to function histories of one
// repository. Calls are served one at a time by a background worker.
type Client struct {
	session *internal.Session
}

// New opens the repository containing the configured directory. Project
// and global config files are honoured; options override them.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	resolver := internal.NewScopeResolver()
	conf, _, err := internal.LoadCascade(resolver.Cascade(cfg.dir))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if len(cfg.languages) > 0 {
		conf.Languages = cfg.languages
	}
	if cfg.queueSize > 0 {
		conf.Worker.QueueSize = cfg.queueSize
	}

	session, err := internal.OpenSession(cfg.dir, conf, cfg.logger)
	if err != nil {
		return nil, err
	}
	return &Client{session: session}, nil
}

// Root returns the repository root directory.
func (c *Client) Root() string {
	return c.session.Root()
}

// History returns every version of the function name.
func (c *Client) History(ctx context.Context, name string, opts ...QueryOption) (*History, error) {
	q := &queryConfig{}
	for _, opt := range opts {
		opt(q)
	}

	cmd := internal.Command{
		Kind:     internal.SearchHistory,
		Function: name,
		Parent:   q.parent,
		Limit:    q.limit,
		Ref:      q.ref,
	}
	var err error
	if cmd.Target, err = internal.ParseFileTarget(q.targetKind, q.path); err != nil {
		return nil, err
	}
	if cmd.Language, err = parseLanguage(q.language); err != nil {
		return nil, err
	}
	if cmd.Filter, err = internal.ParseFilters(q.filters); err != nil {
		return nil, err
	}
	if q.direction != "" {
		if cmd.Direction, err = internal.ParseDirection(q.direction); err != nil {
			return nil, err
		}
	}

	res, err := c.session.Run(ctx, cmd, nil)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", name, err)
	}
	return toHistory(res.History), nil
}

// Refilter applies filter expressions to the result of the last History
// call without walking the repository again.
func (c *Client) Refilter(ctx context.Context, exprs ...string) (*History, error) {
	filter, err := internal.ParseFilters(exprs)
	if err != nil {
		return nil, err
	}
	res, err := c.session.Run(ctx, internal.Command{Kind: internal.UpdateFilter, Filter: filter}, nil)
	if err != nil {
		return nil, fmt.Errorf("refilter: %w", err)
	}
	return toHistory(res.History), nil
}

// Functions lists the definitions in path at ref, or at HEAD when ref is
// empty.
func (c *Client) Functions(ctx context.Context, path, ref string, exprs ...string) ([]Function, error) {
	filter, err := internal.ParseFilters(exprs)
	if err != nil {
		return nil, err
	}
	res, err := c.session.Run(ctx, internal.Command{
		Kind:   internal.ListFunctions,
		Target: internal.AbsoluteFile(path),
		Ref:    ref,
		Filter: filter,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("functions: %w", err)
	}
	out := make([]Function, 0, len(res.Functions))
	for _, fn := range res.Functions {
		out = append(out, toFunction(fn))
	}
	return out, nil
}

// Files lists the parseable files at ref.
func (c *Client) Files(ctx context.Context, ref string, exprs ...string) ([]string, error) {
	filter, err := internal.ParseFilters(exprs)
	if err != nil {
		return nil, err
	}
	res, err := c.session.Run(ctx, internal.Command{Kind: internal.ListFiles, Ref: ref, Filter: filter}, nil)
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	return res.Files, nil
}

// Commits scans up to limit commits of ref in the configured direction and
// keeps those that pass the commit-level filters.
func (c *Client) Commits(ctx context.Context, ref string, limit int, exprs ...string) ([]Commit, error) {
	filter, err := internal.ParseFilters(exprs)
	if err != nil {
		return nil, err
	}
	res, err := c.session.Run(ctx, internal.Command{
		Kind:   internal.ListCommits,
		Ref:    ref,
		Limit:  limit,
		Filter: filter,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("commits: %w", err)
	}
	out := make([]Commit, 0, len(res.Commits))
	for _, cm := range res.Commits {
		out = append(out, toCommit(cm))
	}
	return out, nil
}

// Close stops the worker. Pending calls fail with a cancellation error.
func (c *Client) Close() error {
	return c.session.Close()
}

func parseLanguage(s string) (languages.Language, error) {
	lang, err := languages.FromString(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", internal.ErrUnsupportedLanguage, err)
	}
	return lang, nil
}
