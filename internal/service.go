package internal

import (
	"context"
	"fmt"

	"github.com/4thel00z/fnhist/internal/languages"
	"github.com/sirupsen/logrus"
)

// Session couples one repository with one worker. Every command submitted
// through a session runs against the same repository and configuration.
type Session struct {
	repo     *GitRepository
	config   *Config
	registry *languages.Registry
	ignore   *IgnoreMatcher
	worker   *Worker
	logger   *logrus.Logger
	priority Priority
}

// OpenSession opens the repository containing dir and starts a worker
// configured from cfg. A nil cfg means DefaultConfig.
func OpenSession(dir string, cfg *Config, logger *logrus.Logger) (*Session, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = DiscardLogger()
	}
	langs, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	priority, _ := ParsePriority(cfg.Worker.Priority)

	repo, err := OpenRepository(dir)
	if err != nil {
		return nil, err
	}
	ignore, err := NewIgnoreMatcher(Scope{Type: ScopeProject, Path: repo.Root()})
	if err != nil {
		return nil, fmt.Errorf("load ignore file: %w", err)
	}

	registry := languages.NewRegistry(enabledLanguages(langs)...)
	resolver := NewResolver(repo, registry, ignore, logger)
	handler := NewUseCases(repo, registry, ignore, resolver)

	logger.WithFields(logrus.Fields{
		"root":      repo.Root(),
		"languages": registry.Languages(),
		"ignored":   ignore.Len(),
	}).Debug("session opened")

	return &Session{
		repo:     repo,
		config:   cfg,
		registry: registry,
		ignore:   ignore,
		worker:   NewWorker(handler, cfg.Worker.QueueSize, logger),
		logger:   logger,
		priority: priority,
	}, nil
}

// enabledLanguages treats "all" anywhere in the list as every language.
func enabledLanguages(langs []languages.Language) []languages.Language {
	for _, l := range langs {
		if l == languages.All {
			return nil
		}
	}
	return langs
}

func (s *Session) Root() string                  { return s.repo.Root() }
func (s *Session) Config() *Config               { return s.config }
func (s *Session) Registry() *languages.Registry { return s.registry }
func (s *Session) Worker() *Worker               { return s.worker }
func (s *Session) Repository() HistoryRepository { return s.repo }

// Prepare fills the fields cmd leaves empty from the session configuration.
func (s *Session) Prepare(cmd Command) Command {
	h := s.config.History
	if cmd.Priority == "" {
		cmd.Priority = s.priority
	}
	if cmd.Ref == "" {
		cmd.Ref = h.Ref
	}
	switch cmd.Kind {
	case SearchHistory, ListCommits:
		if cmd.Direction == "" {
			cmd.Direction, _ = ParseDirection(h.Direction)
		}
		if cmd.Limit == 0 {
			cmd.Limit = h.MaxCommits
		}
		cmd.KeepDuplicates = cmd.KeepDuplicates || h.KeepDuplicates
	}
	return cmd
}

// Submit queues cmd on the session worker without waiting.
func (s *Session) Submit(cmd Command) (string, error) {
	return s.worker.Submit(s.Prepare(cmd))
}

// Run submits cmd and blocks until its result arrives. Status events are
// passed to onStatus when it is non-nil. A cancelled command returns
// context.Canceled; a failed one returns its result together with the error.
// Run consumes the worker's events, so it must not be mixed with Poll.
func (s *Session) Run(ctx context.Context, cmd Command, onStatus func(Status)) (*CommandResult, error) {
	id, err := s.Submit(cmd)
	if err != nil {
		return nil, err
	}
	for {
		if err := ctx.Err(); err != nil {
			_ = s.worker.Cancel(id)
			return nil, err
		}
		ev, err := s.worker.Wait(ctx)
		if err != nil {
			_ = s.worker.Cancel(id)
			return nil, err
		}
		if ev.Status != nil {
			if onStatus != nil {
				onStatus(*ev.Status)
			}
			if ev.Status.ID == id && ev.Status.State == StateCancelled {
				return nil, context.Canceled
			}
			continue
		}
		if ev.Result == nil || ev.Result.ID != id {
			continue
		}
		return ev.Result, ev.Result.Err
	}
}

func (s *Session) Close() error {
	return s.worker.Close()
}
