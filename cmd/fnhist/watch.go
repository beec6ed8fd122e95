package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/4thel00z/fnhist/internal"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func NewWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <function>",
		Short: "Re-run a search whenever refs change",
		Long: `Run a search, then watch HEAD and the refs of the repository and run it
again after every commit, checkout or fetch. A new run cancels one still
in progress.`,
		Args: cobra.ExactArgs(1),
		RunE: makeWatchRunner(a),
	}

	addQueryFlags(cmd)
	cmd.Flags().Duration("debounce", 500*time.Millisecond, "Debounce window for batching ref changes")
	return cmd
}

func makeWatchRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		debounce, _ := cmd.Flags().GetDuration("debounce")
		asJSON, _ := cmd.Flags().GetBool("json")

		query, err := queryCommand(cmd, args[0])
		if err != nil {
			return err
		}
		query.Priority = internal.PriorityInteractive

		s, err := a.session(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		gitDir := gitDirOf(s.Root())
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer watcher.Close()

		if err := addRefDirs(watcher, gitDir); err != nil {
			return fmt.Errorf("add watch dirs: %w", err)
		}

		if _, err := s.Submit(query); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for ref changes...\n", gitDir)

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			return watchRefs(ctx, watcher, gitDir, debounce, func() error {
				_, err := s.Submit(query)
				return err
			}, cmd.ErrOrStderr())
		})
		g.Go(func() error {
			return pumpResults(ctx, cmd, s.Worker(), asJSON)
		})

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}

// watchRefs calls rerun once per burst of ref changes.
func watchRefs(ctx context.Context, watcher *fsnotify.Watcher, gitDir string, debounce time.Duration, rerun func() error, errOut io.Writer) error {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			if !isRefEvent(event, gitDir) {
				continue
			}
			if !pending {
				timer.Reset(debounce)
				pending = true
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(errOut, "watch error: %v\n", err)
		case <-timer.C:
			pending = false
			if err := rerun(); err != nil {
				return err
			}
		}
	}
}

// pumpResults prints each search result as the worker delivers it.
func pumpResults(ctx context.Context, cmd *cobra.Command, w *internal.Worker, asJSON bool) error {
	for {
		ev, err := w.Wait(ctx)
		if err != nil {
			return err
		}
		res := ev.Result
		if res == nil {
			continue
		}
		if res.Failed() {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %v\n", time.Now().Format("15:04:05"), res.Err)
			continue
		}
		if asJSON {
			if err := writeJSON(cmd, res.History); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "--- %s\n", time.Now().Format("15:04:05"))
		printHistory(cmd.OutOrStdout(), res.History, historyView{})
	}
}

// gitDirOf returns the directory holding HEAD and refs for a repository
// root, which is the root itself for a bare repository.
func gitDirOf(root string) string {
	dotGit := filepath.Join(root, ".git")
	if info, err := os.Stat(dotGit); err == nil && info.IsDir() {
		return dotGit
	}
	return root
}

func addRefDirs(watcher *fsnotify.Watcher, gitDir string) error {
	if err := watcher.Add(gitDir); err != nil {
		return err
	}
	refs := filepath.Join(gitDir, "refs")
	return filepath.Walk(refs, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

// isRefEvent reports whether event moved HEAD or a ref.
func isRefEvent(event fsnotify.Event, gitDir string) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if strings.HasSuffix(event.Name, ".lock") {
		return false
	}

	rel, err := filepath.Rel(gitDir, event.Name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	switch {
	case rel == "HEAD", rel == "packed-refs":
		return true
	case strings.HasPrefix(rel, "refs/"):
		return true
	}
	return false
}
