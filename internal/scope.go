package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

type ScopeType string

const (
	ScopeGlobal  ScopeType = "global"
	ScopeProject ScopeType = "project"
)

const (
	ProjectConfigName = ".fnhist.yaml"
	globalDirName     = ".fnhist"
)

var errNoRepository = errors.New("no git repository found")

type Scope struct {
	Type ScopeType
	Path string // repository root for project scope, home for global
}

func (s Scope) ConfigPath() string {
	if s.Type == ScopeProject {
		return filepath.Join(s.Path, ProjectConfigName)
	}
	return filepath.Join(s.Path, globalDirName, "config.yaml")
}

func (s Scope) IgnorePath() string {
	return filepath.Join(s.Path, IgnoreFilename)
}

type ScopeResolver struct {
	homeDir string
}

func NewScopeResolver() *ScopeResolver {
	home, _ := os.UserHomeDir()
	return &ScopeResolver{homeDir: home}
}

func (r *ScopeResolver) Global() Scope {
	return Scope{Type: ScopeGlobal, Path: r.homeDir}
}

// Project returns the scope of the repository containing dir.
func (r *ScopeResolver) Project(dir string) (Scope, bool) {
	root, err := r.FindRepository(dir)
	if err != nil {
		return Scope{}, false
	}
	return Scope{Type: ScopeProject, Path: root}, true
}

// FindRepository walks up from dir to the nearest repository root. A
// directory is a root when it holds .git or is itself a bare repository.
func (r *ScopeResolver) FindRepository(dir string) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		dir = cwd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}

	for current := abs; ; {
		if exists(filepath.Join(current, ".git")) || isBare(current) {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("%w: %s", errNoRepository, abs)
		}
		current = parent
	}
}

// Cascade lists scopes from most to least specific.
func (r *ScopeResolver) Cascade(dir string) []Scope {
	scopes := []Scope{}
	if scope, ok := r.Project(dir); ok {
		scopes = append(scopes, scope)
	}
	scopes = append(scopes, r.Global())
	return scopes
}

func (r *ScopeResolver) EnvVars(scope Scope, version string) map[string]string {
	bin, _ := os.Executable()
	return map[string]string{
		"FNHIST_SCOPE":   string(scope.Type),
		"FNHIST_ROOT":    scope.Path,
		"FNHIST_CONFIG":  scope.ConfigPath(),
		"FNHIST_VERSION": version,
		"FNHIST_BIN":     bin,
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isBare(dir string) bool {
	head, err := os.Stat(filepath.Join(dir, "HEAD"))
	if err != nil || head.IsDir() {
		return false
	}
	objects, err := os.Stat(filepath.Join(dir, "objects"))
	return err == nil && objects.IsDir()
}
