package internal

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScopeConfigPath(t *testing.T) {
	project := Scope{Type: ScopeProject, Path: "/work/repo"}
	if got := project.ConfigPath(); got != "/work/repo/.fnhist.yaml" {
		t.Errorf("project config = %q", got)
	}

	global := Scope{Type: ScopeGlobal, Path: "/home/user"}
	if got := global.ConfigPath(); got != "/home/user/.fnhist/config.yaml" {
		t.Errorf("global config = %q", got)
	}
}

func TestScopeResolverGlobal(t *testing.T) {
	resolver := NewScopeResolver()
	scope := resolver.Global()

	if scope.Type != ScopeGlobal {
		t.Errorf("expected ScopeGlobal, got %q", scope.Type)
	}
	home, _ := os.UserHomeDir()
	if scope.Path != home {
		t.Errorf("expected Path %q, got %q", home, scope.Path)
	}
}

func TestFindRepositoryNotFound(t *testing.T) {
	tmp := t.TempDir()

	resolver := NewScopeResolver()
	if _, err := resolver.FindRepository(tmp); err == nil {
		t.Error("expected an error outside of any repository")
	}
	if _, found := resolver.Project(tmp); found {
		t.Error("expected Project to report no repository")
	}
}

func TestFindRepositoryInParent(t *testing.T) {
	tmp := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmp, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(tmp, "src", "pkg")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	resolver := NewScopeResolver()
	root, err := resolver.FindRepository(sub)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if root != tmp {
		t.Errorf("root = %q, want %q", root, tmp)
	}
}

func TestFindRepositoryBare(t *testing.T) {
	tmp := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmp, "HEAD"), []byte("ref: refs/heads/main\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(tmp, "objects"), 0755); err != nil {
		t.Fatal(err)
	}

	root, err := NewScopeResolver().FindRepository(tmp)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if root != tmp {
		t.Errorf("root = %q, want %q", root, tmp)
	}
}

func TestScopeResolverCascade(t *testing.T) {
	tmp := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmp, ".git"), 0755); err != nil {
		t.Fatal(err)
	}

	scopes := NewScopeResolver().Cascade(tmp)
	if len(scopes) != 2 {
		t.Fatalf("expected 2 scopes, got %d", len(scopes))
	}
	if scopes[0].Type != ScopeProject {
		t.Errorf("expected first scope to be ScopeProject, got %q", scopes[0].Type)
	}
	if scopes[1].Type != ScopeGlobal {
		t.Errorf("expected second scope to be ScopeGlobal, got %q", scopes[1].Type)
	}
}

func TestScopeResolverEnvVars(t *testing.T) {
	scope := Scope{Type: ScopeProject, Path: "/project"}
	env := NewScopeResolver().EnvVars(scope, "1.0.0")

	if env["FNHIST_SCOPE"] != "project" {
		t.Errorf("expected FNHIST_SCOPE=project, got %q", env["FNHIST_SCOPE"])
	}
	if env["FNHIST_ROOT"] != "/project" {
		t.Errorf("expected FNHIST_ROOT=/project, got %q", env["FNHIST_ROOT"])
	}
	if env["FNHIST_VERSION"] != "1.0.0" {
		t.Errorf("expected FNHIST_VERSION=1.0.0, got %q", env["FNHIST_VERSION"])
	}
	if env["FNHIST_CONFIG"] != "/project/.fnhist.yaml" {
		t.Errorf("expected FNHIST_CONFIG=/project/.fnhist.yaml, got %q", env["FNHIST_CONFIG"])
	}
}
