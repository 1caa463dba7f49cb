package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"linttrack/internal/errors"
)

func TestFileExtension(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{filepath.Join("src", "main.c"), "c"},
		{filepath.Join("include", "util.HPP"), "HPP"},
		{"Makefile", ""},
		{filepath.Join("dir.d", "noext"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			f := File{RelativePath: tt.path}
			if got := f.Extension(); got != tt.want {
				t.Errorf("Extension() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProjectKeys(t *testing.T) {
	p := Project{ID: "core"}
	if p.LocalModuleKey() != "core" || p.RemoteModuleKey() != "core" {
		t.Errorf("keys should fall back to ID, got %q/%q", p.LocalModuleKey(), p.RemoteModuleKey())
	}

	p.ModuleKey = "local-core"
	p.ServerModuleKey = "org:core"
	if p.LocalModuleKey() != "local-core" {
		t.Errorf("LocalModuleKey() = %q", p.LocalModuleKey())
	}
	if p.RemoteModuleKey() != "org:core" {
		t.Errorf("RemoteModuleKey() = %q", p.RemoteModuleKey())
	}
}

func TestProjectRoot(t *testing.T) {
	root := t.TempDir()
	rel := Project{Path: "libs/core"}
	if got := rel.Root(root); got != filepath.Join(root, "libs", "core") {
		t.Errorf("Root() = %q", got)
	}
	abs := Project{Path: root}
	if got := abs.Root("/elsewhere"); got != root {
		t.Errorf("Root() for absolute path = %q, want %q", got, root)
	}
}

func TestBindingsRoundTrip(t *testing.T) {
	root := t.TempDir()

	empty, err := LoadBindings(root)
	if err != nil {
		t.Fatalf("LoadBindings on missing file: %v", err)
	}
	if len(empty.Projects) != 0 {
		t.Errorf("expected no projects, got %d", len(empty.Projects))
	}

	if err := empty.AddProject(Project{ID: "core", Name: "Core", Path: "core", ServerModuleKey: "org:core", VCS: "git"}); err != nil {
		t.Fatalf("AddProject: %v", err)
	}
	if err := empty.AddProject(Project{ID: "core", Path: "other"}); err == nil {
		t.Error("AddProject should reject duplicate IDs")
	}
	if err := empty.AddProject(Project{ID: "other", Path: "core"}); err == nil {
		t.Error("AddProject should reject duplicate paths")
	}
	if err := empty.Save(root); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadBindings(root)
	if err != nil {
		t.Fatalf("LoadBindings: %v", err)
	}
	p, ok := loaded.Find("Core")
	if !ok {
		t.Fatal("Find by name failed")
	}
	if p.ServerModuleKey != "org:core" || p.VCS != "git" {
		t.Errorf("round-tripped project = %+v", p)
	}
}

func TestLoadBindingsRejectsDuplicates(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".linttrack")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	content := "version = 1\n[[project]]\nid = \"a\"\npath = \"a\"\n[[project]]\nid = \"a\"\npath = \"b\"\n"
	if err := os.WriteFile(filepath.Join(dir, BindingsFile), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadBindings(root)
	if !errors.Is(err, errors.ConfigInvalid) {
		t.Errorf("expected CONFIG_INVALID, got %v", err)
	}
}

func TestDefaultRegistry(t *testing.T) {
	r, err := NewRegistry(DefaultLanguages())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	tests := []struct {
		name     string
		wantType string
		wantLang string
	}{
		{"main.c", "c.source", "c"},
		{"util.H", "c.header", "c"},
		{"widget.cpp", "cxx.source", "cpp"},
		{"widget.hxx", "cxx.header", "cpp"},
		{"README.md", "", ""},
		{"Makefile", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct := r.ContentTypeOf(tt.name)
			if ct != tt.wantType {
				t.Errorf("ContentTypeOf(%q) = %q, want %q", tt.name, ct, tt.wantType)
			}
			lang, ok := r.LanguageOf(ct)
			if tt.wantLang == "" {
				if ok {
					t.Errorf("LanguageOf(%q) should not resolve", ct)
				}
				return
			}
			if lang.Name != tt.wantLang {
				t.Errorf("LanguageOf(%q) = %q, want %q", ct, lang.Name, tt.wantLang)
			}
		})
	}
}

func TestNewRegistryValidation(t *testing.T) {
	tests := []struct {
		name string
		decl *LanguagesFile
	}{
		{
			name: "extension declared twice",
			decl: &LanguagesFile{ContentTypes: []ContentTypeDeclaration{
				{ID: "a", Extensions: []string{"x"}},
				{ID: "b", Extensions: []string{".X"}},
			}},
		},
		{
			name: "unknown content type",
			decl: &LanguagesFile{Languages: []LanguageDeclaration{
				{Name: "go", SuffixesKey: "k", ContentTypes: []string{"go.source"}},
			}},
		},
		{
			name: "missing suffixes key",
			decl: &LanguagesFile{
				ContentTypes: []ContentTypeDeclaration{{ID: "a", Extensions: []string{"a"}}},
				Languages:    []LanguageDeclaration{{Name: "a", ContentTypes: []string{"a"}}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.decl); !errors.Is(err, errors.ConfigInvalid) {
				t.Errorf("expected CONFIG_INVALID, got %v", err)
			}
		})
	}
}

func TestLoadRegistryFromFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".linttrack")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	content := `version = 1

[[content_type]]
id = "go.source"
extensions = ["go"]

[[language]]
name = "go"
suffixes_key = "analysis.go.file.suffixes"
content_types = ["go.source"]
`
	if err := os.WriteFile(filepath.Join(dir, LanguagesDeclarationFile), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	r, err := LoadRegistry(root)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	f := r.Classify("p", filepath.Join("cmd", "main.go"))
	if f.ContentType != "go.source" {
		t.Errorf("Classify().ContentType = %q, want go.source", f.ContentType)
	}
	if r.ContentTypeOf("main.c") != "" {
		t.Error("declarations file should replace the defaults")
	}
}
