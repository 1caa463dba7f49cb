package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"linttrack/internal/errors"
)

// BindingsFile is the file, under the .linttrack directory, listing workspace projects.
const BindingsFile = "workspace.toml"

// Bindings is the root structure of workspace.toml
type Bindings struct {
	Version  int       `toml:"version"`
	Projects []Project `toml:"project"`
}

// BindingsPath returns the path of the bindings file for a workspace root.
func BindingsPath(root string) string {
	return filepath.Join(root, ".linttrack", BindingsFile)
}

// LoadBindings reads workspace.toml. A missing file yields empty bindings.
func LoadBindings(root string) (*Bindings, error) {
	path := BindingsPath(root)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Bindings{Version: 1}, nil
	}

	var b Bindings
	if _, err := toml.DecodeFile(path, &b); err != nil {
		return nil, errors.New(errors.ConfigInvalid, "failed to parse "+BindingsFile, err)
	}
	if b.Version < 1 {
		b.Version = 1
	}

	seen := make(map[string]bool, len(b.Projects))
	for _, p := range b.Projects {
		if p.ID == "" {
			return nil, errors.New(errors.ConfigInvalid, "project entry missing required 'id' field", nil)
		}
		if seen[p.ID] {
			return nil, errors.New(errors.ConfigInvalid, fmt.Sprintf("duplicate project id %q", p.ID), nil)
		}
		seen[p.ID] = true
	}
	return &b, nil
}

// Save writes the bindings to workspace.toml, creating .linttrack if needed.
func (b *Bindings) Save(root string) error {
	path := BindingsPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", BindingsFile, err)
	}
	defer func() { _ = f.Close() }()

	if err := toml.NewEncoder(f).Encode(b); err != nil {
		return fmt.Errorf("failed to encode %s: %w", BindingsFile, err)
	}
	return nil
}

// AddProject appends a project, rejecting duplicate IDs and paths.
func (b *Bindings) AddProject(p Project) error {
	if p.ID == "" {
		return errors.New(errors.ConfigInvalid, "project id is required", nil)
	}
	for _, existing := range b.Projects {
		if existing.ID == p.ID {
			return fmt.Errorf("project with ID %q already exists", p.ID)
		}
		if existing.Path == p.Path {
			return fmt.Errorf("project at path %q already exists (as %q)", p.Path, existing.ID)
		}
	}
	b.Projects = append(b.Projects, p)
	return nil
}

// Find looks a project up by ID, then by name.
func (b *Bindings) Find(idOrName string) (Project, bool) {
	for _, p := range b.Projects {
		if p.ID == idOrName {
			return p, true
		}
	}
	for _, p := range b.Projects {
		if p.Name == idOrName {
			return p, true
		}
	}
	return Project{}, false
}
