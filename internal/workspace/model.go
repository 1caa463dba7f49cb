// Package workspace models the local workspace: projects bound to server
// modules, the files they own and how files are classified into content types.
package workspace

import (
	"path/filepath"
	"strings"
)

// Project is a local workspace unit bound to a module on the issue server.
type Project struct {
	// ID is the unique, stable project identifier
	ID string `toml:"id" json:"id"`

	// Name is the human-friendly name
	Name string `toml:"name" json:"name"`

	// Path is the project root, absolute or relative to the workspace root
	Path string `toml:"path" json:"path"`

	// ModuleKey identifies the project's issue store in the local tracker registry
	ModuleKey string `toml:"module_key" json:"moduleKey"`

	// ServerModuleKey is the module key known by the remote issue server
	ServerModuleKey string `toml:"server_module_key,omitempty" json:"serverModuleKey,omitempty"`

	// VCS names the synchronization provider ("git"), empty when the project is not versioned
	VCS string `toml:"vcs,omitempty" json:"vcs,omitempty"`
}

// Root resolves the project directory against the workspace root.
func (p Project) Root(workspaceRoot string) string {
	if filepath.IsAbs(p.Path) {
		return filepath.Clean(p.Path)
	}
	return filepath.Join(workspaceRoot, p.Path)
}

// LocalModuleKey returns ModuleKey, falling back to the project ID.
func (p Project) LocalModuleKey() string {
	if p.ModuleKey != "" {
		return p.ModuleKey
	}
	return p.ID
}

// RemoteModuleKey returns ServerModuleKey, falling back to the local module key.
func (p Project) RemoteModuleKey() string {
	if p.ServerModuleKey != "" {
		return p.ServerModuleKey
	}
	return p.LocalModuleKey()
}

// File is a reference to a file inside a project. It is a value type and is
// not modified after classification.
type File struct {
	ProjectID    string `json:"projectId"`
	RelativePath string `json:"path"` // OS-specific, relative to the project root
	ContentType  string `json:"contentType,omitempty"`
}

// Name returns the base name of the file.
func (f File) Name() string {
	return filepath.Base(f.RelativePath)
}

// Extension returns the extension without the leading dot, or "" when the
// file has none.
func (f File) Extension() string {
	ext := filepath.Ext(f.Name())
	return strings.TrimPrefix(ext, ".")
}
