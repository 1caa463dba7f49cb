package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"linttrack/internal/errors"
)

// LanguagesDeclarationFile is the default filename for content-type and language declarations
const LanguagesDeclarationFile = "languages.toml"

// ContentTypeDeclaration maps file extensions to a content type id.
type ContentTypeDeclaration struct {
	ID         string   `toml:"id"`
	Extensions []string `toml:"extensions"`
}

// LanguageDeclaration groups content types analyzed as one language.
type LanguageDeclaration struct {
	// Name is the language name ("c", "cpp")
	Name string `toml:"name"`

	// SuffixesKey is the analyzer property receiving the suffixes seen for this language
	SuffixesKey string `toml:"suffixes_key"`

	// ContentTypes are the content type ids belonging to the language
	ContentTypes []string `toml:"content_types"`
}

// LanguagesFile represents the root structure of languages.toml
type LanguagesFile struct {
	Version      int                      `toml:"version"`
	ContentTypes []ContentTypeDeclaration `toml:"content_type"`
	Languages    []LanguageDeclaration    `toml:"language"`
}

// DefaultLanguages declares the C and C++ content types.
func DefaultLanguages() *LanguagesFile {
	return &LanguagesFile{
		Version: 1,
		ContentTypes: []ContentTypeDeclaration{
			{ID: "c.header", Extensions: []string{"h"}},
			{ID: "c.source", Extensions: []string{"c"}},
			{ID: "cxx.header", Extensions: []string{"hpp", "hh", "hxx"}},
			{ID: "cxx.source", Extensions: []string{"cpp", "cc", "cxx"}},
		},
		Languages: []LanguageDeclaration{
			{Name: "c", SuffixesKey: "analysis.c.file.suffixes", ContentTypes: []string{"c.header", "c.source"}},
			{Name: "cpp", SuffixesKey: "analysis.cpp.file.suffixes", ContentTypes: []string{"cxx.header", "cxx.source"}},
		},
	}
}

// ParseLanguagesFile parses a languages.toml file from the given path
func ParseLanguagesFile(path string) (*LanguagesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", LanguagesDeclarationFile, err)
	}

	var decl LanguagesFile
	if err := toml.Unmarshal(data, &decl); err != nil {
		return nil, errors.New(errors.ConfigInvalid, "failed to parse "+LanguagesDeclarationFile, err)
	}
	if decl.Version < 1 {
		decl.Version = 1
	}
	return &decl, nil
}

// LoadRegistry builds the content-type registry from <root>/.linttrack/languages.toml,
// or from DefaultLanguages when the file does not exist.
func LoadRegistry(root string) (*Registry, error) {
	path := filepath.Join(root, ".linttrack", LanguagesDeclarationFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewRegistry(DefaultLanguages())
	}
	decl, err := ParseLanguagesFile(path)
	if err != nil {
		return nil, err
	}
	return NewRegistry(decl)
}

// Registry classifies files into content types and languages. It is built
// once from declarations and is read-only afterwards.
type Registry struct {
	byExtension map[string]string
	byType      map[string]LanguageDeclaration
	languages   []LanguageDeclaration
}

// NewRegistry validates declarations and indexes them.
func NewRegistry(decl *LanguagesFile) (*Registry, error) {
	r := &Registry{
		byExtension: make(map[string]string),
		byType:      make(map[string]LanguageDeclaration),
	}

	known := make(map[string]bool)
	for _, ct := range decl.ContentTypes {
		if ct.ID == "" {
			return nil, errors.New(errors.ConfigInvalid, "content type declaration missing 'id'", nil)
		}
		known[ct.ID] = true
		for _, ext := range ct.Extensions {
			ext = normalizeExtension(ext)
			if prev, ok := r.byExtension[ext]; ok && prev != ct.ID {
				return nil, errors.New(errors.ConfigInvalid,
					fmt.Sprintf("extension %q declared for both %q and %q", ext, prev, ct.ID), nil)
			}
			r.byExtension[ext] = ct.ID
		}
	}

	for _, lang := range decl.Languages {
		if lang.SuffixesKey == "" {
			return nil, errors.New(errors.ConfigInvalid,
				fmt.Sprintf("language %q missing 'suffixes_key'", lang.Name), nil)
		}
		for _, id := range lang.ContentTypes {
			if !known[id] {
				return nil, errors.New(errors.ConfigInvalid,
					fmt.Sprintf("language %q references unknown content type %q", lang.Name, id), nil)
			}
			if prev, ok := r.byType[id]; ok {
				return nil, errors.New(errors.ConfigInvalid,
					fmt.Sprintf("content type %q claimed by both %q and %q", id, prev.Name, lang.Name), nil)
			}
			r.byType[id] = lang
		}
		r.languages = append(r.languages, lang)
	}

	return r, nil
}

func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// ContentTypeOf returns the content type id for a file name, or "" if unknown.
func (r *Registry) ContentTypeOf(name string) string {
	ext := normalizeExtension(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	return r.byExtension[ext]
}

// LanguageOf returns the language owning a content type.
func (r *Registry) LanguageOf(contentType string) (LanguageDeclaration, bool) {
	lang, ok := r.byType[contentType]
	return lang, ok
}

// Languages returns the declared languages in declaration order.
func (r *Registry) Languages() []LanguageDeclaration {
	return append([]LanguageDeclaration(nil), r.languages...)
}

// Classify builds a File for a project-relative path.
func (r *Registry) Classify(projectID, relativePath string) File {
	return File{
		ProjectID:    projectID,
		RelativePath: relativePath,
		ContentType:  r.ContentTypeOf(relativePath),
	}
}
