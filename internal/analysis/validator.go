package analysis

import (
	"strings"

	"linttrack/internal/workspace"
)

// FileValidator decides which files the engine can analyze.
type FileValidator struct {
	registry *workspace.Registry
}

// NewFileValidator creates a validator over the given language registry.
func NewFileValidator(registry *workspace.Registry) *FileValidator {
	return &FileValidator{registry: registry}
}

// Accept reports whether the file has an extension and a content type that
// belongs to a declared language.
func (v *FileValidator) Accept(f workspace.File) bool {
	if f.Extension() == "" {
		return false
	}
	ct := f.ContentType
	if ct == "" {
		ct = v.registry.ContentTypeOf(f.RelativePath)
	}
	if ct == "" {
		return false
	}
	_, ok := v.registry.LanguageOf(ct)
	return ok
}

// Filter returns the accepted files, preserving order.
func (v *FileValidator) Filter(files []workspace.File) []workspace.File {
	accepted := make([]workspace.File, 0, len(files))
	for _, f := range files {
		if v.Accept(f) {
			accepted = append(accepted, f)
		}
	}
	return accepted
}

// SuffixProperties builds one property per language listing the dotted
// suffixes of the accepted files, comma-joined and deduplicated in first-seen order.
func (v *FileValidator) SuffixProperties(files []workspace.File) map[string]string {
	suffixes := make(map[string][]string)
	seen := make(map[string]map[string]bool)

	for _, f := range files {
		if !v.Accept(f) {
			continue
		}
		ct := f.ContentType
		if ct == "" {
			ct = v.registry.ContentTypeOf(f.RelativePath)
		}
		lang, _ := v.registry.LanguageOf(ct)
		suffix := "." + f.Extension()

		if seen[lang.SuffixesKey] == nil {
			seen[lang.SuffixesKey] = make(map[string]bool)
		}
		if seen[lang.SuffixesKey][suffix] {
			continue
		}
		seen[lang.SuffixesKey][suffix] = true
		suffixes[lang.SuffixesKey] = append(suffixes[lang.SuffixesKey], suffix)
	}

	props := make(map[string]string, len(suffixes))
	for key, list := range suffixes {
		props[key] = strings.Join(list, ",")
	}
	return props
}
