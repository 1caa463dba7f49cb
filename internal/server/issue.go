// Package server talks to the remote issue server and caches the issues it
// knows about so they remain available offline.
package server

import (
	"os"
	"strings"
	"time"
)

// ServerIssue is a finding as known by the remote server. It is a read-only snapshot.
type ServerIssue struct {
	Key          string    `json:"key"`
	FileKey      string    `json:"fileKey,omitempty"`
	RuleKey      string    `json:"ruleKey"`
	Message      string    `json:"message"`
	Severity     string    `json:"severity,omitempty"`
	Line         int       `json:"line,omitempty"`
	StartLine    int       `json:"startLine,omitempty"`
	EndLine      int       `json:"endLine,omitempty"`
	LineHash     string    `json:"lineHash,omitempty"`
	CreationDate time.Time `json:"creationDate"`
	Resolution   string    `json:"resolution,omitempty"`
	Assignee     string    `json:"assignee,omitempty"`
}

// FileKey derives the server join key of a project-relative path: every host
// path separator becomes '/'. On hosts whose separator already is '/', the
// path is returned unchanged.
func FileKey(relativePath string) string {
	return toFileKey(relativePath, os.PathSeparator)
}

func toFileKey(relativePath string, separator rune) string {
	if separator == '/' {
		return relativePath
	}
	return strings.ReplaceAll(relativePath, string(separator), "/")
}
