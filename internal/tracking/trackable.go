// Package tracking keeps, per module and file, the authoritative list of
// issues and correlates each new batch of findings with what was already known.
package tracking

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"linttrack/internal/analysis"
	"linttrack/internal/server"
)

// State is the lifecycle state of a tracked issue.
type State string

const (
	StateNew      State = "new"
	StateMatched  State = "matched"
	StateResolved State = "resolved"
)

// Origin tells where a Trackable was first produced.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginServer Origin = "server"
)

// Trackable is the local representation of an issue, whether it was found by
// local analysis or downloaded from the server.
type Trackable struct {
	// LocalID is a stable identity assigned when the issue is first tracked
	LocalID string `json:"localId"`

	// ServerKey is the server-assigned identity, empty when unknown
	ServerKey string `json:"serverKey,omitempty"`

	Origin    Origin `json:"origin"`
	RuleKey   string `json:"ruleKey"`
	Message   string `json:"message"`
	Severity  string `json:"severity,omitempty"`
	Line      int    `json:"line,omitempty"`
	StartLine int    `json:"startLine,omitempty"`
	EndLine   int    `json:"endLine,omitempty"`

	// LineHash identifies the issue's line content independently of its position
	LineHash string `json:"lineHash,omitempty"`

	CreationDate time.Time `json:"creationDate"`
	Resolution   string    `json:"resolution,omitempty"`
	Assignee     string    `json:"assignee,omitempty"`

	Resolved bool  `json:"resolved"`
	State    State `json:"state"`
}

// FromLocalIssue wraps an analysis finding.
func FromLocalIssue(issue analysis.LocalIssue, lineHash string) Trackable {
	return Trackable{
		Origin:    OriginLocal,
		RuleKey:   issue.RuleKey,
		Message:   issue.Message,
		Severity:  issue.Severity,
		Line:      issue.Line,
		StartLine: issue.StartLine,
		EndLine:   issue.EndLine,
		LineHash:  lineHash,
	}
}

// FromServerIssue wraps a server issue.
func FromServerIssue(issue server.ServerIssue) Trackable {
	return Trackable{
		ServerKey:    issue.Key,
		Origin:       OriginServer,
		RuleKey:      issue.RuleKey,
		Message:      issue.Message,
		Severity:     issue.Severity,
		Line:         issue.Line,
		StartLine:    issue.StartLine,
		EndLine:      issue.EndLine,
		LineHash:     issue.LineHash,
		CreationDate: issue.CreationDate,
		Resolution:   issue.Resolution,
		Assignee:     issue.Assignee,
	}
}

// FromServerIssues wraps server issues preserving order.
func FromServerIssues(issues []server.ServerIssue) []Trackable {
	out := make([]Trackable, 0, len(issues))
	for _, issue := range issues {
		out = append(out, FromServerIssue(issue))
	}
	return out
}

func newLocalID() string {
	return uuid.New().String()
}

// HashLine hashes a line of source ignoring all whitespace, so that
// reindented lines keep their hash.
func HashLine(line string) string {
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n', '\v', '\f':
			return -1
		}
		return r
	}, line)
	if stripped == "" {
		return ""
	}
	return strconv.FormatUint(xxh3.HashString(stripped), 16)
}

// LineHashes hashes every line of content. Index i holds line i+1.
func LineHashes(content string) []string {
	lines := strings.Split(content, "\n")
	hashes := make([]string, len(lines))
	for i, line := range lines {
		hashes[i] = HashLine(line)
	}
	return hashes
}

// HashAt returns the hash of a 1-based line, or "" when out of range.
func HashAt(hashes []string, line int) string {
	if line < 1 || line > len(hashes) {
		return ""
	}
	return hashes[line-1]
}
