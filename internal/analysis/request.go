// Package analysis describes requests handed to the analysis engine and the
// local issues it reports back.
package analysis

import (
	"context"
	"fmt"

	"linttrack/internal/workspace"
)

// TriggerType is the reason an analysis was requested.
type TriggerType string

const (
	TriggerManual    TriggerType = "manual"
	TriggerOnSave    TriggerType = "on-save"
	TriggerChangeSet TriggerType = "change-set"
	TriggerFull      TriggerType = "full"
)

// ParseTriggerType validates a trigger name.
func ParseTriggerType(s string) (TriggerType, error) {
	switch t := TriggerType(s); t {
	case TriggerManual, TriggerOnSave, TriggerChangeSet, TriggerFull:
		return t, nil
	}
	return "", fmt.Errorf("unknown trigger type %q", s)
}

// AnalyzeRequest is consumed exactly once by an Engine.
type AnalyzeRequest struct {
	Project    workspace.Project `json:"project"`
	Files      []workspace.File  `json:"files"`
	Trigger    TriggerType       `json:"trigger"`
	Properties map[string]string `json:"properties,omitempty"`
}

// LocalIssue is a finding reported by the engine for one file.
type LocalIssue struct {
	File      string `json:"file"` // relative to the project root
	RuleKey   string `json:"ruleKey"`
	Message   string `json:"message"`
	Severity  string `json:"severity,omitempty"`
	Line      int    `json:"line"`
	StartLine int    `json:"startLine,omitempty"`
	EndLine   int    `json:"endLine,omitempty"`
}

// Engine runs the actual analysis.
type Engine interface {
	Analyze(ctx context.Context, req AnalyzeRequest) ([]LocalIssue, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, req AnalyzeRequest) ([]LocalIssue, error)

// Analyze calls f.
func (f EngineFunc) Analyze(ctx context.Context, req AnalyzeRequest) ([]LocalIssue, error) {
	return f(ctx, req)
}
