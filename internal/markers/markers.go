// Package markers records the diagnostics shown to the developer: issue
// markers attached to files and a diagnostic console.
package markers

import (
	"sort"
	"sync"

	"linttrack/internal/logging"
)

// Origin tells which analysis produced a marker.
type Origin string

const (
	OriginChangeSet Origin = "change-set"
	OriginOther     Origin = "other"
)

// Marker is one issue shown on a file.
type Marker struct {
	ProjectID string `json:"projectId"`
	File      string `json:"file"`
	Origin    Origin `json:"origin"`
	LocalID   string `json:"localId"`
	RuleKey   string `json:"ruleKey"`
	Message   string `json:"message"`
	Severity  string `json:"severity,omitempty"`
	Line      int    `json:"line,omitempty"`
}

// Sink receives marker updates and diagnostics. Calls are fire-and-forget.
type Sink interface {
	// ClearChangeSetMarkers removes every change-set marker of a project.
	ClearChangeSetMarkers(projectID string)
	// UpdateMarkers replaces the markers of one origin on one file.
	UpdateMarkers(projectID, file string, origin Origin, markers []Marker)
	// Log reports a diagnostic; cause may be nil.
	Log(message string, cause error)
}

type fileKey struct {
	project string
	file    string
	origin  Origin
}

// MemorySink keeps markers in memory and logs diagnostics through a Console.
type MemorySink struct {
	console *Console

	mu      sync.RWMutex
	markers map[fileKey][]Marker
	clears  map[string]int
}

// NewMemorySink creates an empty sink.
func NewMemorySink(console *Console) *MemorySink {
	return &MemorySink{
		console: console,
		markers: make(map[fileKey][]Marker),
		clears:  make(map[string]int),
	}
}

// ClearChangeSetMarkers implements Sink.
func (s *MemorySink) ClearChangeSetMarkers(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.markers {
		if k.project == projectID && k.origin == OriginChangeSet {
			delete(s.markers, k)
		}
	}
	s.clears[projectID]++
}

// UpdateMarkers implements Sink.
func (s *MemorySink) UpdateMarkers(projectID, file string, origin Origin, markers []Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := fileKey{project: projectID, file: file, origin: origin}
	if len(markers) == 0 {
		delete(s.markers, k)
		return
	}
	s.markers[k] = append([]Marker(nil), markers...)
}

// Log implements Sink.
func (s *MemorySink) Log(message string, cause error) {
	if cause != nil {
		s.console.Error(message, cause)
		return
	}
	s.console.Info(message)
}

// Markers returns the markers of a project ordered by file and line.
func (s *MemorySink) Markers(projectID string) []Marker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Marker
	for k, ms := range s.markers {
		if k.project == projectID {
			out = append(out, ms...)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Line < out[j].Line
	})
	return out
}

// ClearCount returns how many times the change-set markers of a project were cleared.
func (s *MemorySink) ClearCount(projectID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clears[projectID]
}

// Console is the diagnostic console. Messages go to the logger only and never
// interrupt the caller.
type Console struct {
	logger *logging.Logger
}

// NewConsole creates a console writing through logger.
func NewConsole(logger *logging.Logger) *Console {
	return &Console{logger: logger.With(map[string]interface{}{"component": "console"})}
}

// Info logs an informational diagnostic.
func (c *Console) Info(message string) {
	c.logger.Info(message, nil)
}

// Error logs a diagnostic with its full cause.
func (c *Console) Error(message string, cause error) {
	fields := map[string]interface{}{}
	if cause != nil {
		fields["cause"] = cause.Error()
	}
	c.logger.Error(message, fields)
}
