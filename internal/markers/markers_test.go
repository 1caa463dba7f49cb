package markers

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"linttrack/internal/logging"
)

func newBufferConsole() (*Console, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logging.NewLogger(logging.Config{
		Format: logging.HumanFormat,
		Level:  logging.DebugLevel,
		Output: &buf,
	})
	return NewConsole(logger), &buf
}

func TestMemorySink_ClearChangeSetMarkers(t *testing.T) {
	console, _ := newBufferConsole()
	sink := NewMemorySink(console)

	sink.UpdateMarkers("p1", "a.c", OriginChangeSet, []Marker{{ProjectID: "p1", File: "a.c", Line: 2}})
	sink.UpdateMarkers("p1", "b.c", OriginOther, []Marker{{ProjectID: "p1", File: "b.c", Line: 1}})
	sink.UpdateMarkers("p2", "a.c", OriginChangeSet, []Marker{{ProjectID: "p2", File: "a.c", Line: 3}})

	sink.ClearChangeSetMarkers("p1")

	got := sink.Markers("p1")
	if len(got) != 1 || got[0].File != "b.c" {
		t.Errorf("expected only the non change-set marker, got %v", got)
	}
	if len(sink.Markers("p2")) != 1 {
		t.Error("other projects should keep their markers")
	}
	if sink.ClearCount("p1") != 1 || sink.ClearCount("p2") != 0 {
		t.Errorf("unexpected clear counts: %d, %d", sink.ClearCount("p1"), sink.ClearCount("p2"))
	}
}

func TestMemorySink_UpdateReplaces(t *testing.T) {
	console, _ := newBufferConsole()
	sink := NewMemorySink(console)

	sink.UpdateMarkers("p", "a.c", OriginChangeSet, []Marker{{File: "a.c", Line: 9}, {File: "a.c", Line: 1}})
	got := sink.Markers("p")
	if len(got) != 2 || got[0].Line != 1 {
		t.Errorf("expected markers sorted by line, got %v", got)
	}

	sink.UpdateMarkers("p", "a.c", OriginChangeSet, nil)
	if len(sink.Markers("p")) != 0 {
		t.Error("expected markers to be removed")
	}
}

func TestMemorySink_Log(t *testing.T) {
	console, buf := newBufferConsole()
	sink := NewMemorySink(console)

	sink.Log("fetch failed, using cache", nil)
	sink.Log("update crashed", fmt.Errorf("nil map"))

	out := buf.String()
	if !strings.Contains(out, "[info] fetch failed, using cache") {
		t.Errorf("expected info line, got %q", out)
	}
	if !strings.Contains(out, "[error] update crashed") || !strings.Contains(out, "cause=nil map") {
		t.Errorf("expected error line with cause, got %q", out)
	}
	if !strings.Contains(out, "component=console") {
		t.Errorf("expected component field, got %q", out)
	}
}
