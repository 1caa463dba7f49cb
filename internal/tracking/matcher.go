package tracking

import "time"

// DefaultLineShiftTolerance is how far, in lines, an issue may move and still
// be matched on its server identity.
const DefaultLineShiftTolerance = 3

// Matcher correlates incoming issues with tracked ones.
type Matcher struct {
	LineShiftTolerance int
}

// NewMatcher creates a matcher; a negative tolerance falls back to the default.
func NewMatcher(lineShiftTolerance int) Matcher {
	if lineShiftTolerance < 0 {
		lineShiftTolerance = DefaultLineShiftTolerance
	}
	return Matcher{LineShiftTolerance: lineShiftTolerance}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sameText(a, b *Trackable) bool {
	return a.RuleKey == b.RuleKey && a.Message == b.Message
}

// near reports whether b sits on a's line, has a's line content, or moved by
// at most the tolerance.
func (m Matcher) near(a, b *Trackable) bool {
	if a.Line == b.Line {
		return true
	}
	if a.LineHash != "" && a.LineHash == b.LineHash {
		return true
	}
	return abs(a.Line-b.Line) <= m.LineShiftTolerance
}

// closest returns the index of the unmatched candidate accepted by ok that is
// nearest to ref's line, the lowest index winning ties, or -1.
func closest(ref *Trackable, candidates []Trackable, taken []bool, ok func(*Trackable) bool) int {
	best, bestDist := -1, 0
	for i := range candidates {
		if taken[i] || !ok(&candidates[i]) {
			continue
		}
		d := abs(candidates[i].Line - ref.Line)
		if best == -1 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// pairing records, for every tracked issue, the index of the incoming issue
// it was matched with, or -1.
type pairing struct {
	existingTo []int
	taken      []bool
}

func newPairing(existing, incoming int) *pairing {
	p := &pairing{
		existingTo: make([]int, existing),
		taken:      make([]bool, incoming),
	}
	for i := range p.existingTo {
		p.existingTo[i] = -1
	}
	return p
}

func (p *pairing) pair(e, i int) {
	p.existingTo[e] = i
	p.taken[i] = true
}

// pairTolerant pairs selected tracked issues with incoming issues of the same
// rule and message that are near them.
func (m Matcher) pairTolerant(p *pairing, existing, incoming []Trackable, selected func(*Trackable) bool) {
	for e := range existing {
		ref := &existing[e]
		if p.existingTo[e] != -1 || !selected(ref) {
			continue
		}
		if i := closest(ref, incoming, p.taken, func(c *Trackable) bool {
			return sameText(ref, c) && m.near(ref, c)
		}); i != -1 {
			p.pair(e, i)
		}
	}
}

// pairByText pairs selected tracked issues on rule and message alone.
func pairByText(p *pairing, existing, incoming []Trackable, selected func(*Trackable) bool) {
	for e := range existing {
		ref := &existing[e]
		if p.existingTo[e] != -1 || !selected(ref) {
			continue
		}
		if i := closest(ref, incoming, p.taken, func(c *Trackable) bool {
			return sameText(ref, c)
		}); i != -1 {
			p.pair(e, i)
		}
	}
}

func isActive(t *Trackable) bool {
	return !t.Resolved && t.State != StateResolved
}

// Match reconciles a local analysis result against the tracked issues of a
// file and returns the new tracked collection.
//
// Active tracked issues holding a server key are paired first on the
// position-aware key, then the other active ones, then all active ones on
// rule and message alone. Previously resolved issues come last. Matched
// incoming issues inherit the identity of their predecessor. The result lists
// the incoming issues in order, followed by tracked issues with a server key
// that were not found again, now resolved. Unmatched tracked issues without a
// server key are dropped.
//
// Repeating a match with the same incoming issues keeps every identity (local
// id, server key, creation date) and the collection's size. The state field
// is not part of that guarantee: issues reported new by the first call are
// matched by the second.
func (m Matcher) Match(existing, incoming []Trackable) []Trackable {
	p := newPairing(len(existing), len(incoming))

	m.pairTolerant(p, existing, incoming, func(t *Trackable) bool {
		return isActive(t) && t.ServerKey != ""
	})
	m.pairTolerant(p, existing, incoming, isActive)
	pairByText(p, existing, incoming, isActive)

	all := func(t *Trackable) bool { return true }
	m.pairTolerant(p, existing, incoming, all)
	pairByText(p, existing, incoming, all)

	predecessor := make([]int, len(incoming))
	for i := range predecessor {
		predecessor[i] = -1
	}
	for e, i := range p.existingTo {
		if i != -1 {
			predecessor[i] = e
		}
	}

	result := make([]Trackable, 0, len(incoming)+len(existing))
	keys := make(map[string]bool)

	for i := range incoming {
		t := incoming[i]
		if e := predecessor[i]; e != -1 {
			prev := existing[e]
			t.LocalID = prev.LocalID
			t.ServerKey = prev.ServerKey
			t.CreationDate = prev.CreationDate
			t.Resolution = prev.Resolution
			t.Assignee = prev.Assignee
			if prev.ServerKey != "" && prev.Severity != "" {
				t.Severity = prev.Severity
			}
			if prev.Origin != "" {
				t.Origin = prev.Origin
			}
			t.State = StateMatched
		} else {
			t.LocalID = newLocalID()
			t.ServerKey = ""
			t.State = StateNew
			if t.CreationDate.IsZero() {
				t.CreationDate = time.Now().UTC().Truncate(time.Second)
			}
		}
		if t.LocalID == "" {
			t.LocalID = newLocalID()
		}
		if t.Origin == "" {
			t.Origin = OriginLocal
		}
		t.Resolved = false
		if t.ServerKey != "" {
			if keys[t.ServerKey] {
				t.ServerKey = ""
			} else {
				keys[t.ServerKey] = true
			}
		}
		result = append(result, t)
	}

	for e := range existing {
		prev := existing[e]
		if p.existingTo[e] != -1 || prev.ServerKey == "" || keys[prev.ServerKey] {
			continue
		}
		keys[prev.ServerKey] = true
		prev.Resolved = true
		prev.State = StateResolved
		result = append(result, prev)
	}

	return result
}

// MatchBase applies server truth to the tracked issues of a file.
//
// Tracked issues are paired with server issues on server key first, then
// those without a key on the textual policy. Paired issues take the server
// key and the fields the server owns. Tracked issues whose server key is no
// longer known lose it. Server issues with no tracked counterpart are
// appended. The resolved flag of tracked issues is left untouched.
func (m Matcher) MatchBase(existing, serverIssues []Trackable) []Trackable {
	// drop duplicate server keys, first one wins
	deduped := make([]Trackable, 0, len(serverIssues))
	seen := make(map[string]bool)
	for _, s := range serverIssues {
		if s.ServerKey != "" {
			if seen[s.ServerKey] {
				continue
			}
			seen[s.ServerKey] = true
		}
		deduped = append(deduped, s)
	}

	p := newPairing(len(existing), len(deduped))

	byKey := make(map[string]int)
	for i, s := range deduped {
		if s.ServerKey != "" {
			byKey[s.ServerKey] = i
		}
	}
	for e := range existing {
		key := existing[e].ServerKey
		if key == "" {
			continue
		}
		if i, ok := byKey[key]; ok && !p.taken[i] {
			p.pair(e, i)
		}
	}

	keyless := func(t *Trackable) bool { return t.ServerKey == "" }
	m.pairTolerant(p, existing, deduped, keyless)
	pairByText(p, existing, deduped, keyless)

	result := make([]Trackable, 0, len(existing)+len(deduped))
	for e := range existing {
		t := existing[e]
		if i := p.existingTo[e]; i != -1 {
			s := deduped[i]
			t.ServerKey = s.ServerKey
			if !s.CreationDate.IsZero() {
				t.CreationDate = s.CreationDate
			}
			if s.Severity != "" {
				t.Severity = s.Severity
			}
			t.Resolution = s.Resolution
			t.Assignee = s.Assignee
			if t.State == StateNew || t.State == "" {
				t.State = StateMatched
			}
		} else if t.ServerKey != "" {
			t.ServerKey = ""
		}
		result = append(result, t)
	}

	for i := range deduped {
		if p.taken[i] {
			continue
		}
		t := deduped[i]
		t.LocalID = newLocalID()
		t.Origin = OriginServer
		t.Resolved = false
		t.State = StateNew
		result = append(result, t)
	}

	return result
}
