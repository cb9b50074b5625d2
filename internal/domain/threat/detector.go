package threat

import (
	"regexp"
	"strings"
	"sync"
	"time"
)

// roleOverrideExclusions lists the benign continuations of "you are now ..."
// that the original's Python lookahead ((?!assistant|helpful|ai)) excluded.
// RE2 has no lookahead, so the exclusion is applied as a post-match filter
// in AnalyzeAt instead.
var roleOverrideExclusions = map[string]bool{"assistant": true, "helpful": true, "ai": true}

// roleOverrideFirstWord captures only the word immediately following
// "you are now (a )?", so the exclusion check inspects what the role is
// being changed TO, not whether "ai" appears anywhere in the sentence.
var roleOverrideFirstWord = regexp.MustCompile(`(?i)you\s+are\s+now\s+(?:a\s+)?(\w+)`)

// roleOverrideIsBenign reports whether matched continues into one of the
// excluded benign roles right after "you are now (a )?".
func roleOverrideIsBenign(matchedText string) bool {
	sub := roleOverrideFirstWord.FindStringSubmatch(matchedText)
	if len(sub) < 2 {
		return false
	}
	return roleOverrideExclusions[strings.ToLower(sub[1])]
}

type compiledRule struct {
	rule    Rule
	pattern *regexp.Regexp
}

// Detector evaluates content against DefaultRules (or a supplied rule set)
// and tracks per-client repeat-offense escalation.
type Detector struct {
	compiled []compiledRule

	mu      sync.Mutex
	clients map[string]*ClientHistory
}

// NewDetector compiles rules once at construction. A nil rules slice uses
// DefaultRules.
func NewDetector(rules []Rule) *Detector {
	if rules == nil {
		rules = DefaultRules
	}
	d := &Detector{clients: make(map[string]*ClientHistory)}
	for _, r := range rules {
		flags := "(?i)"
		if r.CaseSensitive {
			flags = ""
		}
		d.compiled = append(d.compiled, compiledRule{rule: r, pattern: regexp.MustCompile(flags + r.Pattern)})
	}
	return d
}

// Analyze runs every rule against content and, when clientID is non-empty,
// folds the result into that client's escalation history.
func (d *Detector) Analyze(content string, clientID string) Result {
	return d.AnalyzeAt(content, clientID, time.Now())
}

// AnalyzeAt is Analyze with an explicit clock, for deterministic testing.
func (d *Detector) AnalyzeAt(content string, clientID string, now time.Time) Result {
	normalized := NormalizeContent(content)

	var matches []Match
	for _, cr := range d.compiled {
		loc := cr.pattern.FindString(normalized)
		if loc == "" {
			continue
		}
		if cr.rule.Name == "role_override" && roleOverrideIsBenign(loc) {
			continue
		}
		matches = append(matches, Match{
			RuleName:    cr.rule.Name,
			Category:    cr.rule.Category,
			Level:       cr.rule.Level,
			Action:      cr.rule.Action,
			MatchedText: truncate(loc, 100),
		})
	}

	result := Result{
		IsThreat:       len(matches) > 0,
		Matches:        matches,
		Confidence:     confidenceScore(matches),
		Level:          highestLevel(matches),
		Action:         mostSevereAction(matches),
		ContentSnippet: truncate(normalized, 200),
	}

	if clientID != "" && result.IsThreat {
		if escalated := d.trackClient(clientID, result.Level, now); escalated != "" && escalated.severity() > result.Action.severity() {
			result.Action = escalated
			result.EscalatedRepeat = true
		}
	}

	return result
}

// confidenceScore implements the formula:
// min(1.0, avg(weight(level)) + 0.1*(n_matches-1)).
func confidenceScore(matches []Match) float64 {
	if len(matches) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, m := range matches {
		sum += m.Level.weight()
	}
	score := sum/float64(len(matches)) + float64(len(matches)-1)*0.1
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func highestLevel(matches []Match) Level {
	max := LevelLow
	best := 0
	for _, m := range matches {
		if r := m.Level.rank(); r > best {
			best = r
			max = m.Level
		}
	}
	return max
}

func mostSevereAction(matches []Match) Action {
	if len(matches) == 0 {
		return ActionLogOnly
	}
	chosen := ActionLogOnly
	best := -1
	for _, m := range matches {
		if s := m.Action.severity(); s > best {
			best = s
			chosen = m.Action
		}
	}
	return chosen
}

// trackClient updates the client's history and returns the escalated action
// forced by repeat offenses, or "" if none applies yet.
func (d *Detector) trackClient(clientID string, level Level, now time.Time) Action {
	d.mu.Lock()
	defer d.mu.Unlock()

	h, ok := d.clients[clientID]
	if !ok {
		h = &ClientHistory{ClientID: clientID, FirstSeen: now, MaxLevel: LevelLow}
		d.clients[clientID] = h
	}
	h.ThreatCount++
	h.LastThreat = now
	if level.rank() > h.MaxLevel.rank() {
		h.MaxLevel = level
	}
	return h.EscalatedAction()
}

// ClientHistorySnapshot returns a copy of a client's tracked history, or the
// zero value if the client has never been flagged.
func (d *Detector) ClientHistorySnapshot(clientID string) ClientHistory {
	d.mu.Lock()
	defer d.mu.Unlock()
	if h, ok := d.clients[clientID]; ok {
		return *h
	}
	return ClientHistory{ClientID: clientID}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
