package semantic

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// Advisor performs the advisory LLM call for inputs the rule-based pass
// finds uncertain. Implementations call out to an LLM API; NewNoopAdvisor
// provides the deterministic stand-in used when no LLM is configured.
type Advisor interface {
	Assess(ctx context.Context, input string, rule RuleAssessment) (*LLMVerdict, error)
}

// Cache is the TTL+LRU bounded store for advisory verdicts, keyed by a
// content hash of the analyzed input. Default capacity 1000, TTL 1 hour
//
type Cache interface {
	Get(key string) (CombinedAssessment, bool)
	Set(key string, value CombinedAssessment)
}

type compiledPattern struct {
	pattern Pattern
	regex   *regexp.Regexp
}

// RuleAnalyzer runs the fast, pure pattern-matching pass.
type RuleAnalyzer struct {
	compiled []compiledPattern
}

// NewRuleAnalyzer compiles patterns once at construction. A nil slice uses
// DefaultPatterns.
func NewRuleAnalyzer(patterns []Pattern) *RuleAnalyzer {
	if patterns == nil {
		patterns = DefaultPatterns
	}
	ra := &RuleAnalyzer{}
	for _, p := range patterns {
		ra.compiled = append(ra.compiled, compiledPattern{pattern: p, regex: regexp.MustCompile("(?i)" + p.Regex)})
	}
	return ra
}

func countContains(text string, terms []string) int {
	n := 0
	for _, term := range terms {
		if strings.Contains(text, strings.ToLower(term)) {
			n++
		}
	}
	return n
}

// Analyze scores normalized input against every pattern and returns the
// highest-confidence assessment: a pattern counts as matched only when its
// score exceeds its own configured ConfidenceThreshold.
func (ra *RuleAnalyzer) Analyze(input string) RuleAssessment {
	normalized := strings.ToLower(strings.TrimSpace(input))

	var matchedNames []string
	var threatTypes []ThreatType
	best := 0.0
	for _, cp := range ra.compiled {
		score := evaluatePatternMatch(normalized, cp)
		if score > cp.pattern.ConfidenceThreshold {
			matchedNames = append(matchedNames, cp.pattern.Name)
			threatTypes = append(threatTypes, cp.pattern.ThreatType)
		}
		if score > best {
			best = score
		}
	}

	assessment := RuleAssessment{
		InputText:       input,
		IsThreat:        len(matchedNames) > 0,
		ThreatTypes:     dedupeThreatTypes(threatTypes),
		Confidence:      best,
		MatchedPatterns: matchedNames,
	}
	assessment.RecommendedAction = actionForConfidence(assessment.Confidence, assessment.IsThreat)
	return assessment
}

func evaluatePatternMatch(text string, cp compiledPattern) float64 {
	score := 0.0
	if cp.regex.MatchString(text) {
		score += 0.6
	}
	keywordMatches := countContains(text, cp.pattern.Keywords)
	if keywordMatches > 0 && len(cp.pattern.Keywords) > 0 {
		score += 0.2 * float64(keywordMatches) / float64(len(cp.pattern.Keywords))
	}
	contextMatches := countContains(text, cp.pattern.ContextKeywords)
	if contextMatches > 0 && len(cp.pattern.ContextKeywords) > 0 {
		score += 0.3 * float64(contextMatches) / float64(len(cp.pattern.ContextKeywords))
	}
	if keywordMatches > 1 && contextMatches > 1 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func dedupeThreatTypes(in []ThreatType) []ThreatType {
	seen := make(map[ThreatType]bool, len(in))
	var out []ThreatType
	for _, t := range in {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func actionForConfidence(confidence float64, isThreat bool) SecurityAction {
	switch {
	case confidence > 0.8:
		return ActionBlockImmediately
	case confidence > 0.6:
		return ActionBlockWithWarning
	case confidence > 0.4:
		return ActionMonitorClosely
	default:
		return ActionAllowProcessing
	}
}

// Thresholds bound when the hybrid analyzer consults the advisory LLM.
// Rule confidence >= RuleConfidenceThreshold is trusted outright; below
// LLMBoostThreshold the input is too unremarkable to bother the LLM with.
const (
	RuleConfidenceThreshold = 0.7
	LLMBoostThreshold       = 0.2
	nearMissMargin          = 0.05
	substantialScoreMargin  = 0.15
)

// socialEngineeringKeywords and suspiciousContextKeywords are the fixed
// keyword lists hasNearMissPatterns checks independently of any single
// pattern's score.
var (
	socialEngineeringKeywords = []string{"kindly", "trouble", "bypass", "access", "verification"}
	suspiciousContextKeywords = []string{"bypass", "override", "ignore", "disable", "access", "restriction", "protocol"}
)

// hasNearMissPatterns reports whether input carries threat signal just
// below what any pattern needed to match outright, even though Analyze
// found nothing over threshold. A pattern near-misses when its score
// lands within nearMissMargin below its own ConfidenceThreshold, when a
// high-bar pattern (threshold >= 0.8) still scores moderately (>= 0.5),
// or when any pattern's score alone clears substantialScoreMargin.
// Independently of per-pattern scores, input mentioning both a
// social-engineering and a suspicious-context keyword also counts, since
// that combination tends to precede a jailbreak attempt the patterns
// haven't been tuned to catch yet.
func (ra *RuleAnalyzer) hasNearMissPatterns(input string) bool {
	normalized := strings.ToLower(strings.TrimSpace(input))

	for _, cp := range ra.compiled {
		score := evaluatePatternMatch(normalized, cp)
		threshold := cp.pattern.ConfidenceThreshold
		nearMiss := score >= threshold-nearMissMargin && score < threshold
		moderateHighThreshold := threshold >= 0.8 && score >= 0.5
		substantialScore := score >= substantialScoreMargin
		if nearMiss || moderateHighThreshold || substantialScore {
			return true
		}
	}

	hasSocial := countContains(normalized, socialEngineeringKeywords) > 0
	hasSuspicious := countContains(normalized, suspiciousContextKeywords) > 0
	return hasSocial && hasSuspicious
}

// NeedsAdvisory reports whether rule is uncertain enough to warrant the
// advisory LLM call: within [LLMBoostThreshold, RuleConfidenceThreshold),
// or a near-miss just below a pattern's own threshold.
func NeedsAdvisory(rule RuleAssessment, nearMiss bool) bool {
	if nearMiss {
		return true
	}
	return rule.Confidence >= LLMBoostThreshold && rule.Confidence < RuleConfidenceThreshold
}

// HybridAnalyzer combines RuleAnalyzer with an advisory Advisor behind a
// Cache
type HybridAnalyzer struct {
	rules   *RuleAnalyzer
	advisor Advisor
	cache   Cache
	clock   func() time.Time
}

// NewHybridAnalyzer builds a HybridAnalyzer. advisor or cache may be nil;
// a nil cache disables caching, a nil advisor disables LLM escalation
// entirely (rule-only operation).
func NewHybridAnalyzer(rules *RuleAnalyzer, advisor Advisor, cache Cache) *HybridAnalyzer {
	if rules == nil {
		rules = NewRuleAnalyzer(nil)
	}
	return &HybridAnalyzer{rules: rules, advisor: advisor, cache: cache, clock: time.Now}
}

// Analyze runs the full hybrid pipeline: rule pass, cache lookup keyed by
// cacheKey, advisory escalation when uncertain, and weighted combination.
func (h *HybridAnalyzer) Analyze(ctx context.Context, input string, cacheKey string) CombinedAssessment {
	start := h.clock()

	if h.cache != nil && cacheKey != "" {
		if cached, ok := h.cache.Get(cacheKey); ok {
			cached.CacheHit = true
			return cached
		}
	}

	rule := h.rules.Analyze(input)

	result := CombinedAssessment{
		Rule:              rule,
		Combined:          rule.Confidence,
		ThreatTypes:       rule.ThreatTypes,
		RecommendedAction: rule.RecommendedAction,
	}

	if h.advisor != nil && NeedsAdvisory(rule, h.rules.hasNearMissPatterns(input)) {
		verdict, err := h.advisor.Assess(ctx, input, rule)
		if err != nil || verdict == nil {
			result.LLMUnavailable = true
		} else {
			result = combine(rule, verdict)
		}
	}

	result.ProcessingTime = h.clock().Sub(start)

	if h.cache != nil && cacheKey != "" {
		h.cache.Set(cacheKey, result)
	}
	return result
}

// combine implements the weighted combination: 0.4/0.6 rule/LLM by
// default, 0.7/0.3 when the rule is already confident (>0.8), 0.2/0.8 when
// the rule is weak (<0.3). A high-subtlety, high-confidence LLM verdict
// adds up to +0.2. The LLM may never pull a rule-based block-and-alert
// equivalent (confidence > 0.8) below its own confidence.
func combine(rule RuleAssessment, llm *LLMVerdict) CombinedAssessment {
	ruleWeight, llmWeight := 0.4, 0.6
	switch {
	case rule.Confidence > 0.8:
		ruleWeight, llmWeight = 0.7, 0.3
	case rule.Confidence < 0.3:
		ruleWeight, llmWeight = 0.2, 0.8
	}

	combined := rule.Confidence*ruleWeight + llm.Confidence*llmWeight

	if llm.SubtletyScore > 0.7 && llm.Confidence > 0.8 {
		combined = minFloat(combined+0.2, 1.0)
	}

	if rule.Confidence > 0.8 && combined < rule.Confidence {
		combined = rule.Confidence
	}

	threatTypes := dedupeThreatTypes(append(append([]ThreatType{}, rule.ThreatTypes...), llm.ThreatTypes...))

	action := actionForConfidence(combined, rule.IsThreat || llm.IsThreat)
	if llm.SecurityAction != "" && securitySeverity(llm.SecurityAction) > securitySeverity(action) {
		action = llm.SecurityAction
	}

	return CombinedAssessment{
		Rule:              rule,
		LLM:               llm,
		Combined:          combined,
		ThreatTypes:       threatTypes,
		RecommendedAction: action,
	}
}

func securitySeverity(a SecurityAction) int {
	switch a {
	case ActionBlockImmediately:
		return 3
	case ActionBlockWithWarning:
		return 2
	case ActionMonitorClosely:
		return 1
	default:
		return 0
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
