package threat

import "strings"

// DefaultRules mirrors the original's JAILBREAK_RULES table
// (security/jailbreak_detector.py), translated from Python's re syntax to
// Go's RE2 dialect (named groups dropped, lookahead in role_override
// rewritten as a post-match exclusion list since RE2 has no lookahead).
var DefaultRules = []Rule{
	// Instruction override
	{
		Name:        "ignore_previous_instructions",
		Category:    CategoryInstructionOverride,
		Pattern:     `ignore[\s_]+(previous|all|prior)[\s_]+(instructions?|rules?|prompts?)`,
		Level:       LevelHigh,
		Action:      ActionBlockAndAlert,
		Description: "attempt to override system instructions",
	},
	{
		Name:        "forget_instructions",
		Category:    CategoryInstructionOverride,
		Pattern:     `forget\s+(everything|all)\s+(above|before|previous)`,
		Level:       LevelHigh,
		Action:      ActionBlockAndAlert,
		Description: "attempt to clear system memory",
	},
	{
		Name:        "new_instructions",
		Category:    CategoryInstructionOverride,
		Pattern:     `(new|different|updated)\s+(instructions?|rules?|system\s+prompt)`,
		Level:       LevelMedium,
		Action:      ActionBlockRequest,
		Description: "attempt to provide new system instructions",
	},

	// Role manipulation
	{
		Name:        "role_override",
		Category:    CategoryRoleManipulation,
		Pattern:     `you\s+are\s+now\s+(a\s+)?[\w\s]+`,
		Level:       LevelHigh,
		Action:      ActionBlockAndAlert,
		Description: "attempt to change AI role",
	},
	{
		Name:        "act_as_different_entity",
		Category:    CategoryRoleManipulation,
		Pattern:     `act\s+as\s+if\s+you\s+are\s+(a\s+)?(hacker|admin|root|jailbreaker)`,
		Level:       LevelCritical,
		Action:      ActionBlockAndAlert,
		Description: "attempt to assume malicious role",
	},
	{
		Name:        "pretend_to_be",
		Category:    CategoryRoleManipulation,
		Pattern:     `pretend\s+to\s+be\s+(a\s+)?(hacker|criminal|attacker)`,
		Level:       LevelHigh,
		Action:      ActionBlockAndAlert,
		Description: "attempt to assume harmful persona",
	},

	// System prompt / tag injection
	{
		Name:        "system_tags",
		Category:    CategoryPromptInjection,
		Pattern:     `<\s*/?system\s*>`,
		Level:       LevelCritical,
		Action:      ActionBlockAndAlert,
		Description: "system tag injection attempt",
	},
	{
		Name:        "assistant_tags",
		Category:    CategoryPromptInjection,
		Pattern:     `<\s*/?assistant\s*>`,
		Level:       LevelHigh,
		Action:      ActionBlockAndAlert,
		Description: "assistant tag injection attempt",
	},
	{
		Name:        "user_tags",
		Category:    CategoryPromptInjection,
		Pattern:     `<\s*/?user\s*>`,
		Level:       LevelMedium,
		Action:      ActionBlockRequest,
		Description: "user tag injection attempt",
	},
	{
		Name:        "prompt_markers",
		Category:    CategoryPromptInjection,
		Pattern:     `\[(SYSTEM|ASSISTANT|USER)\]`,
		Level:       LevelHigh,
		Action:      ActionBlockAndAlert,
		Description: "prompt marker injection attempt",
		CaseSensitive: true,
	},

	// Data exfiltration
	{
		Name:        "show_system_info",
		Category:    CategoryDataExfiltration,
		Pattern:     `show\s+me\s+(your|the)\s+(system|internal|hidden)\s+(prompt|instructions|rules)`,
		Level:       LevelHigh,
		Action:      ActionBlockAndAlert,
		Description: "attempt to extract system information",
	},
	{
		Name:        "reveal_prompt",
		Category:    CategoryDataExfiltration,
		Pattern:     `(reveal|display|print|output)\s+(your|the)\s+(original|initial|system)\s+(prompt|instructions)`,
		Level:       LevelHigh,
		Action:      ActionBlockAndAlert,
		Description: "attempt to reveal system prompt",
	},
	{
		Name:        "dump_data",
		Category:    CategoryDataExfiltration,
		Pattern:     `(dump|export|list|show)\s+(all\s+)?(users?|passwords?|secrets?|keys?|tokens?)`,
		Level:       LevelCritical,
		Action:      ActionBlockAndAlert,
		Description: "data exfiltration attempt",
	},
	{
		Name:        "access_database",
		Category:    CategoryDataExfiltration,
		Pattern:     `(access|query|dump)\s+(database|db|table|schema)`,
		Level:       LevelCritical,
		Action:      ActionBlockAndAlert,
		Description: "database access attempt",
	},

	// Bypass attempts
	{
		Name:        "hypothetical_scenario",
		Category:    CategoryBypassAttempt,
		Pattern:     `(hypothetically|imagine|suppose)\s+(if\s+)?you\s+(were|are)\s+(not\s+)?(bound|constrained|limited)`,
		Level:       LevelMedium,
		Action:      ActionBlockRequest,
		Description: "hypothetical bypass attempt",
	},
	{
		Name:        "jailbreak_keywords",
		Category:    CategoryBypassAttempt,
		Pattern:     `(jailbreak|bypass|hack|exploit|vulnerability)`,
		Level:       LevelMedium,
		Action:      ActionLogOnly,
		Description: "jailbreak-related keywords",
	},
	{
		Name:        "developer_mode",
		Category:    CategoryBypassAttempt,
		Pattern:     `(developer|debug|admin)\s+mode`,
		Level:       LevelHigh,
		Action:      ActionBlockAndAlert,
		Description: "developer mode activation attempt",
	},

	// Code / SQL injection
	{
		Name:        "script_injection",
		Category:    CategoryCodeInjection,
		Pattern:     `<script[^>]*>.*?</script>`,
		Level:       LevelHigh,
		Action:      ActionBlockAndAlert,
		Description: "script injection attempt",
	},
	{
		Name:        "system_tag_injection",
		Category:    CategoryCodeInjection,
		Pattern:     `<(system|admin|root|privileged)[^>]*>.*?</(system|admin|root|privileged)>`,
		Level:       LevelHigh,
		Action:      ActionBlockAndAlert,
		Description: "privileged tag injection attempt",
	},
	{
		Name:        "sql_injection_patterns",
		Category:    CategoryCodeInjection,
		Pattern:     `(union\s+select|drop\s+table|delete\s+from|insert\s+into)`,
		Level:       LevelHigh,
		Action:      ActionBlockAndAlert,
		Description: "SQL injection attempt",
	},

	// Social engineering
	{
		Name:        "urgent_request",
		Category:    CategorySocialEngineering,
		Pattern:     `(urgent|emergency|critical|immediately)\s+.*\s+(override|bypass|ignore)`,
		Level:       LevelMedium,
		Action:      ActionBlockRequest,
		Description: "social engineering with urgency",
	},
	{
		Name:        "authority_claim",
		Category:    CategorySocialEngineering,
		Pattern:     `i\s+am\s+(your|the)\s+(owner|creator|developer|admin)`,
		Level:       LevelHigh,
		Action:      ActionBlockAndAlert,
		Description: "false authority claim",
	},
}

// NormalizeContent collapses whitespace, decodes the common percent-escapes
// used to smuggle payloads past naive filters, and strips zero-width
// characters, before rule matching runs.
func NormalizeContent(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	content = strings.ReplaceAll(content, "%20", " ")
	content = strings.ReplaceAll(content, "%0A", "\n")
	content = strings.ReplaceAll(content, "%0D", "\r")
	content = strings.ReplaceAll(content, "​", "")
	content = strings.ReplaceAll(content, string(rune(0xFEFF)), "")
	return strings.TrimSpace(content)
}
