package semantic

// DefaultPatterns mirrors the original's _initialize_threat_patterns table
// (security/semantic_analyzer.py), translated to Go regexp syntax.
var DefaultPatterns = []Pattern{
	{
		Name:                "direct_instruction_override",
		ThreatType:          ThreatPromptInjection,
		Regex:               `(ignore|forget|disregard|override).*(previous|prior|above|earlier).*(instruction|prompt|rule|guideline|direction)`,
		Keywords:            []string{"ignore", "forget", "disregard", "override", "bypass"},
		ContextKeywords:     []string{"instruction", "prompt", "rule", "system", "guideline"},
		ConfidenceThreshold: 0.8,
		Description:         "direct attempt to override system instructions",
	},
	{
		Name:                "system_prompt_revelation",
		ThreatType:          ThreatSystemPromptExtraction,
		Regex:               `(show|reveal|tell|display|print).*(system|initial|original|first|training).*(prompt|instruction|message|rule)`,
		Keywords:            []string{"show", "reveal", "tell", "display", "print", "output"},
		ContextKeywords:     []string{"system", "prompt", "instruction", "training", "initial"},
		ConfidenceThreshold: 0.9,
		Description:         "attempt to extract system prompts or instructions",
	},
	{
		Name:                "role_confusion_attack",
		ThreatType:          ThreatRoleConfusion,
		Regex:               `(you\s+are\s+now|act\s+as|pretend\s+to\s+be|roleplay\s+as).*(developer|admin|hacker|human|unrestricted|uncensored)`,
		Keywords:            []string{"act as", "pretend", "roleplay", "you are now", "simulate", "you are"},
		ContextKeywords:     []string{"developer", "admin", "hacker", "human", "unrestricted", "jailbreak", "helpful", "assistant"},
		ConfidenceThreshold: 0.6,
		Description:         "attempt to manipulate AI role or behavior",
	},
	{
		Name:                "context_injection",
		ThreatType:          ThreatContextManipulation,
		Regex:               `(in\s+a\s+hypothetical|imagine\s+if|what\s+if|suppose|pretend).*(no\s+rules|unrestricted|anything|everything)`,
		Keywords:            []string{"hypothetical", "imagine", "suppose", "pretend", "what if"},
		ContextKeywords:     []string{"no rules", "unrestricted", "anything", "everything", "allowed"},
		ConfidenceThreshold: 0.7,
		Description:         "hypothetical scenario to bypass restrictions",
	},
	{
		Name:                "false_authority",
		ThreatType:          ThreatAuthorityClaim,
		Regex:               `(i\s+am\s+(your|the|a)).*(owner|creator|developer|admin|supervisor|manager|boss)`,
		Keywords:            []string{"i am", "i'm", "i am a", "i am the", "i am your"},
		ContextKeywords:     []string{"owner", "creator", "developer", "admin", "supervisor", "boss", "system administrator"},
		ConfidenceThreshold: 0.7,
		Description:         "false claim of authority over the system",
	},
	{
		Name:                "urgency_manipulation",
		ThreatType:          ThreatUrgencyManipulation,
		Regex:               `(urgent|emergency|critical|immediately|asap|right\s+now).*(need|must|have\s+to).*(override|bypass|ignore|disable)`,
		Keywords:            []string{"urgent", "emergency", "critical", "immediately", "asap"},
		ContextKeywords:     []string{"override", "bypass", "ignore", "disable", "need", "must"},
		ConfidenceThreshold: 0.75,
		Description:         "using urgency to pressure system override",
	},
	{
		Name:                "technical_social_engineering",
		ThreatType:          ThreatSocialEngineering,
		Regex:               `(for\s+testing|debugging|security\s+audit|penetration\s+test).*(please\s+)?(ignore|bypass|disable|override)`,
		Keywords:            []string{"testing", "debugging", "audit", "penetration test", "security"},
		ContextKeywords:     []string{"ignore", "bypass", "disable", "override", "please"},
		ConfidenceThreshold: 0.8,
		Description:         "technical pretext for bypassing security",
	},
	{
		Name:                "multi_step_override",
		ThreatType:          ThreatInstructionOverride,
		Regex:               `(step\s+1|first|initially).*(then|next|after\s+that|finally).*(ignore|forget|override)`,
		Keywords:            []string{"step", "first", "then", "next", "finally"},
		ContextKeywords:     []string{"ignore", "forget", "override", "change", "modify"},
		ConfidenceThreshold: 0.7,
		Description:         "multi-step process to gradually override instructions",
	},
	{
		Name:                "conditional_override",
		ThreatType:          ThreatInstructionOverride,
		Regex:               `(if|when|unless|provided\s+that).*(ignore|override|bypass|disable).*(otherwise|else|then)`,
		Keywords:            []string{"if", "when", "unless", "provided that"},
		ContextKeywords:     []string{"ignore", "override", "bypass", "disable", "otherwise"},
		ConfidenceThreshold: 0.75,
		Description:         "conditional logic to trigger override",
	},
	{
		Name:                "conversation_reset",
		ThreatType:          ThreatContextManipulation,
		Regex:               `(start\s+over|new\s+conversation|reset|restart|clear\s+context|forget\s+everything)`,
		Keywords:            []string{"start over", "new conversation", "reset", "restart", "clear"},
		ContextKeywords:     []string{"context", "history", "everything", "memory", "previous"},
		ConfidenceThreshold: 0.6,
		Description:         "attempt to reset conversation context",
	},
	{
		Name:                "history_manipulation",
		ThreatType:          ThreatContextManipulation,
		Regex:               `(previous\s+conversation|earlier\s+chat|history\s+shows).*(said|told|agreed|confirmed)`,
		Keywords:            []string{"previous conversation", "earlier chat", "history shows"},
		ContextKeywords:     []string{"said", "told", "agreed", "confirmed", "established"},
		ConfidenceThreshold: 0.8,
		Description:         "false claims about conversation history",
	},
}
