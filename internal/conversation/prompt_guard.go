package conversation

import (
	"regexp"
	"strings"
)

// PromptGuardResult contains the result of a prompt injection scan.
type PromptGuardResult struct {
	// Blocked is true if the message should NOT be sent to the LLM.
	Blocked bool
	// Score is a rough heuristic risk score (0.0 = safe, 1.0 = definitely injection).
	Score float64
	// Reasons lists the detection signals that fired.
	Reasons []string
}

// promptGuardPattern is a compiled regex with a reason label and weight.
type promptGuardPattern struct {
	re     *regexp.Regexp
	reason string
	weight float64
}

// blockThreshold: messages scoring above this are blocked outright.
const blockThreshold = 0.7

// Direct injection patterns — attempts to override system instructions.
var directInjectionPatterns = []promptGuardPattern{
	{regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier|your)\s+(instructions?|rules?|prompts?|guidelines?|directives?|programming)`), "direct_injection:ignore_instructions", 0.9},
	{regexp.MustCompile(`(?i)(disregard|forget)\s+(all\s+)?(previous|prior|above|earlier|your)\s+(instructions?|rules?|prompts?|guidelines?|directives?)`), "direct_injection:discard_instructions", 0.9},
	{regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|my)\s+`), "direct_injection:role_reassignment", 0.7},
	{regexp.MustCompile(`(?i)new\s+role\s*:|new\s+instructions?\s*:|system\s*prompt\s*:|<<\s*sys(tem)?\s*>>`), "direct_injection:new_role", 0.9},
	{regexp.MustCompile(`(?i)override\s+(your\s+)?(system|instructions?|rules?|safety|guidelines?)`), "direct_injection:override", 0.8},
	{regexp.MustCompile(`(?i)act\s+as\s+(if\s+)?(you\s+are\s+|you're\s+)?(a\s+|an\s+)?(?:different|new|unrestricted|unfiltered|jailbroken)`), "direct_injection:act_as", 0.8},
	{regexp.MustCompile(`(?i)(pretend|imagine|suppose|assume)\s+(that\s+)?(you\s+)?(are|have|were|don'?t\s+have)\s+(no\s+)?(rules?|restrictions?|limits?|boundaries|guidelines?|filters?|safety)`), "direct_injection:pretend_no_rules", 0.9},
	{regexp.MustCompile(`(?i)bypass\s+(your\s+)?(safety|filters?|restrictions?|guidelines?|rules?|content\s+policy)`), "direct_injection:bypass", 0.8},
	{regexp.MustCompile(`(?i)jailbreak|DAN\s*mode|developer\s*mode|unrestricted\s*mode|god\s*mode`), "direct_injection:jailbreak_keyword", 0.9},
}

// Exfiltration — attempts to extract the system prompt or internal data.
var exfiltrationPatterns = []promptGuardPattern{
	{regexp.MustCompile(`(?i)((reveal|show|display|print|output|repeat|tell)(\s+(me|us))?|what\s+(is|are))\s+(your\s+)?(system\s+prompt|instructions?|rules?|initial\s+prompt|hidden\s+prompt|system\s+message|original\s+prompt)`), "exfiltration:system_prompt", 0.8},
	{regexp.MustCompile(`(?i)(what|list|show|give|tell)\s+(me\s+)?(all\s+)?(the\s+)?other\s+(visitor|lead|customer)('?s)?s?\s+(data|info|names?|emails?|numbers?|records?|details?)`), "exfiltration:visitor_data", 0.7},
	{regexp.MustCompile(`(?i)\b(api|secret|openai|gemini|sendgrid|aws|database|db)\s*(key|token|secret|password|credential)s?\b`), "exfiltration:credentials_keyword", 0.8},
	{regexp.MustCompile(`(?i)repeat\s+(everything|all|the\s+text)\s+(above|before|from\s+the\s+start|from\s+the\s+beginning)`), "exfiltration:repeat_above", 0.7},
}

// Context manipulation — attempts to change the conversation frame.
var contextManipulationPatterns = []promptGuardPattern{
	{regexp.MustCompile(`(?i)\[/?INST\]|\[/?SYS\]|<\|im_start\|>|<\|im_end\|>|<\|system\|>|<\|user\|>|<\|assistant\|>`), "context_manipulation:special_tokens", 0.9},
	{regexp.MustCompile(`(?i)###\s*(system|instruction|human|assistant|user)\s*:`), "context_manipulation:role_markers", 0.7},
	{regexp.MustCompile(`(?i)the\s+real\s+(instructions?|task|prompt|conversation)\s+(is|starts?|begins?)`), "context_manipulation:real_instructions", 0.8},
}

// Obfuscation — markers that smuggle content past the model rather than
// instruct it directly. Warn-level: the message is sanitized, not blocked.
var obfuscationPatterns = []promptGuardPattern{
	{regexp.MustCompile(`(?i)<\s*(script|img|iframe|object|embed|link|style|svg|form)\b`), "obfuscation:html_injection", 0.4},
	{regexp.MustCompile(`!\[.*?\]\(https?://[^)]+\)`), "obfuscation:markdown_image", 0.3},
}

var allPromptGuardPatterns []promptGuardPattern

func init() {
	allPromptGuardPatterns = make([]promptGuardPattern, 0,
		len(directInjectionPatterns)+len(exfiltrationPatterns)+len(contextManipulationPatterns)+len(obfuscationPatterns))
	allPromptGuardPatterns = append(allPromptGuardPatterns, directInjectionPatterns...)
	allPromptGuardPatterns = append(allPromptGuardPatterns, exfiltrationPatterns...)
	allPromptGuardPatterns = append(allPromptGuardPatterns, contextManipulationPatterns...)
	allPromptGuardPatterns = append(allPromptGuardPatterns, obfuscationPatterns...)
}

// ScanForPromptInjection analyzes inbound visitor text for prompt injection
// attempts before it reaches the model.
func ScanForPromptInjection(message string) PromptGuardResult {
	if strings.TrimSpace(message) == "" {
		return PromptGuardResult{}
	}

	var reasons []string
	maxWeight := 0.0

	for _, p := range allPromptGuardPatterns {
		if p.re.MatchString(message) {
			reasons = append(reasons, p.reason)
			if p.weight > maxWeight {
				maxWeight = p.weight
			}
		}
	}

	// Multiple signals compound: add 0.1 per additional signal, capped at 1.0.
	score := maxWeight
	if len(reasons) > 1 {
		score = maxWeight + float64(len(reasons)-1)*0.1
		if score > 1.0 {
			score = 1.0
		}
	}

	return PromptGuardResult{
		Score:   score,
		Reasons: reasons,
		Blocked: score >= blockThreshold,
	}
}

var sanitizePatterns = []*regexp.Regexp{
	// Special token markers
	regexp.MustCompile(`(?i)\[/?INST\]|\[/?SYS\]|<\|im_start\|>|<\|im_end\|>|<\|system\|>|<\|user\|>|<\|assistant\|>`),
	// Fake role markers
	regexp.MustCompile(`(?i)###\s*(system|instruction|human|assistant|user)\s*:`),
	// HTML tags usable for injection
	regexp.MustCompile(`<\s*(script|img|iframe|object|embed|link|style|svg|form)\b[^>]*>`),
	// Markdown image exfiltration
	regexp.MustCompile(`!\[.*?\]\(https?://[^)]+\)`),
}

// SanitizeForLLM strips known injection markers from a message while keeping
// the legitimate content. Used for messages that scored below the block
// threshold but still carried signals.
func SanitizeForLLM(message string) string {
	cleaned := message
	for _, re := range sanitizePatterns {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	return strings.TrimSpace(cleaned)
}
