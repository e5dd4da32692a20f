package injection

import (
	"regexp"

	"github.com/PromptSentry/PromptSentry/pkg/types"
)

// Rule is one immutable compiled pattern with its classification metadata.
// Rules are loaded once at startup and shared read-only across requests;
// adding a rule is an addition to a table, not a new code path.
type Rule struct {
	Pattern     *regexp.Regexp
	Kind        types.EntityKind
	Category    string
	Confidence  float64
	Replacement string
}

const (
	categoryDirectInjection    = "direct_injection"
	categoryJailbreakAttempt   = "jailbreak_attempt"
	categoryEncodedInjection   = "encoded_injection"
	categorySuspiciousPattern  = "suspicious_pattern"
	categoryDelimiterInjection = "delimiter_injection"
)

func directInjectionRule(pattern string) Rule {
	return Rule{
		Pattern:     regexp.MustCompile(`(?i)` + pattern),
		Kind:        types.KindPromptInjection,
		Category:    categoryDirectInjection,
		Confidence:  0.9,
		Replacement: "<PROMPT_INJECTION_DETECTED>",
	}
}

func jailbreakRule(pattern string) Rule {
	return Rule{
		Pattern:     regexp.MustCompile(`(?i)` + pattern),
		Kind:        types.KindJailbreak,
		Category:    categoryJailbreakAttempt,
		Confidence:  0.8,
		Replacement: "<JAILBREAK_DETECTED>",
	}
}

// directInjectionRules cover OWASP LLM01-style direct injections:
// instruction override, system-prompt leakage, mode switching, DAN variants,
// chat-template escape tokens and structural injection markers.
var directInjectionRules = []Rule{
	// Instruction override attempts; qualifiers may stack ("all previous")
	directInjectionRule(`ignore\s+((previous|all|above|prior)\s+)+(instructions?|prompts?|commands?|rules?)`),
	directInjectionRule(`disregard\s+((previous|all|above|prior)\s+)+(instructions?|prompts?|commands?|rules?)`),
	directInjectionRule(`forget\s+((previous|all|above|prior)\s+)+(instructions?|prompts?|commands?|rules?)`),
	directInjectionRule(`override\s+((previous|all|above|prior)\s+)+(instructions?|prompts?|commands?|rules?)`),
	// System prompt leakage attempts
	directInjectionRule(`(show|tell|display|reveal|print|output)\s+(me\s+)?(your|the)\s+(system\s+)?(prompt|instructions?|rules?)`),
	directInjectionRule(`what\s+(are|is)\s+your\s+(system\s+)?(prompt|instructions?|rules?)`),
	directInjectionRule(`repeat\s+(your|the)\s+(system\s+)?(prompt|instructions?)`),
	// Role-playing / mode switching
	directInjectionRule(`you\s+are\s+now\s+(in|a|an)\s+(developer|admin|debug|god)\s+mode`),
	directInjectionRule(`enable\s+(developer|admin|debug|god)\s+mode`),
	directInjectionRule(`(act|pretend|behave)\s+as\s+(if\s+you\s+are\s+)?(a|an)\s+(jailbroken|unrestricted|evil|malicious|hacker)`),
	directInjectionRule(`from\s+now\s+on,?\s+you\s+(are|will\s+be|should\s+be)`),
	// DAN (Do Anything Now) variants
	directInjectionRule(`\bDAN\b.*mode`),
	directInjectionRule(`do\s+anything\s+now`),
	// Escape sequence attempts
	directInjectionRule(`<\|im_(start|end)\|>`),
	directInjectionRule(`\[INST\].*\[/INST\]`),
	directInjectionRule(`###\s*(Instruction|System|Human|Assistant)`),
	// Delimiter-framed end/start of prompt markers
	directInjectionRule(`---+\s*(end|start)\s+of\s+(prompt|instructions?)`),
	directInjectionRule(`\*\*\*+\s*(end|start)\s+of\s+(prompt|instructions?)`),
	// Encoded payload indicators
	directInjectionRule(`base64:`),
	directInjectionRule(`eval\s*\(`),
	directInjectionRule(`exec\s*\(`),
	// XML/JSON structural injection
	directInjectionRule(`<\s*system\s*>`),
	directInjectionRule(`<\s*instruction\s*>`),
	directInjectionRule(`"role"\s*:\s*"system"`),
	// Multilingual injection probes ("translate" in other languages)
	directInjectionRule(`traduire|traduzir|übersetzen|翻译`),
}

// jailbreakRules match softer rhetorical framings that precede or wrap a
// jailbreak payload.
var jailbreakRules = []Rule{
	jailbreakRule(`hypothetically`),
	jailbreakRule(`in\s+a\s+fictional\s+(world|universe|scenario|story)`),
	jailbreakRule(`for\s+(educational|research|academic)\s+purposes\s+only`),
	jailbreakRule(`no\s+consequences`),
	jailbreakRule(`without\s+any\s+(restrictions?|limitations?|filters?|guidelines?)`),
	jailbreakRule(`bypass\s+(safety|content)\s+(filters?|guidelines?|restrictions?)`),
	jailbreakRule(`unfiltered\s+response`),
	jailbreakRule(`(pretend|imagine)\s+you\s+have\s+no\s+(restrictions?|limitations?|ethics?)`),
}

// base64Pattern spots base64-shaped substrings long enough to carry a payload.
var base64Pattern = regexp.MustCompile(`[A-Za-z0-9+/]{20,}={0,2}`)

// suspiciousKeywords flag a decoded payload as an injection attempt.
var suspiciousKeywords = []string{
	"system",
	"prompt",
	"instruction",
	"ignore",
	"override",
	"admin",
}

// delimiterPatterns are glyph runs commonly used to fence injected prompt
// sections. A single run is not suspicious; two or more of the same family is.
var delimiterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`-{3,}`),
	regexp.MustCompile(`={3,}`),
	regexp.MustCompile(`\*{3,}`),
	regexp.MustCompile(`#{3,}`),
}
