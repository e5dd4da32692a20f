package injection

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/PromptSentry/PromptSentry/pkg/types"
)

const (
	// encodedTextLimit truncates displayed payload text for safe logging.
	encodedTextLimit = 50

	// failOpenConfidence is reported when the engine itself faults: zero
	// findings with flagged low confidence, never a pipeline failure.
	failOpenConfidence = 0.5
)

type Config struct {
	Enabled              bool
	SpecialCharThreshold float64
}

// Detector is the pattern rule engine. It evaluates five independent rule
// families against raw text and reports findings with an aggregate
// confidence. Safe for concurrent use: all rule tables are read-only.
type Detector struct {
	cfg    Config
	logger *logrus.Logger
}

func NewDetector(cfg Config, logger *logrus.Logger) (*Detector, error) {
	if cfg.SpecialCharThreshold < 0 || cfg.SpecialCharThreshold > 1 {
		return nil, fmt.Errorf("special char threshold must be between 0 and 1, got %f", cfg.SpecialCharThreshold)
	}
	return &Detector{cfg: cfg, logger: logger}, nil
}

func (d *Detector) Enabled() bool {
	return d.cfg.Enabled
}

// Evaluate runs all rule families over text. Findings are concatenated in
// family insertion order. Aggregate confidence grows with the number of
// independent signals but never saturates: min(0.95, 0.7 + 0.1*n), or 1.0
// when clean.
func (d *Detector) Evaluate(text string) (findings []types.Finding, confidence float64) {
	if !d.cfg.Enabled {
		return nil, 1.0
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.WithField("panic", r).Error("prompt injection detection failed")
			findings = nil
			confidence = failOpenConfidence
		}
	}()

	findings = append(findings, matchRules(directInjectionRules, text)...)
	findings = append(findings, matchRules(jailbreakRules, text)...)
	findings = append(findings, d.checkEncodedPayloads(text)...)
	findings = append(findings, d.checkSpecialCharacters(text)...)
	findings = append(findings, d.checkDelimiterInjection(text)...)

	if len(findings) == 0 {
		return nil, 1.0
	}

	confidence = 0.7 + 0.1*float64(len(findings))
	if confidence > 0.95 {
		confidence = 0.95
	}

	d.logger.WithFields(logrus.Fields{
		"indicators": len(findings),
		"confidence": confidence,
	}).Warn("prompt injection indicators detected")

	return findings, confidence
}

func matchRules(rules []Rule, text string) []types.Finding {
	var findings []types.Finding
	for _, rule := range rules {
		for _, loc := range rule.Pattern.FindAllStringIndex(text, -1) {
			findings = append(findings, types.Finding{
				Kind:        rule.Kind,
				Text:        text[loc[0]:loc[1]],
				Start:       loc[0],
				End:         loc[1],
				Confidence:  rule.Confidence,
				Category:    rule.Category,
				Replacement: rule.Replacement,
			})
		}
	}
	return findings
}

// checkEncodedPayloads decodes base64-shaped substrings and flags those whose
// cleartext contains a suspicious keyword. Strings that fail to decode are
// skipped silently: not valid base64, not an error.
func (d *Detector) checkEncodedPayloads(text string) []types.Finding {
	var findings []types.Finding
	for _, loc := range base64Pattern.FindAllStringIndex(text, -1) {
		candidate := text[loc[0]:loc[1]]

		decoded, err := base64.StdEncoding.DecodeString(candidate)
		if err != nil {
			continue
		}

		decodedText := strings.ToLower(string(decoded))
		suspicious := false
		for _, keyword := range suspiciousKeywords {
			if strings.Contains(decodedText, keyword) {
				suspicious = true
				break
			}
		}
		if !suspicious {
			continue
		}

		display := candidate
		if len(display) > encodedTextLimit {
			display = display[:encodedTextLimit]
		}

		findings = append(findings, types.Finding{
			Kind:        types.KindEncodedPayload,
			Text:        display + "...",
			Start:       loc[0],
			End:         loc[1],
			Confidence:  0.85,
			Category:    categoryEncodedInjection,
			Replacement: "<ENCODED_PAYLOAD_DETECTED>",
		})
	}
	return findings
}

// checkSpecialCharacters emits one synthetic zero-span finding when the ratio
// of special characters exceeds the configured threshold. Empty text
// short-circuits to no finding.
func (d *Detector) checkSpecialCharacters(text string) []types.Finding {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	special := 0
	for _, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			special++
		}
	}

	ratio := float64(special) / float64(len(runes))
	if ratio <= d.cfg.SpecialCharThreshold {
		return nil
	}

	return []types.Finding{{
		Kind:       types.KindExcessiveSpecialChars,
		Text:       fmt.Sprintf("Special character ratio: %.2f%%", ratio*100),
		Start:      0,
		End:        0,
		Confidence: 0.7,
		Category:   categorySuspiciousPattern,
	}}
}

// checkDelimiterInjection reports every run of a delimiter family when the
// family occurs at least twice. A single run is ordinary formatting.
func (d *Detector) checkDelimiterInjection(text string) []types.Finding {
	var findings []types.Finding
	for _, pattern := range delimiterPatterns {
		locs := pattern.FindAllStringIndex(text, -1)
		if len(locs) < 2 {
			continue
		}
		for _, loc := range locs {
			findings = append(findings, types.Finding{
				Kind:       types.KindPromptInjection,
				Text:       text[loc[0]:loc[1]],
				Start:      loc[0],
				End:        loc[1],
				Confidence: 0.6,
				Category:   categoryDelimiterInjection,
			})
		}
	}
	return findings
}
