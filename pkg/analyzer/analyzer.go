package analyzer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/PromptSentry/PromptSentry/pkg/config"
	"github.com/PromptSentry/PromptSentry/pkg/detectors/anonymizer"
	"github.com/PromptSentry/PromptSentry/pkg/detectors/injection"
	"github.com/PromptSentry/PromptSentry/pkg/detectors/semantic"
	"github.com/PromptSentry/PromptSentry/pkg/domain/recognizer"
	"github.com/PromptSentry/PromptSentry/pkg/types"
)

// Validation errors returned by CheckContent before any detector runs.
var (
	ErrEmptyContent    = errors.New("content must not be empty")
	ErrContentTooLarge = errors.New("content exceeds maximum allowed length")
)

// Analyzer runs every enabled detection stage over one piece of content and
// merges their outputs into a single verdict. A failing stage never blocks
// the others: each detector degrades to its own fail-open confidence.
type Analyzer struct {
	cfg        *config.SecurityConfig
	injection  *injection.Detector
	semantic   *semantic.Scorer
	anonymizer *anonymizer.Anonymizer
	recognizer recognizer.Recognizer
	logger     *logrus.Logger
}

func NewAnalyzer(
	cfg *config.SecurityConfig,
	injectionDetector *injection.Detector,
	semanticScorer *semantic.Scorer,
	entityAnonymizer *anonymizer.Anonymizer,
	entityRecognizer recognizer.Recognizer,
	logger *logrus.Logger,
) *Analyzer {
	return &Analyzer{
		cfg:        cfg,
		injection:  injectionDetector,
		semantic:   semanticScorer,
		anonymizer: entityAnonymizer,
		recognizer: entityRecognizer,
		logger:     logger,
	}
}

// CheckContent validates the input, runs the PII, pattern and semantic stages
// and aggregates their findings. Findings keep PII first, then pattern, then
// semantic. Overall confidence is the mean of one sample per enabled stage;
// a stage that found nothing contributes 1.0. With every stage disabled the
// verdict is safe with confidence 1.0.
func (a *Analyzer) CheckContent(
	ctx context.Context,
	content string,
	requestID string,
	metadata map[string]string,
) (*types.Verdict, error) {
	if len(content) < a.cfg.MinContentLength {
		return nil, ErrEmptyContent
	}
	if len(content) > a.cfg.MaxContentLength {
		return nil, ErrContentTooLarge
	}

	var (
		findings          []types.Finding
		confidenceSamples []float64
	)

	redactedText := content

	if a.cfg.PII.Enabled {
		piiFindings, confidence := a.detectPII(ctx, content)
		confidenceSamples = append(confidenceSamples, confidence)
		findings = append(findings, piiFindings...)

		if len(piiFindings) > 0 {
			redactedText = a.rewritePII(ctx, content, piiFindings, requestID)
		}
	}

	var patternFindings []types.Finding
	if a.injection != nil && a.injection.Enabled() {
		var confidence float64
		patternFindings, confidence = a.injection.Evaluate(content)
		confidenceSamples = append(confidenceSamples, confidence)
		findings = append(findings, patternFindings...)
	}

	var semanticFindings []types.Finding
	if a.semantic != nil && a.semantic.Enabled() {
		var (
			confidence float64
			meta       semantic.Metadata
		)
		semanticFindings, confidence, meta = a.semantic.Score(ctx, content)
		confidenceSamples = append(confidenceSamples, confidence)
		findings = append(findings, semanticFindings...)

		a.logDetectorAgreement(patternFindings, semanticFindings, meta, requestID)
	}

	verdict := &types.Verdict{
		IsSafe:       len(findings) == 0,
		RedactedText: redactedText,
		Findings:     findings,
		Confidence:   meanConfidence(confidenceSamples),
		RequestID:    requestID,
	}

	a.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"is_safe":    verdict.IsSafe,
		"findings":   len(verdict.Findings),
		"confidence": verdict.Confidence,
		"metadata":   metadata,
	}).Info("content check completed")

	return verdict, nil
}

// detectPII queries the external recognizer and converts its entities into
// findings. Recognizer failure fails open with confidence 0.5 and no
// findings.
func (a *Analyzer) detectPII(ctx context.Context, content string) ([]types.Finding, float64) {
	if a.recognizer == nil {
		return nil, 1.0
	}

	entities, err := a.recognizer.Recognize(
		ctx,
		content,
		a.cfg.PII.Language,
		a.cfg.PII.Entities,
		a.cfg.PII.ConfidenceThreshold,
	)
	if err != nil {
		a.logger.WithError(err).Error("pii recognition failed, failing open")
		return nil, 0.5
	}

	if len(entities) == 0 {
		return nil, 1.0
	}

	findings := make([]types.Finding, 0, len(entities))
	for _, entity := range entities {
		if entity.Start < 0 || entity.End > len(content) || entity.Start >= entity.End {
			a.logger.WithFields(logrus.Fields{
				"entity_type": entity.EntityType,
				"start":       entity.Start,
				"end":         entity.End,
			}).Warn("skipping recognizer entity with invalid span")
			continue
		}

		kind := types.ParseEntityKind(entity.EntityType)
		findings = append(findings, types.Finding{
			Kind:        kind,
			Text:        content[entity.Start:entity.End],
			Start:       entity.Start,
			End:         entity.End,
			Confidence:  entity.Score,
			Category:    "pii",
			Replacement: fmt.Sprintf("<%s_REDACTED>", kind),
		})
	}

	if len(findings) == 0 {
		return nil, 1.0
	}

	minScore := findings[0].Confidence
	for _, finding := range findings[1:] {
		if finding.Confidence < minScore {
			minScore = finding.Confidence
		}
	}
	return findings, minScore
}

// rewritePII produces the text that is safe to forward. With anonymization
// enabled entities become realistic fakes, otherwise fixed redaction tokens.
func (a *Analyzer) rewritePII(ctx context.Context, content string, piiFindings []types.Finding, requestID string) string {
	if a.anonymizer == nil {
		return content
	}
	if a.anonymizer.Enabled() {
		anonymized, _ := a.anonymizer.Anonymize(ctx, content, piiFindings, requestID)
		return anonymized
	}
	return a.anonymizer.Redact(content, piiFindings)
}

// logDetectorAgreement records whether the pattern and semantic stages reached
// the same conclusion. Disagreement is a signal for tuning thresholds, not an
// error.
func (a *Analyzer) logDetectorAgreement(patternFindings, semanticFindings []types.Finding, meta semantic.Metadata, requestID string) {
	patternFlagged := len(patternFindings) > 0
	semanticFlagged := len(semanticFindings) > 0

	a.logger.WithFields(logrus.Fields{
		"request_id":       requestID,
		"pattern_flagged":  patternFlagged,
		"semantic_flagged": semanticFlagged,
		"agree":            patternFlagged == semanticFlagged,
		"risk_score":       meta.RiskScore,
		"method":           meta.Method,
	}).Debug("pattern and semantic detector comparison")
}

func meanConfidence(samples []float64) float64 {
	if len(samples) == 0 {
		return 1.0
	}
	var sum float64
	for _, sample := range samples {
		sum += sample
	}
	return sum / float64(len(samples))
}
