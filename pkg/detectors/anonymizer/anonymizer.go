package anonymizer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/PromptSentry/PromptSentry/pkg/domain/anonymization"
	"github.com/PromptSentry/PromptSentry/pkg/infra/cache"
	"github.com/PromptSentry/PromptSentry/pkg/types"
)

const mappingKeyPattern = "anon:%s:%s"

type Config struct {
	Enabled    bool
	MappingTTL time.Duration
}

// Anonymizer replaces PII spans with format-preserving substitutes and keeps
// a reversible mapping per request. Mappings live in the external store when
// reachable and fall back to an in-process TTL map otherwise; either way the
// same original value always anonymizes to the same fake within a request.
type Anonymizer struct {
	cfg    Config
	store  anonymization.Store
	local  *cache.TTLMap
	logger *logrus.Logger
}

// NewAnonymizer builds the anonymizer. store may be nil, in which case only
// the local fallback map is used.
func NewAnonymizer(cfg Config, store anonymization.Store, logger *logrus.Logger) (*Anonymizer, error) {
	if cfg.MappingTTL <= 0 {
		return nil, fmt.Errorf("mapping TTL must be positive, got %s", cfg.MappingTTL)
	}

	a := &Anonymizer{
		cfg:    cfg,
		store:  store,
		local:  cache.NewTTLMap(cfg.MappingTTL),
		logger: logger,
	}

	if cfg.Enabled && store != nil {
		if err := store.Ping(context.Background()); err != nil {
			logger.WithError(err).Warn("mapping store unreachable, using local cache")
		}
	}

	return a, nil
}

func (a *Anonymizer) Enabled() bool {
	return a.cfg.Enabled
}

// Anonymize replaces every entity span in text with a substitute value and
// returns the rewritten text plus the original-to-fake mapping. Findings are
// processed sorted by start offset descending so a replacement never
// invalidates the offsets of spans not yet processed. Disabled or empty
// input returns text unchanged.
func (a *Anonymizer) Anonymize(
	ctx context.Context,
	text string,
	findings []types.Finding,
	requestID string,
) (string, map[string]string) {
	if !a.cfg.Enabled || len(findings) == 0 {
		return text, map[string]string{}
	}

	sorted := sortedByStartDesc(findings)

	anonymized := text
	mappings := make(map[string]string, len(sorted))

	for _, finding := range sorted {
		if finding.Start < 0 || finding.End > len(anonymized) || finding.Start > finding.End {
			a.logger.WithFields(logrus.Fields{
				"start": finding.Start,
				"end":   finding.End,
			}).Warn("skipping finding with invalid span")
			continue
		}

		original := finding.Text
		fake := a.resolveFakeValue(ctx, original, finding.Kind, requestID)

		anonymized = anonymized[:finding.Start] + fake + anonymized[finding.End:]
		mappings[original] = fake

		a.storeMapping(ctx, requestID, original, fake, finding.Kind)
	}

	a.logger.WithFields(logrus.Fields{
		"entities":   len(sorted),
		"request_id": requestID,
	}).Info("anonymized entities")

	return anonymized, mappings
}

// Redact replaces each entity span with its fixed replacement token. Used
// when realistic substitution is disabled but PII must still not reach the
// model.
func (a *Anonymizer) Redact(text string, findings []types.Finding) string {
	redacted := text
	for _, finding := range sortedByStartDesc(findings) {
		if finding.Start < 0 || finding.End > len(redacted) || finding.Start > finding.End {
			continue
		}
		replacement := finding.Replacement
		if replacement == "" {
			replacement = fmt.Sprintf("<%s_REDACTED>", finding.Kind)
		}
		redacted = redacted[:finding.Start] + replacement + redacted[finding.End:]
	}
	return redacted
}

// DeAnonymize is a privileged operation that is deliberately not
// implemented: it always reports failure rather than guessing a reversal.
func (a *Anonymizer) DeAnonymize(_ context.Context, text, _ string) (string, error) {
	a.logger.Warn("de-anonymization requested but not supported")
	return text, fmt.Errorf("de-anonymization: %w", anonymization.ErrNotSupported)
}

// resolveFakeValue reuses the cached substitute for this (request, value)
// pair when present, otherwise synthesizes one by entity kind.
func (a *Anonymizer) resolveFakeValue(ctx context.Context, original string, kind types.EntityKind, requestID string) string {
	key := fmt.Sprintf(mappingKeyPattern, requestID, original)
	if cached, ok := a.lookupMapping(ctx, key); ok {
		return cached
	}
	return fakeValueFor(kind, original)
}

// fakeValueFor synthesizes a substitute per entity kind. Sensitive numbers
// are redacted, never replaced with a realistic-looking fake.
func fakeValueFor(kind types.EntityKind, original string) string {
	switch kind {
	case types.KindEmail:
		return fakeEmail(original)
	case types.KindPhone:
		return fakePhone(original)
	case types.KindPerson:
		return fakePerson(original)
	case types.KindLocation:
		return fakeLocation(original)
	case types.KindCreditCard, types.KindSSN:
		return fmt.Sprintf("<%s_REDACTED>", kind)
	case types.KindIPAddress:
		return fakeIP(original)
	case types.KindAPIKey:
		return fmt.Sprintf("<%s_REDACTED>", kind)
	default:
		return fmt.Sprintf("<%s_ANONYMIZED>", kind)
	}
}

func (a *Anonymizer) lookupMapping(ctx context.Context, key string) (string, bool) {
	if a.store != nil {
		value, found, err := a.store.Get(ctx, key)
		if err != nil {
			a.logger.WithError(err).Error("failed to read mapping from store")
		} else if found {
			var mapping anonymization.Mapping
			if jsonErr := json.Unmarshal([]byte(value), &mapping); jsonErr == nil {
				return mapping.FakeValue, true
			}
		}
	}

	if value, ok := a.local.Get(key); ok {
		var mapping anonymization.Mapping
		if err := json.Unmarshal([]byte(value), &mapping); err == nil {
			return mapping.FakeValue, true
		}
	}
	return "", false
}

// storeMapping writes one atomic key-set with TTL. Backend failures fall
// back to the local map without failing the request.
func (a *Anonymizer) storeMapping(ctx context.Context, requestID, original, fake string, kind types.EntityKind) {
	mapping := anonymization.Mapping{
		OriginalValue: original,
		FakeValue:     fake,
		EntityType:    kind,
		CreatedAt:     time.Now(),
	}

	payload, err := json.Marshal(mapping)
	if err != nil {
		a.logger.WithError(err).Error("failed to marshal anonymization mapping")
		return
	}

	key := fmt.Sprintf(mappingKeyPattern, requestID, original)

	if a.store != nil {
		err := a.store.Set(ctx, key, string(payload), a.cfg.MappingTTL)
		if err == nil {
			return
		}
		a.logger.WithError(err).Error("failed to store mapping in backend, falling back to local cache")
	}

	a.local.SetWithTTL(key, string(payload), a.cfg.MappingTTL)
}

func sortedByStartDesc(findings []types.Finding) []types.Finding {
	sorted := make([]types.Finding, len(findings))
	copy(sorted, findings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start > sorted[j].Start
	})
	return sorted
}
