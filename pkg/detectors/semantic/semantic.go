package semantic

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/PromptSentry/PromptSentry/pkg/domain/embedding"
	"github.com/PromptSentry/PromptSentry/pkg/types"
)

const (
	methodSimilarity = "semantic_similarity"
	methodDisabled   = "disabled"
	methodError      = "error"

	// displayTextLimit truncates the flagged input for safe logging.
	displayTextLimit = 100

	// safeWeight discounts the risk score for inputs that also resemble
	// benign exemplars.
	safeWeight = 0.5

	errorConfidence = 0.5
)

// Metadata is always returned regardless of outcome; it feeds offline A/B
// comparison against the pattern engine.
type Metadata struct {
	Method           string  `json:"method"`
	InferenceTimeMS  float64 `json:"inference_time_ms,omitempty"`
	UnsafeSimilarity float64 `json:"unsafe_similarity,omitempty"`
	SafeSimilarity   float64 `json:"safe_similarity,omitempty"`
	RiskScore        float64 `json:"risk_score,omitempty"`
	Threshold        float64 `json:"threshold,omitempty"`
}

type Config struct {
	Enabled   bool
	Threshold float64
}

// Scorer detects jailbreak attempts by embedding the input and comparing it
// against curated unsafe and safe exemplar sets. When no embedder is
// available the scorer is disabled and always reports clean.
type Scorer struct {
	cfg        Config
	embedder   embedding.Creator
	unsafeVecs [][]float64
	safeVecs   [][]float64
	enabled    bool
	logger     *logrus.Logger
}

// NewScorer embeds both exemplar sets up front. A nil embedder disables the
// scorer rather than erroring: the rest of the pipeline tolerates a missing
// embedding model.
func NewScorer(ctx context.Context, cfg Config, embedder embedding.Creator, logger *logrus.Logger) (*Scorer, error) {
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("semantic threshold must be between 0 and 1, got %f", cfg.Threshold)
	}

	s := &Scorer{
		cfg:      cfg,
		embedder: embedder,
		logger:   logger,
	}

	if !cfg.Enabled || embedder == nil {
		logger.Warn("semantic risk scorer disabled")
		return s, nil
	}

	start := time.Now()
	unsafeVecs, err := embedAll(ctx, embedder, unsafeExemplars)
	if err != nil {
		return nil, fmt.Errorf("failed to embed unsafe exemplars: %w", err)
	}
	safeVecs, err := embedAll(ctx, embedder, safeExemplars)
	if err != nil {
		return nil, fmt.Errorf("failed to embed safe exemplars: %w", err)
	}

	s.unsafeVecs = unsafeVecs
	s.safeVecs = safeVecs
	s.enabled = true

	logger.WithFields(logrus.Fields{
		"exemplars": len(unsafeExemplars) + len(safeExemplars),
		"threshold": cfg.Threshold,
		"load_ms":   time.Since(start).Milliseconds(),
	}).Info("semantic risk scorer initialized")

	return s, nil
}

func (s *Scorer) Enabled() bool {
	return s.enabled
}

// Score embeds text and computes risk = max_unsafe_sim - 0.5*max_safe_sim.
// One finding is emitted when risk strictly exceeds the threshold. Embedding
// errors fail open with zero findings and flagged low confidence.
func (s *Scorer) Score(ctx context.Context, text string) ([]types.Finding, float64, Metadata) {
	if !s.enabled {
		return nil, 1.0, Metadata{Method: methodDisabled}
	}

	start := time.Now()

	emb, err := s.embedder.Generate(ctx, text)
	if err != nil {
		s.logger.WithError(err).Error("semantic jailbreak detection failed")
		return nil, errorConfidence, Metadata{Method: methodError}
	}

	vector := normalized(emb.Value)
	maxUnsafe := maxSimilarity(vector, s.unsafeVecs)
	maxSafe := maxSimilarity(vector, s.safeVecs)
	riskScore := maxUnsafe - safeWeight*maxSafe

	meta := Metadata{
		Method:           methodSimilarity,
		InferenceTimeMS:  float64(time.Since(start).Microseconds()) / 1000.0,
		UnsafeSimilarity: maxUnsafe,
		SafeSimilarity:   maxSafe,
		RiskScore:        riskScore,
		Threshold:        s.cfg.Threshold,
	}

	if riskScore <= s.cfg.Threshold {
		s.logger.WithFields(logrus.Fields{
			"risk_score": riskScore,
			"threshold":  s.cfg.Threshold,
		}).Debug("semantic jailbreak check passed")
		return nil, 1.0, meta
	}

	confidence := math.Min(0.95, riskScore)

	display := text
	if len(display) > displayTextLimit {
		display = display[:displayTextLimit]
	}

	s.logger.WithFields(logrus.Fields{
		"risk_score": riskScore,
		"threshold":  s.cfg.Threshold,
	}).Warn("semantic jailbreak detected")

	finding := types.Finding{
		Kind:        types.KindMLJailbreak,
		Text:        display,
		Start:       0,
		End:         len(text),
		Confidence:  confidence,
		Category:    "ml_jailbreak_detection",
		Replacement: "<ML_JAILBREAK_DETECTED>",
	}
	return []types.Finding{finding}, confidence, meta
}

func embedAll(ctx context.Context, embedder embedding.Creator, texts []string) ([][]float64, error) {
	vectors := make([][]float64, 0, len(texts))
	for _, text := range texts {
		emb, err := embedder.Generate(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, normalized(emb.Value))
	}
	return vectors, nil
}

// normalized returns an L2-normalized copy so cosine similarity reduces to a
// dot product.
func normalized(v []float64) []float64 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += val * val
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return v
	}
	out := make([]float64, len(v))
	for i, val := range v {
		out[i] = val / norm
	}
	return out
}

func maxSimilarity(vector []float64, exemplars [][]float64) float64 {
	best := math.Inf(-1)
	for _, exemplar := range exemplars {
		if sim := dot(vector, exemplar); sim > best {
			best = sim
		}
	}
	if math.IsInf(best, -1) {
		return 0
	}
	return best
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
