package recognizer

import "context"

// Entity is one span reported by the external named-entity recognizer.
// Offsets refer to the analyzed text.
type Entity struct {
	EntityType string  `json:"entity_type"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Score      float64 `json:"score"`
}

// Recognizer is the external PII recognition engine. It is a black box to
// the pipeline: spans in, spans out.
type Recognizer interface {
	Recognize(ctx context.Context, text, language string, entities []string, scoreThreshold float64) ([]Entity, error)
}
