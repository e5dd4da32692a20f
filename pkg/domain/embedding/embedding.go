package embedding

import "time"

// Embedding is a fixed-length vector representation of a text.
type Embedding struct {
	Value     []float64 `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}
