package embedding

import (
	"context"
	"errors"
)

var ErrProviderNonOKResponse = errors.New("non-OK response from embedding provider")

// Creator produces an embedding for a text. Implementations must be
// deterministic for equal input and safe for concurrent use.
type Creator interface {
	Generate(ctx context.Context, text string) (*Embedding, error)
}
