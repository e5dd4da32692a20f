package anonymization

import (
	"context"
	"errors"
	"time"
)

// ErrNotSupported is returned by operations that are deliberately not
// implemented, such as de-anonymization.
var ErrNotSupported = errors.New("operation not supported")

// Store is the replaceable backend holding anonymization mappings. Every
// write is a single atomic key-set with its own TTL. Implementations must
// tolerate being unreachable; callers fall back to local storage on error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Ping(ctx context.Context) error
}
