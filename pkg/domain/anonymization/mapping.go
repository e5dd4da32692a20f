package anonymization

import (
	"time"

	"github.com/PromptSentry/PromptSentry/pkg/types"
)

// Mapping records the substitution applied to one original value within a
// request so the same value always anonymizes identically (entity linking).
type Mapping struct {
	OriginalValue string           `json:"original"`
	FakeValue     string           `json:"fake"`
	EntityType    types.EntityKind `json:"type"`
	CreatedAt     time.Time        `json:"created_at"`
}
