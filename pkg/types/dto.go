package types

// CheckContentRequest is the body accepted by the check-content endpoint.
type CheckContentRequest struct {
	Content   string            `json:"content"`
	RequestID string            `json:"request_id"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// WireFinding is the serialized form of a Finding. The entity kind travels
// both as its closed integer code and as the string tag.
type WireFinding struct {
	TypeCode    int32   `json:"type_code"`
	Type        string  `json:"type"`
	Text        string  `json:"text"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
	Confidence  float64 `json:"confidence"`
	Category    string  `json:"category,omitempty"`
	Replacement string  `json:"replacement,omitempty"`
}

// CheckContentResponse is the wire form of a Verdict.
type CheckContentResponse struct {
	IsSafe       bool          `json:"is_safe"`
	RedactedText string        `json:"redacted_text"`
	Findings     []WireFinding `json:"findings"`
	Confidence   float64       `json:"confidence"`
	RequestID    string        `json:"request_id"`
}

// ToResponse maps a Verdict field-for-field onto the wire schema.
func (v *Verdict) ToResponse() CheckContentResponse {
	findings := make([]WireFinding, 0, len(v.Findings))
	for _, f := range v.Findings {
		findings = append(findings, WireFinding{
			TypeCode:    f.Kind.WireCode(),
			Type:        string(f.Kind),
			Text:        f.Text,
			Start:       f.Start,
			End:         f.End,
			Confidence:  f.Confidence,
			Category:    f.Category,
			Replacement: f.Replacement,
		})
	}
	return CheckContentResponse{
		IsSafe:       v.IsSafe,
		RedactedText: v.RedactedText,
		Findings:     findings,
		Confidence:   v.Confidence,
		RequestID:    v.RequestID,
	}
}
