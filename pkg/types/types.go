package types

// EntityKind identifies the class of a detected finding. The set is closed:
// adding a kind requires updating the wire mapping below so serialization
// stays a compile-time checked change.
type EntityKind string

const (
	KindUnknown               EntityKind = "UNKNOWN"
	KindEmail                 EntityKind = "EMAIL"
	KindPhone                 EntityKind = "PHONE"
	KindSSN                   EntityKind = "SSN"
	KindCreditCard            EntityKind = "CREDIT_CARD"
	KindIPAddress             EntityKind = "IP_ADDRESS"
	KindPerson                EntityKind = "PERSON"
	KindLocation              EntityKind = "LOCATION"
	KindAPIKey                EntityKind = "API_KEY"
	KindPromptInjection       EntityKind = "PROMPT_INJECTION"
	KindJailbreak             EntityKind = "JAILBREAK"
	KindEncodedPayload        EntityKind = "ENCODED_PAYLOAD"
	KindExcessiveSpecialChars EntityKind = "EXCESSIVE_SPECIAL_CHARS"
	KindMLJailbreak           EntityKind = "ML_JAILBREAK"
)

var wireCodes = map[EntityKind]int32{
	KindUnknown:               0,
	KindEmail:                 1,
	KindPhone:                 2,
	KindSSN:                   3,
	KindCreditCard:            4,
	KindIPAddress:             5,
	KindPerson:                6,
	KindLocation:              7,
	KindAPIKey:                8,
	KindPromptInjection:       9,
	KindJailbreak:             10,
	KindEncodedPayload:        11,
	KindExcessiveSpecialChars: 12,
	KindMLJailbreak:           13,
}

// WireCode returns the closed integer code used on the wire. Kinds outside
// the closed set map to the UNKNOWN code instead of failing serialization.
func (k EntityKind) WireCode() int32 {
	if code, ok := wireCodes[k]; ok {
		return code
	}
	return wireCodes[KindUnknown]
}

// ParseEntityKind maps a recognizer tag to a member of the closed set.
// PHONE_NUMBER is the tag used by the external recognizer for PHONE.
func ParseEntityKind(tag string) EntityKind {
	if tag == "PHONE_NUMBER" {
		return KindPhone
	}
	kind := EntityKind(tag)
	if _, ok := wireCodes[kind]; ok {
		return kind
	}
	return KindUnknown
}

// Finding is a single detected issue. Start and End are byte offsets into the
// original input text, never post-mutation offsets.
type Finding struct {
	Kind        EntityKind `json:"type"`
	Text        string     `json:"text"`
	Start       int        `json:"start"`
	End         int        `json:"end"`
	Confidence  float64    `json:"confidence"`
	Category    string     `json:"category"`
	Replacement string     `json:"replacement"`
}

// Verdict is the aggregated outcome of one content check.
type Verdict struct {
	IsSafe       bool      `json:"is_safe"`
	RedactedText string    `json:"redacted_text"`
	Findings     []Finding `json:"findings"`
	Confidence   float64   `json:"confidence"`
	RequestID    string    `json:"request_id"`
}
