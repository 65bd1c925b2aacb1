package logging

import (
	"encoding/json"
	"regexp"
	"strings"
)

// MaskPAN keeps the first six and last four digits of a card number.
func MaskPAN(pan string) string {
	if len(pan) < 12 {
		return strings.Repeat("*", len(pan))
	}
	return pan[:6] + strings.Repeat("*", len(pan)-10) + pan[len(pan)-4:]
}

const redacted = "[REDACTED]"

var cardNumberKeys = map[string]bool{
	"number":        true,
	"accountnumber": true,
	"cardnumber":    true,
	"pan":           true,
}

var secretKeys = map[string]bool{
	"securitycode":  true,
	"cvv":           true,
	"cvc":           true,
	"cardcode":      true,
	"secretkey":     true,
	"authorization": true,
	"signature":     true,
}

// Scrub returns a deep copy of v with card numbers masked and CVV, keys and
// signatures removed. v is expected to be decoded JSON.
func Scrub(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			lower := strings.ToLower(k)
			switch {
			case secretKeys[lower]:
				out[k] = redacted
			case cardNumberKeys[lower]:
				if s, ok := val.(string); ok {
					out[k] = MaskPAN(s)
				} else {
					out[k] = redacted
				}
			default:
				out[k] = Scrub(val)
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Scrub(val)
		}
		return out
	case string:
		return panInText.ReplaceAllStringFunc(t, MaskPAN)
	default:
		return v
	}
}

// panInText finds card-number shaped digit runs inside free text.
var panInText = regexp.MustCompile(`\b\d{12,19}\b`)

// ScrubJSON scrubs an encoded document. Bodies that are not JSON are kept as
// a masked string.
func ScrubJSON(raw []byte) json.RawMessage {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		v = string(raw)
	}
	out, err := json.Marshal(Scrub(v))
	if err != nil {
		return json.RawMessage(`null`)
	}
	return out
}
