package payment

import (
	"payment-service/internal/model"
)

// parseAuthentication reads the outcome of the authentication call. Evidence
// is taken from consumerAuthenticationInformation, falling back to top level
// fields.
func parseAuthentication(raw map[string]any) *model.AuthenticationResult {
	result := &model.AuthenticationResult{
		Status: model.AuthenticationStatus(stringField(raw, "status")),
		Raw:    raw,
	}

	info, _ := raw["consumerAuthenticationInformation"].(map[string]any)
	for _, source := range []map[string]any{info, raw} {
		if result.Evidence.CAVV == "" {
			result.Evidence.CAVV = stringField(source, "cavv")
		}
		if result.Evidence.ECI == "" {
			result.Evidence.ECI = firstField(source, "eciRaw", "eci")
		}
		if result.Evidence.XID == "" {
			result.Evidence.XID = stringField(source, "xid")
		}
	}
	return result
}

// failureReason extracts the gateway's explanation of a non-successful status.
func failureReason(raw map[string]any) string {
	if info, ok := raw["errorInformation"].(map[string]any); ok {
		if reason := firstField(info, "message", "reason"); reason != "" {
			return reason
		}
	}
	if info, ok := raw["consumerAuthenticationInformation"].(map[string]any); ok {
		if reason := firstField(info, "cardholderMessage", "authenticationStatusMsg"); reason != "" {
			return reason
		}
	}
	return firstField(raw, "message", "reason", "ErrorDescription")
}

func firstField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v := stringField(m, key); v != "" {
			return v
		}
	}
	return ""
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
