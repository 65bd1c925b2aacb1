package signature

import (
	"net/http"
	"strings"
)

const (
	ComponentHost          = "host"
	ComponentDate          = "date"
	ComponentVCDate        = "v-c-date"
	ComponentRequestTarget = "(request-target)"
	ComponentDigest        = "digest"
	ComponentMerchantID    = "v-c-merchant-id"
)

// Scheme is the ordered list of components a gateway endpoint expects in the
// signature. The same list drives the base string and the headers= parameter.
type Scheme struct {
	Name       string
	Components []string
}

var (
	// DateScheme signs the standard Date header.
	DateScheme = Scheme{
		Name:       "date",
		Components: []string{ComponentHost, ComponentDate, ComponentRequestTarget, ComponentDigest, ComponentMerchantID},
	}

	// VCDateScheme signs the gateway specific v-c-date header instead of Date.
	VCDateScheme = Scheme{
		Name:       "v-c-date",
		Components: []string{ComponentHost, ComponentVCDate, ComponentRequestTarget, ComponentDigest, ComponentMerchantID},
	}
)

func (s Scheme) dateComponent() string {
	for _, c := range s.Components {
		if c == ComponentDate || c == ComponentVCDate {
			return c
		}
	}
	return ""
}

// headerName maps a signed component to the HTTP header that transmits it.
// (request-target) has no header.
func headerName(component string) string {
	switch component {
	case ComponentRequestTarget:
		return ""
	case ComponentHost:
		return "Host"
	default:
		return http.CanonicalHeaderKey(component)
	}
}

func joinNames(components []component) string {
	names := make([]string, len(components))
	for i, c := range components {
		names[i] = c.name
	}
	return strings.Join(names, " ")
}
