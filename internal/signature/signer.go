package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"payment-service/internal/model"

	"github.com/pkg/errors"
)

const Algorithm = "HmacSHA256"

// SignedRequest is derived per call and must not be reused: its date makes the
// signature valid for exactly one request.
type SignedRequest struct {
	Method     string
	Path       string
	Host       string
	Body       []byte
	Digest     string
	Date       string
	DateHeader string
	MerchantID string
	Signature  string
	// Base is the signature base string. It holds no secret material.
	Base string
}

type component struct {
	name  string
	value string
}

// FormatDate renders ts as RFC-1123 in GMT, the only format the gateway accepts.
func FormatDate(ts time.Time) string {
	return ts.UTC().Format(http.TimeFormat)
}

// Sign computes the digest and HMAC signature for one request. body must be
// the exact bytes that will be transmitted.
func Sign(scheme Scheme, host, method, path string, body []byte, creds model.Credentials, ts time.Time) (*SignedRequest, error) {
	key, err := base64.StdEncoding.DecodeString(creds.SecretKey)
	if err != nil {
		return nil, &model.ValidationError{Field: "credentials.secretKey", Reason: "not base64"}
	}

	signed := &SignedRequest{
		Method:     strings.ToUpper(method),
		Path:       path,
		Host:       host,
		Body:       body,
		Digest:     Digest(body),
		Date:       FormatDate(ts),
		DateHeader: scheme.dateComponent(),
		MerchantID: creds.MerchantID,
	}

	components, err := signed.components(scheme)
	if err != nil {
		return nil, err
	}

	lines := make([]string, len(components))
	for i, c := range components {
		lines[i] = c.name + ": " + c.value
	}
	signed.Base = strings.Join(lines, "\n")

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(signed.Base))

	signed.Signature = fmt.Sprintf(`keyid="%s", algorithm="%s", headers="%s", signature="%s"`,
		creds.KeyID, Algorithm, joinNames(components), base64.StdEncoding.EncodeToString(mac.Sum(nil)))

	return signed, nil
}

func (s *SignedRequest) components(scheme Scheme) ([]component, error) {
	if len(scheme.Components) == 0 {
		return nil, errors.Errorf("signature scheme %q has no components", scheme.Name)
	}

	components := make([]component, 0, len(scheme.Components))
	for _, name := range scheme.Components {
		value, ok := s.valueOf(name)
		if !ok {
			return nil, errors.Errorf("signature scheme %q: unknown component %q", scheme.Name, name)
		}
		components = append(components, component{name: name, value: value})
	}
	return components, nil
}

func (s *SignedRequest) valueOf(name string) (string, bool) {
	switch name {
	case ComponentHost:
		return s.Host, true
	case ComponentDate, ComponentVCDate:
		return s.Date, true
	case ComponentRequestTarget:
		return strings.ToLower(s.Method) + " " + s.Path, true
	case ComponentDigest:
		return s.Digest, true
	case ComponentMerchantID:
		return s.MerchantID, true
	}
	return "", false
}

// Header returns the HTTP headers carrying the signed values.
func (s *SignedRequest) Header() http.Header {
	h := http.Header{}
	h.Set("Host", s.Host)
	if s.DateHeader != "" {
		h.Set(headerName(s.DateHeader), s.Date)
	}
	h.Set(headerName(ComponentDigest), s.Digest)
	h.Set(headerName(ComponentMerchantID), s.MerchantID)
	h.Set("Signature", s.Signature)
	h.Set("Content-Type", "application/json")
	return h
}
