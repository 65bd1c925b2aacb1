package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"payment-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	creds = model.Credentials{
		MerchantID:    "test_merchant",
		KeyID:         "key-123",
		SecretKey:     "c2VjcmV0LWtleS1mb3ItdGVzdHM=",
		OrgUnitID:     "org-unit-1",
		APIIdentifier: "api-identifier-1",
		Environment:   model.Sandbox,
	}
	order = OrderContext{OrderID: "ORDER-42", Amount: "1000", CurrencyCode: "USD"}
	now   = time.Unix(1_790_000_000, 0)
)

func fixedID() string { return "jti-fixed" }

func TestBuild_RoundTrip(t *testing.T) {
	tok, err := NewBuilderWithIDs(fixedID).Build(order, creds, now)
	require.NoError(t, err)

	parts := strings.Split(tok.Value, ".")
	require.Len(t, parts, 3)

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	claimsJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	assert.JSONEq(t, `{"alg":"HS256","typ":"JWT","jti":"jti-fixed"}`, string(headerJSON))
	assert.JSONEq(t, `{
		"jti":"jti-fixed",
		"iat":1790000000,
		"exp":1790003600,
		"iss":"api-identifier-1",
		"OrgUnitId":"org-unit-1",
		"ReferenceId":"ORDER-42",
		"Payload":{"OrderDetails":{"Amount":"1000","CurrencyCode":"USD","OrderNumber":"ORDER-42"}}
	}`, string(claimsJSON))

	var claims Claims
	require.NoError(t, json.Unmarshal(claimsJSON, &claims))
	assert.Equal(t, tok.Claims, claims)

	var header Header
	require.NoError(t, json.Unmarshal(headerJSON, &header))
	assert.Equal(t, tok.Header, header)
}

func TestBuild_SignatureUsesRawSecret(t *testing.T) {
	tok, err := NewBuilderWithIDs(fixedID).Build(order, creds, now)
	require.NoError(t, err)

	parts := strings.Split(tok.Value, ".")
	mac := hmac.New(sha256.New, []byte(creds.SecretKey))
	mac.Write([]byte(parts[0] + "." + parts[1]))
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), parts[2])

	for _, part := range parts {
		assert.NotContains(t, part, "=")
		assert.NotContains(t, part, "+")
		assert.NotContains(t, part, "/")
	}
}

func TestBuild_UniqueJTI(t *testing.T) {
	b := NewBuilder()
	first, err := b.Build(order, creds, now)
	require.NoError(t, err)
	second, err := b.Build(order, creds, now)
	require.NoError(t, err)

	assert.NotEqual(t, first.Header.JTI, second.Header.JTI)
	assert.Equal(t, first.Header.JTI, first.Claims.ID)
	assert.NotEqual(t, first.Value, second.Value)
}

func TestToken_Expired(t *testing.T) {
	tok, err := NewBuilderWithIDs(fixedID).Build(order, creds, now)
	require.NoError(t, err)

	assert.False(t, tok.Expired(now))
	assert.False(t, tok.Expired(now.Add(Lifetime-time.Second)))
	assert.True(t, tok.Expired(now.Add(Lifetime)))
}

func TestToken_Verify(t *testing.T) {
	tok, err := NewBuilderWithIDs(fixedID).Build(order, creds, now)
	require.NoError(t, err)

	assert.NoError(t, tok.Verify(creds.SecretKey, now))
	assert.NoError(t, tok.Verify(creds.SecretKey, now.Add(Lifetime-time.Second)))
	assert.ErrorIs(t, tok.Verify(creds.SecretKey, now.Add(Lifetime)), ErrExpired)

	err = tok.Verify("b3RoZXIta2V5", now)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrExpired)

	other, err := NewBuilderWithIDs(fixedID).Build(OrderContext{OrderID: "ORDER-43", Amount: "1", CurrencyCode: "USD"}, creds, now)
	require.NoError(t, err)
	parts, otherParts := strings.Split(tok.Value, "."), strings.Split(other.Value, ".")
	tampered := *tok
	tampered.Value = parts[0] + "." + otherParts[1] + "." + parts[2]
	assert.Error(t, tampered.Verify(creds.SecretKey, now))
}
