// Package token builds the HS256 bearer token presented on the 3-D Secure hop.
package token

import (
	"time"

	"payment-service/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Lifetime is fixed; an expired token must be rebuilt, never reused.
const Lifetime = 3600 * time.Second

var ErrExpired = errors.New("bearer token expired")

type Header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
	JTI string `json:"jti"`
}

type OrderDetails struct {
	Amount       string `json:"Amount"`
	CurrencyCode string `json:"CurrencyCode"`
	OrderNumber  string `json:"OrderNumber"`
}

type Payload struct {
	OrderDetails OrderDetails `json:"OrderDetails"`
}

// Claims carries jti, iat, exp and iss through the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	OrgUnitID   string  `json:"OrgUnitId"`
	ReferenceID string  `json:"ReferenceId"`
	Payload     Payload `json:"Payload"`
}

// OrderContext is the order identity carried in the claims.
type OrderContext struct {
	OrderID      string
	Amount       string // minor units
	CurrencyCode string
}

type Token struct {
	Value  string
	Header Header
	Claims Claims
}

// Expired reports whether the token can no longer be presented at now.
func (t *Token) Expired(now time.Time) bool {
	err := jwt.NewValidator(jwt.WithTimeFunc(func() time.Time { return now })).Validate(t.Claims)
	return errors.Is(err, jwt.ErrTokenExpired)
}

// Verify parses the token back with secret and checks signature and lifetime
// at now. An expired token yields ErrExpired.
func (t *Token) Verify(secret string, now time.Time) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	_, err := parser.ParseWithClaims(t.Value, &Claims{}, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return errors.Wrap(err, "bearer token")
	}
}

type Builder struct {
	newID func() string
}

func NewBuilder() *Builder {
	return &Builder{newID: uuid.NewString}
}

// NewBuilderWithIDs is used where the jti must be predictable.
func NewBuilderWithIDs(newID func() string) *Builder {
	return &Builder{newID: newID}
}

// Build signs a fresh token. The HMAC key is the secret exactly as provisioned,
// without base64 decoding.
func (b *Builder) Build(order OrderContext, creds model.Credentials, now time.Time) (*Token, error) {
	jti := b.newID()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(Lifetime)),
			Issuer:    creds.APIIdentifier,
		},
		OrgUnitID:   creds.OrgUnitID,
		ReferenceID: order.OrderID,
		Payload: Payload{OrderDetails: OrderDetails{
			Amount:       order.Amount,
			CurrencyCode: order.CurrencyCode,
			OrderNumber:  order.OrderID,
		}},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tok.Header["jti"] = jti

	value, err := tok.SignedString([]byte(creds.SecretKey))
	if err != nil {
		return nil, &model.SerializationError{Step: "token", Err: err}
	}

	return &Token{
		Value:  value,
		Header: Header{Alg: jwt.SigningMethodHS256.Alg(), Typ: "JWT", JTI: jti},
		Claims: claims,
	}, nil
}
