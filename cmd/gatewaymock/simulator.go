package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"math/rand/v2"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"payment-service/internal/model"
	"payment-service/internal/payload"
	"payment-service/internal/signature"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Card numbers ending in these digits trigger deterministic failures.
const (
	failAuthenticationSuffix = "0002"
	insufficientFundsSuffix  = "0051"
)

type simulator struct {
	secretKey string

	mu           sync.Mutex
	transactions map[string]string
}

func newSimulator(secretKey string) *simulator {
	return &simulator{secretKey: secretKey, transactions: make(map[string]string)}
}

func (s *simulator) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /risk/v1/authentications", s.authenticate)
	mux.HandleFunc("POST /pts/v2/payments", s.pay)
	mux.HandleFunc("GET /pts/v2/payments/{id}", s.status)
	mux.HandleFunc("POST /pts/v2/payments/{id}/refunds", s.refund)
	return mux
}

func (s *simulator) authenticate(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"ErrorDescription": "missing bearer token"})
		return
	}
	var req payload.Authentication
	if !s.verify(w, r, &req) {
		return
	}

	id := transactionID()
	if strings.HasSuffix(req.PaymentInformation.Card.Number, failAuthenticationSuffix) {
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":     id,
			"status": model.AuthenticationFailed,
			"errorInformation": map[string]string{
				"reason":  "CONSUMER_AUTHENTICATION_FAILED",
				"message": "Cardholder authentication failed",
			},
		})
		return
	}

	cavv := make([]byte, 20)
	for i := range cavv {
		cavv[i] = byte(rand.IntN(256))
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     id,
		"status": model.AuthenticationSuccessful,
		"consumerAuthenticationInformation": map[string]string{
			"cavv":   base64.StdEncoding.EncodeToString(cavv),
			"eciRaw": "05",
			"xid":    base64.StdEncoding.EncodeToString([]byte(uuid.NewString()[:20])),
		},
	})
}

func (s *simulator) pay(w http.ResponseWriter, r *http.Request) {
	var req payload.Payment
	if !s.verify(w, r, &req) {
		return
	}
	if req.ConsumerAuthenticationInformation == nil || req.ConsumerAuthenticationInformation.CAVV == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Missing authentication evidence"})
		return
	}
	if strings.HasSuffix(req.PaymentInformation.Card.Number, insufficientFundsSuffix) {
		writeJSON(w, http.StatusPaymentRequired, map[string]string{"message": "Insufficient funds", "reason": "INSUFFICIENT_FUND"})
		return
	}

	id := transactionID()
	s.mu.Lock()
	s.transactions[id] = "AUTHORIZED"
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     id,
		"status": "AUTHORIZED",
		"clientReferenceInformation": map[string]string{
			"code": req.ClientReferenceInformation.Code,
		},
	})
}

func (s *simulator) status(w http.ResponseWriter, r *http.Request) {
	if !s.verify(w, r, nil) {
		return
	}
	id := r.PathValue("id")

	s.mu.Lock()
	status, ok := s.transactions[id]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": status})
}

func (s *simulator) refund(w http.ResponseWriter, r *http.Request) {
	var req payload.Refund
	if !s.verify(w, r, &req) {
		return
	}
	id := r.PathValue("id")

	s.mu.Lock()
	_, ok := s.transactions[id]
	if ok {
		s.transactions[id] = "REFUNDED"
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": transactionID(), "status": "PENDING"})
}

var signatureParam = regexp.MustCompile(`(\w+)="([^"]*)"`)

// verify checks the digest, and the signature when a secret is configured,
// then decodes the body into v.
func (s *simulator) verify(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "unreadable body"})
		return false
	}
	if r.Header.Get("Digest") != signature.Digest(body) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Digest mismatch"})
		return false
	}

	if s.secretKey != "" {
		if err := s.verifySignature(r, body); err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": err.Error()})
			return false
		}
	}

	if v != nil {
		if err := json.NewDecoder(bytes.NewReader(body)).Decode(v); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed request"})
			return false
		}
	}
	return true
}

func (s *simulator) verifySignature(r *http.Request, body []byte) error {
	params := map[string]string{}
	for _, m := range signatureParam.FindAllStringSubmatch(r.Header.Get("Signature"), -1) {
		params[m[1]] = m[2]
	}

	scheme := signature.Scheme{Name: "received", Components: strings.Fields(params["headers"])}
	dateHeader := r.Header.Get("V-C-Date")
	if dateHeader == "" {
		dateHeader = r.Header.Get("Date")
	}
	ts, err := http.ParseTime(dateHeader)
	if err != nil {
		return errors.New("invalid date header")
	}

	expected, err := signature.Sign(scheme, r.Host, r.Method, r.URL.Path, body, model.Credentials{
		MerchantID: r.Header.Get("V-C-Merchant-Id"),
		KeyID:      params["keyid"],
		SecretKey:  s.secretKey,
	}, ts)
	if err != nil {
		return err
	}
	if expected.Signature != r.Header.Get("Signature") {
		return errors.New("signature mismatch")
	}
	return nil
}

func transactionID() string {
	var b strings.Builder
	for i := 0; i < 22; i++ {
		b.WriteByte(byte('0' + rand.IntN(10)))
	}
	return b.String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
