// Command gatewaymock serves a local imitation of the payment gateway over
// TLS. The generated certificate is written to cert-out so the service can
// trust it through gateway.ca-file.
package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"log"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"payment-service/internal/config"
	"payment-service/internal/logging"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

func main() {
	v := viper.New()
	v.SetEnvPrefix("gatewaymock")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("addr", ":8443")
	v.SetDefault("cert-out", "certs/gatewaymock.pem")
	v.SetDefault("secret-key", "")
	v.SetDefault("log-level", "info")

	logger := logging.GetLogger(config.Logs{Level: v.GetString("log-level")})

	cert, err := selfSignedCertificate(v.GetString("cert-out"))
	if err != nil {
		log.Fatal(err)
	}

	counts := newCounter()
	handler := loggingMiddleware(logger, counts.middleware(logger, newSimulator(v.GetString("secret-key")).routes()))

	server := &http.Server{
		Addr:              v.GetString("addr"),
		Handler:           handler,
		TLSConfig:         &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12},
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Starting gateway simulator", "addr", server.Addr, "certificate", v.GetString("cert-out"))
	log.Fatal(server.ListenAndServeTLS("", ""))
}

// selfSignedCertificate issues a localhost certificate and writes its PEM to path.
func selfSignedCertificate(path string) (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "generate key")
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "generate serial")
	}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "gatewaymock"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(30 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "create certificate")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return tls.Certificate{}, err
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(path, certPEM, 0o644); err != nil {
		return tls.Certificate{}, errors.Wrap(err, "write certificate")
	}

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, nil
}
