package config

import (
	"os"
	"path/filepath"
	"testing"

	"payment-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
gateway:
  environment: sandbox
  merchant-id: test_merchant
  key-id: key-123
  secret-key: c2VjcmV0LWtleS1mb3ItdGVzdHM=
  org-unit-id: org-unit
  api-identifier: api-id
payment:
  parallelism: 8
kafka:
  broker:
    url: localhost:9092
`

func writeConfig(t *testing.T, content string) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))
	return dir
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://apitest.cybersource.com", cfg.Gateway.URL())
	assert.Equal(t, 30_000, cfg.Gateway.TimeoutMs)
	assert.Equal(t, 8, cfg.Payment.Parallelism)
	assert.Equal(t, "payment-audit", cfg.Kafka.Topic.AuditEvents)
	assert.Equal(t, "localhost:9092", cfg.Kafka.Broker.URL)

	creds := cfg.Credentials()
	assert.Equal(t, model.Credentials{
		MerchantID:    "test_merchant",
		KeyID:         "key-123",
		SecretKey:     "c2VjcmV0LWtleS1mb3ItdGVzdHM=",
		OrgUnitID:     "org-unit",
		APIIdentifier: "api-id",
		Environment:   model.Sandbox,
	}, creds)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("PAYMENT_GATEWAY_MERCHANT_ID", "env_merchant")
	t.Setenv("PAYMENT_GATEWAY_ENVIRONMENT", "production")

	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "env_merchant", cfg.Gateway.MerchantID)
	assert.Equal(t, "https://api.cybersource.com", cfg.Gateway.URL())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "SecretNotBase64", env: map[string]string{"PAYMENT_GATEWAY_SECRET_KEY": "not base64!"}},
		{name: "PlainHTTP", env: map[string]string{"PAYMENT_GATEWAY_BASE_URL": "http://gateway.local"}},
		{name: "UnknownEnvironment", env: map[string]string{"PAYMENT_GATEWAY_ENVIRONMENT": "staging"}},
		{name: "ZeroPollingInterval", env: map[string]string{"PAYMENT_AUDIT_PRODUCER_POLLING_INTERVAL_MS": "0"}},
		{name: "ZeroFetchSize", env: map[string]string{"PAYMENT_AUDIT_PRODUCER_FETCH_SIZE": "0"}},
		{name: "ZeroPublishAttempts", env: map[string]string{"PAYMENT_AUDIT_PRODUCER_MAX_PUBLISH_ATTEMPTS": "0"}},
		{name: "NegativeRescheduleDelay", env: map[string]string{"PAYMENT_AUDIT_PRODUCER_RESCHEDULE_DELAY_MS": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(writeConfig(t, sampleConfig))
			assert.Error(t, err)
		})
	}
}
