package config

import (
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"payment-service/internal/model"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Gateway struct {
	Environment   string `mapstructure:"environment"`
	BaseURL       string `mapstructure:"base-url"`
	CAFile        string `mapstructure:"ca-file"`
	MerchantID    string `mapstructure:"merchant-id"`
	KeyID         string `mapstructure:"key-id"`
	SecretKey     string `mapstructure:"secret-key"`
	OrgUnitID     string `mapstructure:"org-unit-id"`
	APIIdentifier string `mapstructure:"api-identifier"`
	TimeoutMs     int    `mapstructure:"timeout-ms"`
}

type Payment struct {
	Parallelism int    `mapstructure:"parallelism"`
	ReturnURL   string `mapstructure:"return-url"`
}

type Database struct {
	URL           string `mapstructure:"url"`
	MigrationsDir string `mapstructure:"migrations-dir"`
}

type KafkaWriter struct {
	BatchSize      int `mapstructure:"batch-size"`
	BatchTimeoutMs int `mapstructure:"batch-timeout-ms"`
}

type KafkaBroker struct {
	URL string `mapstructure:"url"`
}

type KafkaTopic struct {
	AuditEvents string `mapstructure:"audit-events"`
}

type Kafka struct {
	Writer KafkaWriter `mapstructure:"writer"`
	Broker KafkaBroker `mapstructure:"broker"`
	Topic  KafkaTopic  `mapstructure:"topic"`
}

type AuditProducer struct {
	PollingIntervalMs  int `mapstructure:"polling-interval-ms"`
	FetchSize          int `mapstructure:"fetch-size"`
	RescheduleDelayMs  int `mapstructure:"reschedule-delay-ms"`
	MaxPublishAttempts int `mapstructure:"max-publish-attempts"`
}

type Audit struct {
	Producer AuditProducer `mapstructure:"producer"`
}

type Server struct {
	Port string `mapstructure:"port"`
}

type Metrics struct {
	URL          string `mapstructure:"url"`
	IntervalMs   int    `mapstructure:"interval-ms"`
	CommonLabels string `mapstructure:"common-labels"`
}

type Logs struct {
	URL   string `mapstructure:"url"`
	Level string `mapstructure:"level"`
}

type Config struct {
	Gateway  Gateway  `mapstructure:"gateway"`
	Payment  Payment  `mapstructure:"payment"`
	Database Database `mapstructure:"database"`
	Kafka    Kafka    `mapstructure:"kafka"`
	Audit    Audit    `mapstructure:"audit"`
	Server   Server   `mapstructure:"server"`
	Metrics  Metrics  `mapstructure:"metrics"`
	Logs     Logs     `mapstructure:"logs"`
}

var defaults = map[string]any{
	"gateway.environment":                 string(model.Sandbox),
	"gateway.base-url":                    "",
	"gateway.ca-file":                     "",
	"gateway.merchant-id":                 "",
	"gateway.key-id":                      "",
	"gateway.secret-key":                  "",
	"gateway.org-unit-id":                 "",
	"gateway.api-identifier":              "",
	"gateway.timeout-ms":                  30_000,
	"payment.parallelism":                 64,
	"payment.return-url":                  "",
	"database.url":                        "",
	"database.migrations-dir":             "migrations",
	"kafka.writer.batch-size":             100,
	"kafka.writer.batch-timeout-ms":       100,
	"kafka.broker.url":                    "",
	"kafka.topic.audit-events":            "payment-audit",
	"audit.producer.polling-interval-ms":  500,
	"audit.producer.fetch-size":           200,
	"audit.producer.reschedule-delay-ms":  10_000,
	"audit.producer.max-publish-attempts": 3,
	"server.port":                         "8080",
	"metrics.url":                         "",
	"metrics.interval-ms":                 10_000,
	"metrics.common-labels":               "",
	"logs.url":                            "",
	"logs.level":                          "info",
}

// LoadConfig reads config.yaml from path. Every key can be overridden with a
// PAYMENT_ prefixed environment variable, e.g. PAYMENT_GATEWAY_SECRET_KEY; a
// .env file in the working directory is loaded first when present.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Skipping .env: %v", err)
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("payment")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func MustLoadConfig(path string) *Config {
	config, err := LoadConfig(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return config
}

func (c *Config) Validate() error {
	if err := c.Credentials().Validate(); err != nil {
		return err
	}

	u, err := url.Parse(c.Gateway.URL())
	if err != nil {
		return errors.Wrap(err, "gateway.base-url")
	}
	if u.Scheme != "https" || u.Host == "" {
		return &model.ValidationError{Field: "gateway.base-url", Reason: "must be an https url"}
	}
	if c.Gateway.TimeoutMs <= 0 {
		return &model.ValidationError{Field: "gateway.timeout-ms", Reason: "must be positive"}
	}
	if c.Payment.Parallelism <= 0 {
		return &model.ValidationError{Field: "payment.parallelism", Reason: "must be positive"}
	}

	producer := c.Audit.Producer
	positive := []struct {
		field string
		value int
	}{
		{"audit.producer.polling-interval-ms", producer.PollingIntervalMs},
		{"audit.producer.fetch-size", producer.FetchSize},
		{"audit.producer.max-publish-attempts", producer.MaxPublishAttempts},
	}
	for _, f := range positive {
		if f.value <= 0 {
			return &model.ValidationError{Field: f.field, Reason: "must be positive"}
		}
	}
	if producer.RescheduleDelayMs < 0 {
		return &model.ValidationError{Field: "audit.producer.reschedule-delay-ms", Reason: "must not be negative"}
	}
	return nil
}

// Credentials returns the immutable merchant identity used to sign requests.
func (c *Config) Credentials() model.Credentials {
	return model.Credentials{
		MerchantID:    c.Gateway.MerchantID,
		KeyID:         c.Gateway.KeyID,
		SecretKey:     c.Gateway.SecretKey,
		OrgUnitID:     c.Gateway.OrgUnitID,
		APIIdentifier: c.Gateway.APIIdentifier,
		Environment:   model.Environment(c.Gateway.Environment),
	}
}

const (
	sandboxURL    = "https://apitest.cybersource.com"
	productionURL = "https://api.cybersource.com"
)

// URL is the configured base url or the default for the environment.
func (g Gateway) URL() string {
	if g.BaseURL != "" {
		return strings.TrimRight(g.BaseURL, "/")
	}
	if model.Environment(g.Environment) == model.Production {
		return productionURL
	}
	return sandboxURL
}

func (g Gateway) Timeout() time.Duration {
	return time.Duration(g.TimeoutMs) * time.Millisecond
}
